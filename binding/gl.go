// Copyright 2025 The psoarchive Authors. All rights reserved.

package binding

import "github.com/kestrelgfx/psoarchive/device"

// assignGL implements spec.md §4.5's GL/GLES rule: same structure as
// D3D11 (a base counter per range, advanced once per signature by a
// shiftBindings-style pass, not once per resource), except the
// counter is stage-agnostic — a single base[range] rather than
// base[range][stage] — and one binding is still emitted per active
// stage.
func assignGL(sigs []SignatureInput, stageMask device.Stage) []device.PipelineResourceBinding {
	var base [numRanges]int
	var out []device.PipelineResourceBinding
	for _, sig := range sigs {
		for _, r := range sig.Resources {
			rng := rangeOf(r.Desc.Type)
			for _, st := range stageOrder {
				if stageMask&st == 0 || r.Desc.ShaderStages&st == 0 {
					continue
				}
				out = append(out, device.PipelineResourceBinding{
					Name:         r.Desc.Name,
					ResourceType: r.Desc.Type,
					Register:     base[rng] + r.Attrs.GLCacheOffset,
					Space:        0,
					ArraySize:    arraySizeOf(r.Desc),
					ShaderStages: st,
				})
			}
		}
		for _, s := range sig.Samplers {
			for _, st := range stageOrder {
				if stageMask&st == 0 || s.Sampler.ShaderStages&st == 0 {
					continue
				}
				out = append(out, device.PipelineResourceBinding{
					Name:         s.Sampler.Name,
					ResourceType: device.ResSampler,
					Register:     base[rangeSampler] + s.Attrs.GLCacheOffset,
					Space:        0,
					ArraySize:    1,
					ShaderStages: st,
				})
			}
		}
		shiftGL(&base, sig)
	}
	if out == nil {
		out = []device.PipelineResourceBinding{}
	}
	return out
}

// shiftGL is assignGL's shiftBindings call: it advances base by this
// signature's per-range resource counts, once the whole signature has
// been emitted (mirrors shiftD3D11, minus the per-stage dimension).
func shiftGL(base *[numRanges]int, sig SignatureInput) {
	var cnt [numRanges]int
	for _, r := range sig.Resources {
		cnt[rangeOf(r.Desc.Type)]++
	}
	cnt[rangeSampler] += len(sig.Samplers)
	for r := 0; r < int(numRanges); r++ {
		base[r] += cnt[r]
	}
}
