// Copyright 2025 The psoarchive Authors. All rights reserved.

package binding

import "github.com/kestrelgfx/psoarchive/device"

// assignD3D11 implements spec.md §4.5's D3D11 rule: one base counter
// per (range, stage), with the pixel-stage UAV counter seeded by
// numRenderTargets since UAVs share register space with render
// targets (spec.md scenario S2).
func assignD3D11(sigs []SignatureInput, stageMask device.Stage, numRenderTargets int) []device.PipelineResourceBinding {
	stageMask &= device.StageAllGraphics | device.StageCompute

	var base [numRanges][numStages]int
	base[rangeUAV][stagePixelIdx] = numRenderTargets

	var out []device.PipelineResourceBinding
	for _, sig := range sigs {
		for _, r := range sig.Resources {
			rng := rangeOf(r.Desc.Type)
			for i, st := range stageOrder {
				if stageMask&st == 0 || r.Desc.ShaderStages&st == 0 {
					continue
				}
				out = append(out, device.PipelineResourceBinding{
					Name:         r.Desc.Name,
					ResourceType: r.Desc.Type,
					Register:     base[rng][i] + r.Attrs.D3D11BindPoint[i],
					Space:        0,
					ArraySize:    arraySizeOf(r.Desc),
					ShaderStages: st,
				})
			}
		}
		for _, s := range sig.Samplers {
			for i, st := range stageOrder {
				if stageMask&st == 0 || s.Sampler.ShaderStages&st == 0 {
					continue
				}
				out = append(out, device.PipelineResourceBinding{
					Name:         s.Sampler.Name,
					ResourceType: device.ResSampler,
					Register:     base[rangeSampler][i] + s.Attrs.D3D11BindPoint[i],
					Space:        0,
					ArraySize:    1,
					ShaderStages: st,
				})
			}
		}
		shiftD3D11(&base, sig)
	}
	if out == nil {
		out = []device.PipelineResourceBinding{}
	}
	return out
}

// shiftD3D11 is the signature's shiftBindings call (spec.md §4.5):
// it advances base by this signature's per-stage range counts.
func shiftD3D11(base *[numRanges][numStages]int, sig SignatureInput) {
	var cnt [numRanges][numStages]int
	for _, r := range sig.Resources {
		rng := rangeOf(r.Desc.Type)
		for i, st := range stageOrder {
			if r.Desc.ShaderStages&st != 0 {
				cnt[rng][i]++
			}
		}
	}
	for _, s := range sig.Samplers {
		for i, st := range stageOrder {
			if s.Sampler.ShaderStages&st != 0 {
				cnt[rangeSampler][i]++
			}
		}
	}
	for r := 0; r < int(numRanges); r++ {
		for i := 0; i < numStages; i++ {
			base[r][i] += cnt[r][i]
		}
	}
}

// assignD3D12 implements spec.md §4.5's D3D12 rule: each signature
// gets a baseRegisterSpace equal to its binding index (a pure
// function of input, satisfying spec.md §8 property 7), and every
// resource whose stage mask intersects the request is emitted with
// space = baseRegisterSpace + resource.space (spec.md scenario S3).
func assignD3D12(sigs []SignatureInput, stageMask device.Stage) []device.PipelineResourceBinding {
	var out []device.PipelineResourceBinding
	for _, sig := range sigs {
		baseSpace := sig.BindingIndex
		for _, r := range sig.Resources {
			if stageMask&r.Desc.ShaderStages == 0 {
				continue
			}
			out = append(out, device.PipelineResourceBinding{
				Name:         r.Desc.Name,
				ResourceType: r.Desc.Type,
				Register:     r.Attrs.D3D12Register,
				Space:        baseSpace + r.Attrs.D3D12Space,
				ArraySize:    arraySizeOf(r.Desc),
				ShaderStages: r.Desc.ShaderStages,
			})
		}
		for _, s := range sig.Samplers {
			if stageMask&s.Sampler.ShaderStages == 0 {
				continue
			}
			out = append(out, device.PipelineResourceBinding{
				Name:         s.Sampler.Name,
				ResourceType: device.ResSampler,
				Register:     s.Attrs.D3D12Register,
				Space:        baseSpace + s.Attrs.D3D12Space,
				ArraySize:    1,
				ShaderStages: s.Sampler.ShaderStages,
			})
		}
	}
	if out == nil {
		out = []device.PipelineResourceBinding{}
	}
	return out
}
