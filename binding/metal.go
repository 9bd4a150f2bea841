// Copyright 2025 The psoarchive Authors. All rights reserved.

package binding

import "github.com/kestrelgfx/psoarchive/device"

// defaultMaxArgBuffers is the argument-buffer count used when the
// caller does not override it via AssignMetal. It matches the lowest
// common denominator across Apple's GPU families.
const defaultMaxArgBuffers = 31

// AssignMetal exposes the Metal binding rule with an explicit
// maximum argument-buffer count, as spec.md §4.5 requires ("Delegated
// to a separate routine parameterised by the platform's maximum
// argument-buffer count"). Assign calls this with defaultMaxArgBuffers;
// callers that know their platform's real limit should call this
// directly instead.
func AssignMetal(sigs []SignatureInput, maxArgBuffers int) ([]device.PipelineResourceBinding, error) {
	ordered, err := sortedByBindingIndex(sigs)
	if err != nil {
		return nil, err
	}
	return assignMetal(ordered, maxArgBuffers), nil
}

// assignMetal assigns a flat, monotonically increasing argument
// index across every resource and immutable sampler in signature
// order, then splits it into (space, register) pairs of width
// maxArgBuffers so that a single Metal argument buffer never needs
// more slots than the platform supports.
func assignMetal(sigs []SignatureInput, maxArgBuffers int) []device.PipelineResourceBinding {
	if maxArgBuffers <= 0 {
		maxArgBuffers = defaultMaxArgBuffers
	}
	idx := 0
	var out []device.PipelineResourceBinding
	emit := func(name string, rt device.ResourceType, arraySize int, stages device.Stage) {
		out = append(out, device.PipelineResourceBinding{
			Name:         name,
			ResourceType: rt,
			Register:     idx % maxArgBuffers,
			Space:        idx / maxArgBuffers,
			ArraySize:    arraySize,
			ShaderStages: stages,
		})
		idx++
	}
	for _, sig := range sigs {
		for _, r := range sig.Resources {
			emit(r.Desc.Name, r.Desc.Type, arraySizeOf(r.Desc), r.Desc.ShaderStages)
		}
		for _, s := range sig.Samplers {
			emit(s.Sampler.Name, device.ResSampler, 1, s.Sampler.ShaderStages)
		}
	}
	if out == nil {
		out = []device.PipelineResourceBinding{}
	}
	return out
}
