// Copyright 2025 The psoarchive Authors. All rights reserved.

package binding

import "github.com/kestrelgfx/psoarchive/device"

// assignVulkan implements spec.md §4.5's Vulkan rule and scenario S1:
// a running descSetLayoutCount, advanced after each signature by the
// number of non-empty descriptor set layouts (static/mutable,
// dynamic) it contributed.
func assignVulkan(sigs []SignatureInput) []device.PipelineResourceBinding {
	descSetLayoutCount := 0
	var out []device.PipelineResourceBinding
	for _, sig := range sigs {
		for _, r := range sig.Resources {
			out = append(out, device.PipelineResourceBinding{
				Name:         r.Desc.Name,
				ResourceType: r.Desc.Type,
				Register:     r.Attrs.VulkanBinding,
				Space:        descSetLayoutCount + r.Attrs.VulkanSet,
				ArraySize:    arraySizeOf(r.Desc),
				ShaderStages: r.Desc.ShaderStages,
			})
		}
		for _, s := range sig.Samplers {
			out = append(out, device.PipelineResourceBinding{
				Name:         s.Sampler.Name,
				ResourceType: device.ResSampler,
				Register:     s.Attrs.VulkanBinding,
				Space:        descSetLayoutCount + s.Attrs.VulkanSet,
				ArraySize:    1,
				ShaderStages: s.Sampler.ShaderStages,
			})
		}
		if sig.VulkanStaticMutSize != NoSet {
			descSetLayoutCount++
		}
		if sig.VulkanDynamicSize != NoSet {
			descSetLayoutCount++
		}
	}
	if out == nil {
		out = []device.PipelineResourceBinding{}
	}
	return out
}
