// Copyright 2025 The psoarchive Authors. All rights reserved.

package archivedevice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/psoarchive/archivedevice"
	"github.com/kestrelgfx/psoarchive/binding"
	"github.com/kestrelgfx/psoarchive/device"
)

// TestCreateShaderReturnsSequentialIndices checks that CreateShader
// hands back the shader-table index matching registration order, the
// index a caller later threads into CreateGraphicsPipelineState et al.
func TestCreateShaderReturnsSequentialIndices(t *testing.T) {
	sd := archivedevice.New()
	i0 := sd.CreateShader("vs", device.StageVertex, nil, device.Vulkan.Bit())
	i1 := sd.CreateShader("ps", device.StagePixel, nil, device.Vulkan.Bit())
	assert.Equal(t, uint32(0), i0)
	assert.Equal(t, uint32(1), i1)
}

// TestCreateShaderRestrictsToDeviceBits checks that bytecode supplied
// for a backend outside deviceBits never reaches the built archive
// (spec.md §4.8 "restricting which backends will carry compiled
// data"): the excluded backend's bytecode is absent from the output,
// while the included backend's bytecode is present.
func TestCreateShaderRestrictsToDeviceBits(t *testing.T) {
	sd := archivedevice.New()
	sd.CreateShader("cs", device.StageCompute,
		map[device.Backend][]byte{
			device.Vulkan:      []byte("SPIRV"),
			device.Direct3D12: []byte("DXIL"),
		},
		device.Vulkan.Bit(), // excludes Direct3D12
	)
	sd.CreateComputePipelineState("p0", nil, 0)

	raw, err := sd.Build(device.Vulkan.Bit()|device.Direct3D12.Bit(), 0)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.NotContains(t, string(raw), "DXIL")
	assert.Contains(t, string(raw), "SPIRV")
}

// TestGetValidDeviceBitsIntersectsRegistered checks the build-time
// compiled-backend computation (spec.md §4.8).
func TestGetValidDeviceBitsIntersectsRegistered(t *testing.T) {
	device.Register(device.OpenGL, func() (device.Device, error) { return nil, nil })
	got := archivedevice.GetValidDeviceBits(device.OpenGL.Bit() | device.MetalMacOS.Bit())
	assert.True(t, got.Has(device.OpenGL))
	assert.False(t, got.Has(device.MetalMacOS))
}

// TestGetPipelineResourceBindingsMatchesSignatureCount checks the
// offline-preview path computes one binding per declared resource,
// consistent with what Build later embeds for the same backend.
func TestGetPipelineResourceBindingsMatchesSignatureCount(t *testing.T) {
	sd := archivedevice.New()
	sd.CreatePipelineResourceSignature("sig0", 0,
		[]archivedevice.SignatureResourceInput{
			{
				Desc:  device.PipelineResourceDesc{Name: "albedo", Type: device.ResTexture, ShaderStages: device.StagePixel, ArraySize: 1},
				Attrs: binding.BackendAttrs{VulkanSet: 0, VulkanBinding: 0},
			},
			{
				Desc:  device.PipelineResourceDesc{Name: "normal", Type: device.ResTexture, ShaderStages: device.StagePixel, ArraySize: 1},
				Attrs: binding.BackendAttrs{VulkanSet: 0, VulkanBinding: 1},
			},
		},
		nil, 64, binding.NoSet,
	)

	bindings, err := sd.GetPipelineResourceBindings(device.Vulkan, device.StagePixel, 0)
	require.NoError(t, err)
	assert.Len(t, bindings, 2)
}

// TestGetPipelineResourceBindingsPropagatesAssignError checks that a
// signature set whose binding indices don't densely fill [0, N)
// surfaces ErrInvalidSignatureLayout through the preview path the same
// way it would through Build (spec.md §4.5 error cases).
func TestGetPipelineResourceBindingsPropagatesAssignError(t *testing.T) {
	sd := archivedevice.New()
	sd.CreatePipelineResourceSignature("sig0", 0, nil, nil, binding.NoSet, binding.NoSet)
	sd.CreatePipelineResourceSignature("sig1", 2, nil, nil, binding.NoSet, binding.NoSet) // leaves index 1 empty

	_, err := sd.GetPipelineResourceBindings(device.Vulkan, device.StageVertex, 0)
	assert.ErrorIs(t, err, binding.ErrInvalidSignatureLayout)
}
