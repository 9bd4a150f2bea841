// Copyright 2025 The psoarchive Authors. All rights reserved.

package binding

import (
	"testing"

	"github.com/kestrelgfx/psoarchive/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constRes(name string, stages device.Stage) ResourceInput {
	return ResourceInput{
		Desc: device.PipelineResourceDesc{
			Name:         name,
			Type:         device.ResConstantBuffer,
			ShaderStages: stages,
			ArraySize:    1,
		},
	}
}

// TestS1VulkanOffsets reproduces spec.md scenario S1.
func TestS1VulkanOffsets(t *testing.T) {
	a := SignatureInput{
		Name:                "A",
		BindingIndex:        0,
		VulkanStaticMutSize: 64,
		VulkanDynamicSize:   NoSet,
		Resources: []ResourceInput{
			{Desc: device.PipelineResourceDesc{Name: "r0", Type: device.ResTexture, ShaderStages: device.StagePixel}, Attrs: BackendAttrs{VulkanSet: 0, VulkanBinding: 0}},
			{Desc: device.PipelineResourceDesc{Name: "r1", Type: device.ResTexture, ShaderStages: device.StagePixel}, Attrs: BackendAttrs{VulkanSet: 0, VulkanBinding: 1}},
		},
	}
	b := SignatureInput{
		Name:                "B",
		BindingIndex:        1,
		VulkanStaticMutSize: NoSet,
		VulkanDynamicSize:   16,
		Resources: []ResourceInput{
			{Desc: device.PipelineResourceDesc{Name: "r2", Type: device.ResConstantBuffer, ShaderStages: device.StageVertex}, Attrs: BackendAttrs{VulkanSet: 0, VulkanBinding: 0}},
		},
	}
	out, err := Assign([]SignatureInput{a, b}, device.Vulkan, device.StageAllGraphics|device.StageCompute, 0)
	require.NoError(t, err)
	require.Len(t, out, 3)

	spaces := []int{out[0].Space, out[1].Space, out[2].Space}
	registers := []int{out[0].Register, out[1].Register, out[2].Register}
	assert.Equal(t, []int{0, 0, 1}, spaces)
	assert.Equal(t, []int{0, 1, 0}, registers)
}

// TestS2D3D11UAVPixelOffset reproduces spec.md scenario S2.
func TestS2D3D11UAVPixelOffset(t *testing.T) {
	sig := SignatureInput{
		Name:         "A",
		BindingIndex: 0,
		Resources: []ResourceInput{
			{
				Desc: device.PipelineResourceDesc{Name: "uav0", Type: device.ResRWTexture, ShaderStages: device.StagePixel},
			},
		},
	}
	out, err := Assign([]SignatureInput{sig}, device.Direct3D11, device.StageAllGraphics|device.StageCompute, 3)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].Register)
}

// TestS3D3D12Spaces reproduces spec.md scenario S3.
func TestS3D3D12Spaces(t *testing.T) {
	mkSig := func(bindingIndex int) SignatureInput {
		var resources []ResourceInput
		for i := 0; i < 3; i++ {
			resources = append(resources, ResourceInput{
				Desc:  device.PipelineResourceDesc{Name: "r", Type: device.ResConstantBuffer, ShaderStages: device.StageAllGraphics},
				Attrs: BackendAttrs{D3D12Register: i, D3D12Space: 0},
			})
		}
		return SignatureInput{Name: "sig", BindingIndex: bindingIndex, Resources: resources}
	}
	out, err := Assign([]SignatureInput{mkSig(0), mkSig(1)}, device.Direct3D12, device.StageAllGraphics|device.StageCompute, 0)
	require.NoError(t, err)
	require.Len(t, out, 6)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0, out[i].Space)
		assert.Equal(t, i, out[i].Register)
	}
	for i := 3; i < 6; i++ {
		assert.Equal(t, 1, out[i].Space)
		assert.Equal(t, i-3, out[i].Register)
	}
}

func TestInvalidSignatureLayout(t *testing.T) {
	sigs := []SignatureInput{
		{Name: "a", BindingIndex: 0},
		{Name: "b", BindingIndex: 2}, // gap at 1
	}
	_, err := Assign(sigs, device.Vulkan, device.StageAllGraphics, 0)
	assert.ErrorIs(t, err, ErrInvalidSignatureLayout)
}

func TestUnknownBackendReturnsEmptyList(t *testing.T) {
	sigs := []SignatureInput{{Name: "a", BindingIndex: 0, Resources: []ResourceInput{constRes("r", device.StageVertex)}}}
	out, err := Assign(sigs, device.Backend(99), device.StageAllGraphics, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBindingAssignmentIsDeterministic(t *testing.T) {
	sigs := []SignatureInput{
		{Name: "a", BindingIndex: 0, Resources: []ResourceInput{constRes("r0", device.StageVertex|device.StagePixel)}},
		{Name: "b", BindingIndex: 1, Resources: []ResourceInput{constRes("r1", device.StagePixel)}},
	}
	out1, err1 := Assign(sigs, device.Direct3D11, device.StageAllGraphics|device.StageCompute, 2)
	out2, err2 := Assign(sigs, device.Direct3D11, device.StageAllGraphics|device.StageCompute, 2)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, out1, out2)
}

// TestGLRangeCounterAdvancesOncePerSignature reproduces spec.md
// §4.5's GL rule ("same structure as D3D11"): base[range] advances
// once per signature, after every resource in it has been emitted,
// not once per resource. Two same-range resources in one signature
// must land at registers 0 and 1 (each using its own cacheOffset
// against the signature's shared base), and a second signature's
// first same-range resource must start where the first signature's
// shift left off.
func TestGLRangeCounterAdvancesOncePerSignature(t *testing.T) {
	a := SignatureInput{
		Name:         "A",
		BindingIndex: 0,
		Resources: []ResourceInput{
			{Desc: device.PipelineResourceDesc{Name: "r0", Type: device.ResTexture, ShaderStages: device.StagePixel}, Attrs: BackendAttrs{GLCacheOffset: 0}},
			{Desc: device.PipelineResourceDesc{Name: "r1", Type: device.ResTexture, ShaderStages: device.StagePixel}, Attrs: BackendAttrs{GLCacheOffset: 1}},
		},
	}
	b := SignatureInput{
		Name:         "B",
		BindingIndex: 1,
		Resources: []ResourceInput{
			{Desc: device.PipelineResourceDesc{Name: "r2", Type: device.ResTexture, ShaderStages: device.StagePixel}, Attrs: BackendAttrs{GLCacheOffset: 0}},
		},
	}
	out, err := Assign([]SignatureInput{a, b}, device.OpenGL, device.StageAllGraphics|device.StageCompute, 0)
	require.NoError(t, err)
	require.Len(t, out, 3)

	registers := []int{out[0].Register, out[1].Register, out[2].Register}
	assert.Equal(t, []int{0, 1, 2}, registers)
}

func TestRuntimeArrayReportsZeroSize(t *testing.T) {
	sig := SignatureInput{
		Name:         "a",
		BindingIndex: 0,
		Resources: []ResourceInput{
			{Desc: device.PipelineResourceDesc{
				Name: "bindless", Type: device.ResTexture, ShaderStages: device.StagePixel,
				ArraySize: 1000, Flags: device.FlagRuntimeArray,
			}},
		},
	}
	out, err := Assign([]SignatureInput{sig}, device.Direct3D11, device.StageAllGraphics|device.StageCompute, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].ArraySize)
}
