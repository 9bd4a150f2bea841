// Copyright 2025 The psoarchive Authors. All rights reserved.

package archive_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelgfx/psoarchive/archive"
	"github.com/kestrelgfx/psoarchive/archivedevice"
	"github.com/kestrelgfx/psoarchive/device"
)

// TestRayTracingShaderRemap reproduces spec.md scenario S5: a general-
// shader slot holding the NoShader sentinel resolves to a nil shader
// pointer after remap, while a non-sentinel index resolves to the
// corresponding loaded shader.
func TestRayTracingShaderRemap(t *testing.T) {
	sd := archivedevice.New()
	rayGenBytecode := "RAYGEN_SPIRV"
	rayGenIdx := sd.CreateShader("rayGen", device.StageRayGen, map[device.Backend][]byte{device.Vulkan: []byte(rayGenBytecode)}, device.Vulkan.Bit())

	sd.CreateRayTracingPipelineState("rt0", nil, 1,
		[]archivedevice.RayTracingGeneralGroup{
			{Name: "miss", Shader: archivedevice.NoShader},
			{Name: "rayGen", Shader: rayGenIdx},
		},
		nil, nil,
	)

	raw, err := sd.Build(device.Vulkan.Bit(), 0)
	require.NoError(t, err)

	dev := newFakeDevice(device.Vulkan)
	ar, err := archive.Open(&memSource{buf: raw}, device.Vulkan, dev)
	require.NoError(t, err)

	_, err = ar.UnpackRayTracingPipelineState("rt0", nil)
	require.NoError(t, err)

	got := dev.lastRayTracingDesc()
	require.NotNil(t, got)
	require.Len(t, got.GeneralGroups, 2)
	assert.Nil(t, got.GeneralGroups[0].Shader, "sentinel index must resolve to a nil shader")
	require.NotNil(t, got.GeneralGroups[1].Shader)
	assert.Equal(t, 1, dev.callsFor(rayGenBytecode))
}

// TestRayTracingOutOfRangeIndexErrors documents the design decision at
// spec.md §9 ("Open question"): an out-of-range, non-sentinel shader
// index is treated as an error rather than silently nulled.
func TestRayTracingOutOfRangeIndexErrors(t *testing.T) {
	sd := archivedevice.New()
	sd.CreateRayTracingPipelineState("rt0", nil, 1,
		[]archivedevice.RayTracingGeneralGroup{{Name: "miss", Shader: 99}},
		nil, nil,
	)
	raw, err := sd.Build(device.Vulkan.Bit(), 0)
	require.NoError(t, err)

	ar, err := archive.Open(&memSource{buf: raw}, device.Vulkan, newFakeDevice(device.Vulkan))
	require.NoError(t, err)

	_, err = ar.UnpackRayTracingPipelineState("rt0", nil)
	assert.True(t, errors.Is(err, archive.ErrDecodeUnderflow))
}
