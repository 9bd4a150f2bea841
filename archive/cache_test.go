// Copyright 2025 The psoarchive Authors. All rights reserved.

package archive_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelgfx/psoarchive/archive"
	"github.com/kestrelgfx/psoarchive/archivedevice"
	"github.com/kestrelgfx/psoarchive/device"
)

// buildSharedShaderArchive registers one compute shader and n distinct
// compute pipeline states that all reference it, so every unpack of a
// different PSO name still resolves the same shader-table index
// (spec.md §8 property 5, scenario S4).
func buildSharedShaderArchive(t *testing.T, n int) (raw []byte, bytecode string) {
	t.Helper()
	sd := archivedevice.New()
	bytecode = "COMPUTE_SPIRV"
	idx := sd.CreateShader("cs", device.StageCompute, map[device.Backend][]byte{device.Vulkan: []byte(bytecode)}, device.Vulkan.Bit())
	for i := 0; i < n; i++ {
		sd.CreateComputePipelineState(fmt.Sprintf("p%d", i), nil, idx)
	}
	out, err := sd.Build(device.Vulkan.Bit(), 0)
	require.NoError(t, err)
	return out, bytecode
}

// TestShaderCacheHitExactlyOnce reproduces spec.md scenario S4: two
// pipeline states referencing the same shader index only construct
// that shader once when unpacked sequentially.
func TestShaderCacheHitExactlyOnce(t *testing.T) {
	raw, bytecode := buildSharedShaderArchive(t, 2)
	dev := newFakeDevice(device.Vulkan)
	ar, err := archive.Open(&memSource{buf: raw}, device.Vulkan, dev)
	require.NoError(t, err)

	_, err = ar.UnpackComputePipelineState("p0", nil)
	require.NoError(t, err)
	_, err = ar.UnpackComputePipelineState("p1", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, dev.callsFor(bytecode))
}

// TestConcurrentUnpackCacheCoherence reproduces spec.md §8 property 5:
// under N concurrent unpacks of distinct PSOs sharing one shader
// index, CreateShader is invoked at least once and at most N times,
// and every unpack still succeeds.
func TestConcurrentUnpackCacheCoherence(t *testing.T) {
	const n = 16
	raw, bytecode := buildSharedShaderArchive(t, n)
	dev := newFakeDevice(device.Vulkan)
	ar, err := archive.Open(&memSource{buf: raw}, device.Vulkan, dev)
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("p%d", i)
		g.Go(func() error {
			_, err := ar.UnpackComputePipelineState(name, nil)
			return err
		})
	}
	require.NoError(t, g.Wait())

	calls := dev.callsFor(bytecode)
	assert.GreaterOrEqual(t, calls, 1)
	assert.LessOrEqual(t, calls, n)
}

// TestConcurrentUnpackSameEntryCoherence races N goroutines unpacking
// the exact same PSO name: every caller must observe a successful
// unpack, and the directory ends up holding exactly one winner (spec.md
// §5 "Concurrent unpacks of the same resource name race safely").
func TestConcurrentUnpackSameEntryCoherence(t *testing.T) {
	const n = 16
	raw, _ := buildSharedShaderArchive(t, 1)
	dev := newFakeDevice(device.Vulkan)
	ar, err := archive.Open(&memSource{buf: raw}, device.Vulkan, dev)
	require.NoError(t, err)

	results := make([]device.Pipeline, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			obj, err := ar.UnpackComputePipelineState("p0", nil)
			results[i] = obj
			return err
		})
	}
	require.NoError(t, g.Wait())

	// Each racer may have constructed its own object (spec.md §5: "each
	// may construct the device object; the loser's object becomes
	// garbage"), so results need not agree with one another. What must
	// hold is that every call succeeded and the directory now serves
	// some single cached object to later callers.
	winner, err := ar.UnpackComputePipelineState("p0", nil)
	require.NoError(t, err)
	assert.NotNil(t, winner)
	for _, r := range results {
		assert.NotNil(t, r)
	}
}
