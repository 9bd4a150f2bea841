// Copyright 2025 The psoarchive Authors. All rights reserved.

package archive_test

// Helpers for testing.

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kestrelgfx/psoarchive/device"
)

// memSource is an in-memory device.ByteSource backing an archive built
// entirely in a test, standing in for the random-access file the real
// reader would be pointed at (spec.md §6 "Byte-source interface
// required by the reader").
type memSource struct {
	buf []byte
}

func (m *memSource) Size() uint64 { return uint64(len(m.buf)) }

func (m *memSource) ReadAt(offset uint64, dest []byte) error {
	if offset+uint64(len(dest)) > uint64(len(m.buf)) {
		return fmt.Errorf("memSource: read past end")
	}
	copy(dest, m.buf[offset:])
	return nil
}

// fakeShader is the device.ShaderCode a fakeDevice hands back. bytecode
// is retained so tests can assert which bytes a given shader object was
// constructed from.
type fakeShader struct {
	bytecode string
}

func (*fakeShader) Destroy() {}

type fakeObj struct{ name string }

func (*fakeObj) Destroy() {}

// fakeDevice is a minimal device.Device that counts CreateShader calls
// per distinct bytecode string, the way spec.md §8 property 5 requires
// a test to observe ("the device's CreateShader is invoked at least
// once and at most N times").
type fakeDevice struct {
	backend device.Backend

	mu          sync.Mutex
	shaderCalls map[string]int

	failShader bool

	bindingsSeen atomic.Int64

	rtMu   sync.Mutex
	lastRT *device.RayTracingPipelineDesc
}

func newFakeDevice(backend device.Backend) *fakeDevice {
	return &fakeDevice{backend: backend, shaderCalls: make(map[string]int)}
}

func (d *fakeDevice) Backend() device.Backend { return d.backend }

func (d *fakeDevice) CreateShader(ci *device.CreateShaderDesc) (device.ShaderCode, error) {
	if d.failShader {
		return nil, fmt.Errorf("fakeDevice: CreateShader forced failure")
	}
	key := string(ci.ByteCode)
	d.mu.Lock()
	d.shaderCalls[key]++
	d.mu.Unlock()
	return &fakeShader{bytecode: key}, nil
}

func (d *fakeDevice) callsFor(bytecode string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shaderCalls[bytecode]
}

func (d *fakeDevice) CreateRenderPass(desc *device.RenderPassDesc) (device.RenderPass, error) {
	return &fakeObj{name: desc.Name}, nil
}

func (d *fakeDevice) CreatePipelineResourceSignature(desc *device.PipelineResourceSignatureDesc, bindings []device.PipelineResourceBinding) (device.PipelineResourceSignature, error) {
	d.bindingsSeen.Add(int64(len(bindings)))
	return &fakeObj{name: desc.Name}, nil
}

func (d *fakeDevice) CreateGraphicsPipelineState(ci *device.GraphicsPipelineDesc) (device.Pipeline, error) {
	return &fakeObj{name: ci.Name}, nil
}

func (d *fakeDevice) CreateComputePipelineState(ci *device.ComputePipelineDesc) (device.Pipeline, error) {
	return &fakeObj{name: ci.Name}, nil
}

func (d *fakeDevice) CreateRayTracingPipelineState(ci *device.RayTracingPipelineDesc) (device.Pipeline, error) {
	d.rtMu.Lock()
	d.lastRT = ci
	d.rtMu.Unlock()
	return &fakeObj{name: ci.Name}, nil
}

func (d *fakeDevice) lastRayTracingDesc() *device.RayTracingPipelineDesc {
	d.rtMu.Lock()
	defer d.rtMu.Unlock()
	return d.lastRT
}

func (d *fakeDevice) CreateTilePipelineState(ci *device.TilePipelineDesc) (device.Pipeline, error) {
	return &fakeObj{name: ci.Name}, nil
}
