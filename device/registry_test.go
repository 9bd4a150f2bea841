// Copyright 2025 The psoarchive Authors. All rights reserved.

package device_test

import (
	"testing"

	"github.com/kestrelgfx/psoarchive/device"
)

type stubDevice struct{ backend device.Backend }

func (d *stubDevice) Backend() device.Backend { return d.backend }
func (d *stubDevice) CreateShader(*device.CreateShaderDesc) (device.ShaderCode, error) {
	return nil, nil
}
func (d *stubDevice) CreateRenderPass(*device.RenderPassDesc) (device.RenderPass, error) {
	return nil, nil
}
func (d *stubDevice) CreatePipelineResourceSignature(*device.PipelineResourceSignatureDesc, []device.PipelineResourceBinding) (device.PipelineResourceSignature, error) {
	return nil, nil
}
func (d *stubDevice) CreateGraphicsPipelineState(*device.GraphicsPipelineDesc) (device.Pipeline, error) {
	return nil, nil
}
func (d *stubDevice) CreateComputePipelineState(*device.ComputePipelineDesc) (device.Pipeline, error) {
	return nil, nil
}
func (d *stubDevice) CreateRayTracingPipelineState(*device.RayTracingPipelineDesc) (device.Pipeline, error) {
	return nil, nil
}
func (d *stubDevice) CreateTilePipelineState(*device.TilePipelineDesc) (device.Pipeline, error) {
	return nil, nil
}

func TestBitHasRoundTrip(t *testing.T) {
	m := device.Vulkan.Bit() | device.Direct3D12.Bit()
	if !m.Has(device.Vulkan) || !m.Has(device.Direct3D12) {
		t.Error("Bits.Has: expected bit not set")
	}
	if m.Has(device.OpenGL) || m.Has(device.MetalIOS) {
		t.Error("Bits.Has: unexpected bit set")
	}
}

func TestBackendStringAndValid(t *testing.T) {
	for b := device.OpenGL; int(b) < device.NumBackends; b++ {
		if !b.Valid() {
			t.Errorf("Backend(%d).Valid: want true", int(b))
		}
		if b.String() == "" {
			t.Errorf("Backend(%d).String: empty", int(b))
		}
	}
	if device.Backend(device.NumBackends).Valid() {
		t.Error("Backend.Valid: out-of-range backend reported valid")
	}
}

func TestRegisterAndOpen(t *testing.T) {
	want := &stubDevice{backend: device.Vulkan}
	device.Register(device.Vulkan, func() (device.Device, error) { return want, nil })

	if !device.Registered().Has(device.Vulkan) {
		t.Error("device.Registered: Vulkan not reported after Register")
	}

	got, err := device.Open(device.Vulkan)
	if err != nil {
		t.Fatalf("device.Open: unexpected error: %v", err)
	}
	if got != want {
		t.Error("device.Open: returned a different Device than the registered factory produced")
	}
}

func TestOpenUnregisteredBackendFails(t *testing.T) {
	// MetalIOS is never registered by this test file, so long as no
	// other test in this package registers it first.
	_, err := device.Open(device.MetalIOS)
	if err == nil {
		t.Error("device.Open: expected an error for an unregistered backend")
	}
}

func TestRegisterReplacesFactory(t *testing.T) {
	first := &stubDevice{backend: device.Direct3D11}
	second := &stubDevice{backend: device.Direct3D11}
	device.Register(device.Direct3D11, func() (device.Device, error) { return first, nil })
	device.Register(device.Direct3D11, func() (device.Device, error) { return second, nil })

	got, err := device.Open(device.Direct3D11)
	if err != nil {
		t.Fatalf("device.Open: unexpected error: %v", err)
	}
	if got != second {
		t.Error("device.Register: second registration did not replace the first factory")
	}
}
