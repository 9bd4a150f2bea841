// Copyright 2025 The psoarchive Authors. All rights reserved.

// Package archivedevice implements the write-side façade of the
// archive format: a serialization device that accepts shaders, render
// passes, pipeline resource signatures and pipeline-state descriptions
// and emits the single binary archive the archive package reads back
// (spec.md §4.8, component C8).
package archivedevice

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kestrelgfx/psoarchive/archive"
	"github.com/kestrelgfx/psoarchive/binding"
	"github.com/kestrelgfx/psoarchive/device"
)

// NoShader is the sentinel shader-table index meaning "no shader",
// reexported so callers assembling shader-group indices don't need to
// import the archive package directly.
const NoShader = archive.NoShader

// SignatureResourceInput is one resource declaration plus the raw,
// per-backend attributes the caller assigned it at authoring time
// (spec.md §3 "Per-backend attributes ... are stored in the backend
// block").
type SignatureResourceInput = binding.ResourceInput

// SignatureSamplerInput mirrors SignatureResourceInput for immutable
// samplers.
type SignatureSamplerInput = binding.SamplerInput

// SerializationDevice accumulates shaders, render passes, signatures
// and pipeline states, then emits them as one archive via Build.
// A SerializationDevice is not reusable across builds: construct a
// fresh one with New for each archive.
type SerializationDevice struct {
	mu sync.Mutex

	buildID string

	shaders      []shaderRecord
	signatures   []signatureRecord
	renderPasses []renderPassRecord
	graphics     []graphicsRecord
	compute      []computeRecord
	tile         []computeRecord // tile PSOs share compute's shape
	rayTracing   []rayTracingRecord

	bindingsBuf []device.PipelineResourceBinding
}

// New returns an empty SerializationDevice, stamped with a fresh build
// ID (SPEC_FULL.md §2: the debug-info chunk's third field, letting two
// archives built from identical inputs be told apart).
func New() *SerializationDevice {
	return &SerializationDevice{buildID: uuid.New().String()}
}

// GetValidDeviceBits reports which backends have a registered device
// Factory in this process, intersected with requested (spec.md §4.8
// "computed at build time from the set of compiled-in backends").
func GetValidDeviceBits(requested device.Bits) device.Bits {
	return device.Registered() & requested
}

type shaderRecord struct {
	name      string
	stage     device.Stage
	byBackend [device.NumBackends][]byte
}

// CreateShader registers a shader's per-backend bytecode, restricted
// to the backends set in deviceBits, and returns its shader-table
// index (spec.md §4.8 "CreateShader ... accepting a deviceBits mask
// restricting which backends will carry compiled data").
func (sd *SerializationDevice) CreateShader(name string, stage device.Stage, byBackend map[device.Backend][]byte, deviceBits device.Bits) uint32 {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	rec := shaderRecord{name: name, stage: stage}
	for b, code := range byBackend {
		if deviceBits.Has(b) {
			rec.byBackend[b] = code
		}
	}
	sd.shaders = append(sd.shaders, rec)
	return uint32(len(sd.shaders) - 1)
}

type renderPassRecord struct {
	name        string
	attachments []device.AttachmentDesc
	subpasses   []device.SubpassDesc
}

// CreateRenderPass registers a render pass declaration. Render passes
// carry no backend-specific compiled data; they exist purely to be
// referenced by name from a graphics pipeline state.
func (sd *SerializationDevice) CreateRenderPass(desc device.RenderPassDesc) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.renderPasses = append(sd.renderPasses, renderPassRecord{
		name: desc.Name, attachments: desc.Attachments, subpasses: desc.Subpasses,
	})
}

type signatureRecord struct {
	name                string
	bindingIndex        int
	resources           []SignatureResourceInput
	samplers            []SignatureSamplerInput
	vulkanStaticMutSize int
	vulkanDynamicSize   int
}

// CreatePipelineResourceSignature registers a resource signature's
// declaration. Bindings computation (component C5) happens for every
// registered signature together, at Build time, since D3D12 register-
// space offsets and Vulkan descriptor-set-layout counts accumulate
// across the whole ordered signature set (spec.md §4.5).
func (sd *SerializationDevice) CreatePipelineResourceSignature(
	name string,
	bindingIndex int,
	resources []SignatureResourceInput,
	samplers []SignatureSamplerInput,
	vulkanStaticMutSize, vulkanDynamicSize int,
) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.signatures = append(sd.signatures, signatureRecord{
		name: name, bindingIndex: bindingIndex,
		resources: resources, samplers: samplers,
		vulkanStaticMutSize: vulkanStaticMutSize, vulkanDynamicSize: vulkanDynamicSize,
	})
}

func (sd *SerializationDevice) signatureInputs() []binding.SignatureInput {
	out := make([]binding.SignatureInput, len(sd.signatures))
	for i, s := range sd.signatures {
		out[i] = binding.SignatureInput{
			Name: s.name, BindingIndex: s.bindingIndex,
			Resources: s.resources, Samplers: s.samplers,
			VulkanStaticMutSize: s.vulkanStaticMutSize, VulkanDynamicSize: s.vulkanDynamicSize,
		}
	}
	return out
}

// GetPipelineResourceBindings previews the binding assignment that
// Build will embed for backend, letting offline callers inspect
// layout before committing to an archive (spec.md §4.8). The returned
// slice aliases a buffer owned by this SerializationDevice; it is
// valid only until the next call to this method (spec.md §4.5
// "Lifetime").
func (sd *SerializationDevice) GetPipelineResourceBindings(backend device.Backend, stageMask device.Stage, numRenderTargets int) ([]device.PipelineResourceBinding, error) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	out, err := binding.Assign(sd.signatureInputs(), backend, stageMask, numRenderTargets)
	if err != nil {
		return nil, err
	}
	sd.bindingsBuf = out
	return sd.bindingsBuf, nil
}

type graphicsRecord struct {
	name             string
	signatureNames   []string
	renderPassName   string
	subpass          int
	numRenderTargets int
	shaderIdx        [5]uint32 // vertex, pixel, geometry, hull, domain
}

// CreateGraphicsPipelineState registers a graphics pipeline state.
// Shader indices are those returned by CreateShader, or NoShader for
// an absent optional stage.
func (sd *SerializationDevice) CreateGraphicsPipelineState(name string, signatureNames []string, renderPassName string, subpass, numRenderTargets int, vs, ps, gs, hs, ds uint32) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.graphics = append(sd.graphics, graphicsRecord{
		name: name, signatureNames: signatureNames, renderPassName: renderPassName,
		subpass: subpass, numRenderTargets: numRenderTargets,
		shaderIdx: [5]uint32{vs, ps, gs, hs, ds},
	})
}

type computeRecord struct {
	name           string
	signatureNames []string
	shaderIdx      uint32
}

// CreateComputePipelineState registers a compute pipeline state.
func (sd *SerializationDevice) CreateComputePipelineState(name string, signatureNames []string, shaderIdx uint32) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.compute = append(sd.compute, computeRecord{name: name, signatureNames: signatureNames, shaderIdx: shaderIdx})
}

// CreateTilePipelineState registers a tile (programmable-blending)
// pipeline state.
func (sd *SerializationDevice) CreateTilePipelineState(name string, signatureNames []string, shaderIdx uint32) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.tile = append(sd.tile, computeRecord{name: name, signatureNames: signatureNames, shaderIdx: shaderIdx})
}

// RayTracingGeneralGroup, RayTracingTriangleGroup and
// RayTracingProceduralGroup mirror device.GeneralShaderGroup,
// device.TriangleHitShaderGroup and device.ProceduralHitShaderGroup,
// but carry shader-table indices (returned by CreateShader) instead
// of already-resolved device.ShaderCode values.
type RayTracingGeneralGroup struct {
	Name   string
	Shader uint32
}

type RayTracingTriangleGroup struct {
	Name                string
	ClosestHit, AnyHit  uint32
}

type RayTracingProceduralGroup struct {
	Name                               string
	Intersection, ClosestHit, AnyHit  uint32
}

type rayTracingRecord struct {
	name              string
	signatureNames    []string
	maxRecursionDepth int
	general           []RayTracingGeneralGroup
	triangle          []RayTracingTriangleGroup
	procedural        []RayTracingProceduralGroup
}

// CreateRayTracingPipelineState registers a ray-tracing pipeline
// state. Each group's shader indices are those returned by
// CreateShader, or NoShader where a group leaves a slot unused.
func (sd *SerializationDevice) CreateRayTracingPipelineState(
	name string, signatureNames []string, maxRecursionDepth int,
	general []RayTracingGeneralGroup, triangle []RayTracingTriangleGroup, procedural []RayTracingProceduralGroup,
) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.rayTracing = append(sd.rayTracing, rayTracingRecord{
		name: name, signatureNames: signatureNames, maxRecursionDepth: maxRecursionDepth,
		general: general, triangle: triangle, procedural: procedural,
	})
}
