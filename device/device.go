// Copyright 2025 The psoarchive Authors. All rights reserved.

package device

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface may allocate external memory
// that is not managed by GC, so Destroy must be called explicitly.
type Destroyer interface {
	Destroy()
}

// ShaderCode is the interface that defines a compiled shader binary
// for execution in a programmable pipeline stage. The archive reader
// obtains one per distinct shader-table entry (spec.md §4.7).
type ShaderCode interface {
	Destroyer
}

// RenderPass is the interface that defines a render pass created from
// a RenderPassDesc. Graphics PSOs are scoped to exactly one subpass of
// one render pass (spec.md §3 "Pipeline state entry").
type RenderPass interface {
	Destroyer
}

// PipelineResourceSignature is the interface that defines a reusable
// declaration of shader-visible resource slots (spec.md glossary
// "PRS / signature"), already carrying the per-backend bindings
// computed by the binding package.
type PipelineResourceSignature interface {
	Destroyer
}

// Pipeline is the interface that defines a GPU pipeline object,
// constructed from a GraphicsPipelineDesc, ComputePipelineDesc,
// RayTracingPipelineDesc or TilePipelineDesc.
type Pipeline interface {
	Destroyer
}

// Stage is a mask of programmable shader stages. Multiple stages
// combine with bitwise OR, matching the ShaderStages field carried by
// resource descriptors (spec.md §3 "Resource signature descriptor").
type Stage int

// Shader stages. RayGen through Callable only apply to ray-tracing
// pipelines; the rest apply to graphics or compute pipelines.
const (
	StageVertex Stage = 1 << iota
	StagePixel
	StageGeometry
	StageHull
	StageDomain
	StageCompute
	StageRayGen
	StageMiss
	StageClosestHit
	StageAnyHit
	StageIntersection
	StageCallable

	StageAllGraphics = StageVertex | StagePixel | StageGeometry | StageHull | StageDomain
)

// ResourceType is the type of a shader-visible resource slot.
type ResourceType int

// Resource types a signature entry may declare.
const (
	ResConstantBuffer ResourceType = iota
	ResTexture
	ResRWTexture
	ResBuffer
	ResRWBuffer
	ResSampler
	ResInputAttachment
	ResAccelStruct
)

// ResourceFlags modifies how a resource's binding is computed or
// validated.
type ResourceFlags int

const (
	// FlagNone is the zero value.
	FlagNone ResourceFlags = 0
	// FlagRuntimeArray marks a resource with a shader-indexed array
	// size unknown until runtime; binding assignment reports
	// arraySize as 0 for such resources (spec.md §4.5).
	FlagRuntimeArray ResourceFlags = 1 << iota
	// FlagCombinedSampler marks a texture resource that carries its
	// own immutable sampler rather than using a separate binding.
	FlagCombinedSampler
)

// ImmutableSampler describes a sampler baked into a signature
// (spec.md glossary "Immutable sampler"). It is emitted as a
// separate binding during binding assignment.
type ImmutableSampler struct {
	Name        string
	ShaderStages Stage
}

// CreateShaderDesc is the common creation struct passed to
// Device.CreateShader. ByteCode is backend-specific compiled output;
// this module never interprets it.
type CreateShaderDesc struct {
	Name     string
	Stage    Stage
	ByteCode []byte
	EntryPoint string
}

// AttachmentDesc describes one render-target attachment of a render
// pass.
type AttachmentDesc struct {
	Format  int
	Samples int
}

// SubpassDesc describes one subpass of a render pass, referencing
// attachments by index.
type SubpassDesc struct {
	Color []int
	DS    int
}

// RenderPassDesc is the common creation struct for Device.CreateRenderPass.
type RenderPassDesc struct {
	Name        string
	Attachments []AttachmentDesc
	Subpasses   []SubpassDesc
}

// PipelineResourceDesc declares one shader-visible resource slot
// within a signature (spec.md §3 "Resource signature descriptor").
type PipelineResourceDesc struct {
	Name         string
	Type         ResourceType
	ShaderStages Stage
	ArraySize    int
	Flags        ResourceFlags
}

// PipelineResourceSignatureDesc is the common creation struct for
// Device.CreatePipelineResourceSignature. BindingIndex is this
// signature's position within an ordered signature set (spec.md
// glossary "Binding index").
type PipelineResourceSignatureDesc struct {
	Name          string
	BindingIndex  int
	Resources     []PipelineResourceDesc
	ImmutableSamplers []ImmutableSampler
}

// GraphicsPipelineDesc is the common creation struct for
// Device.CreateGraphicsPipelineState.
type GraphicsPipelineDesc struct {
	Name           string
	Signatures     []PipelineResourceSignature
	RenderPass     RenderPass
	Subpass        int
	VertexShader   ShaderCode
	PixelShader    ShaderCode
	GeometryShader ShaderCode
	HullShader     ShaderCode
	DomainShader   ShaderCode
	NumRenderTargets int
}

// ComputePipelineDesc is the common creation struct for
// Device.CreateComputePipelineState.
type ComputePipelineDesc struct {
	Name         string
	Signatures   []PipelineResourceSignature
	ComputeShader ShaderCode
}

// GeneralShaderGroup, TriangleHitShaderGroup and ProceduralHitShaderGroup
// mirror the three shader-group kinds a ray-tracing PSO may declare
// (spec.md §3 "shader-group descriptors").
type GeneralShaderGroup struct {
	Name   string
	Shader ShaderCode
}

type TriangleHitShaderGroup struct {
	Name         string
	ClosestHit   ShaderCode
	AnyHit       ShaderCode
}

type ProceduralHitShaderGroup struct {
	Name         string
	Intersection ShaderCode
	ClosestHit   ShaderCode
	AnyHit       ShaderCode
}

// RayTracingPipelineDesc is the common creation struct for
// Device.CreateRayTracingPipelineState.
type RayTracingPipelineDesc struct {
	Name             string
	Signatures       []PipelineResourceSignature
	GeneralGroups    []GeneralShaderGroup
	TriangleGroups   []TriangleHitShaderGroup
	ProceduralGroups []ProceduralHitShaderGroup
	MaxRecursionDepth int
}

// TilePipelineDesc is the common creation struct for
// Device.CreateTilePipelineState.
type TilePipelineDesc struct {
	Name       string
	Signatures []PipelineResourceSignature
	TileShader ShaderCode
}

// Device is the thin contract required of a concrete rendering
// backend (spec.md §6 "Device interface required by the unpacker").
// It is polymorphic over backend: every method constructs a live
// object for whichever backend the Device value was obtained for.
type Device interface {
	Backend() Backend

	CreateShader(ci *CreateShaderDesc) (ShaderCode, error)
	CreateRenderPass(desc *RenderPassDesc) (RenderPass, error)
	CreatePipelineResourceSignature(desc *PipelineResourceSignatureDesc, bindings []PipelineResourceBinding) (PipelineResourceSignature, error)
	CreateGraphicsPipelineState(ci *GraphicsPipelineDesc) (Pipeline, error)
	CreateComputePipelineState(ci *ComputePipelineDesc) (Pipeline, error)
	CreateRayTracingPipelineState(ci *RayTracingPipelineDesc) (Pipeline, error)
	CreateTilePipelineState(ci *TilePipelineDesc) (Pipeline, error)
}

// PipelineResourceBinding is the output of binding assignment
// (spec.md §4.5): the concrete register/space/binding triple computed
// for one resource of one signature, for one backend.
type PipelineResourceBinding struct {
	Name         string
	ResourceType ResourceType
	Register     int
	Space        int
	ArraySize    int
	ShaderStages Stage
}

// ByteSource is the interface required of the random-access byte
// source backing an archive (spec.md §6 "Byte-source interface
// required by the reader").
type ByteSource interface {
	// Size returns the total number of bytes available.
	Size() uint64
	// ReadAt reads exactly len(dest) bytes starting at offset into
	// dest. It is safe to call concurrently from multiple goroutines.
	ReadAt(offset uint64, dest []byte) error
}
