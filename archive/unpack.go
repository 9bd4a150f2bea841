// Copyright 2025 The psoarchive Authors. All rights reserved.

package archive

import (
	"reflect"

	"github.com/kestrelgfx/psoarchive/device"
	"github.com/kestrelgfx/psoarchive/internal/alloc"
	"github.com/kestrelgfx/psoarchive/internal/diag"
	"github.com/kestrelgfx/psoarchive/internal/serial"
)

// Mutator callbacks let a caller observe and adjust a create-info
// struct between decode and device construction, at the cost of
// bypassing the constructed-object cache for that call (spec.md §4.6
// steps 1, 8). A non-nil mutator must not touch the fields a kind
// locks against modification; doing so fails IllegalModification.
type (
	SignatureMutator  func(*device.PipelineResourceSignatureDesc)
	RenderPassMutator func(*device.RenderPassDesc)
	GraphicsMutator   func(*device.GraphicsPipelineDesc)
	ComputeMutator    func(*device.ComputePipelineDesc)
	RayTracingMutator func(*device.RayTracingPipelineDesc)
	TileMutator       func(*device.TilePipelineDesc)
)

// readEntry loads the common bytes for name out of dir, validates
// its type tag against want, and returns the decoded common header
// plus a Decoder positioned at the start of the kind-specific tail
// (spec.md §4.6 steps 2-3). The bytes are allocated from arena, the
// linear allocator (component C2) that owns every transient buffer
// decoded for this one unpack call (spec.md §4.2).
func (ar *Archive) readEntry(dir *directory, op, name string, want ChunkType, arena *alloc.Arena) (*dirEntry, EntryHeader, *serial.Decoder, error) {
	entry, ok := dir.lookup(name)
	if !ok {
		return nil, EntryHeader{}, nil, newErr(CodeNotFound, op, name, nil)
	}
	body := arena.AllocBytes(int(entry.size))
	if err := ar.src.ReadAt(uint64(entry.offset), body); err != nil {
		return nil, EntryHeader{}, nil, newErr(CodeIoError, op, name, err)
	}
	d := serial.NewDecoder(body)
	hdr, err := decodeEntryHeader(d)
	if err != nil {
		return nil, EntryHeader{}, nil, wrapUnderflow(op, name, err)
	}
	if hdr.ChunkType != want {
		return nil, EntryHeader{}, nil, newErr(CodeTypeMismatch, op, name, nil)
	}
	return entry, hdr, d, nil
}

// readBackendBlock reads the per-backend bytes hdr locates for
// ar.backend (spec.md §4.6 step 5), out of arena.
func (ar *Archive) readBackendBlock(op, name string, hdr EntryHeader, arena *alloc.Arena) ([]byte, error) {
	size := hdr.GetSize(ar.backend)
	if size == 0 {
		return nil, newErr(CodeMissingBackendData, op, name, nil)
	}
	buf := arena.AllocBytes(int(size))
	off := uint64(ar.blockBase[ar.backend]) + uint64(hdr.GetOffset(ar.backend))
	if err := ar.src.ReadAt(off, buf); err != nil {
		return nil, newErr(CodeIoError, op, name, err)
	}
	return buf, nil
}

// UnpackResourceSignature resolves name into a constructed
// PipelineResourceSignature (spec.md §4.6, "follows the same pattern
// without shaders").
func (ar *Archive) UnpackResourceSignature(name string, mutate SignatureMutator) (obj device.PipelineResourceSignature, err error) {
	const op = "UnpackResourceSignature"
	defer func() {
		if err != nil {
			diag.EntryFailed(op, name, err)
		}
	}()

	entry, ok := ar.signatures.lookup(name)
	if !ok {
		return nil, newErr(CodeNotFound, op, name, nil)
	}
	if mutate == nil {
		entry.mu.Lock()
		cached, has := entry.cached.(device.PipelineResourceSignature)
		entry.mu.Unlock()
		if has {
			return cached, nil
		}
	}

	arena := alloc.New(0)
	_, hdr, d, err := ar.readEntry(ar.signatures, op, name, ChunkResourceSignature, arena)
	if err != nil {
		return nil, err
	}
	common, err := decodeSignatureCommon(d)
	if err != nil {
		return nil, wrapUnderflow(op, name, err)
	}

	blockBytes, err := ar.readBackendBlock(op, name, hdr, arena)
	if err != nil {
		return nil, err
	}
	bindings, err := decodeBindingsBlock(serial.NewDecoder(blockBytes))
	if err != nil {
		return nil, wrapUnderflow(op, name, err)
	}

	desc := device.PipelineResourceSignatureDesc{
		Name:              name,
		BindingIndex:      common.BindingIndex,
		Resources:         common.Resources,
		ImmutableSamplers: common.Samplers,
	}

	if mutate != nil {
		lockedName, lockedBindingIndex := desc.Name, desc.BindingIndex
		lockedResources := append([]device.PipelineResourceDesc(nil), desc.Resources...)
		mutate(&desc)
		if desc.Name != lockedName || desc.BindingIndex != lockedBindingIndex || !reflect.DeepEqual(desc.Resources, lockedResources) {
			return nil, newErr(CodeIllegalModification, op, name, nil)
		}
	}

	obj, err = ar.dev.CreatePipelineResourceSignature(&desc, bindings.Bindings)
	if err != nil {
		return nil, newErr(CodeDeviceConstructionFailed, op, name, err)
	}
	if mutate == nil {
		entry.mu.Lock()
		entry.cached = obj
		entry.mu.Unlock()
	}
	return obj, nil
}

// UnpackRenderPass resolves name into a constructed RenderPass.
func (ar *Archive) UnpackRenderPass(name string, mutate RenderPassMutator) (obj device.RenderPass, err error) {
	const op = "UnpackRenderPass"
	defer func() {
		if err != nil {
			diag.EntryFailed(op, name, err)
		}
	}()

	entry, ok := ar.renderPasses.lookup(name)
	if !ok {
		return nil, newErr(CodeNotFound, op, name, nil)
	}
	if mutate == nil {
		entry.mu.Lock()
		cached, has := entry.cached.(device.RenderPass)
		entry.mu.Unlock()
		if has {
			return cached, nil
		}
	}

	arena := alloc.New(0)
	_, _, d, err := ar.readEntry(ar.renderPasses, op, name, ChunkRenderPass, arena)
	if err != nil {
		return nil, err
	}
	common, err := decodeRenderPassCommon(d)
	if err != nil {
		return nil, wrapUnderflow(op, name, err)
	}

	desc := device.RenderPassDesc{Name: name, Attachments: common.Attachments, Subpasses: common.Subpasses}

	if mutate != nil {
		lockedName := desc.Name
		lockedSubpasses := append([]device.SubpassDesc(nil), desc.Subpasses...)
		mutate(&desc)
		if desc.Name != lockedName || !reflect.DeepEqual(desc.Subpasses, lockedSubpasses) {
			return nil, newErr(CodeIllegalModification, op, name, nil)
		}
	}

	obj, err = ar.dev.CreateRenderPass(&desc)
	if err != nil {
		return nil, newErr(CodeDeviceConstructionFailed, op, name, err)
	}
	if mutate == nil {
		entry.mu.Lock()
		entry.cached = obj
		entry.mu.Unlock()
	}
	return obj, nil
}

// resolveSignatures unpacks every named signature in order, failing
// on the first error (spec.md §4.6 step 4, §5 ordering: "signatures →
// render pass → shaders → pipeline").
func (ar *Archive) resolveSignatures(names []string) ([]device.PipelineResourceSignature, error) {
	out := make([]device.PipelineResourceSignature, len(names))
	for i, n := range names {
		sig, err := ar.UnpackResourceSignature(n, nil)
		if err != nil {
			return nil, err
		}
		out[i] = sig
	}
	return out, nil
}

// UnpackGraphicsPipelineState resolves name into a constructed
// graphics Pipeline.
func (ar *Archive) UnpackGraphicsPipelineState(name string, mutate GraphicsMutator) (obj device.Pipeline, err error) {
	const op = "UnpackGraphicsPipelineState"
	defer func() {
		if err != nil {
			diag.EntryFailed(op, name, err)
		}
	}()

	entry, ok := ar.graphics.lookup(name)
	if !ok {
		return nil, newErr(CodeNotFound, op, name, nil)
	}
	if mutate == nil {
		entry.mu.Lock()
		cached, has := entry.cached.(device.Pipeline)
		entry.mu.Unlock()
		if has {
			return cached, nil
		}
	}

	arena := alloc.New(0)
	_, hdr, d, err := ar.readEntry(ar.graphics, op, name, ChunkGraphicsPipelineStates, arena)
	if err != nil {
		return nil, err
	}
	common, err := decodeGraphicsCommon(d)
	if err != nil {
		return nil, wrapUnderflow(op, name, err)
	}

	sigs, err := ar.resolveSignatures(common.SignatureNames)
	if err != nil {
		return nil, err
	}
	rp, err := ar.UnpackRenderPass(common.RenderPassName, nil)
	if err != nil {
		return nil, err
	}

	blockBytes, err := ar.readBackendBlock(op, name, hdr, arena)
	if err != nil {
		return nil, err
	}
	shaderIdx, err := decodeGraphicsShaders(serial.NewDecoder(blockBytes))
	if err != nil {
		return nil, wrapUnderflow(op, name, err)
	}

	blockBase := uint64(ar.blockBase[ar.backend])
	vs, err := ar.shaders.resolve(shaderIdx.Vertex, ar.backend, blockBase, ar.src, ar.dev, device.StageVertex, arena)
	if err != nil {
		return nil, err
	}
	ps, err := ar.shaders.resolve(shaderIdx.Pixel, ar.backend, blockBase, ar.src, ar.dev, device.StagePixel, arena)
	if err != nil {
		return nil, err
	}
	gs, err := ar.shaders.resolve(shaderIdx.Geometry, ar.backend, blockBase, ar.src, ar.dev, device.StageGeometry, arena)
	if err != nil {
		return nil, err
	}
	hs, err := ar.shaders.resolve(shaderIdx.Hull, ar.backend, blockBase, ar.src, ar.dev, device.StageHull, arena)
	if err != nil {
		return nil, err
	}
	ds, err := ar.shaders.resolve(shaderIdx.Domain, ar.backend, blockBase, ar.src, ar.dev, device.StageDomain, arena)
	if err != nil {
		return nil, err
	}

	desc := device.GraphicsPipelineDesc{
		Name:             name,
		Signatures:       sigs,
		RenderPass:       rp,
		Subpass:          common.Subpass,
		VertexShader:     vs,
		PixelShader:      ps,
		GeometryShader:   gs,
		HullShader:       hs,
		DomainShader:     ds,
		NumRenderTargets: common.NumRenderTargets,
	}

	if mutate != nil {
		lockedSigs := append([]device.PipelineResourceSignature(nil), desc.Signatures...)
		mutate(&desc)
		if !reflect.DeepEqual(desc.Signatures, lockedSigs) {
			return nil, newErr(CodeIllegalModification, op, name, nil)
		}
	}

	obj, err = ar.dev.CreateGraphicsPipelineState(&desc)
	if err != nil {
		return nil, newErr(CodeDeviceConstructionFailed, op, name, err)
	}
	if mutate == nil {
		entry.mu.Lock()
		entry.cached = obj
		entry.mu.Unlock()
	}
	return obj, nil
}

// UnpackComputePipelineState resolves name into a constructed
// compute Pipeline.
func (ar *Archive) UnpackComputePipelineState(name string, mutate ComputeMutator) (obj device.Pipeline, err error) {
	const op = "UnpackComputePipelineState"
	defer func() {
		if err != nil {
			diag.EntryFailed(op, name, err)
		}
	}()

	entry, ok := ar.compute.lookup(name)
	if !ok {
		return nil, newErr(CodeNotFound, op, name, nil)
	}
	if mutate == nil {
		entry.mu.Lock()
		cached, has := entry.cached.(device.Pipeline)
		entry.mu.Unlock()
		if has {
			return cached, nil
		}
	}

	arena := alloc.New(0)
	_, hdr, d, err := ar.readEntry(ar.compute, op, name, ChunkComputePipelineStates, arena)
	if err != nil {
		return nil, err
	}
	common, err := decodeComputeCommon(d)
	if err != nil {
		return nil, wrapUnderflow(op, name, err)
	}
	sigs, err := ar.resolveSignatures(common.SignatureNames)
	if err != nil {
		return nil, err
	}

	blockBytes, err := ar.readBackendBlock(op, name, hdr, arena)
	if err != nil {
		return nil, err
	}
	idxDec := serial.NewDecoder(blockBytes)
	idx, err := idxDec.Uint32()
	if err != nil {
		return nil, wrapUnderflow(op, name, err)
	}
	shader, err := ar.shaders.resolve(idx, ar.backend, uint64(ar.blockBase[ar.backend]), ar.src, ar.dev, device.StageCompute, arena)
	if err != nil {
		return nil, err
	}

	desc := device.ComputePipelineDesc{Name: name, Signatures: sigs, ComputeShader: shader}

	if mutate != nil {
		lockedSigs := append([]device.PipelineResourceSignature(nil), desc.Signatures...)
		mutate(&desc)
		if !reflect.DeepEqual(desc.Signatures, lockedSigs) {
			return nil, newErr(CodeIllegalModification, op, name, nil)
		}
	}

	obj, err = ar.dev.CreateComputePipelineState(&desc)
	if err != nil {
		return nil, newErr(CodeDeviceConstructionFailed, op, name, err)
	}
	if mutate == nil {
		entry.mu.Lock()
		entry.cached = obj
		entry.mu.Unlock()
	}
	return obj, nil
}

// UnpackTilePipelineState resolves name into a constructed tile
// Pipeline. It follows UnpackComputePipelineState's shape (spec.md §3:
// tile PSOs carry a single programmable shader like compute does).
func (ar *Archive) UnpackTilePipelineState(name string, mutate TileMutator) (obj device.Pipeline, err error) {
	const op = "UnpackTilePipelineState"
	defer func() {
		if err != nil {
			diag.EntryFailed(op, name, err)
		}
	}()

	entry, ok := ar.tile.lookup(name)
	if !ok {
		return nil, newErr(CodeNotFound, op, name, nil)
	}
	if mutate == nil {
		entry.mu.Lock()
		cached, has := entry.cached.(device.Pipeline)
		entry.mu.Unlock()
		if has {
			return cached, nil
		}
	}

	arena := alloc.New(0)
	_, hdr, d, err := ar.readEntry(ar.tile, op, name, ChunkTilePipelineStates, arena)
	if err != nil {
		return nil, err
	}
	common, err := decodeTileCommon(d)
	if err != nil {
		return nil, wrapUnderflow(op, name, err)
	}
	sigs, err := ar.resolveSignatures(common.SignatureNames)
	if err != nil {
		return nil, err
	}

	blockBytes, err := ar.readBackendBlock(op, name, hdr, arena)
	if err != nil {
		return nil, err
	}
	idxDec := serial.NewDecoder(blockBytes)
	idx, err := idxDec.Uint32()
	if err != nil {
		return nil, wrapUnderflow(op, name, err)
	}
	shader, err := ar.shaders.resolve(idx, ar.backend, uint64(ar.blockBase[ar.backend]), ar.src, ar.dev, device.StageCompute, arena)
	if err != nil {
		return nil, err
	}

	desc := device.TilePipelineDesc{Name: name, Signatures: sigs, TileShader: shader}

	if mutate != nil {
		lockedSigs := append([]device.PipelineResourceSignature(nil), desc.Signatures...)
		mutate(&desc)
		if !reflect.DeepEqual(desc.Signatures, lockedSigs) {
			return nil, newErr(CodeIllegalModification, op, name, nil)
		}
	}

	obj, err = ar.dev.CreateTilePipelineState(&desc)
	if err != nil {
		return nil, newErr(CodeDeviceConstructionFailed, op, name, err)
	}
	if mutate == nil {
		entry.mu.Lock()
		entry.cached = obj
		entry.mu.Unlock()
	}
	return obj, nil
}

// UnpackRayTracingPipelineState resolves name into a constructed
// ray-tracing Pipeline, remapping each shader-group's integer indices
// to resolved shaders (spec.md §4.6 step 7, scenario S5).
func (ar *Archive) UnpackRayTracingPipelineState(name string, mutate RayTracingMutator) (obj device.Pipeline, err error) {
	const op = "UnpackRayTracingPipelineState"
	defer func() {
		if err != nil {
			diag.EntryFailed(op, name, err)
		}
	}()

	entry, ok := ar.rayTracing.lookup(name)
	if !ok {
		return nil, newErr(CodeNotFound, op, name, nil)
	}
	if mutate == nil {
		entry.mu.Lock()
		cached, has := entry.cached.(device.Pipeline)
		entry.mu.Unlock()
		if has {
			return cached, nil
		}
	}

	arena := alloc.New(0)
	_, hdr, d, err := ar.readEntry(ar.rayTracing, op, name, ChunkRayTracingPipelineStates, arena)
	if err != nil {
		return nil, err
	}
	common, err := decodeRayTracingCommon(d)
	if err != nil {
		return nil, wrapUnderflow(op, name, err)
	}
	sigs, err := ar.resolveSignatures(common.SignatureNames)
	if err != nil {
		return nil, err
	}

	blockBytes, err := ar.readBackendBlock(op, name, hdr, arena)
	if err != nil {
		return nil, err
	}
	idx, err := decodeRayTracingShaders(serial.NewDecoder(blockBytes))
	if err != nil {
		return nil, wrapUnderflow(op, name, err)
	}

	blockBase := uint64(ar.blockBase[ar.backend])
	generalGroups := make([]device.GeneralShaderGroup, len(idx.General))
	for i, si := range idx.General {
		shader, err := ar.shaders.resolve(si, ar.backend, blockBase, ar.src, ar.dev, device.StageRayGen, arena)
		if err != nil {
			return nil, err
		}
		generalGroups[i] = device.GeneralShaderGroup{Name: common.GeneralNames[i], Shader: shader}
	}
	triangleGroups := make([]device.TriangleHitShaderGroup, len(idx.Triangle))
	for i, pair := range idx.Triangle {
		ch, err := ar.shaders.resolve(pair[0], ar.backend, blockBase, ar.src, ar.dev, device.StageClosestHit, arena)
		if err != nil {
			return nil, err
		}
		ah, err := ar.shaders.resolve(pair[1], ar.backend, blockBase, ar.src, ar.dev, device.StageAnyHit, arena)
		if err != nil {
			return nil, err
		}
		triangleGroups[i] = device.TriangleHitShaderGroup{Name: common.TriangleNames[i], ClosestHit: ch, AnyHit: ah}
	}
	proceduralGroups := make([]device.ProceduralHitShaderGroup, len(idx.Procedural))
	for i, tri := range idx.Procedural {
		is, err := ar.shaders.resolve(tri[0], ar.backend, blockBase, ar.src, ar.dev, device.StageIntersection, arena)
		if err != nil {
			return nil, err
		}
		ch, err := ar.shaders.resolve(tri[1], ar.backend, blockBase, ar.src, ar.dev, device.StageClosestHit, arena)
		if err != nil {
			return nil, err
		}
		ah, err := ar.shaders.resolve(tri[2], ar.backend, blockBase, ar.src, ar.dev, device.StageAnyHit, arena)
		if err != nil {
			return nil, err
		}
		proceduralGroups[i] = device.ProceduralHitShaderGroup{Name: common.ProceduralNames[i], Intersection: is, ClosestHit: ch, AnyHit: ah}
	}

	desc := device.RayTracingPipelineDesc{
		Name:              name,
		Signatures:        sigs,
		GeneralGroups:     generalGroups,
		TriangleGroups:    triangleGroups,
		ProceduralGroups:  proceduralGroups,
		MaxRecursionDepth: common.MaxRecursionDepth,
	}

	if mutate != nil {
		lockedSigs := append([]device.PipelineResourceSignature(nil), desc.Signatures...)
		mutate(&desc)
		if !reflect.DeepEqual(desc.Signatures, lockedSigs) {
			return nil, newErr(CodeIllegalModification, op, name, nil)
		}
	}

	obj, err = ar.dev.CreateRayTracingPipelineState(&desc)
	if err != nil {
		return nil, newErr(CodeDeviceConstructionFailed, op, name, err)
	}
	if mutate == nil {
		entry.mu.Lock()
		entry.cached = obj
		entry.mu.Unlock()
	}
	return obj, nil
}
