// Copyright 2025 The psoarchive Authors. All rights reserved.

package archivedevice

import (
	"github.com/kestrelgfx/psoarchive/archive"
	"github.com/kestrelgfx/psoarchive/binding"
	"github.com/kestrelgfx/psoarchive/device"
	"github.com/kestrelgfx/psoarchive/internal/serial"
)

// fullStageMask covers every programmable graphics and compute stage,
// the stage set a written archive's binding assignment is computed
// against (individual pipeline states may use only a subset).
const fullStageMask = device.StageVertex | device.StagePixel | device.StageGeometry |
	device.StageHull | device.StageDomain | device.StageCompute

// resourceDescsOf strips the per-backend attributes the binding
// package needs at Build time, leaving the backend-independent
// device.PipelineResourceDesc list a signature's common tail encodes.
func resourceDescsOf(in []SignatureResourceInput) []device.PipelineResourceDesc {
	out := make([]device.PipelineResourceDesc, len(in))
	for i, r := range in {
		out[i] = r.Desc
	}
	return out
}

// samplerDescsOf is resourceDescsOf's counterpart for immutable
// samplers.
func samplerDescsOf(in []SignatureSamplerInput) []device.ImmutableSampler {
	out := make([]device.ImmutableSampler, len(in))
	for i, s := range in {
		out[i] = s.Sampler
	}
	return out
}

// bindingsPerSignature computes binding assignment (component C5) for
// every registered signature against backend, then splits the flat
// result back into one slice per signature, indexed by that
// signature's position in sd.signatures (not by bindingIndex).
func (sd *SerializationDevice) bindingsPerSignature(backend device.Backend, stageMask device.Stage, numRenderTargets int) ([][]device.PipelineResourceBinding, error) {
	inputs := sd.signatureInputs()
	flat, err := binding.Assign(inputs, backend, stageMask, numRenderTargets)
	if err != nil {
		return nil, err
	}
	n := len(sd.signatures)
	byBindingIndex := make([]int, n)
	for origIdx, s := range sd.signatures {
		byBindingIndex[s.bindingIndex] = origIdx
	}
	out := make([][]device.PipelineResourceBinding, n)
	prefix := make([]binding.SignatureInput, 0, n)
	pos := 0
	for bi := 0; bi < n; bi++ {
		origIdx := byBindingIndex[bi]
		// A signature's bindings never depend on later signatures, so
		// assigning the first bi+1 signatures alone ends exactly where
		// this one's bindings end in flat (a resource may yield one
		// binding per active stage, or none outside the stage mask).
		prefix = append(prefix, inputs[origIdx])
		part, err := binding.Assign(prefix, backend, stageMask, numRenderTargets)
		if err != nil {
			return nil, err
		}
		out[origIdx] = flat[pos:len(part)]
		pos = len(part)
	}
	return out, nil
}

// commonLoc records where one entry landed within the common region,
// relative to that region's own start. Directory entries need an
// offset relative to the whole file, which is only known once the
// common region's absolute start (commonRegionStart) has been
// computed — see buildDirectory below.
type commonLoc struct {
	name   string
	relOff uint32
	size   uint32
}

// buildDirectory turns a slice of commonLoc into the archive.DirEntry
// list a directory chunk body encodes, adding base to every relative
// offset to make it absolute (spec.md §3 "Named-resource directory":
// offsets point into the common region).
func buildDirectory(locs []commonLoc, base uint32) []archive.DirEntry {
	out := make([]archive.DirEntry, len(locs))
	for i, l := range locs {
		out[i] = archive.NewDirEntry(l.name, base+l.relOff, l.size)
	}
	return out
}

// Build assembles every registered shader, render pass, signature and
// pipeline state into one archive, computing binding assignment once
// per backend in backends and restricting compiled data to that set
// (spec.md §4.3 "Archive construction", §4.8).
func (sd *SerializationDevice) Build(backends device.Bits, numRenderTargets int) ([]byte, error) {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	var active []device.Backend
	for b := device.Backend(0); int(b) < device.NumBackends; b++ {
		if backends.Has(b) {
			active = append(active, b)
		}
	}

	bindingsByBackend := make(map[device.Backend][][]device.PipelineResourceBinding, len(active))
	for _, b := range active {
		bb, err := sd.bindingsPerSignature(b, fullStageMask, numRenderTargets)
		if err != nil {
			return nil, err
		}
		bindingsByBackend[b] = bb
	}

	shaderHeaders := make([]archive.EntryHeader, len(sd.shaders))
	sigHeaders := make([]archive.EntryHeader, len(sd.signatures))
	graphicsHeaders := make([]archive.EntryHeader, len(sd.graphics))
	computeHeaders := make([]archive.EntryHeader, len(sd.compute))
	tileHeaders := make([]archive.EntryHeader, len(sd.tile))
	rtHeaders := make([]archive.EntryHeader, len(sd.rayTracing))

	backendBlocks := make(map[device.Backend]*serial.Encoder, len(active))
	for _, b := range active {
		backendBlocks[b] = serial.NewEncoder()
	}

	// place appends data to backend b's running block and returns the
	// (offset, size) pair relative to that block's own start.
	place := func(b device.Backend, data []byte) (offset, size uint32) {
		enc := backendBlocks[b]
		offset = uint32(enc.Len())
		enc.Raw(data)
		return offset, uint32(len(data))
	}

	for _, b := range active {
		for i, sh := range sd.shaders {
			off, size := place(b, sh.byBackend[b])
			shaderHeaders[i].ChunkType = archive.ChunkShaders
			shaderHeaders[i].Offsets[b] = off
			shaderHeaders[i].Sizes[b] = size
		}
		for i := range sd.signatures {
			e := serial.NewEncoder()
			archive.EncodeBindingsBlock(e, archive.BindingsBlock{Bindings: bindingsByBackend[b][i]})
			off, size := place(b, e.Bytes())
			sigHeaders[i].ChunkType = archive.ChunkResourceSignature
			sigHeaders[i].Offsets[b] = off
			sigHeaders[i].Sizes[b] = size
		}
		for i, g := range sd.graphics {
			e := serial.NewEncoder()
			archive.EncodeGraphicsShaders(e, archive.GraphicsShaders{
				Vertex: g.shaderIdx[0], Pixel: g.shaderIdx[1], Geometry: g.shaderIdx[2],
				Hull: g.shaderIdx[3], Domain: g.shaderIdx[4],
			})
			off, size := place(b, e.Bytes())
			graphicsHeaders[i].ChunkType = archive.ChunkGraphicsPipelineStates
			graphicsHeaders[i].Offsets[b] = off
			graphicsHeaders[i].Sizes[b] = size
		}
		for i, c := range sd.compute {
			e := serial.NewEncoder()
			e.Uint32(c.shaderIdx)
			off, size := place(b, e.Bytes())
			computeHeaders[i].ChunkType = archive.ChunkComputePipelineStates
			computeHeaders[i].Offsets[b] = off
			computeHeaders[i].Sizes[b] = size
		}
		for i, t := range sd.tile {
			e := serial.NewEncoder()
			e.Uint32(t.shaderIdx)
			off, size := place(b, e.Bytes())
			tileHeaders[i].ChunkType = archive.ChunkTilePipelineStates
			tileHeaders[i].Offsets[b] = off
			tileHeaders[i].Sizes[b] = size
		}
		for i, r := range sd.rayTracing {
			e := serial.NewEncoder()
			shaders := archive.RayTracingShaders{
				General:    make([]uint32, len(r.general)),
				Triangle:   make([][2]uint32, len(r.triangle)),
				Procedural: make([][3]uint32, len(r.procedural)),
			}
			for j, g := range r.general {
				shaders.General[j] = g.Shader
			}
			for j, t := range r.triangle {
				shaders.Triangle[j] = [2]uint32{t.ClosestHit, t.AnyHit}
			}
			for j, p := range r.procedural {
				shaders.Procedural[j] = [3]uint32{p.Intersection, p.ClosestHit, p.AnyHit}
			}
			archive.EncodeRayTracingShaders(e, shaders)
			off, size := place(b, e.Bytes())
			rtHeaders[i].ChunkType = archive.ChunkRayTracingPipelineStates
			rtHeaders[i].Offsets[b] = off
			rtHeaders[i].Sizes[b] = size
		}
	}

	// Common region: one entry per signature/render-pass/PSO, each a
	// per-backend EntryHeader followed by its backend-independent tail.
	// Offsets are tracked relative to the region's own start for now;
	// buildDirectory below adds the region's absolute start once it is
	// known.
	common := serial.NewEncoder()
	sigLocs := make([]commonLoc, len(sd.signatures))
	for i, s := range sd.signatures {
		off := uint32(common.Len())
		archive.EncodeEntryHeader(sigHeaders[i], common)
		archive.EncodeSignatureCommon(common, archive.SignatureCommon{
			BindingIndex: s.bindingIndex,
			Resources:    resourceDescsOf(s.resources),
			Samplers:     samplerDescsOf(s.samplers),
		})
		sigLocs[i] = commonLoc{name: s.name, relOff: off, size: uint32(common.Len()) - off}
	}
	rpLocs := make([]commonLoc, len(sd.renderPasses))
	for i, rp := range sd.renderPasses {
		off := uint32(common.Len())
		hdr := archive.EntryHeader{ChunkType: archive.ChunkRenderPass}
		archive.EncodeEntryHeader(hdr, common)
		archive.EncodeRenderPassCommon(common, archive.RenderPassCommon{Attachments: rp.attachments, Subpasses: rp.subpasses})
		rpLocs[i] = commonLoc{name: rp.name, relOff: off, size: uint32(common.Len()) - off}
	}
	graphicsLocs := make([]commonLoc, len(sd.graphics))
	for i, g := range sd.graphics {
		off := uint32(common.Len())
		archive.EncodeEntryHeader(graphicsHeaders[i], common)
		archive.EncodeGraphicsCommon(common, archive.GraphicsCommon{
			SignatureNames: g.signatureNames, RenderPassName: g.renderPassName,
			Subpass: g.subpass, NumRenderTargets: g.numRenderTargets,
		})
		graphicsLocs[i] = commonLoc{name: g.name, relOff: off, size: uint32(common.Len()) - off}
	}
	computeLocs := make([]commonLoc, len(sd.compute))
	for i, c := range sd.compute {
		off := uint32(common.Len())
		archive.EncodeEntryHeader(computeHeaders[i], common)
		archive.EncodeComputeCommon(common, archive.ComputeCommon{SignatureNames: c.signatureNames})
		computeLocs[i] = commonLoc{name: c.name, relOff: off, size: uint32(common.Len()) - off}
	}
	tileLocs := make([]commonLoc, len(sd.tile))
	for i, t := range sd.tile {
		off := uint32(common.Len())
		archive.EncodeEntryHeader(tileHeaders[i], common)
		archive.EncodeTileCommon(common, archive.TileCommon{SignatureNames: t.signatureNames})
		tileLocs[i] = commonLoc{name: t.name, relOff: off, size: uint32(common.Len()) - off}
	}
	rtLocs := make([]commonLoc, len(sd.rayTracing))
	for i, r := range sd.rayTracing {
		off := uint32(common.Len())
		archive.EncodeEntryHeader(rtHeaders[i], common)
		generalNames := make([]string, len(r.general))
		for j, g := range r.general {
			generalNames[j] = g.Name
		}
		triangleNames := make([]string, len(r.triangle))
		for j, t := range r.triangle {
			triangleNames[j] = t.Name
		}
		proceduralNames := make([]string, len(r.procedural))
		for j, p := range r.procedural {
			proceduralNames[j] = p.Name
		}
		archive.EncodeRayTracingCommon(common, archive.RayTracingCommon{
			SignatureNames: r.signatureNames, MaxRecursionDepth: r.maxRecursionDepth,
			GeneralNames: generalNames, TriangleNames: triangleNames, ProceduralNames: proceduralNames,
		})
		rtLocs[i] = commonLoc{name: r.name, relOff: off, size: uint32(common.Len()) - off}
	}

	// debugBody and shaderBody carry no offsets into the common region,
	// so they can be encoded once, independent of commonRegionStart.
	debugBody := serial.NewEncoder()
	archive.EncodeDebugInfo(debugBody, archive.DebugInfo{APIVersion: archive.APIVersion, Commit: archive.SourceCommit, BuildID: sd.buildID})

	shaderBody := serial.NewEncoder()
	archive.EncodeShaderTable(shaderBody, shaderHeaders)

	// Directory chunk bodies are fixed-width per entry regardless of
	// the offset value they carry (a u32 either way), so encoding them
	// now with a base of 0 yields the correct byte length; once
	// commonRegionStart is known from that length, they are re-encoded
	// with the true absolute offsets.
	encodeDirs := func(base uint32) (sigBody, graphicsBody, computeBody, rtBody, tileBody, rpBody *serial.Encoder) {
		sigBody = serial.NewEncoder()
		archive.EncodeDirectory(sigBody, buildDirectory(sigLocs, base))
		graphicsBody = serial.NewEncoder()
		archive.EncodeDirectory(graphicsBody, buildDirectory(graphicsLocs, base))
		computeBody = serial.NewEncoder()
		archive.EncodeDirectory(computeBody, buildDirectory(computeLocs, base))
		rtBody = serial.NewEncoder()
		archive.EncodeDirectory(rtBody, buildDirectory(rtLocs, base))
		tileBody = serial.NewEncoder()
		archive.EncodeDirectory(tileBody, buildDirectory(tileLocs, base))
		rpBody = serial.NewEncoder()
		archive.EncodeDirectory(rpBody, buildDirectory(rpLocs, base))
		return
	}

	sigBody, graphicsBody, computeBody, rtBody, tileBody, rpBody := encodeDirs(0)

	chunkBodies := [archive.NumChunkTypes][]byte{
		debugBody.Bytes(), sigBody.Bytes(), graphicsBody.Bytes(), computeBody.Bytes(),
		rtBody.Bytes(), tileBody.Bytes(), rpBody.Bytes(), shaderBody.Bytes(),
	}
	chunkTypes := [archive.NumChunkTypes]archive.ChunkType{
		archive.ChunkArchiveDebugInfo, archive.ChunkResourceSignature, archive.ChunkGraphicsPipelineStates,
		archive.ChunkComputePipelineStates, archive.ChunkRayTracingPipelineStates, archive.ChunkTilePipelineStates,
		archive.ChunkRenderPass, archive.ChunkShaders,
	}

	// Measure fixed-size prefixes using the real encoders so this file
	// never hard-codes a byte count that could drift from format.go.
	probeHeader := serial.NewMeasurer()
	archive.EncodeHeader(archive.Header{}, probeHeader)
	headerSize := probeHeader.Len()

	probeChunkHeader := serial.NewMeasurer()
	archive.EncodeChunkHeader(archive.ChunkHeader{}, probeChunkHeader)
	chunkTableSize := probeChunkHeader.Len() * archive.NumChunkTypes

	cursor := headerSize + chunkTableSize
	chunkHeaders := make([]archive.ChunkHeader, archive.NumChunkTypes)
	for i, body := range chunkBodies {
		chunkHeaders[i] = archive.ChunkHeader{Type: chunkTypes[i], Offset: uint32(cursor), Size: uint32(len(body))}
		cursor += len(body)
	}

	// Now that commonRegionStart is known, redo the directory chunk
	// bodies with absolute offsets. Their sizes are unchanged (fixed-
	// width fields), so none of the already-computed chunk headers or
	// cursor positions need to shift.
	commonRegionStart := uint32(cursor)
	sigBody, graphicsBody, computeBody, rtBody, tileBody, rpBody = encodeDirs(commonRegionStart)
	chunkBodies = [archive.NumChunkTypes][]byte{
		debugBody.Bytes(), sigBody.Bytes(), graphicsBody.Bytes(), computeBody.Bytes(),
		rtBody.Bytes(), tileBody.Bytes(), rpBody.Bytes(), shaderBody.Bytes(),
	}
	cursor = headerSize + chunkTableSize
	for i, body := range chunkBodies {
		if uint32(cursor) != chunkHeaders[i].Offset || uint32(len(body)) != chunkHeaders[i].Size {
			panic("archivedevice: directory re-encode changed chunk body size")
		}
		cursor += len(body)
	}
	cursor += common.Len()

	blockBase := [device.NumBackends]uint32{}
	backendBytes := make([][]byte, device.NumBackends)
	for _, b := range active {
		blockBase[b] = uint32(cursor)
		bytes := backendBlocks[b].Bytes()
		backendBytes[b] = bytes
		cursor += len(bytes)
	}

	out := serial.NewEncoder()
	archive.EncodeHeader(archive.Header{Magic: archive.Magic, Version: archive.Version, NumChunks: uint32(archive.NumChunkTypes), BlockBase: blockBase}, out)
	for _, ch := range chunkHeaders {
		archive.EncodeChunkHeader(ch, out)
	}
	for _, body := range chunkBodies {
		out.Raw(body)
	}
	out.Raw(common.Bytes())
	for _, b := range active {
		out.Raw(backendBytes[b])
	}

	return out.Bytes(), nil
}
