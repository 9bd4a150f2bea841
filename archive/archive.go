// Copyright 2025 The psoarchive Authors. All rights reserved.

package archive

import (
	"fmt"

	"github.com/kestrelgfx/psoarchive/device"
	"github.com/kestrelgfx/psoarchive/internal/diag"
	"github.com/kestrelgfx/psoarchive/internal/serial"
)

// APIVersion and SourceCommit identify the running binary's own build,
// compared against an opened archive's debug-info chunk (spec.md §4.3
// step 5). SourceCommit is blank in this source tree; embedders
// typically set it via -ldflags at link time.
var (
	APIVersion   = "1.0"
	SourceCommit = ""
)

// Archive is a read-only, opened pipeline-state archive bound to one
// backend (spec.md §3 "Backend tag": "each reader is constructed
// bound to exactly one tag").
type Archive struct {
	src     device.ByteSource
	backend device.Backend
	dev     device.Device

	blockBase [device.NumBackends]uint32

	debugInfo debugInfo

	signatures   *directory
	renderPasses *directory
	graphics     *directory
	compute      *directory
	rayTracing   *directory
	tile         *directory
	shaders      *shaderTable
}

// Open parses an archive from src and binds it to backend, using dev
// to construct live backend objects as entries are unpacked (spec.md
// §4.3 "Archive construction").
func Open(src device.ByteSource, backend device.Backend, dev device.Device) (*Archive, error) {
	if !backend.Valid() {
		return nil, newErr(CodeBadMagic, "Open", "", nil)
	}
	if dev != nil && dev.Backend() != backend {
		return nil, newErr(CodeDeviceConstructionFailed, "Open", "", nil)
	}

	hdrBytes := make([]byte, headerSize)
	if err := src.ReadAt(0, hdrBytes); err != nil {
		return nil, newErr(CodeIoError, "Open", "", err)
	}
	hdr, err := decodeHeader(serial.NewDecoder(hdrBytes))
	if err != nil {
		return nil, wrapUnderflow("Open", "header", err)
	}
	if hdr.Magic != Magic {
		return nil, newErr(CodeBadMagic, "Open", "", nil)
	}
	if hdr.Version != Version {
		return nil, newErr(CodeUnsupportedVersion, "Open", "", nil)
	}

	ar := &Archive{src: src, backend: backend, dev: dev, blockBase: hdr.BlockBase}

	chunkTableBytes := make([]byte, int(hdr.NumChunks)*chunkHeaderSize)
	if err := src.ReadAt(uint64(headerSize), chunkTableBytes); err != nil {
		return nil, newErr(CodeIoError, "Open", "chunk table", err)
	}
	d := serial.NewDecoder(chunkTableBytes)

	var seen [numChunkTypes]bool
	fileSize := src.Size()
	for i := uint32(0); i < hdr.NumChunks; i++ {
		ch, err := decodeChunkHeader(d)
		if err != nil {
			return nil, wrapUnderflow("Open", "chunk header", err)
		}
		if !ch.Type.valid() {
			return nil, newErr(CodeUnknownChunkType, "Open", ch.Type.String(), nil)
		}
		if seen[ch.Type] {
			return nil, newErr(CodeDuplicateChunk, "Open", ch.Type.String(), nil)
		}
		seen[ch.Type] = true

		if uint64(ch.Offset)+uint64(ch.Size) > fileSize {
			return nil, newErr(CodeIoError, "Open", ch.Type.String(), nil)
		}
		body := make([]byte, ch.Size)
		if err := src.ReadAt(uint64(ch.Offset), body); err != nil {
			return nil, newErr(CodeIoError, "Open", ch.Type.String(), err)
		}
		if err := ar.loadChunk(ch.Type, body); err != nil {
			return nil, err
		}
	}

	if ar.debugInfo.APIVersion != "" && (ar.debugInfo.APIVersion != APIVersion || ar.debugInfo.Commit != SourceCommit) {
		diag.DebugInfoMismatch(ar.debugInfo.APIVersion, ar.debugInfo.Commit, APIVersion, SourceCommit)
	}

	for _, dir := range [...]**directory{&ar.signatures, &ar.renderPasses, &ar.graphics, &ar.compute, &ar.rayTracing, &ar.tile} {
		if *dir == nil {
			empty, _ := newDirectory(ChunkResourceSignature, nil)
			*dir = empty
		}
	}
	if ar.shaders == nil {
		ar.shaders = newShaderTable(nil)
	}

	if err := ar.validateBounds(fileSize); err != nil {
		return nil, err
	}

	return ar, nil
}

// validateBounds checks spec.md §3's per-entry invariant
// (blockBase[backend] + offset + size ≤ fileSize) at load time rather
// than leaving it to surface lazily as a ReadAt failure during
// unpack. Common-region entries are checked directly, since a
// directory's offset/size are already fully decoded at this point.
// Shader-table entries are checked against the one backend this
// reader is bound to, the only backend block Open or any later
// unpack will ever read. A directory entry's own per-backend block
// bounds (vertex/pixel/etc. bytecode offsets nested in its common
// tail) are not re-read here — decoding them now would mean reading
// every entry's common bytes up front, defeating the point of a lazy
// unpacker — so those stay validated by readBackendBlock's ReadAt
// at unpack time.
func (ar *Archive) validateBounds(fileSize uint64) error {
	for _, dir := range [...]*directory{ar.signatures, ar.renderPasses, ar.graphics, ar.compute, ar.rayTracing, ar.tile} {
		for _, name := range dir.ordered {
			e := dir.byName[name]
			if uint64(e.offset)+uint64(e.size) > fileSize {
				return newErr(CodeIoError, "Open", name, nil)
			}
		}
	}
	for i := range ar.shaders.headers {
		h := &ar.shaders.headers[i]
		size := h.GetSize(ar.backend)
		if size == 0 {
			continue
		}
		off := uint64(ar.blockBase[ar.backend]) + uint64(h.GetOffset(ar.backend))
		if off+uint64(size) > fileSize {
			return newErr(CodeIoError, "Open", fmt.Sprintf("shader[%d]", i), nil)
		}
	}
	return nil
}

func (ar *Archive) loadChunk(t ChunkType, body []byte) error {
	d := serial.NewDecoder(body)
	var err error
	switch t {
	case ChunkArchiveDebugInfo:
		ar.debugInfo, err = decodeDebugInfo(d)
	case ChunkResourceSignature:
		var wire []dirEntryWire
		if wire, err = decodeDirectory(d); err == nil {
			ar.signatures, err = newDirectory(t, wire)
		}
	case ChunkRenderPass:
		var wire []dirEntryWire
		if wire, err = decodeDirectory(d); err == nil {
			ar.renderPasses, err = newDirectory(t, wire)
		}
	case ChunkGraphicsPipelineStates:
		var wire []dirEntryWire
		if wire, err = decodeDirectory(d); err == nil {
			ar.graphics, err = newDirectory(t, wire)
		}
	case ChunkComputePipelineStates:
		var wire []dirEntryWire
		if wire, err = decodeDirectory(d); err == nil {
			ar.compute, err = newDirectory(t, wire)
		}
	case ChunkRayTracingPipelineStates:
		var wire []dirEntryWire
		if wire, err = decodeDirectory(d); err == nil {
			ar.rayTracing, err = newDirectory(t, wire)
		}
	case ChunkTilePipelineStates:
		var wire []dirEntryWire
		if wire, err = decodeDirectory(d); err == nil {
			ar.tile, err = newDirectory(t, wire)
		}
	case ChunkShaders:
		var headers []EntryHeader
		if headers, err = decodeShaderTable(d); err == nil {
			ar.shaders = newShaderTable(headers)
		}
	default:
		return newErr(CodeUnknownChunkType, "loadChunk", t.String(), nil)
	}
	if err != nil {
		return wrapUnderflow("loadChunk", t.String(), err)
	}
	return nil
}

// Backend returns the backend this archive is bound to.
func (ar *Archive) Backend() device.Backend { return ar.backend }

// Names returns every entry name in the named-resource directory for
// kind, in declared order. kind must be one of ChunkResourceSignature,
// ChunkRenderPass, ChunkGraphicsPipelineStates,
// ChunkComputePipelineStates, ChunkRayTracingPipelineStates or
// ChunkTilePipelineStates; any other value returns nil. Shaders have
// no names (spec.md §3 "Shader table"); use Stats().Shaders for their
// count.
func (ar *Archive) Names(kind ChunkType) []string {
	switch kind {
	case ChunkResourceSignature:
		return ar.signatures.Names()
	case ChunkRenderPass:
		return ar.renderPasses.Names()
	case ChunkGraphicsPipelineStates:
		return ar.graphics.Names()
	case ChunkComputePipelineStates:
		return ar.compute.Names()
	case ChunkRayTracingPipelineStates:
		return ar.rayTracing.Names()
	case ChunkTilePipelineStates:
		return ar.tile.Names()
	default:
		return nil
	}
}

// ClearResourceCache drops every cached constructed object — shaders,
// signatures, render passes, and every pipeline kind — under their
// respective locks (spec.md §4.7, supplemented per SPEC_FULL.md §3).
func (ar *Archive) ClearResourceCache() {
	ar.shaders.clear()
	ar.signatures.clear()
	ar.renderPasses.clear()
	ar.graphics.clear()
	ar.compute.clear()
	ar.rayTracing.clear()
	ar.tile.clear()
}

// Stats is a read-only snapshot of an archive's directory sizes and
// cache hit/miss counters, for diagnostic tooling (SPEC_FULL.md §3,
// grounded on the teacher's driver.Limits() value-object pattern).
type Stats struct {
	Signatures, RenderPasses                        int
	GraphicsStates, ComputeStates, RayTracingStates, TileStates int
	Shaders                                          int
	ShaderCacheHits, ShaderCacheMisses                int64
}

// Stats returns a snapshot of this archive's directories and caches.
func (ar *Archive) Stats() Stats {
	hits, misses := ar.shaders.stats()
	return Stats{
		Signatures:       ar.signatures.Len(),
		RenderPasses:     ar.renderPasses.Len(),
		GraphicsStates:   ar.graphics.Len(),
		ComputeStates:    ar.compute.Len(),
		RayTracingStates: ar.rayTracing.Len(),
		TileStates:       ar.tile.Len(),
		Shaders:          len(ar.shaders.headers),
		ShaderCacheHits:   hits,
		ShaderCacheMisses: misses,
	}
}
