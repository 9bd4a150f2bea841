// Copyright 2025 The psoarchive Authors. All rights reserved.

package archive

import "github.com/kestrelgfx/psoarchive/internal/serial"

// This file is the write-side counterpart to format.go and entries.go:
// it exports the wire encoders a serialization device (component C8,
// package archivedevice) needs to assemble an archive, reusing the
// exact codec the reader decodes with so the two halves can never
// drift apart.

// NumChunkTypes is the number of distinct chunk types (and the width
// of every "at most one chunk per type" bookkeeping array a writer
// needs).
const NumChunkTypes = int(numChunkTypes)

// EncodeHeader serializes a fully-populated Header.
func EncodeHeader(h Header, e *serial.Encoder) { h.encode(e) }

// EncodeChunkHeader serializes a ChunkHeader.
func EncodeChunkHeader(c ChunkHeader, e *serial.Encoder) { c.encode(e) }

// EncodeEntryHeader serializes an EntryHeader.
func EncodeEntryHeader(h EntryHeader, e *serial.Encoder) { h.encode(e) }

// DirEntry is one named directory entry as it appears on the wire.
type DirEntry = dirEntryWire

// NewDirEntry builds a DirEntry.
func NewDirEntry(name string, offset, size uint32) DirEntry {
	return DirEntry{Name: name, Offset: offset, Size: size}
}

// EncodeDirectory serializes a named-resource directory chunk body.
func EncodeDirectory(e *serial.Encoder, entries []DirEntry) { encodeDirectory(e, entries) }

// EncodeShaderTable serializes the Shaders chunk body.
func EncodeShaderTable(e *serial.Encoder, entries []EntryHeader) { encodeShaderTable(e, entries) }

// SignatureCommon is a resource signature's common (backend-
// independent) tail.
type SignatureCommon = signatureCommon

// EncodeSignatureCommon serializes a SignatureCommon.
func EncodeSignatureCommon(e *serial.Encoder, c SignatureCommon) { encodeSignatureCommon(e, c) }

// BindingsBlock is a signature's per-backend block.
type BindingsBlock = bindingsBlock

// EncodeBindingsBlock serializes a BindingsBlock.
func EncodeBindingsBlock(e *serial.Encoder, b BindingsBlock) { encodeBindingsBlock(e, b) }

// RenderPassCommon is a render pass's common tail.
type RenderPassCommon = renderPassCommon

// EncodeRenderPassCommon serializes a RenderPassCommon.
func EncodeRenderPassCommon(e *serial.Encoder, c RenderPassCommon) { encodeRenderPassCommon(e, c) }

// GraphicsCommon is a graphics PSO's common tail.
type GraphicsCommon = graphicsCommon

// EncodeGraphicsCommon serializes a GraphicsCommon.
func EncodeGraphicsCommon(e *serial.Encoder, c GraphicsCommon) { encodeGraphicsCommon(e, c) }

// GraphicsShaders is a graphics PSO's backend block (shader indices).
type GraphicsShaders = graphicsShaders

// EncodeGraphicsShaders serializes a GraphicsShaders.
func EncodeGraphicsShaders(e *serial.Encoder, s GraphicsShaders) { encodeGraphicsShaders(e, s) }

// ComputeCommon is a compute PSO's common tail.
type ComputeCommon = computeCommon

// EncodeComputeCommon serializes a ComputeCommon.
func EncodeComputeCommon(e *serial.Encoder, c ComputeCommon) { encodeComputeCommon(e, c) }

// TileCommon is a tile PSO's common tail.
type TileCommon = tileCommon

// EncodeTileCommon serializes a TileCommon.
func EncodeTileCommon(e *serial.Encoder, c TileCommon) { encodeTileCommon(e, c) }

// RayTracingCommon is a ray-tracing PSO's common tail.
type RayTracingCommon = rayTracingCommon

// EncodeRayTracingCommon serializes a RayTracingCommon.
func EncodeRayTracingCommon(e *serial.Encoder, c RayTracingCommon) { encodeRayTracingCommon(e, c) }

// RayTracingShaders is a ray-tracing PSO's backend block (shader-group
// index triples).
type RayTracingShaders = rayTracingShaders

// EncodeRayTracingShaders serializes a RayTracingShaders.
func EncodeRayTracingShaders(e *serial.Encoder, s RayTracingShaders) { encodeRayTracingShaders(e, s) }

// DebugInfo is the ArchiveDebugInfo chunk body.
type DebugInfo = debugInfo

// EncodeDebugInfo serializes a DebugInfo.
func EncodeDebugInfo(e *serial.Encoder, d DebugInfo) { encodeDebugInfo(e, d) }
