// Copyright 2025 The psoarchive Authors. All rights reserved.

// Package archive implements the binary archive format, reader and
// unpacker (spec.md §4.3, §4.4, §4.6, §4.7 — components C3, C4, C6,
// C7): a content-addressed, block-partitioned file with named
// resource directories, typed chunks, per-backend data blocks, a
// versioned header and concurrent shader caching.
package archive

import (
	"github.com/kestrelgfx/psoarchive/device"
	"github.com/kestrelgfx/psoarchive/internal/serial"
)

// Magic is the fixed four-byte tag every archive begins with
// (spec.md §6, "PSOA" spelled little-endian).
const Magic uint32 = 0x414f5350

// Version is the exact version this reader accepts (spec.md §8
// property 2: "constructing from bytes whose version differs from
// the compiled constant by 1 fails UnsupportedVersion — no partial
// acceptance").
const Version uint32 = 1

// ChunkType tags a region of the archive body (spec.md §3 "Chunk").
type ChunkType uint32

// Chunk types. At most one chunk of each type may appear in an
// archive (spec.md §3 invariant).
const (
	ChunkArchiveDebugInfo ChunkType = iota
	ChunkResourceSignature
	ChunkGraphicsPipelineStates
	ChunkComputePipelineStates
	ChunkRayTracingPipelineStates
	ChunkTilePipelineStates
	ChunkRenderPass
	ChunkShaders

	numChunkTypes
)

func (c ChunkType) String() string {
	switch c {
	case ChunkArchiveDebugInfo:
		return "ArchiveDebugInfo"
	case ChunkResourceSignature:
		return "ResourceSignature"
	case ChunkGraphicsPipelineStates:
		return "GraphicsPipelineStates"
	case ChunkComputePipelineStates:
		return "ComputePipelineStates"
	case ChunkRayTracingPipelineStates:
		return "RayTracingPipelineStates"
	case ChunkTilePipelineStates:
		return "TilePipelineStates"
	case ChunkRenderPass:
		return "RenderPass"
	case ChunkShaders:
		return "Shaders"
	default:
		return "UnknownChunkType"
	}
}

func (c ChunkType) valid() bool { return c < numChunkTypes }

// headerSize is the encoded size of Header: magic + version +
// numChunks + one u32 per backend tag.
const headerSize = 4 + 4 + 4 + device.NumBackends*4

// Header is the fixed prefix every archive begins with (spec.md §6).
type Header struct {
	Magic        uint32
	Version      uint32
	NumChunks    uint32
	BlockBase    [device.NumBackends]uint32
}

func (h *Header) encode(e *serial.Encoder) {
	e.Uint32(h.Magic)
	e.Uint32(h.Version)
	e.Uint32(h.NumChunks)
	for _, off := range h.BlockBase {
		e.Uint32(off)
	}
}

func decodeHeader(d *serial.Decoder) (Header, error) {
	var h Header
	var err error
	if h.Magic, err = d.Uint32(); err != nil {
		return h, err
	}
	if h.Version, err = d.Uint32(); err != nil {
		return h, err
	}
	if h.NumChunks, err = d.Uint32(); err != nil {
		return h, err
	}
	for i := range h.BlockBase {
		if h.BlockBase[i], err = d.Uint32(); err != nil {
			return h, err
		}
	}
	return h, nil
}

// chunkHeaderSize is the encoded size of a ChunkHeader.
const chunkHeaderSize = 4 + 4 + 4

// ChunkHeader locates one chunk's body within the file (spec.md §3).
type ChunkHeader struct {
	Type   ChunkType
	Size   uint32
	Offset uint32
}

func (c ChunkHeader) encode(e *serial.Encoder) {
	e.Uint32(uint32(c.Type))
	e.Uint32(c.Size)
	e.Uint32(c.Offset)
}

func decodeChunkHeader(d *serial.Decoder) (ChunkHeader, error) {
	var c ChunkHeader
	t, err := d.Uint32()
	if err != nil {
		return c, err
	}
	c.Type = ChunkType(t)
	if c.Size, err = d.Uint32(); err != nil {
		return c, err
	}
	if c.Offset, err = d.Uint32(); err != nil {
		return c, err
	}
	return c, nil
}

// EntryHeader is the common per-entry header every directory-backed
// resource begins with (spec.md §3 "Per-entry common header"): a
// chunk type tag plus a per-backend size/offset pair, so that
// GetSize/GetOffset return the matching slot for whichever backend
// the archive reader is bound to. Shader-table entries use the same
// struct but are stored without the type tag (see encodeShaderTable).
type EntryHeader struct {
	ChunkType ChunkType
	Sizes     [device.NumBackends]uint32
	Offsets   [device.NumBackends]uint32
}

const entryHeaderSize = 4 + device.NumBackends*4 + device.NumBackends*4

// GetSize returns the size of the backend-specific block for b, or 0
// if this entry carries no data for that backend.
func (h *EntryHeader) GetSize(b device.Backend) uint32 { return h.Sizes[b] }

// GetOffset returns the offset of the backend-specific block for b,
// relative to that backend's block-base offset in the file header.
func (h *EntryHeader) GetOffset(b device.Backend) uint32 { return h.Offsets[b] }

func (h *EntryHeader) encode(e *serial.Encoder) {
	e.Uint32(uint32(h.ChunkType))
	for _, s := range h.Sizes {
		e.Uint32(s)
	}
	for _, o := range h.Offsets {
		e.Uint32(o)
	}
}

func decodeEntryHeader(d *serial.Decoder) (EntryHeader, error) {
	var h EntryHeader
	t, err := d.Uint32()
	if err != nil {
		return h, err
	}
	h.ChunkType = ChunkType(t)
	for i := range h.Sizes {
		if h.Sizes[i], err = d.Uint32(); err != nil {
			return h, err
		}
	}
	for i := range h.Offsets {
		if h.Offsets[i], err = d.Uint32(); err != nil {
			return h, err
		}
	}
	return h, nil
}

// dirEntryWire is one (name, commonOffset, commonSize) record as it
// appears in a named-resource directory chunk (spec.md §6 "Each named
// directory, in its chunk: u32 count; { cstring name; u32 offset; u32
// size }[count]").
type dirEntryWire struct {
	Name   string
	Offset uint32
	Size   uint32
}

func encodeDirectory(e *serial.Encoder, entries []dirEntryWire) {
	e.Uint32(uint32(len(entries)))
	for _, d := range entries {
		e.CString(d.Name)
		e.Uint32(d.Offset)
		e.Uint32(d.Size)
	}
}

func decodeDirectory(d *serial.Decoder) ([]dirEntryWire, error) {
	count, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	out := make([]dirEntryWire, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := d.CString()
		if err != nil {
			return nil, err
		}
		off, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		size, err := d.Uint32()
		if err != nil {
			return nil, err
		}
		out = append(out, dirEntryWire{Name: name, Offset: off, Size: size})
	}
	return out, nil
}

// encodeShaderTable writes the Shaders chunk body: a count followed
// by one record per shader, indexed by position (spec.md §3 "Shader
// table"), holding that EntryHeader's Sizes then Offsets arrays; the
// ChunkType field is not written. Unlike other kinds, shaders have no
// name: the PSO's backend block references them by integer index.
func encodeShaderTable(e *serial.Encoder, entries []EntryHeader) {
	e.Uint32(uint32(len(entries)))
	for _, h := range entries {
		for _, s := range h.Sizes {
			e.Uint32(s)
		}
		for _, o := range h.Offsets {
			e.Uint32(o)
		}
	}
}

func decodeShaderTable(d *serial.Decoder) ([]EntryHeader, error) {
	count, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	out := make([]EntryHeader, count)
	for i := range out {
		for j := range out[i].Sizes {
			if out[i].Sizes[j], err = d.Uint32(); err != nil {
				return nil, err
			}
		}
		for j := range out[i].Offsets {
			if out[i].Offsets[j], err = d.Uint32(); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// NoShader is the sentinel shader-table index meaning "no shader"
// (spec.md §4.6 step 7: ray-tracing shader fields "accepting sentinel
// ~0 as 'no shader'").
const NoShader uint32 = 0xffffffff
