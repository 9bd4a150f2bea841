// Copyright 2025 The psoarchive Authors. All rights reserved.

package archive

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kestrelgfx/psoarchive/device"
	"github.com/kestrelgfx/psoarchive/internal/alloc"
)

// shaderSlot is one shader table entry's cached-object cell. It is the
// only post-load-mutable state in the shader table (spec.md §3
// "Shader table").
type shaderSlot struct {
	mu     sync.Mutex
	cached device.ShaderCode
}

// shaderTable implements the single-mutex-per-entry shader cache of
// spec.md §4.7: the lock guards only the cached-object cell, never the
// file read or the device call that fills it, so a concurrent winner
// and loser may both construct a shader for the same index and the
// later install simply overwrites the earlier one.
type shaderTable struct {
	headers []EntryHeader
	slots   []shaderSlot

	hits   int64
	misses int64
}

func newShaderTable(headers []EntryHeader) *shaderTable {
	return &shaderTable{headers: headers, slots: make([]shaderSlot, len(headers))}
}

func (t *shaderTable) clear() {
	for i := range t.slots {
		t.slots[i].mu.Lock()
		t.slots[i].cached = nil
		t.slots[i].mu.Unlock()
	}
}

// resolve returns the constructed shader for idx, or nil if idx is
// the NoShader sentinel. It reads and constructs outside any lock
// (spec.md §4.7, §5 "must not hold the lock" across device calls or
// file reads).
func (t *shaderTable) resolve(idx uint32, backend device.Backend, blockBase uint64, src device.ByteSource, dev device.Device, stage device.Stage, arena *alloc.Arena) (device.ShaderCode, error) {
	if idx == NoShader {
		return nil, nil
	}
	if int(idx) >= len(t.headers) {
		// spec.md §9 open question: an out-of-range, non-sentinel shader
		// index is ambiguous between silent nulling and an error; this
		// module errors, choosing DecodeUnderflow since the index came
		// from a decoded backend block the archive now considers
		// malformed (see DESIGN.md).
		return nil, newErr(CodeDecodeUnderflow, "resolveShader", fmt.Sprintf("shader[%d]", idx), nil)
	}

	slot := &t.slots[idx]
	slot.mu.Lock()
	if slot.cached != nil {
		cached := slot.cached
		slot.mu.Unlock()
		atomic.AddInt64(&t.hits, 1)
		return cached, nil
	}
	slot.mu.Unlock()

	hdr := &t.headers[idx]
	size := hdr.GetSize(backend)
	if size == 0 {
		return nil, newErr(CodeMissingBackendData, "resolveShader", fmt.Sprintf("shader[%d]", idx), nil)
	}
	data := arena.AllocBytes(int(size))
	if err := src.ReadAt(blockBase+uint64(hdr.GetOffset(backend)), data); err != nil {
		return nil, newErr(CodeIoError, "resolveShader", fmt.Sprintf("shader[%d]", idx), err)
	}
	code, err := dev.CreateShader(&device.CreateShaderDesc{Stage: stage, ByteCode: data})
	if err != nil {
		return nil, newErr(CodeDeviceConstructionFailed, "resolveShader", fmt.Sprintf("shader[%d]", idx), err)
	}
	atomic.AddInt64(&t.misses, 1)

	slot.mu.Lock()
	slot.cached = code
	installed := slot.cached
	slot.mu.Unlock()
	return installed, nil
}

// stats returns the table's cumulative hit/miss counters.
func (t *shaderTable) stats() (hits, misses int64) {
	return atomic.LoadInt64(&t.hits), atomic.LoadInt64(&t.misses)
}
