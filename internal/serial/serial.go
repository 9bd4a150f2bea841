// Copyright 2025 The psoarchive Authors. All rights reserved.

// Package serial implements the sequential typed encode/decode used
// to turn archive create-info structs into bytes and back (spec.md
// §4.1, component C1).
//
// Encoder and Decoder expose the same operation set in the same
// order, so that for any value x, decoding what an Encoder produced
// for x reproduces x field for field (the round-trip law, spec.md
// §8 property 1). An Encoder can also run in measure mode, where it
// counts bytes without writing them, so callers can size a buffer
// before a real encode pass — mirroring the teacher's cursor-based
// serializers that separate sizing from writing.
package serial

import (
	"encoding/binary"
	"errors"
)

// ErrUnderflow is returned when a Decoder is asked to read past the
// end of its buffer (spec.md §7 DecodeUnderflow).
var ErrUnderflow = errors.New("serial: decode underflow")

// Decoder is a cursor over a fixed byte slice. Every read validates
// that the cursor does not advance past the end of the buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder returns a Decoder positioned at the start of buf.
// The Decoder aliases buf; it does not copy it.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// IsEnd reports whether the cursor has consumed the whole buffer.
func (d *Decoder) IsEnd() bool { return d.pos >= len(d.buf) }

// Pos returns the current cursor position.
func (d *Decoder) Pos() int { return d.pos }

func (d *Decoder) need(n int) error {
	if n < 0 || d.pos+n > len(d.buf) {
		return ErrUnderflow
	}
	return nil
}

// Uint8 decodes a single byte.
func (d *Decoder) Uint8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

// Uint16 decodes a little-endian uint16.
func (d *Decoder) Uint16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

// Uint32 decodes a little-endian uint32.
func (d *Decoder) Uint32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

// Uint64 decodes a little-endian uint64.
func (d *Decoder) Uint64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

// Int32 decodes a little-endian, two's-complement int32.
func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

// Bytes returns n bytes aliasing the decoder's underlying buffer and
// advances the cursor by n. The caller must copy the slice before
// the source buffer can be reused or freed (spec.md §4.1).
func (d *Decoder) Bytes(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// Skip advances the cursor by n bytes without returning them.
func (d *Decoder) Skip(n int) error {
	if err := d.need(n); err != nil {
		return err
	}
	d.pos += n
	return nil
}

// CString decodes a NUL-terminated string. The returned string is a
// Go string conversion of the bytes, so it is a copy: it does not
// alias the decoder's buffer and stays valid after that buffer is
// reused or freed.
func (d *Decoder) CString() (string, error) {
	for i := d.pos; i < len(d.buf); i++ {
		if d.buf[i] == 0 {
			s := string(d.buf[d.pos:i])
			d.pos = i + 1
			return s, nil
		}
	}
	return "", ErrUnderflow
}

// Encoder accumulates bytes for later writing into an archive, or, in
// measure mode, only counts how many bytes a given encode pass would
// produce. The same sequence of calls against a real Encoder and a
// measuring Encoder always agree on length.
type Encoder struct {
	buf     []byte
	measure bool
	n       int
}

// NewEncoder returns an Encoder that accumulates bytes into buf.
func NewEncoder() *Encoder { return &Encoder{} }

// NewMeasurer returns an Encoder that discards writes and only counts
// the bytes they would have produced.
func NewMeasurer() *Encoder { return &Encoder{measure: true} }

// Len returns the number of bytes written (or, in measure mode,
// counted) so far.
func (e *Encoder) Len() int {
	if e.measure {
		return e.n
	}
	return len(e.buf)
}

// Bytes returns the accumulated buffer. It is nil in measure mode.
func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) grow(n int) []byte {
	if e.measure {
		e.n += n
		return nil
	}
	l := len(e.buf)
	e.buf = append(e.buf, make([]byte, n)...)
	return e.buf[l : l+n]
}

// Uint8 encodes a single byte.
func (e *Encoder) Uint8(v uint8) {
	if b := e.grow(1); b != nil {
		b[0] = v
	}
}

// Uint16 encodes a little-endian uint16.
func (e *Encoder) Uint16(v uint16) {
	if b := e.grow(2); b != nil {
		binary.LittleEndian.PutUint16(b, v)
	}
}

// Uint32 encodes a little-endian uint32.
func (e *Encoder) Uint32(v uint32) {
	if b := e.grow(4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

// Uint64 encodes a little-endian uint64.
func (e *Encoder) Uint64(v uint64) {
	if b := e.grow(8); b != nil {
		binary.LittleEndian.PutUint64(b, v)
	}
}

// Int32 encodes v as a little-endian, two's-complement uint32.
func (e *Encoder) Int32(v int32) { e.Uint32(uint32(v)) }

// Raw appends raw bytes verbatim.
func (e *Encoder) Raw(b []byte) {
	if dst := e.grow(len(b)); dst != nil {
		copy(dst, b)
	}
}

// CString encodes s followed by a NUL terminator. s must not itself
// contain a NUL byte.
func (e *Encoder) CString(s string) {
	if dst := e.grow(len(s) + 1); dst != nil {
		copy(dst, s)
		dst[len(s)] = 0
	}
}
