// Copyright 2025 The psoarchive Authors. All rights reserved.

// Package alloc implements the bump allocator that owns the decoded
// strings and variable-length descriptor tails produced while
// unpacking a single archive entry (spec.md §4.2, component C2).
//
// An Arena never frees individual allocations. The whole arena is
// released, all at once, when the caller drops the last reference to
// it (in this GC'd setting, that means letting it become garbage;
// there is no explicit Free, matching the teacher's Destroyer
// convention only for types that own non-GC memory — an Arena owns
// none).
package alloc

// defaultPageSize is used when a caller does not override it via
// New. It is sized to comfortably hold the decoded tail of one
// archive entry (a handful of names and a small resource list)
// without growing.
const defaultPageSize = 4096

// Arena is a growable, page-based bump allocator.
type Arena struct {
	pageSize int
	pages    [][]byte
	off      int // allocation cursor within the last page
}

// New returns an Arena that allocates pages of at least pageSize
// bytes. A pageSize <= 0 selects a sane default.
func New(pageSize int) *Arena {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Arena{pageSize: pageSize}
}

// align rounds n up to the nearest multiple of a.
func align(n, a int) int {
	if a <= 1 {
		return n
	}
	return (n + a - 1) &^ (a - 1)
}

// alloc returns n zeroed bytes aligned to a, bump-allocating a new
// page if the current one cannot satisfy the request.
func (ar *Arena) alloc(n, a int) []byte {
	if n == 0 {
		return nil
	}
	if len(ar.pages) == 0 {
		ar.newPage(n, a)
	}
	last := ar.pages[len(ar.pages)-1]
	start := align(ar.off, a)
	if start+n > len(last) {
		ar.newPage(n, a)
		last = ar.pages[len(ar.pages)-1]
		start = 0
	}
	ar.off = start + n
	return last[start : start+n]
}

// newPage appends a fresh page sized to hold at least n bytes plus
// alignment padding, or ar.pageSize, whichever is larger.
func (ar *Arena) newPage(n, a int) {
	size := ar.pageSize
	if need := n + a; need > size {
		size = need
	}
	ar.pages = append(ar.pages, make([]byte, size))
	ar.off = 0
}

// AllocBytes returns n zeroed, arena-owned bytes.
func (ar *Arena) AllocBytes(n int) []byte {
	return ar.alloc(n, 1)
}

// AllocAligned returns n zeroed, arena-owned bytes aligned to a,
// matching the teacher's data-pointer alignment contract for decoded
// descriptor tails that will be viewed as typed structures.
func (ar *Arena) AllocAligned(n, a int) []byte {
	return ar.alloc(n, a)
}

// CopyString copies s into arena-owned bytes and returns them as a
// string. The string conversion itself copies again, so the result
// is independent of both s and the arena's storage.
func (ar *Arena) CopyString(s string) string {
	if s == "" {
		return ""
	}
	b := ar.AllocBytes(len(s))
	copy(b, s)
	return string(b)
}

// CopyBytes copies b into arena-owned storage and returns the copy.
func (ar *Arena) CopyBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	dst := ar.AllocBytes(len(b))
	copy(dst, b)
	return dst
}

// CopyStrings copies each string of ss with CopyString into a new
// slice, so the result shares no backing array with ss.
func (ar *Arena) CopyStrings(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	out := make([]string, len(ss)) // the []string itself is an ordinary Go slice, not arena storage
	for i, s := range ss {
		out[i] = ar.CopyString(s)
	}
	return out
}

// Pages returns the number of pages currently allocated. It exists
// for tests and diagnostics, not for production control flow.
func (ar *Arena) Pages() int { return len(ar.pages) }
