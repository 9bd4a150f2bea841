// Copyright 2025 The psoarchive Authors. All rights reserved.

package alloc

import "testing"

func TestCopyStringIndependentOfSource(t *testing.T) {
	ar := New(0)
	src := []byte("albedoMap")
	s := ar.CopyString(string(src))
	src[0] = 'X'
	if s != "albedoMap" {
		t.Fatalf("CopyString: arena copy changed when source mutated: %q", s)
	}
}

func TestAllocGrowsPages(t *testing.T) {
	ar := New(16)
	for i := 0; i < 8; i++ {
		ar.AllocBytes(12)
	}
	if ar.Pages() < 2 {
		t.Fatalf("expected Arena to grow beyond one page, got %d", ar.Pages())
	}
}

func TestAllocAlignment(t *testing.T) {
	ar := New(64)
	ar.AllocBytes(1)
	b := ar.AllocAligned(8, 8)
	// We can't recover the absolute address portably, but within the
	// single 64-byte page cap(b) tells where b starts: check that the
	// start offset is a multiple of 8 and that b has exactly the
	// requested length.
	if len(b) != 8 {
		t.Fatalf("AllocAligned: got length %d", len(b))
	}
	if start := 64 - cap(b); start%8 != 0 {
		t.Fatalf("AllocAligned: starts at page offset %d, want a multiple of 8", start)
	}
}

func TestCopyStringsIndependentSlice(t *testing.T) {
	ar := New(0)
	in := []string{"a", "b", "c"}
	out := ar.CopyStrings(in)
	in[0] = "z"
	if out[0] != "a" {
		t.Fatalf("CopyStrings: shared backing with source slice")
	}
}
