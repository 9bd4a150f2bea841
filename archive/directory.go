// Copyright 2025 The psoarchive Authors. All rights reserved.

package archive

import "sync"

// dirEntry is one named resource's location plus its post-load-mutable
// cache slot (spec.md §3 "Named-resource directory", §5 "directories
// are immutable; only the cached-object slot mutates").
type dirEntry struct {
	offset uint32
	size   uint32

	mu     sync.Mutex
	cached any
}

// directory is a load-time-built, read-only name index into the
// archive's common region, used for every non-shader resource kind
// (signatures, render passes, and each pipeline-state kind).
type directory struct {
	kind    ChunkType
	byName  map[string]*dirEntry
	ordered []string
}

// newDirectory builds a directory from a chunk's decoded entries,
// rejecting duplicate names (spec.md §7 DuplicateName).
func newDirectory(kind ChunkType, wire []dirEntryWire) (*directory, error) {
	d := &directory{
		kind:    kind,
		byName:  make(map[string]*dirEntry, len(wire)),
		ordered: make([]string, 0, len(wire)),
	}
	for _, w := range wire {
		if _, dup := d.byName[w.Name]; dup {
			return nil, newErr(CodeDuplicateName, "newDirectory", w.Name, nil)
		}
		d.byName[w.Name] = &dirEntry{offset: w.Offset, size: w.Size}
		d.ordered = append(d.ordered, w.Name)
	}
	return d, nil
}

// lookup returns the entry for name, or (nil, false) if absent.
func (d *directory) lookup(name string) (*dirEntry, bool) {
	e, ok := d.byName[name]
	return e, ok
}

// Names returns every name in this directory, in declared order.
func (d *directory) Names() []string {
	out := make([]string, len(d.ordered))
	copy(out, d.ordered)
	return out
}

// Len reports the number of entries in this directory.
func (d *directory) Len() int { return len(d.ordered) }

// clear drops every entry's cached constructed object (spec.md §3
// "ClearResourceCache" supplemented to cover non-shader directories,
// see SPEC_FULL.md §3).
func (d *directory) clear() {
	for _, e := range d.byName {
		e.mu.Lock()
		e.cached = nil
		e.mu.Unlock()
	}
}
