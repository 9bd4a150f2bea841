// Copyright 2025 The psoarchive Authors. All rights reserved.

package diag_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/kestrelgfx/psoarchive/internal/diag"
)

func withCapturedLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := diag.Logger
	diag.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	t.Cleanup(func() { diag.Logger = prev })
	return &buf
}

func TestEntryFailedLogsKindNameAndErr(t *testing.T) {
	buf := withCapturedLogger(t)
	diag.EntryFailed("graphics", "gfx0", errors.New("boom"))

	out := buf.String()
	for _, want := range []string{"graphics", "gfx0", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("EntryFailed: log output missing %q, got %q", want, out)
		}
	}
}

func TestDebugInfoMismatchLogsAllFourFields(t *testing.T) {
	buf := withCapturedLogger(t)
	diag.DebugInfoMismatch("1.0", "abc123", "1.1", "def456")

	out := buf.String()
	for _, want := range []string{"1.0", "abc123", "1.1", "def456"} {
		if !strings.Contains(out, want) {
			t.Errorf("DebugInfoMismatch: log output missing %q, got %q", want, out)
		}
	}
}
