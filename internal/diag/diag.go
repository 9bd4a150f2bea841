// Copyright 2025 The psoarchive Authors. All rights reserved.

// Package diag centralizes the archive's non-fatal diagnostics
// (spec.md §7: per-entry errors "surface as a logged diagnostic").
//
// The teacher repo never had an ambient logger (it returns plain
// errors and lets the caller decide); this module adds log/slog,
// matching the teacher's stdlib-only texture for logging since no
// third-party logging library appears anywhere in the retrieval pack
// (see DESIGN.md).
package diag

import "log/slog"

// Logger is the structured logger used for per-entry diagnostics. It
// defaults to slog's default logger and can be replaced by embedding
// applications that want archive diagnostics routed elsewhere.
var Logger = slog.Default()

// EntryFailed logs a non-fatal per-entry unpack failure (spec.md §7:
// such failures "never invalidate the archive").
func EntryFailed(kind, name string, err error) {
	Logger.Warn("psoarchive: entry unpack failed", "kind", kind, "name", name, "err", err)
}

// DebugInfoMismatch logs the informational diagnostic spec.md §4.3
// step 5 calls for when the archive's debug-info tags do not match
// the running binary's, without failing construction.
func DebugInfoMismatch(fileAPIVersion, fileCommit, wantAPIVersion, wantCommit string) {
	Logger.Warn("psoarchive: debug info mismatch",
		"file_api_version", fileAPIVersion, "want_api_version", wantAPIVersion,
		"file_commit", fileCommit, "want_commit", wantCommit)
}
