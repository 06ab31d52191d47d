// Package logging assembles structured slog loggers and formatting helpers used
// across assetgen.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code can tag log lines with
// run IDs, asset IDs, and phases. The console format doubles as the
// append-only, human-readable generation log written next to the manifest.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
