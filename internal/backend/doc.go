// Package backend defines the generation capability the pipeline invokes per
// work item and ships the concrete implementations assetgen can run with.
//
// Backend is deliberately narrow: Generate turns a Request into an Artifact
// (in-memory bytes or a file the engine moves into place) and Close releases
// whatever the implementation holds. Heavyweight resources such as HTTP
// clients or scratch directories are created lazily on the first Generate
// and torn down by Close.
//
// Implementations:
//   - Placeholder: deterministic PNG / silent WAV output for dry runs.
//   - HTTP: JSON POST to a generation service.
//   - Command: an external generator executable.
//   - Multi: routes requests to per-kind backends.
package backend
