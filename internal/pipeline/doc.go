// Package pipeline orchestrates a generation run.
//
// The Engine loads the manifest for the output directory, filters out items
// already generated (unless resume is disabled), then processes image items
// followed by audio items through the executor. Every outcome is appended to
// the manifest, which is checkpointed every N processed items on one counter
// shared by both phases and finalized once at the end.
//
// Cancelling the run context stops new items from starting; in-flight items
// may finish. The engine then writes a single checkpoint and returns
// ErrAborted. A manifest write failure aborts the run immediately because
// progress that cannot be persisted cannot be resumed.
//
// With Workers > 1, items of one phase run concurrently. Destinations are
// serialized per path and manifest writes go through one writer.
package pipeline
