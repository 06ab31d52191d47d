// Package history records one row per generation run in a SQLite database
// under the state directory.
//
// The manifest stays the source of truth for resume; history is an audit
// trail answering "what ran where, and how did it end". Schema changes bump
// schemaVersion; older databases must be deleted.
package history
