// Package logs reads the append-only generation log: the last N lines,
// lines added after an offset, and a polling follow mode for
// `assetgen logs --follow`.
//
// Filter narrows lines to one asset or to warnings and errors using the
// console line layout written by internal/logging.
package logs
