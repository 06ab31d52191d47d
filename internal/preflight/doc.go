// Package preflight provides readiness checks for the filesystem paths and
// generation backends assetgen depends on.
//
// The run command calls RunAll before touching the manifest and refuses to
// start when a check fails. The "assetgen preflight" command renders the same
// results as a table.
//
// Backend checks follow the configured backend names: a placeholder backend
// needs nothing, a command backend needs its executable on PATH, and an HTTP
// backend needs a reachable endpoint.
package preflight
