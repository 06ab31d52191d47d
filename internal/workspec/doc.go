// Package workspec loads the tabular work specification that drives a
// generation run.
//
// Each CSV row becomes an immutable WorkItem keyed by asset_id. The loader
// validates required columns, rejects duplicate asset IDs and duplicate
// filenames within a kind, and passes every other column through to the
// backend verbatim as the item's payload. Tables preserve input row order;
// ByKind and Filter return stable, order-preserving subsets.
package workspec
