// Package manifest persists the outcome of every work item so interrupted or
// partially failed runs can resume without redoing finished work.
//
// A Manifest is loaded from <outputDir>/asset_manifest.json at engine start,
// appended to in memory as items reach a terminal outcome, and rewritten in
// full on every Checkpoint (partial=true) and on Finalize (partial=false).
// Each write goes through fileutil.WriteFileAtomic so a crash never leaves a
// file LoadIfExists cannot parse. The latest entry for an asset ID is
// authoritative; only successful latest entries form the resume set.
package manifest
