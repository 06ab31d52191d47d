// Package main hosts the assetgen CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, logging, the run lock, the run
// history store and the generation backends into the pipeline engine. Heavy
// lifting lives in internal packages; commands here resolve inputs and
// render results.
package main
