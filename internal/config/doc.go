// Package config loads, normalizes, and validates assetgen configuration.
//
// Configuration lives in TOML (default ~/.config/assetgen/config.toml, or
// ./assetgen.toml in the working directory). Load applies repository
// defaults, expands "~" paths, pulls backend credentials from an optional
// .env file and the ASSETGEN_* environment, and rejects values the pipeline
// cannot run with. Per-invocation CLI flags override the loaded values in
// cmd/assetgen rather than here.
package config
