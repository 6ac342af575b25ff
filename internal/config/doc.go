// Package config loads, normalizes, and validates Pigeonhole configuration
// data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every knob the pipeline and
// CLI need: data directories, matching thresholds, and concurrency bounds.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
