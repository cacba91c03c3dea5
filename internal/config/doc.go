// Package config loads, normalizes, and validates Shadow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ASSEMBLYAI_API_KEY and GEMINI_API_KEY. The Config type centralizes every
// knob the daemon, dispatcher, and CLI need so the pipeline receives one
// explicit value constructed at process start.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
