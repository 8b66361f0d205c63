// Package config loads, normalizes, and validates faceswap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FACESWAP_JOBS_PATH, optionally sourced from a .env file that sits next to
// the configuration file. The Config type centralizes every knob the CLI and
// the queue worker need so the jobs root, model directory and execution
// policy are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
