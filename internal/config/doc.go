// Package config loads, normalizes, and validates the TOML configuration
// file. Defaults come from Default(); a missing file is not an error, and
// GEMINI_API_KEY (optionally via a local .env file) overrides the configured
// key so credentials stay out of the config file.
package config
