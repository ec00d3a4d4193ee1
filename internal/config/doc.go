// Package config loads, normalizes, and validates scrubber configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AZURE_LANGUAGE_API_KEY. The Config type centralizes every knob the CLI
// needs, so endpoint credentials, retry budgets, and directory locations are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
