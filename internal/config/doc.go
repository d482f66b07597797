// Package config loads and validates the coroview configuration.
//
// Configuration is resolved from three layers, lowest to highest
// precedence: built-in defaults, one optional TOML file, and COROVIEW_*
// environment variables. Command-line flags override all three at the call
// sites that consume them. The file is read once at startup and never
// written.
package config
