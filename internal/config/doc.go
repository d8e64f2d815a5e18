// Package config loads and validates the TOML configuration for the mop
// CLI: scene file location, hook script directory, logging options, and the
// default modules a fresh rig is seeded with.
package config
