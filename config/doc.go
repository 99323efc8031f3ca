// Package config provides webpilot's configuration management.
//
// Configuration resolves from defaults, an optional YAML file, and
// WEBPILOT_* environment variables, in that order. The package also maps
// its sections onto the component-level config types.
package config
