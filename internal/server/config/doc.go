// Package config defines the statehttpd server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: struct-tag and cross-field validation
//   - sanitize.go: masked copy for logging
//
// Configuration is loaded via internal/infra/confloader.
package config
