// Package config provides CLI configuration for statehttpd-cli.
//
//   - spec.go: CLIConfig struct (~/.statehttpd/cli.yaml)
//   - loader.go: loading, saving and merging with flags
//
// The file holds the server address, TLS trust settings, credentials and
// the output preference. It is written with mode 0600.
package config
