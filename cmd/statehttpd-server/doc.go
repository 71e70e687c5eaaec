// Package main provides the entry point for statehttpd-server.
//
// The server exposes process state over HTTP/HTTPS:
//
//   - session login by cookie or Basic credentials
//   - tracked state endpoints in json, prettyjson, ekjson, itjson and yaml
//   - static file directories and URL aliases
//   - health, status and Prometheus metrics
//
// Usage:
//
//	statehttpd-server [flags]
//	statehttpd-server --config /path/to/config.yaml
//
// Configuration is read from the file, then STATEHTTPD_ environment
// variables. Sending a write to the file re-reads the log level.
package main
