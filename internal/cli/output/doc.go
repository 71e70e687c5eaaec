// Package output formats server responses for statehttpd-cli as
// tables, JSON or YAML.
package output
