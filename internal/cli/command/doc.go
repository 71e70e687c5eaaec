// Package command provides CLI command definitions for statehttpd-cli.
//
// Commands are built on urfave/cli/v2. Global flags override values from
// the CLI configuration file.
package command
