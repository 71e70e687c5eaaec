package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statehttpd/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print client build information",
		Action: func(c *cli.Context) error {
			fmt.Fprintln(writer(c), buildinfo.String())
			return nil
		},
	}
}
