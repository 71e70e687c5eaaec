package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statehttpd/internal/cli/config"
	"github.com/yndnr/statehttpd/internal/cli/connection"
	"github.com/yndnr/statehttpd/internal/cli/output"
	"github.com/yndnr/statehttpd/internal/infra/buildinfo"
)

// requestTimeout bounds a single command's round trips.
const requestTimeout = 30 * time.Second

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "statehttpd-cli",
		Usage:   "statehttpd command-line client",
		Version: buildinfo.Get().Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			LoginCommand(),
			LogoutCommand(),
			GetCommand(),
			PostCommand(),
			StatusCommand(),
			VersionCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI configuration file",
			EnvVars: []string{"STATEHTTPD_CLI_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Server address (e.g., http://localhost:2501)",
			EnvVars: []string{"STATEHTTPD_SERVER"},
		},
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "Username for Basic authentication",
			EnvVars: []string{"STATEHTTPD_USER"},
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Password for Basic authentication",
			EnvVars: []string{"STATEHTTPD_PASSWORD"},
		},
		&cli.StringFlag{
			Name:  "session-file",
			Usage: "File holding the session cookie",
		},
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "PEM bundle trusted for https servers",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Skip TLS certificate verification",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
	}
}

// loadConfig merges the configuration file with global flags.
func loadConfig(c *cli.Context) (*config.CLIConfig, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	flags := map[string]string{
		"server":       c.String("server"),
		"username":     c.String("user"),
		"password":     c.String("password"),
		"ca_file":      c.String("ca-file"),
		"output":       c.String("output"),
		"session_file": c.String("session-file"),
	}
	if c.Bool("insecure") {
		flags["insecure"] = "true"
	}
	return config.Merge(cfg, flags), nil
}

// newClient builds the HTTP client described by the merged configuration.
func newClient(c *cli.Context) (*connection.HTTPClient, *config.CLIConfig, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	client, err := connection.NewHTTPClient(connection.Options{
		Server:      cfg.Server,
		Username:    cfg.Username,
		Password:    cfg.Password,
		CAFile:      cfg.CAFile,
		Insecure:    cfg.Insecure,
		SessionFile: cfg.SessionFile,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// render writes data in the configured output format.
func render(c *cli.Context, cfg *config.CLIConfig, data any) error {
	return output.NewFormatter(output.Format(cfg.Output)).Format(writer(c), data)
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, requestTimeout)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
