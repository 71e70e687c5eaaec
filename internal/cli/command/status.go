package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statehttpd/internal/cli/config"
	"github.com/yndnr/statehttpd/internal/cli/connection"
	"github.com/yndnr/statehttpd/internal/cli/output"
)

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show server health and status",
		Action: status,
	}
}

func status(c *cli.Context) error {
	client, cfg, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	// Health is unauthenticated and answers even when credentials are wrong.
	resp, err := client.Get(ctx, "/health")
	if err != nil {
		PrintError("health check failed: %v", err)
		return fmt.Errorf("server unreachable")
	}
	var health map[string]any
	if err := connection.ParseResponse(resp, &health); err != nil {
		return err
	}

	resp, err = client.Get(ctx, "/system/status")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var result map[string]any
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	if output.Format(cfg.Output) != output.FormatTable {
		result["health"] = health["status"]
		return render(c, cfg, result)
	}
	printStatus(c, cfg, health, result)
	return nil
}

func printStatus(c *cli.Context, cfg *config.CLIConfig, health, result map[string]any) {
	w := writer(c)
	fmt.Fprintf(w, "Server Status\n")
	fmt.Fprintf(w, "=============\n\n")
	fmt.Fprintf(w, "Server:         %s\n", cfg.Server)
	if s, ok := health["status"].(string); ok {
		fmt.Fprintf(w, "Health:         %s\n", s)
	}
	if build, ok := result["build"].(map[string]any); ok {
		if v, ok := build["version"].(string); ok {
			fmt.Fprintf(w, "Version:        %s\n", v)
		}
	}
	if up, ok := result["uptime_seconds"].(float64); ok {
		fmt.Fprintf(w, "Uptime:         %.0fs\n", up)
	}
	if n, ok := result["sessions"].(float64); ok {
		fmt.Fprintf(w, "Sessions:       %.0f\n", n)
	}
	if n, ok := result["goroutines"].(float64); ok {
		fmt.Fprintf(w, "Goroutines:     %.0f\n", n)
	}
	if n, ok := result["port"].(float64); ok {
		fmt.Fprintf(w, "Port:           %.0f\n", n)
	}
	if tls, ok := result["tls"].(bool); ok {
		fmt.Fprintf(w, "TLS:            %t\n", tls)
	}
}
