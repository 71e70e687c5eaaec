package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statehttpd/internal/cli/connection"
)

// sessionInfo mirrors the session check responses.
type sessionInfo struct {
	Valid   bool   `json:"valid"`
	Expires string `json:"expires,omitempty"`
}

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:   "login",
		Usage:  "Authenticate and store a session cookie",
		Action: login,
	}
}

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Invalidate the stored session",
		Action: logout,
	}
}

func login(c *cli.Context) error {
	client, cfg, err := newClient(c)
	if err != nil {
		return err
	}
	if cfg.Username == "" && !client.HasSession() {
		return errors.New("login requires --user and --password")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.Get(ctx, "/session/check_login")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	var info sessionInfo
	if err := connection.ParseResponse(resp, &info); err != nil {
		return err
	}
	if !client.HasSession() {
		return errors.New("server did not issue a session")
	}

	fmt.Fprintf(writer(c), "Logged in to %s\n", client.BaseURL())
	if info.Expires != "" {
		fmt.Fprintf(writer(c), "Session expires: %s\n", info.Expires)
	}
	return nil
}

func logout(c *cli.Context) error {
	client, _, err := newClient(c)
	if err != nil {
		return err
	}
	if !client.HasSession() {
		fmt.Fprintln(writer(c), "Not logged in")
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.PostForm(ctx, "/session/invalidate", nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}
	fmt.Fprintln(writer(c), "Logged out")
	return nil
}
