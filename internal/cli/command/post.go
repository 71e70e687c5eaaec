package command

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/statehttpd/internal/cli/connection"
)

// PostCommand returns the post command.
func PostCommand() *cli.Command {
	return &cli.Command{
		Name:      "post",
		Usage:     "Submit variables to an endpoint",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Form variable as key=value; repeatable",
			},
			&cli.StringFlag{
				Name:  "json",
				Usage: "JSON document sent as the request body",
			},
		},
		Action: post,
	}
}

func post(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("post requires exactly one PATH argument")
	}
	if c.IsSet("json") && c.IsSet("data") {
		return fmt.Errorf("--json and --data are mutually exclusive")
	}
	client, cfg, err := newClient(c)
	if err != nil {
		return err
	}

	target := requestPath(c.Args().First(), "")
	ctx, cancel := requestContext(c)
	defer cancel()

	var resp *http.Response
	if raw := c.String("json"); raw != "" {
		if !gojson.Valid([]byte(raw)) {
			return fmt.Errorf("--json is not valid JSON")
		}
		resp, err = client.PostJSON(ctx, target, gojson.RawMessage(raw))
	} else {
		values, verr := formValues(c.StringSlice("data"))
		if verr != nil {
			return verr
		}
		resp, err = client.PostForm(ctx, target, values)
	}
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result any
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return render(c, cfg, result)
}

func formValues(pairs []string) (url.Values, error) {
	values := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --data %q: expected key=value", p)
		}
		values.Add(k, v)
	}
	return values, nil
}
