package command

import (
	"bytes"
	"fmt"
	"net/http"
	"path"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/tidwall/sjson"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/statehttpd/internal/cli/connection"
)

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch a tracked value",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "field",
				Aliases: []string{"f"},
				Usage:   "Select a field (path or path=rename); repeatable",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Server-side serializer (json, prettyjson, ekjson, itjson, yaml); printed verbatim",
			},
		},
		Action: get,
	}
}

func get(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("get requires exactly one PATH argument")
	}
	client, cfg, err := newClient(c)
	if err != nil {
		return err
	}

	target := requestPath(c.Args().First(), c.String("format"))
	ctx, cancel := requestContext(c)
	defer cancel()

	var resp *http.Response
	if fields := c.StringSlice("field"); len(fields) > 0 {
		doc, err := fieldsDocument(fields)
		if err != nil {
			return err
		}
		resp, err = client.PostJSON(ctx, target, gojson.RawMessage(doc))
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
	} else {
		resp, err = client.Get(ctx, target)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
	}

	if c.String("format") != "" {
		data, err := connection.ReadResponse(resp)
		if err != nil {
			return err
		}
		w := writer(c)
		if _, err := w.Write(data); err != nil {
			return err
		}
		if !bytes.HasSuffix(data, []byte("\n")) {
			fmt.Fprintln(w)
		}
		return nil
	}

	var result any
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}
	return render(c, cfg, result)
}

// requestPath applies the serializer suffix to p. A path that already
// carries a suffix is left alone.
func requestPath(p, format string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if format == "" || path.Ext(p) != "" {
		return p
	}
	return p + "." + format
}

// fieldsDocument builds {"fields": [...]} from path or path=rename specs.
func fieldsDocument(fields []string) ([]byte, error) {
	doc := []byte(`{"fields":[]}`)
	for _, f := range fields {
		var (
			val any = f
			err error
		)
		if p, rename, ok := strings.Cut(f, "="); ok {
			if p == "" || rename == "" {
				return nil, fmt.Errorf("invalid field %q: expected path=rename", f)
			}
			val = []string{p, rename}
		}
		doc, err = sjson.SetBytes(doc, "fields.-1", val)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", f, err)
		}
	}
	return doc, nil
}
