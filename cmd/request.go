package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/pagerduty/pagerduty"
)

// maxConcurrentGets bounds the number of paths fetched at once
const maxConcurrentGets = 4

var (
	getPage   int
	getLimit  int
	getParams []string
	getAll    string
	bodyData  string
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get PATH...",
	Short: "GET one or more API paths and print the documents as JSON",
	Long: `GET one or more API paths. Several paths are fetched concurrently and
printed in the order given.

  pagerduty get users services --limit 25
  pagerduty get incidents --param 'statuses[]=triggered' --param since=2024-01-01T00:00:00Z
  pagerduty get users --all users`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: initializeApp,
	RunE:    runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().IntVar(&getPage, "page", pagerduty.DefaultPage, "page number, starting at 1")
	getCmd.Flags().IntVar(&getLimit, "limit", pagerduty.DefaultLimit, "page size")
	getCmd.Flags().StringArrayVar(&getParams, "param", nil, "query parameter as key=value, repeat for arrays (key[]=value)")
	getCmd.Flags().StringVar(&getAll, "all", "", "fetch every page and print the named collection")

	for _, method := range []string{"post", "put", "delete"} {
		rootCmd.AddCommand(newWriteCmd(method))
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	params, err := parseParams(getParams)
	if err != nil {
		return err
	}
	params["page"] = getPage
	params["limit"] = getLimit

	results := make([]any, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(maxConcurrentGets)

	for i, path := range args {
		g.Go(func() error {
			if getAll != "" {
				collection, err := client.GetAll(ctx, path, getAll, params)
				if err != nil {
					return err
				}
				results[i] = pagerduty.Object{getAll: collection}
				return nil
			}

			doc, err := client.Get(ctx, path, params)
			if err != nil {
				return fmt.Errorf("GET %s: %w", path, err)
			}
			results[i] = doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, result := range results {
		if err := printJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	}
	return nil
}

func newWriteCmd(method string) *cobra.Command {
	c := &cobra.Command{
		Use:     method + " PATH",
		Short:   fmt.Sprintf("%s a JSON body to an API path", strings.ToUpper(method)),
		Long:    fmt.Sprintf("Send a %s request. The body comes from --data or, when piped, standard input.", strings.ToUpper(method)),
		Args:    cobra.ExactArgs(1),
		PreRunE: initializeApp,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(bodyData, os.Stdin)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var doc pagerduty.Object
			switch method {
			case "post":
				doc, err = client.Post(ctx, args[0], body)
			case "put":
				doc, err = client.Put(ctx, args[0], body)
			case "delete":
				doc, err = client.Delete(ctx, args[0], body)
			}
			if err != nil {
				return fmt.Errorf("%s %s: %w", strings.ToUpper(method), args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
	c.Flags().StringVar(&bodyData, "data", "", "JSON object to send as the request body")
	return c
}

// parseParams turns key=value pairs into options. Keys ending in [] collect
// every value given for them.
func parseParams(pairs []string) (pagerduty.Options, error) {
	params := make(pagerduty.Options, len(pairs)+2)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		if name, ok := strings.CutSuffix(key, "[]"); ok {
			existing, _ := params[name].([]string)
			params[name] = append(existing, value)
			continue
		}
		params[key] = value
	}
	return params, nil
}

// readBody decodes the request body from data, or from stdin when it is piped.
// An empty body yields no parameters.
func readBody(data string, stdin *os.File) (pagerduty.Options, error) {
	input := []byte(data)
	if data == "" && stdin != nil && !isatty.IsTerminal(stdin.Fd()) {
		var err error
		input, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("could not read input: %w", err)
		}
	}

	if len(bytes.TrimSpace(input)) == 0 {
		return nil, nil
	}

	var body pagerduty.Options
	if err := json.Unmarshal(input, &body); err != nil {
		return nil, fmt.Errorf("request body must be a JSON object: %w", err)
	}
	return body, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
