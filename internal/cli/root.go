// Package cli implements the olcc command line client for the Oregon liquor
// price catalog.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/liquor-catalog/internal/config"
	"github.com/samvad-hq/liquor-catalog/pkg/bag"
	"github.com/samvad-hq/liquor-catalog/pkg/catalog"
	"github.com/samvad-hq/liquor-catalog/pkg/httpclient"
)

var version = "0.3.0"

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// NewRootCmd builds the olcc command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "olcc",
		Short:   "Query the Oregon liquor price catalog",
		Version: version,
		Long: `olcc reads products, prices and stores from the Oregon liquor price API.
Client settings come from the environment (see configs/.env) and can be
overridden per call with flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.String("user-agent", httpclient.DefaultUserAgent, "User-Agent header sent with every request")
	flags.String("proxy", "", "proxy URI (e.g. tcp://proxy:3128 or http://proxy:3128)")
	flags.Bool("follow-location", true, "follow redirects")
	flags.Int("max-redirects", httpclient.DefaultMaxRedirects, "maximum number of redirects to follow")
	flags.Float64("protocol-version", httpclient.HTTP11, "HTTP protocol version (1.0 or 1.1)")
	flags.Duration("timeout", httpclient.DefaultTimeout, "request timeout (0 disables it)")
	flags.Bool("ignore-errors", false, "return error responses instead of failing on 4xx/5xx")
	flags.Bool("request-full-uri", false, "send the absolute URI in the request line")
	flags.String("transport", config.TransportResty, "HTTP transport: resty or socket")
	flags.String("endpoint", catalog.DefaultEndpoint, "catalog API base URL")
	flags.StringP("output", "o", outputText, "output format: text, json or yaml")
	flags.Bool("no-color", false, "disable colored output")

	root.AddCommand(
		newProductCmd(),
		newProductsCmd(),
		newPriceCmd(),
		newPricesCmd(),
		newStoreCmd(),
		newStoresCmd(),
		newGetCmd(),
		newDemoCmd(),
		newWatchCmd(),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

// session carries the objects a subcommand works with.
type session struct {
	catalog *catalog.Catalog
	out     *printer
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	opts, endpoint, err := clientOptions(cmd, cfg)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.New(httpclient.NewClient(opts...), catalog.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}

	p, err := newPrinterFromFlags(cmd)
	if err != nil {
		return nil, err
	}
	return &session{catalog: cat, out: p}, nil
}

// clientOptions starts from the loaded config and applies every flag the
// user set explicitly.
func clientOptions(cmd *cobra.Command, cfg *config.Config) ([]httpclient.Option, string, error) {
	flags := cmd.Flags()
	opts := cfg.ClientOptions(nil)
	endpoint := cfg.CatalogEndpoint

	if flags.Changed("user-agent") {
		v, _ := flags.GetString("user-agent")
		opts = append(opts, httpclient.WithUserAgent(v))
	}
	if flags.Changed("proxy") {
		v, _ := flags.GetString("proxy")
		opts = append(opts, httpclient.WithProxy(v))
	}
	if flags.Changed("follow-location") {
		v, _ := flags.GetBool("follow-location")
		opts = append(opts, httpclient.WithFollowLocation(v))
	}
	if flags.Changed("max-redirects") {
		v, _ := flags.GetInt("max-redirects")
		if v < 0 {
			return nil, "", fmt.Errorf("--max-redirects must not be negative")
		}
		opts = append(opts, httpclient.WithMaxRedirects(v))
	}
	if flags.Changed("protocol-version") {
		v, _ := flags.GetFloat64("protocol-version")
		if v != httpclient.HTTP10 && v != httpclient.HTTP11 {
			return nil, "", fmt.Errorf("--protocol-version must be 1.0 or 1.1, got %v", v)
		}
		opts = append(opts, httpclient.WithProtocolVersion(v))
	}
	if flags.Changed("timeout") {
		v, _ := flags.GetDuration("timeout")
		opts = append(opts, httpclient.WithTimeout(v))
	}
	if flags.Changed("ignore-errors") {
		v, _ := flags.GetBool("ignore-errors")
		opts = append(opts, httpclient.WithIgnoreErrors(v))
	}
	if flags.Changed("request-full-uri") {
		v, _ := flags.GetBool("request-full-uri")
		opts = append(opts, httpclient.WithRequestFullURI(v))
	}
	if flags.Changed("transport") {
		v, _ := flags.GetString("transport")
		switch strings.ToLower(strings.TrimSpace(v)) {
		case config.TransportResty:
			opts = append(opts, httpclient.WithTransport(httpclient.NewRestyTransport(nil)))
		case config.TransportSocket:
			opts = append(opts, httpclient.WithTransport(httpclient.NewSocketTransport(nil)))
		default:
			return nil, "", fmt.Errorf("--transport must be resty or socket, got %q", v)
		}
	}
	if flags.Changed("endpoint") {
		endpoint, _ = flags.GetString("endpoint")
	}
	return opts, endpoint, nil
}

func newPrinterFromFlags(cmd *cobra.Command) (*printer, error) {
	format, _ := cmd.Flags().GetString("output")
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case outputText, outputJSON, outputYAML:
	default:
		return nil, fmt.Errorf("--output must be text, json or yaml, got %q", format)
	}
	noColor, _ := cmd.Flags().GetBool("no-color")
	out := cmd.OutOrStdout()
	return newPrinter(out, format, !noColor && isTerminal(out)), nil
}

// listFlags registers the paging flags shared by listing commands.
func listFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 0, "page size (defaults to the catalog's 20)")
	cmd.Flags().Int("offset", 0, "index of the first record")
	cmd.Flags().StringArrayP("param", "p", nil, "extra query parameter as key=value (repeatable)")
}

// queryParams collects --limit, --offset and --param values.
func queryParams(cmd *cobra.Command) ([]bag.Entry[string], error) {
	var params []bag.Entry[string]
	if cmd.Flags().Changed("limit") {
		v, _ := cmd.Flags().GetInt("limit")
		params = append(params, bag.Entry[string]{Key: "limit", Value: fmt.Sprint(v)})
	}
	if cmd.Flags().Changed("offset") {
		v, _ := cmd.Flags().GetInt("offset")
		params = append(params, bag.Entry[string]{Key: "offset", Value: fmt.Sprint(v)})
	}
	raw, _ := cmd.Flags().GetStringArray("param")
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if key = strings.TrimSpace(key); !ok || key == "" {
			return nil, fmt.Errorf("--param %q is not key=value", kv)
		}
		params = append(params, bag.Entry[string]{Key: key, Value: value})
	}
	return params, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isattyTerminal(f.Fd())
}
