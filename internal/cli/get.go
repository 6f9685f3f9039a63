package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get ENDPOINT",
		Short: "Send a raw GET to the catalog and dump the response",
		Long: `get resolves ENDPOINT against the catalog base URL (absolute URLs are used
as is), sends it with the default format/limit parameters plus any --param
values, and prints the status line, headers and body. --path extracts a
value from a JSON body using gjson syntax, e.g. "objects.#.title".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := queryParams(cmd)
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("path")

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			resp, err := s.catalog.Raw(cmd.Context(), args[0], params...)
			if err != nil {
				return err
			}

			var body any
			if path != "" && !resp.IsTransportFailure() {
				if !gjson.ValidBytes(resp.RawBody()) {
					return fmt.Errorf("--path needs a JSON body, got %q", resp.ContentType())
				}
				result := gjson.GetBytes(resp.RawBody(), path)
				if !result.Exists() {
					return fmt.Errorf("path %q not found in response", path)
				}
				body = result.Value()
				if s.out.format == outputText && (result.IsObject() || result.IsArray()) {
					body = prettyJSON(result.Raw)
				}
				if body == nil {
					body = "null"
				}
			}

			if err := s.out.response(resp, body); err != nil {
				return err
			}
			if resp.IsTransportFailure() {
				return fmt.Errorf("request failed: %w", resp.Err())
			}
			return nil
		},
	}
	cmd.Flags().StringArrayP("param", "p", nil, "extra query parameter as key=value (repeatable)")
	cmd.Flags().String("path", "", "gjson path to extract from a JSON body")
	return cmd
}
