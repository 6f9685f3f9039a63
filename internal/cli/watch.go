package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/liquor-catalog/internal/app"
	"github.com/samvad-hq/liquor-catalog/internal/config"
	"github.com/samvad-hq/liquor-catalog/internal/logger"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the watchlist and publish new price records",
		Long: `watch runs the price watcher in the foreground using WATCHLIST_FILE,
PUBLISHERS_FILE and the storage settings from the environment. With --once it
polls every watch a single time and exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			once, _ := cmd.Flags().GetBool("once")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("endpoint") {
				cfg.CatalogEndpoint, _ = cmd.Flags().GetString("endpoint")
			}

			log, err := logger.Init(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Close()

			w, err := app.NewWatcher(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			if once {
				return w.RunOnce(cmd.Context())
			}
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().Bool("once", false, "poll once and exit")
	return cmd
}
