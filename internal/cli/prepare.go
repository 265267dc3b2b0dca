package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yildizm/LogoMatch/internal/formatter"
)

func newPrepareCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "prepare <folder>...",
		Short: "Build similarity indexes for image folders",
		Long: `Scan the given folders, extract features from every usable image and
build the per-folder similarity indexes. Prepared state is persisted to
the cache directory keyed by a folder-content fingerprint, so repeated
runs over unchanged folders adopt the snapshot instead of rebuilding.

Examples:
  logomatch prepare ./logos
  logomatch prepare --no-cache ./brand-a ./brand-b`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			e, err := newEngine(cfg, newLogger(cfg))
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			finish := attachProgress(cfg, e)
			err = e.Prepare(ctx, args, !noCache)
			finish()
			if err != nil {
				return fmt.Errorf("prepare failed: %w", err)
			}

			stats, err := statsReport(e)
			if err != nil {
				return err
			}
			return writeReport(cfg, &formatter.Report{Stats: stats})
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "rebuild even when a cached snapshot matches")
	return cmd
}
