package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yildizm/LogoMatch/internal/formatter"
)

func newStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [folder]...",
		Short: "Show engine and cache statistics",
		Long: `Report cache contents and, when folders are given, prepare them (from
cache when possible) and report per-folder image, feature and index
counts plus the vocabulary size.

Examples:
  logomatch stats
  logomatch stats ./logos ./competitors`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			e, err := newEngine(cfg, newLogger(cfg))
			if err != nil {
				return err
			}

			if len(args) > 0 {
				ctx, cancel := signalContext()
				defer cancel()

				finish := attachProgress(cfg, e)
				err = e.Prepare(ctx, args, true)
				finish()
				if err != nil {
					return fmt.Errorf("prepare failed: %w", err)
				}
			}

			stats, err := statsReport(e)
			if err != nil {
				return err
			}
			return writeReport(cfg, &formatter.Report{Stats: stats})
		},
	}
	return cmd
}
