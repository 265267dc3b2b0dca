package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yildizm/LogoMatch/internal/formatter"
)

func newMatchCommand() *cobra.Command {
	var (
		threshold float64
		noReverse bool
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "match <folder-a> <folder-b>",
		Short: "Find similar image pairs across two folders",
		Long: `Prepare both folders, then query one collection against the other and
report every pair whose fused similarity reaches the threshold. The
reverse pass queries in the opposite direction as well, de-duplicating
pairs already found.

Examples:
  logomatch match ./ours ./theirs
  logomatch match --threshold 50 --no-reverse ./ours ./theirs`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Engine.MatchThreshold
			}
			if !cmd.Flags().Changed("no-reverse") {
				noReverse = !cfg.Engine.ReverseComparison
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

			start := time.Now()
			results, err := e.Match(ctx, args[0], args[1], threshold, !noReverse)
			if err != nil {
				return fmt.Errorf("match failed: %w", err)
			}

			return writeReport(cfg, &formatter.Report{
				Match: &formatter.MatchReport{
					FolderA:   args[0],
					FolderB:   args[1],
					Threshold: threshold,
					Results:   results,
					Elapsed:   time.Since(start),
				},
			})
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 70, "minimum fused score for a match (0-100)")
	cmd.Flags().BoolVar(&noReverse, "no-reverse", false, "skip the reverse comparison pass")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "rebuild even when a cached snapshot matches")
	return cmd
}
