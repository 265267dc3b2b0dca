package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yildizm/LogoMatch/internal/formatter"
)

func newCompareCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <image-a> <image-b>",
		Short: "Score the similarity of two images",
		Long: `Extract features from both images and report the fused similarity
score with its per-feature breakdown. Works standalone, without any
prepared folders.

Examples:
  logomatch compare logo-old.png logo-new.png
  logomatch compare -o json a.png b.png`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			e, err := newEngine(cfg, newLogger(cfg))
			if err != nil {
				return err
			}

			score, err := e.Compare(args[0], args[1])
			if err != nil {
				return fmt.Errorf("compare failed: %w", err)
			}

			return writeReport(cfg, &formatter.Report{
				Compare: &formatter.CompareReport{
					ImageA: args[0],
					ImageB: args[1],
					Score:  score,
				},
			})
		},
	}
}
