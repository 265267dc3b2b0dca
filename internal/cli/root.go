// Package cli wires the logomatch commands: preparing collections,
// comparing image pairs, cross-collection matching, cache management
// and live folder watching.
package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	outputFmt string
)

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logomatch",
		Short: "Visual Logo Similarity Engine",
		Long: `LogoMatch turns folders of logo images into queryable multi-feature
similarity indexes and answers how alike two images or two whole
collections are, with a single fused score per pair.

It combines local keypoint descriptors encoded against a learned visual
vocabulary with three global embeddings, fuses per-feature cosine
similarities under fixed weights, and caches prepared indexes on disk
keyed by a folder-content fingerprint.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "", "output format (text, json, csv, markdown)")

	// Add subcommands
	rootCmd.AddCommand(newPrepareCommand())
	rootCmd.AddCommand(newCompareCommand())
	rootCmd.AddCommand(newMatchCommand())
	rootCmd.AddCommand(newStatsCommand())
	rootCmd.AddCommand(newCacheCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			fmt.Printf("LogoMatch %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
