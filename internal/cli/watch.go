package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/yildizm/LogoMatch/internal/config"
	"github.com/yildizm/LogoMatch/internal/engine"
	"github.com/yildizm/LogoMatch/internal/formatter"
)

// watchDebounce coalesces bursts of filesystem events into one rematch
const watchDebounce = 2 * time.Second

func newWatchCommand() *cobra.Command {
	var (
		threshold float64
		noReverse bool
	)

	cmd := &cobra.Command{
		Use:   "watch <folder-a> <folder-b>",
		Short: "Watch two folders and rematch on changes",
		Long: `Monitor both folders for file changes and rerun the cross-collection
match whenever their contents settle. Each change produces a fresh
fingerprint, so only genuinely modified folder sets trigger a rebuild.
Press Ctrl+C to stop watching.

Examples:
  logomatch watch ./ours ./theirs
  logomatch watch --threshold 50 ./ours ./theirs`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Engine.MatchThreshold
			}

			e, err := newEngine(cfg, newLogger(cfg))
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			return runWatchLoop(ctx, cfg, e, args[0], args[1], threshold, !noReverse)
		},
	}

	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 70, "minimum fused score for a match (0-100)")
	cmd.Flags().BoolVar(&noReverse, "no-reverse", false, "skip the reverse comparison pass")
	return cmd
}

func runWatchLoop(ctx context.Context, cfg *config.Config, e *engine.Engine, folderA, folderB string, threshold float64, reverse bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, folder := range []string{folderA, folderB} {
		if err := watcher.Add(folder); err != nil {
			return fmt.Errorf("watching %s: %w", folder, err)
		}
	}

	// initial pass before any change arrives
	if err := rematch(ctx, cfg, e, folderA, folderB, threshold, reverse); err != nil {
		return err
	}
	fmt.Printf("Watching %s and %s (Ctrl+C to stop)\n", folderA, folderB)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
			} else {
				debounce.Reset(watchDebounce)
			}
			fire = debounce.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Printf("watch error: %v\n", err)

		case <-fire:
			fire = nil
			if err := rematch(ctx, cfg, e, folderA, folderB, threshold, reverse); err != nil {
				if errors.Is(ctx.Err(), context.Canceled) {
					return nil
				}
				fmt.Printf("rematch failed: %v\n", err)
			}
		}
	}
}

func rematch(ctx context.Context, cfg *config.Config, e *engine.Engine, folderA, folderB string, threshold float64, reverse bool) error {
	if err := e.Prepare(ctx, []string{folderA, folderB}, true); err != nil {
		return err
	}

	start := time.Now()
	results, err := e.Match(ctx, folderA, folderB, threshold, reverse)
	if err != nil {
		return err
	}
	return writeReport(cfg, &formatter.Report{
		Match: &formatter.MatchReport{
			FolderA:   folderA,
			FolderB:   folderB,
			Threshold: threshold,
			Results:   results,
			Elapsed:   time.Since(start),
		},
	})
}
