package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yildizm/LogoMatch/internal/cachestore"
	"github.com/yildizm/LogoMatch/internal/logger"
)

// newCacheCommand creates the cache command with subcommands
func newCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached index snapshots",
		Long: `Inspect and clear the on-disk snapshot cache. Snapshots are keyed by
a fingerprint of the prepared folders and invalidate themselves when
any folder changes, so clearing is rarely needed outside of debugging
or reclaiming disk space.`,
	}

	cacheCmd.AddCommand(newCacheClearCommand())
	return cacheCmd
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.New("cli", func() bool { return cfg.Output.Verbose })
			store := cachestore.New(cfg.ExpandCacheDir(), log)

			removed, err := store.Reset()
			if err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Printf("Removed %d snapshot(s) from %s\n", removed, store.Dir())
			return nil
		},
	}
}
