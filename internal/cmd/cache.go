package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent search cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired search cache entries",
	Long: `Delete expired rows from the libsql search cache. The in-memory cache used by
default expires entries on its own and needs no purge.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadedConfig()
		if err != nil {
			return err
		}
		if cfg.Cache.Backend != "libsql" {
			return errors.New("cache purge requires cache.backend=libsql")
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		purged, err := db.PurgeExpiredSearches(cmd.Context())
		if err != nil {
			return err
		}
		return writeRendered(cmd, fmt.Sprintf("Purged %d expired search cache entries.", purged))
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	cachePurgeCmd.Flags().String("out", "", "write output to a file instead of stdout")
}
