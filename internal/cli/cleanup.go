package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suarabot/suarabot/internal/embed"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete embedding artifacts no knowledge item references",
	Long: `Scan the embedding data directory and delete artifact files that no
knowledge item references anymore. Items deleted from the database
leave their artifacts behind; this reclaims the space.`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	known, err := dbClient.ListEmbeddingFilePaths(ctx)
	if err != nil {
		return fmt.Errorf("list embedding paths: %w", err)
	}

	store := embed.NewStore(cfg.DataDir)
	removed, err := store.CleanupOrphans(known)
	if err != nil {
		return fmt.Errorf("cleanup orphans: %w", err)
	}

	if len(removed) == 0 {
		fmt.Println("No orphaned embedding files.")
		return nil
	}
	fmt.Printf("Removed %d orphaned embedding files.\n", len(removed))
	if verbose {
		for _, path := range removed {
			fmt.Printf("  - %s\n", path)
		}
	}
	return nil
}
