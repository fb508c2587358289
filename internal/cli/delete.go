package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suarabot/suarabot/internal/embed"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <item-id>",
	Short: "Delete a knowledge item and its files",
	Long: `Delete a knowledge item: the database record, its embedding artifact
and, for file uploads, the stored source document.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	item, err := dbClient.GetKnowledgeItem(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get knowledge item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("knowledge item %q not found", args[0])
	}

	store := embed.NewStore(cfg.DataDir)
	deleted, err := embed.DeleteItem(ctx, dbClient, store, item)
	if err != nil {
		return fmt.Errorf("delete %s: %w", item.Title, err)
	}
	if !deleted {
		return fmt.Errorf("knowledge item %q not found", args[0])
	}

	fmt.Printf("Deleted %s.\n", item.Title)
	return nil
}
