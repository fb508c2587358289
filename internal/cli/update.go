package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/suarabot/suarabot/internal/models"
)

var (
	updateTitle string
	updateText  string
)

var updateCmd = &cobra.Command{
	Use:   "update <item-id>",
	Short: "Replace a knowledge item's content and re-embed it",
	Long: `Replace a manual knowledge item's content. The item resets to
processing and is re-embedded immediately; the old embedding artifact
is overwritten.

File-backed items are updated by re-ingesting the file instead.

Examples:
  suarabot update k123 --text "We now open at 8am daily."
  suarabot update k123 --title "Opening hours 2026" --text "..."`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVarP(&updateTitle, "title", "t", "", "new title (keeps the current one if omitted)")
	updateCmd.Flags().StringVar(&updateText, "text", "", "new content (required)")
	updateCmd.MarkFlagRequired("text")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if strings.TrimSpace(updateText) == "" {
		return fmt.Errorf("--text must not be empty")
	}

	item, err := dbClient.GetKnowledgeItem(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get knowledge item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("knowledge item %q not found", args[0])
	}
	if item.SourceFile != "" {
		return fmt.Errorf("%s is file-backed; re-ingest the file instead", item.Title)
	}

	title := updateTitle
	if title == "" {
		title = item.Title
	}

	updated, err := dbClient.UpdateKnowledgeContent(ctx, args[0], title, updateText)
	if err != nil {
		return fmt.Errorf("update knowledge content: %w", err)
	}

	assistantID, err := models.RecordIDString(updated.Assistant)
	if err != nil {
		return fmt.Errorf("assistant id: %w", err)
	}
	_, ownerID, err := loadAssistant(ctx, assistantID)
	if err != nil {
		return err
	}

	_, _, pipeline, err := getRetrieval()
	if err != nil {
		return err
	}
	if err := pipeline.Process(ctx, updated, ownerID); err != nil {
		return fmt.Errorf("re-embed: %w", err)
	}

	fmt.Printf("Updated and re-embedded %s (%d chunks).\n", updated.Title, updated.ChunksCount)
	return nil
}
