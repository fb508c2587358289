package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/suarabot/suarabot/internal/db"
	"github.com/suarabot/suarabot/internal/extract"
	"github.com/suarabot/suarabot/internal/models"
)

var (
	ingestAssistant string
	ingestTitle     string
	ingestText      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Add documents or notes to an assistant's knowledge base",
	Long: `Add documents or manual notes to an assistant's knowledge base and
embed them immediately.

Files must be txt, pdf or docx. For a manual note, pass --title and
--text instead of file arguments.

Examples:
  suarabot ingest menu.pdf opening-hours.txt --assistant a1
  suarabot ingest --assistant a1 --title "Delivery policy" --text "We deliver within 10km..."`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestAssistant, "assistant", "a", "", "assistant ID (required)")
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "title for a manual note")
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "content for a manual note")
	ingestCmd.MarkFlagRequired("assistant")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 0 && ingestText == "" {
		return fmt.Errorf("pass file arguments or --title/--text for a manual note")
	}
	if ingestText != "" && strings.TrimSpace(ingestTitle) == "" {
		return fmt.Errorf("--title is required with --text")
	}

	_, ownerID, err := loadAssistant(ctx, ingestAssistant)
	if err != nil {
		return err
	}

	var items []models.KnowledgeItem

	for _, path := range args {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		if !extract.Supported(abs) {
			return fmt.Errorf("unsupported file type: %s", path)
		}
		item, err := dbClient.CreateKnowledgeItem(ctx, db.KnowledgeItemInput{
			AssistantID: ingestAssistant,
			Title:       filepath.Base(abs),
			SourceFile:  abs,
			Status:      models.StatusUploading,
		})
		if err != nil {
			return fmt.Errorf("create knowledge item for %s: %w", path, err)
		}
		items = append(items, *item)
	}

	if ingestText != "" {
		item, err := dbClient.CreateKnowledgeItem(ctx, db.KnowledgeItemInput{
			AssistantID: ingestAssistant,
			Title:       ingestTitle,
			Content:     ingestText,
			Status:      models.StatusProcessing,
		})
		if err != nil {
			return fmt.Errorf("create manual knowledge item: %w", err)
		}
		items = append(items, *item)
	}

	if verbose {
		for _, item := range items {
			fmt.Printf("Created knowledge item: %s (%v)\n", item.Title, item.ID.ID)
		}
	}

	_, _, pipeline, err := getRetrieval()
	if err != nil {
		return err
	}
	return RunEmbedProgress(ctx, pipeline, items, ownerID)
}
