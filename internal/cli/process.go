package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var processAssistant string

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Embed an assistant's pending knowledge items",
	Long: `Sweep an assistant's unfinished knowledge items (uploading,
processing or errored) through the embedding pipeline.

Use after an aborted ingest or to retry failed items.`,
	RunE: runProcess,
}

var validateAssistant string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Re-embed completed items whose content changed",
	Long: `Check every completed knowledge item against its stored content hash
and re-embed the ones that drifted. Items with unreadable embedding
artifacts count as outdated.`,
	RunE: runValidate,
}

func init() {
	processCmd.Flags().StringVarP(&processAssistant, "assistant", "a", "", "assistant ID (required)")
	processCmd.MarkFlagRequired("assistant")

	validateCmd.Flags().StringVarP(&validateAssistant, "assistant", "a", "", "assistant ID (required)")
	validateCmd.MarkFlagRequired("assistant")
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, ownerID, err := loadAssistant(ctx, processAssistant)
	if err != nil {
		return err
	}
	_, _, pipeline, err := getRetrieval()
	if err != nil {
		return err
	}

	if err := pipeline.ProcessKnowledgeBase(ctx, processAssistant, ownerID); err != nil {
		return fmt.Errorf("process knowledge base: %w", err)
	}
	fmt.Println("Knowledge base processed.")
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, ownerID, err := loadAssistant(ctx, validateAssistant)
	if err != nil {
		return err
	}
	_, _, pipeline, err := getRetrieval()
	if err != nil {
		return err
	}

	refreshed, err := pipeline.RefreshOutdated(ctx, validateAssistant, ownerID)
	if err != nil {
		return fmt.Errorf("refresh outdated items: %w", err)
	}
	if refreshed == 0 {
		fmt.Println("All embeddings are up to date.")
	} else {
		fmt.Printf("Re-embedded %d outdated items.\n", refreshed)
	}
	return nil
}
