package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suarabot/suarabot/internal/embed"
)

var (
	searchAssistant string
	searchLimit     int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search an assistant's knowledge base",
	Long: `Search an assistant's knowledge base by cosine similarity and print
the matching chunks with their scores.

Useful for checking what the assistant would cite for a question
without running a completion.

Examples:
  suarabot search "do you deliver to Subang Jaya" --assistant a1
  suarabot search "berapa harga nasi lemak" --assistant a1 --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchAssistant, "assistant", "a", "", "assistant ID (required)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", embed.DefaultTopK, "max results")
	searchCmd.MarkFlagRequired("assistant")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := context.Background()

	if _, _, err := loadAssistant(ctx, searchAssistant); err != nil {
		return err
	}
	_, retriever, _, err := getRetrieval()
	if err != nil {
		return err
	}

	matches, err := retriever.Search(ctx, searchAssistant, query, searchLimit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(matches) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(matches))
	for i, m := range matches {
		fmt.Printf("%d. %s  %.1f%%\n", i+1, m.Source, m.Score*100)
		text := m.Text
		if !verbose && len(text) > 200 {
			text = text[:200] + "..."
		}
		fmt.Printf("   %s\n\n", text)
	}
	return nil
}
