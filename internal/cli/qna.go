package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/suarabot/suarabot/internal/db"
)

var (
	qnaAssistant string
	qnaFile      string
)

var qnaCmd = &cobra.Command{
	Use:   "qna",
	Short: "Manage an assistant's curated Q&A list",
}

var qnaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the Q&A pairs in display order",
	RunE:  runQnAList,
}

var qnaReplaceCmd = &cobra.Command{
	Use:   "replace",
	Short: "Replace the full Q&A list from a YAML file",
	Long: `Replace an assistant's entire Q&A list with the pairs from a YAML
file. The swap is atomic; order follows the file.

File format:
  - question: What are your opening hours?
    answer: We are open daily from 10am to 10pm.
  - question: Do you deliver?
    answer: Yes, within 10km of the store.`,
	RunE: runQnAReplace,
}

func init() {
	qnaCmd.PersistentFlags().StringVarP(&qnaAssistant, "assistant", "a", "", "assistant ID (required)")
	qnaCmd.MarkPersistentFlagRequired("assistant")
	qnaReplaceCmd.Flags().StringVarP(&qnaFile, "file", "f", "", "YAML file with question/answer pairs (required)")
	qnaReplaceCmd.MarkFlagRequired("file")

	qnaCmd.AddCommand(qnaListCmd)
	qnaCmd.AddCommand(qnaReplaceCmd)
}

func runQnAList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	entries, err := dbClient.ListQnAEntries(ctx, qnaAssistant)
	if err != nil {
		return fmt.Errorf("list qna entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No Q&A entries.")
		return nil
	}

	for i, e := range entries {
		fmt.Printf("%d. Q: %s\n   A: %s\n", i+1, e.Question, e.Answer)
	}
	return nil
}

// qnaPair is the YAML shape for one question/answer entry.
type qnaPair struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

func runQnAReplace(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	data, err := os.ReadFile(qnaFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", qnaFile, err)
	}

	var pairs []qnaPair
	if err := yaml.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("parse %s: %w", qnaFile, err)
	}

	inputs := make([]db.QnAInput, 0, len(pairs))
	for i, p := range pairs {
		if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
			return fmt.Errorf("entry %d: question and answer are both required", i+1)
		}
		inputs = append(inputs, db.QnAInput{Question: p.Question, Answer: p.Answer})
	}

	if err := dbClient.ReplaceQnAEntries(ctx, qnaAssistant, inputs); err != nil {
		return fmt.Errorf("replace qna entries: %w", err)
	}
	fmt.Printf("Replaced Q&A list with %d entries.\n", len(inputs))
	return nil
}
