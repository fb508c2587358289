package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suarabot/suarabot/internal/chat"
	"github.com/suarabot/suarabot/internal/models"
	"github.com/suarabot/suarabot/internal/quota"
)

var chatAssistant string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with an assistant interactively",
	Long: `Open an interactive test chat with an assistant. Messages go through
the full response flow: Q&A match, knowledge retrieval, completion,
quota accounting. Sessions are persisted as test_chat.

Type 'exit' or press Ctrl+D to quit.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatAssistant, "assistant", "a", "", "assistant ID (required)")
	chatCmd.MarkFlagRequired("assistant")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	assistant, ownerID, err := loadAssistant(ctx, chatAssistant)
	if err != nil {
		return err
	}
	composer, err := getComposer()
	if err != nil {
		return err
	}
	guard := quota.NewGuard(dbClient)

	fmt.Printf("Chatting with %s assistant (%v). Type 'exit' to quit.\n\n", assistant.BusinessType, assistant.ID.ID)

	var sessionUUID string
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		message := scanner.Text()
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			break
		}

		if err := guard.Check(ctx, ownerID); err != nil {
			var limitErr *quota.LimitError
			if errors.As(err, &limitErr) {
				return fmt.Errorf("quota exceeded: %w", limitErr)
			}
			return fmt.Errorf("quota check: %w", err)
		}

		reply, err := composer.Respond(ctx, assistant, chat.Request{
			SessionUUID: sessionUUID,
			Message:     message,
			Source:      models.SourceTestChat,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		sessionUUID = reply.SessionUUID
		fmt.Printf("bot> %s\n", reply.Text)
		if verbose {
			fmt.Printf("     [source: %s, session: %s]\n", reply.Source, reply.SessionUUID)
		}
	}

	return scanner.Err()
}
