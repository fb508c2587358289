package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suarabot/suarabot/internal/models"
	"github.com/suarabot/suarabot/internal/session"
)

var (
	sessionsAssistant string
	sessionsSource    string
	sessionsLimit     int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect an assistant's chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions with message counts and previews",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-uuid>",
	Short: "Show a session's full transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-uuid>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show session counts by source",
	RunE:  runSessionsStats,
}

func init() {
	sessionsCmd.PersistentFlags().StringVarP(&sessionsAssistant, "assistant", "a", "", "assistant ID (required)")
	sessionsCmd.MarkPersistentFlagRequired("assistant")
	sessionsListCmd.Flags().StringVarP(&sessionsSource, "source", "s", "", "filter by source (test_chat, widget_chat, ...)")
	sessionsListCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", models.DefaultSessionLimit, "max sessions")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsStatsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc := session.NewService(dbClient)
	summaries, err := svc.List(ctx, sessionsAssistant, models.SessionSource(sessionsSource), sessionsLimit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	for _, sum := range summaries {
		fmt.Printf("%s  [%s]  %d messages\n", sum.Session.SessionID, sum.Session.Source, sum.MessageCount)
		if sum.Preview != "" {
			fmt.Printf("  %s\n", sum.Preview)
		}
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc := session.NewService(dbClient)
	detail, err := svc.Get(ctx, sessionsAssistant, args[0])
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if detail == nil {
		return fmt.Errorf("session %q not found", args[0])
	}

	fmt.Printf("Session %s [%s]\n\n", detail.Session.SessionID, detail.Session.Source)
	for _, m := range detail.Messages {
		voice := ""
		if m.IsVoice {
			voice = " (voice)"
		}
		fmt.Printf("%s%s: %s\n", m.Role, voice, m.Content)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc := session.NewService(dbClient)
	ok, err := svc.Delete(ctx, sessionsAssistant, args[0])
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %q not found", args[0])
	}
	fmt.Println("Session deleted.")
	return nil
}

func runSessionsStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc := session.NewService(dbClient)
	stats, err := svc.Stats(ctx, sessionsAssistant)
	if err != nil {
		return fmt.Errorf("session stats: %w", err)
	}

	fmt.Printf("Sessions: %d\n", stats.TotalSessions)
	fmt.Printf("Messages: %d\n", stats.TotalMessages)
	for source, count := range stats.BySource {
		fmt.Printf("  %s: %d\n", source, count)
	}
	return nil
}
