package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suarabot/suarabot/internal/db"
	"github.com/suarabot/suarabot/internal/models"
)

var (
	assistantEmail        string
	assistantProfile      string
	assistantBusinessType string
	assistantLanguage     string
	assistantInstructions string
)

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Manage tenant assistants",
}

var assistantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an assistant for a tenant",
	Long: `Create an assistant for a tenant profile.

Pass --profile to attach to an existing profile, or --email to create a
new profile first. The generated widget API key is printed once; store
it with the tenant.

Examples:
  suarabot assistant create --email owner@warung.my --business-type Restaurant
  suarabot assistant create --profile p1 --business-type "Law Firm" --language en`,
	RunE: runAssistantCreate,
}

var assistantShowCmd = &cobra.Command{
	Use:   "show <assistant-id>",
	Short: "Show an assistant and its knowledge base status",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssistantShow,
}

func init() {
	assistantCreateCmd.Flags().StringVar(&assistantEmail, "email", "", "create a new profile with this email")
	assistantCreateCmd.Flags().StringVar(&assistantProfile, "profile", "", "attach to an existing profile ID")
	assistantCreateCmd.Flags().StringVarP(&assistantBusinessType, "business-type", "b", "", "business type shown in instructions")
	assistantCreateCmd.Flags().StringVarP(&assistantLanguage, "language", "l", models.LangAuto, "preferred language (en, ms, auto)")
	assistantCreateCmd.Flags().StringVar(&assistantInstructions, "instructions", "", "extra system instructions")

	assistantCmd.AddCommand(assistantCreateCmd)
	assistantCmd.AddCommand(assistantShowCmd)
}

// newAPIKey generates a widget API key.
func newAPIKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return "sk-" + hex.EncodeToString(raw), nil
}

func runAssistantCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if assistantBusinessType == "" {
		return fmt.Errorf("--business-type is required")
	}
	if assistantLanguage != models.LangEnglish && assistantLanguage != models.LangMalay && assistantLanguage != models.LangAuto {
		return fmt.Errorf("invalid language %q (expected en, ms or auto)", assistantLanguage)
	}

	profileID := assistantProfile
	if profileID == "" {
		if assistantEmail == "" {
			return fmt.Errorf("either --profile or --email is required")
		}
		profile, err := dbClient.CreateProfile(ctx, assistantEmail)
		if err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		profileID, err = models.RecordIDString(profile.ID)
		if err != nil {
			return fmt.Errorf("profile id: %w", err)
		}
		fmt.Printf("Created profile: %s (%s)\n", profileID, profile.Email)
	}

	apiKey, err := newAPIKey()
	if err != nil {
		return err
	}

	assistant, err := dbClient.CreateAssistant(ctx, db.AssistantInput{
		ProfileID:          profileID,
		BusinessType:       assistantBusinessType,
		SystemInstructions: assistantInstructions,
		PreferredLanguage:  assistantLanguage,
		APIKey:             apiKey,
	})
	if err != nil {
		return fmt.Errorf("create assistant: %w", err)
	}

	fmt.Printf("Created assistant: %v\n", assistant.ID.ID)
	fmt.Printf("  Business type: %s\n", assistant.BusinessType)
	fmt.Printf("  Language:      %s\n", assistant.PreferredLanguage)
	fmt.Printf("  API key:       %s\n", assistant.APIKey)
	return nil
}

func runAssistantShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	assistant, ownerID, err := loadAssistant(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Assistant %v\n", assistant.ID.ID)
	fmt.Printf("  Owner:         %s\n", ownerID)
	fmt.Printf("  Business type: %s\n", assistant.BusinessType)
	fmt.Printf("  Language:      %s\n", assistant.PreferredLanguage)
	fmt.Printf("  Active:        %v\n", assistant.IsActive)

	items, err := dbClient.ListKnowledgeItems(ctx, args[0])
	if err != nil {
		return fmt.Errorf("list knowledge items: %w", err)
	}
	fmt.Printf("  Knowledge items: %d\n", len(items))
	for _, item := range items {
		fmt.Printf("    - %s [%s]", item.Title, item.Status)
		if item.Status == models.StatusCompleted {
			fmt.Printf(" (%d chunks)", item.ChunksCount)
		}
		fmt.Println()
	}
	return nil
}
