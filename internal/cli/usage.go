package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage <profile-id>",
	Short: "Show a tenant's monthly quota usage",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsage,
}

func runUsage(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	profile, err := dbClient.GetProfile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	if profile == nil {
		return fmt.Errorf("profile %q not found", args[0])
	}

	fmt.Printf("Profile %v (%s)\n", profile.ID.ID, profile.Email)
	fmt.Printf("  Approved: %v\n", profile.IsApproved)
	fmt.Printf("  API requests: %s\n", formatQuota(profile.APIRequestsUsed, profile.MonthlyAPILimit))
	fmt.Printf("  Tokens:       %s\n", formatQuota(profile.TokensUsed, profile.MonthlyTokenLimit))
	return nil
}

// formatQuota renders used/limit, with zero meaning unlimited.
func formatQuota(used, limit int) string {
	if limit == 0 {
		return fmt.Sprintf("%d (unlimited)", used)
	}
	return fmt.Sprintf("%d / %d", used, limit)
}
