// Package cli provides the suarabot command-line interface for tenant
// and knowledge base administration.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suarabot/suarabot/internal/chat"
	"github.com/suarabot/suarabot/internal/config"
	"github.com/suarabot/suarabot/internal/db"
	"github.com/suarabot/suarabot/internal/embed"
	"github.com/suarabot/suarabot/internal/llm"
	"github.com/suarabot/suarabot/internal/models"
	"github.com/suarabot/suarabot/internal/quota"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client

	// Lazy-initialized LLM components
	embedder *llm.Embedder
	model    *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "suarabot",
	Short: "Multi-tenant AI customer service assistant platform",
	Long: `Suarabot runs AI customer service assistants for small businesses.

Each assistant answers from a curated Q&A list first, then from its
embedded knowledge base, and finally from the model alone. This CLI
manages tenants, ingests knowledge documents, and inspects sessions;
the widget-facing transport runs separately as suarabot-server.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
		}

		dbClient, err = db.NewClient(ctx, dbCfg, nil)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// getEmbedder lazily initializes the embedding client. Commands that
// never touch vectors skip the API key requirement.
func getEmbedder() (*llm.Embedder, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}
	}
	return embedder, nil
}

// getRetrieval builds the embedding store, retriever and pipeline.
func getRetrieval() (*embed.Store, *embed.Retriever, *embed.Pipeline, error) {
	emb, err := getEmbedder()
	if err != nil {
		return nil, nil, nil, err
	}
	store := embed.NewStore(cfg.DataDir)
	retriever := embed.NewRetriever(store, dbClient, emb, nil)
	pipeline := embed.NewPipeline(store, dbClient, emb, cfg.EmbeddingModel, nil)
	return store, retriever, pipeline, nil
}

// getComposer builds the full chat stack for interactive testing.
func getComposer() (*chat.Composer, error) {
	_, retriever, _, err := getRetrieval()
	if err != nil {
		return nil, err
	}
	if model == nil {
		model, err = llm.NewModel(cfg)
		if err != nil {
			return nil, fmt.Errorf("init model: %w", err)
		}
	}
	guard := quota.NewGuard(dbClient)
	return chat.NewComposer(dbClient, retriever, model, nil, guard, cfg.ChatModel, nil), nil
}

// loadAssistant resolves an assistant ID to the record plus its owner's
// profile ID.
func loadAssistant(ctx context.Context, id string) (*models.Assistant, string, error) {
	assistant, err := dbClient.GetAssistant(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("get assistant: %w", err)
	}
	if assistant == nil {
		return nil, "", fmt.Errorf("assistant %q not found", id)
	}
	ownerID, err := models.RecordIDString(assistant.User)
	if err != nil {
		return nil, "", fmt.Errorf("assistant owner: %w", err)
	}
	return assistant, ownerID, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(assistantCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(qnaCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(usageCmd)
}
