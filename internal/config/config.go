// Package config loads runtime configuration from the environment and
// an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`

	// OpenAI
	OpenAIKey      string `yaml:"openai_api_key"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	RealtimeModel  string `yaml:"realtime_model"`

	// Embedding file storage
	DataDir string `yaml:"data_dir"`

	// HTTP/websocket server
	ListenAddr string `yaml:"listen_addr"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`

	// RawLogLevel is the unparsed level from YAML.
	RawLogLevel string `yaml:"log_level"`
}

// Load reads configuration from environment variables, applying an
// optional YAML file first (env wins). The file path comes from
// SUARABOT_CONFIG; a missing file is not an error.
func Load() (Config, error) {
	cfg := Config{
		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "suarabot",
		SurrealDBDatabase:  "platform",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",

		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
		RealtimeModel:  "gpt-4o-realtime-preview-2024-12-17",

		DataDir:    "/var/lib/suarabot",
		ListenAddr: ":8080",

		LogFile:     "/tmp/suarabot.log",
		RawLogLevel: "INFO",
	}

	if path := os.Getenv("SUARABOT_CONFIG"); path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg.SurrealDBURL, "SURREALDB_URL")
	applyEnv(&cfg.SurrealDBNamespace, "SURREALDB_NAMESPACE")
	applyEnv(&cfg.SurrealDBDatabase, "SURREALDB_DATABASE")
	applyEnv(&cfg.SurrealDBUser, "SURREALDB_USER")
	applyEnv(&cfg.SurrealDBPass, "SURREALDB_PASS")

	applyEnv(&cfg.OpenAIKey, "OPENAI_API_KEY")
	applyEnv(&cfg.EmbeddingModel, "SUARABOT_EMBEDDING_MODEL")
	applyEnv(&cfg.ChatModel, "SUARABOT_CHAT_MODEL")
	applyEnv(&cfg.RealtimeModel, "SUARABOT_REALTIME_MODEL")

	applyEnv(&cfg.DataDir, "SUARABOT_DATA_DIR")
	applyEnv(&cfg.ListenAddr, "SUARABOT_LISTEN_ADDR")

	applyEnv(&cfg.LogFile, "SUARABOT_LOG_FILE")
	applyEnv(&cfg.RawLogLevel, "SUARABOT_LOG_LEVEL")
	cfg.LogLevel = parseLogLevel(cfg.RawLogLevel)

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

// EnvInt reads an integer env var with a default.
func EnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
