// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/saldin/whatsapp-gateway/internal/bot"
	"github.com/saldin/whatsapp-gateway/internal/intent"
	"github.com/saldin/whatsapp-gateway/internal/whatsapp"
)

// Config holds everything the webhook service needs to run.
type Config struct {
	Port        string
	DatabaseURL string

	// Meta Cloud API credentials.
	VerifyToken   string
	MetaToken     string
	PhoneNumberID string
	GraphBaseURL  string

	GeminiModel string

	// Optional GCS bucket for archiving inbound media. Empty disables archival.
	MediaBucket string

	StatementLimit int
	EditSessionTTL time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		VerifyToken:    os.Getenv("WHATSAPP_VERIFY_TOKEN"),
		MetaToken:      os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		PhoneNumberID:  os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		GraphBaseURL:   getEnv("GRAPH_API_BASE_URL", whatsapp.DefaultBaseURL),
		GeminiModel:    getEnv("GEMINI_MODEL", intent.DefaultModelName),
		MediaBucket:    os.Getenv("MEDIA_BUCKET"),
		StatementLimit: bot.DefaultStatementLimit,
		EditSessionTTL: bot.DefaultEditTTL,
	}

	if v := os.Getenv("STATEMENT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid STATEMENT_LIMIT %q", v)
		}
		cfg.StatementLimit = n
	}

	if v := os.Getenv("EDIT_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid EDIT_SESSION_TTL %q", v)
		}
		cfg.EditSessionTTL = d
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.VerifyToken == "" {
		return nil, fmt.Errorf("WHATSAPP_VERIFY_TOKEN is required")
	}
	if cfg.MetaToken == "" {
		return nil, fmt.Errorf("WHATSAPP_ACCESS_TOKEN is required")
	}
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("WHATSAPP_PHONE_NUMBER_ID is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
