package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Client defaults.
const (
	DefaultServer       = "http://localhost:8080"
	DefaultLocalDB      = "courtside-local.db"
	DefaultSyncInterval = 10 * time.Second
	DefaultMaxAttempts  = 8
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}

	cfg := Config{
		DBName: getEnv("DB_NAME"),
		Port:   getEnv("PORT"),
		Slack: SlackConfig{
			Token:         os.Getenv("SLACK_BOT_TOKEN"),
			ChannelID:     os.Getenv("SLACK_CHANNEL_ID"),
			SigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		},
		Turso: TursoConfig{
			PrimaryURL: os.Getenv("TURSO_PRIMARY_URL"),
			AuthToken:  os.Getenv("TURSO_AUTH_TOKEN"),
		},
		ProjectID:   os.Getenv("GCP_PROJECT"),
		RedisURL:    os.Getenv("REDIS_URL"),
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
	}
	return cfg
}

// LoadClient reads the scorekeeper configuration. Every value has a default.
func LoadClient() (ClientConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, reading from environment variables")
	}

	cfg := ClientConfig{
		Server:       envOr("COURTSIDE_SERVER", DefaultServer),
		LocalDB:      envOr("COURTSIDE_LOCAL_DB", DefaultLocalDB),
		SyncInterval: DefaultSyncInterval,
		MaxAttempts:  DefaultMaxAttempts,
	}
	if v := os.Getenv("COURTSIDE_SYNC_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return ClientConfig{}, fmt.Errorf("invalid COURTSIDE_SYNC_INTERVAL %q", v)
		}
		cfg.SyncInterval = d
	}
	if v := os.Getenv("COURTSIDE_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return ClientConfig{}, fmt.Errorf("invalid COURTSIDE_MAX_ATTEMPTS %q", v)
		}
		cfg.MaxAttempts = n
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
