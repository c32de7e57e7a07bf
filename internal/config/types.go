package config

import "time"

// Config holds all configuration for the server.
type Config struct {
	DBName      string
	Port        string
	Slack       SlackConfig
	Turso       TursoConfig
	ProjectID   string
	RedisURL    string
	CORSOrigins []string
}
type SlackConfig struct {
	Token         string
	ChannelID     string
	SigningSecret string
}
type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

// ClientConfig holds the configuration of a scorekeeper device.
type ClientConfig struct {
	Server       string
	LocalDB      string
	SyncInterval time.Duration
	MaxAttempts  int
}

// SlackEnabled reports whether notifications can be posted for real.
func (c Config) SlackEnabled() bool {
	return c.Slack.Token != "" && c.Slack.ChannelID != ""
}
