// Package config loads credentials and paths from the environment.
package config

import (
	"fmt"
	"os"
)

// Config is the process-level environment configuration. Hook definitions
// live in the hooks file, not here.
type Config struct {
	DiscordToken string // DISCORD_TOKEN, required
	ChannelID    string // DISCORD_CHANNEL_ID, default target for one-shot sends
	HooksFile    string // HOOKS_FILE, default ./hooks.yaml
	PromptsDir   string // PROMPTS_DIR, default ./prompts
	LogLevel     string // LOG_LEVEL, default info
}

// Load reads configuration from environment variables. Only the token is
// required; everything else has a default or is optional.
func Load() (*Config, error) {
	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN not set")
	}

	cfg := &Config{
		DiscordToken: token,
		ChannelID:    os.Getenv("DISCORD_CHANNEL_ID"),
		HooksFile:    envOr("HOOKS_FILE", "./hooks.yaml"),
		PromptsDir:   envOr("PROMPTS_DIR", "./prompts"),
		LogLevel:     envOr("LOG_LEVEL", "info"),
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
