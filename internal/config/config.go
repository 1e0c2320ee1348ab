// Package config handles configuration for golemchat.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/stoky/golemchat/internal/models"
)

// APIKeyEnv is the environment variable holding the API key. A .env file
// in the working directory is honored as well.
const APIKeyEnv = "GEMINI_API_KEY"

// MarkdownConfig configures markdown rendering of replies.
type MarkdownConfig struct {
	Style            string `json:"style"`             // "dark", "light", or path to a JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`      // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"` // Preserve original line breaks
}

// Config represents the user configuration.
type Config struct {
	DefaultModel string `json:"default_model"`
	// SystemPrompt overrides the built-in persona prompt when set.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// MaxOutputTokens bounds the reply size. 0 keeps the default (8192).
	MaxOutputTokens int32 `json:"max_output_tokens,omitempty"`
	// Temperature is the sampling temperature. Nil keeps the default (0.7).
	Temperature *float32 `json:"temperature,omitempty"`
	// CopyToClipboard copies the reply after a one-shot query.
	CopyToClipboard bool `json:"copy_to_clipboard"`
	// Verbose enables debug logging.
	Verbose  bool           `json:"verbose"`
	Markdown MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration.
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultModel:    models.DefaultModel,
		CopyToClipboard: false,
		Verbose:         false,
		Markdown:        DefaultMarkdownConfig(),
	}
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".golemchat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// GetConfigPath returns the path to the config file.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadConfig reads the config file, falling back to defaults when it does
// not exist.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	path, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = models.DefaultModel
	}
	return cfg, nil
}

// SaveConfig writes the config file.
func SaveConfig(cfg Config) error {
	if _, err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// GetAPIKey resolves the API key from the environment, loading a local
// .env file first if present.
func GetAPIKey() (string, error) {
	_ = godotenv.Load()

	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s is not set (export it or add it to a .env file)", APIKeyEnv)
	}
	return key, nil
}
