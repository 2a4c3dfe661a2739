package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	boterrors "github.com/ducminhle1904/trend-breakout-bot/internal/errors"
)

// Environment variables holding exchange credentials
const (
	EnvAPIKey         = "BYBIT_API_KEY"
	EnvAPISecret      = "BYBIT_API_SECRET"
	EnvTelegramToken  = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

// LoadEnv loads a .env file into the process environment. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ResolvePath finds a config file. Bare names are looked up in configs/, and a
// missing extension tries .yaml, .yml and .json in that order.
func ResolvePath(name string) string {
	if !strings.ContainsAny(name, "/\\") {
		name = filepath.Join("configs", name)
	}
	if filepath.Ext(name) != "" {
		return name
	}
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		if _, err := os.Stat(name + ext); err == nil {
			return name + ext
		}
	}
	return name + ".yaml"
}

// Load reads a JSON or YAML config file on top of the named preset, fills
// credentials from the environment and validates the result.
func Load(path, preset string) (*Config, error) {
	cfg, ok := Preset(preset)
	if !ok {
		return nil, boterrors.NewConfigurationError("config", "load", fmt.Sprintf("unknown preset %q", preset))
	}

	if path != "" {
		path = ResolvePath(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "config", "load").
				WithContext("path", path)
		}
		if err := Decode(data, filepath.Ext(path), cfg); err != nil {
			return nil, boterrors.WrapError(err, boterrors.ErrorCategoryConfiguration, "config", "parse").
				WithContext("path", path)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode unmarshals data by file extension into cfg, keeping values absent from the file
func Decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".json":
		return json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	}
	return fmt.Errorf("unsupported config format %q", ext)
}

// ApplyEnv copies credentials from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv(EnvAPISecret); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv(EnvTelegramToken); v != "" {
		c.Notify.TelegramToken = v
	}
	if v := os.Getenv(EnvTelegramChatID); v != "" {
		c.Notify.TelegramChatID = v
	}
}

// Save writes cfg as JSON or YAML depending on the extension of path
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
