package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultConfig []byte

// OpenAIConfig holds settings for the chat-completion service.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key" env:"GUIDEBOT_OPENAI_API_KEY"`
	BaseURL     string  `yaml:"base_url" env:"GUIDEBOT_OPENAI_BASE_URL"`
	Model       string  `yaml:"model" env:"GUIDEBOT_OPENAI_MODEL"`
	ProxyURL    string  `yaml:"proxy_url" env:"GUIDEBOT_OPENAI_PROXY_URL"`
	Timeout     string  `yaml:"timeout" env:"GUIDEBOT_OPENAI_TIMEOUT"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// DefaultCompletionTimeout bounds a single completion call when the config
// leaves the timeout unset or unparseable.
const DefaultCompletionTimeout = 30 * time.Second

// GetTimeout returns the parsed completion timeout.
func (c *OpenAIConfig) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return DefaultCompletionTimeout
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return DefaultCompletionTimeout
	}
	return d
}

// BotConfig holds assistant behavior settings.
type BotConfig struct {
	Name             string `yaml:"name"`
	Language         string `yaml:"language" env:"GUIDEBOT_BOT_LANGUAGE"`
	HistoryLimit     int    `yaml:"history_limit" env:"GUIDEBOT_BOT_HISTORY_LIMIT"`
	MaxSuggestions   int    `yaml:"max_suggestions"`
	MaxResponseChars int    `yaml:"max_response_chars"`
}

type Config struct {
	Log struct {
		Level string `yaml:"level" env:"GUIDEBOT_LOG_LEVEL"`
	} `yaml:"log"`
	Server struct {
		ListenPort string `yaml:"listen_port" env:"GUIDEBOT_SERVER_PORT"`
		DebugMode  bool   `yaml:"debug_mode" env:"GUIDEBOT_SERVER_DEBUG"`
		Auth       struct {
			Enabled  bool   `yaml:"enabled" env:"GUIDEBOT_AUTH_ENABLED"`
			Username string `yaml:"username" env:"GUIDEBOT_AUTH_USERNAME"`
			Password string `yaml:"password" env:"GUIDEBOT_AUTH_PASSWORD"`
		} `yaml:"auth"`
	} `yaml:"server"`
	OpenAI  OpenAIConfig `yaml:"openai"`
	Bot     BotConfig    `yaml:"bot"`
	Catalog struct {
		Path string `yaml:"path" env:"GUIDEBOT_CATALOG_PATH"`
	} `yaml:"catalog"`
	Database struct {
		Path string `yaml:"path" env:"GUIDEBOT_DATABASE_PATH"`
	} `yaml:"database"`
}

// Load loads configuration from the specified file path.
// It first loads the embedded default configuration, then merges the user config on top.
// Finally, it overrides values with environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfig, &cfg); err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			slog.Warn("config file not found, using defaults", "path", path)
		} else {
			// Unmarshal user config on top of defaults (merges non-zero values)
			expandedData := []byte(os.ExpandEnv(string(data)))
			if err := yaml.Unmarshal(expandedData, &cfg); err != nil {
				return nil, err
			}
			slog.Info("loaded user config", "path", path)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDefault loads the embedded default configuration.
func LoadDefault() (*Config, error) {
	return Load("")
}

// DefaultConfigBytes returns the raw embedded default configuration.
// Useful for generating example config files.
func DefaultConfigBytes() []byte {
	return defaultConfig
}

// Validate checks configuration for required fields and valid ranges.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []error

	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("openai.api_key is required"))
	}
	if c.OpenAI.Model == "" {
		errs = append(errs, errors.New("openai.model is required"))
	}
	if c.Catalog.Path == "" {
		errs = append(errs, errors.New("catalog.path is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	if c.OpenAI.Timeout != "" {
		if _, err := time.ParseDuration(c.OpenAI.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("openai.timeout: invalid duration format %q: %w", c.OpenAI.Timeout, err))
		}
	}
	if c.OpenAI.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("openai.max_tokens must be positive, got %d", c.OpenAI.MaxTokens))
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("openai.temperature must be between 0 and 2, got %f", c.OpenAI.Temperature))
	}

	if c.Bot.HistoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("bot.history_limit must be positive, got %d", c.Bot.HistoryLimit))
	}
	if c.Bot.MaxSuggestions <= 0 {
		errs = append(errs, fmt.Errorf("bot.max_suggestions must be positive, got %d", c.Bot.MaxSuggestions))
	}
	if c.Bot.MaxResponseChars <= 0 {
		errs = append(errs, fmt.Errorf("bot.max_response_chars must be positive, got %d", c.Bot.MaxResponseChars))
	}

	if c.Server.Auth.Enabled && c.Server.Auth.Username == "" {
		errs = append(errs, errors.New("server.auth.username is required when server.auth.enabled is true"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
