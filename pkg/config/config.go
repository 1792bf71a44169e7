// Package config loads SmartPlan settings from defaults, an optional YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	xdgAppName = "smartplan"
	configFile = "config.yaml"

	DefaultCalendar = "Tasks"
)

// Config holds all configuration for SmartPlan.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Store    StoreConfig    `mapstructure:"store"`
	Timeline TimelineConfig `mapstructure:"timeline"`
	// Calendar is the Google Calendar name plans are synced into.
	Calendar string `mapstructure:"calendar"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	// Mode is the gin mode: debug, release or test.
	Mode string `mapstructure:"mode"`
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	Provider   string         `mapstructure:"provider"`
	Timeout    time.Duration  `mapstructure:"timeout"`
	MaxRetries int            `mapstructure:"max_retries"`
	RetryDelay time.Duration  `mapstructure:"retry_delay"`
	Gemini     ProviderConfig `mapstructure:"gemini"`
	Anthropic  ProviderConfig `mapstructure:"anthropic"`
	OpenAI     ProviderConfig `mapstructure:"openai"`
}

// ProviderConfig holds the credentials and model of a single provider.
type ProviderConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// TimelineConfig holds the pixel geometry of the day view.
type TimelineConfig struct {
	SlotHeight float64 `mapstructure:"slot_height"`
	MinHeight  float64 `mapstructure:"min_height"`
}

// Dir returns the SmartPlan config directory, honoring XDG_CONFIG_HOME.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, xdgAppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// dataDir returns the directory holding the plan database, honoring XDG_DATA_HOME.
func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, xdgAppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", xdgAppName)
	}
	return filepath.Join(home, ".local", "share", xdgAppName)
}

// Load reads .env from the working directory, then the user config file, then
// the environment. A missing config file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration using the YAML file at path, if it exists.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.Calendar == "" {
		cfg.Calendar = DefaultCalendar
	}
	return &cfg, nil
}

// Save persists the user-editable settings to the user config file.
// API keys are never written; they belong in the environment.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath persists the user-editable settings to the YAML file at path,
// keeping any other keys already in it.
func SaveToPath(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.Set("calendar", cfg.Calendar)
	v.Set("llm.provider", cfg.LLM.Provider)
	v.Set("llm.gemini.model", cfg.LLM.Gemini.Model)
	v.Set("llm.anthropic.model", cfg.LLM.Anthropic.Model)
	v.Set("llm.openai.model", cfg.LLM.OpenAI.Model)
	v.Set("store.path", cfg.Store.Path)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Chmod(path, 0600)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.mode", "release")

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_delay", "1s")
	v.SetDefault("llm.gemini.model", "gemini-2.5-flash")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.base_url", "")
	v.SetDefault("llm.gemini.max_tokens", 8192)
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.base_url", "")
	v.SetDefault("llm.anthropic.max_tokens", 8192)
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.openai.max_tokens", 8192)

	v.SetDefault("store.path", filepath.Join(dataDir(), "smartplan.db"))

	v.SetDefault("timeline.slot_height", 40.0)
	v.SetDefault("timeline.min_height", 20.0)

	v.SetDefault("calendar", DefaultCalendar)
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "GIN_MODE")
	v.BindEnv("llm.provider", "LLM_PROVIDER")
	v.BindEnv("llm.gemini.api_key", "GOOGLE_API_KEY", "GEMINI_API_KEY")
	v.BindEnv("llm.gemini.model", "GEMINI_MODEL")
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.anthropic.model", "ANTHROPIC_MODEL")
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.openai.model", "OPENAI_MODEL")
	v.BindEnv("llm.openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("store.path", "SMARTPLAN_DB")
	v.BindEnv("calendar", "SMARTPLAN_CALENDAR")
}
