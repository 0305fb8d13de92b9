package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the assistant settings
const (
	DefaultModel             = "gpt-4"
	DefaultName              = "Workflow Diagram Assistant"
	DefaultPollInterval      = 2 * time.Second
	DefaultTimeout           = 200 * time.Second
	DefaultRateLimitBackoff  = 3
	DefaultFallbackReply     = "Done"
	DefaultRequestsPerSecond = 5
	DefaultBurst             = 5
)

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// AssistantConfig holds the run orchestration settings
type AssistantConfig struct {
	Name              string        `yaml:"name"`
	Model             string        `yaml:"model"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	Timeout           time.Duration `yaml:"timeout"`
	RateLimitBackoff  int           `yaml:"rate_limit_backoff"`
	FallbackReply     string        `yaml:"fallback_reply"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// Config holds all application configuration
type Config struct {
	OpenAI      OpenAIConfig
	Assistant   AssistantConfig
	DBPath      string
	Port        string
	SettingsDir string
}

// Load loads configuration from environment and files
func Load() (*Config, error) {
	settingsDir := getEnvOrDefault("SETTINGS_DIR", "settings")

	cfg := &Config{
		DBPath:      getEnvOrDefault("DB_PATH", ":memory:"),
		Port:        getEnvOrDefault("PORT", "8080"),
		SettingsDir: settingsDir,
	}

	assistantCfg, err := loadAssistantConfig(filepath.Join(settingsDir, "assistant.yaml"))
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(assistantCfg); err != nil {
		return nil, err
	}
	cfg.Assistant = *assistantCfg

	// Load OpenAI config
	openaiCfg, err := loadOpenAIConfig(filepath.Join(settingsDir, "secrets", "openai.yaml"))
	if err != nil {
		return cfg, err
	}
	cfg.OpenAI = *openaiCfg

	return cfg, nil
}

// loadOpenAIConfig loads OpenAI configuration from a YAML file
func loadOpenAIConfig(path string) (*OpenAIConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg OpenAIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadAssistantConfig loads assistant settings from a YAML file.
// A missing file yields the defaults.
func loadAssistantConfig(path string) (*AssistantConfig, error) {
	cfg := defaultAssistantConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	return cfg, nil
}

func defaultAssistantConfig() *AssistantConfig {
	return &AssistantConfig{
		Name:              DefaultName,
		Model:             DefaultModel,
		PollInterval:      DefaultPollInterval,
		Timeout:           DefaultTimeout,
		RateLimitBackoff:  DefaultRateLimitBackoff,
		FallbackReply:     DefaultFallbackReply,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
	}
}

func (c *AssistantConfig) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.RateLimitBackoff < 1 {
		return fmt.Errorf("rate_limit_backoff must be at least 1, got %d", c.RateLimitBackoff)
	}
	return nil
}

func applyEnvOverrides(cfg *AssistantConfig) error {
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL %q: %w", v, err)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("RUN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RUN_TIMEOUT %q: %w", v, err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Model = v
	}
	return cfg.validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
