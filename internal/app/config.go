package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the aggregate runtime configuration. Values come from
// DefaultConfig, then an optional YAML file, then environment variables,
// in that order. Command-line flags are applied last by the caller.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// AnthropicAPIKey authorizes model completions. Empty leaves the LLM
	// client unconfigured; LLM-backed agents fail open.
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// TavilyAPIKey authorizes web searches for the reviews and
	// price_comparison agents.
	TavilyAPIKey string `yaml:"tavily_api_key"`

	// SafeBrowsingAPIKey authorizes Safe Browsing v4 lookups.
	SafeBrowsingAPIKey string `yaml:"safe_browsing_api_key"`

	// DBPath is the SQLite file backing analysis history. Empty disables
	// the history store and its routes.
	DBPath string `yaml:"db_path"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// TextModel and VisionModel override the default model IDs.
	TextModel   string `yaml:"text_model"`
	VisionModel string `yaml:"vision_model"`

	// LLMMaxConcurrent caps in-flight completions across all agents.
	LLMMaxConcurrent int `yaml:"llm_max_concurrent"`

	// LLMTimeoutSeconds bounds one completion HTTP call. Vision calls
	// are slow, so this is deliberately generous.
	LLMTimeoutSeconds int `yaml:"llm_timeout_seconds"`

	// AgentTimeoutSeconds bounds each agent individually.
	AgentTimeoutSeconds int `yaml:"agent_timeout_seconds"`
}

// DefaultConfig returns a Config populated with production defaults.
func DefaultConfig() Config {
	return Config{
		Addr:                ":8080",
		DBPath:              "confiable.db",
		LogLevel:            "info",
		LLMMaxConcurrent:    4,
		LLMTimeoutSeconds:   60,
		AgentTimeoutSeconds: 30,
	}
}

// LoadConfig builds a Config from defaults, the YAML file at path (skipped
// when path is empty, an error when it cannot be read or parsed) and
// environment variable overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables onto the config. A variable that
// is set but empty still overrides, so CONFIABLE_DB="" disables history.
func (c *Config) applyEnv() {
	for _, ov := range []struct {
		name string
		dst  *string
	}{
		{"CONFIABLE_ADDR", &c.Addr},
		{"ANTHROPIC_API_KEY", &c.AnthropicAPIKey},
		{"TAVILY_API_KEY", &c.TavilyAPIKey},
		{"SAFE_BROWSING_API_KEY", &c.SafeBrowsingAPIKey},
		{"CONFIABLE_DB", &c.DBPath},
		{"CONFIABLE_LOG_LEVEL", &c.LogLevel},
	} {
		if v, ok := os.LookupEnv(ov.name); ok {
			*ov.dst = v
		}
	}
}
