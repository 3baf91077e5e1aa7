// Package config loads service settings from an optional YAML file with
// environment variable overrides. Provider credentials are construction-time
// configuration: a provider whose key is absent is simply never built.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// Config holds all service settings.
	Config struct {
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		Environment string `yaml:"environment"`

		OpenAIAPIKey    string `yaml:"openai_api_key"`
		AnthropicAPIKey string `yaml:"anthropic_api_key"`

		MaxTokens      int           `yaml:"max_tokens"`
		Temperature    float64       `yaml:"temperature"`
		RequestTimeout time.Duration `yaml:"request_timeout"`

		// RateLimitTPM caps remote provider usage in tokens per minute.
		// Zero disables rate limiting.
		RateLimitTPM int `yaml:"rate_limit_tpm"`

		Ollama OllamaConfig `yaml:"ollama"`

		Debug bool `yaml:"debug"`
	}

	// OllamaConfig holds local provider settings.
	OllamaConfig struct {
		BaseURL string        `yaml:"base_url"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
	}
)

// ErrNoProviders indicates that neither remote API key is configured. The
// service can still serve the local provider, so callers treat this as fatal
// only in production.
var ErrNoProviders = errors.New("no AI API key configured (set OPENAI_API_KEY or ANTHROPIC_API_KEY)")

// Default returns the built-in settings used when no file or environment
// override applies.
func Default() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8000,
		Environment:    "development",
		MaxTokens:      4000,
		Temperature:    0.7,
		RequestTimeout: 300 * time.Second,
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "gpt-oss:latest",
			Timeout: 120 * time.Second,
		},
	}
}

// Load reads settings from path (optional: "" skips the file) and then
// applies environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Host, "HOST")
	setInt(&c.Port, "PORT")
	setString(&c.Environment, "ENVIRONMENT")
	setString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setInt(&c.MaxTokens, "MAX_TOKENS")
	setFloat(&c.Temperature, "TEMPERATURE")
	setSeconds(&c.RequestTimeout, "REQUEST_TIMEOUT")
	setInt(&c.RateLimitTPM, "RATE_LIMIT_TPM")
	setString(&c.Ollama.BaseURL, "OLLAMA_BASE_URL")
	setString(&c.Ollama.Model, "OLLAMA_MODEL")
	setSeconds(&c.Ollama.Timeout, "OLLAMA_TIMEOUT")
	if v := os.Getenv("DEBUG"); v != "" {
		c.Debug = v == "1" || v == "true"
	}
}

// ValidateKeys reports whether at least one remote provider credential is
// present. The local provider needs no credential.
func (c *Config) ValidateKeys() error {
	if c.OpenAIAPIKey == "" && c.AnthropicAPIKey == "" {
		return ErrNoProviders
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setSeconds(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(n) * time.Second
		}
	}
}
