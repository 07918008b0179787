// Package config loads the JSON configuration file and the optional .env file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPath       = "config/config.json"
	DefaultAPIKeyEnv  = "OPENAI_API_KEY"
	DefaultServerAddr = ":8080"
	DefaultDBPath     = "content_workflow.db"
)

// Config is the on-disk configuration.
type Config struct {
	ServerAddr     string        `json:"server_addr,omitempty"`
	RequestTimeout Duration      `json:"request_timeout,omitempty"`
	LogLevel       string        `json:"log_level,omitempty"`
	LLM            *LLMConfig    `json:"llm,omitempty"`
	History        HistoryConfig `json:"history"`
	// TemplatesPath points at a YAML prompt set; empty uses the built-in prompts.
	TemplatesPath string `json:"templates_path,omitempty"`
}

// LLMConfig 描述生成阶段使用的模型。
type LLMConfig struct {
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	APIKey      string   `json:"api_key,omitempty"`
	APIKeyEnv   string   `json:"api_key_env,omitempty"`
	BaseURL     string   `json:"base_url,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxRetries  *int     `json:"max_retries,omitempty"`
}

// HistoryConfig selects the saved-run backend.
type HistoryConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	RedisAddr   string `json:"redis_addr,omitempty"`
	RedisPrefix string `json:"redis_prefix,omitempty"`
}

// Duration accepts "90s"-style strings in JSON.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"60s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	temp := 0.7
	retries := 2
	return Config{
		ServerAddr:     DefaultServerAddr,
		RequestTimeout: Duration{60 * time.Second},
		LogLevel:       "info",
		LLM: &LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   DefaultAPIKeyEnv,
			Temperature: &temp,
			MaxRetries:  &retries,
		},
		History: HistoryConfig{Driver: "sqlite", Path: DefaultDBPath},
	}
}

// LoadConfig reads JSON config from disk over the defaults. A missing file is
// not an error. Variables from a .env file in the working directory are loaded
// first so api_key_env can refer to them.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, err
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.fill()
	return cfg, cfg.Validate()
}

// fill restores defaults the file blanked out and resolves the API key.
func (c *Config) fill() {
	def := Default()
	if c.ServerAddr == "" {
		c.ServerAddr = def.ServerAddr
	}
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LLM == nil {
		c.LLM = def.LLM
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = def.LLM.Provider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.LLM.Temperature == nil {
		c.LLM.Temperature = def.LLM.Temperature
	}
	if c.LLM.MaxRetries == nil {
		c.LLM.MaxRetries = def.LLM.MaxRetries
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = strings.TrimSpace(os.Getenv(c.LLM.APIKeyEnv))
	}
	if c.History.Driver == "" {
		c.History.Driver = def.History.Driver
	}
	if c.History.Path == "" {
		c.History.Path = def.History.Path
	}
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	if c.LLM != nil && c.LLM.Temperature != nil {
		if t := *c.LLM.Temperature; t < 0 || t > 2 {
			return fmt.Errorf("llm.temperature %.2f out of range [0,2]", t)
		}
	}
	if c.RequestTimeout.Duration < 0 {
		return errors.New("request_timeout must be positive")
	}
	switch c.History.Driver {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("history.driver %q not supported", c.History.Driver)
	}
	return nil
}
