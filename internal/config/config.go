// Package config loads mentor configuration from TOML with env overrides.
package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	LLM      LLMConfig      `toml:"llm"`
	Mentor   MentorConfig   `toml:"mentor"`
	Observer ObserverConfig `toml:"observer"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
	// Minimum delay between streamed events, in milliseconds. Zero disables
	// pacing.
	StreamDelayMS int `toml:"stream_delay_ms"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type MentorConfig struct {
	MaxRounds    int    `toml:"max_rounds"`
	SystemPrompt string `toml:"system_prompt"`
}

type ObserverConfig struct {
	Enabled bool                       `toml:"enabled"`
	Pricing map[string]ObserverPricing `toml:"pricing"`
}

type ObserverPricing struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8000", StreamDelayMS: 10},
		LLM:    LLMConfig{Provider: "gemini", Model: "gemini-2.5-flash"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "mentor.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("MENTOR_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("MENTOR_STREAM_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Server.StreamDelayMS = n
		}
	}
	if v := os.Getenv("MENTOR_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Mentor.MaxRounds = n
		}
	}
	if v := os.Getenv("MENTOR_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("MENTOR_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("MENTOR_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("MENTOR_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if os.Getenv("MENTOR_OBSERVER_ENABLED") == "true" || os.Getenv("MENTOR_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg
}
