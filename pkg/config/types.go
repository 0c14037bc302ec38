package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent chatrelay configuration stored as
// config.toml in the .chatrelay/ directory.
type Config struct {
	Version     int               `toml:"version"`
	Relay       RelayConfig       `toml:"relay"`
	Gemini      GeminiConfig      `toml:"gemini"`
	Client      ClientConfig      `toml:"client"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// RelayConfig holds settings for the streaming relay server.
type RelayConfig struct {
	Listen  string `toml:"listen,omitempty"`
	Path    string `toml:"path,omitempty"`
	Backend string `toml:"backend,omitempty"`
}

// GeminiConfig holds upstream model settings.
type GeminiConfig struct {
	BaseURL         string  `toml:"base_url,omitempty"`
	Model           string  `toml:"model,omitempty"`
	APIKey          string  `toml:"api_key,omitempty"`
	PromptTemplate  string  `toml:"prompt_template,omitempty"`
	Temperature     float64 `toml:"temperature,omitempty"`
	TopK            int     `toml:"top_k,omitempty"`
	TopP            float64 `toml:"top_p,omitempty"`
	MaxOutputTokens int     `toml:"max_output_tokens,omitempty"`
	Timeout         string  `toml:"timeout,omitempty"`
}

// ClientConfig holds settings for "chatrelay chat", which connects to a
// running relay. RelayTarget is a full URL including the chat path.
type ClientConfig struct {
	RelayTarget string `toml:"relay_target,omitempty"`
	BearerToken string `toml:"bearer_token,omitempty"`
}

// EventStreamConfig selects where completed exchanges are published.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func oneOfKey(key string, field func(c *Config) *string, allowed ...string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			for _, a := range allowed {
				if v == a {
					*field(c) = v
					return nil
				}
			}
			return fmt.Errorf("invalid value for %s: %q (expected one of %v)", key, v, allowed)
		},
	}
}

func floatKey(key string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatFloat(*field(c), 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = f
			return nil
		},
	}
}

func intKey(key string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if n <= 0 {
				return fmt.Errorf("invalid value for %s: must be positive", key)
			}
			*field(c) = n
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"relay.listen": stringKey(func(c *Config) *string { return &c.Relay.Listen }),
	"relay.path":   stringKey(func(c *Config) *string { return &c.Relay.Path }),
	"relay.backend": oneOfKey("relay.backend",
		func(c *Config) *string { return &c.Relay.Backend }, BackendHTTP, BackendGenAI),

	"gemini.base_url":        stringKey(func(c *Config) *string { return &c.Gemini.BaseURL }),
	"gemini.model":           stringKey(func(c *Config) *string { return &c.Gemini.Model }),
	"gemini.api_key":         stringKey(func(c *Config) *string { return &c.Gemini.APIKey }),
	"gemini.prompt_template": stringKey(func(c *Config) *string { return &c.Gemini.PromptTemplate }),
	"gemini.temperature":     floatKey("gemini.temperature", func(c *Config) *float64 { return &c.Gemini.Temperature }),
	"gemini.top_k":           intKey("gemini.top_k", func(c *Config) *int { return &c.Gemini.TopK }),
	"gemini.top_p":           floatKey("gemini.top_p", func(c *Config) *float64 { return &c.Gemini.TopP }),
	"gemini.max_output_tokens": intKey("gemini.max_output_tokens",
		func(c *Config) *int { return &c.Gemini.MaxOutputTokens }),
	"gemini.timeout": {
		get: func(c *Config) string { return c.Gemini.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for gemini.timeout: %w", err)
			}
			c.Gemini.Timeout = v
			return nil
		},
	},

	"client.relay_target": stringKey(func(c *Config) *string { return &c.Client.RelayTarget }),
	"client.bearer_token": stringKey(func(c *Config) *string { return &c.Client.BearerToken }),

	"eventstream.provider": oneOfKey("eventstream.provider",
		func(c *Config) *string { return &c.EventStream.Provider }, EventStreamNop, EventStreamKafka),
	"eventstream.brokers": stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":   stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
}

// orderedKeys lists configKeys in the TOML section layout order.
var orderedKeys = []string{
	"relay.listen",
	"relay.path",
	"relay.backend",
	"gemini.base_url",
	"gemini.model",
	"gemini.api_key",
	"gemini.prompt_template",
	"gemini.temperature",
	"gemini.top_k",
	"gemini.top_p",
	"gemini.max_output_tokens",
	"gemini.timeout",
	"client.relay_target",
	"client.bearer_token",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
}
