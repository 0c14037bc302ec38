package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/chatrelay/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable that maps to a config key.
const EnvPrefix = "CHATRELAY"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the CHATRELAY_ prefix. GEMINI_API_KEY is also accepted for
// gemini.api_key.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (CHATRELAY_RELAY_LISTEN, GEMINI_API_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The prefixed variable wins when both are set.
	if err := v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("binding api key env: %w", err)
	}

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("relay.listen", d.Relay.Listen)
	v.SetDefault("relay.path", d.Relay.Path)
	v.SetDefault("relay.backend", d.Relay.Backend)

	v.SetDefault("gemini.base_url", d.Gemini.BaseURL)
	v.SetDefault("gemini.model", d.Gemini.Model)
	v.SetDefault("gemini.api_key", d.Gemini.APIKey)
	v.SetDefault("gemini.prompt_template", d.Gemini.PromptTemplate)
	v.SetDefault("gemini.temperature", d.Gemini.Temperature)
	v.SetDefault("gemini.top_k", d.Gemini.TopK)
	v.SetDefault("gemini.top_p", d.Gemini.TopP)
	v.SetDefault("gemini.max_output_tokens", d.Gemini.MaxOutputTokens)
	v.SetDefault("gemini.timeout", d.Gemini.Timeout)

	v.SetDefault("client.relay_target", d.Client.RelayTarget)
	v.SetDefault("client.bearer_token", d.Client.BearerToken)

	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)
}

// FromViper materialises the resolved values of v into a Config.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Relay: RelayConfig{
			Listen:  v.GetString("relay.listen"),
			Path:    v.GetString("relay.path"),
			Backend: v.GetString("relay.backend"),
		},
		Gemini: GeminiConfig{
			BaseURL:         v.GetString("gemini.base_url"),
			Model:           v.GetString("gemini.model"),
			APIKey:          v.GetString("gemini.api_key"),
			PromptTemplate:  v.GetString("gemini.prompt_template"),
			Temperature:     v.GetFloat64("gemini.temperature"),
			TopK:            v.GetInt("gemini.top_k"),
			TopP:            v.GetFloat64("gemini.top_p"),
			MaxOutputTokens: v.GetInt("gemini.max_output_tokens"),
			Timeout:         v.GetString("gemini.timeout"),
		},
		Client: ClientConfig{
			RelayTarget: v.GetString("client.relay_target"),
			BearerToken: v.GetString("client.bearer_token"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  v.GetString("eventstream.brokers"),
			Topic:    v.GetString("eventstream.topic"),
		},
	}
}
