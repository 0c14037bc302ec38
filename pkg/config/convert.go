package config

import (
	"strings"
	"time"

	"github.com/papercomputeco/chatrelay/pkg/gemini"
)

// GeminiTimeout parses Gemini.Timeout. Unparseable or empty values yield
// gemini.DefaultTimeout.
func (c *Config) GeminiTimeout() time.Duration {
	d, err := time.ParseDuration(c.Gemini.Timeout)
	if err != nil || d <= 0 {
		return gemini.DefaultTimeout
	}
	return d
}

// ToGemini builds the upstream client configuration.
func (c *Config) ToGemini() gemini.Config {
	return gemini.Config{
		BaseURL:        c.Gemini.BaseURL,
		Model:          c.Gemini.Model,
		APIKey:         c.Gemini.APIKey,
		PromptTemplate: c.Gemini.PromptTemplate,
		Generation: gemini.GenerationConfig{
			Temperature:     c.Gemini.Temperature,
			TopK:            c.Gemini.TopK,
			TopP:            c.Gemini.TopP,
			MaxOutputTokens: c.Gemini.MaxOutputTokens,
		},
		Timeout: c.GeminiTimeout(),
	}
}

// BrokerList splits EventStream.Brokers on commas, dropping blanks.
func (c *Config) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.EventStream.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
