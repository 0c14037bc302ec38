package config

import (
	"github.com/papercomputeco/chatrelay/pkg/chat"
	"github.com/papercomputeco/chatrelay/pkg/gemini"
	"github.com/papercomputeco/chatrelay/relay"
)

const (
	BackendHTTP  = "http"
	BackendGenAI = "genai"

	EventStreamNop   = "nop"
	EventStreamKafka = "kafka"

	defaultBrokers = "localhost:9092"
	defaultTopic   = "chatrelay.exchanges"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	gen := gemini.DefaultGenerationConfig()

	return &Config{
		Version: CurrentV,
		Relay: RelayConfig{
			Listen:  relay.DefaultListenAddr,
			Path:    relay.DefaultPath,
			Backend: BackendHTTP,
		},
		Gemini: GeminiConfig{
			BaseURL:         gemini.DefaultBaseURL,
			Model:           gemini.DefaultModel,
			PromptTemplate:  gemini.DefaultPromptTemplate,
			Temperature:     gen.Temperature,
			TopK:            gen.TopK,
			TopP:            gen.TopP,
			MaxOutputTokens: gen.MaxOutputTokens,
			Timeout:         gemini.DefaultTimeout.String(),
		},
		Client: ClientConfig{
			RelayTarget: chat.DefaultRelayTarget,
		},
		EventStream: EventStreamConfig{
			Provider: EventStreamNop,
			Brokers:  defaultBrokers,
			Topic:    defaultTopic,
		},
	}
}
