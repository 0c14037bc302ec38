// Package gemini talks to the Gemini generative-language API and turns its
// streamed reply into llm chunks.
//
// Two backends implement Streamer: HTTPClient posts to streamGenerateContent
// directly and detects the body framing itself, SDKClient goes through the
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"strings"
	"time"

	"github.com/papercomputeco/chatrelay/pkg/llm"
)

const (
	// DefaultBaseURL is the public generative-language endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultModel is the model the relay asks for when none is configured.
	DefaultModel = "gemini-1.5-flash"

	// MessagePlaceholder is replaced with the user's message in a prompt template.
	MessagePlaceholder = "{{message}}"

	// DefaultPromptTemplate is the fixed instruction the user's message is embedded in.
	DefaultPromptTemplate = "You are a helpful RAG-powered chatbot. Provide informative and accurate responses based on the user's question: " + MessagePlaceholder

	// DefaultTimeout bounds one upstream call, including the streamed body.
	DefaultTimeout = 5 * time.Minute
)

// Streamer generates a reply for a single user message.
//
// StreamGenerate calls yield with each chunk as soon as it is available and
// stops when yield returns false. It returns *llm.UpstreamHTTPError when the
// provider rejected the call and *llm.UpstreamTransportError when the call
// or the body read failed. A nil error means the stream ended normally,
// whether or not a llm.ChunkDone was yielded.
//
// Ready reports whether the backend can serve requests at all; a non-nil
// result is a *llm.ConfigurationError and no upstream call is made.
type Streamer interface {
	Name() string
	Ready() error
	StreamGenerate(ctx context.Context, message string, yield func(llm.Chunk) bool) error
}

// Unconfigured is a Streamer for a relay started without credentials. Every
// request fails with the configuration error instead of calling upstream.
type Unconfigured struct {
	Err *llm.ConfigurationError
}

// Name
func (u Unconfigured) Name() string {
	return "unconfigured"
}

// Ready returns the configuration error.
func (u Unconfigured) Ready() error {
	if u.Err == nil {
		return &llm.ConfigurationError{Msg: "relay backend not configured"}
	}
	return u.Err
}

// StreamGenerate returns the configuration error.
func (u Unconfigured) StreamGenerate(context.Context, string, func(llm.Chunk) bool) error {
	return u.Ready()
}

// GenerationConfig holds the sampling parameters sent with every call.
type GenerationConfig struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// DefaultGenerationConfig returns the sampling parameters the relay ships with.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
	}
}

// Config configures either backend.
type Config struct {
	// BaseURL is the API root, without the /v1beta path.
	BaseURL string

	// Model is the model name placed in the request path.
	Model string

	// APIKey is the Gemini API key. It is required.
	APIKey string

	// PromptTemplate wraps the user's message. It must contain MessagePlaceholder;
	// a template without it has the message appended.
	PromptTemplate string

	Generation GenerationConfig

	// Timeout bounds one upstream call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.PromptTemplate == "" {
		c.PromptTemplate = DefaultPromptTemplate
	}
	if c.Generation == (GenerationConfig{}) {
		c.Generation = DefaultGenerationConfig()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// validate reports a configuration the relay cannot serve with.
func (c Config) validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &llm.ConfigurationError{
			Msg: "Gemini API key not configured. Set GEMINI_API_KEY or gemini.api_key.",
		}
	}
	return nil
}

// Prompt embeds message in the configured template.
func (c Config) Prompt(message string) string {
	tmpl := c.PromptTemplate
	if tmpl == "" {
		tmpl = DefaultPromptTemplate
	}
	if !strings.Contains(tmpl, MessagePlaceholder) {
		return tmpl + message
	}
	return strings.ReplaceAll(tmpl, MessagePlaceholder, message)
}
