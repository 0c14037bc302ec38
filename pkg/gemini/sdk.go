package gemini

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/papercomputeco/chatrelay/pkg/llm"
)

// SDKClient streams through the google.golang.org/genai SDK. The SDK owns
// the wire format, so there is no framing detection on this path.
type SDKClient struct {
	config Config
	client *genai.Client
	logger *zap.Logger
}

// NewSDKClient returns an SDKClient for the Gemini API backend. It fails
// with *llm.ConfigurationError when no API key is configured.
func NewSDKClient(ctx context.Context, config Config, logger *zap.Logger) (*SDKClient, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	config = config.withDefaults()

	timeout := config.Timeout
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: config.BaseURL + "/",
			Timeout: &timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &SDKClient{
		config: config,
		client: client,
		logger: logger,
	}, nil
}

// Name
func (c *SDKClient) Name() string {
	return "genai"
}

// Ready implements Streamer.
func (c *SDKClient) Ready() error {
	return nil
}

func (c *SDKClient) generateConfig() *genai.GenerateContentConfig {
	gc := c.config.Generation
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(gc.Temperature)),
		TopK:            genai.Ptr(float32(gc.TopK)),
		TopP:            genai.Ptr(float32(gc.TopP)),
		MaxOutputTokens: int32(gc.MaxOutputTokens),
	}
}

// StreamGenerate implements Streamer.
func (c *SDKClient) StreamGenerate(ctx context.Context, message string, yield func(llm.Chunk) bool) error {
	c.logger.Debug("calling gemini via genai", zap.String("model", c.config.Model))

	contents := genai.Text(c.config.Prompt(message))
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.config.Model, contents, c.generateConfig()) {
		if err != nil {
			return sdkError(err)
		}

		text, finished := sdkPayload(resp)
		if text != "" && !yield(llm.TextDelta(text)) {
			return nil
		}
		if finished {
			yield(llm.Done())
			return nil
		}
	}

	return nil
}

// sdkPayload mirrors ParsePayload for SDK responses.
func sdkPayload(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}

	cand := resp.Candidates[0]
	finished := cand.FinishReason == genai.FinishReasonStop

	if cand.Content == nil || len(cand.Content.Parts) == 0 || cand.Content.Parts[0] == nil {
		return "", finished
	}

	return cand.Content.Parts[0].Text, finished
}

// sdkError maps SDK failures onto the relay's upstream error types.
func sdkError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.UpstreamHTTPError{Status: apiErr.Code, Body: apiErr.Message}
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &llm.UpstreamHTTPError{Status: apiErrPtr.Code, Body: apiErrPtr.Message}
	}

	return &llm.UpstreamTransportError{Err: err}
}
