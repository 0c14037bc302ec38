package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/papercomputeco/chatrelay/pkg/framing"
	"github.com/papercomputeco/chatrelay/pkg/llm"
)

// HTTPClient calls streamGenerateContent over plain HTTP and decodes whatever
// framing the reply arrives in.
type HTTPClient struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
	onSkip     framing.SkipFunc
	onFraming  func(framing.Kind)
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client. Its Timeout is left
// untouched.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// WithSkipHook is called for every upstream line that failed to parse.
func WithSkipHook(fn framing.SkipFunc) HTTPOption {
	return func(c *HTTPClient) {
		c.onSkip = fn
	}
}

// WithFramingHook is called once per call with the detected body framing.
func WithFramingHook(fn func(framing.Kind)) HTTPOption {
	return func(c *HTTPClient) {
		c.onFraming = fn
	}
}

// NewHTTPClient returns an HTTPClient. It fails with *llm.ConfigurationError
// when no API key is configured.
func NewHTTPClient(config Config, logger *zap.Logger, opts ...HTTPOption) (*HTTPClient, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	config = config.withDefaults()
	c := &HTTPClient{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Name
func (c *HTTPClient) Name() string {
	return "http"
}

// Ready implements Streamer. The API key was validated on construction.
func (c *HTTPClient) Ready() error {
	return nil
}

// endpoint returns the streamGenerateContent URL for the configured model.
func (c *HTTPClient) endpoint() string {
	q := url.Values{}
	q.Set("key", c.config.APIKey)
	return fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?%s",
		c.config.BaseURL, url.PathEscape(c.config.Model), q.Encode())
}

// StreamGenerate implements Streamer.
func (c *HTTPClient) StreamGenerate(ctx context.Context, message string, yield func(llm.Chunk) bool) error {
	body, err := json.Marshal(newGenerateRequest(c.config.Prompt(message), c.config.Generation))
	if err != nil {
		return fmt.Errorf("marshaling gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("calling gemini",
		zap.String("model", c.config.Model),
		zap.Int("prompt_bytes", len(body)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &llm.UpstreamTransportError{Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("gemini responded",
		zap.Int("status", resp.StatusCode),
		zap.String("content_type", resp.Header.Get("Content-Type")),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &llm.UpstreamHTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}

	lines := framing.NewLineReader(resp.Body)
	kind, head, err := framing.Sniff(resp.Header.Get("Content-Type"), lines)
	if err != nil {
		return err
	}

	c.logger.Debug("detected upstream framing", zap.Stringer("framing", kind))
	if c.onFraming != nil {
		c.onFraming(kind)
	}

	dec := framing.NewDecoder(kind, head, lines, ParsePayload, c.skip)
	return dec.Decode(yield)
}

func (c *HTTPClient) skip(pe *llm.ParseError) {
	c.logger.Debug("skipping unparsable upstream line",
		zap.String("line", pe.Line),
		zap.Error(pe.Err),
	)
	if c.onSkip != nil {
		c.onSkip(pe)
	}
}
