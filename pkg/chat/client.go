package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/sse"
)

const (
	// DefaultRelayTarget is where a local relay listens by default.
	DefaultRelayTarget = "http://localhost:8080/chat"

	// DefaultTimeout bounds one request, including the streamed reply.
	DefaultTimeout = 5 * time.Minute
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// RelayTarget is the full URL of the relay's chat route.
	RelayTarget string

	// BearerToken is sent as "Authorization: Bearer <token>" when set.
	BearerToken string

	// Timeout bounds one request. Zero means DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the underlying client; Timeout is then ignored.
	HTTPClient *http.Client
}

// TransportError is a failure talking to the relay: the request could not
// be made, the status was not OK, or the body read failed.
type TransportError struct {
	// Status is the HTTP status, or 0 when no response was received.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("relay returned status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("relay request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client posts chat messages to a relay and decodes its event stream.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient returns a Client for the relay at config.RelayTarget.
func NewClient(config ClientConfig, logger *zap.Logger) *Client {
	if config.RelayTarget == "" {
		config.RelayTarget = DefaultRelayTarget
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	hc := config.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		config:     config,
		httpClient: hc,
		logger:     logger,
	}
}

// Stream sends message and calls fn for every event the relay emits, in
// order. It returns after the first done or error event, when fn returns an
// error, or when the stream ends. Events whose payload is not valid JSON are
// skipped. Failures reaching or reading the relay are *TransportError.
func (c *Client) Stream(ctx context.Context, message string, fn func(llm.Event) error) error {
	body, err := json.Marshal(llm.ChatRequest{Message: message})
	if err != nil {
		return fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.RelayTarget, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", sse.ContentType)
	if c.config.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.BearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("HTTP error! status: %d", resp.StatusCode),
		}
	}

	r := sse.NewReader(resp.Body)
	for {
		ev, err := r.Next()
		if err != nil {
			return &TransportError{Err: err}
		}
		if ev == nil {
			return nil
		}

		var event llm.Event
		if err := json.Unmarshal([]byte(ev.Data), &event); err != nil {
			c.logger.Debug("skipping unparsable event",
				zap.String("data", ev.Data),
				zap.Error(err),
			)
			continue
		}

		if err := fn(event); err != nil {
			return err
		}

		if event.IsTerminal() {
			return nil
		}
	}
}

// Ping checks that a relay answers GET /health on the host of RelayTarget.
func (c *Client) Ping(ctx context.Context) error {
	u, err := url.Parse(c.config.RelayTarget)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("parsing relay target: %w", err)}
	}
	u.Path = "/health"
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &TransportError{Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &TransportError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("HTTP error! status: %d", resp.StatusCode),
		}
	}
	return nil
}
