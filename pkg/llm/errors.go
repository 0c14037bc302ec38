package llm

import (
	"errors"
	"fmt"
)

// ErrNoText is reported when a complete upstream response carries no text.
var ErrNoText = errors.New("No text in response")

// ConfigurationError reports a relay that cannot serve requests, such as a
// missing provider credential. It is returned before any upstream call.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return e.Msg
}

// UpstreamHTTPError is a non-2xx reply from the provider.
type UpstreamHTTPError struct {
	Status int
	Body   string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("Gemini API error: %d - %s", e.Status, e.Body)
}

// UpstreamTransportError is a connection or body read failure talking to the
// provider, before or after the stream started.
type UpstreamTransportError struct {
	Err error
}

func (e *UpstreamTransportError) Error() string {
	return e.Err.Error()
}

func (e *UpstreamTransportError) Unwrap() error {
	return e.Err
}

// ParseError is a single malformed framing line. It never ends a stream.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing line %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
