package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeExchangeCompleted is emitted after the relay closes a chat stream.
	EventTypeExchangeCompleted = "chatrelay.exchange.completed"
)

// ExchangeCompletedEvent is a transport-neutral event payload describing one
// finished chat request.
type ExchangeCompletedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	RequestMeta   ExchangeMeta    `json:"request_meta"`
	Exchange      ExchangeContent `json:"exchange"`
}

// EventSource identifies the backend that served the exchange.
type EventSource struct {
	Backend string `json:"backend"`
	Model   string `json:"model,omitempty"`
}

// ExchangeMeta captures request lifecycle metadata for the event.
type ExchangeMeta struct {
	Path        string    `json:"path,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Outcome     string    `json:"outcome"`
	TextEvents  int       `json:"text_events"`
}

// ExchangeContent is what the user asked and what the relay streamed back.
type ExchangeContent struct {
	Message string `json:"message"`
	Reply   string `json:"reply"`
	Error   string `json:"error,omitempty"`
}

// NewExchangeCompletedEvent stamps a fresh event ID and emission time.
func NewExchangeCompletedEvent(source EventSource, meta ExchangeMeta, exchange ExchangeContent) *ExchangeCompletedEvent {
	return &ExchangeCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeExchangeCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		RequestMeta:   meta,
		Exchange:      exchange,
	}
}
