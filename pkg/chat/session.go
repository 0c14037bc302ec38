package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatrelay/pkg/llm"
)

var (
	// ErrBusy is returned by Send while another message is still outstanding.
	ErrBusy = errors.New("a message is already being sent")

	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// StreamError is an error event received from the relay.
type StreamError struct {
	Msg string
}

func (e *StreamError) Error() string {
	return e.Msg
}

// Transport streams one message to the relay. *Client implements it.
type Transport interface {
	Stream(ctx context.Context, message string, fn func(llm.Event) error) error
}

// Renderer displays the message list. It is called with a snapshot after
// every change.
type Renderer interface {
	Render(messages []Message)
}

// Notifier surfaces failures to the user without blocking the session.
type Notifier interface {
	NotifyFailure(title, description string)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func([]Message)

// Render
func (f RendererFunc) Render(messages []Message) { f(messages) }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, description string)

// NotifyFailure
func (f NotifierFunc) NotifyFailure(title, description string) { f(title, description) }

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRenderer sets the Renderer. The default discards renders.
func WithRenderer(r Renderer) SessionOption {
	return func(s *Session) {
		s.renderer = r
	}
}

// WithNotifier sets the Notifier. The default discards notifications.
func WithNotifier(n Notifier) SessionOption {
	return func(s *Session) {
		s.notifier = n
	}
}

// WithLogger sets the session's logger.
func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// WithClock overrides time.Now for message timestamps.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// Session owns the displayed message list and the lifecycle of each sent
// message. One message may be outstanding at a time.
type Session struct {
	transport Transport
	renderer  Renderer
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	messages []Message
	states   map[string]State
	busy     bool
}

// NewSession returns a Session that starts with the greeting message.
func NewSession(transport Transport, opts ...SessionOption) *Session {
	s := &Session{
		transport: transport,
		renderer:  RendererFunc(func([]Message) {}),
		notifier:  NotifierFunc(func(string, string) {}),
		logger:    zap.NewNop(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.messages = []Message{s.botMessage(Greeting)}
	s.states = make(map[string]State)

	return s
}

func (s *Session) botMessage(text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    SenderBot,
		CreatedAt: s.now(),
	}
}

// Messages returns a copy of the current message list.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Busy reports whether a message is outstanding.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// State returns the lifecycle state of the bot reply with the given ID, or
// StateIdle when the ID is unknown.
func (s *Session) State(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[id]
}

// Reset discards every message and starts over with the reset greeting. A
// send in flight is not cancelled; its remaining updates no longer match
// any message and are dropped.
func (s *Session) Reset() {
	s.mu.Lock()
	s.messages = []Message{s.botMessage(ResetGreeting)}
	s.states = make(map[string]State)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.renderer.Render(snapshot)
}

// Send appends text as a user message, streams the reply into a new bot
// message and blocks until the reply is complete. Stream and transport
// failures are reported through the Notifier, resolve the bot message to
// ApologyReply and are also returned.
func (s *Session) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true

	user := Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    SenderUser,
		CreatedAt: s.now(),
	}
	bot := s.botMessage("")
	bot.Streaming = true

	s.messages = append(s.messages, user, bot)
	s.states[bot.ID] = StateIdle
	s.advanceLocked(bot.ID, StateSending)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.renderer.Render(snapshot)

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	var reply strings.Builder
	err := s.transport.Stream(ctx, text, func(ev llm.Event) error {
		if ev.Error != "" {
			return &StreamError{Msg: ev.Error}
		}

		if ev.Text != "" {
			reply.WriteString(ev.Text)
			accumulated := reply.String()
			s.update(bot.ID, StateStreamingText, func(m Message) Message {
				m.Text = accumulated
				return m
			})
		}

		return nil
	})

	if err != nil {
		s.logger.Error("chat request failed", zap.Error(err))
		s.notifier.NotifyFailure(FailureTitle, FailureDescription)
		s.update(bot.ID, StateFailed, func(m Message) Message {
			m.Text = ApologyReply
			m.Streaming = false
			return m
		})
		return err
	}

	final := reply.String()
	if final == "" {
		final = FallbackReply
	}
	s.update(bot.ID, StateCompleted, func(m Message) Message {
		m.Text = final
		m.Streaming = false
		return m
	})

	return nil
}

// update applies transform to a still-streaming message, moves its state to
// next and renders. Updates for messages that no longer exist or have
// already finished are dropped.
func (s *Session) update(id string, next State, transform func(Message) Message) {
	s.mu.Lock()
	cur, ok := s.states[id]
	if !ok || !cur.CanTransition(next) {
		s.mu.Unlock()
		return
	}

	s.messages = UpdateByID(s.messages, id, func(m Message) Message {
		if !m.Streaming {
			return m
		}
		return transform(m)
	})
	s.advanceLocked(id, next)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.renderer.Render(snapshot)
}

func (s *Session) advanceLocked(id string, next State) {
	if cur, ok := s.states[id]; ok && cur.CanTransition(next) {
		s.states[id] = next
	}
}

func (s *Session) snapshotLocked() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
