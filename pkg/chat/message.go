// Package chat implements the chat client: it sends a user message to the
// relay, reassembles the streamed reply into a bot message and keeps the
// ordered list of displayed messages.
package chat

import "time"

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

const (
	// Greeting is the bot message a new session starts with.
	Greeting = "Hello! I'm NewsBot, your AI assistant for news and information. I can help you find and understand news articles, answer questions about current events, and provide summaries. What would you like to know?"

	// ResetGreeting replaces the whole list when a session is reset.
	ResetGreeting = "Session reset! I'm ready for new questions about news and current events."

	// FallbackReply is shown when a stream ended without any text.
	FallbackReply = "Sorry, I could not generate a response."

	// ApologyReply replaces a bot message whose stream failed.
	ApologyReply = "Sorry, I encountered an error. Please try again."

	// FailureTitle and FailureDescription are passed to Notifier.NotifyFailure.
	FailureTitle       = "Error"
	FailureDescription = "Failed to get response from chatbot. Please try again."
)

// Message is one displayed chat message. A bot message is mutated by ID
// while Streaming is true and is immutable afterwards.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
	Streaming bool      `json:"streaming,omitempty"`
}

// UpdateByID returns a copy of list with the message whose ID matches id
// replaced by transform(message). When no message matches, list is returned
// unchanged. list itself is never modified.
func UpdateByID(list []Message, id string, transform func(Message) Message) []Message {
	idx := -1
	for i := range list {
		if list[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return list
	}

	out := make([]Message, len(list))
	copy(out, list)
	out[idx] = transform(out[idx])
	return out
}
