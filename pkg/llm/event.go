package llm

// Event is the normalized payload of one outbound SSE event. Exactly one of
// the fields is set: {"text": ...}, {"done": true} or {"error": ...}.
type Event struct {
	Text  string `json:"text,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

// IsTerminal reports whether the event ends the client's read loop.
func (e Event) IsTerminal() bool {
	return e.Done || e.Error != ""
}
