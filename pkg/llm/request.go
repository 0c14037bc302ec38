// Package llm holds the provider-agnostic types shared by the relay and the
// chat client: the inbound chat request, the transient upstream chunk, and
// the normalized event written on the wire.
package llm

// ChatRequest is the body a chat client posts to the relay.
type ChatRequest struct {
	Message string `json:"message"`
}

// ErrorResponse is the JSON body of a non-streaming error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
