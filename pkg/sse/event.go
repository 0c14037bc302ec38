// Package sse reads and writes the Server-Sent Events framing used between
// the relay and its chat clients.
//
// The relay writes one JSON payload per event as "data: <json>\n\n" through
// a Writer. Clients parse the stream back into events with a Reader, which
// tolerates reads that split lines at arbitrary points.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// ContentType is the media type of an SSE response.
const ContentType = "text/event-stream"

// Event represents a single parsed SSE event, delimited by a blank line
// in the byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n".
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}
