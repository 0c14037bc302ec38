// Package framing detects and decodes the framing an upstream generative
// language provider used for its response body.
//
// A response may arrive as a single JSON document, as newline-delimited JSON,
// as Server-Sent Events with "data: " prefixed payloads, or as a streamed
// JSON array. Detect inspects the declared content type and the first line
// of the body and returns a Kind; NewDecoder then returns the one decoder
// that handles the rest of the stream.
package framing

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"
)

// Kind is the framing of an upstream response body.
type Kind int

const (
	// KindSingleJSON is one complete JSON object holding the full answer.
	KindSingleJSON Kind = iota

	// KindNDJSON is one complete JSON object per line.
	KindNDJSON

	// KindSSE is "data: " prefixed Server-Sent Events.
	KindSSE

	// KindJSONArray is a JSON array whose elements are streamed one by one.
	KindJSONArray
)

func (k Kind) String() string {
	switch k {
	case KindSingleJSON:
		return "json"
	case KindNDJSON:
		return "ndjson"
	case KindSSE:
		return "sse"
	case KindJSONArray:
		return "json-array"
	default:
		return "unknown"
	}
}

// sseFieldPrefixes are the line starts that can only be SSE framing.
var sseFieldPrefixes = [][]byte{
	[]byte("data:"),
	[]byte("event:"),
	[]byte("id:"),
	[]byte("retry:"),
	[]byte(":"),
}

// Detect returns the framing of a body given its Content-Type header and its
// first non-blank line. A declared event-stream or NDJSON media type wins;
// otherwise the first line decides. A head that is not valid JSON yields
// KindSingleJSON, whose decoder falls back to per-line units when the whole
// body does not parse.
func Detect(contentType string, head []byte) Kind {
	if kind, ok := KindForContentType(contentType); ok {
		return kind
	}

	h := bytes.TrimSpace(head)
	if len(h) == 0 {
		return KindSingleJSON
	}

	for _, prefix := range sseFieldPrefixes {
		if bytes.HasPrefix(h, prefix) {
			return KindSSE
		}
	}

	switch h[0] {
	case '[':
		return KindJSONArray
	case '{':
		if json.Valid(h) {
			return KindNDJSON
		}
	}

	return KindSingleJSON
}

// KindForContentType maps a media type that fully determines the framing.
// It reports false for generic types such as application/json.
func KindForContentType(contentType string) (Kind, bool) {
	if contentType == "" {
		return 0, false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.ToLower(contentType))
	}

	switch mediaType {
	case "text/event-stream":
		return KindSSE, true
	case "application/x-ndjson", "application/jsonl", "application/jsonlines":
		return KindNDJSON, true
	default:
		return 0, false
	}
}
