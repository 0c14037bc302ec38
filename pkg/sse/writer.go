package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

// Writer frames values as SSE data events. It is not safe for concurrent use.
type Writer struct {
	dst io.Writer
}

// NewWriter returns a Writer that writes to dst. dst is typically the write
// side of an io.Pipe backing a streamed HTTP response.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// WriteJSON marshals v and writes it as one "data: <json>\n\n" event.
func (w *Writer) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return w.WriteData(data)
}

// WriteData writes data as one event. data must not contain newlines.
func (w *Writer) WriteData(data []byte) error {
	buf := make([]byte, 0, len(data)+8)
	buf = append(buf, "data: "...)
	buf = append(buf, data...)
	buf = append(buf, '\n', '\n')

	_, err := w.dst.Write(buf)
	return err
}
