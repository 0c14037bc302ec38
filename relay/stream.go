package relay

import (
	"io"
	"strings"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/metrics"
	"github.com/papercomputeco/chatrelay/pkg/sse"
)

// emitter writes normalized events for one request and enforces the stream
// contract: at most one error, exactly one done, nothing after done.
type emitter struct {
	w       *sse.Writer
	metrics *metrics.Metrics

	reply    strings.Builder
	texts    int
	errMsg   string
	doneSent bool
	errSent  bool
	writeErr error
}

func newEmitter(dst io.Writer, m *metrics.Metrics) *emitter {
	return &emitter{
		w:       sse.NewWriter(dst),
		metrics: m,
	}
}

// emit writes c and reports whether the producer should keep going.
func (e *emitter) emit(c llm.Chunk) bool {
	if e.doneSent || e.writeErr != nil {
		return false
	}

	switch c.Kind {
	case llm.ChunkTextDelta:
		if e.errSent {
			return false
		}
		e.reply.WriteString(c.Text)
		e.texts++
	case llm.ChunkError:
		if e.errSent {
			return false
		}
		e.errSent = true
		e.errMsg = c.Err
	case llm.ChunkDone:
		e.doneSent = true
	}

	if err := e.w.WriteJSON(c.Event()); err != nil {
		e.writeErr = err
		return false
	}
	e.metrics.EventsTotal.WithLabelValues(c.Kind.String()).Inc()

	return !e.doneSent && !e.errSent
}

// fail emits msg as the stream's error unless one already went out.
func (e *emitter) fail(msg string) {
	e.emit(llm.ErrorChunk(msg))
}

// finish emits the trailing done unless one already went out.
func (e *emitter) finish() {
	if !e.doneSent {
		e.emit(llm.Done())
	}
}
