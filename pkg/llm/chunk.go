package llm

// ChunkKind tags an upstream chunk.
type ChunkKind int

const (
	// ChunkTextDelta carries one fragment of generated text.
	ChunkTextDelta ChunkKind = iota

	// ChunkDone marks the end of generation.
	ChunkDone

	// ChunkError carries a failure message for the client.
	ChunkError
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkTextDelta:
		return "text"
	case ChunkDone:
		return "done"
	case ChunkError:
		return "error"
	default:
		return "unknown"
	}
}

// Chunk is one unit produced by an upstream decoder. It is consumed
// immediately by the relay and never stored.
type Chunk struct {
	Kind ChunkKind
	Text string
	Err  string
}

// TextDelta returns a ChunkTextDelta for text.
func TextDelta(text string) Chunk {
	return Chunk{Kind: ChunkTextDelta, Text: text}
}

// Done returns a ChunkDone.
func Done() Chunk {
	return Chunk{Kind: ChunkDone}
}

// ErrorChunk returns a ChunkError carrying msg.
func ErrorChunk(msg string) Chunk {
	return Chunk{Kind: ChunkError, Err: msg}
}

// Event converts the chunk into its wire representation.
func (c Chunk) Event() Event {
	switch c.Kind {
	case ChunkDone:
		return Event{Done: true}
	case ChunkError:
		return Event{Error: c.Err}
	default:
		return Event{Text: c.Text}
	}
}
