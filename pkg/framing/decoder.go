package framing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/papercomputeco/chatrelay/pkg/llm"
)

// doneSentinel is the SSE payload some providers send after the last chunk.
const doneSentinel = "[DONE]"

// Payload is what a provider parser extracts from one complete JSON unit.
type Payload struct {
	// Text is the fragment of generated text, if any.
	Text string

	// Finished is true when the unit marks the end of generation.
	Finished bool
}

// ParseFunc parses one complete JSON unit into a Payload.
type ParseFunc func(data []byte) (Payload, error)

// SkipFunc observes a framing unit that failed to parse and was skipped.
type SkipFunc func(*llm.ParseError)

// Decoder turns the remainder of an upstream body into chunks.
//
// Decode calls yield for each chunk in stream order and stops early when
// yield returns false or after yielding llm.ChunkDone. It returns a non-nil
// error only when the body itself could not be read or violated the framing
// beyond a single line; those errors are *llm.UpstreamTransportError.
type Decoder interface {
	Kind() Kind
	Decode(yield func(llm.Chunk) bool) error
}

// Sniff determines the framing of the body behind lines. When the content
// type is not conclusive it consumes the first non-blank line, which is
// returned as head and must be handed to NewDecoder.
func Sniff(contentType string, lines *LineReader) (Kind, []byte, error) {
	if kind, ok := KindForContentType(contentType); ok {
		return kind, nil, nil
	}

	for {
		line, err := lines.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return KindSingleJSON, nil, nil
			}
			return 0, nil, &llm.UpstreamTransportError{Err: err}
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		return Detect(contentType, line), line, nil
	}
}

// NewDecoder returns the decoder for kind. head is the line consumed by
// Sniff, if any; skip may be nil.
func NewDecoder(kind Kind, head []byte, lines *LineReader, parse ParseFunc, skip SkipFunc) Decoder {
	if skip == nil {
		skip = func(*llm.ParseError) {}
	}

	base := decoderBase{head: head, lines: lines, parse: parse, skip: skip}

	switch kind {
	case KindNDJSON:
		return &ndjsonDecoder{base}
	case KindSSE:
		return &sseDecoder{base}
	case KindJSONArray:
		return &arrayDecoder{base}
	default:
		return &singleDecoder{base}
	}
}

type decoderBase struct {
	head  []byte
	lines *LineReader
	parse ParseFunc
	skip  SkipFunc

	units   int
	texts   int
	stopped bool
}

// eachLine feeds head and then every remaining line to fn until fn returns
// false or the stream ends.
func (d *decoderBase) eachLine(fn func(line []byte) bool) error {
	if d.head != nil {
		head := d.head
		d.head = nil
		if !fn(head) {
			return nil
		}
	}

	for {
		line, err := d.lines.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return &llm.UpstreamTransportError{Err: err}
		}
		if !fn(line) {
			return nil
		}
	}
}

// emit parses data and yields its chunks. It returns false when decoding
// should stop.
func (d *decoderBase) emit(data []byte, yield func(llm.Chunk) bool) bool {
	p, err := d.parse(data)
	if err != nil {
		d.skip(&llm.ParseError{Line: string(data), Err: err})
		return true
	}
	d.units++

	if p.Text != "" {
		d.texts++
		if !yield(llm.TextDelta(p.Text)) {
			d.stopped = true
			return false
		}
	}

	if p.Finished {
		d.stopped = true
		yield(llm.Done())
		return false
	}

	return true
}

// emitLine returns an eachLine callback treating every non-blank line as one
// framing unit.
func (d *decoderBase) emitLine(yield func(llm.Chunk) bool) func([]byte) bool {
	return func(line []byte) bool {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			return true
		}
		return d.emit(line, yield)
	}
}

// ndjsonDecoder handles one JSON object per line.
type ndjsonDecoder struct {
	decoderBase
}

func (d *ndjsonDecoder) Kind() Kind { return KindNDJSON }

func (d *ndjsonDecoder) Decode(yield func(llm.Chunk) bool) error {
	if err := d.eachLine(d.emitLine(yield)); err != nil {
		return err
	}

	// A body holding one compact JSON object is a single response, and a
	// single response without text is reported as such.
	if !d.stopped && d.units == 1 && d.texts == 0 {
		yield(llm.ErrorChunk(llm.ErrNoText.Error()))
	}

	return nil
}

// sseDecoder handles "data: " prefixed lines. Other SSE fields, comments and
// blank event separators carry nothing for the relay and are ignored.
// Each data line is its own unit, so an event split over several data lines
// is skipped line by line; pkg/sse.Reader joins those when needed.
type sseDecoder struct {
	decoderBase
}

func (d *sseDecoder) Kind() Kind { return KindSSE }

func (d *sseDecoder) Decode(yield func(llm.Chunk) bool) error {
	return d.eachLine(func(line []byte) bool {
		data, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			return true
		}

		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			return true
		}

		if string(data) == doneSentinel {
			yield(llm.Done())
			return false
		}

		return d.emit(data, yield)
	})
}

// singleDecoder handles a body that is one JSON document, possibly spread
// over many lines. The whole document is the only framing unit unless it
// fails to parse, in which case every line is tried on its own.
type singleDecoder struct {
	decoderBase
}

func (d *singleDecoder) Kind() Kind { return KindSingleJSON }

func (d *singleDecoder) Decode(yield func(llm.Chunk) bool) error {
	var doc bytes.Buffer
	if d.head != nil {
		doc.Write(d.head)
		doc.WriteByte('\n')
	}

	if _, err := doc.ReadFrom(d.lines.Rest()); err != nil {
		return &llm.UpstreamTransportError{Err: err}
	}

	body := bytes.TrimSpace(doc.Bytes())
	if len(body) == 0 {
		return nil
	}

	p, err := d.parse(body)
	if err != nil {
		return d.decodeLines(body, yield)
	}

	if p.Text == "" {
		yield(llm.ErrorChunk(llm.ErrNoText.Error()))
		return nil
	}

	if yield(llm.TextDelta(p.Text)) {
		yield(llm.Done())
	}

	return nil
}

// decodeLines re-reads a buffered body that was not one document as
// newline-delimited units, so a malformed first line costs only itself.
func (d *singleDecoder) decodeLines(body []byte, yield func(llm.Chunk) bool) error {
	d.head = nil
	d.lines = NewLineReader(bytes.NewReader(body))

	if err := d.eachLine(d.emitLine(yield)); err != nil {
		return err
	}

	if !d.stopped && d.texts == 0 {
		yield(llm.ErrorChunk(llm.ErrNoText.Error()))
	}

	return nil
}

// arrayDecoder handles a JSON array streamed element by element, which is
// what streamGenerateContent returns without alt=sse.
type arrayDecoder struct {
	decoderBase
}

func (d *arrayDecoder) Kind() Kind { return KindJSONArray }

func (d *arrayDecoder) Decode(yield func(llm.Chunk) bool) error {
	var src io.Reader = d.lines.Rest()
	if d.head != nil {
		src = io.MultiReader(bytes.NewReader(append(d.head, '\n')), src)
	}

	dec := json.NewDecoder(src)

	tok, err := dec.Token()
	if err != nil {
		return decodeErr(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return &llm.UpstreamTransportError{Err: fmt.Errorf("expected JSON array, got %v", tok)}
	}

	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return decodeErr(err)
		}
		if !d.emit(raw, yield) {
			return nil
		}
	}

	return nil
}

// decodeErr wraps a JSON stream error. A syntax error leaves the decoder
// unable to resynchronize, so it ends the stream like a transport failure.
func decodeErr(err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &llm.UpstreamTransportError{Err: fmt.Errorf("malformed upstream body: %w", err)}
	}
	return &llm.UpstreamTransportError{Err: err}
}
