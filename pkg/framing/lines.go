package framing

import (
	"bytes"
	"errors"
	"io"
)

const (
	readSize = 4 * 1024

	// MaxLineSize bounds a single unterminated line held in the buffer.
	MaxLineSize = 1024 * 1024
)

// ErrLineTooLong is returned when no line delimiter appears within MaxLineSize bytes.
var ErrLineTooLong = errors.New("framing: line exceeds maximum size")

// LineReader assembles newline-delimited lines from a byte stream whose
// reads may split a line at any point. It exclusively owns its buffer: every
// read is appended, complete lines are cut off the front, and the
// unterminated remainder is carried into the next read.
type LineReader struct {
	src     io.Reader
	buf     []byte
	scratch []byte
	err     error
}

// NewLineReader returns a LineReader over src.
func NewLineReader(src io.Reader) *LineReader {
	return &LineReader{
		src:     src,
		scratch: make([]byte, readSize),
	}
}

// Next returns the next complete line with its "\n" or "\r\n" terminator
// stripped. The returned slice is owned by the caller.
//
// When the source is exhausted, a non-empty unterminated remainder is
// returned as the final line. After that Next returns io.EOF, or the
// source's read error if it failed.
func (r *LineReader) Next() ([]byte, error) {
	for {
		if i := bytes.IndexByte(r.buf, '\n'); i >= 0 {
			line := make([]byte, i)
			copy(line, r.buf[:i])
			r.buf = append(r.buf[:0], r.buf[i+1:]...)
			return bytes.TrimSuffix(line, []byte("\r")), nil
		}

		if r.err != nil {
			if len(r.buf) > 0 && errors.Is(r.err, io.EOF) {
				line := bytes.TrimSuffix(r.buf, []byte("\r"))
				r.buf = nil
				return line, nil
			}
			return nil, r.err
		}

		if len(r.buf) > MaxLineSize {
			r.err = ErrLineTooLong
			return nil, r.err
		}

		n, err := r.src.Read(r.scratch)
		if n > 0 {
			r.buf = append(r.buf, r.scratch[:n]...)
		}
		if err != nil {
			r.err = err
		}
	}
}

// Buffered returns the bytes read from the source but not yet returned as
// a line. The slice aliases the internal buffer.
func (r *LineReader) Buffered() []byte {
	return r.buf
}

// Rest returns a reader over the buffered remainder followed by the unread
// source. The LineReader must not be used after calling Rest.
func (r *LineReader) Rest() io.Reader {
	pending := bytes.NewReader(r.buf)
	r.buf = nil

	if r.err != nil {
		if errors.Is(r.err, io.EOF) {
			return pending
		}
		return io.MultiReader(pending, errReader{r.err})
	}

	return io.MultiReader(pending, r.src)
}

type errReader struct {
	err error
}

func (e errReader) Read([]byte) (int, error) {
	return 0, e.err
}
