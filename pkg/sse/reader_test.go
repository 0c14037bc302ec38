package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/llm"
)

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		Context("with standard SSE events", func() {
			It("parses a single event", func() {
				r := NewReader(strings.NewReader("data: hello world\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello world"))
				Expect(ev.Type).To(BeEmpty())
				Expect(ev.ID).To(BeEmpty())

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("parses event type and ID", func() {
				r := NewReader(strings.NewReader("event: message\nid: 42\ndata: {\"text\":\"a\"}\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Type).To(Equal("message"))
				Expect(ev.ID).To(Equal("42"))
				Expect(ev.Data).To(Equal(`{"text":"a"}`))
			})

			It("joins multiple data lines with newline", func() {
				r := NewReader(strings.NewReader("data: line one\ndata: line two\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("line one\nline two"))
			})
		})

		Context("with relay output", func() {
			It("parses a text, done sequence", func() {
				input := "data: {\"text\":\"Hel\"}\n\ndata: {\"text\":\"lo\"}\n\ndata: {\"done\":true}\n\n"
				r := NewReader(strings.NewReader(input))

				var data []string
				for {
					ev, err := r.Next()
					Expect(err).NotTo(HaveOccurred())
					if ev == nil {
						break
					}
					data = append(data, ev.Data)
				}
				Expect(data).To(Equal([]string{`{"text":"Hel"}`, `{"text":"lo"}`, `{"done":true}`}))
			})

			It("reassembles events split across reads", func() {
				input := "data: {\"text\":\"Hello\"}\n\ndata: {\"done\":true}\n\n"
				r := NewReader(iotest.OneByteReader(strings.NewReader(input)))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal(`{"text":"Hello"}`))

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal(`{"done":true}`))
			})
		})

		Context("with data field variations", func() {
			It("handles data field with no space after colon", func() {
				ev, err := NewReader(strings.NewReader("data:no-space\n\n")).Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("no-space"))
			})

			It("handles data field with only a space", func() {
				ev, err := NewReader(strings.NewReader("data: \n\n")).Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(BeEmpty())
			})

			It("handles CRLF line endings", func() {
				ev, err := NewReader(strings.NewReader("data: crlf\r\n\r\n")).Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("crlf"))
			})
		})

		Context("edge cases", func() {
			It("returns nil on empty input", func() {
				ev, err := NewReader(strings.NewReader("")).Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("ignores comments, blank lines and unknown fields", func() {
				r := NewReader(strings.NewReader("\n\n: keep-alive\nretry: 3000\nfoo: bar\ndata: hello\n\n"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("hello"))
			})

			It("yields event when stream ends without trailing blank line", func() {
				r := NewReader(strings.NewReader("data: unterminated"))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("unterminated"))

				ev, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev).To(BeNil())
			})

			It("returns source read errors", func() {
				boom := errors.New("connection reset")
				r := NewReader(io.MultiReader(strings.NewReader("data: a\n\n"), iotest.ErrReader(boom)))

				ev, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(ev.Data).To(Equal("a"))

				_, err = r.Next()
				Expect(err).To(MatchError(boom))
			})
		})
	})
})

var _ = Describe("Writer", func() {
	It("frames JSON values as data events", func() {
		var buf bytes.Buffer
		w := NewWriter(&buf)

		Expect(w.WriteJSON(llm.TextDelta("Hi").Event())).To(Succeed())
		Expect(w.WriteJSON(llm.Done().Event())).To(Succeed())

		Expect(buf.String()).To(Equal("data: {\"text\":\"Hi\"}\n\ndata: {\"done\":true}\n\n"))
	})

	It("round-trips through the Reader", func() {
		var buf bytes.Buffer
		Expect(NewWriter(&buf).WriteJSON(llm.ErrorChunk("boom").Event())).To(Succeed())

		ev, err := NewReader(&buf).Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Data).To(Equal(`{"error":"boom"}`))
	})
})
