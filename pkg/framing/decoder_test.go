package framing_test

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/framing"
	"github.com/papercomputeco/chatrelay/pkg/llm"
)

// testParse reads {"t": text, "f": finished}.
func testParse(data []byte) (framing.Payload, error) {
	var v struct {
		T string `json:"t"`
		F bool   `json:"f"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return framing.Payload{}, err
	}
	return framing.Payload{Text: v.T, Finished: v.F}, nil
}

type decodeResult struct {
	kind    framing.Kind
	chunks  []llm.Chunk
	skipped []*llm.ParseError
	err     error
}

func decode(contentType string, src io.Reader) decodeResult {
	var res decodeResult

	lines := framing.NewLineReader(src)
	kind, head, err := framing.Sniff(contentType, lines)
	if err != nil {
		res.err = err
		return res
	}
	res.kind = kind

	dec := framing.NewDecoder(kind, head, lines, testParse, func(pe *llm.ParseError) {
		res.skipped = append(res.skipped, pe)
	})
	Expect(dec.Kind()).To(Equal(kind))

	res.err = dec.Decode(func(c llm.Chunk) bool {
		res.chunks = append(res.chunks, c)
		return true
	})
	return res
}

var _ = Describe("Decoder", func() {
	Context("single JSON", func() {
		It("emits the text followed by done", func() {
			res := decode("application/json", strings.NewReader("{\n  \"t\": \"Hello\"\n}\n"))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.kind).To(Equal(framing.KindSingleJSON))
			Expect(res.chunks).To(Equal([]llm.Chunk{llm.TextDelta("Hello"), llm.Done()}))
		})

		It("reports a response without text", func() {
			res := decode("application/json", strings.NewReader("{\n}\n"))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.chunks).To(Equal([]llm.Chunk{llm.ErrorChunk("No text in response")}))
		})

		It("falls back to line units when the first line is malformed", func() {
			body := "{oops not json\n" + `{"t":"A"}` + "\n" + `{"t":"B"}` + "\n" + `{"t":"C"}` + "\n" + `{"f":true}` + "\n"
			res := decode("application/json", strings.NewReader(body))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.kind).To(Equal(framing.KindSingleJSON))
			Expect(res.chunks).To(Equal([]llm.Chunk{
				llm.TextDelta("A"), llm.TextDelta("B"), llm.TextDelta("C"), llm.Done(),
			}))
			Expect(res.skipped).To(HaveLen(1))
			Expect(res.skipped[0].Line).To(Equal("{oops not json"))
		})

		It("keeps the lines after a non-JSON first line", func() {
			body := "garbage\n" + `{"t":"A"}` + "\n" + `{"t":"B"}`
			res := decode("", strings.NewReader(body))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.chunks).To(Equal([]llm.Chunk{llm.TextDelta("A"), llm.TextDelta("B")}))
			Expect(res.skipped).To(HaveLen(1))
		})

		It("reports no text when no line parses", func() {
			res := decode("", strings.NewReader("not json\nstill not json\n"))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.chunks).To(Equal([]llm.Chunk{llm.ErrorChunk("No text in response")}))
			Expect(res.skipped).To(HaveLen(2))
		})

		It("emits nothing for an empty body", func() {
			res := decode("", strings.NewReader(""))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.chunks).To(BeEmpty())
		})
	})

	Context("NDJSON", func() {
		It("emits one delta per line and stops at the finish marker", func() {
			body := `{"t":"A"}` + "\n" + `{"t":"B"}` + "\n" + `{"t":"C","f":true}` + "\n" + `{"t":"ignored"}` + "\n"
			res := decode("", strings.NewReader(body))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.kind).To(Equal(framing.KindNDJSON))
			Expect(res.chunks).To(Equal([]llm.Chunk{
				llm.TextDelta("A"), llm.TextDelta("B"), llm.TextDelta("C"), llm.Done(),
			}))
		})

		It("skips malformed and blank lines", func() {
			body := `{"t":"A"}` + "\n\n{oops\n" + `{"t":"B"}` + "\n"
			res := decode("", strings.NewReader(body))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.chunks).To(Equal([]llm.Chunk{llm.TextDelta("A"), llm.TextDelta("B")}))
			Expect(res.skipped).To(HaveLen(1))
			Expect(res.skipped[0].Line).To(Equal("{oops"))
		})

		It("reports a lone compact object without text", func() {
			res := decode("", strings.NewReader(`{"t":""}`))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.chunks).To(Equal([]llm.Chunk{llm.ErrorChunk("No text in response")}))
		})

		It("decodes the same stream delivered one byte at a time", func() {
			body := `{"t":"A"}` + "\n" + `{"t":"B","f":true}` + "\n"
			res := decode("", iotest.OneByteReader(strings.NewReader(body)))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.chunks).To(Equal([]llm.Chunk{llm.TextDelta("A"), llm.TextDelta("B"), llm.Done()}))
		})

		It("returns a transport error when the body fails mid-stream", func() {
			boom := errors.New("reset by peer")
			src := io.MultiReader(strings.NewReader(`{"t":"A"}`+"\n"), iotest.ErrReader(boom))
			res := decode("", src)
			Expect(res.chunks).To(Equal([]llm.Chunk{llm.TextDelta("A")}))

			var transportErr *llm.UpstreamTransportError
			Expect(errors.As(res.err, &transportErr)).To(BeTrue())
			Expect(errors.Is(res.err, boom)).To(BeTrue())
		})
	})

	Context("SSE", func() {
		It("reads data lines and honours the done sentinel", func() {
			body := ": ping\n" +
				"data: {\"t\":\"A\"}\n\n" +
				"event: message\n" +
				"data:{\"t\":\"B\"}\n\n" +
				"data: [DONE]\n\n" +
				"data: {\"t\":\"late\"}\n\n"
			res := decode("", strings.NewReader(body))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.kind).To(Equal(framing.KindSSE))
			Expect(res.chunks).To(Equal([]llm.Chunk{llm.TextDelta("A"), llm.TextDelta("B"), llm.Done()}))
		})

		It("is selected by content type", func() {
			res := decode("text/event-stream", strings.NewReader("data: {\"t\":\"A\",\"f\":true}\n\n"))
			Expect(res.kind).To(Equal(framing.KindSSE))
			Expect(res.chunks).To(Equal([]llm.Chunk{llm.TextDelta("A"), llm.Done()}))
		})

		It("treats each data line as its own unit", func() {
			body := "data: {\"t\":\n" +
				"data: \"split\"}\n\n" +
				"data: {\"t\":\"B\"}\n\n"
			res := decode("text/event-stream", strings.NewReader(body))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.chunks).To(Equal([]llm.Chunk{llm.TextDelta("B")}))
			Expect(res.skipped).To(HaveLen(2))
		})
	})

	Context("JSON array", func() {
		It("emits each element as it is decoded", func() {
			body := "[{\"t\":\"A\"}\n,{\"t\":\"B\"}\n,{\"t\":\"C\",\"f\":true}\n]"
			res := decode("application/json", strings.NewReader(body))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.kind).To(Equal(framing.KindJSONArray))
			Expect(res.chunks).To(Equal([]llm.Chunk{
				llm.TextDelta("A"), llm.TextDelta("B"), llm.TextDelta("C"), llm.Done(),
			}))
		})

		It("fails the stream on a syntax error", func() {
			res := decode("application/json", strings.NewReader("[{\"t\":\"A\"},{oops}]"))
			Expect(res.chunks).To(Equal([]llm.Chunk{llm.TextDelta("A")}))
			Expect(res.err).To(MatchError(ContainSubstring("malformed upstream body")))
		})
	})

	It("stops when yield returns false", func() {
		lines := framing.NewLineReader(strings.NewReader(`{"t":"A"}` + "\n" + `{"t":"B"}` + "\n"))
		kind, head, err := framing.Sniff("", lines)
		Expect(err).NotTo(HaveOccurred())

		var got []llm.Chunk
		err = framing.NewDecoder(kind, head, lines, testParse, nil).Decode(func(c llm.Chunk) bool {
			got = append(got, c)
			return false
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(1))
	})
})
