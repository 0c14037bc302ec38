package gemini

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/genai"

	"github.com/papercomputeco/chatrelay/pkg/llm"
)

var _ = Describe("Config", func() {
	It("embeds the message in the default instruction", func() {
		prompt := Config{}.Prompt("What happened today?")
		Expect(prompt).To(Equal("You are a helpful RAG-powered chatbot. Provide informative and accurate responses based on the user's question: What happened today?"))
	})

	It("appends the message to a template without a placeholder", func() {
		Expect(Config{PromptTemplate: "Q: "}.Prompt("hi")).To(Equal("Q: hi"))
	})

	It("fills defaults", func() {
		c := Config{APIKey: "k", BaseURL: "http://example.test/"}.withDefaults()
		Expect(c.BaseURL).To(Equal("http://example.test"))
		Expect(c.Model).To(Equal(DefaultModel))
		Expect(c.Generation).To(Equal(DefaultGenerationConfig()))
		Expect(c.Timeout).To(Equal(5 * time.Minute))
	})

	It("requires an API key", func() {
		err := Config{APIKey: "  "}.validate()
		var cfgErr *llm.ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Error()).To(ContainSubstring("GEMINI_API_KEY"))
	})
})

var _ = Describe("ParsePayload", func() {
	It("reads the first part of the first candidate", func() {
		p, err := ParsePayload([]byte(`{"candidates":[{"content":{"parts":[{"text":"A"},{"text":"B"}]}},{"content":{"parts":[{"text":"C"}]}}]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Text).To(Equal("A"))
		Expect(p.Finished).To(BeFalse())
	})

	It("recognizes the STOP finish reason", func() {
		p, err := ParsePayload([]byte(`{"candidates":[{"content":{"parts":[{"text":"end"}]},"finishReason":"STOP"}]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Text).To(Equal("end"))
		Expect(p.Finished).To(BeTrue())
	})

	It("treats other finish reasons as unfinished", func() {
		p, err := ParsePayload([]byte(`{"candidates":[{"finishReason":"MAX_TOKENS"}]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Finished).To(BeFalse())
	})

	It("returns an empty payload without candidates", func() {
		p, err := ParsePayload([]byte(`{"usageMetadata":{"totalTokenCount":3}}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Text).To(BeEmpty())
	})

	It("fails on invalid JSON", func() {
		_, err := ParsePayload([]byte(`{nope`))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("SDK mapping", func() {
	It("maps API errors to upstream HTTP errors", func() {
		err := sdkError(genai.APIError{Code: 429, Message: "quota"})
		var httpErr *llm.UpstreamHTTPError
		Expect(errors.As(err, &httpErr)).To(BeTrue())
		Expect(httpErr.Status).To(Equal(429))
		Expect(httpErr.Body).To(Equal("quota"))
	})

	It("maps other failures to transport errors", func() {
		err := sdkError(errors.New("dial tcp: refused"))
		var transportErr *llm.UpstreamTransportError
		Expect(errors.As(err, &transportErr)).To(BeTrue())
	})

	It("extracts text and finish state from responses", func() {
		text, finished := sdkPayload(&genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content:      genai.NewContentFromText("hi", genai.RoleModel),
				FinishReason: genai.FinishReasonStop,
			}},
		})
		Expect(text).To(Equal("hi"))
		Expect(finished).To(BeTrue())

		text, finished = sdkPayload(&genai.GenerateContentResponse{})
		Expect(text).To(BeEmpty())
		Expect(finished).To(BeFalse())
	})
})

var _ = Describe("Unconfigured", func() {
	It("fails every call with the configuration error", func() {
		cfgErr := &llm.ConfigurationError{Msg: "no key"}
		var s Streamer = Unconfigured{Err: cfgErr}

		Expect(s.Ready()).To(MatchError(cfgErr))
		Expect(s.StreamGenerate(context.Background(), "hi", nil)).To(MatchError(cfgErr))
	})
})
