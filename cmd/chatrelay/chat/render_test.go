package chatcmder

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/chat"
	"github.com/papercomputeco/chatrelay/pkg/cliui"
)

var _ = Describe("terminalRenderer", func() {
	var (
		buf *bytes.Buffer
		r   *terminalRenderer
	)

	user := chat.Message{ID: "u", Text: "hi", Sender: chat.SenderUser}
	bot := func(text string, streaming bool) chat.Message {
		return chat.Message{ID: "b", Text: text, Sender: chat.SenderBot, Streaming: streaming}
	}

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		r = newTerminalRenderer(buf, false)
	})

	It("prints streamed text as deltas", func() {
		r.Render([]chat.Message{user, bot("", true)})
		r.Render([]chat.Message{user, bot("Hel", true)})
		r.Render([]chat.Message{user, bot("Hello", true)})
		r.Render([]chat.Message{user, bot("Hello", false)})

		Expect(buf.String()).To(Equal(cliui.BotPrompt + "Hello\n\n"))
	})

	It("starts a new line when the text is replaced", func() {
		r.Render([]chat.Message{user, bot("partial", true)})
		r.Render([]chat.Message{user, bot(chat.ApologyReply, false)})

		Expect(buf.String()).To(Equal(cliui.BotPrompt + "partial\n" + chat.ApologyReply + "\n\n"))
	})

	It("ignores renders after the message finished", func() {
		r.Render([]chat.Message{user, bot("done", false)})
		r.Render([]chat.Message{user, bot("done", false)})

		Expect(buf.String()).To(Equal(cliui.BotPrompt + "done\n\n"))
	})

	It("ignores lists that end with a user message", func() {
		r.Render([]chat.Message{user})
		Expect(buf.String()).To(BeEmpty())
	})

	It("defers output until the message is final in markdown mode", func() {
		r = newTerminalRenderer(buf, true)
		r.Render([]chat.Message{user, bot("**bold**", true)})
		Expect(buf.String()).To(Equal(cliui.BotPrompt))

		r.Render([]chat.Message{user, bot("**bold**", false)})
		Expect(buf.String()).To(HavePrefix(cliui.BotPrompt + "\n"))
		Expect(buf.String()).To(ContainSubstring("bold"))
	})
})
