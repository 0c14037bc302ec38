package chatcmder

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/papercomputeco/chatrelay/pkg/chat"
	"github.com/papercomputeco/chatrelay/pkg/cliui"
)

// terminalRenderer prints the newest bot message as it streams. Text that
// extends what was already printed is written as a delta; a replacement
// (fallback or apology) starts a new line. In markdown mode nothing is
// printed until the message is final.
type terminalRenderer struct {
	out      io.Writer
	markdown bool

	mu       sync.Mutex
	id       string
	printed  string
	finished bool
}

func newTerminalRenderer(out io.Writer, markdown bool) *terminalRenderer {
	return &terminalRenderer{out: out, markdown: markdown}
}

func (r *terminalRenderer) Render(messages []chat.Message) {
	if len(messages) == 0 {
		return
	}
	m := messages[len(messages)-1]
	if m.Sender != chat.SenderBot {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID != r.id {
		r.id = m.ID
		r.printed = ""
		r.finished = false
		fmt.Fprint(r.out, cliui.BotPrompt)
	}
	if r.finished {
		return
	}

	if r.markdown {
		if !m.Streaming {
			r.printFinalMarkdown(m.Text)
		}
		return
	}

	switch {
	case strings.HasPrefix(m.Text, r.printed):
		fmt.Fprint(r.out, m.Text[len(r.printed):])
	default:
		fmt.Fprint(r.out, "\n"+m.Text)
	}
	r.printed = m.Text

	if !m.Streaming {
		r.finished = true
		fmt.Fprint(r.out, "\n\n")
	}
}

func (r *terminalRenderer) printFinalMarkdown(text string) {
	r.finished = true
	rendered, err := cliui.RenderMarkdown(text)
	if err != nil {
		rendered = text + "\n"
	}
	fmt.Fprint(r.out, "\n"+rendered+"\n")
}
