package chatcmder_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	chatcmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/chat"
	"github.com/papercomputeco/chatrelay/pkg/chat"
)

var _ = Describe("NewChatCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := chatcmder.NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))
	})

	It("has a --relay-target flag with the default endpoint", func() {
		flag := chatcmder.NewChatCmd().Flags().Lookup("relay-target")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("r"))
		Expect(flag.DefValue).To(Equal("http://localhost:8080/chat"))
	})
})

var _ = Describe("Chat command execution", func() {
	var (
		server  *httptest.Server
		replies []string
		posts   int
		out     *bytes.Buffer
		errOut  *bytes.Buffer
	)

	BeforeEach(func() {
		posts = 0
		replies = nil
		out = &bytes.Buffer{}
		errOut = &bytes.Buffer{}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/health":
				fmt.Fprint(w, `{"status":"ok"}`)
			case "/chat":
				if posts >= len(replies) {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, replies[posts])
				posts++
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	execute := func(input string, extra ...string) error {
		cmd := chatcmder.NewChatCmd()
		cmd.Flags().String("config-dir", GinkgoT().TempDir(), "")
		cmd.Flags().Bool("debug", false, "")
		cmd.SetIn(strings.NewReader(input))
		cmd.SetOut(out)
		cmd.SetErr(errOut)
		cmd.SetArgs(append([]string{"--relay-target", server.URL + "/chat"}, extra...))
		return cmd.Execute()
	}

	It("prints the greeting and streamed replies", func() {
		replies = []string{"data: {\"text\":\"Hel\"}\n\ndata: {\"text\":\"lo\"}\n\ndata: {\"done\":true}\n\n"}

		Expect(execute("hi\n/exit\nignored\n")).To(Succeed())
		Expect(out.String()).To(ContainSubstring(chat.Greeting))
		Expect(out.String()).To(ContainSubstring("Hello"))
		Expect(posts).To(Equal(1))
	})

	It("notifies on failures and keeps going", func() {
		Expect(execute("hi\n")).To(Succeed())
		Expect(errOut.String()).To(ContainSubstring(chat.FailureDescription))
		Expect(out.String()).To(ContainSubstring(chat.ApologyReply))
	})

	It("resets the conversation", func() {
		Expect(execute("/reset\n")).To(Succeed())
		Expect(out.String()).To(ContainSubstring(chat.ResetGreeting))
		Expect(posts).To(BeZero())
	})

	It("fails fast when the relay is not reachable", func() {
		server.Close()
		Expect(execute("hi\n")).To(MatchError(ContainSubstring("relay not reachable")))
	})

	It("skips the health check with --no-ping", func() {
		server.Close()
		Expect(execute("", "--no-ping")).To(Succeed())
	})
})
