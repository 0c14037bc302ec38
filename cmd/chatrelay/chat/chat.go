// Package chatcmder provides the chat command, an interactive terminal
// client for a running relay.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/chatrelay/pkg/chat"
	"github.com/papercomputeco/chatrelay/pkg/cliui"
	"github.com/papercomputeco/chatrelay/pkg/config"
	"github.com/papercomputeco/chatrelay/pkg/credentials"
	"github.com/papercomputeco/chatrelay/pkg/logger"
)

type chatCommander struct {
	cfg      *config.Config
	debug    bool
	markdown bool
	noPing   bool

	relayTarget string
	bearerToken string

	in  io.Reader
	out io.Writer
	err io.Writer

	logger *zap.Logger
}

var chatFlags = []string{
	config.FlagRelayTarget,
	config.FlagBearerToken,
}

const chatLongDesc string = `Start an interactive chat session with a running relay.

Each line you enter is sent to the relay and the reply is printed while it
streams. One message is in flight at a time.

Commands:
  /reset    Clear the conversation and start over
  /exit     Quit (Ctrl+D also works)

Examples:
  chatrelay chat
  chatrelay chat --relay-target http://localhost:9000/chat
  chatrelay chat --markdown`

const chatShortDesc string = "Interactive chat through the relay"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)
			cmder.cfg = config.FromViper(v)

			creds, err := credentials.NewManager(configDir)
			if err != nil {
				return fmt.Errorf("loading credentials: %w", err)
			}
			if cmder.cfg.Client.BearerToken, err = creds.Fill(cmder.cfg.Client.BearerToken, credentials.ProviderRelay); err != nil {
				return fmt.Errorf("loading credentials: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.err = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagRelayTarget, &cmder.relayTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagBearerToken, &cmder.bearerToken)
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render completed replies as markdown (terminal only)")
	cmd.Flags().BoolVar(&cmder.noPing, "no-ping", false, "Skip the relay health check on startup")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Logs go to stderr so they do not interleave with the reply stream.
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithWriter(c.err))
	defer func() { _ = c.logger.Sync() }()

	interactive := isTerminal(c.in) && isTerminal(c.out)

	client := chat.NewClient(chat.ClientConfig{
		RelayTarget: c.cfg.Client.RelayTarget,
		BearerToken: c.cfg.Client.BearerToken,
	}, c.logger)

	if !c.noPing {
		err := cliui.Step(c.err, "Connecting to "+c.cfg.Client.RelayTarget, func() error {
			return client.Ping(ctx)
		})
		if err != nil {
			return fmt.Errorf("relay not reachable: %w", err)
		}
	}

	renderer := newTerminalRenderer(c.out, c.markdown && interactive)
	session := chat.NewSession(client,
		chat.WithRenderer(renderer),
		chat.WithNotifier(chat.NotifierFunc(func(title, description string) {
			fmt.Fprintln(c.err, cliui.Failure(title, description))
		})),
		chat.WithLogger(c.logger),
	)

	fmt.Fprintln(c.out)
	renderer.Render(session.Messages())
	if interactive {
		fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /reset to start over, /exit or Ctrl+D to quit."))
	}

	return c.loop(ctx, session, interactive)
}

func (c *chatCommander) loop(ctx context.Context, session *chat.Session, interactive bool) error {
	scanner := bufio.NewScanner(c.in)

	for {
		if interactive {
			fmt.Fprint(c.out, cliui.UserPrompt)
		}
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			return nil
		case "/reset":
			session.Reset()
			continue
		}

		err := session.Send(ctx, input)
		switch {
		case err == nil:
		case errors.Is(err, chat.ErrBusy), errors.Is(err, chat.ErrEmptyMessage):
			c.logger.Debug("message not sent", zap.Error(err))
		default:
			// Already surfaced through the notifier.
			c.logger.Debug("chat exchange failed", zap.Error(err))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
