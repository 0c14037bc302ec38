// Package servecmder provides the serve command that runs the chat relay.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatrelay/pkg/config"
	"github.com/papercomputeco/chatrelay/pkg/credentials"
	"github.com/papercomputeco/chatrelay/pkg/eventstream"
	"github.com/papercomputeco/chatrelay/pkg/eventstream/kafka"
	"github.com/papercomputeco/chatrelay/pkg/eventstream/nop"
	"github.com/papercomputeco/chatrelay/pkg/framing"
	"github.com/papercomputeco/chatrelay/pkg/gemini"
	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/logger"
	"github.com/papercomputeco/chatrelay/pkg/metrics"
	"github.com/papercomputeco/chatrelay/relay"
)

type serveCommander struct {
	cfg   *config.Config
	debug bool

	// Flag targets. Resolved values are read through viper into cfg.
	listen, path, backend, baseURL, model, timeout string
	eventStream, brokers, topic                     string
	maxOutputTokens                                 uint

	// logFile, when set, receives a JSON copy of every log entry.
	logFile string

	logger *zap.Logger
}

// serveFlags lists the registry flags the serve command accepts.
var serveFlags = []string{
	config.FlagListen,
	config.FlagPath,
	config.FlagBackend,
	config.FlagBaseURL,
	config.FlagModel,
	config.FlagTimeout,
	config.FlagMaxOutputTokens,
	config.FlagEventStream,
	config.FlagBrokers,
	config.FlagTopic,
}

const serveLongDesc string = `Run the chat relay.

The relay accepts POST requests carrying {"message": "..."} on the chat path,
makes one streaming Gemini call per request and re-emits the reply as
Server-Sent Events of the form data: {"text": ...}, data: {"error": ...} and
data: {"done": true}.

The Gemini API key is read from GEMINI_API_KEY, CHATRELAY_GEMINI_API_KEY or
gemini.api_key in config.toml. Without a key the relay still starts and
answers every chat request with HTTP 500.

Also served:
  GET /health     Liveness and backend status
  GET /metrics    Prometheus metrics

Examples:
  chatrelay serve
  chatrelay serve --listen :9000 --backend genai
  chatrelay serve --eventstream kafka --brokers localhost:9092
  chatrelay serve --log-file relay.log`

const serveShortDesc string = "Run the chat relay"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.cfg = config.FromViper(v)

			creds, err := credentials.NewManager(configDir)
			if err != nil {
				return fmt.Errorf("loading credentials: %w", err)
			}
			if cmder.cfg.Gemini.APIKey, err = creds.Fill(cmder.cfg.Gemini.APIKey, credentials.ProviderGemini); err != nil {
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

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagPath, &cmder.path)
	config.AddStringFlag(cmd, config.Flags, config.FlagBackend, &cmder.backend)
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxOutputTokens, &cmder.maxOutputTokens)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStream, &cmder.eventStream)
	config.AddStringFlag(cmd, config.Flags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, &cmder.topic)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Append JSON logs to this file as well as the console")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = logger.NewLogger(c.debug)
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		c.logger = logger.Multi(c.logger, logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithWriter(f),
		))
	}
	defer func() { _ = c.logger.Sync() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	streamer, err := newStreamer(ctx, c.cfg, m, c.logger)
	if err != nil {
		return err
	}

	pub, err := newPublisher(c.cfg)
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}

	r, err := relay.New(relay.Config{
		ListenAddr: c.cfg.Relay.Listen,
		Path:       c.cfg.Relay.Path,
		Model:      c.cfg.Gemini.Model,
	}, streamer, c.logger,
		relay.WithMetrics(m, reg),
		relay.WithPublisher(pub),
	)
	if err != nil {
		_ = pub.Close()
		return fmt.Errorf("creating relay: %w", err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			c.logger.Error("error closing relay", zap.Error(err))
		}
	}()

	c.logger.Info("relay configured",
		zap.String("backend", streamer.Name()),
		zap.String("model", c.cfg.Gemini.Model),
		zap.String("eventstream", c.cfg.EventStream.Provider),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := r.Run(); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return nil
	}
}

// newStreamer builds the configured Gemini backend. A missing API key is
// not fatal: the relay starts with an Unconfigured streamer and rejects
// chat requests until it is restarted with a key.
func newStreamer(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *zap.Logger) (gemini.Streamer, error) {
	gcfg := cfg.ToGemini()

	var (
		streamer gemini.Streamer
		err      error
	)
	switch cfg.Relay.Backend {
	case config.BackendHTTP, "":
		streamer, err = gemini.NewHTTPClient(gcfg, log,
			gemini.WithSkipHook(func(*llm.ParseError) { m.ParseErrors.Inc() }),
			gemini.WithFramingHook(func(k framing.Kind) { m.FramingTotal.WithLabelValues(k.String()).Inc() }),
		)
	case config.BackendGenAI:
		streamer, err = gemini.NewSDKClient(ctx, gcfg, log)
	default:
		return nil, fmt.Errorf("unknown relay backend %q (expected %s or %s)",
			cfg.Relay.Backend, config.BackendHTTP, config.BackendGenAI)
	}

	var cfgErr *llm.ConfigurationError
	if errors.As(err, &cfgErr) {
		log.Warn("gemini backend not configured, chat requests will fail", zap.Error(err))
		return gemini.Unconfigured{Err: cfgErr}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s backend: %w", cfg.Relay.Backend, err)
	}

	return streamer, nil
}

func newPublisher(cfg *config.Config) (eventstream.Publisher, error) {
	switch cfg.EventStream.Provider {
	case config.EventStreamNop, "":
		return nop.NewPublisher(), nil
	case config.EventStreamKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: cfg.BrokerList(),
			Topic:   cfg.EventStream.Topic,
		})
	default:
		return nil, fmt.Errorf("unknown eventstream provider %q (expected %s or %s)",
			cfg.EventStream.Provider, config.EventStreamNop, config.EventStreamKafka)
	}
}
