// Package relay provides the chat streaming relay: it accepts a chat message,
// makes one upstream Gemini call and re-emits the reply as normalized
// Server-Sent Events while it is still being generated.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatrelay/pkg/eventstream"
	"github.com/papercomputeco/chatrelay/pkg/eventstream/nop"
	"github.com/papercomputeco/chatrelay/pkg/gemini"
	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/metrics"
	"github.com/papercomputeco/chatrelay/pkg/utils"
	"github.com/papercomputeco/chatrelay/relay/header"
	"github.com/papercomputeco/chatrelay/relay/worker"
)

// Relay is a stateless chat streaming relay. Each request is served by one
// upstream call; the only state shared between requests is the metrics
// registry and the exchange event worker pool.
type Relay struct {
	config        Config
	streamer      gemini.Streamer
	logger        *zap.Logger
	server        *fiber.App
	workerPool    *worker.Pool
	metrics       *metrics.Metrics
	gatherer      prometheus.Gatherer
	publisher     eventstream.Publisher
	headerHandler *header.Handler
}

// Option configures a Relay.
type Option func(*Relay)

// WithMetrics records into m and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(r *Relay) {
		r.metrics = m
		r.gatherer = gatherer
	}
}

// WithPublisher publishes an exchange event for every finished request.
func WithPublisher(p eventstream.Publisher) Option {
	return func(r *Relay) {
		r.publisher = p
	}
}

// New creates a new Relay that generates replies with streamer.
func New(config Config, streamer gemini.Streamer, logger *zap.Logger, opts ...Option) (*Relay, error) {
	if streamer == nil {
		return nil, errors.New("streamer is required")
	}

	r := &Relay{
		config:        config.withDefaults(),
		streamer:      streamer,
		logger:        logger,
		headerHandler: header.NewHandler(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.metrics == nil {
		reg := prometheus.NewRegistry()
		r.metrics = metrics.New(reg)
		r.gatherer = reg
	}

	if r.publisher == nil {
		r.publisher = nop.NewPublisher()
	}

	wp, err := worker.NewPool(&worker.Config{
		Publisher: r.publisher,
		OnDrop:    r.metrics.ExchangeDropped.Inc,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	r.workerPool = wp

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	app.Use(r.headerHandler.CORS())
	app.Post(r.config.Path, r.handleChat)
	app.Get("/health", r.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	r.server = app

	return r, nil
}

// Run starts the relay server on the configured listening address
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		zap.String("listen", r.config.ListenAddr),
		zap.String("path", r.config.Path),
		zap.String("backend", r.streamer.Name()),
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		zap.String("listen", listener.Addr().String()),
		zap.String("path", r.config.Path),
		zap.String("backend", r.streamer.Name()),
	)

	return r.server.Listener(listener)
}

// Close shuts down the HTTP server and then drains the exchange event pool.
func (r *Relay) Close() error {
	serverErr := r.server.Shutdown()
	poolErr := r.workerPool.Close()
	return errors.Join(serverErr, poolErr)
}

func (r *Relay) handleHealth(c *fiber.Ctx) error {
	status := "ok"
	if err := r.streamer.Ready(); err != nil {
		status = "unconfigured"
	}
	return c.JSON(fiber.Map{"status": status, "backend": r.streamer.Name()})
}

// handleChat validates a chat request and starts streaming its reply.
func (r *Relay) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()

	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		r.logger.Error("failed to parse chat request", zap.Error(err))
		r.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
			Error:   "Failed to process chat message",
			Details: err.Error(),
		})
	}

	if err := r.streamer.Ready(); err != nil {
		r.logger.Error("relay backend not configured", zap.Error(err))
		r.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	if strings.TrimSpace(req.Message) == "" {
		r.metrics.RequestsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "message is required"})
	}

	r.logger.Info("processing chat message",
		zap.Int("message_length", len(req.Message)),
		zap.String("backend", r.streamer.Name()),
	)
	r.logger.Debug("chat message preview", zap.String("message", utils.Truncate(req.Message, 80)))

	r.headerHandler.SetStreamHeaders(c)

	// Use io.Pipe + SetBodyStream so that every event is flushed to the
	// client as soon as it is written: pw.Write blocks until fasthttp's
	// chunked body writer has consumed it.
	pr, pw := io.Pipe()
	go r.streamToPipeWriter(req.Message, pw, startTime)

	// Unknown size (-1) selects chunked transfer encoding.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// streamToPipeWriter runs the upstream call and writes its events to pw.
// It uses context.Background() because fasthttp recycles the request
// context once the handler has returned.
func (r *Relay) streamToPipeWriter(message string, pw *io.PipeWriter, startTime time.Time) {
	defer pw.Close()

	r.metrics.InFlight.Inc()
	defer r.metrics.InFlight.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	em := newEmitter(pw, r.metrics)

	err := r.streamer.StreamGenerate(ctx, message, em.emit)
	if err != nil {
		r.logger.Error("upstream stream failed",
			zap.String("backend", r.streamer.Name()),
			zap.Error(err),
		)
		em.fail(err.Error())
	}
	em.finish()

	if em.writeErr != nil {
		r.logger.Warn("client went away mid-stream", zap.Error(em.writeErr))
	}

	outcome := classify(err, em.errMsg)
	completedAt := time.Now()

	r.metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	r.metrics.StreamDuration.Observe(completedAt.Sub(startTime).Seconds())

	r.logger.Info("stream complete",
		zap.String("outcome", outcome),
		zap.Int("text_events", em.texts),
		zap.Duration("duration", completedAt.Sub(startTime)),
	)

	r.workerPool.Enqueue(worker.Job{
		Backend:     r.streamer.Name(),
		Model:       r.config.Model,
		Path:        r.config.Path,
		Message:     message,
		Reply:       em.reply.String(),
		Error:       em.errMsg,
		Outcome:     outcome,
		TextEvents:  em.texts,
		StartedAt:   startTime,
		CompletedAt: completedAt,
	})
}

// classify maps how a stream ended onto a metrics outcome.
func classify(err error, errMsg string) string {
	var httpErr *llm.UpstreamHTTPError
	switch {
	case errors.As(err, &httpErr):
		return metrics.OutcomeUpstreamHTTP
	case err != nil:
		return metrics.OutcomeTransport
	case errMsg == llm.ErrNoText.Error():
		return metrics.OutcomeNoText
	default:
		return metrics.OutcomeCompleted
	}
}
