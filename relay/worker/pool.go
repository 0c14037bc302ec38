// Package worker provides an asynchronous worker pool that publishes
// completed chat exchanges to an eventstream.Publisher.
//
// The pool decouples publishing from the relay's streaming hot path so that
// a slow or unavailable event backend never delays a client's done event.
package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/chatrelay/pkg/eventstream"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job describes one finished chat request.
type Job struct {
	Backend     string
	Model       string
	Path        string
	Message     string
	Reply       string
	Error       string
	Outcome     string
	TextEvents  int
	StartedAt   time.Time
	CompletedAt time.Time
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives one event per job.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// OnDrop is called when a job is dropped because the queue is full.
	OnDrop func()

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool publishes exchange events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger

	// mu guards closed and sends on queue against Close.
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("worker pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Debug("job not queued, pool closed",
			zap.String("backend", job.Backend),
			zap.String("outcome", job.Outcome),
		)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("backend", job.Backend),
			zap.String("outcome", job.Outcome),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("backend", job.Backend),
			zap.String("outcome", job.Outcome),
		)
		if p.config.OnDrop != nil {
			p.config.OnDrop()
		}
		return false
	}
}

// Close signals workers to stop, waits for in-flight jobs to drain and then
// closes the publisher. Call this during graceful shutdown after the relay
// HTTP server has stopped.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("publish worker stopped", zap.Uint("worker_id", id))
}

// processJob converts a Job into an exchange event and publishes it.
func (p *Pool) processJob(job Job) {
	event := eventstream.NewExchangeCompletedEvent(
		eventstream.EventSource{
			Backend: job.Backend,
			Model:   job.Model,
		},
		eventstream.ExchangeMeta{
			Path:        job.Path,
			StartedAt:   job.StartedAt,
			CompletedAt: job.CompletedAt,
			DurationMs:  job.CompletedAt.Sub(job.StartedAt).Milliseconds(),
			Outcome:     job.Outcome,
			TextEvents:  job.TextEvents,
		},
		eventstream.ExchangeContent{
			Message: job.Message,
			Reply:   job.Reply,
			Error:   job.Error,
		},
	)

	if err := p.config.Publisher.PublishExchange(context.Background(), event); err != nil {
		p.logger.Error("publishing exchange event failed",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("exchange event published",
		zap.String("event_id", event.EventID),
		zap.String("outcome", job.Outcome),
	)
}
