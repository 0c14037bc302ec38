package logger

import (
	"io"

	"go.uber.org/zap/zapcore"
)

// Option configures a Logger created with New.
type Option func(*config)

type config struct {
	level   zapcore.Level
	json    bool
	color   bool
	source  bool
	writers []io.Writer
}

// WithDebug sets the log level to Debug when true, Info otherwise.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = zapcore.DebugLevel
		} else {
			c.level = zapcore.InfoLevel
		}
	}
}

// WithJSON switches to the JSON encoder for structured service logs.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithColor colorizes levels in console output.
func WithColor(color bool) Option {
	return func(c *config) {
		c.color = color
	}
}

// WithWriter overrides the output writer. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters sets multiple output writers.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource includes the caller's file:line in log output.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
