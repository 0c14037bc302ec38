// Package logger provides opinionated zap logging for the relay and its CLI.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger from opts. The default is an Info-level console
// logger on os.Stdout with ISO8601 timestamps.
func New(opts ...Option) *zap.Logger {
	cfg := &config{level: zapcore.InfoLevel}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.writers) == 0 {
		cfg.writers = []io.Writer{os.Stdout}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if cfg.json {
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		if cfg.color {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	syncers := make([]zapcore.WriteSyncer, 0, len(cfg.writers))
	for _, writer := range cfg.writers {
		syncers = append(syncers, zapcore.AddSync(writer))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(syncers...), cfg.level)

	var zopts []zap.Option
	if cfg.source {
		zopts = append(zopts, zap.AddCaller())
	}

	return zap.New(core, zopts...)
}

// NewLogger returns a colorized console logger on os.Stdout.
func NewLogger(debug bool) *zap.Logger {
	return NewLoggerWithWriters(debug, os.Stdout)
}

// NewLoggerWithWriters returns a colorized console logger writing to every
// writer.
func NewLoggerWithWriters(debug bool, writers ...io.Writer) *zap.Logger {
	return New(
		WithDebug(debug),
		WithColor(true),
		WithSource(true),
		WithWriters(writers...),
	)
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
