// Package observability provides logging helpers shared by the relay and the
// command-line tools.
package observability

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/battlemap/internal/config"
)

// NewLogger creates the relay's structured logger, writing to stderr.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	return newLogger(cfg, os.Stderr)
}

// NewCLILogger returns a console logger for the battlemap command: warnings
// only, or everything when verbose.
func NewCLILogger(w io.Writer, verbose bool) *zap.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := newLogger(config.LoggingConfig{Level: level, Format: "console"}, w)
	if err != nil {
		// Both values are fixed above.
		panic(err)
	}
	return logger
}

func newLogger(cfg config.LoggingConfig, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	enc, err := encoder(cfg.Format)
	if err != nil {
		return nil, err
	}
	// Every fan-out and rejection is logged; nothing is sampled.
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), zap.NewAtomicLevelAt(level))
	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(zapcore.AddSync(w)))}
	if cfg.Format == "console" {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...), nil
}

func encoder(format string) (zapcore.Encoder, error) {
	switch format {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec), nil
	case "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ForDocument returns a child logger tagged with a document and, when
// non-empty, the client editing it.
func ForDocument(logger *zap.Logger, docID, clientID string) *zap.Logger {
	fields := []zap.Field{zap.String("doc", docID)}
	if clientID != "" {
		fields = append(fields, zap.String("client", clientID))
	}
	return logger.With(fields...)
}
