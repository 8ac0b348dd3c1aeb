// Package logger provides JSON structured logging using zerolog.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var globalLogger zerolog.Logger

// Config selects the level and destination of the process logger.
// Output is "stdout", "stderr", "discard" (or empty), or a file path
// opened in append mode. A non-nil Writer takes precedence over Output.
type Config struct {
	Level  string    `mapstructure:"level" yaml:"level"`
	Output string    `mapstructure:"output" yaml:"output"`
	Writer io.Writer `mapstructure:"-" yaml:"-"`
}

func init() {
	globalLogger = zerolog.New(io.Discard)
	zerolog.TimeFieldFormat = time.RFC3339
}

// Init configures the global logger. The returned closer releases the log
// file when Output names one; it is a no-op otherwise.
func Init(config Config) (io.Closer, error) {
	var (
		output io.Writer = config.Writer
		closer io.Closer = nopCloser{}
		err    error
	)
	if output == nil {
		output, closer, err = openOutput(config.Output)
		if err != nil {
			return nil, err
		}
	}

	level := zerolog.InfoLevel
	if config.Level != "" {
		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			_ = closer.Close()
			return nil, fmt.Errorf("parse log level %q: %w", config.Level, err)
		}
	}

	globalLogger = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Logger = globalLogger

	return closer, nil
}

func openOutput(output string) (io.Writer, io.Closer, error) {
	switch output {
	case "", "discard":
		return io.Discard, nopCloser{}, nil
	case "stdout":
		return os.Stdout, nopCloser{}, nil
	case "stderr":
		return os.Stderr, nopCloser{}, nil
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}
