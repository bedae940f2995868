package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var console io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}

// Init initializes the global logger
func Init(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = zerolog.New(console).With().Timestamp().Logger()
}

// NewLogger creates a new logger with optional writers
func NewLogger(writers ...io.Writer) zerolog.Logger {
	switch len(writers) {
	case 0:
		return log.Logger
	case 1:
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}

// WithComponent creates a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// ForProject returns a logger that writes to the console logger and appends
// JSON lines to <projectDir>/log/pipeline.log. The returned closer releases
// the file handle.
func ForProject(projectDir string) (zerolog.Logger, io.Closer, error) {
	logDir := filepath.Join(projectDir, "log")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return log.Logger, nopCloser{}, err
	}

	f, err := os.OpenFile(filepath.Join(logDir, "pipeline.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.Logger, nopCloser{}, err
	}

	logger := NewLogger(console, f).With().
		Str("project", filepath.Base(projectDir)).
		Logger()
	return logger, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
