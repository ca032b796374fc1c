// Package logging provides the structured logger used across the event
// ingest gateway: a thin wrapper over arbor.ILogger so call sites use a
// stable, chainable API regardless of which writers are registered.
package logging

import (
	"os"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

// Logger wraps arbor.ILogger to give every subsystem a consistent interface.
type Logger struct {
	arbor.ILogger
}

// New creates a logger at the given level (trace|debug|info|warn|error),
// writing to stderr and to an in-memory writer.
func New(level string) *Logger {
	l := arbor.NewLogger().
		WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			Writer:     os.Stderr,
			TimeFormat: "2006-01-02T15:04:05Z07:00",
		}).
		WithMemoryWriter(models.WriterConfiguration{
			Type: models.LogWriterTypeMemory,
		}).
		WithLevelFromString(level)
	return &Logger{ILogger: l}
}

// NewSilent returns a logger that discards everything. Used in tests.
func NewSilent() *Logger {
	l := arbor.NewLogger().WithLevelFromString(log.Disabled.String())
	return &Logger{ILogger: l}
}

// WithCorrelationID returns a derived logger tagging every line with id —
// used to thread job_id/trace_id through a single request's log lines.
func (l *Logger) WithCorrelationID(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}
