// Package logging provides slog decorators for memento stores, dispatchers
// and handlers.
package logging

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// NewLogger returns a logger writing to the global OpenTelemetry
// LoggerProvider, with trace correlation taken from the context.
func NewLogger(name string, opts ...otelslog.Option) *slog.Logger {
	return otelslog.NewLogger(name, opts...)
}
