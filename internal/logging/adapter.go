package logging

import (
	"log/slog"
)

// Logger is the logging interface accepted by pipeline components.
// Arguments are alternating key-value pairs or slog.Attr values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter adapts an slog.Logger to the Logger interface.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter wrapping the given slog.Logger.
// If logger is nil, slog.Default() is used.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *SlogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *SlogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }

// With returns an adapter whose records carry the given attributes.
func (a *SlogAdapter) With(args ...any) *SlogAdapter {
	return &SlogAdapter{logger: a.logger.With(args...)}
}

// Discard returns a Logger that drops every record.
func Discard() *SlogAdapter {
	return NewSlogAdapter(slog.New(slog.DiscardHandler))
}

// With returns a Logger whose records carry args. An *SlogAdapter is
// extended natively; any other Logger gets args prepended on every call.
func With(l Logger, args ...any) Logger {
	if a, ok := l.(*SlogAdapter); ok {
		return a.With(args...)
	}
	return prefixed{next: l, args: args}
}

type prefixed struct {
	next Logger
	args []any
}

func (p prefixed) Debug(msg string, args ...any) { p.next.Debug(msg, p.join(args)...) }
func (p prefixed) Info(msg string, args ...any)  { p.next.Info(msg, p.join(args)...) }
func (p prefixed) Warn(msg string, args ...any)  { p.next.Warn(msg, p.join(args)...) }
func (p prefixed) Error(msg string, args ...any) { p.next.Error(msg, p.join(args)...) }

func (p prefixed) join(args []any) []any {
	out := make([]any, 0, len(p.args)+len(args))
	out = append(out, p.args...)
	return append(out, args...)
}
