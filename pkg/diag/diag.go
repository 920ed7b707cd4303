// Package diag defines the diagnostic sink the classification and
// association stages report to. Callers inject it; nothing here is global.
package diag

import "go.uber.org/zap"

// Sink receives debug-level diagnostics
type Sink interface {
	Debugf(format string, args ...any)
}

type nopSink struct{}

func (nopSink) Debugf(string, ...any) {}

// Nop returns a sink that discards everything
func Nop() Sink {
	return nopSink{}
}

// OrNop returns s, or a no-op sink when s is nil
func OrNop(s Sink) Sink {
	if s == nil {
		return nopSink{}
	}
	return s
}

type zapSink struct {
	logger *zap.SugaredLogger
}

func (z zapSink) Debugf(format string, args ...any) {
	z.logger.Debugf(format, args...)
}

// FromZap adapts a zap logger. A nil logger yields a no-op sink.
func FromZap(logger *zap.SugaredLogger) Sink {
	if logger == nil {
		return nopSink{}
	}
	return zapSink{logger: logger}
}
