package telemetry

import (
	"github.com/sirupsen/logrus"

	"github.com/overfly42/found-gems/logging"
)

// Logger exposes the plain logging the process wiring needs before and around
// the structured router.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a logrus logger to the Logger interface.
func WrapLogger(logger logrus.FieldLogger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger logrus.FieldLogger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// FieldLogger returns the wrapped logrus logger, if any.
func (l *loggerAdapter) FieldLogger() logrus.FieldLogger {
	if l == nil {
		return nil
	}
	return l.logger
}

// Metrics exposes the counters the agent reports.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics adapts the logging router metrics into the Metrics interface.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return &metricsAdapter{metrics: metrics}
}

type metricsAdapter struct {
	metrics *logging.Metrics
}

func (m *metricsAdapter) Add(key string, delta uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryAdd(key, delta)
}

func (m *metricsAdapter) Store(key string, value uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryStore(key, value)
}

// NopMetrics discards every update.
func NopMetrics() Metrics {
	return WrapMetrics(nil)
}
