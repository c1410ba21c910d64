package profillog

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger fans each log call out to every handler, subject to a minimum
// severity threshold. A handler failure is reported to the side-channel
// logger and never stops delivery to the remaining handlers.
type Logger struct {
	handlers  []Handler
	threshold atomic.Int32
	logger    *logrus.Logger
	metrics   *Metrics
	now       func() time.Time
}

// NewLogger creates a logger over the given handlers, in order. The
// threshold starts at DebugLevel so everything passes.
func NewLogger(handlers []Handler, logger *logrus.Logger) *Logger {
	l := &Logger{
		handlers: append([]Handler(nil), handlers...),
		logger:   loggerOrDefault(logger),
		now:      time.Now,
	}
	l.threshold.Store(int32(DebugLevel))
	return l
}

// SetMetrics attaches Prometheus collectors
func (l *Logger) SetMetrics(m *Metrics) {
	l.metrics = m
}

// Handlers returns the handlers in dispatch order
func (l *Logger) Handlers() []Handler {
	return append([]Handler(nil), l.handlers...)
}

// SetLevel sets the threshold from a level name (case-insensitive).
// An unknown name leaves the threshold unchanged.
func (l *Logger) SetLevel(name string) {
	level, err := ParseLevel(name)
	if err != nil {
		l.logger.WithError(err).WithField("current_level", l.Level().String()).
			Debug("Ignoring unknown log level")
		return
	}
	l.threshold.Store(int32(level))
}

// Level returns the current threshold
func (l *Logger) Level() Level {
	return Level(l.threshold.Load())
}

// Log records message at level on every handler. A level outside the five
// known values is reported to the side channel and nothing is stored.
func (l *Logger) Log(level Level, message string) {
	if !level.Valid() {
		l.logger.WithError(ErrInvalidLevel).WithField("level_value", int(level)).
			Error("Dropping log entry with invalid level")
		return
	}
	// Level check happens before the entry is built
	if !l.enabled(level) {
		return
	}
	l.dispatch(NewEntry(l.now(), level, message))
}

// enabled reports whether level passes the threshold
func (l *Logger) enabled(level Level) bool {
	if int32(level) < l.threshold.Load() {
		l.metrics.filtered()
		return false
	}
	return true
}

func (l *Logger) dispatch(entry Entry) {
	for _, h := range l.handlers {
		l.persist(h, entry)
	}
}

func (l *Logger) persist(h Handler, entry Entry) {
	name := HandlerName(h)
	if err := h.Persist(entry); err != nil {
		l.metrics.failed(name)
		l.logger.WithError(err).WithFields(logrus.Fields{
			"handler": name,
			"level":   entry.Level().String(),
		}).Error("Failed to persist log entry")
		return
	}
	l.metrics.persisted(name)
}

// Debug logs a debug message
func (l *Logger) Debug(message string) { l.Log(DebugLevel, message) }

// Info logs an info message
func (l *Logger) Info(message string) { l.Log(InfoLevel, message) }

// Warning logs a warning message
func (l *Logger) Warning(message string) { l.Log(WarningLevel, message) }

// Error logs an error message
func (l *Logger) Error(message string) { l.Log(ErrorLevel, message) }

// Critical logs a critical message
func (l *Logger) Critical(message string) { l.Log(CriticalLevel, message) }

// Close releases every handler that holds a resource
func (l *Logger) Close() error {
	var errs []error
	for _, h := range l.handlers {
		if err := CloseHandler(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
