package profillog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogrusHook persists logrus entries through a Logger, so an application
// already logging with logrus can store its output in any handler.
//
// The Logger must report handler failures to a different logrus logger
// than the one the hook is attached to, otherwise a failing handler
// recurses through the hook.
type LogrusHook struct {
	logger *Logger
	levels []logrus.Level
}

// NewLogrusHook creates a hook firing for all logrus levels
func NewLogrusHook(logger *Logger) *LogrusHook {
	return &LogrusHook{
		logger: logger,
		levels: logrus.AllLevels,
	}
}

// Levels returns the log levels this hook fires for
func (h *LogrusHook) Levels() []logrus.Level {
	return h.levels
}

// Fire converts the logrus entry and dispatches it synchronously. The
// entry's own time is kept; fields are appended to the message as key=value.
func (h *LogrusHook) Fire(entry *logrus.Entry) error {
	level := levelFromLogrus(entry.Level)
	if !h.logger.enabled(level) {
		return nil
	}

	msg := entry.Message
	if len(entry.Data) > 0 {
		msg += " " + formatFields(entry.Data)
	}

	h.logger.dispatch(NewEntry(entry.Time, level, msg))
	return nil
}

func levelFromLogrus(l logrus.Level) Level {
	switch l {
	case logrus.TraceLevel, logrus.DebugLevel:
		return DebugLevel
	case logrus.InfoLevel:
		return InfoLevel
	case logrus.WarnLevel:
		return WarningLevel
	case logrus.ErrorLevel:
		return ErrorLevel
	default:
		return CriticalLevel
	}
}

// formatFields renders fields as space-separated key=value pairs in key order
func formatFields(data logrus.Fields) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, data[k])
	}
	return b.String()
}
