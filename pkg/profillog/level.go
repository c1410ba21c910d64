// Package profillog records leveled log entries through interchangeable
// storage handlers (plain text, CSV, JSON, SQLite, Badger) and queries them
// back with text, regex, date-range and grouping filters.
package profillog

import (
	"fmt"
	"strings"
)

// Level is the severity of a log entry. Levels are totally ordered.
type Level int8

const (
	DebugLevel Level = iota
	InfoLevel
	WarningLevel
	ErrorLevel
	CriticalLevel
)

// String returns the upper-case level name as it is persisted
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarningLevel:
		return "WARNING"
	case ErrorLevel:
		return "ERROR"
	case CriticalLevel:
		return "CRITICAL"
	default:
		return fmt.Sprintf("LEVEL(%d)", int8(l))
	}
}

// Valid reports whether l is one of the known levels
func (l Level) Valid() bool {
	return l >= DebugLevel && l <= CriticalLevel
}

// Levels returns every level in ascending severity
func Levels() []Level {
	return []Level{DebugLevel, InfoLevel, WarningLevel, ErrorLevel, CriticalLevel}
}

// ParseLevel converts a level name (case-insensitive) to a Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DebugLevel, nil
	case "INFO":
		return InfoLevel, nil
	case "WARNING":
		return WarningLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	case "CRITICAL":
		return CriticalLevel, nil
	default:
		return DebugLevel, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}
