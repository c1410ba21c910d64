package profillog

import "errors"

var (
	// ErrUnknownLevel is returned when a level name is not one of the five known levels
	ErrUnknownLevel = errors.New("unknown log level")

	// ErrMalformedRecord is returned when a stored record cannot be decoded into an Entry
	ErrMalformedRecord = errors.New("malformed log record")

	// ErrRecordTooLarge is returned when an entry does not fit a line-based store
	ErrRecordTooLarge = errors.New("log record too large")

	// ErrInvalidLevel is reported when a Level value is outside the five known levels
	ErrInvalidLevel = errors.New("invalid log level value")

	// ErrInvalidTableName is returned when a SQLite table name is not a plain identifier
	ErrInvalidTableName = errors.New("invalid table name")

	// ErrInvalidHandlerType is returned when an unknown handler type is specified
	ErrInvalidHandlerType = errors.New("invalid handler type")

	// ErrHandlerPathRequired is returned when a handler config has no storage path
	ErrHandlerPathRequired = errors.New("handler path is required")
)
