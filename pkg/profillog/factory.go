package profillog

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HandlerType identifies a storage backend
type HandlerType string

const (
	HandlerTypeText   HandlerType = "text"
	HandlerTypeCSV    HandlerType = "csv"
	HandlerTypeJSON   HandlerType = "json"
	HandlerTypeSQLite HandlerType = "sqlite"
	HandlerTypeBadger HandlerType = "badger"
)

// HandlerConfig describes one handler to build
type HandlerConfig struct {
	ID    string `mapstructure:"id" json:"id"`
	Name  string `mapstructure:"name" json:"name"`
	Type  string `mapstructure:"type" json:"type"`   // text | csv | json | sqlite | badger
	Path  string `mapstructure:"path" json:"path"`   // file path, or directory for badger
	Table string `mapstructure:"table" json:"table"` // sqlite only
}

// ValidateHandlerConfig checks the type and path, and fills in a missing ID and name
func ValidateHandlerConfig(cfg *HandlerConfig) error {
	switch HandlerType(cfg.Type) {
	case HandlerTypeText, HandlerTypeCSV, HandlerTypeJSON, HandlerTypeSQLite, HandlerTypeBadger:
	default:
		return fmt.Errorf("%w: %q (must be 'text', 'csv', 'json', 'sqlite' or 'badger')", ErrInvalidHandlerType, cfg.Type)
	}
	if cfg.Path == "" {
		return fmt.Errorf("%w: %s handler", ErrHandlerPathRequired, cfg.Type)
	}
	if cfg.Table != "" && HandlerType(cfg.Type) == HandlerTypeSQLite && !tableNamePattern.MatchString(cfg.Table) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, cfg.Table)
	}

	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Type
	}
	return nil
}

// NewHandler builds the handler described by cfg
func NewHandler(cfg HandlerConfig, logger *logrus.Logger) (Handler, error) {
	if err := ValidateHandlerConfig(&cfg); err != nil {
		return nil, err
	}

	logger = loggerOrDefault(logger)
	logger.WithFields(logrus.Fields{
		"handler_id":   cfg.ID,
		"handler_name": cfg.Name,
		"handler_type": cfg.Type,
		"path":         cfg.Path,
	}).Debug("Creating log handler")

	var (
		h   Handler
		err error
	)
	switch HandlerType(cfg.Type) {
	case HandlerTypeText:
		h, err = NewTextHandler(cfg.Path, logger)
	case HandlerTypeCSV:
		h, err = NewCSVHandler(cfg.Path, logger)
	case HandlerTypeJSON:
		h, err = NewJSONHandler(cfg.Path, logger)
	case HandlerTypeSQLite:
		h, err = NewSQLiteHandler(cfg.Path, cfg.Table, logger)
	case HandlerTypeBadger:
		h, err = NewBadgerHandler(cfg.Path, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s handler %q: %w", cfg.Type, cfg.Name, err)
	}
	return h, nil
}
