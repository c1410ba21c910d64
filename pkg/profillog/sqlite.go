package profillog

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// DefaultTableName is the table used when none is configured
const DefaultTableName = "logs"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteHandler stores entries as rows of a single SQLite table
type SQLiteHandler struct {
	db     *sql.DB
	path   string
	table  string
	logger *logrus.Logger
	mu     sync.Mutex
}

// NewSQLiteHandler opens the database and creates the table if it is absent.
// An empty table name selects DefaultTableName.
func NewSQLiteHandler(dbPath, table string, logger *logrus.Logger) (*SQLiteHandler, error) {
	if table == "" {
		table = DefaultTableName
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open log database: %w", err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY between our own goroutines
	db.SetMaxOpenConns(1)

	h := &SQLiteHandler{
		db:     db,
		path:   dbPath,
		table:  table,
		logger: loggerOrDefault(logger),
	}

	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize log schema: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"path":  dbPath,
		"table": table,
	}).Debug("SQLite log handler initialized")

	return h, nil
}

// initSchema creates the log table and its timestamp index if they don't exist
func (h *SQLiteHandler) initSchema() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_timestamp ON %[1]s(timestamp);
	`, h.table)

	_, err := h.db.Exec(schema)
	return err
}

// Name returns the backend name
func (h *SQLiteHandler) Name() string { return "sqlite" }

// Persist inserts a single row
func (h *SQLiteHandler) Persist(entry Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	query := fmt.Sprintf("INSERT INTO %s (timestamp, level, message) VALUES (?, ?, ?)", h.table)
	_, err := h.db.Exec(query,
		FormatTimestamp(entry.Timestamp()),
		entry.Level().String(),
		entry.Message(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}
	return nil
}

// RetrieveAll returns all rows ordered by timestamp. A missing table or a
// failed query yields an empty result.
func (h *SQLiteHandler) RetrieveAll() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := make([]Entry, 0)

	query := fmt.Sprintf("SELECT id, timestamp, level, message FROM %s ORDER BY timestamp ASC, id ASC", h.table)
	rows, err := h.db.Query(query)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"path":  h.path,
			"table": h.table,
		}).Warn("Failed to query log table")
		return entries
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var timestamp, level, message sql.NullString
		if err := rows.Scan(&id, &timestamp, &level, &message); err != nil {
			skipRecord(h.logger, h.Name(), h.table, fmt.Errorf("%w: %v", ErrMalformedRecord, err))
			continue
		}

		entry, err := decodeFields(timestamp.String, level.String, message.String)
		if err != nil {
			skipRecord(h.logger, h.Name(), h.table+"#"+strconv.FormatInt(id, 10), err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		h.logger.WithError(err).WithField("table", h.table).Warn("Stopped reading log table")
	}

	return entries
}

// Close closes the database
func (h *SQLiteHandler) Close() error {
	return h.db.Close()
}
