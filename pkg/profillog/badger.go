package profillog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Key format: "entry:" + 8-byte sortable timestamp + 16-byte UUIDv7.
// The UUID keeps keys unique and orders same-instant entries by insertion.
var badgerEntryPrefix = []byte("entry:")

// BadgerHandler stores entries in an embedded Badger key-value store
type BadgerHandler struct {
	db     *badger.DB
	dir    string
	logger *logrus.Logger
	mu     sync.Mutex
	closed bool
}

// NewBadgerHandler opens or creates the Badger directory
func NewBadgerHandler(dir string, logger *logrus.Logger) (*BadgerHandler, error) {
	logger = loggerOrDefault(logger)

	opts := badger.DefaultOptions(dir).
		WithLogger(newBadgerLogger(logger)).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	logger.WithField("path", dir).Debug("Badger log handler initialized")

	return &BadgerHandler{db: db, dir: dir, logger: logger}, nil
}

// Name returns the backend name
func (h *BadgerHandler) Name() string { return "badger" }

// Persist writes the entry under a new time-ordered key
func (h *BadgerHandler) Persist(entry Entry) error {
	value, err := json.Marshal(toRecord(entry))
	if err != nil {
		return fmt.Errorf("failed to encode log entry: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate entry key: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	err = h.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerEntryKey(entry, id), value)
	})
	if err != nil {
		return fmt.Errorf("failed to save log entry: %w", err)
	}
	return nil
}

// RetrieveAll iterates all entries in key (timestamp) order
func (h *BadgerHandler) RetrieveAll() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := make([]Entry, 0)

	err := h.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = badgerEntryPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := fmt.Sprintf("%x", item.Key())

			var rec record
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				skipRecord(h.logger, h.Name(), key, fmt.Errorf("%w: %v", ErrMalformedRecord, err))
				continue
			}

			entry, err := fromRecord(rec)
			if err != nil {
				skipRecord(h.logger, h.Name(), key, err)
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		h.logger.WithError(err).WithField("path", h.dir).Warn("Failed to read badger log store")
	}

	return entries
}

// Close closes the database. Calling it more than once is a no-op.
func (h *BadgerHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	return h.db.Close()
}

func badgerEntryKey(entry Entry, id uuid.UUID) []byte {
	key := make([]byte, 0, len(badgerEntryPrefix)+8+16)
	key = append(key, badgerEntryPrefix...)
	// flipping the sign bit makes negative UnixNano values sort first
	key = binary.BigEndian.AppendUint64(key, uint64(entry.Timestamp().UnixNano())^(1<<63))
	key = append(key, id[:]...)
	return key
}

// badgerLogger routes badger's internal logging into logrus
type badgerLogger struct {
	logger *logrus.Logger
}

func newBadgerLogger(logger *logrus.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debugf("[BadgerDB] "+format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Tracef("[BadgerDB] "+format, args...)
}
