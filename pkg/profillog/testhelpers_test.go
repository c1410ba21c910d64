package profillog

import (
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestLogrus() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.WarnLevel) // Reduce noise in tests
	return logger
}

// handlerFactory opens a handler of one backend at a fixed location so that
// reopening sees the same store
type handlerFactory struct {
	name string
	open func(t *testing.T, dir string) Handler
}

var handlerFactories = []handlerFactory{
	{"text", func(t *testing.T, dir string) Handler {
		h, err := NewTextHandler(filepath.Join(dir, "logs.txt"), newTestLogrus())
		require.NoError(t, err)
		return h
	}},
	{"csv", func(t *testing.T, dir string) Handler {
		h, err := NewCSVHandler(filepath.Join(dir, "logs.csv"), newTestLogrus())
		require.NoError(t, err)
		return h
	}},
	{"json", func(t *testing.T, dir string) Handler {
		h, err := NewJSONHandler(filepath.Join(dir, "logs.json"), newTestLogrus())
		require.NoError(t, err)
		return h
	}},
	{"sqlite", func(t *testing.T, dir string) Handler {
		h, err := NewSQLiteHandler(filepath.Join(dir, "logs.db"), "", newTestLogrus())
		require.NoError(t, err)
		t.Cleanup(func() { h.Close() })
		return h
	}},
	{"badger", func(t *testing.T, dir string) Handler {
		h, err := NewBadgerHandler(filepath.Join(dir, "badger"), newTestLogrus())
		require.NoError(t, err)
		t.Cleanup(func() { h.Close() })
		return h
	}},
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// memoryHandler keeps entries in a slice; failErr makes every Persist fail
type memoryHandler struct {
	mu      sync.Mutex
	entries []Entry
	failErr error
	closed  bool
}

func (h *memoryHandler) Name() string { return "memory" }

func (h *memoryHandler) Persist(entry Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failErr != nil {
		return h.failErr
	}
	h.entries = append(h.entries, entry)
	return nil
}

func (h *memoryHandler) RetrieveAll() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry{}, h.entries...)
}

func (h *memoryHandler) Close() error {
	h.closed = true
	return nil
}

var errDiskFull = errors.New("disk full")
