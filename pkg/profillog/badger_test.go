package profillog

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadgerHandler(t *testing.T) *BadgerHandler {
	t.Helper()
	h, err := NewBadgerHandler(filepath.Join(t.TempDir(), "badger"), newTestLogrus())
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestBadgerEntryKey_SortsByTimestamp(t *testing.T) {
	id := uuid.New()
	before := badgerEntryKey(NewEntry(time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC), InfoLevel, ""), id)
	epoch := badgerEntryKey(NewEntry(time.Unix(0, 0), InfoLevel, ""), id)
	after := badgerEntryKey(NewEntry(date(2024, 1, 1), InfoLevel, ""), id)

	assert.Equal(t, -1, bytes.Compare(before, epoch))
	assert.Equal(t, -1, bytes.Compare(epoch, after))
	assert.True(t, bytes.HasPrefix(after, badgerEntryPrefix))
	assert.Len(t, after, len(badgerEntryPrefix)+8+16)
}

func TestBadgerHandler_SkipsMalformedValues(t *testing.T) {
	h := newTestBadgerHandler(t)
	require.NoError(t, h.Persist(NewEntry(date(2024, 1, 1), InfoLevel, "good")))

	bad := map[string]string{
		"not json":      `{{{`,
		"missing keys":  `{"date":"2024-01-02T00:00:00Z"}`,
		"unknown level": `{"date":"2024-01-03T00:00:00Z","level":"LOUD","message":"x"}`,
	}
	i := 0
	for _, value := range bad {
		i++
		key := badgerEntryKey(NewEntry(date(2024, 2, i), InfoLevel, ""), uuid.New())
		err := h.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key, []byte(value))
		})
		require.NoError(t, err)
	}

	// keys outside the entry prefix are ignored
	err := h.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("meta:version"), []byte("1"))
	})
	require.NoError(t, err)

	got := h.RetrieveAll()
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].Message())
}

func TestBadgerHandler_CloseIsIdempotent(t *testing.T) {
	h := newTestBadgerHandler(t)
	require.NoError(t, h.Close())
	assert.NoError(t, h.Close())
}
