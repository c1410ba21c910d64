package profillog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlers_RoundTrip(t *testing.T) {
	entries := []Entry{
		NewEntry(time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC), InfoLevel, "hello"),
		NewEntry(time.Date(2024, 1, 2, 9, 15, 42, 123456789, time.UTC), ErrorLevel, "crash  with   spaces"),
		NewEntry(time.Date(2024, 2, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600)), CriticalLevel, `quotes "and", commas`),
		NewEntry(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), DebugLevel, "żółć ünïcode"),
		NewEntry(time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC), WarningLevel, "disk at 91%"),
	}

	for _, f := range handlerFactories {
		t.Run(f.name, func(t *testing.T) {
			h := f.open(t, t.TempDir())
			assert.Empty(t, h.RetrieveAll())
			assert.NotNil(t, h.RetrieveAll())
			assert.Equal(t, f.name, HandlerName(h))

			for _, e := range entries {
				require.NoError(t, h.Persist(e))
			}

			got := h.RetrieveAll()
			require.Len(t, got, len(entries))
			for i := range entries {
				assert.True(t, entries[i].Equal(got[i]), "want %s, got %s", entries[i], got[i])
			}
		})
	}
}

func TestHandlers_ReopenKeepsEntries(t *testing.T) {
	e1 := NewEntry(date(2024, 1, 1), InfoLevel, "first")
	e2 := NewEntry(date(2024, 1, 2), WarningLevel, "second")

	for _, f := range handlerFactories {
		t.Run(f.name, func(t *testing.T) {
			dir := t.TempDir()

			h := f.open(t, dir)
			require.NoError(t, h.Persist(e1))
			require.NoError(t, CloseHandler(h))

			h = f.open(t, dir)
			require.NoError(t, h.Persist(e2))

			got := h.RetrieveAll()
			require.Len(t, got, 2)
			assert.True(t, e1.Equal(got[0]))
			assert.True(t, e2.Equal(got[1]))
		})
	}
}

func TestHandlers_StoreOrder(t *testing.T) {
	late := NewEntry(date(2024, 3, 1), InfoLevel, "late")
	early := NewEntry(date(2024, 1, 1), InfoLevel, "early")

	// file handlers keep insertion order, the databases sort by timestamp
	want := map[string][]string{
		"text":   {"late", "early"},
		"csv":    {"late", "early"},
		"json":   {"late", "early"},
		"sqlite": {"early", "late"},
		"badger": {"early", "late"},
	}

	for _, f := range handlerFactories {
		t.Run(f.name, func(t *testing.T) {
			h := f.open(t, t.TempDir())
			require.NoError(t, h.Persist(late))
			require.NoError(t, h.Persist(early))

			var messages []string
			for _, e := range h.RetrieveAll() {
				messages = append(messages, e.Message())
			}
			assert.Equal(t, want[f.name], messages)
		})
	}
}

func TestHandlers_SameInstantKeepsInsertionOrder(t *testing.T) {
	ts := date(2024, 5, 5)

	for _, f := range handlerFactories {
		t.Run(f.name, func(t *testing.T) {
			h := f.open(t, t.TempDir())
			for _, msg := range []string{"a", "b", "c"} {
				require.NoError(t, h.Persist(NewEntry(ts, InfoLevel, msg)))
			}

			got := h.RetrieveAll()
			require.Len(t, got, 3)
			assert.Equal(t, "a", got[0].Message())
			assert.Equal(t, "b", got[1].Message())
			assert.Equal(t, "c", got[2].Message())
		})
	}
}
