package profillog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVHandler_WritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.csv")

	_, err := NewCSVHandler(path, newTestLogrus())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,level,message\n", string(data))
}

func TestNewCSVHandler_EmptyFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := NewCSVHandler(path, newTestLogrus())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,level,message\n", string(data))
}

func TestNewCSVHandler_KeepsExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.csv")
	content := "date,level,message\n2024-01-01T00:00:00Z,INFO,kept\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	h, err := NewCSVHandler(path, newTestLogrus())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	got := h.RetrieveAll()
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Message())
}

func TestCSVHandler_SkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.csv")
	content := "date,level,message\n" +
		"2024-01-01T00:00:00Z,INFO,good one\n" +
		"2024-01-01T00:00:00Z,INFO\n" + // too few columns
		"2024-01-01T00:00:00Z,INFO,extra,column\n" +
		"someday,INFO,bad date\n" +
		"2024-01-01T00:00:00Z,TRACE,bad level\n" +
		"2024-01-02T00:00:00Z,ERROR,\"quoted, with comma\"\n" +
		"2024-01-03T00:00:00Z,DEBUG,\"multi\nline\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	h, err := NewCSVHandler(path, newTestLogrus())
	require.NoError(t, err)

	got := h.RetrieveAll()
	require.Len(t, got, 3)
	assert.Equal(t, "good one", got[0].Message())
	assert.Equal(t, "quoted, with comma", got[1].Message())
	assert.Equal(t, "multi\nline", got[2].Message())
}

func TestCSVHandler_MessageWithNewlineRoundTrips(t *testing.T) {
	h, err := NewCSVHandler(filepath.Join(t.TempDir(), "logs.csv"), newTestLogrus())
	require.NoError(t, err)

	entry := NewEntry(date(2024, 1, 1), ErrorLevel, "stack:\n  at main()")
	require.NoError(t, h.Persist(entry))

	got := h.RetrieveAll()
	require.Len(t, got, 1)
	assert.True(t, entry.Equal(got[0]))
}
