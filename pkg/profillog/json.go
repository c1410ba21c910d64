package profillog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

// JSONHandler keeps all entries in a single JSON array. Every Persist
// re-reads the array, appends and rewrites the whole file.
type JSONHandler struct {
	path   string
	logger *logrus.Logger
	mu     sync.Mutex
}

// NewJSONHandler writes an empty array when the file does not exist
func NewJSONHandler(path string, logger *logrus.Logger) (*JSONHandler, error) {
	h := &JSONHandler{path: path, logger: loggerOrDefault(logger)}

	if _, err := os.Stat(path); err == nil {
		return h, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat JSON log file: %w", err)
	}

	if err := h.writeAll([]json.RawMessage{}); err != nil {
		return nil, fmt.Errorf("failed to create JSON log file: %w", err)
	}
	return h, nil
}

// Name returns the backend name
func (h *JSONHandler) Name() string { return "json" }

// Persist appends the entry and rewrites the file
func (h *JSONHandler) Persist(entry Entry) error {
	data, err := json.Marshal(toRecord(entry))
	if err != nil {
		return fmt.Errorf("failed to encode JSON log entry: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	items, err := h.readArray()
	if err != nil {
		return fmt.Errorf("failed to read JSON log file: %w", err)
	}
	items = append(items, data)

	if err := h.writeAll(items); err != nil {
		return fmt.Errorf("failed to write JSON log file: %w", err)
	}
	return nil
}

// RetrieveAll decodes each array element independently
func (h *JSONHandler) RetrieveAll() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	items, err := h.readArray()
	if err != nil {
		h.logger.WithError(err).WithField("path", h.path).Warn("Failed to read JSON log file")
	}
	entries := make([]Entry, 0, len(items))
	for i, raw := range items {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			skipRecord(h.logger, h.Name(), h.path+"["+strconv.Itoa(i)+"]",
				fmt.Errorf("%w: %v", ErrMalformedRecord, err))
			continue
		}
		entry, err := fromRecord(rec)
		if err != nil {
			skipRecord(h.logger, h.Name(), h.path+"["+strconv.Itoa(i)+"]", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// readArray loads the raw array elements. A missing, empty or malformed
// file reads as an empty array. Any other read failure is returned and the
// file must not be rewritten.
func (h *JSONHandler) readArray() ([]json.RawMessage, error) {
	items := make([]json.RawMessage, 0)

	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return items, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return items, nil
	}

	if err := json.Unmarshal(data, &items); err != nil {
		h.logger.WithError(err).WithField("path", h.path).Warn("JSON log file is malformed, treating it as empty")
		return make([]json.RawMessage, 0), nil
	}
	return items, nil
}

// writeAll replaces the file through a temp file and rename
func (h *JSONHandler) writeAll(items []json.RawMessage) error {
	data, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(h.path), "."+filepath.Base(h.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, h.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
