package profillog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// maxTextLineSize bounds a single stored line, terminator excluded
const maxTextLineSize = 1 << 20

// TextHandler appends entries to a plain text file, one
// "<timestamp> <LEVEL> <message>" line per entry.
// A message containing a newline does not survive the round-trip.
type TextHandler struct {
	path   string
	logger *logrus.Logger
	mu     sync.Mutex
}

// NewTextHandler creates the file if it does not exist
func NewTextHandler(path string, logger *logrus.Logger) (*TextHandler, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create text log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to create text log file: %w", err)
	}

	return &TextHandler{path: path, logger: loggerOrDefault(logger)}, nil
}

// Name returns the backend name
func (h *TextHandler) Name() string { return "text" }

// Persist appends one line. Entries whose line would exceed
// maxTextLineSize are rejected with ErrRecordTooLarge.
func (h *TextHandler) Persist(entry Entry) error {
	line := FormatTimestamp(entry.Timestamp()) + " " + entry.Level().String() + " " + entry.Message()
	if len(line) > maxTextLineSize {
		return fmt.Errorf("%w: text line of %d bytes exceeds %d", ErrRecordTooLarge, len(line), maxTextLineSize)
	}
	line += "\n"

	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open text log file: %w", err)
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write text log entry: %w", err)
	}
	return f.Close()
}

// RetrieveAll parses every well-formed line
func (h *TextHandler) RetrieveAll() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := make([]Entry, 0)

	f, err := os.Open(h.path)
	if err != nil {
		if !os.IsNotExist(err) {
			h.logger.WithError(err).WithField("path", h.path).Warn("Failed to open text log file")
		}
		return entries
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)

	lineNo := 0
	for {
		raw, oversized, err := readTextLine(r)
		if err != nil {
			if err != io.EOF {
				h.logger.WithError(err).WithField("path", h.path).Warn("Stopped reading text log file")
			}
			break
		}
		lineNo++
		location := h.path + ":" + strconv.Itoa(lineNo)

		if oversized {
			skipRecord(h.logger, h.Name(), location,
				fmt.Errorf("%w: line exceeds %d bytes", ErrRecordTooLarge, maxTextLineSize))
			continue
		}

		line := strings.TrimRight(string(raw), "\r\n")
		if line == "" {
			continue
		}

		entry, err := parseTextLine(line)
		if err != nil {
			skipRecord(h.logger, h.Name(), location, err)
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

// parseTextLine splits on the first two spaces only; the message keeps
// any further spaces
func parseTextLine(line string) (Entry, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return Entry{}, fmt.Errorf("%w: expected 3 space-separated fields, got %d", ErrMalformedRecord, len(parts))
	}
	return decodeFields(parts[0], parts[1], parts[2])
}

// readTextLine returns the next line without its terminator. A line longer
// than maxTextLineSize is consumed to its end and reported as oversized, so
// the following line is read normally.
func readTextLine(r *bufio.Reader) ([]byte, bool, error) {
	var (
		line      []byte
		oversized bool
	)
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if err == io.EOF && (len(line) > 0 || oversized) {
				return line, oversized, nil
			}
			return nil, false, err
		}
		if !oversized {
			if len(line)+len(chunk) > maxTextLineSize {
				oversized = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, oversized, nil
		}
	}
}
