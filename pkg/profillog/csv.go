package profillog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

// CSVHeader is the fixed column layout written as the first row
var CSVHeader = []string{"date", "level", "message"}

// CSVHandler appends entries as rows of a three-column CSV file
type CSVHandler struct {
	path   string
	logger *logrus.Logger
	mu     sync.Mutex
}

// NewCSVHandler writes the header row when the file is missing or empty.
// A non-empty file is left as is.
func NewCSVHandler(path string, logger *logrus.Logger) (*CSVHandler, error) {
	h := &CSVHandler{path: path, logger: loggerOrDefault(logger)}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.Size() > 0:
		return h, nil
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to stat CSV log file: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV log file: %w", err)
	}
	if err := writeCSVRow(f, CSVHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to create CSV log file: %w", err)
	}

	return h, nil
}

// Name returns the backend name
func (h *CSVHandler) Name() string { return "csv" }

// Persist appends one row
func (h *CSVHandler) Persist(entry Entry) error {
	row := []string{FormatTimestamp(entry.Timestamp()), entry.Level().String(), entry.Message()}

	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open CSV log file: %w", err)
	}
	if err := writeCSVRow(f, row); err != nil {
		f.Close()
		return fmt.Errorf("failed to write CSV log entry: %w", err)
	}
	return f.Close()
}

// RetrieveAll decodes every well-formed row after the header
func (h *CSVHandler) RetrieveAll() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := make([]Entry, 0)

	f, err := os.Open(h.path)
	if err != nil {
		if !os.IsNotExist(err) {
			h.logger.WithError(err).WithField("path", h.path).Warn("Failed to open CSV log file")
		}
		return entries
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	for row := 0; ; row++ {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipRecord(h.logger, h.Name(), h.path+":"+strconv.Itoa(parseErr.StartLine), err)
				continue
			}
			h.logger.WithError(err).WithField("path", h.path).Warn("Stopped reading CSV log file")
			break
		}

		if row == 0 {
			continue // header
		}

		if len(fields) != len(CSVHeader) {
			skipRecord(h.logger, h.Name(), h.path+":row "+strconv.Itoa(row),
				fmt.Errorf("%w: expected %d columns, got %d", ErrMalformedRecord, len(CSVHeader), len(fields)))
			continue
		}

		entry, err := decodeFields(fields[0], fields[1], fields[2])
		if err != nil {
			skipRecord(h.logger, h.Name(), h.path+":row "+strconv.Itoa(row), err)
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

func writeCSVRow(w io.Writer, row []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
