package profillog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the on-disk timestamp format. It is fixed width and
// always UTC so that lexical order matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// parseLayouts lists the ISO-8601 forms accepted on read. Fractional seconds
// are accepted by time.Parse even when the layout omits them.
var parseLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Entry is a single immutable log record
type Entry struct {
	timestamp time.Time
	level     Level
	message   string
}

// NewEntry creates an entry. The monotonic clock reading is stripped so that
// entries compare by wall time only.
func NewEntry(timestamp time.Time, level Level, message string) Entry {
	return Entry{
		timestamp: timestamp.Round(0),
		level:     level,
		message:   message,
	}
}

// Timestamp returns when the entry was recorded
func (e Entry) Timestamp() time.Time { return e.timestamp }

// Level returns the entry severity
func (e Entry) Level() Level { return e.level }

// Message returns the entry text
func (e Entry) Message() string { return e.message }

// Equal reports whether both entries carry the same instant, level and message
func (e Entry) Equal(other Entry) bool {
	return e.timestamp.Equal(other.timestamp) &&
		e.level == other.level &&
		e.message == other.message
}

func (e Entry) String() string {
	return fmt.Sprintf("Entry(date=%s, level=%s, message=%q)",
		FormatTimestamp(e.timestamp), e.level, e.message)
}

// MarshalJSON encodes the entry in the persisted {"date","level","message"} form
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(toRecord(e))
}

// UnmarshalJSON decodes the persisted form, rejecting malformed records
func (e *Entry) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	decoded, err := fromRecord(rec)
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}

// FormatTimestamp renders t in the persisted ISO-8601 form
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone offset
// are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 timestamp %q", s)
}

// record is the key/value form of an entry shared by the JSON and Badger handlers
type record struct {
	Date    *string `json:"date"`
	Level   *string `json:"level"`
	Message *string `json:"message"`
}

func toRecord(e Entry) record {
	date := FormatTimestamp(e.timestamp)
	level := e.level.String()
	message := e.message
	return record{Date: &date, Level: &level, Message: &message}
}

func fromRecord(r record) (Entry, error) {
	if r.Date == nil || r.Level == nil || r.Message == nil {
		return Entry{}, fmt.Errorf("%w: missing keys, expected date, level and message", ErrMalformedRecord)
	}
	return decodeFields(*r.Date, *r.Level, *r.Message)
}

// decodeFields builds an entry from its three textual fields
func decodeFields(date, level, message string) (Entry, error) {
	ts, err := ParseTimestamp(date)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return NewEntry(ts, lvl, message), nil
}
