package profillog

import (
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// TimeRange is a half-open interval [Start, End). A zero bound is unset.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Since returns the range starting at start with no upper bound
func Since(start time.Time) TimeRange { return TimeRange{Start: start} }

// Until returns the range ending (exclusively) at end with no lower bound
func Until(end time.Time) TimeRange { return TimeRange{End: end} }

// Between returns [start, end)
func Between(start, end time.Time) TimeRange { return TimeRange{Start: start, End: end} }

// Contains reports whether t falls inside the range
func (r TimeRange) Contains(t time.Time) bool {
	return (r.Start.IsZero() || !t.Before(r.Start)) &&
		(r.End.IsZero() || t.Before(r.End))
}

// Reader queries the entries of a single handler. Each query retrieves the
// full store once and filters in memory.
type Reader struct {
	handler  Handler
	logger   *logrus.Logger
	metrics  *Metrics
	location *time.Location
}

// NewReader binds a reader to handler
func NewReader(handler Handler, logger *logrus.Logger) *Reader {
	return &Reader{
		handler:  handler,
		logger:   loggerOrDefault(logger),
		location: time.UTC,
	}
}

// SetLocation sets the time zone GroupByMonth buckets in. The default is UTC.
func (r *Reader) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	r.location = loc
}

// SetMetrics attaches Prometheus collectors
func (r *Reader) SetMetrics(m *Metrics) {
	r.metrics = m
}

func (r *Reader) retrieve(operation string) []Entry {
	entries := r.handler.RetrieveAll()
	r.metrics.query(operation, len(entries))
	return entries
}

// FindByText returns entries whose message contains text (case-sensitive)
func (r *Reader) FindByText(text string, tr TimeRange) []Entry {
	return filterEntries(r.retrieve("find_by_text"), tr, func(e Entry) bool {
		return strings.Contains(e.Message(), text)
	})
}

// FindByRegex returns entries whose message matches pattern anywhere.
// An invalid pattern yields no entries.
func (r *Reader) FindByRegex(pattern string, tr TimeRange) []Entry {
	re, err := regexp.Compile(pattern)
	if err != nil {
		r.logger.WithError(err).WithField("pattern", pattern).Debug("Invalid search pattern")
		return []Entry{}
	}

	return filterEntries(r.retrieve("find_by_regex"), tr, func(e Entry) bool {
		return re.MatchString(e.Message())
	})
}

// GroupByLevel partitions entries by level name. Levels without entries
// have no key.
func (r *Reader) GroupByLevel(tr TimeRange) map[string][]Entry {
	return groupEntries(r.retrieve("group_by_level"), tr, func(e Entry) string {
		return e.Level().String()
	})
}

// GroupByMonth partitions entries by "YYYY-MM" of their timestamp in the
// reader's location
func (r *Reader) GroupByMonth(tr TimeRange) map[string][]Entry {
	return groupEntries(r.retrieve("group_by_month"), tr, func(e Entry) string {
		return e.Timestamp().In(r.location).Format("2006-01")
	})
}

func filterEntries(entries []Entry, tr TimeRange, match func(Entry) bool) []Entry {
	result := make([]Entry, 0)
	for _, e := range entries {
		if match(e) && tr.Contains(e.Timestamp()) {
			result = append(result, e)
		}
	}
	return result
}

func groupEntries(entries []Entry, tr TimeRange, key func(Entry) string) map[string][]Entry {
	groups := make(map[string][]Entry)
	for _, e := range entries {
		if !tr.Contains(e.Timestamp()) {
			continue
		}
		k := key(e)
		groups[k] = append(groups[k], e)
	}
	return groups
}
