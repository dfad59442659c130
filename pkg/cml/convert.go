package cml

import (
	"fmt"
	"time"
)

// SchemaVersion is the CommerceML schema version this package fully
// supports. Packets declaring another version still parse, best effort.
const SchemaVersion = "2.08"

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	dateLayout,
}

// parseDateTime accepts the ISO 8601 shapes 1C emits for timestamps.
func parseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

func parseClock(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}

func formatDateTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}
