package api

import (
	"errors"
	"strings"
	"time"
)

// BackendLayout is the LocalDateTime form the backend expects: no zone
// offset and no sub-second part.
const BackendLayout = "2006-01-02T15:04:05"

// FormatForBackend renders t as a naive local timestamp in t's own location,
// truncating sub-second precision.
func FormatForBackend(t time.Time) string {
	return t.Format(BackendLayout)
}

// ParseBackendTime reads a naive backend timestamp in loc. Fractional seconds
// are accepted; values that do carry an offset keep it.
func ParseBackendTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(BackendLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	return time.ParseInLocation("2006-01-02T15:04", s, loc)
}
