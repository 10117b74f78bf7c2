package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// UTCNowAdd returns the current UTC time plus the given duration
func UTCNowAdd(d time.Duration) time.Time {
	return UTCNow().Add(d)
}

// FormatRFC3339 formats t in UTC, or returns "" for the zero time
func FormatRFC3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FormatRFC3339Ptr is FormatRFC3339 for optional timestamps
func FormatRFC3339Ptr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatRFC3339(*t)
}
