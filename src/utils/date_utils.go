package utils

import (
	"log"
	"time"
)

const DefaultDateFormat = "2006-01-02"

// ParseDate parses an ISO yyyy-MM-dd date string using the default format.
// Logs an error and returns zero time if parsing fails.
func ParseDate(dateStr string) time.Time {
	t, err := time.Parse(DefaultDateFormat, dateStr)
	if err != nil {
		log.Printf("Error parsing date '%s' with format '%s': %v. Returning zero time.", dateStr, DefaultDateFormat, err)
		return time.Time{}
	}
	return t
}

// ParseDateToMillis parses an ISO yyyy-MM-dd date string and returns the epoch
// milliseconds of that day's midnight UTC, or an error if the string is not a
// valid date.
func ParseDateToMillis(dateStr string) (int64, error) {
	t, err := time.Parse(DefaultDateFormat, dateStr)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

// FormatMillis renders epoch milliseconds as an ISO yyyy-MM-dd date in UTC.
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DefaultDateFormat)
}
