package util

import (
	"strings"
	"time"
)

// SanitizeLog prevents certain classes of injection attacks before logging
// https://codeql.github.com/codeql-query-help/go/go-log-injection/
func SanitizeLog(log string) string {
	escapedLog := strings.ReplaceAll(log, "\n", "")
	return strings.ReplaceAll(escapedLog, "\r", "")
}

// Is2xxResponse returns true if the given status code is a 2xx response
func Is2xxResponse(statusCode int) bool {
	return statusCode/100 == 2
}

// ExpirationDate returns an RFC 3339 timestamp the given number of calendar
// days after from. Calendar-date arithmetic is intentional: +365 days across
// a leap day is not the same as 365*86400 seconds.
func ExpirationDate(from time.Time, days int) string {
	return from.AddDate(0, 0, days).Format(time.RFC3339)
}
