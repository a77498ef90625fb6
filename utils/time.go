// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// MillisecondsSince returns the time elapsed since t in fractional milliseconds
func MillisecondsSince(t time.Time) float64 {
	return float64(UTCNow().Sub(t).Microseconds()) / 1000
}
