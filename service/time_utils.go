package service

import (
	"time"
)

// WindowDate returns the UTC calendar date identifying the daily ad window containing t
func WindowDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextWindowReset returns when the daily ad window containing t rolls over
func NextWindowReset(t time.Time) time.Time {
	return WindowDate(t).AddDate(0, 0, 1)
}
