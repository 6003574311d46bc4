// Package tradingday resolves trading-day boundaries. A trading day is a
// UTC calendar day; every daily counter in the admission controller is keyed
// by the value returned from DayOf.
package tradingday

import "time"

// Clock is the time source injected into components that key state off the
// current trading day. Production code uses SystemClock; tests substitute a
// fixed or stepping clock.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// DayOf truncates t to its UTC day boundary.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same trading day.
func SameDay(a, b time.Time) bool {
	return DayOf(a).Equal(DayOf(b))
}
