// Package tradedate maps the wall-clock date of a run to the trading day
// whose closing bar the run evaluates.
package tradedate

import (
	"time"

	"EquityScreener/internal/model"
)

// Resolve returns the most recent completed trading day for the calendar
// date of now: Monday looks back to Friday, the weekend resolves to Friday,
// and every other day to the day before. The result is a midnight-UTC date.
// Exchange holidays are not considered.
func Resolve(now time.Time) time.Time {
	today := model.DateOf(now)
	var delta int
	switch now.Weekday() {
	case time.Monday:
		delta = 3
	case time.Sunday:
		delta = 2
	default:
		delta = 1
	}
	return today.AddDate(0, 0, -delta)
}

// ResolveIn evaluates Resolve using the calendar date of now in loc.
func ResolveIn(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Resolve(now.In(loc))
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
