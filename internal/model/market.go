package model

import (
	"fmt"
	"time"
)

// OHLCV represents a single daily bar. Time holds the exchange-local
// calendar date normalised to midnight UTC.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is the ordered daily history of one symbol.
type Series struct {
	Symbol string
	Bars   []OHLCV
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Last returns the most recent bar. The series must not be empty.
func (s Series) Last() OHLCV { return s.Bars[len(s.Bars)-1] }

// Validate checks that bar dates are strictly increasing.
func (s Series) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Time.After(s.Bars[i-1].Time) {
			return fmt.Errorf("%s: bar %d (%s) not after bar %d (%s)", s.Symbol,
				i, s.Bars[i].Time.Format(DateLayout), i-1, s.Bars[i-1].Time.Format(DateLayout))
		}
	}
	return nil
}

// DateLayout is the layout used for dates in files and messages.
const DateLayout = "2006-01-02"

// DateOf strips the clock from t, keeping t's calendar date, and returns it at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
