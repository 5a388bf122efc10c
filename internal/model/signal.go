package model

import "time"

// SignalKind names the rule that produced a match.
type SignalKind string

const (
	SignalBollOversold         SignalKind = "BOLL oversold"
	SignalBollOversoldFallback SignalKind = "BOLL oversold fallback"
	SignalCompositeBuy         SignalKind = "composite buy"
)

// Sell-side observations attached to a match. They never block a buy
// unless the evaluator is configured to suppress on sell.
const (
	NoteMACDBearishCross = "MACD bearish cross"
	NoteRSIOverbought    = "RSI>80"
	NoteOBVBelowMA       = "OBV<OBVMA10"
)

// SignalMatch is one qualifying ticker on the target date.
type SignalMatch struct {
	Ticker    string
	Kind      SignalKind
	Close     float64 // rounded to 2 decimals
	Date      time.Time
	LowerBand Opt[float64]
	Notes     []string
}

// ScanSummary counts the outcome of every ticker in a scan.
type ScanSummary struct {
	TargetDate   time.Time
	Tickers      int
	Unavailable  int
	Insufficient int
	Stale        int
	NoSignal     int
	Failed       int
	Matched      int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the scan took.
func (s ScanSummary) Duration() time.Duration { return s.FinishedAt.Sub(s.StartedAt) }
