package recorder

import "EquityScreener/internal/model"

// RunRecord is one persisted scan.
type RunRecord struct {
	ID         int64
	Summary    model.ScanSummary
	ResultPath string
	Matches    []model.SignalMatch
}

// Recorder persists scan history for later analysis.
type Recorder interface {
	RecordRun(run *RunRecord) (int64, error)
	LastRun() (*RunRecord, error)
	Close() error
}
