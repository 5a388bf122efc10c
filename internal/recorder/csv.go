package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"EquityScreener/internal/model"
)

// CSVHeader is the column layout of a result file.
var CSVHeader = []string{"Ticker", "Signal", "Close", "Date", "LowerBand", "Notes"}

// CSVSink writes the matches of a run to <Dir>/<Prefix>_<target date>.csv.
type CSVSink struct {
	Dir    string
	Prefix string
}

// NewCSVSink creates a sink rooted at dir.
func NewCSVSink(dir, prefix string) *CSVSink {
	return &CSVSink{Dir: dir, Prefix: prefix}
}

// Path returns the result file for target.
func (s *CSVSink) Path(target time.Time) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.csv", s.Prefix, target.Format(model.DateLayout)))
}

// Write creates the directory if needed and writes matches in the given
// order. A run without matches still produces a header-only file.
func (s *CSVSink) Write(target time.Time, matches []model.SignalMatch) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	path := s.Path(target)
	tmp := path + ".tmp"
	defer os.Remove(tmp)

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create result file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		f.Close()
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, m := range matches {
		lower := ""
		if m.LowerBand.OK {
			lower = strconv.FormatFloat(m.LowerBand.V, 'f', 4, 64)
		}
		record := []string{
			m.Ticker,
			string(m.Kind),
			strconv.FormatFloat(m.Close, 'f', 2, 64),
			m.Date.Format(model.DateLayout),
			lower,
			strings.Join(m.Notes, ";"),
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return "", fmt.Errorf("write %s: %w", m.Ticker, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush result file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close result file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename result file: %w", err)
	}
	return path, nil
}
