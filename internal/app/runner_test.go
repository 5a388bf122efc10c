package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityScreener/internal/collector"
	"EquityScreener/internal/config"
	"EquityScreener/internal/model"
	"EquityScreener/internal/recorder"
	"EquityScreener/internal/scanner"
	"EquityScreener/internal/strategy"
	"EquityScreener/internal/universe"
)

var target = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return f.err
}

type fakeObserver struct{ scans []model.ScanSummary }

func (f *fakeObserver) ObserveScan(s model.ScanSummary) { f.scans = append(f.scans, s) }

func oversoldBars(n int, last float64) []model.OHLCV {
	bars := collector.GenerateBars(100, n, target)
	for i := range bars {
		bars[i].Close = 100
	}
	bars[n-1].Close = last
	return bars
}

func newRunner(t *testing.T, tickers []string, m *collector.MockFetcher) (*Runner, *fakeNotifier, *fakeObserver) {
	t.Helper()
	eval, err := strategy.NewEvaluator(strategy.DefaultOptions())
	require.NoError(t, err)
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "screener.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	n := &fakeNotifier{}
	obs := &fakeObserver{}
	col := collector.NewCollector(m, collector.RetryPolicy{MaxAttempts: 2}, collector.DefaultHistoryBars)
	return &Runner{
		Universe: universe.StaticSource(tickers),
		Scanner:  scanner.New(col, eval, 4),
		Sink:     recorder.NewCSVSink(filepath.Join(t.TempDir(), "results"), "boll_oversold"),
		Recorder: rec,
		Notifier: n,
		Metrics:  obs,
		Location: ny,
		// Thursday morning in New York resolves to Wednesday's session.
		Now: func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, ny) },
	}, n, obs
}

func TestRunner_Run(t *testing.T) {
	m := &collector.MockFetcher{
		Bars: map[string][]model.OHLCV{
			"MSFT": oversoldBars(40, 80),
			"AAPL": oversoldBars(40, 75.5),
			"IBM":  collector.GenerateBars(100, 40, target),
		},
		Errs: map[string][]error{"GONE": {collector.ErrInvalidSymbol}},
	}
	r, n, obs := newRunner(t, []string{"MSFT", "GONE", "AAPL", "IBM"}, m)

	run, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, run.Matches, 2)
	assert.Equal(t, "AAPL", run.Matches[0].Ticker)
	assert.Equal(t, "MSFT", run.Matches[1].Ticker)
	assert.Equal(t, target, run.Summary.TargetDate)
	assert.Equal(t, 4, run.Summary.Tickers)
	assert.Equal(t, 1, run.Summary.Unavailable)
	assert.Equal(t, 1, run.Summary.NoSignal)
	assert.NotZero(t, run.ID)

	assert.Equal(t, "boll_oversold_2026-10-14.csv", filepath.Base(run.ResultPath))
	data, err := os.ReadFile(run.ResultPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ticker,Signal,Close,Date,LowerBand,Notes\nAAPL,BOLL oversold,75.50,2026-10-14,")
	assert.Contains(t, string(data), "\nMSFT,BOLL oversold,80.00,2026-10-14,")

	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "AAPL 75.50")
	require.Len(t, obs.scans, 1)
	assert.Equal(t, 2, obs.scans[0].Matched)

	last, err := r.LastReport()
	require.NoError(t, err)
	assert.Contains(t, last, "MSFT 80.00 (BOLL oversold)")
}

func TestRunner_EmptyUniverseIsFatal(t *testing.T) {
	r, n, _ := newRunner(t, []string{"BRK.B", "123"}, &collector.MockFetcher{})

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, universe.ErrEmptyUniverse)
	assert.Empty(t, n.sent)
}

func TestRunner_NotificationFailureDoesNotFailRun(t *testing.T) {
	m := &collector.MockFetcher{Bars: map[string][]model.OHLCV{"AAPL": oversoldBars(40, 80)}}
	r, n, _ := newRunner(t, []string{"AAPL"}, m)
	n.err = errors.New("telegram down")

	run, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, run.Matches, 1)
}

func TestRunner_NoMatchesWritesHeaderOnly(t *testing.T) {
	m := &collector.MockFetcher{Bars: map[string][]model.OHLCV{"IBM": collector.GenerateBars(100, 40, target)}}
	r, _, _ := newRunner(t, []string{"IBM"}, m)

	run, err := r.Run(context.Background())
	require.NoError(t, err)
	data, err := os.ReadFile(run.ResultPath)
	require.NoError(t, err)
	assert.Equal(t, "Ticker,Signal,Close,Date,LowerBand,Notes\n", string(data))
}

func TestRunner_LastReportWithoutHistory(t *testing.T) {
	r := &Runner{Recorder: recorder.NewNoopRecorder()}
	out, err := r.LastReport()
	require.NoError(t, err)
	assert.Equal(t, "No scan has been recorded yet.", out)
}

func TestRetryPolicyFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.Delay = 2 * time.Second
	cfg.Retry.Backoff = "linear"
	cfg.Retry.RequestDelay = 200 * time.Millisecond

	p, err := RetryPolicy(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, p.RequestDelay)
	assert.Equal(t, 6*time.Second, p.DelayAfter(3))

	cfg.Retry.Backoff = "exponential"
	_, err = RetryPolicy(cfg)
	assert.Error(t, err)
}

func TestNewFetcher(t *testing.T) {
	cfg := &config.Config{}
	cfg.Scan.Timezone = "America/New_York"

	cfg.Provider.Name = config.ProviderYahoo
	f, err := NewFetcher(cfg)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", f.Name())

	cfg.Provider.Name = config.ProviderAlphaVantage
	cfg.Provider.APIKey = "demo"
	f, err = NewFetcher(cfg)
	require.NoError(t, err)
	assert.Equal(t, "alphavantage", f.Name())

	cfg.Provider.Name = "bloomberg"
	_, err = NewFetcher(cfg)
	assert.Error(t, err)
}
