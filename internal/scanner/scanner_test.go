package scanner

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityScreener/internal/collector"
	"EquityScreener/internal/model"
	"EquityScreener/internal/strategy"
)

var target = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

func oversoldBars(n int) []model.OHLCV {
	bars := collector.GenerateBars(100, n, target)
	for i := range bars {
		bars[i].Close = 100
	}
	bars[n-1].Close = 80
	return bars
}

func newCollector(m *collector.MockFetcher) *collector.Collector {
	return collector.NewCollector(m, collector.RetryPolicy{MaxAttempts: 3}, collector.DefaultHistoryBars)
}

func defaultEvaluator(t *testing.T) *strategy.Evaluator {
	t.Helper()
	e, err := strategy.NewEvaluator(strategy.DefaultOptions())
	require.NoError(t, err)
	return e
}

func TestScan_EndToEnd(t *testing.T) {
	fail := errors.New("connection refused")
	m := &collector.MockFetcher{
		Bars: map[string][]model.OHLCV{
			"BBB": oversoldBars(10),
			"CCC": oversoldBars(30),
		},
		Errs: map[string][]error{"AAA": {fail, fail, fail}},
	}

	s := New(newCollector(m), defaultEvaluator(t), 3)
	matches, summary := s.Scan(context.Background(), target, []string{"AAA", "BBB", "CCC"})

	require.Len(t, matches, 1)
	assert.Equal(t, "CCC", matches[0].Ticker)
	assert.Equal(t, model.SignalBollOversold, matches[0].Kind)
	assert.Equal(t, 80.0, matches[0].Close)
	assert.Equal(t, target, matches[0].Date)

	assert.Equal(t, 3, m.Calls("AAA"))
	assert.Equal(t, 3, summary.Tickers)
	assert.Equal(t, 1, summary.Unavailable)
	assert.Equal(t, 1, summary.Insufficient)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, target, summary.TargetDate)
}

func TestScan_StaleAndNoSignal(t *testing.T) {
	m := &collector.MockFetcher{
		Bars: map[string][]model.OHLCV{
			"OLD":  collector.GenerateBars(100, 40, target.AddDate(0, 0, -7)),
			"FLAT": collector.GenerateBars(100, 40, target),
		},
	}
	var mu sync.Mutex
	seen := map[string]Outcome{}
	s := New(newCollector(m), defaultEvaluator(t), 2)
	s.Observer = func(ticker string, outcome Outcome, _ time.Duration) {
		mu.Lock()
		seen[ticker] = outcome
		mu.Unlock()
	}

	matches, summary := s.Scan(context.Background(), target, []string{"OLD", "FLAT"})
	assert.Empty(t, matches)
	assert.Equal(t, 1, summary.Stale)
	assert.Equal(t, 1, summary.NoSignal)
	assert.Equal(t, map[string]Outcome{"OLD": OutcomeStale, "FLAT": OutcomeNoSignal}, seen)
}

type panickyEvaluator struct{ inner Evaluator }

func (p panickyEvaluator) Evaluate(f *model.Frame, target time.Time) (*model.SignalMatch, error) {
	if f.Symbol == "BOOM" {
		panic("corrupt frame")
	}
	return p.inner.Evaluate(f, target)
}

func TestScan_TaskIsolation(t *testing.T) {
	m := &collector.MockFetcher{
		Bars: map[string][]model.OHLCV{
			"BOOM": oversoldBars(30),
			"OKAY": oversoldBars(30),
		},
	}
	s := New(newCollector(m), panickyEvaluator{defaultEvaluator(t)}, 2)

	matches, summary := s.Scan(context.Background(), target, []string{"BOOM", "OKAY"})
	require.Len(t, matches, 1)
	assert.Equal(t, "OKAY", matches[0].Ticker)
	assert.Equal(t, 1, summary.Failed)
}

func TestScan_ObserverPanicIsIsolated(t *testing.T) {
	m := &collector.MockFetcher{
		Bars: map[string][]model.OHLCV{
			"AAA": oversoldBars(30),
			"BBB": oversoldBars(30),
		},
	}
	s := New(newCollector(m), defaultEvaluator(t), 2)
	s.Observer = func(ticker string, _ Outcome, _ time.Duration) {
		if ticker == "AAA" {
			panic("observer failure")
		}
	}

	matches, summary := s.Scan(context.Background(), target, []string{"AAA", "BBB"})
	assert.Len(t, matches, 2)
	assert.Equal(t, 2, summary.Matched)
}

// slowSource records the peak number of concurrent Collect calls.
type slowSource struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (s *slowSource) Collect(_ context.Context, symbol string) (model.Series, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return model.Series{Symbol: symbol, Bars: oversoldBars(30)}, nil
}

func TestScan_BoundedConcurrency(t *testing.T) {
	src := &slowSource{}
	s := New(src, defaultEvaluator(t), 2)

	tickers := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	matches, summary := s.Scan(context.Background(), target, tickers)

	assert.LessOrEqual(t, src.peak, 2)
	assert.Equal(t, len(tickers), summary.Matched)

	got := make([]string, 0, len(matches))
	for _, m := range matches {
		got = append(got, m.Ticker)
	}
	sort.Strings(got)
	assert.Equal(t, tickers, got)
}

func TestNew_ClampsWorkers(t *testing.T) {
	assert.Equal(t, MinWorkers, New(nil, nil, 0).Workers)
	assert.Equal(t, MaxWorkers, New(nil, nil, 50).Workers)
	assert.Equal(t, 4, New(nil, nil, 4).Workers)
}
