// Package scanner runs the fetch, compute and evaluate pipeline over a
// ticker universe with bounded concurrency.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"EquityScreener/internal/calculator"
	"EquityScreener/internal/model"
	"EquityScreener/internal/strategy"
)

// SeriesSource returns the daily series for one ticker. collector.Collector implements it.
type SeriesSource interface {
	Collect(ctx context.Context, symbol string) (model.Series, error)
}

// Evaluator decides whether a frame's target-date bar is a match.
type Evaluator interface {
	Evaluate(f *model.Frame, target time.Time) (*model.SignalMatch, error)
}

// Outcome classifies how a single ticker task ended.
type Outcome string

const (
	OutcomeMatched      Outcome = "matched"
	OutcomeNoSignal     Outcome = "no_signal"
	OutcomeUnavailable  Outcome = "unavailable"
	OutcomeInsufficient Outcome = "insufficient"
	OutcomeStale        Outcome = "stale"
	OutcomeFailed       Outcome = "failed"
)

// Observer is notified when a ticker task finishes.
type Observer func(ticker string, outcome Outcome, elapsed time.Duration)

const (
	MinWorkers = 1
	MaxWorkers = 10
)

// Scanner evaluates every ticker end to end on a fixed-size worker pool.
// The pool size is the only throttle towards the data provider besides the
// collector's own request delay.
type Scanner struct {
	Source    SeriesSource
	Evaluator Evaluator
	Workers   int
	Observer  Observer
}

// New creates a Scanner, clamping workers into [MinWorkers, MaxWorkers].
func New(source SeriesSource, evaluator Evaluator, workers int) *Scanner {
	if workers < MinWorkers {
		workers = MinWorkers
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	return &Scanner{Source: source, Evaluator: evaluator, Workers: workers}
}

// Scan evaluates tickers against target and returns the matches in
// completion order together with a per-outcome summary. A failing ticker
// never affects the others.
func (s *Scanner) Scan(ctx context.Context, target time.Time, tickers []string) ([]model.SignalMatch, model.ScanSummary) {
	summary := model.ScanSummary{TargetDate: target, Tickers: len(tickers), StartedAt: time.Now()}

	var (
		mu      sync.Mutex
		matches []model.SignalMatch
		done    atomic.Int64
	)

	var g errgroup.Group
	g.SetLimit(s.Workers)
	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			start := time.Now()
			match, outcome := s.scanOne(ctx, target, ticker)
			s.observe(ticker, outcome, time.Since(start))

			mu.Lock()
			count(&summary, outcome)
			if match != nil {
				matches = append(matches, *match)
			}
			mu.Unlock()

			if n := done.Add(1); n%100 == 0 {
				log.Info().Int64("done", n).Int("total", len(tickers)).Msg("scan progress")
			}
			return nil
		})
	}
	_ = g.Wait() // tasks never return an error

	summary.FinishedAt = time.Now()
	return matches, summary
}

func (s *Scanner) scanOne(ctx context.Context, target time.Time, ticker string) (match *model.SignalMatch, outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("ticker", ticker).Interface("panic", r).Msg("ticker task panicked")
			match, outcome = nil, OutcomeFailed
		}
	}()

	logger := log.With().Str("ticker", ticker).Logger()
	logger.Debug().Msg("checking")

	series, err := s.Source.Collect(ctx, ticker)
	if err != nil {
		logger.Warn().Err(err).Msg("no data, skipping")
		return nil, OutcomeUnavailable
	}
	if series.Len() < strategy.MinBars {
		logger.Debug().Int("bars", series.Len()).Msg("not enough bars, skipping")
		return nil, OutcomeInsufficient
	}

	frame := calculator.Compute(series)
	m, err := s.Evaluator.Evaluate(frame, target)
	switch {
	case errors.Is(err, strategy.ErrInsufficientData):
		logger.Debug().Int("bars", series.Len()).Msg("not enough bars, skipping")
		return nil, OutcomeInsufficient
	case errors.Is(err, strategy.ErrStaleData):
		logger.Debug().Err(err).Msg("not target-date data, skipping")
		return nil, OutcomeStale
	case err != nil:
		logger.Error().Err(fmt.Errorf("evaluate: %w", err)).Msg("skipping")
		return nil, OutcomeFailed
	case m == nil:
		logger.Debug().Msg("no signal")
		return nil, OutcomeNoSignal
	}

	logger.Info().Str("signal", string(m.Kind)).Float64("close", m.Close).Strs("notes", m.Notes).Msg("signal matched")
	return m, OutcomeMatched
}

// observe reports a finished task; a panicking observer is logged and ignored.
func (s *Scanner) observe(ticker string, outcome Outcome, elapsed time.Duration) {
	if s.Observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("ticker", ticker).Interface("panic", r).Msg("scan observer panicked")
		}
	}()
	s.Observer(ticker, outcome, elapsed)
}

func count(s *model.ScanSummary, o Outcome) {
	switch o {
	case OutcomeMatched:
		s.Matched++
	case OutcomeNoSignal:
		s.NoSignal++
	case OutcomeUnavailable:
		s.Unavailable++
	case OutcomeInsufficient:
		s.Insufficient++
	case OutcomeStale:
		s.Stale++
	default:
		s.Failed++
	}
}
