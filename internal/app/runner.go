// Package app wires the screening pipeline into a single run: resolve the
// target date, load the universe, scan, then persist and report the results.
package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"EquityScreener/internal/model"
	"EquityScreener/internal/notifier"
	"EquityScreener/internal/recorder"
	"EquityScreener/internal/scanner"
	"EquityScreener/internal/tradedate"
	"EquityScreener/internal/universe"
)

// Notifier delivers a run report. notifier.TelegramNotifier implements it.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// ScanObserver receives the summary of every completed scan.
type ScanObserver interface {
	ObserveScan(s model.ScanSummary)
}

// Runner performs one full screening run per Run call.
type Runner struct {
	Universe universe.Source
	Scanner  *scanner.Scanner
	Sink     *recorder.CSVSink
	Recorder recorder.Recorder
	Notifier Notifier     // nil disables notifications
	Metrics  ScanObserver // nil disables metrics
	Location *time.Location
	Now      func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run screens the universe for the resolved target date and writes the
// dated result file. A universe failure is fatal to the run; per-ticker
// failures only show up in the summary. History and notification failures
// are logged and do not fail the run.
func (r *Runner) Run(ctx context.Context) (*recorder.RunRecord, error) {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	target := tradedate.ResolveIn(r.now(), loc)
	log.Info().Str("target", target.Format(model.DateLayout)).Msg("screening run started")

	tickers, err := r.Universe.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("load universe: %w", universe.ErrEmptyUniverse)
	}
	log.Info().Int("tickers", len(tickers)).Msg("universe loaded")

	matches, summary := r.Scanner.Scan(ctx, target, tickers)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Ticker < matches[j].Ticker })

	path, err := r.Sink.Write(target, matches)
	if err != nil {
		return nil, fmt.Errorf("write results: %w", err)
	}

	run := &recorder.RunRecord{Summary: summary, ResultPath: path, Matches: matches}
	if r.Recorder != nil {
		id, err := r.Recorder.RecordRun(run)
		if err != nil {
			log.Error().Err(err).Msg("record run")
		}
		run.ID = id
	}
	if r.Metrics != nil {
		r.Metrics.ObserveScan(summary)
	}
	if r.Notifier != nil {
		report := notifier.FormatScanReport(summary, matches, path)
		if err := r.Notifier.SendWithRetry(ctx, report, 3); err != nil {
			log.Error().Err(err).Msg("send scan report")
		}
	}

	log.Info().
		Str("target", target.Format(model.DateLayout)).
		Int("tickers", summary.Tickers).
		Int("matched", summary.Matched).
		Int("unavailable", summary.Unavailable).
		Int("insufficient", summary.Insufficient).
		Int("stale", summary.Stale).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.Duration()).
		Str("file", path).
		Msg("screening run finished")
	return run, nil
}

// LastReport formats the most recently recorded run.
func (r *Runner) LastReport() (string, error) {
	if r.Recorder == nil {
		return notifier.FormatLastRun(nil, nil, ""), nil
	}
	run, err := r.Recorder.LastRun()
	if err != nil {
		return "", fmt.Errorf("load last run: %w", err)
	}
	if run == nil {
		return notifier.FormatLastRun(nil, nil, ""), nil
	}
	return notifier.FormatLastRun(&run.Summary, run.Matches, run.ResultPath), nil
}
