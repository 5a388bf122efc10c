package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"EquityScreener/internal/collector"
	"EquityScreener/internal/config"
	"EquityScreener/internal/metrics"
	"EquityScreener/internal/notifier"
	"EquityScreener/internal/recorder"
	"EquityScreener/internal/scanner"
	"EquityScreener/internal/strategy"
	"EquityScreener/internal/universe"
)

// App is a fully wired screener built from configuration.
type App struct {
	Runner   *Runner
	Telegram *notifier.TelegramNotifier // nil when Telegram is not configured
	Metrics  *metrics.Metrics
	Recorder recorder.Recorder
}

// New builds the fetcher, collector, evaluator, scanner, sinks and
// notifier described by cfg. cfg must already be validated.
func New(cfg *config.Config) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	fetcher, err := NewFetcher(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("provider", fetcher.Name()).Msg("data source selected")

	policy, err := RetryPolicy(cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.NewMetrics()
	col := collector.NewCollector(fetcher, policy, cfg.Provider.HistoryBars,
		collector.WithCache(cfg.Retry.CacheTTL),
		collector.WithObserver(m.ObserveFetch),
	)

	eval, err := strategy.NewEvaluator(strategy.Options{
		Rules:          cfg.Scan.Rules,
		SuppressOnSell: cfg.Scan.SuppressOnSell,
		RSIOverbought:  cfg.Scan.RSIOverbought,
	})
	if err != nil {
		return nil, fmt.Errorf("build evaluator: %w", err)
	}

	sc := scanner.New(col, eval, cfg.Scan.Workers)
	sc.Observer = m.ObserveTicker

	var src universe.Source
	if len(cfg.Universe.Tickers) > 0 {
		src = universe.StaticSource(cfg.Universe.Tickers)
	} else {
		src = universe.NewNasdaqTraderSource(cfg.Universe.BaseURL, cfg.Proxy, nil)
	}

	a := &App{Metrics: m, Recorder: newRecorder(cfg.Database.SQLitePath)}
	a.Runner = &Runner{
		Universe: src,
		Scanner:  sc,
		Sink:     recorder.NewCSVSink(cfg.Output.Dir, cfg.Output.Prefix),
		Recorder: a.Recorder,
		Metrics:  m,
		Location: loc,
	}
	if cfg.Telegram.BotToken != "" {
		a.Telegram = notifier.NewTelegramNotifier("", cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		a.Runner.Notifier = a.Telegram
	}
	return a, nil
}

// Close releases the run history database.
func (a *App) Close() error {
	return a.Recorder.Close()
}

// NewFetcher returns the market data provider selected by cfg.
func NewFetcher(cfg *config.Config) (collector.Fetcher, error) {
	switch cfg.Provider.Name {
	case config.ProviderAlphaVantage:
		return collector.NewAlphaVantageFetcher(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Proxy), nil
	case config.ProviderYahoo:
		loc, err := cfg.Location()
		if err != nil {
			return nil, err
		}
		return collector.NewYahooFetcher(cfg.Provider.BaseURL, cfg.Proxy, loc), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider.Name)
	}
}

// RetryPolicy derives the collector's pacing and retry policy from cfg.
func RetryPolicy(cfg *config.Config) (collector.RetryPolicy, error) {
	backoff, err := collector.ParseBackoff(cfg.Retry.Backoff)
	if err != nil {
		return collector.RetryPolicy{}, err
	}
	return collector.RetryPolicy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		Delay:        cfg.Retry.Delay,
		Backoff:      backoff,
		RequestDelay: cfg.Retry.RequestDelay,
	}, nil
}

func newRecorder(path string) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn().Err(err).Msg("create database directory failed, using noop recorder")
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop recorder")
		return recorder.NewNoopRecorder()
	}
	return rec
}
