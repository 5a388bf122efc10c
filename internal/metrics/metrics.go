// Package metrics exposes Prometheus metrics for screening runs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"EquityScreener/internal/model"
	"EquityScreener/internal/scanner"
)

// Metrics holds all Prometheus metrics for the screener.
type Metrics struct {
	TickersTotal  *prometheus.CounterVec // labels: outcome
	FetchAttempts *prometheus.CounterVec // labels: provider, result
	TickerDur     prometheus.Histogram
	ScanDur       prometheus.Histogram
	LastMatches   prometheus.Gauge
	LastRunTime   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics registers and returns all metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		TickersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_tickers_total",
			Help: "Tickers processed, by outcome",
		}, []string{"outcome"}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_fetch_attempts_total",
			Help: "Market data provider calls, by provider and result",
		}, []string{"provider", "result"}),
		TickerDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_ticker_duration_seconds",
			Help:    "End-to-end time to process one ticker, including retries and pacing",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),
		ScanDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_scan_duration_seconds",
			Help:    "Duration of a full universe scan",
			Buckets: prometheus.ExponentialBuckets(60, 2, 10),
		}),
		LastMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "screener_last_run_matches",
			Help: "Matches found by the most recent scan",
		}),
		LastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "screener_last_run_timestamp_seconds",
			Help: "Unix time at which the most recent scan finished",
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.TickersTotal, m.FetchAttempts, m.TickerDur, m.ScanDur, m.LastMatches, m.LastRunTime)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveTicker records one finished ticker task. It matches scanner.Observer.
func (m *Metrics) ObserveTicker(_ string, outcome scanner.Outcome, elapsed time.Duration) {
	m.TickersTotal.WithLabelValues(string(outcome)).Inc()
	m.TickerDur.Observe(elapsed.Seconds())
}

// ObserveFetch records one provider call. It matches collector.AttemptObserver.
func (m *Metrics) ObserveFetch(provider string, _ int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FetchAttempts.WithLabelValues(provider, result).Inc()
}

// ObserveScan records a completed scan.
func (m *Metrics) ObserveScan(s model.ScanSummary) {
	m.ScanDur.Observe(s.Duration().Seconds())
	m.LastMatches.Set(float64(s.Matched))
	m.LastRunTime.Set(float64(s.FinishedAt.Unix()))
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server failed")
	}
}
