package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"EquityScreener/internal/model"
)

// DefaultHistoryBars is roughly three months of daily bars.
const DefaultHistoryBars = 63

// AttemptObserver is notified after every provider call.
type AttemptObserver func(provider string, attempt int, err error)

// Collector fetches the daily history of one symbol, retrying transient
// provider failures according to its RetryPolicy.
type Collector struct {
	Fetcher Fetcher
	Policy  RetryPolicy
	Days    int

	cache    *cache.Cache
	observer AttemptObserver
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithCache keeps successful series for ttl so that repeated scans on the
// same day do not spend provider quota again.
func WithCache(ttl time.Duration) CollectorOption {
	return func(c *Collector) {
		if ttl > 0 {
			c.cache = cache.New(ttl, 2*ttl)
		}
	}
}

// WithObserver registers a callback invoked after every provider call.
func WithObserver(fn AttemptObserver) CollectorOption {
	return func(c *Collector) {
		c.observer = fn
	}
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, policy RetryPolicy, days int, opts ...CollectorOption) *Collector {
	if days <= 0 {
		days = DefaultHistoryBars
	}
	c := &Collector{Fetcher: fetcher, Policy: policy, Days: days}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect returns the symbol's validated daily series. Network errors,
// throttling and empty payloads are retried; once attempts are exhausted
// the returned error wraps ErrUnavailable and no partial series is returned.
func (c *Collector) Collect(ctx context.Context, symbol string) (model.Series, error) {
	key := fmt.Sprintf("%s/%d", symbol, c.Days)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return v.(model.Series), nil
		}
	}

	attempts := c.Policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := sleep(ctx, c.Policy.RequestDelay); err != nil {
			return model.Series{}, err
		}

		series, err := c.fetchOnce(ctx, symbol)
		if c.observer != nil {
			c.observer(c.Fetcher.Name(), attempt, err)
		}
		if err == nil {
			if c.cache != nil {
				c.cache.Set(key, series, cache.DefaultExpiration)
			}
			return series, nil
		}
		lastErr = err

		if errors.Is(err, ErrInvalidSymbol) || ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			wait := c.Policy.DelayAfter(attempt)
			log.Warn().Err(err).Str("ticker", symbol).Int("attempt", attempt).
				Dur("retry_in", wait).Msg("fetch failed, retrying")
			if err := sleep(ctx, wait); err != nil {
				return model.Series{}, err
			}
		}
	}
	return model.Series{}, fmt.Errorf("%s: %w: %w", symbol, ErrUnavailable, lastErr)
}

func (c *Collector) fetchOnce(ctx context.Context, symbol string) (model.Series, error) {
	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, c.Days)
	if err != nil {
		return model.Series{}, err
	}
	if len(bars) == 0 {
		return model.Series{}, ErrEmptyResult
	}
	series := model.Series{Symbol: symbol, Bars: bars}
	if err := series.Validate(); err != nil {
		return model.Series{}, err
	}
	return series, nil
}
