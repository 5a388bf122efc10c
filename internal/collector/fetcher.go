package collector

import (
	"context"
	"errors"

	"EquityScreener/internal/model"
)

// Fetcher defines the interface for fetching daily bars from a market data provider.
// Implementations return bars in chronological order.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	Name() string
}

var (
	// ErrUnavailable means retries were exhausted; the ticker is skipped.
	ErrUnavailable = errors.New("data unavailable")
	// ErrEmptyResult is a provider answer with no bars. It is retried.
	ErrEmptyResult = errors.New("empty result")
	// ErrThrottled is a provider quota rejection. It is retried.
	ErrThrottled = errors.New("provider throttled request")
	// ErrInvalidSymbol is a permanent rejection of the symbol. It is not retried.
	ErrInvalidSymbol = errors.New("invalid symbol")
)
