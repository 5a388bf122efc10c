package collector

import (
	"context"
	"sync"
	"time"

	"EquityScreener/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Errs are consumed one per call before Bars are served.
type MockFetcher struct {
	Bars map[string][]model.OHLCV
	Errs map[string][]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, days int) ([]model.OHLCV, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++

	if errs := m.Errs[symbol]; len(errs) > 0 {
		err := errs[0]
		m.Errs[symbol] = errs[1:]
		return nil, err
	}
	bars := m.Bars[symbol]
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// Calls returns how many times symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// GenerateBars builds count daily bars ending on last, skipping weekends,
// with closes drifting around basePrice.
func GenerateBars(basePrice float64, count int, last time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	day := model.DateOf(last)
	for i := count - 1; i >= 0; i-- {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, -1)
		}
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   day,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
		day = day.AddDate(0, 0, -1)
	}
	return bars
}
