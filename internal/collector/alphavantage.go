package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"EquityScreener/internal/model"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantageFetcher implements Fetcher using the Alpha Vantage daily time
// series. The free tier allows roughly one request every 15 seconds, so it
// is paired with a single worker and a request delay.
type AlphaVantageFetcher struct {
	client *resty.Client
	apiKey string
}

// NewAlphaVantageFetcher creates a new fetcher with optional proxy support.
func NewAlphaVantageFetcher(baseURL, apiKey, proxyURL string) *AlphaVantageFetcher {
	if baseURL == "" {
		baseURL = alphaVantageBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &AlphaVantageFetcher{client: client, apiKey: apiKey}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

// avDaily is the TIME_SERIES_DAILY payload. Quota and error answers come
// back with status 200 and one of the message fields set.
type avDaily struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	Series       map[string]map[string]string `json:"Time Series (Daily)"`
}

func (f *AlphaVantageFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	outputSize := "compact" // latest 100 bars
	if days > 100 {
		outputSize = "full"
	}
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     symbol,
			"outputsize": outputSize,
			"apikey":     f.apiKey,
		}).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("alphavantage fetch: %w", err)
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, fmt.Errorf("alphavantage: %w", ErrThrottled)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("alphavantage: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	var payload avDaily
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("alphavantage decode: %w", err)
	}
	switch {
	case payload.ErrorMessage != "":
		return nil, fmt.Errorf("alphavantage %s: %w: %s", symbol, ErrInvalidSymbol, payload.ErrorMessage)
	case payload.Note != "":
		return nil, fmt.Errorf("alphavantage: %w: %s", ErrThrottled, payload.Note)
	case payload.Information != "":
		return nil, fmt.Errorf("alphavantage: %w: %s", ErrThrottled, payload.Information)
	case len(payload.Series) == 0:
		return nil, fmt.Errorf("alphavantage %s: %w", symbol, ErrEmptyResult)
	}

	byDate := make(map[time.Time]model.OHLCV, len(payload.Series))
	for date, fields := range payload.Series {
		day, err := time.Parse(model.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("alphavantage date %q: %w", date, err)
		}
		bar := model.OHLCV{Time: day}
		for key, dst := range map[string]*float64{
			"1. open":   &bar.Open,
			"2. high":   &bar.High,
			"3. low":    &bar.Low,
			"4. close":  &bar.Close,
			"5. volume": &bar.Volume,
		} {
			v, err := strconv.ParseFloat(fields[key], 64)
			if err != nil {
				return nil, fmt.Errorf("alphavantage %s %s %q: %w", date, key, fields[key], err)
			}
			*dst = v
		}
		byDate[day] = bar
	}
	return trimBars(byDate, days), nil
}
