package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"EquityScreener/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
// Its quota tolerates modest concurrency.
type YahooFetcher struct {
	client *resty.Client
	loc    *time.Location
	now    func() time.Time
}

// NewYahooFetcher creates a Yahoo Finance fetcher. baseURL may be empty for
// the public endpoint; loc is the exchange time zone used to date bars.
func NewYahooFetcher(baseURL, proxyURL string, loc *time.Location) *YahooFetcher {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	if loc == nil {
		loc = time.UTC
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &YahooFetcher{client: client, loc: loc, now: time.Now}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
				CurrentTradingPeriod struct {
					Regular yahooPeriod `json:"regular"`
				} `json:"currentTradingPeriod"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooPeriod struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func yahooRange(days int) string {
	switch {
	case days <= 20:
		return "1mo"
	case days <= 63:
		return "3mo"
	case days <= 125:
		return "6mo"
	case days <= 250:
		return "1y"
	default:
		return "2y"
	}
}

func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    yahooRange(days),
		}).
		Get("/" + url.PathEscape(symbol))
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}

	var chart yahooChart
	decodeErr := json.Unmarshal(resp.Body(), &chart)

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return nil, fmt.Errorf("yahoo: %w", ErrThrottled)
	case decodeErr == nil && chart.Chart.Error != nil:
		if strings.EqualFold(chart.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("yahoo %s: %w: %s", symbol, ErrInvalidSymbol, chart.Chart.Error.Description)
		}
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	case resp.StatusCode() != http.StatusOK:
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode(), resp.String())
	case decodeErr != nil:
		return nil, fmt.Errorf("yahoo decode: %w", decodeErr)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrEmptyResult)
	}

	result := chart.Chart.Result[0]
	loc := f.loc
	if tz := result.Meta.ExchangeTimezoneName; tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	quote := result.Indicators.Quote[0]
	byDate := make(map[time.Time]model.OHLCV, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if c == nil {
			continue // holidays and halted sessions come back as nulls
		}
		day := model.DateOf(time.Unix(ts, 0).In(loc))
		byDate[day] = model.OHLCV{
			Time:   day,
			Open:   deref(at(quote.Open, i)),
			High:   deref(at(quote.High, i)),
			Low:    deref(at(quote.Low, i)),
			Close:  *c,
			Volume: deref(at(quote.Volume, i)),
		}
	}
	// The current session's bar is provisional until the regular session closes.
	if p := result.Meta.CurrentTradingPeriod.Regular; p.End > 0 && f.now().Unix() < p.End {
		delete(byDate, model.DateOf(time.Unix(p.Start, 0).In(loc)))
	}
	return trimBars(byDate, days), nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// trimBars orders bars by date and keeps the most recent days of them.
func trimBars(byDate map[time.Time]model.OHLCV, days int) []model.OHLCV {
	bars := make([]model.OHLCV, 0, len(byDate))
	for _, b := range byDate {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars
}
