// Package universe provides the list of ticker symbols a scan covers.
package universe

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// ErrEmptyUniverse means no symbols survived loading and filtering.
var ErrEmptyUniverse = errors.New("ticker universe is empty")

// Source returns the candidate ticker symbols for a run.
type Source interface {
	Symbols(ctx context.Context) ([]string, error)
}

// StaticSource serves a fixed list, e.g. from configuration.
type StaticSource []string

func (s StaticSource) Symbols(_ context.Context) ([]string, error) {
	out := Normalize(s)
	if len(out) == 0 {
		return nil, ErrEmptyUniverse
	}
	return out, nil
}

// Listing is one pipe-delimited symbol directory file and the column holding the symbol.
type Listing struct {
	Path   string
	Column string
}

// DefaultListings are the NASDAQ-listed and other-listed (NYSE and others) directories.
var DefaultListings = []Listing{
	{Path: "/dynamic/SymDir/nasdaqlisted.txt", Column: "Symbol"},
	{Path: "/dynamic/SymDir/otherlisted.txt", Column: "ACT Symbol"},
}

const nasdaqTraderBaseURL = "https://www.nasdaqtrader.com"

// NasdaqTraderSource downloads the exchange symbol directories published by Nasdaq Trader.
type NasdaqTraderSource struct {
	client   *resty.Client
	listings []Listing
}

// NewNasdaqTraderSource creates a source for the given listings; an empty
// baseURL selects the public site and nil listings select DefaultListings.
func NewNasdaqTraderSource(baseURL, proxyURL string, listings []Listing) *NasdaqTraderSource {
	if baseURL == "" {
		baseURL = nasdaqTraderBaseURL
	}
	if len(listings) == 0 {
		listings = DefaultListings
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(5 * time.Second)
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &NasdaqTraderSource{client: client, listings: listings}
}

// Symbols downloads every listing and returns the alphabetic, de-duplicated,
// sorted union. Any listing failure fails the whole call.
func (s *NasdaqTraderSource) Symbols(ctx context.Context) ([]string, error) {
	var all []string
	for _, l := range s.listings {
		resp, err := s.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(l.Path)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", l.Path, err)
		}
		body := resp.RawBody()
		if resp.IsError() {
			body.Close()
			return nil, fmt.Errorf("download %s: status %d", l.Path, resp.StatusCode())
		}
		symbols, err := ParseListing(body, l.Column)
		body.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", l.Path, err)
		}
		log.Debug().Str("listing", l.Path).Int("symbols", len(symbols)).Msg("listing loaded")
		all = append(all, symbols...)
	}

	out := Normalize(all)
	if len(out) == 0 {
		return nil, ErrEmptyUniverse
	}
	return out, nil
}

// ParseListing reads a pipe-delimited symbol directory and returns the
// values of column, ignoring the trailing "File Creation Time" row.
func ParseListing(r io.Reader, column string) ([]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = '|'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := -1
	for i, name := range header {
		if strings.TrimSpace(name) == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("missing column %q", column)
	}

	var symbols []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(record) == 0 || strings.HasPrefix(record[0], "File Creation Time") {
			continue
		}
		if idx < len(record) {
			symbols = append(symbols, strings.TrimSpace(record[idx]))
		}
	}
	return symbols, nil
}

// IsAlpha reports whether symbol is non-empty and made of letters only.
// Symbols with digits, dots or dashes denote warrants, units, preferred
// shares or share classes and are excluded.
func IsAlpha(symbol string) bool {
	if symbol == "" {
		return false
	}
	for _, r := range symbol {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Normalize keeps alphabetic symbols, de-duplicates them and sorts the result.
func Normalize(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if !IsAlpha(s) {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
