package universe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nasdaqListed = `Symbol|Security Name|Market Category|Test Issue|Financial Status|Round Lot Size|ETF|NextShares
AAPL|Apple Inc. - Common Stock|Q|N|N|100|N|N
ACAHW|Acri Capital Acquisition Corp - Warrant|G|N|N|100|N|N
MSFT|Microsoft Corporation - Common Stock|Q|N|N|100|N|N
File Creation Time: 1014202621:32|||||||
`

const otherListed = `ACT Symbol|Security Name|Exchange|CQS Symbol|ETF|Round Lot Size|Test Issue|NASDAQ Symbol
BRK.B|Berkshire Hathaway Inc. Class B|N|BRK.B|N|100|N|BRK.B
IBM|International Business Machines|N|IBM|N|100|N|IBM
AAPL|duplicate for the test|N|AAPL|N|100|N|AAPL
ABR-D|Arbor Realty Trust Preferred|N|ABRpD|N|100|N|ABR-D
File Creation Time: 1014202621:32|||||||
`

func TestParseListing(t *testing.T) {
	symbols, err := ParseListing(strings.NewReader(nasdaqListed), "Symbol")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "ACAHW", "MSFT"}, symbols)

	_, err = ParseListing(strings.NewReader(nasdaqListed), "ACT Symbol")
	assert.Error(t, err)
}

func TestIsAlpha(t *testing.T) {
	assert.True(t, IsAlpha("AAPL"))
	assert.False(t, IsAlpha("BRK.B"))
	assert.False(t, IsAlpha("ABR-D"))
	assert.False(t, IsAlpha("A1"))
	assert.False(t, IsAlpha(""))
}

func TestNasdaqTraderSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dynamic/SymDir/nasdaqlisted.txt":
			w.Write([]byte(nasdaqListed))
		case "/dynamic/SymDir/otherlisted.txt":
			w.Write([]byte(otherListed))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	symbols, err := NewNasdaqTraderSource(srv.URL, "", nil).Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "ACAHW", "IBM", "MSFT"}, symbols)
}

func TestNasdaqTraderSource_ListingFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewNasdaqTraderSource(srv.URL, "", []Listing{{Path: "/missing.txt", Column: "Symbol"}}).
		Symbols(context.Background())
	assert.Error(t, err)
}

func TestStaticSource(t *testing.T) {
	symbols, err := StaticSource{"msft", "AAPL", "AAPL", "BF.B"}.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "msft"}, symbols)

	_, err = StaticSource{"BF.B"}.Symbols(context.Background())
	assert.ErrorIs(t, err, ErrEmptyUniverse)
}
