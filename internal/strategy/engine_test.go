package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityScreener/internal/model"
)

var target = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

func fill[T any](n int, v T) []model.Opt[T] {
	col := make([]model.Opt[T], n)
	for i := range col {
		col[i] = model.Some(v)
	}
	return col
}

// neutralFrame has every indicator present and no rule satisfied:
// MACD sits below its signal line, close is above the lower band and
// OBV equals its average.
func neutralFrame(n int) *model.Frame {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{
			Time:   target.AddDate(0, 0, i-n+1),
			Open:   10,
			High:   10.5,
			Low:    9.5,
			Close:  10,
			Volume: 1000,
		}
	}
	return &model.Frame{
		Symbol:     "TEST",
		Bars:       bars,
		MA20:       fill(n, 10.0),
		STD20:      fill(n, 1.0),
		BollLower:  fill(n, 8.0),
		CCI:        fill(n, 0.0),
		MACD:       fill(n, 0.0),
		MACDSignal: fill(n, 0.1),
		RSI:        fill(n, 50.0),
		OBV:        fill(n, 5000.0),
		OBVMA10:    fill(n, 5000.0),
		VolumeMA20: fill(n, 1000.0),
		Breakout:   fill(n, false),
	}
}

// withBullishCross makes MACD cross above its signal on the last bar.
func withBullishCross(f *model.Frame) *model.Frame {
	last := f.Len() - 1
	f.MACD[last-1] = model.Some(0.1)
	f.MACD[last] = model.Some(0.3)
	f.MACDSignal[last] = model.Some(0.2)
	return f
}

func mustEvaluator(t *testing.T, opts Options) *Evaluator {
	t.Helper()
	e, err := NewEvaluator(opts)
	require.NoError(t, err)
	return e
}

func composite() Options {
	return Options{Rules: []string{RuleComposite}}
}

func TestEvaluate_InsufficientData(t *testing.T) {
	e := mustEvaluator(t, DefaultOptions())
	_, err := e.Evaluate(neutralFrame(10), target)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = e.Evaluate(nil, target)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestEvaluate_StaleData(t *testing.T) {
	e := mustEvaluator(t, DefaultOptions())
	f := neutralFrame(30)
	f.Bars[29].Close = 5

	_, err := e.Evaluate(f, target.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrStaleData)
}

func TestEvaluate_BollOversold(t *testing.T) {
	e := mustEvaluator(t, DefaultOptions())
	f := neutralFrame(30)
	f.Bars[29].Close = 7.876

	m, err := e.Evaluate(f, target)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "TEST", m.Ticker)
	assert.Equal(t, model.SignalBollOversold, m.Kind)
	assert.Equal(t, 7.88, m.Close)
	assert.Equal(t, target, m.Date)
	assert.Equal(t, model.Some(8.0), m.LowerBand)
}

func TestEvaluate_BollEqualityDoesNotTrigger(t *testing.T) {
	e := mustEvaluator(t, DefaultOptions())
	f := neutralFrame(30)
	f.Bars[29].Close = 8.0

	m, err := e.Evaluate(f, target)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestEvaluate_AbsentLowerBand(t *testing.T) {
	e := mustEvaluator(t, DefaultOptions())
	f := neutralFrame(30)
	f.Bars[29].Close = 1
	f.BollLower[29] = model.None[float64]()

	m, err := e.Evaluate(f, target)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestEvaluate_CompositeMomentumCrossOnly(t *testing.T) {
	e := mustEvaluator(t, composite())
	f := withBullishCross(neutralFrame(30))
	f.CCI[29] = model.Some(150.0)

	m, err := e.Evaluate(f, target)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.SignalCompositeBuy, m.Kind)
	assert.Empty(t, m.Notes)
}

func TestEvaluate_CompositeBreakoutConfirmed(t *testing.T) {
	e := mustEvaluator(t, composite())
	f := withBullishCross(neutralFrame(30))
	f.Bars[29].Volume = 2500
	f.Breakout[29] = model.Some(true)

	m, err := e.Evaluate(f, target)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.SignalCompositeBuy, m.Kind)
}

func TestEvaluate_CompositeOBVConfirmed(t *testing.T) {
	e := mustEvaluator(t, composite())
	f := withBullishCross(neutralFrame(30))
	f.OBV[29] = model.Some(9000.0)

	m, err := e.Evaluate(f, target)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.SignalCompositeBuy, m.Kind)
}

func TestEvaluate_CompositeRequiresCross(t *testing.T) {
	e := mustEvaluator(t, composite())
	f := neutralFrame(30)
	f.CCI[29] = model.Some(150.0)
	f.OBV[29] = model.Some(9000.0)
	f.Bars[29].Volume = 2500
	f.Breakout[29] = model.Some(true)

	m, err := e.Evaluate(f, target)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestEvaluate_CompositeFallback(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *model.Frame)
	}{
		{"zero volume", func(f *model.Frame) { f.Bars[29].Volume = 0 }},
		{"absent OBV", func(f *model.Frame) { f.OBV[29] = model.None[float64]() }},
		{"absent previous MACD", func(f *model.Frame) { f.MACD[28] = model.None[float64]() }},
		{"missing signal column", func(f *model.Frame) { f.MACDSignal = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustEvaluator(t, composite())

			f := withBullishCross(neutralFrame(30))
			f.CCI[29] = model.Some(150.0)
			tt.mutate(f)
			m, err := e.Evaluate(f, target)
			require.NoError(t, err)
			assert.Nil(t, m, "composite logic must not run on incomplete inputs")

			f.Bars[29].Close = 7.5
			m, err = e.Evaluate(f, target)
			require.NoError(t, err)
			require.NotNil(t, m)
			assert.Equal(t, model.SignalBollOversoldFallback, m.Kind)
		})
	}
}

func TestEvaluate_SellObservations(t *testing.T) {
	f := withBullishCross(neutralFrame(30))
	f.CCI[29] = model.Some(150.0)
	f.RSI[29] = model.Some(85.0)
	f.OBV[29] = model.Some(4000.0)

	m, err := mustEvaluator(t, composite()).Evaluate(f, target)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, []string{model.NoteRSIOverbought, model.NoteOBVBelowMA}, m.Notes)

	opts := composite()
	opts.SuppressOnSell = true
	m, err = mustEvaluator(t, opts).Evaluate(f, target)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestEvaluate_BearishCrossNote(t *testing.T) {
	f := neutralFrame(30)
	f.MACD[28] = model.Some(0.2)
	f.Bars[29].Close = 7

	m, err := mustEvaluator(t, DefaultOptions()).Evaluate(f, target)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.SignalBollOversold, m.Kind)
	assert.Contains(t, m.Notes, model.NoteMACDBearishCross)
}

func TestEvaluate_RuleOrder(t *testing.T) {
	f := withBullishCross(neutralFrame(30))
	f.CCI[29] = model.Some(150.0)
	f.Bars[29].Close = 7

	m, err := mustEvaluator(t, Options{Rules: []string{RuleBollOversold, RuleComposite}}).Evaluate(f, target)
	require.NoError(t, err)
	assert.Equal(t, model.SignalBollOversold, m.Kind)

	m, err = mustEvaluator(t, Options{Rules: []string{RuleComposite, RuleBollOversold}}).Evaluate(f, target)
	require.NoError(t, err)
	assert.Equal(t, model.SignalCompositeBuy, m.Kind)
}

func TestNewEvaluator_UnknownRule(t *testing.T) {
	_, err := NewEvaluator(Options{Rules: []string{"golden_cross"}})
	assert.Error(t, err)
}

func TestEvaluate_EmptyColumnsNeverPanic(t *testing.T) {
	f := &model.Frame{Symbol: "BARE", Bars: neutralFrame(30).Bars}
	for _, opts := range []Options{DefaultOptions(), composite()} {
		m, err := mustEvaluator(t, opts).Evaluate(f, target)
		require.NoError(t, err)
		assert.Nil(t, m)
	}
}
