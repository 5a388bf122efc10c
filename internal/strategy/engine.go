package strategy

import (
	"errors"
	"fmt"
	"math"
	"time"

	"EquityScreener/internal/model"
	"EquityScreener/internal/tradedate"
)

// MinBars is the shortest frame the evaluator accepts.
const MinBars = 25

var (
	// ErrInsufficientData means the frame is shorter than MinBars.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrStaleData means the last bar is not on the target date.
	ErrStaleData = errors.New("last bar is not on target date")
)

// Rule names accepted in configuration.
const (
	RuleBollOversold = "boll_oversold"
	RuleComposite    = "composite"
)

// Options selects which rules run and how sell observations are treated.
type Options struct {
	Rules []string
	// SuppressOnSell drops a buy match when any sell observation holds.
	// When false the observations are only attached as notes.
	SuppressOnSell bool
	// RSIOverbought is the RSI level reported as a sell observation.
	RSIOverbought float64
}

// DefaultOptions runs the Bollinger-oversold rule only.
func DefaultOptions() Options {
	return Options{Rules: []string{RuleBollOversold}, RSIOverbought: 80}
}

type rule func(f *model.Frame, last int) (model.SignalKind, bool)

// Evaluator decides whether the target-date bar of a frame triggers a signal.
// It holds no per-ticker state and is safe for concurrent use.
type Evaluator struct {
	opts  Options
	rules []rule
}

// NewEvaluator builds an evaluator for the configured rules, in order.
func NewEvaluator(opts Options) (*Evaluator, error) {
	if len(opts.Rules) == 0 {
		opts.Rules = DefaultOptions().Rules
	}
	if opts.RSIOverbought == 0 {
		opts.RSIOverbought = DefaultOptions().RSIOverbought
	}
	e := &Evaluator{opts: opts}
	for _, name := range opts.Rules {
		switch name {
		case RuleBollOversold:
			e.rules = append(e.rules, bollOversoldRule)
		case RuleComposite:
			e.rules = append(e.rules, compositeRule)
		default:
			return nil, fmt.Errorf("unknown rule %q", name)
		}
	}
	return e, nil
}

// Evaluate returns the first configured rule that matches on the last bar,
// or nil when none does. Frames that are too short or not aligned with
// target are rejected with ErrInsufficientData or ErrStaleData.
func (e *Evaluator) Evaluate(f *model.Frame, target time.Time) (*model.SignalMatch, error) {
	if f == nil || f.Len() < MinBars {
		return nil, ErrInsufficientData
	}
	last := f.Len() - 1
	bar := f.Bars[last]
	if !tradedate.SameDay(bar.Time, target) {
		return nil, fmt.Errorf("%w: last bar %s, target %s", ErrStaleData,
			bar.Time.Format(model.DateLayout), target.Format(model.DateLayout))
	}

	for _, r := range e.rules {
		kind, ok := r(f, last)
		if !ok {
			continue
		}
		notes := e.sellNotes(f, last)
		if e.opts.SuppressOnSell && len(notes) > 0 {
			return nil, nil
		}
		return &model.SignalMatch{
			Ticker:    f.Symbol,
			Kind:      kind,
			Close:     math.Round(bar.Close*100) / 100,
			Date:      model.DateOf(bar.Time),
			LowerBand: at(f.BollLower, last),
			Notes:     notes,
		}, nil
	}
	return nil, nil
}

// sellNotes lists the exit conditions holding on the last bar.
func (e *Evaluator) sellNotes(f *model.Frame, last int) []string {
	var notes []string
	if bearishCross(f, last) {
		notes = append(notes, model.NoteMACDBearishCross)
	}
	if rsi := at(f.RSI, last); rsi.OK && rsi.V > e.opts.RSIOverbought {
		notes = append(notes, model.NoteRSIOverbought)
	}
	obv, obvMA := at(f.OBV, last), at(f.OBVMA10, last)
	if obv.OK && obvMA.OK && obv.V < obvMA.V {
		notes = append(notes, model.NoteOBVBelowMA)
	}
	return notes
}

func bollOversoldRule(f *model.Frame, last int) (model.SignalKind, bool) {
	if bollOversold(f, last) {
		return model.SignalBollOversold, true
	}
	return "", false
}

// compositeRule requires volume, OBV and MACD inputs. Without them it
// falls back to the Bollinger-oversold test.
func compositeRule(f *model.Frame, last int) (model.SignalKind, bool) {
	if !compositeEligible(f, last) {
		if bollOversold(f, last) {
			return model.SignalBollOversoldFallback, true
		}
		return "", false
	}

	cross := bullishCross(f, last)
	cci := at(f.CCI, last)
	momentum := cross && cci.OK && cci.V > 100

	volMA := at(f.VolumeMA20, last)
	brk := at(f.Breakout, last)
	breakout := cross && volMA.OK && f.Bars[last].Volume > volMA.V && brk.OK && brk.V

	obv, obvMA := at(f.OBV, last), at(f.OBVMA10, last)
	obvConfirmed := cross && obv.OK && obvMA.OK && obv.V > obvMA.V

	if momentum || breakout || obvConfirmed {
		return model.SignalCompositeBuy, true
	}
	return "", false
}

func compositeEligible(f *model.Frame, last int) bool {
	if last < 1 || f.Bars[last].Volume <= 0 {
		return false
	}
	for _, col := range [][]model.Opt[float64]{f.OBV, f.OBVMA10, f.MACD, f.MACDSignal} {
		if !at(col, last).OK || !at(col, last-1).OK {
			return false
		}
	}
	return true
}

func bollOversold(f *model.Frame, last int) bool {
	lower := at(f.BollLower, last)
	return lower.OK && f.Bars[last].Close < lower.V
}

// bullishCross reports MACD moving from at-or-below to above its signal line.
func bullishCross(f *model.Frame, last int) bool {
	if last < 1 {
		return false
	}
	m, s := at(f.MACD, last), at(f.MACDSignal, last)
	pm, ps := at(f.MACD, last-1), at(f.MACDSignal, last-1)
	if !m.OK || !s.OK || !pm.OK || !ps.OK {
		return false
	}
	return m.V > s.V && pm.V <= ps.V
}

// bearishCross reports MACD moving from at-or-above to below its signal line.
func bearishCross(f *model.Frame, last int) bool {
	if last < 1 {
		return false
	}
	m, s := at(f.MACD, last), at(f.MACDSignal, last)
	pm, ps := at(f.MACD, last-1), at(f.MACDSignal, last-1)
	if !m.OK || !s.OK || !pm.OK || !ps.OK {
		return false
	}
	return m.V < s.V && pm.V >= ps.V
}

// at reads column i, treating short or missing columns as absent.
func at[T any](col []model.Opt[T], i int) model.Opt[T] {
	if i < 0 || i >= len(col) {
		return model.Opt[T]{}
	}
	return col[i]
}
