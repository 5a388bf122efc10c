package model

// Opt is an indicator value that may be absent, e.g. while a rolling
// window is still filling or when a denominator is zero.
type Opt[T any] struct {
	V  T
	OK bool
}

// Some returns a present value.
func Some[T any](v T) Opt[T] { return Opt[T]{V: v, OK: true} }

// None returns an absent value.
func None[T any]() Opt[T] { return Opt[T]{} }

// Frame is a bar series augmented with derived indicator columns.
// Every column has the same length as Bars.
type Frame struct {
	Symbol     string
	Bars       []OHLCV
	MA20       []Opt[float64]
	STD20      []Opt[float64]
	BollLower  []Opt[float64]
	CCI        []Opt[float64]
	MACD       []Opt[float64]
	MACDSignal []Opt[float64]
	RSI        []Opt[float64]
	OBV        []Opt[float64]
	OBVMA10    []Opt[float64]
	VolumeMA20 []Opt[float64]
	Breakout   []Opt[bool]
}

// Len returns the number of bars in the frame.
func (f *Frame) Len() int { return len(f.Bars) }
