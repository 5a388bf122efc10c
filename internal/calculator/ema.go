package calculator

import "EquityScreener/internal/model"

// EMA returns the exponentially weighted moving average with the given span,
// using alpha = 2/(span+1) and seeding with the first value. Every entry is
// present once the input is non-empty.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACD returns the MACD line (EMA fast - EMA slow) and its signal line (EMA of MACD).
func MACD(closes []float64, fast, slow, signal int) (macd, sig []model.Opt[float64]) {
	macd = make([]model.Opt[float64], len(closes))
	sig = make([]model.Opt[float64], len(closes))
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return macd, sig
	}

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
		macd[i] = model.Some(line[i])
	}
	for i, v := range EMA(line, signal) {
		sig[i] = model.Some(v)
	}
	return macd, sig
}
