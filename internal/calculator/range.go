package calculator

import (
	"math"

	"EquityScreener/internal/model"
)

// RollingMax returns the trailing maximum over period values.
// The first period-1 entries are absent.
func RollingMax(values []float64, period int) []model.Opt[float64] {
	out := make([]model.Opt[float64], len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		high := math.Inf(-1)
		for _, v := range values[i-period+1 : i+1] {
			if v > high {
				high = v
			}
		}
		out[i] = model.Some(high)
	}
	return out
}

// Breakout flags bars whose close strictly exceeds the highest close of the
// period bars before it. The comparison uses the previous bar's rolling max,
// so the flag is absent until period prior bars exist.
func Breakout(closes []float64, period int) []model.Opt[bool] {
	out := make([]model.Opt[bool], len(closes))
	prior := RollingMax(closes, period)
	for i := 1; i < len(closes); i++ {
		if !prior[i-1].OK {
			continue
		}
		out[i] = model.Some(closes[i] > prior[i-1].V)
	}
	return out
}
