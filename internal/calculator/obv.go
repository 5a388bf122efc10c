package calculator

import "EquityScreener/internal/model"

// OBV returns On-Balance-Volume. The first bar is the zero baseline; each
// later bar adds its volume when the close rose and subtracts it otherwise.
func OBV(bars []model.OHLCV) []model.Opt[float64] {
	out := make([]model.Opt[float64], len(bars))
	if len(bars) == 0 {
		return out
	}
	total := 0.0
	out[0] = model.Some(total)
	for i := 1; i < len(bars); i++ {
		if bars[i].Close > bars[i-1].Close {
			total += bars[i].Volume
		} else {
			total -= bars[i].Volume
		}
		out[i] = model.Some(total)
	}
	return out
}
