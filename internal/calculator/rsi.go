package calculator

import "EquityScreener/internal/model"

// RSISeries returns RSI(period) at every index. Entries before index period are absent.
func RSISeries(closes []float64, period int) []model.Opt[float64] {
	out := make([]model.Opt[float64], len(closes))
	if period <= 0 {
		return out
	}
	for i := period; i < len(closes); i++ {
		out[i] = model.Some(rsiAt(closes, i, period))
	}
	return out
}

// rsiAt averages the period close-to-close changes ending at index i.
func rsiAt(closes []float64, i, period int) float64 {
	var avgGain, avgLoss float64
	for j := i - period + 1; j <= i; j++ {
		change := closes[j] - closes[j-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
