package calculator

import (
	"errors"
	"math"

	"EquityScreener/internal/model"
)

// CalculateSMA computes the simple moving average of the last period prices.
// Summing offsets from the window's first price keeps the mean of equal
// prices exact.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	window := prices[len(prices)-period:]
	k := window[0]
	sum := 0.0
	for _, p := range window {
		sum += p - k
	}
	return k + sum/float64(period), nil
}

// RollingMean returns the trailing simple moving average at every index.
// The first period-1 entries are absent.
func RollingMean(values []float64, period int) []model.Opt[float64] {
	out := make([]model.Opt[float64], len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		ma, _ := CalculateSMA(values[:i+1], period)
		out[i] = model.Some(ma)
	}
	return out
}

// RollingStd returns the trailing sample standard deviation (n-1
// denominator) at every index. The first period-1 entries are absent.
func RollingStd(values []float64, period int) []model.Opt[float64] {
	out := make([]model.Opt[float64], len(values))
	if period <= 1 {
		return out
	}
	n := float64(period)
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		k := window[0]
		var sum, ss float64
		for _, v := range window {
			d := v - k
			sum += d
			ss += d * d
		}
		variance := math.Max((ss-sum*sum/n)/(n-1), 0)
		out[i] = model.Some(math.Sqrt(variance))
	}
	return out
}

// RollingMeanOpt averages a column that may itself contain absent values.
// A window containing any absent entry yields an absent result.
func RollingMeanOpt(values []model.Opt[float64], period int) []model.Opt[float64] {
	out := make([]model.Opt[float64], len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		ok := true
		for _, v := range values[i-period+1 : i+1] {
			if !v.OK {
				ok = false
				break
			}
			sum += v.V
		}
		if ok {
			out[i] = model.Some(sum / float64(period))
		}
	}
	return out
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func extractVolumes(bars []model.OHLCV) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	return vols
}
