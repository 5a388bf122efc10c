package calculator

import "EquityScreener/internal/model"

const (
	BollPeriod     = 20
	BollWidth      = 2.0
	CCIConstant    = 0.015
	MACDFast       = 12
	MACDSlow       = 26
	MACDSignalSpan = 9
	RSIPeriod      = 14
	OBVMAPeriod    = 10
	VolumeMAPeriod = 20
	BreakoutPeriod = 20
)

// Compute derives every indicator column for the series. It does not modify
// the input and holds no state, so repeated calls on the same series return
// identical frames.
func Compute(series model.Series) *model.Frame {
	bars := make([]model.OHLCV, len(series.Bars))
	copy(bars, series.Bars)

	closes := extractCloses(bars)
	volumes := extractVolumes(bars)

	f := &model.Frame{
		Symbol:     series.Symbol,
		Bars:       bars,
		MA20:       RollingMean(closes, BollPeriod),
		STD20:      RollingStd(closes, BollPeriod),
		RSI:        RSISeries(closes, RSIPeriod),
		OBV:        OBV(bars),
		VolumeMA20: RollingMean(volumes, VolumeMAPeriod),
		Breakout:   Breakout(closes, BreakoutPeriod),
	}
	f.MACD, f.MACDSignal = MACD(closes, MACDFast, MACDSlow, MACDSignalSpan)
	f.OBVMA10 = RollingMeanOpt(f.OBV, OBVMAPeriod)

	f.BollLower = make([]model.Opt[float64], len(bars))
	f.CCI = make([]model.Opt[float64], len(bars))
	for i := range bars {
		ma, std := f.MA20[i], f.STD20[i]
		if !ma.OK || !std.OK {
			continue
		}
		f.BollLower[i] = model.Some(ma.V - BollWidth*std.V)
		if std.V != 0 {
			f.CCI[i] = model.Some((closes[i] - ma.V) / (CCIConstant * std.V))
		}
	}
	return f
}
