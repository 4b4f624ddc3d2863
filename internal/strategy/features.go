package strategy

import (
	"math"

	"btc-trading-bot-go/internal/indicators"
	"btc-trading-bot-go/internal/market"
)

// FeatureRow is a candle augmented with derived numeric fields. Warm-up rows
// carry NaN in the derived fields and Valid=false.
type FeatureRow struct {
	market.Candle

	BBHigh  float64
	BBMid   float64
	BBLow   float64
	BBWidth float64

	RSI        float64
	ADX        float64
	SMA200     float64
	DistSMA200 float64
	VolumeRel  float64

	RSILag1       float64
	RSILag2       float64
	RSIChange     float64
	ADXLag1       float64
	ADXLag2       float64
	ADXChange     float64
	BBWidthLag1   float64
	BBWidthLag2   float64
	BBWidthChange float64
	VolRelLag1    float64
	VolRelLag2    float64
	VolRelChange  float64

	Valid bool
}

// ComputeFeatures derives the full feature set from a candle sequence.
// len(out) == len(candles) always; the input is never mutated.
func ComputeFeatures(candles []market.Candle) []FeatureRow {
	n := len(candles)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	bbMid, bbHigh, bbLow := indicators.Bollinger(closes, 20, 2)
	rsi := indicators.RSI(closes, 14)
	adx := indicators.ADX(highs, lows, closes, 14)
	sma200 := indicators.SMA(closes, 200)
	volSMA := indicators.SMA(volumes, 20)

	rows := make([]FeatureRow, n)
	for i := range rows {
		r := FeatureRow{Candle: candles[i]}
		r.BBHigh, r.BBMid, r.BBLow = bbHigh[i], bbMid[i], bbLow[i]
		r.RSI = rsi[i]
		r.ADX = adx[i]
		r.SMA200 = sma200[i]

		if r.BBMid != 0 {
			r.BBWidth = (r.BBHigh - r.BBLow) / r.BBMid
		} else {
			r.BBWidth = math.NaN()
		}
		if r.SMA200 != 0 {
			r.DistSMA200 = (candles[i].Close - r.SMA200) / r.SMA200
		} else {
			r.DistSMA200 = math.NaN()
		}
		if volSMA[i] != 0 {
			r.VolumeRel = candles[i].Volume / volSMA[i]
		} else {
			r.VolumeRel = math.NaN()
		}
		rows[i] = r
	}

	// Lagged features and their single-step deltas.
	for i := range rows {
		if i >= 1 {
			rows[i].RSILag1 = rows[i-1].RSI
			rows[i].ADXLag1 = rows[i-1].ADX
			rows[i].BBWidthLag1 = rows[i-1].BBWidth
			rows[i].VolRelLag1 = rows[i-1].VolumeRel
			rows[i].RSIChange = rows[i].RSI - rows[i-1].RSI
			rows[i].ADXChange = rows[i].ADX - rows[i-1].ADX
			rows[i].BBWidthChange = rows[i].BBWidth - rows[i-1].BBWidth
			rows[i].VolRelChange = rows[i].VolumeRel - rows[i-1].VolumeRel
		} else {
			rows[i].RSILag1 = math.NaN()
			rows[i].ADXLag1 = math.NaN()
			rows[i].BBWidthLag1 = math.NaN()
			rows[i].VolRelLag1 = math.NaN()
			rows[i].RSIChange = math.NaN()
			rows[i].ADXChange = math.NaN()
			rows[i].BBWidthChange = math.NaN()
			rows[i].VolRelChange = math.NaN()
		}
		if i >= 2 {
			rows[i].RSILag2 = rows[i-2].RSI
			rows[i].ADXLag2 = rows[i-2].ADX
			rows[i].BBWidthLag2 = rows[i-2].BBWidth
			rows[i].VolRelLag2 = rows[i-2].VolumeRel
		} else {
			rows[i].RSILag2 = math.NaN()
			rows[i].ADXLag2 = math.NaN()
			rows[i].BBWidthLag2 = math.NaN()
			rows[i].VolRelLag2 = math.NaN()
		}
		rows[i].Valid = rowDefined(&rows[i])
	}
	return rows
}

func rowDefined(r *FeatureRow) bool {
	for _, v := range []float64{
		r.BBHigh, r.BBMid, r.BBLow, r.BBWidth,
		r.RSI, r.ADX, r.SMA200, r.DistSMA200, r.VolumeRel,
		r.RSILag1, r.RSILag2, r.RSIChange,
		r.ADXLag1, r.ADXLag2, r.ADXChange,
		r.BBWidthLag1, r.BBWidthLag2, r.BBWidthChange,
		r.VolRelLag1, r.VolRelLag2, r.VolRelChange,
	} {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// DropInvalid returns only the rows with fully-defined features, preserving
// order. Engines call this before any entry/exit decision.
func DropInvalid(rows []FeatureRow) []FeatureRow {
	out := make([]FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.Valid {
			out = append(out, r)
		}
	}
	return out
}

// FeatureVector assembles the classifier input in the order the model was
// trained with.
func FeatureVector(r *FeatureRow) []float32 {
	return []float32{
		float32(r.BBWidth), float32(r.RSI), float32(r.ADX),
		float32(r.DistSMA200), float32(r.VolumeRel),
		float32(r.RSILag1), float32(r.RSILag2), float32(r.RSIChange),
		float32(r.ADXLag1), float32(r.ADXLag2), float32(r.ADXChange),
		float32(r.BBWidthLag1), float32(r.BBWidthLag2), float32(r.BBWidthChange),
		float32(r.VolRelLag1), float32(r.VolRelLag2), float32(r.VolRelChange),
	}
}

// breakout reports the single-bar edge trigger: the current close crossed
// above the upper band while the previous close was at or below it.
func breakout(prev, current *FeatureRow) bool {
	return current.Close > current.BBHigh && prev.Close <= prev.BBHigh
}
