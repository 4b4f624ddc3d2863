// Package indicators implements the technical indicator math used by the
// strategies. All functions are pure: output length always equals input
// length and warm-up rows are NaN, never fabricated numbers.
package indicators

import "math"

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA computes a simple moving average over the given window.
func SMA(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || len(values) < window {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// StdDev computes the rolling population standard deviation.
func StdDev(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	sma := SMA(values, window)
	for i := window - 1; i < len(values); i++ {
		mean := sma[i]
		var sq float64
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mean
			sq += d * d
		}
		out[i] = math.Sqrt(sq / float64(window))
	}
	return out
}

// Bollinger computes the middle, upper and lower Bollinger Bands.
func Bollinger(closes []float64, window int, dev float64) (mid, upper, lower []float64) {
	mid = SMA(closes, window)
	sd := StdDev(closes, window)
	upper = nanSlice(len(closes))
	lower = nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(mid[i]) {
			upper[i] = mid[i] + dev*sd[i]
			lower[i] = mid[i] - dev*sd[i]
		}
	}
	return mid, upper, lower
}

// RSI computes the Relative Strength Index with Wilder smoothing.
func RSI(closes []float64, window int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) <= window {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= window; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(window)
	avgLoss /= float64(window)
	out[window] = rsiValue(avgGain, avgLoss)

	for i := window + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(window-1) + gain) / float64(window)
		avgLoss = (avgLoss*float64(window-1) + loss) / float64(window)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ADX computes the Average Directional Index with Wilder smoothing. Values
// before roughly two windows of history are NaN.
func ADX(highs, lows, closes []float64, window int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if n <= 2*window {
		return out
	}

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
	}

	// Seed Wilder sums over the first window.
	var trSum, plusSum, minusSum float64
	for i := 1; i <= window; i++ {
		trSum += tr[i]
		plusSum += plusDM[i]
		minusSum += minusDM[i]
	}

	dx := nanSlice(n)
	dx[window] = dxValue(plusSum, minusSum, trSum)
	for i := window + 1; i < n; i++ {
		trSum = trSum - trSum/float64(window) + tr[i]
		plusSum = plusSum - plusSum/float64(window) + plusDM[i]
		minusSum = minusSum - minusSum/float64(window) + minusDM[i]
		dx[i] = dxValue(plusSum, minusSum, trSum)
	}

	// ADX is a Wilder average of DX over a second window.
	var dxSum float64
	for i := window; i < 2*window; i++ {
		dxSum += dx[i]
	}
	out[2*window-1] = dxSum / float64(window)
	for i := 2 * window; i < n; i++ {
		out[i] = (out[i-1]*float64(window-1) + dx[i]) / float64(window)
	}
	return out
}

func dxValue(plusSum, minusSum, trSum float64) float64 {
	if trSum == 0 {
		return 0
	}
	plusDI := 100 * plusSum / trSum
	minusDI := 100 * minusSum / trSum
	if plusDI+minusDI == 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
}
