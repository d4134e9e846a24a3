package engine

import "math"

// NaN marks an indicator value as not-yet-available. Callers must check
// with math.IsNaN before using a value — a not-yet-available prefix is
// never silently treated as zero (spec §4.2).
var notYetAvailable = math.NaN()

func closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// SMA computes the simple moving average series over period bars. Entries
// before the window fills are NaN.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = notYetAvailable
	}
	if period <= 0 {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the exponential moving average series, seeded with the SMA
// of the first period values.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = notYetAvailable
	}
	if period <= 0 || len(values) < period {
		return out
	}
	k := 2.0 / (float64(period) + 1.0)
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out[period-1] = seed
	prev := seed
	for i := period; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// RSI computes the Relative Strength Index using Wilder smoothing, seeded
// with the simple average of the first period gains/losses (spec §4.2).
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = notYetAvailable
	}
	if period <= 0 || len(values) <= period {
		return out
	}
	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gainSum += d
		} else {
			lossSum -= d
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return out
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// MACDResult holds the MACD line, its signal line, and their difference.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes MACD(12,26) and its 9-period signal line (spec §4.2).
func MACD(values []float64) MACDResult {
	ema12 := EMA(values, 12)
	ema26 := EMA(values, 26)
	macd := make([]float64, len(values))
	for i := range macd {
		if math.IsNaN(ema12[i]) || math.IsNaN(ema26[i]) {
			macd[i] = notYetAvailable
		} else {
			macd[i] = ema12[i] - ema26[i]
		}
	}
	signal := emaSkippingNaN(macd, 9)
	hist := make([]float64, len(values))
	for i := range hist {
		if math.IsNaN(macd[i]) || math.IsNaN(signal[i]) {
			hist[i] = notYetAvailable
		} else {
			hist[i] = macd[i] - signal[i]
		}
	}
	return MACDResult{MACD: macd, Signal: signal, Histogram: hist}
}

// emaSkippingNaN runs EMA over a series that has a NaN prefix, treating the
// first non-NaN value as the seed.
func emaSkippingNaN(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = notYetAvailable
	}
	start := -1
	for i, v := range values {
		if !math.IsNaN(v) {
			start = i
			break
		}
	}
	if start < 0 || len(values)-start < period {
		return out
	}
	k := 2.0 / (float64(period) + 1.0)
	seed := 0.0
	for i := start; i < start+period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	idx := start + period - 1
	out[idx] = seed
	prev := seed
	for i := idx + 1; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// BollingerResult holds the middle/upper/lower bands.
type BollingerResult struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// Bollinger computes SMA20 ± 2 standard deviations (spec §4.2).
func Bollinger(values []float64, period int, numStdDev float64) BollingerResult {
	mid := SMA(values, period)
	upper := make([]float64, len(values))
	lower := make([]float64, len(values))
	for i := range values {
		upper[i] = notYetAvailable
		lower[i] = notYetAvailable
		if i < period-1 {
			continue
		}
		mean := mid[i]
		var sq float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			sq += d * d
		}
		sd := math.Sqrt(sq / float64(period))
		upper[i] = mean + numStdDev*sd
		lower[i] = mean - numStdDev*sd
	}
	return BollingerResult{Middle: mid, Upper: upper, Lower: lower}
}

// StochasticResult holds %K and %D (SMA3 of %K).
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic computes %K over the given period and %D = SMA3(%K) (spec §4.2).
func Stochastic(candles []Candle, period int) StochasticResult {
	k := make([]float64, len(candles))
	for i := range candles {
		k[i] = notYetAvailable
		if i < period-1 {
			continue
		}
		hi, lo := candles[i].High, candles[i].Low
		for j := i - period + 1; j <= i; j++ {
			if candles[j].High > hi {
				hi = candles[j].High
			}
			if candles[j].Low < lo {
				lo = candles[j].Low
			}
		}
		if hi == lo {
			k[i] = 50
			continue
		}
		k[i] = 100 * (candles[i].Close - lo) / (hi - lo)
	}
	d := SMA(k, 3)
	return StochasticResult{K: k, D: d}
}

// ATR computes the Average True Range over the given period using Wilder
// smoothing.
func ATR(candles []Candle, period int) []float64 {
	out := make([]float64, len(candles))
	for i := range out {
		out[i] = notYetAvailable
	}
	if len(candles) <= period {
		return out
	}
	tr := make([]float64, len(candles))
	for i, c := range candles {
		if i == 0 {
			tr[i] = c.High - c.Low
			continue
		}
		prevClose := candles[i-1].Close
		hl := c.High - c.Low
		hc := math.Abs(c.High - prevClose)
		lc := math.Abs(c.Low - prevClose)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	avg := sum / float64(period)
	out[period] = avg
	for i := period + 1; i < len(candles); i++ {
		avg = (avg*float64(period-1) + tr[i]) / float64(period)
		out[i] = avg
	}
	return out
}

// VWAP computes the cumulative volume-weighted average price series.
func VWAP(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	var cumPV, cumV float64
	for i, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		cumPV += typical * c.Volume
		cumV += c.Volume
		if cumV == 0 {
			out[i] = notYetAvailable
			continue
		}
		out[i] = cumPV / cumV
	}
	return out
}

// OBV computes the On-Balance Volume running series.
func OBV(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	var obv float64
	for i, c := range candles {
		if i == 0 {
			out[i] = 0
			continue
		}
		switch {
		case c.Close > candles[i-1].Close:
			obv += c.Volume
		case c.Close < candles[i-1].Close:
			obv -= c.Volume
		}
		out[i] = obv
	}
	return out
}
