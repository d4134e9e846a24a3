package engine

import "math"

// StrategyWeight pairs a strategy function with its consensus weight
// (spec §4.2).
type StrategyWeight struct {
	Name   string
	Weight float64
	Run    func([]Candle) StrategySignal
}

// Strategies returns the six stateless analyzers in their fixed weight
// order.
func Strategies() []StrategyWeight {
	return []StrategyWeight{
		{"rsi", 1.5, RSIStrategy},
		{"macd", 1.3, MACDStrategy},
		{"bollinger", 1.2, BollingerStrategy},
		{"volume", 0.8, VolumeStrategy},
		{"trend", 1.0, TrendStrategy},
		{"stochastic", 0.7, StochasticStrategy},
	}
}

func noSignal(name, reason string) StrategySignal {
	return StrategySignal{Name: name, Signal: 0, Confidence: 0, Reason: reason}
}

// RSIStrategy flags oversold/overbought crossings of the 14-period RSI.
func RSIStrategy(candles []Candle) StrategySignal {
	c := closes(candles)
	rsi := RSI(c, 14)
	last := rsi[len(rsi)-1]
	if math.IsNaN(last) {
		return noSignal("rsi", "insufficient data")
	}
	switch {
	case last < 30:
		conf := clampUnit((30 - last) / 30)
		return StrategySignal{"rsi", 1, conf, "oversold"}
	case last > 70:
		conf := clampUnit((last - 70) / 30)
		return StrategySignal{"rsi", -1, conf, "overbought"}
	default:
		return noSignal("rsi", "neutral range")
	}
}

// MACDStrategy flags golden/dead crosses of the MACD and signal lines.
func MACDStrategy(candles []Candle) StrategySignal {
	c := closes(candles)
	m := MACD(c)
	n := len(c)
	if n < 2 || math.IsNaN(m.MACD[n-1]) || math.IsNaN(m.Signal[n-1]) ||
		math.IsNaN(m.MACD[n-2]) || math.IsNaN(m.Signal[n-2]) {
		return noSignal("macd", "insufficient data")
	}
	prevDiff := m.MACD[n-2] - m.Signal[n-2]
	curDiff := m.MACD[n-1] - m.Signal[n-1]
	histMag := clampUnit(math.Abs(curDiff) / (math.Abs(c[n-1]) * 0.01))

	switch {
	case prevDiff <= 0 && curDiff > 0:
		return StrategySignal{"macd", 1, clampUnit(0.6 + histMag*0.4), "golden cross"}
	case prevDiff >= 0 && curDiff < 0:
		return StrategySignal{"macd", -1, clampUnit(0.6 + histMag*0.4), "dead cross"}
	case curDiff > 0:
		return StrategySignal{"macd", 1, clampUnit(histMag * 0.4), "macd above signal"}
	case curDiff < 0:
		return StrategySignal{"macd", -1, clampUnit(histMag * 0.4), "macd below signal"}
	default:
		return noSignal("macd", "flat")
	}
}

// BollingerStrategy flags proximity to the upper/lower bands.
func BollingerStrategy(candles []Candle) StrategySignal {
	c := closes(candles)
	b := Bollinger(c, 20, 2)
	n := len(c)
	if math.IsNaN(b.Upper[n-1]) || math.IsNaN(b.Lower[n-1]) {
		return noSignal("bollinger", "insufficient data")
	}
	price := c[n-1]
	width := b.Upper[n-1] - b.Lower[n-1]
	if width <= 0 {
		return noSignal("bollinger", "zero band width")
	}
	distToLower := (price - b.Lower[n-1]) / width
	distToUpper := (b.Upper[n-1] - price) / width

	const touchProximity = 0.05
	switch {
	case distToLower <= touchProximity:
		return StrategySignal{"bollinger", 1, clampUnit(1 - distToLower/touchProximity), "lower band touch"}
	case distToUpper <= touchProximity:
		return StrategySignal{"bollinger", -1, clampUnit(1 - distToUpper/touchProximity), "upper band touch"}
	default:
		return noSignal("bollinger", "mid band")
	}
}

// VolumeStrategy compares current volume to its 20-bar mean.
func VolumeStrategy(candles []Candle) StrategySignal {
	n := len(candles)
	const period = 20
	if n < period+1 {
		return noSignal("volume", "insufficient data")
	}
	var sum float64
	for i := n - 1 - period; i < n-1; i++ {
		sum += candles[i].Volume
	}
	meanVol := sum / float64(period)
	if meanVol == 0 {
		return noSignal("volume", "zero mean volume")
	}
	ratio := candles[n-1].Volume / meanVol
	priceUp := candles[n-1].Close >= candles[n-2].Close

	switch {
	case ratio >= 2 && priceUp:
		return StrategySignal{"volume", 1, clampUnit((ratio - 1) / 3), "volume surge on advance"}
	case ratio >= 2 && !priceUp:
		return StrategySignal{"volume", -1, clampUnit((ratio - 1) / 3), "volume surge on decline"}
	default:
		return noSignal("volume", "normal volume")
	}
}

// TrendStrategy orders a short/medium/long EMA stack (golden-stack logic).
func TrendStrategy(candles []Candle) StrategySignal {
	c := closes(candles)
	ema9 := EMA(c, 9)
	ema21 := EMA(c, 21)
	ema50 := EMA(c, 50)
	n := len(c)
	if math.IsNaN(ema9[n-1]) || math.IsNaN(ema21[n-1]) || math.IsNaN(ema50[n-1]) {
		return noSignal("trend", "insufficient data")
	}
	e9, e21, e50 := ema9[n-1], ema21[n-1], ema50[n-1]
	spread := clampUnit(math.Abs(e9-e50) / e50 * 10)

	switch {
	case e9 > e21 && e21 > e50:
		return StrategySignal{"trend", 1, clampUnit(0.5 + spread*0.5), "bullish ema stack"}
	case e9 < e21 && e21 < e50:
		return StrategySignal{"trend", -1, clampUnit(0.5 + spread*0.5), "bearish ema stack"}
	default:
		return noSignal("trend", "no clear stack")
	}
}

// StochasticStrategy flags %K/%D crosses in the oversold/overbought zones.
func StochasticStrategy(candles []Candle) StrategySignal {
	s := Stochastic(candles, 14)
	n := len(candles)
	if n < 2 || math.IsNaN(s.K[n-1]) || math.IsNaN(s.D[n-1]) ||
		math.IsNaN(s.K[n-2]) || math.IsNaN(s.D[n-2]) {
		return noSignal("stochastic", "insufficient data")
	}
	prevDiff := s.K[n-2] - s.D[n-2]
	curDiff := s.K[n-1] - s.D[n-1]
	inOversold := s.K[n-1] < 20
	inOverbought := s.K[n-1] > 80

	switch {
	case prevDiff <= 0 && curDiff > 0 && inOversold:
		return StrategySignal{"stochastic", 1, 0.8, "bullish cross in oversold zone"}
	case prevDiff >= 0 && curDiff < 0 && inOverbought:
		return StrategySignal{"stochastic", -1, 0.8, "bearish cross in overbought zone"}
	case prevDiff <= 0 && curDiff > 0:
		return StrategySignal{"stochastic", 1, 0.4, "bullish cross"}
	case prevDiff >= 0 && curDiff < 0:
		return StrategySignal{"stochastic", -1, 0.4, "bearish cross"}
	default:
		return noSignal("stochastic", "no cross")
	}
}
