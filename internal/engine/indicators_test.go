package engine

import (
	"math"
	"testing"
)

func TestSMA_PrefixIsNaN(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	sma := SMA(vals, 3)
	for i := 0; i < 2; i++ {
		if !math.IsNaN(sma[i]) {
			t.Errorf("sma[%d] = %v, want NaN", i, sma[i])
		}
	}
	if sma[2] != 2 {
		t.Errorf("sma[2] = %v, want 2", sma[2])
	}
	if sma[4] != 4 {
		t.Errorf("sma[4] = %v, want 4", sma[4])
	}
}

func TestEMA_SeededWithSMA(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	ema := EMA(vals, 3)
	if math.IsNaN(ema[1]) == false {
		t.Errorf("ema[1] should be NaN before window fills")
	}
	want := (1.0 + 2.0 + 3.0) / 3.0
	if ema[2] != want {
		t.Errorf("ema[2] = %v, want seed %v", ema[2], want)
	}
}

func TestRSI_ExtremesSaturate(t *testing.T) {
	// Monotonic increase -> RSI should approach 100.
	vals := make([]float64, 20)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	rsi := RSI(vals, 14)
	last := rsi[len(rsi)-1]
	if math.IsNaN(last) {
		t.Fatal("rsi should be available")
	}
	if last < 99 {
		t.Errorf("rsi = %v, want close to 100 for monotonic rise", last)
	}
}

func TestMACD_HistogramIsDifference(t *testing.T) {
	vals := make([]float64, 60)
	for i := range vals {
		vals[i] = float64(i) + math.Sin(float64(i)/3)*2
	}
	m := MACD(vals)
	n := len(vals) - 1
	if math.IsNaN(m.Histogram[n]) {
		t.Fatal("histogram should be available by the end of the series")
	}
	want := m.MACD[n] - m.Signal[n]
	if math.Abs(m.Histogram[n]-want) > 1e-9 {
		t.Errorf("histogram = %v, want %v", m.Histogram[n], want)
	}
}

func TestBollinger_MiddleIsSMA(t *testing.T) {
	vals := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20,
		21, 22, 23, 24, 25, 26, 27, 28, 29}
	b := Bollinger(vals, 20, 2)
	sma := SMA(vals, 20)
	if b.Middle[19] != sma[19] {
		t.Errorf("middle band should equal SMA20")
	}
	if !(b.Lower[19] < b.Middle[19] && b.Middle[19] < b.Upper[19]) {
		t.Error("bands should bracket the middle band")
	}
}

func TestStochastic_BoundedZeroToHundred(t *testing.T) {
	candles := make([]Candle, 30)
	for i := range candles {
		candles[i] = Candle{High: float64(i + 10), Low: float64(i), Close: float64(i + 5)}
	}
	s := Stochastic(candles, 14)
	for i, v := range s.K {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Errorf("%%K[%d] = %v out of [0,100]", i, v)
		}
	}
}

func TestOBV_AccumulatesOnDirection(t *testing.T) {
	candles := []Candle{
		{Close: 10, Volume: 100},
		{Close: 11, Volume: 50}, // up
		{Close: 9, Volume: 30},  // down
	}
	obv := OBV(candles)
	if obv[1] != 50 {
		t.Errorf("obv[1] = %v, want 50", obv[1])
	}
	if obv[2] != 20 {
		t.Errorf("obv[2] = %v, want 20", obv[2])
	}
}
