package engine

import "math"

// Consensus is the weighted-vote outcome over the six strategies (spec §4.4).
type Consensus struct {
	Decision      Decision
	Score         float64
	AvgConfidence float64
	Trit          Trit
	Strategies    []StrategySignal
	Risk          RiskResult
}

const consensusBuyThreshold = 0.3
const consensusSellThreshold = -0.3

// Analyze runs every strategy, folds them into a weighted consensus score,
// and applies the risk gate's forced-HOLD / forced-SELL overrides
// (spec §4.4).
func Analyze(candles []Candle, risk RiskResult) Consensus {
	var signals []StrategySignal
	weights := make(map[string]float64)
	for _, sw := range Strategies() {
		signals = append(signals, sw.Run(candles))
		weights[sw.Name] = sw.Weight
	}
	score, avgConf, contributing := foldSignals(signals, weights)

	decision := DecisionHold
	switch {
	case score > consensusBuyThreshold:
		decision = DecisionBuy
	case score < consensusSellThreshold:
		decision = DecisionSell
	}

	if !risk.Allowed && decision != DecisionHold {
		decision = DecisionHold
	}
	if risk.StopLoss || risk.TakeProfit {
		decision = DecisionSell
	}

	return Consensus{
		Decision:      decision,
		Score:         score,
		AvgConfidence: avgConf,
		Trit:          decisionTrit(decision),
		Strategies:    contributing,
		Risk:          risk,
	}
}

// foldSignals applies the weighted-vote fold of spec §4.4 step 2-3 to an
// arbitrary set of strategy signals, dropping zero-confidence
// contributors. Exposed separately from Analyze so the consensus boundary
// laws (spec §8) can be tested against synthetic signals without needing
// real candle series that happen to make every strategy agree.
func foldSignals(signals []StrategySignal, weights map[string]float64) (score, avgConfidence float64, contributing []StrategySignal) {
	var weightedSum, totalWeight, confSum float64
	for _, sig := range signals {
		if sig.Confidence == 0 {
			continue
		}
		contributing = append(contributing, sig)
		w := weights[sig.Name]
		weightedSum += float64(sig.Signal) * w * sig.Confidence
		totalWeight += w * sig.Confidence
		confSum += sig.Confidence
	}
	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}
	if len(contributing) > 0 {
		avgConfidence = confSum / float64(len(contributing))
	}
	return score, avgConfidence, contributing
}

func decisionTrit(d Decision) Trit {
	switch d {
	case DecisionBuy:
		return TritPositive
	case DecisionSell:
		return TritNegative
	default:
		return TritNeutral
	}
}

// BacktestResult summarizes a backtest run (spec §4.4).
type BacktestResult struct {
	TotalReturn float64
	WinRate     float64
	MaxDrawdown float64
	Sharpe      float64
	Trades      int
}

const backtestStartIndex = 50
const backtestNotionalPct = 0.10
const tradingDaysPerYear = 252

// Backtest walks candles from index 50, opening a 10%-notional long on BUY
// when flat and closing on SELL when long (spec §4.4).
func Backtest(candles []Candle) BacktestResult {
	if len(candles) <= backtestStartIndex {
		return BacktestResult{}
	}

	equity := 1.0
	peak := 1.0
	maxDrawdown := 0.0
	var dailyReturns []float64
	var wins, trades int

	type position struct {
		entryPrice float64
		lastPrice  float64
		notional   float64
	}
	var pos *position

	for i := backtestStartIndex; i < len(candles); i++ {
		prefix := candles[:i+1]
		risk := Evaluate(RiskActionBuy, RiskParams{CurrentBalance: equity, PeakBalance: peak})
		c := Analyze(prefix, risk)
		price := candles[i].Close

		prevEquity := equity
		if pos != nil {
			ret := (price - pos.lastPrice) / pos.lastPrice
			equity += pos.notional * ret
			pos.notional *= 1 + ret
			pos.lastPrice = price
		}

		switch c.Decision {
		case DecisionBuy:
			if pos == nil {
				pos = &position{entryPrice: price, lastPrice: price, notional: equity * backtestNotionalPct}
			}
		case DecisionSell:
			if pos != nil {
				ret := (price - pos.entryPrice) / pos.entryPrice
				trades++
				if ret > 0 {
					wins++
				}
				pos = nil
			}
		}

		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
		if prevEquity != 0 {
			dailyReturns = append(dailyReturns, (equity-prevEquity)/prevEquity)
		}
	}

	winRate := 0.0
	if trades > 0 {
		winRate = float64(wins) / float64(trades)
	}

	return BacktestResult{
		TotalReturn: equity - 1,
		WinRate:     winRate,
		MaxDrawdown: maxDrawdown,
		Sharpe:      sharpeRatio(dailyReturns),
		Trades:      trades,
	}
}

func sharpeRatio(returns []float64) float64 {
	n := len(returns)
	if n == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(n)

	if n < 2 {
		return 0
	}
	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	stdev := math.Sqrt(sq / float64(n-1))
	if stdev == 0 {
		return 0
	}
	return mean / stdev * math.Sqrt(float64(tradingDaysPerYear))
}
