package engine

import "testing"

func allWeightsEqual(names ...string) map[string]float64 {
	w := make(map[string]float64)
	for _, n := range names {
		w[n] = 1.0
	}
	return w
}

func TestFoldSignals_AllBuyConsensus(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f"}
	var sigs []StrategySignal
	for _, n := range names {
		sigs = append(sigs, StrategySignal{Name: n, Signal: 1, Confidence: 1})
	}
	score, _, contributing := foldSignals(sigs, allWeightsEqual(names...))
	if score != 1 {
		t.Fatalf("score = %v, want 1", score)
	}
	if len(contributing) != 6 {
		t.Fatalf("contributing = %d, want 6", len(contributing))
	}
}

func TestFoldSignals_AllSellConsensus(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f"}
	var sigs []StrategySignal
	for _, n := range names {
		sigs = append(sigs, StrategySignal{Name: n, Signal: -1, Confidence: 1})
	}
	score, _, _ := foldSignals(sigs, allWeightsEqual(names...))
	if score != -1 {
		t.Fatalf("score = %v, want -1", score)
	}
}

func TestFoldSignals_SplitCancelsOut(t *testing.T) {
	names := []string{"a", "b", "c", "d"}
	sigs := []StrategySignal{
		{Name: "a", Signal: 1, Confidence: 1},
		{Name: "b", Signal: 1, Confidence: 1},
		{Name: "c", Signal: -1, Confidence: 1},
		{Name: "d", Signal: -1, Confidence: 1},
	}
	score, _, _ := foldSignals(sigs, allWeightsEqual(names...))
	if score != 0 {
		t.Fatalf("score = %v, want 0", score)
	}
}

func TestFoldSignals_ZeroConfidenceDropped(t *testing.T) {
	sigs := []StrategySignal{
		{Name: "a", Signal: 1, Confidence: 0},
		{Name: "b", Signal: 1, Confidence: 1},
	}
	_, _, contributing := foldSignals(sigs, allWeightsEqual("a", "b"))
	if len(contributing) != 1 {
		t.Fatalf("contributing = %d, want 1", len(contributing))
	}
}

func decisionFromScore(score float64, risk RiskResult) Decision {
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
	return decision
}

func TestDecisionBoundaries(t *testing.T) {
	if decisionFromScore(1, RiskResult{Allowed: true}) != DecisionBuy {
		t.Fatal("score=1 should be BUY")
	}
	if decisionFromScore(-1, RiskResult{Allowed: true}) != DecisionSell {
		t.Fatal("score=-1 should be SELL")
	}
	if decisionFromScore(0, RiskResult{Allowed: true}) != DecisionHold {
		t.Fatal("score=0 should be HOLD")
	}
}

func TestDecision_RiskDisallowedForcesHold(t *testing.T) {
	if decisionFromScore(1, RiskResult{Allowed: false}) != DecisionHold {
		t.Fatal("disallowed BUY should be forced to HOLD")
	}
}

func TestDecision_StopLossForcesSell(t *testing.T) {
	if decisionFromScore(1, RiskResult{Allowed: true, StopLoss: true}) != DecisionSell {
		t.Fatal("stoploss should force SELL even on a BUY score")
	}
}

func TestBacktest_ShortSeriesReturnsEmpty(t *testing.T) {
	r := Backtest(make([]Candle, 10))
	if r.Trades != 0 || r.TotalReturn != 0 {
		t.Fatalf("expected empty result for short series, got %+v", r)
	}
}
