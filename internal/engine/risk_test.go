package engine

import "testing"

func TestEvaluate_DailyCapBlocks(t *testing.T) {
	r := Evaluate(RiskActionBuy, RiskParams{
		MaxDailyTrades:  5,
		DailyTradesUsed: 5,
		CurrentBalance:  1000,
	})
	if r.Allowed {
		t.Fatal("expected blocked at daily cap")
	}
}

func TestEvaluate_DrawdownBlocks(t *testing.T) {
	r := Evaluate(RiskActionBuy, RiskParams{
		PeakBalance:    1000,
		CurrentBalance: 800, // 20% drawdown > default 15%
	})
	if r.Allowed {
		t.Fatal("expected blocked on drawdown")
	}
	if r.Drawdown != 0.2 {
		t.Errorf("drawdown = %v, want 0.2", r.Drawdown)
	}
}

func TestEvaluate_MaxSizeDefault(t *testing.T) {
	r := Evaluate(RiskActionBuy, RiskParams{CurrentBalance: 1000})
	if r.MaxSize != 100 {
		t.Errorf("MaxSize = %v, want 100 (10%% default)", r.MaxSize)
	}
}

func TestEvaluate_StopLossTrigger(t *testing.T) {
	r := Evaluate(RiskActionSell, RiskParams{
		CurrentBalance: 1000,
		StopLossPct:    0.05,
		OpenPosition:   &Position{PnLPct: -0.1},
	})
	if !r.StopLoss {
		t.Fatal("expected stoploss triggered")
	}
	if r.TakeProfit {
		t.Fatal("did not expect takeprofit")
	}
}

func TestEvaluate_TakeProfitTrigger(t *testing.T) {
	r := Evaluate(RiskActionSell, RiskParams{
		CurrentBalance: 1000,
		TakeProfitPct:  0.05,
		OpenPosition:   &Position{PnLPct: 0.1},
	})
	if !r.TakeProfit {
		t.Fatal("expected takeprofit triggered")
	}
}

func TestEvaluate_AllowedWhenClean(t *testing.T) {
	r := Evaluate(RiskActionBuy, RiskParams{
		CurrentBalance: 1000,
		PeakBalance:    1000,
	})
	if !r.Allowed {
		t.Fatal("expected allowed")
	}
	if len(r.Risks) != 0 {
		t.Errorf("expected no risks, got %v", r.Risks)
	}
}
