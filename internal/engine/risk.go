package engine

// RiskAction identifies the side of a prospective trade being gated.
type RiskAction string

const (
	RiskActionBuy  RiskAction = "buy"
	RiskActionSell RiskAction = "sell"
)

// Position is the minimal open-position view the risk manager needs to
// compute stop-loss/take-profit triggers.
type Position struct {
	EntryPrice float64
	// PnLPct is the position's current unrealized return, e.g. -0.05 for a
	// 5% loss.
	PnLPct float64
}

// RiskParams configures one principal's risk gate (spec §4.3 defaults in
// parens).
type RiskParams struct {
	MaxDailyTrades  int
	DailyTradesUsed int
	MaxDrawdownPct  float64 // default 0.15
	MaxPositionSize float64 // default 0.10, fraction of balance
	StopLossPct     float64
	TakeProfitPct   float64
	PeakBalance     float64
	CurrentBalance  float64
	OpenPosition    *Position // nil if flat
}

// RiskResult is the outcome of one risk evaluation (spec §4.3).
type RiskResult struct {
	Allowed    bool
	Risks      []string
	MaxSize    float64
	Drawdown   float64
	StopLoss   bool
	TakeProfit bool
}

const defaultMaxDrawdownPct = 0.15
const defaultMaxPositionSize = 0.10

// Evaluate runs the per-analysis risk gate described in spec §4.3.
func Evaluate(action RiskAction, params RiskParams) RiskResult {
	maxDrawdown := params.MaxDrawdownPct
	if maxDrawdown <= 0 {
		maxDrawdown = defaultMaxDrawdownPct
	}
	maxPositionSize := params.MaxPositionSize
	if maxPositionSize <= 0 {
		maxPositionSize = defaultMaxPositionSize
	}

	result := RiskResult{Allowed: true, MaxSize: params.CurrentBalance * maxPositionSize}

	if params.MaxDailyTrades > 0 && params.DailyTradesUsed >= params.MaxDailyTrades {
		result.Allowed = false
		result.Risks = append(result.Risks, "daily trade cap reached")
	}

	if params.PeakBalance > 0 {
		drawdown := (params.PeakBalance - params.CurrentBalance) / params.PeakBalance
		result.Drawdown = drawdown
		if drawdown > maxDrawdown {
			result.Allowed = false
			result.Risks = append(result.Risks, "max drawdown exceeded")
		}
	}

	if params.OpenPosition != nil {
		pnl := params.OpenPosition.PnLPct
		if params.StopLossPct > 0 && pnl < -params.StopLossPct {
			result.StopLoss = true
			result.Risks = append(result.Risks, "stoploss")
		}
		if params.TakeProfitPct > 0 && pnl > params.TakeProfitPct {
			result.TakeProfit = true
			result.Risks = append(result.Risks, "takeprofit")
		}
	}

	return result
}
