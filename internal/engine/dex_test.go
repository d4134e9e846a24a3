package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

func TestDEX_BootstrapPricing(t *testing.T) {
	dex := NewDEX(time.Now())
	pool, err := dex.Pool("CRWN-USDT")
	if err != nil {
		t.Fatal(err)
	}
	snap := pool.Snapshot()
	if !snap.ReserveA.Equal(d(10_000_000)) {
		t.Errorf("reserveA = %v, want 10_000_000", snap.ReserveA)
	}
	if !snap.ReserveB.Equal(d(1_250_000)) {
		t.Errorf("reserveB = %v, want 1_250_000", snap.ReserveB)
	}
	if snap.PriceAinB != 0.125 {
		t.Errorf("price = %v, want 0.125", snap.PriceAinB)
	}
	if snap.FeeBps != 30 {
		t.Errorf("feeBps = %v, want 30", snap.FeeBps)
	}
}

func TestPool_SwapInvariant_KNeverDecreases(t *testing.T) {
	dex := NewDEX(time.Now())
	pool, _ := dex.Pool("CRWN-USDT")
	before := pool.Snapshot()
	kBefore := before.ReserveA.Mul(before.ReserveB)

	res, err := pool.SwapAToB(d(10_000), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if res.AmountOut.Sign() <= 0 {
		t.Fatal("expected positive amountOut")
	}

	after := pool.Snapshot()
	kAfter := after.ReserveA.Mul(after.ReserveB)
	if kAfter.LessThan(kBefore) {
		t.Fatalf("k decreased: before=%v after=%v", kBefore, kAfter)
	}
	if !kAfter.GreaterThan(kBefore) {
		t.Fatal("k should strictly increase when feeBps>0 and amountIn>0")
	}
}

func TestPool_Swap_ExactAmounts(t *testing.T) {
	dex := NewDEX(time.Now())
	pool, _ := dex.Pool("CRWN-USDT")
	res, err := pool.SwapAToB(d(10_000), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fee.Equal(d(30)) {
		t.Errorf("fee = %v, want 30 (0.3%% of 10000)", res.Fee)
	}
	// newA = 10_000_000 + 9970 = 10_009_970
	// newB = floor(12_500_000_000_000 / 10_009_970)
	newA := d(10_009_970)
	k := d(10_000_000).Mul(d(1_250_000))
	newB := floorDiv(k, newA)
	wantOut := d(1_250_000).Sub(newB)
	if !res.AmountOut.Equal(wantOut) {
		t.Errorf("amountOut = %v, want %v", res.AmountOut, wantOut)
	}
}

func TestPool_AddThenRemoveLiquidity_RoundTrip(t *testing.T) {
	pool := NewPool("CRWN", "USDT", 30)
	now := time.Now()
	shares, err := pool.AddLiquidity("alice", d(1_000_000), d(125_000), now)
	if err != nil {
		t.Fatal(err)
	}
	outA, outB, err := pool.RemoveLiquidity("alice", shares, now)
	if err != nil {
		t.Fatal(err)
	}
	if outA.LessThan(d(1_000_000).Sub(d(1))) || outA.GreaterThan(d(1_000_000)) {
		t.Errorf("outA = %v, want within 1 of 1_000_000", outA)
	}
	if outB.LessThan(d(125_000).Sub(d(1))) || outB.GreaterThan(d(125_000)) {
		t.Errorf("outB = %v, want within 1 of 125_000", outB)
	}
}

func TestPool_LPSharesSumEqualsTotal(t *testing.T) {
	pool := NewPool("CRWN", "USDT", 30)
	now := time.Now()
	s1, _ := pool.AddLiquidity("alice", d(1_000_000), d(125_000), now)
	s2, _ := pool.AddLiquidity("bob", d(500_000), d(62_500), now)
	snap := pool.Snapshot()
	sum := s1.Add(s2)
	if !sum.Equal(snap.TotalLPShares) {
		t.Errorf("sum of holders %v != totalLPShares %v", sum, snap.TotalLPShares)
	}
}

func TestPool_SwapRoundTrip_NeverGainsMoreThanInput(t *testing.T) {
	pool := NewPool("CRWN", "USDT", 30)
	now := time.Now()
	pool.Bootstrap("system", d(10_000_000), d(1_250_000), now)

	out1, err := pool.SwapAToB(d(10_000), now)
	if err != nil {
		t.Fatal(err)
	}
	out2, err := pool.SwapBToA(out1.AmountOut, now)
	if err != nil {
		t.Fatal(err)
	}
	if out2.AmountOut.GreaterThan(d(10_000)) {
		t.Fatalf("round trip gained value: got back %v from 10_000", out2.AmountOut)
	}
}

func TestOrderBook_MatchOrders_FillsAtMakerPrice(t *testing.T) {
	book := NewOrderBook()
	buy := &LimitOrder{ID: "b1", Owner: "alice", PoolID: "CRWN-USDT", Side: OrderSideBuy, Price: d(100), Amount: d(10)}
	sell := &LimitOrder{ID: "s1", Owner: "bob", PoolID: "CRWN-USDT", Side: OrderSideSell, Price: d(95), Amount: d(10)}
	book.Place(buy)
	book.Place(sell)

	fills := book.MatchOrders("CRWN-USDT")
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	if !fills[0].Price.Equal(d(95)) {
		t.Errorf("fill price = %v, want maker price 95", fills[0].Price)
	}
	if buy.Status != OrderStatusFilled || sell.Status != OrderStatusFilled {
		t.Errorf("expected both orders filled, got buy=%v sell=%v", buy.Status, sell.Status)
	}
}

func TestOrderBook_PartialFill(t *testing.T) {
	book := NewOrderBook()
	buy := &LimitOrder{ID: "b1", Owner: "alice", PoolID: "P", Side: OrderSideBuy, Price: d(100), Amount: d(5)}
	sell := &LimitOrder{ID: "s1", Owner: "bob", PoolID: "P", Side: OrderSideSell, Price: d(100), Amount: d(10)}
	book.Place(buy)
	book.Place(sell)
	book.MatchOrders("P")

	if buy.Status != OrderStatusFilled {
		t.Errorf("buy should be filled, got %v", buy.Status)
	}
	if sell.Status != OrderStatusPartial {
		t.Errorf("sell should be partial, got %v", sell.Status)
	}
	if !sell.Remaining().Equal(d(5)) {
		t.Errorf("sell remaining = %v, want 5", sell.Remaining())
	}
}

func TestOrderBook_CancelReleasesRemaining(t *testing.T) {
	book := NewOrderBook()
	o := &LimitOrder{ID: "o1", Owner: "alice", PoolID: "P", Side: OrderSideBuy, Price: d(1), Amount: d(5)}
	book.Place(o)
	remaining, ok := book.Cancel("o1", "alice")
	if !ok {
		t.Fatal("expected cancel to succeed")
	}
	if !remaining.Equal(d(5)) {
		t.Errorf("remaining = %v, want 5", remaining)
	}
	if o.Status != OrderStatusCancelled {
		t.Errorf("status = %v, want cancelled", o.Status)
	}
}
