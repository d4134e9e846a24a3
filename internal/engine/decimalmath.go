package engine

import (
	"math/big"

	"github.com/shopspring/decimal"
)

func init() {
	// All amounts in this system are non-negative integers (token units,
	// basis points, LP shares); a generous division precision keeps
	// floorDiv exact for the magnitudes this exchange deals in.
	decimal.DivisionPrecision = 50
}

// floorDiv returns floor(a/b) for non-negative a, b, matching the spec's
// repeated "floor(...)" wire-format contract (§4.1).
func floorDiv(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, 0)
	return q
}

// isqrt returns floor(sqrt(x)) for a non-negative integer-valued decimal,
// used by the first liquidity mint (spec §4.1).
func isqrt(x decimal.Decimal) decimal.Decimal {
	bi := x.BigInt()
	root := new(big.Int).Sqrt(bi)
	return decimal.NewFromBigInt(root, 0)
}
