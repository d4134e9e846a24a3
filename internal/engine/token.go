package engine

// Token describes one registered asset. The registry is fixed at startup
// and immutable afterward (spec §4.1).
type Token struct {
	Symbol      string
	Name        string
	TotalSupply int64
	Decimals    int
}

const tokenDecimals = 9

// DefaultTokens returns the process-wide token registry: CRWN, USDT, ETH,
// BTC, TRIT, KRW (spec §4.1).
func DefaultTokens() []Token {
	return []Token{
		{Symbol: "CRWN", Name: "Crowny", TotalSupply: 1_000_000_000, Decimals: tokenDecimals},
		{Symbol: "USDT", Name: "Tether USD", TotalSupply: 1_000_000_000, Decimals: tokenDecimals},
		{Symbol: "ETH", Name: "Ether", TotalSupply: 120_000_000, Decimals: tokenDecimals},
		{Symbol: "BTC", Name: "Bitcoin", TotalSupply: 21_000_000, Decimals: tokenDecimals},
		{Symbol: "TRIT", Name: "Trit", TotalSupply: 1_000_000_000, Decimals: tokenDecimals},
		{Symbol: "KRW", Name: "Korean Won", TotalSupply: 10_000_000_000_000, Decimals: tokenDecimals},
	}
}

// MintGrant is the starting wallet a newly registered principal receives
// (spec §8 scenario 1).
type MintGrant struct {
	Symbol string
	Amount int64
}

// DefaultMintGrants returns the balances credited on registration.
func DefaultMintGrants() []MintGrant {
	return []MintGrant{
		{"CRWN", 1_000_000},
		{"USDT", 500_000},
		{"ETH", 100},
		{"BTC", 5},
		{"KRW", 100_000_000},
	}
}
