package message

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AccountID identifies a trading account.
type AccountID uint64

// Asset is a fungible token on a chain, e.g. "BTC:CHAIN1".
type Asset string

// MarketID is a trading pair in the form "BASE/QUOTE".
type MarketID string

func NewMarketID(base, quote Asset) MarketID {
	return MarketID(string(base) + "/" + string(quote))
}

func (m MarketID) Base() Asset {
	base, _ := m.Assets()
	return base
}

func (m MarketID) Quote() Asset {
	_, quote := m.Assets()
	return quote
}

// Assets splits the id into base and quote. A malformed id yields
// the whole string as base and an empty quote.
func (m MarketID) Assets() (Asset, Asset) {
	base, quote, _ := strings.Cut(string(m), "/")
	return Asset(base), Asset(quote)
}

func (m MarketID) Valid() bool {
	base, quote := m.Assets()
	return base != "" && quote != "" && base != quote
}

// FeeRate is a fraction of notional expressed in millionths (1% = 10_000).
type FeeRate int64

const MaxFeeRate FeeRate = 1_000_000

func (r FeeRate) Valid() bool {
	return r >= 0 && r <= MaxFeeRate
}

func (r FeeRate) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(r))
}

// FeeRateFromPercent converts a percentage such as 0.5 into a FeeRate.
func FeeRateFromPercent(pct decimal.Decimal) FeeRate {
	return FeeRate(pct.Mul(decimal.NewFromInt(10_000)).IntPart())
}

type FeeRates struct {
	Maker FeeRate `json:"maker"`
	Taker FeeRate `json:"taker"`
}

func (f FeeRates) Valid() bool {
	return f.Maker.Valid() && f.Taker.Valid()
}

// MaxPercentage is the upper bound of a percentage order.
const MaxPercentage = 100
