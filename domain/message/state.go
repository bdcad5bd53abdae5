package message

import "github.com/shopspring/decimal"

// StateDump is the full serialized sequencer state. It is both the
// checkpoint payload and the sandbox GetState response.
type StateDump struct {
	Balances       []BalanceEntry  `json:"balances"`
	Consumed       []ConsumedEntry `json:"consumed"`
	Markets        []MarketDump    `json:"markets"`
	FeeRates       FeeRates        `json:"feeRates"`
	WithdrawalFees []WithdrawalFee `json:"withdrawalFees"`
}

type BalanceEntry struct {
	Account AccountID       `json:"account"`
	Asset   Asset           `json:"asset"`
	Amount  decimal.Decimal `json:"amount"`
}

type ConsumedEntry struct {
	Account  AccountID       `json:"account"`
	Asset    Asset           `json:"asset"`
	MarketID MarketID        `json:"marketId"`
	Amount   decimal.Decimal `json:"amount"`
}

type BookSide int8

const (
	Buy BookSide = iota
	Sell
)

func (s BookSide) String() string {
	if s == Buy {
		return "Buy"
	}
	return "Sell"
}

type MarketDump struct {
	Market      Market      `json:"market"`
	MinBidIx    int         `json:"minBidIx"`
	BestBidIx   int         `json:"bestBidIx"`
	BestOfferIx int         `json:"bestOfferIx"`
	MaxOfferIx  int         `json:"maxOfferIx"`
	Levels      []LevelDump `json:"levels"`
}

// LevelDump keeps the ring buffer positions so a restored level is
// slot-for-slot identical to the one that was saved.
type LevelDump struct {
	LevelIx       int              `json:"levelIx"`
	Side          BookSide         `json:"side"`
	Head          int              `json:"head"`
	Tail          int              `json:"tail"`
	TotalQuantity decimal.Decimal  `json:"totalQuantity"`
	Orders        []LevelOrderDump `json:"orders"`
}

type LevelOrderDump struct {
	Guid             int64           `json:"guid"`
	Account          AccountID       `json:"account"`
	Quantity         decimal.Decimal `json:"quantity"`
	OriginalQuantity decimal.Decimal `json:"originalQuantity"`
	FeeRate          FeeRate         `json:"feeRate"`
	ReserveRate      FeeRate         `json:"reserveRate"`
}
