package message

import "github.com/shopspring/decimal"

// Response is one entry of the output log. Sequence equals the input
// log sequence of the request it answers.
type Response struct {
	Guid           string         `json:"guid"`
	Sequence       uint64         `json:"sequence"`
	Error          SequencerError `json:"error"`
	CreatedAt      int64          `json:"createdAt"`
	ProcessingTime int64          `json:"processingTime"`

	OrdersChanged        []OrderChanged        `json:"ordersChanged,omitempty"`
	OrdersChangeRejected []OrderChangeRejected `json:"ordersChangeRejected,omitempty"`
	TradesCreated        []TradeCreated        `json:"tradesCreated,omitempty"`
	BalancesChanged      []BalanceChange       `json:"balancesChanged,omitempty"`
	LimitsUpdated        []LimitsUpdate        `json:"limitsUpdated,omitempty"`
	WithdrawalsCreated   []WithdrawalCreated   `json:"withdrawalsCreated,omitempty"`
	MarketsCreated       []Market              `json:"marketsCreated,omitempty"`
	FeeRatesSet          *FeeRates             `json:"feeRatesSet,omitempty"`
	WithdrawalFeesSet    []WithdrawalFee       `json:"withdrawalFeesSet,omitempty"`
	MarketMinFeesSet     []MarketMinFee        `json:"marketMinFeesSet,omitempty"`
	BidOfferState        *BidOfferState        `json:"bidOfferState,omitempty"`
	StateDump            *StateDump            `json:"stateDump,omitempty"`
}

type OrderChanged struct {
	Guid        int64            `json:"guid"`
	Disposition Disposition      `json:"disposition"`
	NewQuantity *decimal.Decimal `json:"newQuantity,omitempty"`
}

type OrderChangeRejected struct {
	Guid   int64        `json:"guid"`
	Reason RejectReason `json:"reason"`
}

type TradeCreated struct {
	BuyOrderGuid  int64           `json:"buyOrderGuid"`
	SellOrderGuid int64           `json:"sellOrderGuid"`
	Amount        decimal.Decimal `json:"amount"`
	LevelIx       int             `json:"levelIx"`
	BuyerFee      decimal.Decimal `json:"buyerFee"`
	SellerFee     decimal.Decimal `json:"sellerFee"`
	MarketID      MarketID        `json:"marketId"`
}

type BalanceChange struct {
	Account AccountID       `json:"account"`
	Asset   Asset           `json:"asset"`
	Delta   decimal.Decimal `json:"delta"`
}

type LimitsUpdate struct {
	Account  AccountID       `json:"account"`
	MarketID MarketID        `json:"marketId"`
	Base     decimal.Decimal `json:"base"`
	Quote    decimal.Decimal `json:"quote"`
}

type WithdrawalCreated struct {
	ExternalGuid string          `json:"externalGuid"`
	Fee          decimal.Decimal `json:"fee"`
}

type BidOfferState struct {
	MarketID    MarketID `json:"marketId"`
	MinBidIx    int      `json:"minBidIx"`
	BestBidIx   int      `json:"bestBidIx"`
	BestOfferIx int      `json:"bestOfferIx"`
	MaxOfferIx  int      `json:"maxOfferIx"`
}

// Quantity returns a pointer suitable for OrderChanged.NewQuantity.
func Quantity(d decimal.Decimal) *decimal.Decimal {
	return &d
}
