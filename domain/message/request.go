package message

import "github.com/shopspring/decimal"

// Request is one entry of the input log. Exactly one payload field
// matching Type is set.
type Request struct {
	Type RequestType `json:"type"`
	Guid string      `json:"guid"`

	AddMarket       *Market              `json:"addMarket,omitempty"`
	OrderBatch      *OrderBatch          `json:"orderBatch,omitempty"`
	BalanceBatch    *BalanceBatch        `json:"balanceBatch,omitempty"`
	BackToBackOrder *BackToBackOrder     `json:"backToBackOrder,omitempty"`
	FeeRates        *FeeRates            `json:"feeRates,omitempty"`
	WithdrawalFees  []WithdrawalFee      `json:"withdrawalFees,omitempty"`
	MarketMinFees   []MarketMinFee       `json:"marketMinFees,omitempty"`
	Authorization   *WalletAuthorization `json:"authorization,omitempty"`
}

type Market struct {
	ID                MarketID        `json:"id"`
	TickSize          decimal.Decimal `json:"tickSize"`
	MaxOrdersPerLevel int             `json:"maxOrdersPerLevel"`
	MaxLevels         int             `json:"maxLevels,omitempty"`
	BaseDecimals      int             `json:"baseDecimals"`
	QuoteDecimals     int             `json:"quoteDecimals"`
	MinFee            decimal.Decimal `json:"minFee"`
}

type Order struct {
	Guid    int64           `json:"guid"`
	Type    OrderType       `json:"type"`
	Amount  decimal.Decimal `json:"amount"`
	LevelIx int             `json:"levelIx"`
	// Percentage in (0, 100] sizes a market order from the available balance.
	Percentage   int              `json:"percentage,omitempty"`
	MaxAvailable *decimal.Decimal `json:"maxAvailable,omitempty"`
}

func (o Order) HasPercentage() bool {
	return o.Percentage > 0
}

type CancelOrder struct {
	Guid int64 `json:"guid"`
}

type OrderBatch struct {
	Guid           string        `json:"guid"`
	MarketID       MarketID      `json:"marketId"`
	Account        AccountID     `json:"account"`
	Wallet         string        `json:"wallet"`
	OrdersToAdd    []Order       `json:"ordersToAdd,omitempty"`
	OrdersToChange []Order       `json:"ordersToChange,omitempty"`
	OrdersToCancel []CancelOrder `json:"ordersToCancel,omitempty"`
}

type Deposit struct {
	Account AccountID       `json:"account"`
	Asset   Asset           `json:"asset"`
	Amount  decimal.Decimal `json:"amount"`
}

// Withdrawal with a zero Amount withdraws the whole balance.
type Withdrawal struct {
	Account      AccountID       `json:"account"`
	Asset        Asset           `json:"asset"`
	Amount       decimal.Decimal `json:"amount"`
	ExternalGuid string          `json:"externalGuid"`
}

type FailedWithdrawal struct {
	Account AccountID       `json:"account"`
	Asset   Asset           `json:"asset"`
	Amount  decimal.Decimal `json:"amount"`
}

type FailedSettlement struct {
	BuyAccount  AccountID    `json:"buyAccount"`
	SellAccount AccountID    `json:"sellAccount"`
	MarketID    MarketID     `json:"marketId"`
	Trade       TradeCreated `json:"trade"`
}

type BalanceBatch struct {
	Guid              string             `json:"guid"`
	Deposits          []Deposit          `json:"deposits,omitempty"`
	Withdrawals       []Withdrawal       `json:"withdrawals,omitempty"`
	FailedWithdrawals []FailedWithdrawal `json:"failedWithdrawals,omitempty"`
	FailedSettlements []FailedSettlement `json:"failedSettlements,omitempty"`
}

type BackToBackOrder struct {
	Guid      string     `json:"guid"`
	Account   AccountID  `json:"account"`
	Wallet    string     `json:"wallet"`
	MarketIDs []MarketID `json:"marketIds"`
	Order     Order      `json:"order"`
}

type WithdrawalFee struct {
	Asset Asset           `json:"asset"`
	Value decimal.Decimal `json:"value"`
}

type MarketMinFee struct {
	MarketID MarketID        `json:"marketId"`
	MinFee   decimal.Decimal `json:"minFee"`
}

type WalletAuthorization struct {
	Account   AccountID `json:"account"`
	Wallet    string    `json:"wallet"`
	Signature string    `json:"signature,omitempty"`
}
