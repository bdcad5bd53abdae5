package message

// -------------------- Order types --------------------

type OrderType int8

const (
	LimitBuy OrderType = iota
	LimitSell
	MarketBuy
	MarketSell
)

func (t OrderType) String() string {
	switch t {
	case LimitBuy:
		return "LimitBuy"
	case LimitSell:
		return "LimitSell"
	case MarketBuy:
		return "MarketBuy"
	case MarketSell:
		return "MarketSell"
	default:
		return "Unknown"
	}
}

func (t OrderType) IsBuy() bool  { return t == LimitBuy || t == MarketBuy }
func (t OrderType) IsSell() bool { return t == LimitSell || t == MarketSell }
func (t OrderType) IsLimit() bool {
	return t == LimitBuy || t == LimitSell
}

// -------------------- Dispositions --------------------

type Disposition int8

const (
	Accepted Disposition = iota
	Filled
	PartiallyFilled
	Rejected
	Canceled
	AutoReduced
)

func (d Disposition) String() string {
	switch d {
	case Accepted:
		return "Accepted"
	case Filled:
		return "Filled"
	case PartiallyFilled:
		return "PartiallyFilled"
	case Rejected:
		return "Rejected"
	case Canceled:
		return "Canceled"
	case AutoReduced:
		return "AutoReduced"
	default:
		return "Unknown"
	}
}

// Executed reports whether at least part of the order traded.
func (d Disposition) Executed() bool {
	return d == Filled || d == PartiallyFilled
}

type RejectReason int8

const (
	ReasonNone RejectReason = iota
	ReasonDoesNotExist
	ReasonNotForAccount
)

func (r RejectReason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonDoesNotExist:
		return "DoesNotExist"
	case ReasonNotForAccount:
		return "NotForAccount"
	default:
		return "Unknown"
	}
}

// -------------------- Errors --------------------

// SequencerError is the closed set of request level outcomes.
type SequencerError int8

const (
	ErrNone SequencerError = iota
	ErrUnknownRequest
	ErrMarketExists
	ErrUnknownMarket
	ErrExceedsLimit
	ErrInvalidFeeRate
	ErrInvalidWithdrawalFee
	ErrInvalidMarketMinFee
	ErrInvalidBackToBackOrder
)

func (e SequencerError) String() string {
	switch e {
	case ErrNone:
		return "None"
	case ErrUnknownRequest:
		return "UnknownRequest"
	case ErrMarketExists:
		return "MarketExists"
	case ErrUnknownMarket:
		return "UnknownMarket"
	case ErrExceedsLimit:
		return "ExceedsLimit"
	case ErrInvalidFeeRate:
		return "InvalidFeeRate"
	case ErrInvalidWithdrawalFee:
		return "InvalidWithdrawalFee"
	case ErrInvalidMarketMinFee:
		return "InvalidMarketMinFee"
	case ErrInvalidBackToBackOrder:
		return "InvalidBackToBackOrder"
	default:
		return "Unknown"
	}
}

// -------------------- Requests --------------------

type RequestType int8

const (
	Unparseable RequestType = iota
	AddMarket
	ApplyOrderBatch
	ApplyBalanceBatch
	ApplyBackToBackOrder
	SetFeeRates
	SetWithdrawalFees
	SetMarketMinFees
	Reset
	GetState
	AuthorizeWallet
)

func (t RequestType) String() string {
	switch t {
	case Unparseable:
		return "Unparseable"
	case AddMarket:
		return "AddMarket"
	case ApplyOrderBatch:
		return "ApplyOrderBatch"
	case ApplyBalanceBatch:
		return "ApplyBalanceBatch"
	case ApplyBackToBackOrder:
		return "ApplyBackToBackOrder"
	case SetFeeRates:
		return "SetFeeRates"
	case SetWithdrawalFees:
		return "SetWithdrawalFees"
	case SetMarketMinFees:
		return "SetMarketMinFees"
	case Reset:
		return "Reset"
	case GetState:
		return "GetState"
	case AuthorizeWallet:
		return "AuthorizeWallet"
	default:
		return "Unknown"
	}
}
