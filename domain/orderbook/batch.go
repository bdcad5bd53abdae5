package orderbook

import (
	"sequencer/domain/message"

	"github.com/shopspring/decimal"
)

// BatchResult is everything one order batch did to a market. Balance
// and consumption deltas are not yet applied to any account state.
type BatchResult struct {
	OrdersChanged        []message.OrderChanged
	OrdersChangeRejected []message.OrderChangeRejected
	TradesCreated        []message.TradeCreated
	BalanceChanges       *Ledger
	ConsumptionChanges   *Ledger
}

func newBatchResult() *BatchResult {
	return &BatchResult{BalanceChanges: NewLedger(), ConsumptionChanges: NewLedger()}
}

// ApplyOrderBatch runs cancels, then changes, then adds, in request order.
func (m *Market) ApplyOrderBatch(batch message.OrderBatch, feeRates message.FeeRates) *BatchResult {
	res := newBatchResult()

	for _, c := range batch.OrdersToCancel {
		if reason := m.validateOrderForAccount(batch.Account, c.Guid); reason != message.ReasonNone {
			res.OrdersChangeRejected = append(res.OrdersChangeRejected, message.OrderChangeRejected{Guid: c.Guid, Reason: reason})
			continue
		}
		removed, ok := m.removeOrder(c.Guid)
		if !ok {
			continue
		}
		res.OrdersChanged = append(res.OrdersChanged, message.OrderChanged{Guid: c.Guid, Disposition: message.Canceled})
		m.release(res, removed)
	}

	for _, change := range batch.OrdersToChange {
		if reason := m.validateOrderForAccount(batch.Account, change.Guid); reason != message.ReasonNone {
			res.OrdersChangeRejected = append(res.OrdersChangeRejected, message.OrderChangeRejected{Guid: change.Guid, Reason: reason})
			continue
		}
		m.changeOrder(res, batch.Account, change, feeRates)
	}

	for _, order := range batch.OrdersToAdd {
		added := m.addOrder(batch.Account, order, feeRates)
		oc := message.OrderChanged{Guid: order.Guid, Disposition: added.Disposition}
		if order.HasPercentage() {
			oc.NewQuantity = message.Quantity(order.Amount)
		}
		res.OrdersChanged = append(res.OrdersChanged, oc)
		m.reserve(res, batch.Account, order.Type, order.LevelIx, added)
		m.processExecutions(res, batch.Account, order, added.Executions, feeRates)
	}
	return res
}

func (m *Market) release(res *BatchResult, removed removedOrder) {
	res.ConsumptionChanges.Add(removed.Account, m.Base(), removed.Base.Neg())
	res.ConsumptionChanges.Add(removed.Account, m.Quote(), removed.Quote.Neg())
}

// reserve records consumption for the resting part of a limit order.
func (m *Market) reserve(res *BatchResult, account message.AccountID, t message.OrderType, levelIx int, added addOrderResult) {
	rested := added.Rested
	if !rested.IsPositive() {
		return
	}
	switch t {
	case message.LimitBuy:
		res.ConsumptionChanges.Add(account, m.Quote(), NotionalPlusFee(rested, m.Price(levelIx), m.BaseDecimals, m.QuoteDecimals, added.ReserveRate))
	case message.LimitSell:
		res.ConsumptionChanges.Add(account, m.Base(), rested)
	}
}

func (m *Market) processExecutions(res *BatchResult, account message.AccountID, taker message.Order, executions []Execution, feeRates message.FeeRates) {
	for i, e := range executions {
		var remainingAvailable *decimal.Decimal
		if taker.MaxAvailable != nil && i == len(executions)-1 {
			r := taker.MaxAvailable.Add(res.BalanceChanges.Get(account, m.Quote()))
			remainingAvailable = &r
		}
		m.processExecution(res, account, taker, e, feeRates, remainingAvailable)
	}
}

func (m *Market) processExecution(res *BatchResult, account message.AccountID, taker message.Order, e Execution, feeRates message.FeeRates, remainingAvailable *decimal.Decimal) {
	notional := Notional(e.Amount, e.Price, m.BaseDecimals, m.QuoteDecimals)
	base, quote := m.Base(), m.Quote()

	var (
		buyGuid, sellGuid int64
		buyer, seller     message.AccountID
		buyerFee          decimal.Decimal
		sellerFee         decimal.Decimal
	)
	if taker.Type.IsBuy() {
		buyGuid, buyer = taker.Guid, account
		buyerFee = NotionalFee(notional, feeRates.Taker)
		// sweep rounding dust left by a 100% market buy into the last fee
		if remainingAvailable != nil && taker.Type == message.MarketBuy && taker.Percentage == message.MaxPercentage {
			dust := remainingAvailable.Sub(notional.Add(buyerFee))
			if dust.LessThanOrEqual(buyerFee) {
				buyerFee = maxZero(buyerFee.Add(dust))
			}
		}
		sellGuid, seller = e.CounterGuid, e.CounterAccount
		sellerFee = NotionalFee(notional, e.CounterFeeRate)
		res.ConsumptionChanges.Add(seller, base, e.Amount.Neg())
	} else {
		buyGuid, buyer = e.CounterGuid, e.CounterAccount
		buyerFee = NotionalFee(notional, e.CounterFeeRate)
		sellGuid, seller = taker.Guid, account
		sellerFee = NotionalFee(notional, feeRates.Taker)
		res.ConsumptionChanges.Add(buyer, quote, notional.Add(NotionalFee(notional, e.CounterReserve)).Neg())
	}

	res.TradesCreated = append(res.TradesCreated, message.TradeCreated{
		BuyOrderGuid:  buyGuid,
		SellOrderGuid: sellGuid,
		Amount:        e.Amount,
		LevelIx:       e.LevelIx,
		BuyerFee:      buyerFee,
		SellerFee:     sellerFee,
		MarketID:      m.ID,
	})

	counter := message.OrderChanged{Guid: e.CounterGuid, Disposition: message.Filled}
	if !e.CounterExhausted {
		counter.Disposition = message.PartiallyFilled
		counter.NewQuantity = message.Quantity(e.CounterRemaining)
	}
	res.OrdersChanged = append(res.OrdersChanged, counter)

	res.BalanceChanges.Add(buyer, quote, notional.Add(buyerFee).Neg())
	res.BalanceChanges.Add(seller, base, e.Amount.Neg())
	res.BalanceChanges.Add(buyer, base, e.Amount)
	res.BalanceChanges.Add(seller, quote, notional.Sub(sellerFee))
}

// changeOrder resizes an order in place when the level is unchanged;
// otherwise the order is pulled and re-entered as a new limit order,
// which may cross. A move the new level cannot accept leaves the order
// where it was.
func (m *Market) changeOrder(res *BatchResult, account message.AccountID, change message.Order, feeRates message.FeeRates) {
	o := m.ordersByGuid[change.Guid]
	if !change.Amount.IsPositive() {
		res.OrdersChanged = append(res.OrdersChanged, message.OrderChanged{Guid: change.Guid, Disposition: message.Rejected})
		return
	}
	level := o.level
	side := level.Side

	if change.LevelIx == level.Ix {
		if side == message.Sell {
			res.ConsumptionChanges.Add(account, m.Base(), change.Amount.Sub(o.Quantity))
		} else {
			before := NotionalPlusFee(o.Quantity, level.Price, m.BaseDecimals, m.QuoteDecimals, o.ReserveRate)
			after := NotionalPlusFee(change.Amount, level.Price, m.BaseDecimals, m.QuoteDecimals, o.ReserveRate)
			res.ConsumptionChanges.Add(account, m.Quote(), after.Sub(before))
		}
		level.TotalQuantity = level.TotalQuantity.Add(change.Amount.Sub(o.Quantity))
		o.Quantity = change.Amount
		res.OrdersChanged = append(res.OrdersChanged, message.OrderChanged{Guid: change.Guid, Disposition: message.Accepted})
		return
	}

	replacement := message.Order{
		Guid:    change.Guid,
		Type:    message.LimitBuy,
		Amount:  change.Amount,
		LevelIx: change.LevelIx,
	}
	if side == message.Sell {
		replacement.Type = message.LimitSell
	}
	if !m.validLevel(replacement.LevelIx) || m.IsBelowMinFee(replacement, feeRates) {
		res.OrdersChanged = append(res.OrdersChanged, message.OrderChanged{Guid: change.Guid, Disposition: message.Rejected})
		return
	}

	removed, _ := m.removeOrder(change.Guid)
	m.release(res, removed)

	added := m.addOrder(account, replacement, feeRates)
	res.OrdersChanged = append(res.OrdersChanged, message.OrderChanged{Guid: change.Guid, Disposition: added.Disposition})
	m.reserve(res, account, replacement.Type, replacement.LevelIx, added)
	m.processExecutions(res, account, replacement, added.Executions, feeRates)
}
