package orderbook

import (
	"sequencer/domain/message"

	"github.com/shopspring/decimal"
)

// addOrderResult is the outcome of placing one order. Rested is the
// part left on the book as a maker order, reserved at ReserveRate.
type addOrderResult struct {
	Disposition message.Disposition
	Executions  []Execution
	Rested      decimal.Decimal
	ReserveRate message.FeeRate
}

func rejected() addOrderResult {
	return addOrderResult{Disposition: message.Rejected, Rested: decimal.Zero}
}

func (m *Market) addOrder(account message.AccountID, order message.Order, feeRates message.FeeRates) addOrderResult {
	if !order.Amount.IsPositive() {
		return rejected()
	}
	if _, exists := m.ordersByGuid[order.Guid]; exists {
		return rejected()
	}
	if m.IsBelowMinFee(order, feeRates) {
		return rejected()
	}
	switch order.Type {
	case message.LimitSell:
		if !m.validLevel(order.LevelIx) {
			return rejected()
		}
		if m.bestBidIx != NoLevel && order.LevelIx <= m.bestBidIx {
			return m.crossThenRest(account, order, message.Sell, feeRates)
		}
		return m.rest(account, order, message.Sell, order.Amount, feeRates)
	case message.LimitBuy:
		if !m.validLevel(order.LevelIx) {
			return rejected()
		}
		if m.bestOfferIx != NoLevel && order.LevelIx >= m.bestOfferIx {
			return m.crossThenRest(account, order, message.Buy, feeRates)
		}
		return m.rest(account, order, message.Buy, order.Amount, feeRates)
	case message.MarketBuy, message.MarketSell:
		return m.handleCrossingOrder(order, NoLevel)
	default:
		return rejected()
	}
}

func (m *Market) rest(account message.AccountID, order message.Order, side message.BookSide, amount decimal.Decimal, feeRates message.FeeRates) addOrderResult {
	disposition := m.createLimitOrder(order.LevelIx, side, account, order.Guid, amount, feeRates.Maker)
	res := addOrderResult{Disposition: disposition, Rested: decimal.Zero, ReserveRate: feeRates.Maker}
	if disposition == message.Accepted {
		res.Rested = amount
	}
	return res
}

// crossThenRest executes a marketable limit order up to its limit
// level and rests whatever is left there. A remainder that follows a
// partial fill pays the maker rate but is reserved at the taker rate.
func (m *Market) crossThenRest(account message.AccountID, order message.Order, side message.BookSide, feeRates message.FeeRates) addOrderResult {
	res := m.handleCrossingOrder(order, order.LevelIx)
	res.ReserveRate = feeRates.Maker
	if res.Disposition == message.PartiallyFilled {
		res.ReserveRate = feeRates.Taker
	}
	remaining := order.Amount.Sub(sumExecuted(res.Executions))
	if !remaining.IsPositive() {
		return res
	}
	disposition := m.createLimitOrder(order.LevelIx, side, account, order.Guid, remaining, feeRates.Maker)
	if disposition == message.Accepted {
		res.Rested = remaining
		m.ordersByGuid[order.Guid].ReserveRate = res.ReserveRate
	} else if res.Disposition == message.Accepted {
		res.Disposition = message.Rejected
	}
	return res
}

// handleCrossingOrder walks the opposite side from the best level,
// stopping at stopAtLevelIx when one is given.
func (m *Market) handleCrossingOrder(order message.Order, stopAtLevelIx int) addOrderResult {
	buy := order.Type.IsBuy()
	remaining := order.Amount
	var executions []Execution

	ix := m.bestBidIx
	if buy {
		ix = m.bestOfferIx
	}
	if ix != NoLevel {
		for ix != NoLevel {
			if stopAtLevelIx != NoLevel && ((buy && ix > stopAtLevelIx) || (!buy && ix < stopAtLevelIx)) {
				break
			}
			level := &m.levels[ix]
			var execs []Execution
			remaining, execs = level.fillOrder(remaining)
			for _, e := range execs {
				if e.CounterExhausted {
					m.unindex(e.counter, level.Side)
				}
			}
			executions = append(executions, execs...)
			if level.Empty() {
				m.releaseLevel(level)
			}
			if remaining.IsZero() {
				break
			}
			if buy {
				ix = m.nextSellLevel(ix)
			} else {
				ix = m.prevBuyLevel(ix)
			}
		}

		if buy {
			m.settleBestOffer(ix)
		} else {
			m.settleBestBid(ix)
		}
	}

	res := addOrderResult{Executions: executions, Rested: decimal.Zero}
	switch {
	case remaining.LessThan(order.Amount) && remaining.IsPositive():
		res.Disposition = message.PartiallyFilled
	case remaining.LessThan(order.Amount):
		res.Disposition = message.Filled
	case order.Type.IsLimit():
		res.Disposition = message.Accepted
	default:
		res.Disposition = message.Rejected
	}
	return res
}

// settleBestOffer points bestOfferIx at the first occupied sell level
// at or above ix, where ix is where the crossing walk stopped.
func (m *Market) settleBestOffer(ix int) {
	switch {
	case ix == NoLevel:
		m.bestOfferIx, m.maxOfferIx = NoLevel, NoLevel
	case !m.levels[ix].Empty():
		m.bestOfferIx = ix
	default:
		next := m.nextSellLevel(ix)
		if next == NoLevel {
			m.bestOfferIx, m.maxOfferIx = NoLevel, NoLevel
		} else {
			m.bestOfferIx = next
		}
	}
}

func (m *Market) settleBestBid(ix int) {
	switch {
	case ix == NoLevel:
		m.bestBidIx, m.minBidIx = NoLevel, NoLevel
	case !m.levels[ix].Empty():
		m.bestBidIx = ix
	default:
		prev := m.prevBuyLevel(ix)
		if prev == NoLevel {
			m.bestBidIx, m.minBidIx = NoLevel, NoLevel
		} else {
			m.bestBidIx = prev
		}
	}
}

// IsBelowMinFee reports whether the fee the order would pay at its
// reference level is under the market minimum. Orders against an
// empty side pass; they are rejected by matching instead.
func (m *Market) IsBelowMinFee(order message.Order, feeRates message.FeeRates) bool {
	var ix int
	var rate message.FeeRate
	switch order.Type {
	case message.MarketBuy:
		ix, rate = m.bestOfferIx, feeRates.Taker
	case message.MarketSell:
		ix, rate = m.bestBidIx, feeRates.Taker
	default:
		ix, rate = order.LevelIx, feeRates.Maker
	}
	if rate == 0 || ix == NoLevel {
		return false
	}
	n := Notional(order.Amount, m.Price(ix), m.BaseDecimals, m.QuoteDecimals)
	return NotionalFee(n, rate).LessThan(m.MinFee)
}

func sumExecuted(executions []Execution) decimal.Decimal {
	total := decimal.Zero
	for _, e := range executions {
		total = total.Add(e.Amount)
	}
	return total
}
