package orderbook

import (
	"sequencer/domain/message"

	"github.com/shopspring/decimal"
)

// ClearingNotionalForMarketBuy sizes a buy of amount against the
// offers up to stopAtLevelIx (NoLevel for no limit). It returns the
// quantity available and its notional at the average clearing price.
func (m *Market) ClearingNotionalForMarketBuy(amount decimal.Decimal, stopAtLevelIx int) (decimal.Decimal, decimal.Decimal) {
	remaining := amount
	priceUnits := decimal.Zero
	m.eachSellLevel(func(l *Level) bool {
		if stopAtLevelIx != NoLevel && l.Ix > stopAtLevelIx {
			return false
		}
		q := decimal.Min(l.TotalQuantity, remaining)
		priceUnits = priceUnits.Add(q.Mul(l.Price))
		remaining = remaining.Sub(q)
		return remaining.IsPositive()
	})
	available := amount.Sub(remaining)
	notional := priceUnits.Shift(int32(m.QuoteDecimals - m.BaseDecimals)).Truncate(0)
	return available, notional
}

// QuantityAndNotionalForMarketBuy returns how much of amount the
// offers can fill and the notional paid for it, level by level.
func (m *Market) QuantityAndNotionalForMarketBuy(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	remaining := amount
	notional := decimal.Zero
	m.eachSellLevel(func(l *Level) bool {
		q := decimal.Min(l.TotalQuantity, remaining)
		notional = notional.Add(Notional(q, l.Price, m.BaseDecimals, m.QuoteDecimals))
		remaining = remaining.Sub(q)
		return remaining.IsPositive()
	})
	return amount.Sub(remaining), notional
}

// QuantityForMarketBuy is the base quantity a notional buys walking
// up from the best offer.
func (m *Market) QuantityForMarketBuy(notional decimal.Decimal) decimal.Decimal {
	quantity, _ := m.FillableQuantityForMarketBuy(notional)
	return quantity
}

// FillableQuantityForMarketBuy is QuantityForMarketBuy that also
// reports the part of notional the offers could not absorb.
func (m *Market) FillableQuantityForMarketBuy(notional decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	remaining := notional
	quantity := decimal.Zero
	m.eachSellLevel(func(l *Level) bool {
		levelNotional := Notional(l.TotalQuantity, l.Price, m.BaseDecimals, m.QuoteDecimals)
		if remaining.LessThanOrEqual(levelNotional) {
			quantity = quantity.Add(QuantityFromNotionalAndPrice(remaining, l.Price, m.BaseDecimals, m.QuoteDecimals))
			remaining = decimal.Zero
			return false
		}
		quantity = quantity.Add(l.TotalQuantity)
		remaining = remaining.Sub(levelNotional)
		return true
	})
	return quantity, remaining
}

// ClearingQuantityForMarketSell returns how much of amount the bids
// down to stopAtLevelIx can absorb.
func (m *Market) ClearingQuantityForMarketSell(amount decimal.Decimal, stopAtLevelIx int) decimal.Decimal {
	remaining := amount
	m.eachBuyLevel(func(l *Level) bool {
		if stopAtLevelIx != NoLevel && l.Ix < stopAtLevelIx {
			return false
		}
		remaining = remaining.Sub(decimal.Min(l.TotalQuantity, remaining))
		return remaining.IsPositive()
	})
	return amount.Sub(remaining)
}

func (m *Market) QuantityAndNotionalForMarketSell(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	remaining := amount
	notional := decimal.Zero
	m.eachBuyLevel(func(l *Level) bool {
		q := decimal.Min(l.TotalQuantity, remaining)
		notional = notional.Add(Notional(q, l.Price, m.BaseDecimals, m.QuoteDecimals))
		remaining = remaining.Sub(q)
		return remaining.IsPositive()
	})
	return amount.Sub(remaining), notional
}

func (m *Market) QuantityForMarketSell(notional decimal.Decimal) decimal.Decimal {
	remaining := notional
	quantity := decimal.Zero
	m.eachBuyLevel(func(l *Level) bool {
		levelNotional := Notional(l.TotalQuantity, l.Price, m.BaseDecimals, m.QuoteDecimals)
		if remaining.LessThanOrEqual(levelNotional) {
			quantity = quantity.Add(QuantityFromNotionalAndPrice(remaining, l.Price, m.BaseDecimals, m.QuoteDecimals))
			remaining = decimal.Zero
			return false
		}
		quantity = quantity.Add(l.TotalQuantity)
		remaining = remaining.Sub(levelNotional)
		return true
	})
	return quantity
}

// CalculateAmountForPercentageSell sizes a percentage market sell from
// the unreserved base balance and the bids that can absorb it.
func (m *Market) CalculateAmountForPercentageSell(account message.AccountID, balance decimal.Decimal, pct int) decimal.Decimal {
	limit := maxZero(balance.Sub(m.BaseAssetsRequired(account)))
	return percentOf(m.ClearingQuantityForMarketSell(limit, NoLevel), pct)
}

// CalculateAmountForPercentageBuy sizes a percentage market buy from
// the unreserved quote balance net of the taker fee. The second value
// is the balance to sweep dust against, set only for a 100% buy by an
// account with nothing else reserved in this market.
func (m *Market) CalculateAmountForPercentageBuy(account message.AccountID, balance decimal.Decimal, pct int, taker message.FeeRate) (decimal.Decimal, *decimal.Decimal) {
	required := m.QuoteAssetsRequired(account)
	limit := percentOf(maxZero(balance.Sub(required)), pct)
	quantity := m.QuantityForMarketBuy(NotionalExcludingFee(limit, taker))
	if required.IsZero() && pct == message.MaxPercentage {
		return quantity, message.Quantity(balance)
	}
	return quantity, nil
}
