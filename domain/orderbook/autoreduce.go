package orderbook

import (
	"sort"

	"sequencer/domain/message"

	"github.com/shopspring/decimal"
)

// AutoReduce shrinks an account's resting orders so their reservation
// of asset fits within limit. Sells are kept from the lowest level up,
// buys from the highest level down; the first order that no longer
// fits is cut to what remains and every later one to zero. Orders
// cut to zero leave the book.
func (m *Market) AutoReduce(account message.AccountID, asset message.Asset, limit decimal.Decimal) []message.OrderChanged {
	switch asset {
	case m.Base():
		return m.autoReduceSells(account, limit)
	case m.Quote():
		return m.autoReduceBuys(account, limit)
	}
	return nil
}

func (m *Market) autoReduceSells(account message.AccountID, limit decimal.Decimal) []message.OrderChanged {
	orders := append([]*LevelOrder(nil), m.sellOrdersByAccount[account]...)
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].level.Ix < orders[j].level.Ix })

	var changed []message.OrderChanged
	total := decimal.Zero
	for _, o := range orders {
		if o.Quantity.LessThanOrEqual(limit.Sub(total)) {
			total = total.Add(o.Quantity)
			continue
		}
		newQuantity := maxZero(limit.Sub(total))
		total = total.Add(newQuantity)
		changed = append(changed, m.reduceTo(o, newQuantity))
	}
	return changed
}

func (m *Market) autoReduceBuys(account message.AccountID, limit decimal.Decimal) []message.OrderChanged {
	orders := append([]*LevelOrder(nil), m.buyOrdersByAccount[account]...)
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].level.Ix > orders[j].level.Ix })

	var changed []message.OrderChanged
	total := decimal.Zero
	for _, o := range orders {
		price := o.level.Price
		required := NotionalPlusFee(o.Quantity, price, m.BaseDecimals, m.QuoteDecimals, o.ReserveRate)
		if total.Add(required).LessThanOrEqual(limit) {
			total = total.Add(required)
			continue
		}
		remaining := maxZero(limit.Sub(total))
		fee := quo(remaining.Mul(o.ReserveRate.Decimal()), feeRateScale.Add(o.ReserveRate.Decimal()))
		notional := remaining.Sub(fee)
		newQuantity := decimal.Min(o.Quantity, QuantityFromNotionalAndPrice(notional, price, m.BaseDecimals, m.QuoteDecimals))
		total = total.Add(remaining)
		changed = append(changed, m.reduceTo(o, newQuantity))
	}
	return changed
}

func (m *Market) reduceTo(o *LevelOrder, quantity decimal.Decimal) message.OrderChanged {
	oc := message.OrderChanged{Guid: o.Guid, Disposition: message.AutoReduced, NewQuantity: message.Quantity(quantity)}
	if quantity.IsZero() {
		m.removeOrder(o.Guid)
		return oc
	}
	o.level.TotalQuantity = o.level.TotalQuantity.Sub(o.Quantity.Sub(quantity))
	o.Quantity = quantity
	return oc
}
