package sequencer

import (
	"sequencer/domain/message"
	"sequencer/domain/orderbook"

	"github.com/shopspring/decimal"
)

// route is a swap through two markets sharing one bridge asset.
type route struct {
	first, second         *orderbook.Market
	firstType, secondType message.OrderType
	bridge                message.Asset
}

// newRoute works out the leg sides. A sell spends first's base and
// receives its quote as the bridge; a buy spends first's quote and
// receives its base. The second leg sells the bridge when it is the
// second market's base and buys with it when it is the quote.
func newRoute(first, second *orderbook.Market, t message.OrderType) (route, bool) {
	assets := map[message.Asset]struct{}{
		first.Base(): {}, first.Quote(): {}, second.Base(): {}, second.Quote(): {},
	}
	if len(assets) != 3 {
		return route{}, false
	}
	r := route{first: first, second: second, firstType: t}
	switch t {
	case message.MarketSell:
		r.bridge = first.Quote()
	case message.MarketBuy:
		r.bridge = first.Base()
	default:
		return route{}, false
	}
	switch r.bridge {
	case second.Base():
		r.secondType = message.MarketSell
	case second.Quote():
		r.secondType = message.MarketBuy
	default:
		return route{}, false
	}
	return r, true
}

// secondLegAmount converts a bridge amount into the second leg's base
// quantity. Buys on the second leg pay no taker fee.
func (r route) secondLegAmount(bridge decimal.Decimal) decimal.Decimal {
	if r.secondType == message.MarketSell {
		return bridge
	}
	return r.second.QuantityForMarketBuy(bridge)
}

// reverseFirstLeg trades bridge back into the asset the order spent.
func (r route) reverseFirstLeg(guid int64, bridge decimal.Decimal) message.Order {
	if r.firstType == message.MarketBuy {
		return message.Order{Guid: guid, Type: message.MarketSell, Amount: bridge}
	}
	return message.Order{Guid: guid, Type: message.MarketBuy, Amount: r.first.QuantityForMarketBuy(bridge)}
}

// applyBackToBackOrder swaps across two markets. The first leg runs at
// the regular fee rates; the second leg and any reversal on the first
// market run with a zero taker fee. Bridge asset left over after the
// second leg is sold back on the first market. If the second leg does
// not trade at all the first leg is reversed.
func (p *Processor) applyBackToBackOrder(resp *message.Response, b2b *message.BackToBackOrder) {
	s := p.state
	if len(b2b.MarketIDs) != 2 {
		resp.Error = message.ErrInvalidBackToBackOrder
		return
	}
	first, ok1 := s.Markets[b2b.MarketIDs[0]]
	second, ok2 := s.Markets[b2b.MarketIDs[1]]
	if !ok1 || !ok2 {
		resp.Error = message.ErrUnknownMarket
		return
	}
	r, ok := newRoute(first, second, b2b.Order.Type)
	if !ok {
		resp.Error = message.ErrInvalidBackToBackOrder
		return
	}

	rates := s.FeeRates
	zeroTaker := message.FeeRates{Maker: rates.Maker}
	guid := b2b.Order.Guid

	order := message.Order{Guid: guid, Type: r.firstType}
	pct := min(b2b.Order.Percentage, message.MaxPercentage)
	// short is set when the first market cannot take the whole amount
	short := false
	switch {
	case r.firstType == message.MarketSell && pct > 0:
		order.Amount = p.percentageSellAmount(first, b2b.Account, pct)
	case r.firstType == message.MarketSell:
		order.Amount = b2b.Order.Amount
	case pct > 0:
		order.Amount, order.MaxAvailable = p.percentageBuyAmount(first, b2b.Account, pct)
	default:
		var unspent decimal.Decimal
		order.Amount, unspent = first.FillableQuantityForMarketBuy(orderbook.NotionalExcludingFee(b2b.Order.Amount, rates.Taker))
		short = unspent.IsPositive()
	}
	if pct > 0 {
		order.Percentage = pct
	}
	start := order.Amount

	firstBatch := message.OrderBatch{Guid: b2b.Guid, MarketID: first.ID, Account: b2b.Account, Wallet: b2b.Wallet, OrdersToAdd: []message.Order{order}}
	if err := p.checkLimits(first, firstBatch); err != message.ErrNone {
		resp.Error = err
		return
	}

	if first.IsBelowMinFee(order, rates) || second.IsBelowMinFee(message.Order{Type: r.secondType, Amount: r.secondLegAmount(p.estimateBridge(r, start))}, rates) {
		resp.OrdersChanged = []message.OrderChanged{{Guid: guid, Disposition: message.Rejected}}
		return
	}

	changed := orderbook.NewLedger()
	touched := limitSet{}
	var counterparties []message.OrderChanged
	collect := func(res *orderbook.BatchResult) message.Disposition {
		d := message.Rejected
		for _, oc := range res.OrdersChanged {
			if oc.Guid == guid {
				d = oc.Disposition
				continue
			}
			counterparties = append(counterparties, oc)
		}
		resp.TradesCreated = append(resp.TradesCreated, res.TradesCreated...)
		return d
	}

	firstLeg := collect(p.execute(first, firstBatch, rates, changed, touched))
	if !firstLeg.Executed() {
		resp.OrdersChanged = append(counterparties, message.OrderChanged{Guid: guid, Disposition: firstLeg})
		resp.LimitsUpdated = s.limits(touched)
		return
	}

	bridge := changed.Get(b2b.Account, r.bridge)
	secondLeg := message.Rejected
	if amount := r.secondLegAmount(bridge); amount.IsPositive() {
		secondBatch := message.OrderBatch{Guid: b2b.Guid, MarketID: second.ID, Account: b2b.Account, Wallet: b2b.Wallet,
			OrdersToAdd: []message.Order{{Guid: guid, Type: r.secondType, Amount: amount}}}
		secondLeg = collect(p.execute(second, secondBatch, zeroTaker, changed, touched))
	}

	unloaded := false
	if leftover := changed.Get(b2b.Account, r.bridge); leftover.IsPositive() {
		reverse := r.reverseFirstLeg(guid, leftover)
		if reverse.Amount.IsPositive() {
			unload := message.OrderBatch{Guid: b2b.Guid, MarketID: first.ID, Account: b2b.Account, Wallet: b2b.Wallet, OrdersToAdd: []message.Order{reverse}}
			unloaded = collect(p.execute(first, unload, zeroTaker, changed, touched)).Executed()
		}
	}

	final := message.OrderChanged{Guid: guid, Disposition: message.PartiallyFilled}
	if firstLeg == message.Filled && secondLeg == message.Filled && !short && !unloaded {
		final.Disposition = message.Filled
	}
	if pct > 0 {
		final.NewQuantity = message.Quantity(start)
	}
	resp.OrdersChanged = append(counterparties, final)
	resp.OrdersChanged = append(resp.OrdersChanged, s.autoReduce(changed, touched)...)
	resp.BalancesChanged = nonZero(changed.Changes())
	resp.LimitsUpdated = s.limits(touched)
}

// estimateBridge is what the first leg would deliver if it ran now.
func (p *Processor) estimateBridge(r route, amount decimal.Decimal) decimal.Decimal {
	if r.firstType == message.MarketBuy {
		quantity, _ := r.first.QuantityAndNotionalForMarketBuy(amount)
		return quantity
	}
	_, notional := r.first.QuantityAndNotionalForMarketSell(amount)
	return notional.Sub(orderbook.NotionalFee(notional, p.state.FeeRates.Taker))
}
