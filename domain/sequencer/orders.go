package sequencer

import (
	"slices"

	"sequencer/domain/message"
	"sequencer/domain/orderbook"

	"github.com/shopspring/decimal"
)

func (p *Processor) applyOrderBatch(resp *message.Response, batch *message.OrderBatch) {
	m, ok := p.state.Markets[batch.MarketID]
	if !ok {
		resp.Error = message.ErrUnknownMarket
		return
	}
	defer func() {
		bos := m.BidOfferState()
		resp.BidOfferState = &bos
	}()

	adjusted := p.sizePercentageOrders(m, *batch)
	if err := p.checkLimits(m, adjusted); err != message.ErrNone {
		resp.Error = err
		return
	}

	changed := orderbook.NewLedger()
	touched := limitSet{}
	res := p.execute(m, adjusted, p.state.FeeRates, changed, touched)

	resp.OrdersChanged = res.OrdersChanged
	resp.OrdersChangeRejected = res.OrdersChangeRejected
	resp.TradesCreated = res.TradesCreated
	resp.OrdersChanged = append(resp.OrdersChanged, p.state.autoReduce(changed, touched)...)
	resp.BalancesChanged = nonZero(changed.Changes())
	resp.LimitsUpdated = p.state.limits(touched)
}

// execute runs a batch on m and folds its deltas into the state.
func (p *Processor) execute(m *orderbook.Market, batch message.OrderBatch, rates message.FeeRates, changed *orderbook.Ledger, touched limitSet) *orderbook.BatchResult {
	res := m.ApplyOrderBatch(batch, rates)
	p.state.applyTradeDeltas(m.ID, res, changed, touched)
	return res
}

// sizePercentageOrders replaces the amount of percentage market orders
// with one computed from the account's current free balance. The
// percentage is dropped from any other order type.
func (p *Processor) sizePercentageOrders(m *orderbook.Market, batch message.OrderBatch) message.OrderBatch {
	if !slices.ContainsFunc(batch.OrdersToAdd, message.Order.HasPercentage) {
		return batch
	}
	orders := slices.Clone(batch.OrdersToAdd)
	for i := range orders {
		o := &orders[i]
		if !o.HasPercentage() {
			continue
		}
		switch o.Type {
		case message.MarketSell:
			o.Percentage = min(o.Percentage, message.MaxPercentage)
			o.Amount = p.percentageSellAmount(m, batch.Account, o.Percentage)
		case message.MarketBuy:
			o.Percentage = min(o.Percentage, message.MaxPercentage)
			o.Amount, o.MaxAvailable = p.percentageBuyAmount(m, batch.Account, o.Percentage)
		default:
			o.Percentage = 0
		}
	}
	batch.OrdersToAdd = orders
	return batch
}

func (p *Processor) percentageSellAmount(m *orderbook.Market, account message.AccountID, pct int) decimal.Decimal {
	return m.CalculateAmountForPercentageSell(account, p.state.Balance(account, m.Base()), pct)
}

func (p *Processor) percentageBuyAmount(m *orderbook.Market, account message.AccountID, pct int) (decimal.Decimal, *decimal.Decimal) {
	return m.CalculateAmountForPercentageBuy(account, p.state.Balance(account, m.Quote()), pct, p.state.FeeRates.Taker)
}

// checkLimits rejects a batch whose adds, net of its cancels and
// changes, need more than the account holds beyond what its resting
// orders in this market already reserve. Nothing is mutated.
func (p *Processor) checkLimits(m *orderbook.Market, batch message.OrderBatch) message.SequencerError {
	rates := p.state.FeeRates
	var (
		baseRequired, quoteRequired decimal.Decimal
		checkBase, checkQuote       bool
	)

	for _, o := range batch.OrdersToAdd {
		switch o.Type {
		case message.LimitSell, message.MarketSell:
			baseRequired = baseRequired.Add(o.Amount)
			checkBase = true
		case message.LimitBuy:
			quoteRequired = quoteRequired.Add(p.limitBuyRequirement(m, o, rates))
			checkQuote = true
		case message.MarketBuy:
			quoteRequired = quoteRequired.Add(p.marketBuyRequirement(m, batch.Account, o, rates))
			checkQuote = true
		}
	}

	for _, c := range batch.OrdersToChange {
		o, ok := m.Order(c.Guid)
		if !ok || o.Account != batch.Account || !c.Amount.IsPositive() {
			continue
		}
		base, quote := m.AssetsReservedForOrder(o)
		switch {
		case o.Level().Side == message.Sell:
			baseRequired = baseRequired.Add(c.Amount.Sub(base))
			checkBase = true
		case c.LevelIx == o.Level().Ix:
			after := orderbook.NotionalPlusFee(c.Amount, m.Price(c.LevelIx), m.BaseDecimals, m.QuoteDecimals, o.ReserveRate)
			quoteRequired = quoteRequired.Add(after.Sub(quote))
			checkQuote = true
		default:
			moved := message.Order{Guid: c.Guid, Type: message.LimitBuy, Amount: c.Amount, LevelIx: c.LevelIx}
			quoteRequired = quoteRequired.Add(p.limitBuyRequirement(m, moved, rates).Sub(quote))
			checkQuote = true
		}
	}

	for _, c := range batch.OrdersToCancel {
		o, ok := m.Order(c.Guid)
		if !ok || o.Account != batch.Account {
			continue
		}
		base, quote := m.AssetsReservedForOrder(o)
		baseRequired = baseRequired.Sub(base)
		quoteRequired = quoteRequired.Sub(quote)
	}

	account := batch.Account
	if checkBase && baseRequired.Add(m.BaseAssetsRequired(account)).GreaterThan(p.state.Balance(account, m.Base())) {
		return message.ErrExceedsLimit
	}
	if checkQuote && quoteRequired.Add(m.QuoteAssetsRequired(account)).GreaterThan(p.state.Balance(account, m.Quote())) {
		return message.ErrExceedsLimit
	}
	return message.ErrNone
}

// limitBuyRequirement is the quote a limit buy can consume: the part
// that crosses pays the taker fee on its clearing notional, the rest
// is reserved at the order's price. A remainder left after a partial
// fill is reserved at the taker rate, an untouched order at the maker
// rate.
func (p *Processor) limitBuyRequirement(m *orderbook.Market, o message.Order, rates message.FeeRates) decimal.Decimal {
	price := m.Price(o.LevelIx)
	bestOffer := m.BidOfferState().BestOfferIx
	if bestOffer == orderbook.NoLevel || o.LevelIx < bestOffer {
		return orderbook.NotionalPlusFee(o.Amount, price, m.BaseDecimals, m.QuoteDecimals, rates.Maker)
	}
	crossing, notional := m.ClearingNotionalForMarketBuy(o.Amount, o.LevelIx)
	crossingCost := notional.Add(orderbook.NotionalFee(notional, rates.Taker))
	reserveRate := rates.Maker
	if crossing.IsPositive() {
		reserveRate = rates.Taker
	}
	resting := orderbook.NotionalPlusFee(o.Amount.Sub(crossing), price, m.BaseDecimals, m.QuoteDecimals, reserveRate)
	return crossingCost.Add(resting)
}

// marketBuyRequirement is the clearing notional of a market buy plus
// its taker fee. A percentage buy was already sized to fit the free
// balance, and pricing it at one averaged clearing price can round a
// unit above that, so it is capped there.
func (p *Processor) marketBuyRequirement(m *orderbook.Market, account message.AccountID, o message.Order, rates message.FeeRates) decimal.Decimal {
	_, notional := m.ClearingNotionalForMarketBuy(o.Amount, orderbook.NoLevel)
	required := notional.Add(orderbook.NotionalFee(notional, rates.Taker))
	if o.HasPercentage() {
		free := p.state.Balance(account, m.Quote()).Sub(m.QuoteAssetsRequired(account))
		required = decimal.Min(required, decimal.Max(decimal.Zero, free))
	}
	return required
}
