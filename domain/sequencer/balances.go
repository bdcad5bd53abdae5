package sequencer

import (
	"cmp"
	"maps"
	"slices"

	"sequencer/domain/message"
	"sequencer/domain/orderbook"

	"github.com/shopspring/decimal"
)

type limitKey struct {
	Account  message.AccountID
	MarketID message.MarketID
}

// limitSet collects the (account, market) pairs whose limits a request
// touched.
type limitSet map[limitKey]struct{}

func (l limitSet) add(account message.AccountID, market message.MarketID) {
	l[limitKey{account, market}] = struct{}{}
}

// markAsset marks every market trading asset for account.
func (s *State) markAsset(l limitSet, account message.AccountID, asset message.Asset) {
	for _, id := range s.MarketsWithAsset(asset) {
		l.add(account, id)
	}
}

// limits reports balance minus consumption for base and quote of each
// pair, ordered by account then market.
func (s *State) limits(l limitSet) []message.LimitsUpdate {
	if len(l) == 0 {
		return nil
	}
	keys := make([]limitKey, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b limitKey) int {
		if c := cmp.Compare(a.Account, b.Account); c != 0 {
			return c
		}
		return cmp.Compare(a.MarketID, b.MarketID)
	})
	out := make([]message.LimitsUpdate, 0, len(keys))
	for _, k := range keys {
		base, quote := k.MarketID.Assets()
		out = append(out, message.LimitsUpdate{
			Account:  k.Account,
			MarketID: k.MarketID,
			Base:     s.Balance(k.Account, base).Sub(s.ConsumedIn(k.Account, base, k.MarketID)),
			Quote:    s.Balance(k.Account, quote).Sub(s.ConsumedIn(k.Account, quote, k.MarketID)),
		})
	}
	return out
}

// applyTradeDeltas folds a batch result into balances and consumption.
// Trade deltas never take a balance below zero.
func (s *State) applyTradeDeltas(market message.MarketID, res *orderbook.BatchResult, balances *orderbook.Ledger, touched limitSet) {
	for _, c := range res.BalanceChanges.Changes() {
		balances.Add(c.Account, c.Asset, c.Delta)
		s.SetBalance(c.Account, c.Asset, decimal.Max(decimal.Zero, s.Balance(c.Account, c.Asset).Add(c.Delta)))
		s.markAsset(touched, c.Account, c.Asset)
	}
	for _, c := range res.ConsumptionChanges.Changes() {
		if c.Delta.IsZero() {
			continue
		}
		s.addConsumed(c.Account, c.Asset, market, c.Delta)
		touched.add(c.Account, market)
	}
}

// autoReduce shrinks resting orders wherever an account now reserves
// more of an asset in a market than it holds. Markets are visited in
// id order; changes are reported by guid within each account and asset.
func (s *State) autoReduce(changed *orderbook.Ledger, touched limitSet) []message.OrderChanged {
	var out []message.OrderChanged
	for _, c := range changed.Changes() {
		byMarket := s.Consumed[c.Account][c.Asset]
		if len(byMarket) == 0 {
			continue
		}
		balance := s.Balance(c.Account, c.Asset)
		var reduced []message.OrderChanged
		for _, id := range slices.Sorted(maps.Keys(byMarket)) {
			if byMarket[id].LessThanOrEqual(balance) {
				continue
			}
			if m, ok := s.Markets[id]; ok {
				reduced = append(reduced, m.AutoReduce(c.Account, c.Asset, balance)...)
			}
			byMarket[id] = balance
			touched.add(c.Account, id)
		}
		slices.SortStableFunc(reduced, func(a, b message.OrderChanged) int { return cmp.Compare(a.Guid, b.Guid) })
		out = append(out, reduced...)
	}
	return out
}

// nonZero drops entries whose deltas cancelled out.
func nonZero(changes []message.BalanceChange) []message.BalanceChange {
	out := changes[:0:0]
	for _, c := range changes {
		if !c.Delta.IsZero() {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// -------------------- Balance batch --------------------

func (p *Processor) applyBalanceBatch(resp *message.Response, batch *message.BalanceBatch) {
	s := p.state
	changed := orderbook.NewLedger()
	touched := limitSet{}

	for _, d := range batch.Deposits {
		s.AddBalance(d.Account, d.Asset, d.Amount)
		changed.Add(d.Account, d.Asset, d.Amount)
	}

	// one entry per external guid, in first-seen order
	created := make(map[string]int)
	for _, w := range batch.Withdrawals {
		fee := s.WithdrawalFee(w.Asset)
		if _, ok := s.Balances[w.Account]; !ok {
			continue
		}
		balance := s.Balance(w.Account, w.Asset)
		amount := w.Amount
		if amount.IsZero() {
			amount = balance
		}
		if amount.GreaterThan(fee) && amount.LessThanOrEqual(balance) {
			s.AddBalance(w.Account, w.Asset, amount.Neg())
			changed.Add(w.Account, w.Asset, amount.Neg())
			wc := message.WithdrawalCreated{ExternalGuid: w.ExternalGuid, Fee: fee}
			if i, ok := created[w.ExternalGuid]; ok {
				resp.WithdrawalsCreated[i] = wc
				continue
			}
			created[w.ExternalGuid] = len(resp.WithdrawalsCreated)
			resp.WithdrawalsCreated = append(resp.WithdrawalsCreated, wc)
		}
	}

	for _, f := range batch.FailedWithdrawals {
		s.AddBalance(f.Account, f.Asset, f.Amount)
		changed.Add(f.Account, f.Asset, f.Amount)
	}

	for _, f := range batch.FailedSettlements {
		m, ok := s.Markets[f.MarketID]
		if !ok {
			continue
		}
		base, quote := m.Base(), m.Quote()
		amount := f.Trade.Amount
		notional := orderbook.Notional(amount, m.Price(f.Trade.LevelIx), m.BaseDecimals, m.QuoteDecimals)

		refunds := []message.BalanceChange{
			{Account: f.SellAccount, Asset: base, Delta: amount},
			{Account: f.SellAccount, Asset: quote, Delta: notional.Sub(f.Trade.SellerFee).Neg()},
			{Account: f.BuyAccount, Asset: base, Delta: amount.Neg()},
			{Account: f.BuyAccount, Asset: quote, Delta: notional.Add(f.Trade.BuyerFee)},
		}
		for _, r := range refunds {
			s.AddBalance(r.Account, r.Asset, r.Delta)
			changed.Add(r.Account, r.Asset, r.Delta)
		}
	}

	for _, c := range changed.Changes() {
		s.markAsset(touched, c.Account, c.Asset)
	}
	resp.BalancesChanged = changed.Changes()
	resp.OrdersChanged = append(resp.OrdersChanged, s.autoReduce(changed, touched)...)
	resp.LimitsUpdated = s.limits(touched)
}
