package sequencer

import (
	"fmt"
	"maps"
	"slices"

	"sequencer/domain/message"
	"sequencer/domain/orderbook"

	"github.com/shopspring/decimal"
)

// State is everything the processor owns. It is mutated only from the
// processor goroutine.
type State struct {
	Markets        map[message.MarketID]*orderbook.Market
	Balances       map[message.AccountID]map[message.Asset]decimal.Decimal
	Consumed       map[message.AccountID]map[message.Asset]map[message.MarketID]decimal.Decimal
	FeeRates       message.FeeRates
	WithdrawalFees map[message.Asset]decimal.Decimal

	marketsByAsset map[message.Asset][]message.MarketID
}

func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset drops every market, balance and fee setting.
func (s *State) Reset() {
	s.Markets = make(map[message.MarketID]*orderbook.Market)
	s.Balances = make(map[message.AccountID]map[message.Asset]decimal.Decimal)
	s.Consumed = make(map[message.AccountID]map[message.Asset]map[message.MarketID]decimal.Decimal)
	s.FeeRates = message.FeeRates{}
	s.WithdrawalFees = make(map[message.Asset]decimal.Decimal)
	s.marketsByAsset = make(map[message.Asset][]message.MarketID)
}

func (s *State) AddMarket(m *orderbook.Market) {
	s.Markets[m.ID] = m
	for _, asset := range []message.Asset{m.Base(), m.Quote()} {
		ids := append(s.marketsByAsset[asset], m.ID)
		slices.Sort(ids)
		s.marketsByAsset[asset] = ids
	}
}

// MarketsWithAsset lists, sorted, the markets trading asset on either side.
func (s *State) MarketsWithAsset(asset message.Asset) []message.MarketID {
	return s.marketsByAsset[asset]
}

func (s *State) Balance(account message.AccountID, asset message.Asset) decimal.Decimal {
	if b, ok := s.Balances[account][asset]; ok {
		return b
	}
	return decimal.Zero
}

func (s *State) SetBalance(account message.AccountID, asset message.Asset, amount decimal.Decimal) {
	byAsset, ok := s.Balances[account]
	if !ok {
		byAsset = make(map[message.Asset]decimal.Decimal)
		s.Balances[account] = byAsset
	}
	byAsset[asset] = amount
}

// AddBalance applies delta without clamping.
func (s *State) AddBalance(account message.AccountID, asset message.Asset, delta decimal.Decimal) {
	s.SetBalance(account, asset, s.Balance(account, asset).Add(delta))
}

func (s *State) ConsumedIn(account message.AccountID, asset message.Asset, market message.MarketID) decimal.Decimal {
	if c, ok := s.Consumed[account][asset][market]; ok {
		return c
	}
	return decimal.Zero
}

func (s *State) setConsumed(account message.AccountID, asset message.Asset, market message.MarketID, amount decimal.Decimal) {
	byAsset, ok := s.Consumed[account]
	if !ok {
		byAsset = make(map[message.Asset]map[message.MarketID]decimal.Decimal)
		s.Consumed[account] = byAsset
	}
	byMarket, ok := byAsset[asset]
	if !ok {
		byMarket = make(map[message.MarketID]decimal.Decimal)
		byAsset[asset] = byMarket
	}
	byMarket[market] = amount
}

func (s *State) addConsumed(account message.AccountID, asset message.Asset, market message.MarketID, delta decimal.Decimal) {
	s.setConsumed(account, asset, market, s.ConsumedIn(account, asset, market).Add(delta))
}

func (s *State) WithdrawalFee(asset message.Asset) decimal.Decimal {
	if f, ok := s.WithdrawalFees[asset]; ok {
		return f
	}
	return decimal.Zero
}

// -------------------- Dump / restore --------------------

// Dump serializes the state with every collection sorted, so equal
// states always dump to identical bytes.
func (s *State) Dump() message.StateDump {
	d := message.StateDump{FeeRates: s.FeeRates}

	for _, account := range slices.Sorted(maps.Keys(s.Balances)) {
		for _, asset := range slices.Sorted(maps.Keys(s.Balances[account])) {
			d.Balances = append(d.Balances, message.BalanceEntry{Account: account, Asset: asset, Amount: s.Balances[account][asset]})
		}
	}
	for _, account := range slices.Sorted(maps.Keys(s.Consumed)) {
		byAsset := s.Consumed[account]
		for _, asset := range slices.Sorted(maps.Keys(byAsset)) {
			byMarket := byAsset[asset]
			for _, id := range slices.Sorted(maps.Keys(byMarket)) {
				d.Consumed = append(d.Consumed, message.ConsumedEntry{Account: account, Asset: asset, MarketID: id, Amount: byMarket[id]})
			}
		}
	}
	for _, id := range slices.Sorted(maps.Keys(s.Markets)) {
		d.Markets = append(d.Markets, s.Markets[id].Dump())
	}
	for _, asset := range slices.Sorted(maps.Keys(s.WithdrawalFees)) {
		d.WithdrawalFees = append(d.WithdrawalFees, message.WithdrawalFee{Asset: asset, Value: s.WithdrawalFees[asset]})
	}
	return d
}

// RestoreState rebuilds a state from its dump.
func RestoreState(d message.StateDump) (*State, error) {
	s := NewState()
	s.FeeRates = d.FeeRates
	for _, md := range d.Markets {
		if _, dup := s.Markets[md.Market.ID]; dup {
			return nil, fmt.Errorf("duplicate market %s in dump", md.Market.ID)
		}
		m, err := orderbook.RestoreMarket(md)
		if err != nil {
			return nil, err
		}
		s.AddMarket(m)
	}
	for _, b := range d.Balances {
		s.SetBalance(b.Account, b.Asset, b.Amount)
	}
	for _, c := range d.Consumed {
		s.setConsumed(c.Account, c.Asset, c.MarketID, c.Amount)
	}
	for _, f := range d.WithdrawalFees {
		s.WithdrawalFees[f.Asset] = f.Value
	}
	return s, nil
}
