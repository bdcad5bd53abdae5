package orderbook

import (
	"sequencer/domain/message"

	"github.com/shopspring/decimal"
)

type ledgerKey struct {
	Account message.AccountID
	Asset   message.Asset
}

// Ledger accumulates signed deltas per account and asset and lists
// them in first-touch order, so output never depends on map iteration.
type Ledger struct {
	keys   []ledgerKey
	deltas map[ledgerKey]decimal.Decimal
}

func NewLedger() *Ledger {
	return &Ledger{deltas: make(map[ledgerKey]decimal.Decimal)}
}

func (l *Ledger) Add(account message.AccountID, asset message.Asset, delta decimal.Decimal) {
	k := ledgerKey{account, asset}
	cur, ok := l.deltas[k]
	if !ok {
		l.keys = append(l.keys, k)
		cur = decimal.Zero
	}
	l.deltas[k] = cur.Add(delta)
}

func (l *Ledger) Get(account message.AccountID, asset message.Asset) decimal.Decimal {
	if d, ok := l.deltas[ledgerKey{account, asset}]; ok {
		return d
	}
	return decimal.Zero
}

// Changes lists every touched key, zero deltas included.
func (l *Ledger) Changes() []message.BalanceChange {
	if len(l.keys) == 0 {
		return nil
	}
	out := make([]message.BalanceChange, 0, len(l.keys))
	for _, k := range l.keys {
		out = append(out, message.BalanceChange{Account: k.Account, Asset: k.Asset, Delta: l.deltas[k]})
	}
	return out
}
