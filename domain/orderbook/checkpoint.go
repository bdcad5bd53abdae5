package orderbook

import (
	"fmt"

	"sequencer/domain/message"
)

// Dump captures the book including ring buffer positions.
func (m *Market) Dump() message.MarketDump {
	d := message.MarketDump{
		Market:      m.Definition(),
		MinBidIx:    m.minBidIx,
		BestBidIx:   m.bestBidIx,
		BestOfferIx: m.bestOfferIx,
		MaxOfferIx:  m.maxOfferIx,
	}
	for i := range m.levels {
		if l := &m.levels[i]; !l.Empty() {
			d.Levels = append(d.Levels, l.dump())
		}
	}
	return d
}

// RestoreMarket rebuilds a market from a dump. The result dumps back
// to the same value.
func RestoreMarket(d message.MarketDump) (*Market, error) {
	m := NewMarket(d.Market)
	for _, ld := range d.Levels {
		if !m.validLevel(ld.LevelIx) {
			return nil, fmt.Errorf("market %s: level %d out of range", d.Market.ID, ld.LevelIx)
		}
		if ld.Head < 0 || ld.Head >= m.MaxOrdersPerLevel || ld.Tail < 0 || ld.Tail >= m.MaxOrdersPerLevel {
			return nil, fmt.Errorf("market %s: level %d has bad ring positions %d/%d", d.Market.ID, ld.LevelIx, ld.Head, ld.Tail)
		}
		if len(ld.Orders) == 0 || len(ld.Orders) >= m.MaxOrdersPerLevel {
			return nil, fmt.Errorf("market %s: level %d holds %d orders", d.Market.ID, ld.LevelIx, len(ld.Orders))
		}
		l := m.acquireLevel(ld.LevelIx, ld.Side)
		l.head = ld.Head
		for i, od := range ld.Orders {
			o := l.orders[(ld.Head+i)%len(l.orders)]
			o.Guid = od.Guid
			o.Account = od.Account
			o.Quantity = od.Quantity
			o.OriginalQuantity = od.OriginalQuantity
			o.FeeRate = od.FeeRate
			o.ReserveRate = od.ReserveRate
			m.index(o)
		}
		l.tail = (ld.Head + len(ld.Orders)) % len(l.orders)
		if l.tail != ld.Tail {
			return nil, fmt.Errorf("market %s: level %d tail %d does not match %d orders from head %d", d.Market.ID, ld.LevelIx, ld.Tail, len(ld.Orders), ld.Head)
		}
		l.TotalQuantity = ld.TotalQuantity
	}
	m.minBidIx = d.MinBidIx
	m.bestBidIx = d.BestBidIx
	m.bestOfferIx = d.BestOfferIx
	m.maxOfferIx = d.MaxOfferIx
	return m, nil
}
