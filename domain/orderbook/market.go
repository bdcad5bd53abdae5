package orderbook

import (
	"sequencer/domain/message"
	"sequencer/infra/memory"

	"github.com/shopspring/decimal"
)

const (
	DefaultMaxLevels   = 100_000
	minOrdersPerLevel  = 2
	NoLevel            = -1
	defaultLevelOrders = 1000
)

// Market is the order book of one trading pair. Levels are a
// pre-allocated array indexed by tick; prices are TickSize * ix.
type Market struct {
	ID                message.MarketID
	TickSize          decimal.Decimal
	MaxOrdersPerLevel int
	MaxLevels         int
	BaseDecimals      int
	QuoteDecimals     int
	MinFee            decimal.Decimal

	levels []Level

	minBidIx    int
	bestBidIx   int
	bestOfferIx int
	maxOfferIx  int

	ordersByGuid        map[int64]*LevelOrder
	buyOrdersByAccount  map[message.AccountID][]*LevelOrder
	sellOrdersByAccount map[message.AccountID][]*LevelOrder

	buffers *memory.Pool[levelBuffer]
}

// NewMarket builds an empty book. A MaxLevels of zero selects
// DefaultMaxLevels.
func NewMarket(def message.Market) *Market {
	def = Normalize(def)
	capacity := def.MaxOrdersPerLevel
	return &Market{
		ID:                  def.ID,
		TickSize:            def.TickSize,
		MaxOrdersPerLevel:   def.MaxOrdersPerLevel,
		MaxLevels:           def.MaxLevels,
		BaseDecimals:        def.BaseDecimals,
		QuoteDecimals:       def.QuoteDecimals,
		MinFee:              def.MinFee,
		levels:              make([]Level, def.MaxLevels),
		minBidIx:            NoLevel,
		bestBidIx:           NoLevel,
		bestOfferIx:         NoLevel,
		maxOfferIx:          NoLevel,
		ordersByGuid:        make(map[int64]*LevelOrder),
		buyOrdersByAccount:  make(map[message.AccountID][]*LevelOrder),
		sellOrdersByAccount: make(map[message.AccountID][]*LevelOrder),
		buffers: memory.NewPool(
			func() *levelBuffer { return newLevelBuffer(capacity) },
			func(b *levelBuffer) {
				for _, o := range b.orders {
					o.reset()
					o.level = nil
				}
			},
		),
	}
}

// Normalize fills defaults for optional market parameters.
func Normalize(def message.Market) message.Market {
	if def.MaxLevels <= 0 {
		def.MaxLevels = DefaultMaxLevels
	}
	if def.MaxOrdersPerLevel <= 0 {
		def.MaxOrdersPerLevel = defaultLevelOrders
	}
	if def.MaxOrdersPerLevel < minOrdersPerLevel {
		def.MaxOrdersPerLevel = minOrdersPerLevel
	}
	return def
}

func (m *Market) Definition() message.Market {
	return message.Market{
		ID:                m.ID,
		TickSize:          m.TickSize,
		MaxOrdersPerLevel: m.MaxOrdersPerLevel,
		MaxLevels:         m.MaxLevels,
		BaseDecimals:      m.BaseDecimals,
		QuoteDecimals:     m.QuoteDecimals,
		MinFee:            m.MinFee,
	}
}

func (m *Market) Base() message.Asset  { return m.ID.Base() }
func (m *Market) Quote() message.Asset { return m.ID.Quote() }

func (m *Market) Price(levelIx int) decimal.Decimal {
	return m.TickSize.Mul(decimal.NewFromInt(int64(levelIx)))
}

func (m *Market) validLevel(ix int) bool {
	return ix >= 0 && ix < len(m.levels)
}

// Level returns nil for out of range or unoccupied levels.
func (m *Market) Level(ix int) *Level {
	if !m.validLevel(ix) || m.levels[ix].Empty() {
		return nil
	}
	return &m.levels[ix]
}

func (m *Market) Order(guid int64) (*LevelOrder, bool) {
	o, ok := m.ordersByGuid[guid]
	return o, ok
}

func (m *Market) OrderCount() int { return len(m.ordersByGuid) }

func (m *Market) BidOfferState() message.BidOfferState {
	return message.BidOfferState{
		MarketID:    m.ID,
		MinBidIx:    m.minBidIx,
		BestBidIx:   m.bestBidIx,
		BestOfferIx: m.bestOfferIx,
		MaxOfferIx:  m.maxOfferIx,
	}
}

// -------------------- Level bookkeeping --------------------

func (m *Market) acquireLevel(ix int, side message.BookSide) *Level {
	l := &m.levels[ix]
	if l.buf == nil {
		l.attach(m.buffers.Get(), ix, side, m.Price(ix))
	}
	return l
}

func (m *Market) releaseLevel(l *Level) {
	if l.buf == nil {
		return
	}
	m.buffers.Put(l.detach())
}

// nextSellLevel scans up from ix for an occupied level no further than maxOfferIx.
func (m *Market) nextSellLevel(ix int) int {
	for i := ix + 1; i <= m.maxOfferIx; i++ {
		if !m.levels[i].Empty() {
			return i
		}
	}
	return NoLevel
}

// prevSellLevel scans down from ix for an occupied level no lower than bestOfferIx.
func (m *Market) prevSellLevel(ix int) int {
	for i := ix - 1; i >= m.bestOfferIx && i >= 0; i-- {
		if !m.levels[i].Empty() {
			return i
		}
	}
	return NoLevel
}

// prevBuyLevel scans down from ix for an occupied level no lower than minBidIx.
func (m *Market) prevBuyLevel(ix int) int {
	for i := ix - 1; i >= m.minBidIx && i >= 0; i-- {
		if !m.levels[i].Empty() {
			return i
		}
	}
	return NoLevel
}

// nextBuyLevel scans up from ix for an occupied level no further than bestBidIx.
func (m *Market) nextBuyLevel(ix int) int {
	for i := ix + 1; i <= m.bestBidIx; i++ {
		if !m.levels[i].Empty() {
			return i
		}
	}
	return NoLevel
}

func (m *Market) eachSellLevel(fn func(*Level) bool) {
	if m.bestOfferIx == NoLevel {
		return
	}
	for ix := m.bestOfferIx; ix != NoLevel; ix = m.nextSellLevel(ix) {
		if !fn(&m.levels[ix]) {
			return
		}
	}
}

func (m *Market) eachBuyLevel(fn func(*Level) bool) {
	if m.bestBidIx == NoLevel {
		return
	}
	for ix := m.bestBidIx; ix != NoLevel; ix = m.prevBuyLevel(ix) {
		if !fn(&m.levels[ix]) {
			return
		}
	}
}

// -------------------- Order indexes --------------------

func (m *Market) index(o *LevelOrder) {
	m.ordersByGuid[o.Guid] = o
	if o.level.Side == message.Buy {
		m.buyOrdersByAccount[o.Account] = append(m.buyOrdersByAccount[o.Account], o)
	} else {
		m.sellOrdersByAccount[o.Account] = append(m.sellOrdersByAccount[o.Account], o)
	}
}

func (m *Market) unindex(o *LevelOrder, side message.BookSide) {
	delete(m.ordersByGuid, o.Guid)
	byAccount := m.sellOrdersByAccount
	if side == message.Buy {
		byAccount = m.buyOrdersByAccount
	}
	orders := byAccount[o.Account]
	for i, candidate := range orders {
		if candidate == o {
			orders = append(orders[:i], orders[i+1:]...)
			break
		}
	}
	if len(orders) == 0 {
		delete(byAccount, o.Account)
	} else {
		byAccount[o.Account] = orders
	}
}

func (m *Market) validateOrderForAccount(account message.AccountID, guid int64) message.RejectReason {
	o, ok := m.ordersByGuid[guid]
	if !ok {
		return message.ReasonDoesNotExist
	}
	if o.Account != account {
		return message.ReasonNotForAccount
	}
	return message.ReasonNone
}

// -------------------- Resting orders --------------------

func (m *Market) createLimitOrder(ix int, side message.BookSide, account message.AccountID, guid int64, amount decimal.Decimal, feeRate message.FeeRate) message.Disposition {
	level := m.acquireLevel(ix, side)
	disposition, o := level.addOrder(account, guid, amount, feeRate)
	if disposition != message.Accepted {
		if level.Empty() {
			m.releaseLevel(level)
		}
		return disposition
	}
	m.index(o)
	if side == message.Buy {
		if m.bestBidIx == NoLevel || ix > m.bestBidIx {
			m.bestBidIx = ix
		}
		if m.minBidIx == NoLevel || ix < m.minBidIx {
			m.minBidIx = ix
		}
	} else {
		if m.bestOfferIx == NoLevel || ix < m.bestOfferIx {
			m.bestOfferIx = ix
		}
		if m.maxOfferIx == NoLevel || ix > m.maxOfferIx {
			m.maxOfferIx = ix
		}
	}
	return disposition
}

type removedOrder struct {
	Account message.AccountID
	Base    decimal.Decimal
	Quote   decimal.Decimal
}

// removeOrder takes a resting order off the book and returns what it
// had reserved.
func (m *Market) removeOrder(guid int64) (removedOrder, bool) {
	o, ok := m.ordersByGuid[guid]
	if !ok {
		return removedOrder{}, false
	}
	level := o.level
	side := level.Side
	base, quote := m.AssetsReservedForOrder(o)
	res := removedOrder{Account: o.Account, Base: base, Quote: quote}

	m.unindex(o, side)
	level.removeOrder(o)
	if level.Empty() {
		m.releaseLevel(level)
		m.levelEmptied(level.Ix, side)
	}
	return res, true
}

// levelEmptied moves the best and outer indexes past a level that no
// longer holds orders.
func (m *Market) levelEmptied(ix int, side message.BookSide) {
	if side == message.Buy {
		switch ix {
		case m.bestBidIx:
			if prev := m.prevBuyLevel(ix); prev == NoLevel {
				m.bestBidIx, m.minBidIx = NoLevel, NoLevel
			} else {
				m.bestBidIx = prev
			}
		case m.minBidIx:
			if next := m.nextBuyLevel(ix); next == NoLevel {
				m.bestBidIx, m.minBidIx = NoLevel, NoLevel
			} else {
				m.minBidIx = next
			}
		}
		return
	}
	switch ix {
	case m.bestOfferIx:
		if next := m.nextSellLevel(ix); next == NoLevel {
			m.bestOfferIx, m.maxOfferIx = NoLevel, NoLevel
		} else {
			m.bestOfferIx = next
		}
	case m.maxOfferIx:
		if prev := m.prevSellLevel(ix); prev == NoLevel {
			m.bestOfferIx, m.maxOfferIx = NoLevel, NoLevel
		} else {
			m.maxOfferIx = prev
		}
	}
}

// AssetsReservedForOrder returns the base and quote held back by a
// resting order.
func (m *Market) AssetsReservedForOrder(o *LevelOrder) (decimal.Decimal, decimal.Decimal) {
	if o.level.Side == message.Buy {
		return decimal.Zero, NotionalPlusFee(o.Quantity, o.level.Price, m.BaseDecimals, m.QuoteDecimals, o.ReserveRate)
	}
	return o.Quantity, decimal.Zero
}

func (m *Market) BaseAssetsRequired(account message.AccountID) decimal.Decimal {
	total := decimal.Zero
	for _, o := range m.sellOrdersByAccount[account] {
		total = total.Add(o.Quantity)
	}
	return total
}

func (m *Market) QuoteAssetsRequired(account message.AccountID) decimal.Decimal {
	total := decimal.Zero
	for _, o := range m.buyOrdersByAccount[account] {
		total = total.Add(NotionalPlusFee(o.Quantity, o.level.Price, m.BaseDecimals, m.QuoteDecimals, o.ReserveRate))
	}
	return total
}
