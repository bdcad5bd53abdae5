package orderbook

import (
	"sequencer/domain/message"

	"github.com/shopspring/decimal"
)

// LevelOrder is a resting order inside a level's ring buffer. FeeRate
// is charged when it fills; ReserveRate prices the quote a resting buy
// holds back, which is the taker rate for the remainder of a limit
// order that crossed.
type LevelOrder struct {
	Guid             int64
	Account          message.AccountID
	Quantity         decimal.Decimal
	OriginalQuantity decimal.Decimal
	FeeRate          message.FeeRate
	ReserveRate      message.FeeRate

	level *Level
	slot  int
}

func (o *LevelOrder) Level() *Level { return o.level }

func (o *LevelOrder) reset() {
	o.Guid = 0
	o.Account = 0
	o.Quantity = decimal.Zero
	o.OriginalQuantity = decimal.Zero
	o.FeeRate = 0
	o.ReserveRate = 0
}

// Execution is one fill against a resting order. Counter fields are
// copied out of the level so they stay valid after the slot is reused.
type Execution struct {
	CounterGuid      int64
	CounterAccount   message.AccountID
	CounterFeeRate   message.FeeRate
	CounterReserve   message.FeeRate
	CounterRemaining decimal.Decimal
	CounterExhausted bool
	Amount           decimal.Decimal
	LevelIx          int
	Price            decimal.Decimal

	counter *LevelOrder
}

type levelBuffer struct {
	orders []*LevelOrder
}

func newLevelBuffer(capacity int) *levelBuffer {
	b := &levelBuffer{orders: make([]*LevelOrder, capacity)}
	for i := range b.orders {
		b.orders[i] = &LevelOrder{slot: i}
	}
	return b
}

// Level is a FIFO ring buffer of orders at one price. One slot is
// always left free, so a level holds at most capacity-1 orders.
type Level struct {
	Ix            int
	Side          message.BookSide
	Price         decimal.Decimal
	TotalQuantity decimal.Decimal

	buf    *levelBuffer
	orders []*LevelOrder
	head   int
	tail   int
}

func (l *Level) attach(buf *levelBuffer, ix int, side message.BookSide, price decimal.Decimal) {
	l.buf = buf
	l.orders = buf.orders
	l.Ix = ix
	l.Side = side
	l.Price = price
	l.TotalQuantity = decimal.Zero
	l.head, l.tail = 0, 0
	for i, o := range l.orders {
		o.level = l
		o.slot = i
	}
}

func (l *Level) detach() *levelBuffer {
	buf := l.buf
	l.buf = nil
	l.orders = nil
	l.head, l.tail = 0, 0
	l.TotalQuantity = decimal.Zero
	return buf
}

func (l *Level) Capacity() int { return len(l.orders) }

func (l *Level) Head() int { return l.head }

func (l *Level) Tail() int { return l.tail }

func (l *Level) Empty() bool { return l.head == l.tail }

func (l *Level) Full() bool {
	return len(l.orders) == 0 || (l.tail+1)%len(l.orders) == l.head
}

func (l *Level) Count() int {
	if len(l.orders) == 0 {
		return 0
	}
	return (l.tail - l.head + len(l.orders)) % len(l.orders)
}

// Each visits resting orders from oldest to newest.
func (l *Level) Each(fn func(*LevelOrder)) {
	for ix := l.head; ix != l.tail; ix = (ix + 1) % len(l.orders) {
		fn(l.orders[ix])
	}
}

func (l *Level) addOrder(account message.AccountID, guid int64, amount decimal.Decimal, feeRate message.FeeRate) (message.Disposition, *LevelOrder) {
	if l.Full() {
		return message.Rejected, nil
	}
	o := l.orders[l.tail]
	o.Guid = guid
	o.Account = account
	o.Quantity = amount
	o.OriginalQuantity = amount
	o.FeeRate = feeRate
	o.ReserveRate = feeRate
	o.level = l
	o.slot = l.tail
	l.tail = (l.tail + 1) % len(l.orders)
	l.TotalQuantity = l.TotalQuantity.Add(amount)
	return message.Accepted, o
}

// fillOrder consumes up to requested from the front of the queue and
// returns what is left unfilled.
func (l *Level) fillOrder(requested decimal.Decimal) (decimal.Decimal, []Execution) {
	remaining := requested
	var executions []Execution
	ix := l.head
	for ix != l.tail && remaining.IsPositive() {
		o := l.orders[ix]
		take := decimal.Min(remaining, o.Quantity)
		o.Quantity = o.Quantity.Sub(take)
		remaining = remaining.Sub(take)
		l.TotalQuantity = l.TotalQuantity.Sub(take)
		exhausted := o.Quantity.IsZero()
		executions = append(executions, Execution{
			CounterGuid:      o.Guid,
			CounterAccount:   o.Account,
			CounterFeeRate:   o.FeeRate,
			CounterReserve:   o.ReserveRate,
			CounterRemaining: o.Quantity,
			CounterExhausted: exhausted,
			Amount:           take,
			LevelIx:          l.Ix,
			Price:            l.Price,
			counter:          o,
		})
		if exhausted {
			ix = (ix + 1) % len(l.orders)
		}
	}
	l.head = ix
	return remaining, executions
}

// removeOrder takes an order out of the middle of the queue, closing
// the gap from whichever end keeps the move inside the array.
func (l *Level) removeOrder(o *LevelOrder) {
	n := len(l.orders)
	ix := o.slot
	l.TotalQuantity = l.TotalQuantity.Sub(o.Quantity)
	o.reset()

	last := (l.tail - 1 + n) % n
	switch {
	case ix == last:
		l.tail = last
	case ix < l.head:
		copy(l.orders[ix:l.tail-1], l.orders[ix+1:l.tail])
		l.orders[l.tail-1] = o
		l.tail--
		l.reslot(ix, l.tail)
	default:
		copy(l.orders[l.head+1:ix+1], l.orders[l.head:ix])
		l.orders[l.head] = o
		from := l.head
		l.head = (l.head + 1) % n
		l.reslot(from, ix)
	}
}

func (l *Level) reslot(from, to int) {
	for i := from; i <= to; i++ {
		l.orders[i].slot = i
	}
}

func (l *Level) dump() message.LevelDump {
	d := message.LevelDump{
		LevelIx:       l.Ix,
		Side:          l.Side,
		Head:          l.head,
		Tail:          l.tail,
		TotalQuantity: l.TotalQuantity,
	}
	l.Each(func(o *LevelOrder) {
		d.Orders = append(d.Orders, message.LevelOrderDump{
			Guid:             o.Guid,
			Account:          o.Account,
			Quantity:         o.Quantity,
			OriginalQuantity: o.OriginalQuantity,
			FeeRate:          o.FeeRate,
			ReserveRate:      o.ReserveRate,
		})
	})
	return d
}
