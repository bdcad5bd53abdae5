package orderbook

import (
	"testing"

	"sequencer/domain/message"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type levelHarness struct {
	level    *Level
	nextGuid int64
	expected map[int64]struct{}
}

func newLevelHarness(capacity int) *levelHarness {
	l := &Level{}
	l.attach(newLevelBuffer(capacity), 300, message.Buy, decimal.NewFromInt(1))
	return &levelHarness{level: l, nextGuid: 1000, expected: map[int64]struct{}{}}
}

func (h *levelHarness) add(t *testing.T, amount int64) *LevelOrder {
	t.Helper()
	guid := h.nextGuid
	h.nextGuid++
	disposition, o := h.level.addOrder(0, guid, decimal.NewFromInt(amount), 0)
	require.Equal(t, message.Accepted, disposition, "failed at %d", guid)
	h.expected[guid] = struct{}{}
	return o
}

func (h *levelHarness) remove(o *LevelOrder) {
	delete(h.expected, o.Guid)
	h.level.removeOrder(o)
}

func (h *levelHarness) verify(t *testing.T) {
	t.Helper()
	seen := map[int64]struct{}{}
	count := 0
	h.level.Each(func(o *LevelOrder) {
		seen[o.Guid] = struct{}{}
		count++
	})
	assert.Equal(t, len(seen), count, "duplicate order in level")
	assert.Equal(t, h.expected, seen)
	for i, o := range h.level.orders {
		assert.Equal(t, i, o.slot, "slot index out of sync at %d", i)
	}
}

func TestLevelRemoveFromMiddleHeadAndTail(t *testing.T) {
	h := newLevelHarness(1000)
	for range 100 {
		h.add(t, 1)
	}
	assert.Equal(t, 0, h.level.Head())
	assert.Equal(t, 100, h.level.Tail())
	h.verify(t)

	for ix := 50; ix < 55; ix++ {
		h.remove(h.level.orders[ix])
	}
	h.remove(h.level.orders[h.level.Tail()-1])
	h.remove(h.level.orders[h.level.Tail()-1])
	h.remove(h.level.orders[h.level.Head()])
	for _, guid := range []int64{1000, 1050, 1051, 1052, 1053, 1054, 1098, 1099} {
		_, ok := h.expected[guid]
		assert.False(t, ok, "guid %d should have been removed", guid)
	}
	h.verify(t)

	// fill up to capacity-1 orders
	for range h.level.Capacity() - 100 + 7 {
		h.add(t, 1)
	}
	disposition, _ := h.level.addOrder(0, h.nextGuid, decimal.NewFromInt(1), 0)
	assert.Equal(t, message.Rejected, disposition)
	assert.Len(t, h.expected, h.level.Capacity()-1)
	assert.Equal(t, 5, h.level.Tail())
	assert.Equal(t, 6, h.level.Head())

	h.remove(h.level.orders[h.level.Head()+1])
	h.remove(h.level.orders[h.level.Tail()-3])
	h.verify(t)

	h.remove(h.level.orders[h.level.Head()])
	h.remove(h.level.orders[h.level.Tail()-1])
	h.verify(t)

	assert.Equal(t, 3, h.level.Tail())
	assert.Equal(t, 8, h.level.Head())
}

func TestLevelWrapAroundWhileRemovingFromStart(t *testing.T) {
	h := newLevelHarness(100)
	for range 99 {
		h.add(t, 1)
	}
	for ix := range 95 {
		h.remove(h.level.orders[ix])
	}
	assert.Equal(t, 95, h.level.Head())
	assert.Equal(t, 99, h.level.Tail())
	h.verify(t)

	for range 20 {
		h.add(t, 1)
	}
	assert.Equal(t, 95, h.level.Head())
	assert.Equal(t, 19, h.level.Tail())
	h.verify(t)

	for ix := 95; ix < 115; ix++ {
		h.remove(h.level.orders[ix%h.level.Capacity()])
	}
	assert.Equal(t, 15, h.level.Head())
	assert.Equal(t, 19, h.level.Tail())
	h.verify(t)
}

func TestLevelWrapAroundWhileRemovingFromEnd(t *testing.T) {
	h := newLevelHarness(100)
	for range 95 {
		h.add(t, 1)
	}
	for ix := range 90 {
		h.remove(h.level.orders[ix])
	}
	assert.Equal(t, 90, h.level.Head())
	assert.Equal(t, 95, h.level.Tail())
	h.verify(t)

	added := make([]*LevelOrder, 0, 20)
	for range 20 {
		added = append(added, h.add(t, 1))
	}
	assert.Equal(t, 90, h.level.Head())
	assert.Equal(t, 15, h.level.Tail())
	h.verify(t)

	for i := len(added) - 1; i >= 0; i-- {
		h.remove(added[i])
	}
	assert.Equal(t, 90, h.level.Head())
	assert.Equal(t, 95, h.level.Tail())
	h.verify(t)
}

func TestLevelTotalQuantity(t *testing.T) {
	h := newLevelHarness(100)
	amount := int64(1)
	for amount <= 2000 {
		expected := int64(0)
		var added []*LevelOrder
		for i := 0; i < 42 && amount <= 2000; i++ {
			added = append(added, h.add(t, amount))
			expected += amount
			amount++
		}
		assert.Equal(t, decimal.NewFromInt(expected).String(), h.level.TotalQuantity.String())

		for _, o := range added {
			h.remove(o)
		}
		assert.True(t, h.level.TotalQuantity.IsZero())
		assert.True(t, h.level.Empty())
	}
}

func TestLevelMaxOrderCount(t *testing.T) {
	h := newLevelHarness(100)
	for range 99 {
		h.add(t, 1)
	}
	assert.Equal(t, 0, h.level.Head())
	assert.Equal(t, 99, h.level.Tail())
	assert.True(t, h.level.Full())

	// the 100th order would make head == tail, which reads as empty
	disposition, _ := h.level.addOrder(0, h.nextGuid, decimal.NewFromInt(1), 0)
	assert.Equal(t, message.Rejected, disposition)
}

func TestLevelFillOrderIsFIFO(t *testing.T) {
	h := newLevelHarness(10)
	first := h.add(t, 5)
	h.add(t, 3)
	h.add(t, 4)
	firstGuid := first.Guid

	remaining, executions := h.level.fillOrder(decimal.NewFromInt(7))
	assert.True(t, remaining.IsZero())
	require.Len(t, executions, 2)

	assert.Equal(t, firstGuid, executions[0].CounterGuid)
	assert.True(t, executions[0].CounterExhausted)
	assert.Equal(t, "5", executions[0].Amount.String())

	assert.Equal(t, firstGuid+1, executions[1].CounterGuid)
	assert.False(t, executions[1].CounterExhausted)
	assert.Equal(t, "2", executions[1].Amount.String())
	assert.Equal(t, "1", executions[1].CounterRemaining.String())

	assert.Equal(t, 1, h.level.Head())
	assert.Equal(t, 2, h.level.Count())
	assert.Equal(t, "5", h.level.TotalQuantity.String())

	remaining, executions = h.level.fillOrder(decimal.NewFromInt(10))
	assert.Equal(t, "5", remaining.String())
	assert.Len(t, executions, 2)
	assert.True(t, h.level.Empty())
}
