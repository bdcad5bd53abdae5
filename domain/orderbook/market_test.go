package orderbook

import (
	"testing"

	"sequencer/domain/message"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	btc  message.Asset = "BTC"
	usdc message.Asset = "USDC"
)

var testFees = message.FeeRates{Maker: 10_000, Taker: 20_000}

func newTestMarket(t testing.TB, tick string) *Market {
	t.Helper()
	return NewMarket(message.Market{
		ID:                message.NewMarketID(btc, usdc),
		TickSize:          decimal.RequireFromString(tick),
		MaxOrdersPerLevel: 100,
		MaxLevels:         1000,
		MinFee:            decimal.Zero,
	})
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func limitBuy(guid int64, amount int64, ix int) message.Order {
	return message.Order{Guid: guid, Type: message.LimitBuy, Amount: dec(amount), LevelIx: ix}
}

func limitSell(guid int64, amount int64, ix int) message.Order {
	return message.Order{Guid: guid, Type: message.LimitSell, Amount: dec(amount), LevelIx: ix}
}

func place(m *Market, account message.AccountID, orders ...message.Order) *BatchResult {
	return m.ApplyOrderBatch(message.OrderBatch{MarketID: m.ID, Account: account, OrdersToAdd: orders}, testFees)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, expected, actual.String(), msgAndArgs...)
}

func assertBidOffer(t *testing.T, m *Market, minBid, bestBid, bestOffer, maxOffer int) {
	t.Helper()
	s := m.BidOfferState()
	assert.Equal(t, []int{minBid, bestBid, bestOffer, maxOffer}, []int{s.MinBidIx, s.BestBidIx, s.BestOfferIx, s.MaxOfferIx})
}

func TestMarketRestingOrdersReserveAtMakerRate(t *testing.T) {
	m := newTestMarket(t, "1")
	res := place(m, 1, limitBuy(1, 10, 100), limitBuy(2, 5, 99), limitSell(3, 4, 110))

	require.Len(t, res.OrdersChanged, 3)
	for _, oc := range res.OrdersChanged {
		assert.Equal(t, message.Accepted, oc.Disposition)
	}
	assert.Empty(t, res.TradesCreated)
	assertDecimal(t, "1509", res.ConsumptionChanges.Get(1, usdc))
	assertDecimal(t, "4", res.ConsumptionChanges.Get(1, btc))
	assertBidOffer(t, m, 99, 100, 110, 110)
	assertDecimal(t, "1509", m.QuoteAssetsRequired(1))
	assertDecimal(t, "4", m.BaseAssetsRequired(1))
}

func TestMarketCrossingLimitSell(t *testing.T) {
	m := newTestMarket(t, "1")
	place(m, 1, limitBuy(1, 10, 100), limitBuy(2, 5, 99))

	res := place(m, 2, limitSell(3, 12, 99))

	require.Len(t, res.OrdersChanged, 3)
	assert.Equal(t, message.OrderChanged{Guid: 3, Disposition: message.Filled}, res.OrdersChanged[0])
	assert.Equal(t, message.OrderChanged{Guid: 1, Disposition: message.Filled}, res.OrdersChanged[1])
	assert.Equal(t, int64(2), res.OrdersChanged[2].Guid)
	assert.Equal(t, message.PartiallyFilled, res.OrdersChanged[2].Disposition)
	assertDecimal(t, "3", *res.OrdersChanged[2].NewQuantity)

	require.Len(t, res.TradesCreated, 2)
	first, second := res.TradesCreated[0], res.TradesCreated[1]
	assert.Equal(t, int64(1), first.BuyOrderGuid)
	assert.Equal(t, int64(3), first.SellOrderGuid)
	assert.Equal(t, 100, first.LevelIx)
	assertDecimal(t, "10", first.Amount)
	assertDecimal(t, "10", first.BuyerFee)
	assertDecimal(t, "20", first.SellerFee)

	assert.Equal(t, 99, second.LevelIx)
	assertDecimal(t, "2", second.Amount)
	assertDecimal(t, "1", second.BuyerFee)
	assertDecimal(t, "3", second.SellerFee)

	changes := res.BalanceChanges.Changes()
	require.Len(t, changes, 4)
	assert.Equal(t, message.BalanceChange{Account: 1, Asset: usdc}, message.BalanceChange{Account: changes[0].Account, Asset: changes[0].Asset})
	assertDecimal(t, "-1209", res.BalanceChanges.Get(1, usdc))
	assertDecimal(t, "12", res.BalanceChanges.Get(1, btc))
	assertDecimal(t, "-12", res.BalanceChanges.Get(2, btc))
	assertDecimal(t, "1175", res.BalanceChanges.Get(2, usdc))

	assertDecimal(t, "-1209", res.ConsumptionChanges.Get(1, usdc))
	assertBidOffer(t, m, 99, 99, NoLevel, NoLevel)
	assertDecimal(t, "3", m.Level(99).TotalQuantity)
	_, ok := m.Order(1)
	assert.False(t, ok)
}

func TestMarketCrossingLimitRestsRemainder(t *testing.T) {
	m := newTestMarket(t, "1")
	place(m, 2, limitSell(1, 2, 101))

	res := place(m, 1, limitBuy(2, 5, 102))

	assert.Equal(t, message.PartiallyFilled, res.OrdersChanged[0].Disposition)
	require.Len(t, res.TradesCreated, 1)
	// resting 3 at 102 plus the 2% taker fee
	assertDecimal(t, "312", res.ConsumptionChanges.Get(1, usdc))
	assertDecimal(t, "-2", res.ConsumptionChanges.Get(2, btc))
	assertBidOffer(t, m, 102, 102, NoLevel, NoLevel)
	assertDecimal(t, "312", m.QuoteAssetsRequired(1))

	o, ok := m.Order(2)
	require.True(t, ok)
	assert.Equal(t, testFees.Maker, o.FeeRate)
	assert.Equal(t, testFees.Taker, o.ReserveRate)

	restored, err := RestoreMarket(m.Dump())
	require.NoError(t, err)
	assertDecimal(t, "312", restored.QuoteAssetsRequired(1))

	// filled later as a maker: charged 1%, releases what was reserved
	res = place(m, 3, message.Order{Guid: 3, Type: message.MarketSell, Amount: dec(3)})
	require.Len(t, res.TradesCreated, 1)
	assertDecimal(t, "3", res.TradesCreated[0].BuyerFee)
	assertDecimal(t, "-309", res.BalanceChanges.Get(1, usdc))
	assertDecimal(t, "-312", res.ConsumptionChanges.Get(1, usdc))
	assertDecimal(t, "0", m.QuoteAssetsRequired(1))
}

func TestMarketUntouchedLimitReservesAtMakerRate(t *testing.T) {
	m := newTestMarket(t, "1")
	place(m, 2, limitSell(1, 2, 110))

	res := place(m, 1, limitBuy(2, 5, 102))
	assert.Equal(t, message.Accepted, res.OrdersChanged[0].Disposition)
	assertDecimal(t, "515", res.ConsumptionChanges.Get(1, usdc))

	o, ok := m.Order(2)
	require.True(t, ok)
	assert.Equal(t, testFees.Maker, o.ReserveRate)
}

func TestMarketRejectsDuplicateGuid(t *testing.T) {
	m := newTestMarket(t, "1")
	place(m, 1, limitSell(7, 5, 100))

	res := place(m, 1, limitSell(7, 3, 101))
	assert.Equal(t, []message.OrderChanged{{Guid: 7, Disposition: message.Rejected}}, res.OrdersChanged)
	assertDecimal(t, "0", res.ConsumptionChanges.Get(1, btc))
	assert.Nil(t, m.Level(101))
	assert.Equal(t, 1, m.OrderCount())
	assertBidOffer(t, m, NoLevel, NoLevel, 100, 100)

	// a crossing duplicate does not trade either
	place(m, 2, limitBuy(8, 2, 90))
	res = place(m, 1, limitSell(8, 5, 90))
	assert.Equal(t, message.Rejected, res.OrdersChanged[0].Disposition)
	assert.Empty(t, res.TradesCreated)
	assertDecimal(t, "2", m.Level(90).TotalQuantity)

	// and neither does a repeat within one batch
	res = place(m, 1, limitSell(9, 1, 102), limitSell(9, 1, 103))
	assert.Equal(t, message.Accepted, res.OrdersChanged[0].Disposition)
	assert.Equal(t, message.Rejected, res.OrdersChanged[1].Disposition)
	assert.Nil(t, m.Level(103))

	res = m.ApplyOrderBatch(message.OrderBatch{Account: 1, OrdersToCancel: []message.CancelOrder{{Guid: 7}, {Guid: 9}}}, testFees)
	assert.Equal(t, []message.OrderChanged{
		{Guid: 7, Disposition: message.Canceled},
		{Guid: 9, Disposition: message.Canceled},
	}, res.OrdersChanged)
	assertDecimal(t, "-6", res.ConsumptionChanges.Get(1, btc))
	assert.Equal(t, 1, m.OrderCount(), "only the bid at 90 is left")
	assertDecimal(t, "0", m.BaseAssetsRequired(1))
	assertBidOffer(t, m, 90, 90, NoLevel, NoLevel)
}

func TestMarketOrderAgainstEmptyBookIsRejected(t *testing.T) {
	m := newTestMarket(t, "1")
	res := place(m, 1, message.Order{Guid: 1, Type: message.MarketBuy, Amount: dec(1)})
	assert.Equal(t, message.Rejected, res.OrdersChanged[0].Disposition)

	res = place(m, 1, message.Order{Guid: 2, Type: message.MarketSell, Amount: dec(1)})
	assert.Equal(t, message.Rejected, res.OrdersChanged[0].Disposition)
	assert.Empty(t, res.TradesCreated)
}

func TestMarketRejectsInvalidOrders(t *testing.T) {
	m := newTestMarket(t, "1")
	res := place(m, 1, limitBuy(1, 0, 10), limitBuy(2, 1, 1000), limitSell(3, 1, -1))
	for _, oc := range res.OrdersChanged {
		assert.Equal(t, message.Rejected, oc.Disposition, "guid %d", oc.Guid)
	}
	assert.Equal(t, 0, m.OrderCount())
}

func TestMarketMinFee(t *testing.T) {
	m := NewMarket(message.Market{
		ID:                message.NewMarketID(btc, usdc),
		TickSize:          decimal.NewFromInt(1),
		MaxOrdersPerLevel: 10,
		MaxLevels:         1000,
		MinFee:            dec(5),
	})
	res := place(m, 1, limitBuy(1, 1, 100), limitBuy(2, 10, 100))
	assert.Equal(t, message.Rejected, res.OrdersChanged[0].Disposition)
	assert.Equal(t, message.Accepted, res.OrdersChanged[1].Disposition)
}

func TestMarketCancelRestoresBidOfferState(t *testing.T) {
	m := newTestMarket(t, "0.05")
	place(m, 1, limitBuy(1, 10, 350), limitBuy(2, 10, 350))
	assertBidOffer(t, m, 350, 350, NoLevel, NoLevel)
	assertDecimal(t, "17.5", m.Level(350).Price)

	res := m.ApplyOrderBatch(message.OrderBatch{
		MarketID:       m.ID,
		Account:        2,
		OrdersToCancel: []message.CancelOrder{{Guid: 1}, {Guid: 99}},
	}, testFees)
	assert.Equal(t, []message.OrderChangeRejected{
		{Guid: 1, Reason: message.ReasonNotForAccount},
		{Guid: 99, Reason: message.ReasonDoesNotExist},
	}, res.OrdersChangeRejected)

	res = m.ApplyOrderBatch(message.OrderBatch{
		MarketID:       m.ID,
		Account:        1,
		OrdersToCancel: []message.CancelOrder{{Guid: 1}, {Guid: 2}},
	}, testFees)
	assert.Equal(t, []message.OrderChanged{
		{Guid: 1, Disposition: message.Canceled},
		{Guid: 2, Disposition: message.Canceled},
	}, res.OrdersChanged)
	assertDecimal(t, "-352", res.ConsumptionChanges.Get(1, usdc))
	assertBidOffer(t, m, NoLevel, NoLevel, NoLevel, NoLevel)
	assert.Nil(t, m.Level(350))
	assert.Equal(t, 0, m.OrderCount())
}

func TestMarketCancelMovesOuterIndexes(t *testing.T) {
	m := newTestMarket(t, "1")
	place(m, 1, limitBuy(1, 1, 90), limitBuy(2, 1, 95), limitBuy(3, 1, 99))
	place(m, 1, limitSell(4, 1, 110), limitSell(5, 1, 120), limitSell(6, 1, 130))
	assertBidOffer(t, m, 90, 99, 110, 130)

	m.ApplyOrderBatch(message.OrderBatch{Account: 1, OrdersToCancel: []message.CancelOrder{{Guid: 1}, {Guid: 3}, {Guid: 4}, {Guid: 6}}}, testFees)
	assertBidOffer(t, m, 95, 95, 120, 120)
}

func TestMarketChangeOrder(t *testing.T) {
	m := newTestMarket(t, "1")
	place(m, 1, limitBuy(1, 10, 100))
	place(m, 2, limitSell(2, 2, 101))

	res := m.ApplyOrderBatch(message.OrderBatch{Account: 1, OrdersToChange: []message.Order{limitBuy(1, 4, 100)}}, testFees)
	assert.Equal(t, []message.OrderChanged{{Guid: 1, Disposition: message.Accepted}}, res.OrdersChanged)
	assertDecimal(t, "-606", res.ConsumptionChanges.Get(1, usdc))
	assertDecimal(t, "4", m.Level(100).TotalQuantity)

	res = m.ApplyOrderBatch(message.OrderBatch{Account: 1, OrdersToChange: []message.Order{limitBuy(1, 4, 101)}}, testFees)
	require.NotEmpty(t, res.OrdersChanged)
	assert.Equal(t, message.PartiallyFilled, res.OrdersChanged[0].Disposition)
	require.Len(t, res.TradesCreated, 1)
	assertDecimal(t, "2", res.TradesCreated[0].Amount)
	// 404 released, 206 reserved at the taker rate for the 2 left resting at 101
	assertDecimal(t, "-198", res.ConsumptionChanges.Get(1, usdc))
	assertDecimal(t, "-2", res.ConsumptionChanges.Get(2, btc))
	assertBidOffer(t, m, 101, 101, NoLevel, NoLevel)
	assert.Nil(t, m.Level(100))

	res = m.ApplyOrderBatch(message.OrderBatch{Account: 1, OrdersToChange: []message.Order{limitBuy(1, 0, 101)}}, testFees)
	assert.Equal(t, message.Rejected, res.OrdersChanged[0].Disposition)
	_, ok := m.Order(1)
	assert.True(t, ok)
}

func TestMarketChangeToBadLevelKeepsOrder(t *testing.T) {
	m := newTestMarket(t, "1")
	place(m, 1, limitBuy(1, 10, 100))

	res := m.ApplyOrderBatch(message.OrderBatch{Account: 1, OrdersToChange: []message.Order{limitBuy(1, 4, 5000)}}, testFees)
	assert.Equal(t, []message.OrderChanged{{Guid: 1, Disposition: message.Rejected}}, res.OrdersChanged)
	assertDecimal(t, "0", res.ConsumptionChanges.Get(1, usdc))

	o, ok := m.Order(1)
	require.True(t, ok)
	assertDecimal(t, "10", o.Quantity)
	assert.Equal(t, 100, o.Level().Ix)
	assertDecimal(t, "1010", m.QuoteAssetsRequired(1))
	assertBidOffer(t, m, 100, 100, NoLevel, NoLevel)
}

func TestMarketAutoReduceSells(t *testing.T) {
	m := newTestMarket(t, "1")
	place(m, 1, limitSell(101, 5, 100), limitSell(102, 5, 101), limitSell(103, 5, 102))

	changed := m.AutoReduce(1, btc, dec(7))
	require.Len(t, changed, 2)
	assert.Equal(t, int64(102), changed[0].Guid)
	assert.Equal(t, message.AutoReduced, changed[0].Disposition)
	assertDecimal(t, "2", *changed[0].NewQuantity)
	assert.Equal(t, int64(103), changed[1].Guid)
	assertDecimal(t, "0", *changed[1].NewQuantity)

	assertDecimal(t, "2", m.Level(101).TotalQuantity)
	assert.Nil(t, m.Level(102))
	assertBidOffer(t, m, NoLevel, NoLevel, 100, 101)
	assertDecimal(t, "7", m.BaseAssetsRequired(1))
}

func TestMarketAutoReduceBuys(t *testing.T) {
	m := newTestMarket(t, "1")
	place(m, 1, limitBuy(1, 10, 100), limitBuy(2, 10, 99))

	changed := m.AutoReduce(1, usdc, dec(1500))
	require.Len(t, changed, 1)
	assert.Equal(t, int64(2), changed[0].Guid)
	assertDecimal(t, "4", *changed[0].NewQuantity)
	assertDecimal(t, "4", m.Level(99).TotalQuantity)
	assert.True(t, m.QuoteAssetsRequired(1).LessThanOrEqual(dec(1500)))

	assert.Empty(t, m.AutoReduce(1, "ETH", decimal.Zero))
}

func TestMarketLiquidity(t *testing.T) {
	m := newTestMarket(t, "1")
	place(m, 1, limitSell(1, 10, 100), limitSell(2, 10, 110))
	place(m, 2, limitBuy(3, 10, 90), limitBuy(4, 10, 80))

	qty, notional := m.QuantityAndNotionalForMarketBuy(dec(15))
	assertDecimal(t, "15", qty)
	assertDecimal(t, "1550", notional)
	assertDecimal(t, "15", m.QuantityForMarketBuy(dec(1550)))

	qty, notional = m.ClearingNotionalForMarketBuy(dec(15), NoLevel)
	assertDecimal(t, "15", qty)
	assertDecimal(t, "1550", notional)
	qty, notional = m.ClearingNotionalForMarketBuy(dec(15), 100)
	assertDecimal(t, "10", qty)
	assertDecimal(t, "1000", notional)

	assertDecimal(t, "20", m.ClearingQuantityForMarketSell(dec(25), NoLevel))
	assertDecimal(t, "10", m.ClearingQuantityForMarketSell(dec(25), 90))
	qty, notional = m.QuantityAndNotionalForMarketSell(dec(15))
	assertDecimal(t, "15", qty)
	assertDecimal(t, "1300", notional)
	assertDecimal(t, "15", m.QuantityForMarketSell(dec(1300)))

	assertDecimal(t, "10", m.CalculateAmountForPercentageSell(3, dec(30), 50))
	qty, maxAvailable := m.CalculateAmountForPercentageBuy(3, dec(1020), 100, testFees.Taker)
	assertDecimal(t, "10", qty)
	require.NotNil(t, maxAvailable)
	assertDecimal(t, "1020", *maxAvailable)

	_, maxAvailable = m.CalculateAmountForPercentageBuy(3, dec(1020), 50, testFees.Taker)
	assert.Nil(t, maxAvailable)
}

func TestMarketFullMarketBuySweepsDust(t *testing.T) {
	m := newTestMarket(t, "1")
	place(m, 1, limitSell(1, 10, 100), limitSell(2, 10, 110))

	qty, maxAvailable := m.CalculateAmountForPercentageBuy(3, dec(1021), 100, testFees.Taker)
	assertDecimal(t, "10", qty)

	res := place(m, 3, message.Order{Guid: 5, Type: message.MarketBuy, Amount: qty, Percentage: 100, MaxAvailable: maxAvailable})
	require.Len(t, res.TradesCreated, 1)
	assertDecimal(t, "21", res.TradesCreated[0].BuyerFee)
	assertDecimal(t, "-1021", res.BalanceChanges.Get(3, usdc))
	assertDecimal(t, "10", *res.OrdersChanged[0].NewQuantity)
}

func TestMarketDumpRestore(t *testing.T) {
	m := newTestMarket(t, "1")
	// push the ring past its end so head and tail positions matter
	for i := range 120 {
		place(m, 1, limitSell(int64(i+1), 1, 105))
		if i >= 10 {
			m.ApplyOrderBatch(message.OrderBatch{Account: 1, OrdersToCancel: []message.CancelOrder{{Guid: int64(i - 9)}}}, testFees)
		}
	}
	place(m, 2, limitBuy(500, 7, 100), limitBuy(501, 3, 98))
	place(m, 3, limitSell(502, 4, 107))

	dump := m.Dump()
	restored, err := RestoreMarket(dump)
	require.NoError(t, err)

	before, err := json.Marshal(dump)
	require.NoError(t, err)
	after, err := json.Marshal(restored.Dump())
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))

	batch := message.OrderBatch{Account: 4, OrdersToAdd: []message.Order{limitBuy(600, 12, 106), limitSell(601, 9, 99)}}
	want, err := json.Marshal(m.ApplyOrderBatch(batch, testFees).BalanceChanges.Changes())
	require.NoError(t, err)
	got, err := json.Marshal(restored.ApplyOrderBatch(batch, testFees).BalanceChanges.Changes())
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
	assert.Equal(t, m.BidOfferState(), restored.BidOfferState())
}

func TestRestoreMarketRejectsInconsistentLevel(t *testing.T) {
	m := newTestMarket(t, "1")
	place(m, 1, limitSell(1, 1, 105))
	dump := m.Dump()
	dump.Levels[0].Tail = 7

	_, err := RestoreMarket(dump)
	assert.Error(t, err)
}

func BenchmarkMarketCrossingLimitOrders(b *testing.B) {
	m := newTestMarket(b, "1")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		guid := int64(i) * 2
		m.ApplyOrderBatch(message.OrderBatch{Account: 1, OrdersToAdd: []message.Order{limitSell(guid, 1, 100+i%50)}}, testFees)
		m.ApplyOrderBatch(message.OrderBatch{Account: 2, OrdersToAdd: []message.Order{limitBuy(guid+1, 1, 150)}}, testFees)
	}
}
