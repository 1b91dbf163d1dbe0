// file: pkg/orderbook/orderbook.go

package orderbook

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// OrderBook is the live limit order book of one trading pair. All exported
// methods are safe for concurrent use; a single mutex linearizes every
// matching pass.
type OrderBook struct {
	pair   TradingPair
	symbol string

	bids *bookSide
	asks *bookSide

	// order id -> resting order; side, price and arrival sequence locate it.
	orders map[string]*RestingOrder
	seq    uint64

	rules []OrderRule
	ids   IDGenerator
	now   func() time.Time

	mid      decimal.NullDecimal
	midDirty bool

	lastTradePrice decimal.NullDecimal
	lastTradeAt    time.Time
	lastUpdated    time.Time

	mu sync.Mutex
}

func newOrderBook(pair TradingPair, ids IDGenerator, now func() time.Time, rules []OrderRule) *OrderBook {
	return &OrderBook{
		pair:        pair,
		symbol:      pair.String(),
		bids:        newBookSide(BUY),
		asks:        newBookSide(SELL),
		orders:      make(map[string]*RestingOrder),
		rules:       rules,
		ids:         ids,
		now:         now,
		lastUpdated: now(),
	}
}

// NewOrderBook builds a standalone book with uuid ids and the wall clock.
func NewOrderBook(pair TradingPair, rules ...OrderRule) *OrderBook {
	return newOrderBook(pair, uuidGenerator{}, time.Now, rules)
}

func (ob *OrderBook) Pair() TradingPair { return ob.pair }

func (ob *OrderBook) Submit(spec OrderSpec) (*ExecutionReport, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.submit(spec)
}

func (ob *OrderBook) Cancel(orderID string) (CancelledOrder, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.cancel(orderID)
}

func (ob *OrderBook) ExpireDayOrders() []CancelledOrder {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.expireDayOrders()
}

func (ob *OrderBook) BestBid() decimal.NullDecimal {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.bids.bestPrice()
}

func (ob *OrderBook) BestAsk() decimal.NullDecimal {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.asks.bestPrice()
}

func (ob *OrderBook) MidPrice() decimal.NullDecimal {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.midPrice()
}

func (ob *OrderBook) Snapshot(depth int) OrderBookSnapshot {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.snapshot(depth)
}

func (ob *OrderBook) MarketData() MarketData {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.marketData()
}

// Order returns a copy of a resting order.
func (ob *OrderBook) Order(orderID string) (RestingOrder, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	o, ok := ob.orders[orderID]
	if !ok {
		return RestingOrder{}, false
	}
	return *o, true
}

// Len is the number of resting orders.
func (ob *OrderBook) Len() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return len(ob.orders)
}

func (ob *OrderBook) Validate() error {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.validate()
}

func (ob *OrderBook) sideOf(side Side) *bookSide {
	if side == BUY {
		return ob.bids
	}
	return ob.asks
}

func (ob *OrderBook) touch(ts time.Time) {
	ob.midDirty = true
	ob.lastUpdated = ts
}

// insertResting appends o at the tail of the level for price on side.
func (ob *OrderBook) insertResting(side Side, price decimal.Decimal, o *RestingOrder, ts time.Time) {
	_, dup := ob.orders[o.ID]
	assertf(!dup, "duplicate order id %s", o.ID)
	assertf(o.RemainingQuantity.IsPositive(), "resting order %s without quantity", o.ID)

	ob.seq++
	o.Side = side
	o.Price = price
	o.Sequence = ob.seq

	ob.sideOf(side).levelFor(price).pushBack(o)
	ob.orders[o.ID] = o
	ob.touch(ts)

	bid, ask := ob.bids.bestPrice(), ob.asks.bestPrice()
	assertf(!bid.Valid || !ask.Valid || bid.Decimal.LessThan(ask.Decimal),
		"book %s crossed: bid %s ask %s", ob.symbol, bid.Decimal, ask.Decimal)
}

// remove takes a resting order off the book.
func (ob *OrderBook) remove(orderID string, ts time.Time) (*RestingOrder, error) {
	o, ok := ob.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrOrderNotFound, orderID, ob.symbol)
	}
	side := ob.sideOf(o.Side)
	level, ok := side.level(o.Price)
	assertf(ok, "order %s indexed at missing level %s", o.ID, o.Price)
	assertf(level.remove(o), "order %s missing from level %s", o.ID, o.Price)
	if level.empty() {
		side.deleteLevel(level)
	}
	delete(ob.orders, orderID)
	ob.touch(ts)
	return o, nil
}

func (ob *OrderBook) cancel(orderID string) (CancelledOrder, error) {
	now := ob.now()
	o, err := ob.remove(orderID, now)
	if err != nil {
		return CancelledOrder{}, err
	}
	return newCancelledOrder(ob.symbol, o, now), nil
}

func (ob *OrderBook) expireDayOrders() []CancelledOrder {
	var day []*RestingOrder
	for _, o := range ob.orders {
		if o.TimeInForce == DAY {
			day = append(day, o)
		}
	}
	if len(day) == 0 {
		return nil
	}
	sort.Slice(day, func(i, j int) bool { return day[i].Sequence < day[j].Sequence })

	now := ob.now()
	out := make([]CancelledOrder, 0, len(day))
	for _, o := range day {
		if _, err := ob.remove(o.ID, now); err != nil {
			continue
		}
		out = append(out, newCancelledOrder(ob.symbol, o, now))
	}
	return out
}

func (ob *OrderBook) midPrice() decimal.NullDecimal {
	if ob.midDirty {
		ob.mid = midOf(ob.bids.bestPrice(), ob.asks.bestPrice())
		ob.midDirty = false
	}
	return ob.mid
}

func (ob *OrderBook) snapshot(depth int) OrderBookSnapshot {
	if depth <= 0 {
		depth = DefaultSnapshotDepth
	}
	bid, ask := ob.bids.bestPrice(), ob.asks.bestPrice()
	return OrderBookSnapshot{
		Symbol:         ob.symbol,
		Bids:           quoteLevels(ob.bids, depth),
		Asks:           quoteLevels(ob.asks, depth),
		BestBid:        bid,
		BestAsk:        ask,
		MidPrice:       ob.midPrice(),
		Spread:         spreadOf(bid, ask),
		LastTradePrice: ob.lastTradePrice,
		Timestamp:      ob.now(),
	}
}

func quoteLevels(s *bookSide, depth int) []QuoteLevel {
	out := make([]QuoteLevel, 0, min(depth, s.len()))
	s.walk(func(l *PriceLevel) bool {
		out = append(out, QuoteLevel{Price: l.price, Quantity: l.totalQuantity, OrderCount: l.OrderCount()})
		return len(out) < depth
	})
	return out
}

func (ob *OrderBook) marketData() MarketData {
	bid, ask := ob.bids.bestPrice(), ob.asks.bestPrice()
	return MarketData{
		Symbol:         ob.symbol,
		BestBid:        bid,
		BestAsk:        ask,
		MidPrice:       ob.midPrice(),
		Spread:         spreadOf(bid, ask),
		LastTradePrice: ob.lastTradePrice,
		LastTradeAt:    ob.lastTradeAt,
		LastUpdated:    ob.lastUpdated,
	}
}

// validate re-derives every structural invariant and reports the first one
// that does not hold.
func (ob *OrderBook) validate() error {
	seen := 0
	for _, side := range []*bookSide{ob.bids, ob.asks} {
		var err error
		side.levels.Ascend(func(l *PriceLevel) bool {
			err = ob.validateLevel(side.side, l)
			seen += l.OrderCount()
			return err == nil
		})
		if err != nil {
			return err
		}

		var want *PriceLevel
		if side.side == BUY {
			want, _ = side.levels.Max()
		} else {
			want, _ = side.levels.Min()
		}
		if got := side.bestLevel(); got != want {
			return fmt.Errorf("%s %s: cached best level is stale", ob.symbol, side.side)
		}
	}
	if seen != len(ob.orders) {
		return fmt.Errorf("%s: index holds %d orders, levels hold %d", ob.symbol, len(ob.orders), seen)
	}

	bid, ask := ob.bids.bestPrice(), ob.asks.bestPrice()
	if bid.Valid && ask.Valid && !bid.Decimal.LessThan(ask.Decimal) {
		return fmt.Errorf("%s: crossed book, bid %s ask %s", ob.symbol, bid.Decimal, ask.Decimal)
	}
	if mid := midOf(bid, ask); !nullEqual(mid, ob.midPrice()) {
		return fmt.Errorf("%s: cached mid price is stale", ob.symbol)
	}
	return nil
}

func (ob *OrderBook) validateLevel(side Side, l *PriceLevel) error {
	if l.empty() {
		return fmt.Errorf("%s %s %s: empty level", ob.symbol, side, l.price)
	}
	total := decimal.Zero
	var prev uint64
	var err error
	l.each(func(o *RestingOrder) bool {
		switch {
		case !o.RemainingQuantity.IsPositive():
			err = fmt.Errorf("%s: order %s rests with remaining %s", ob.symbol, o.ID, o.RemainingQuantity)
		case o.Sequence <= prev:
			err = fmt.Errorf("%s: order %s out of arrival order at %s", ob.symbol, o.ID, l.price)
		case o.Side != side || !o.Price.Equal(l.price):
			err = fmt.Errorf("%s: order %s misplaced at %s %s", ob.symbol, o.ID, side, l.price)
		case ob.orders[o.ID] != o:
			err = fmt.Errorf("%s: order %s missing from index", ob.symbol, o.ID)
		}
		prev = o.Sequence
		total = total.Add(o.RemainingQuantity)
		return err == nil
	})
	if err != nil {
		return err
	}
	if !total.Equal(l.totalQuantity) {
		return fmt.Errorf("%s %s %s: level total %s, orders sum to %s", ob.symbol, side, l.price, l.totalQuantity, total)
	}
	return nil
}

func nullEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// locked runs fn under the book lock. When fn reports a change the market
// data is captured before the lock is released.
func (ob *OrderBook) locked(fn func() bool) (MarketData, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	if !fn() {
		return MarketData{}, false
	}
	return ob.marketData(), true
}
