package orderbook

import (
	"sort"

	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"
)

// PriceLevel is the FIFO queue of resting orders sharing one price.
type PriceLevel struct {
	price         decimal.Decimal
	orders        deque.Deque[*RestingOrder]
	totalQuantity decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{price: price, totalQuantity: decimal.Zero}
}

func (l *PriceLevel) Price() decimal.Decimal         { return l.price }
func (l *PriceLevel) TotalQuantity() decimal.Decimal { return l.totalQuantity }
func (l *PriceLevel) OrderCount() int                { return l.orders.Len() }
func (l *PriceLevel) empty() bool                    { return l.orders.Len() == 0 }

func (l *PriceLevel) pushBack(o *RestingOrder) {
	if n := l.orders.Len(); n > 0 {
		assertf(l.orders.Back().Sequence < o.Sequence,
			"level %s: sequence %d after %d", l.price, o.Sequence, l.orders.Back().Sequence)
	}
	l.orders.PushBack(o)
	l.totalQuantity = l.totalQuantity.Add(o.RemainingQuantity)
}

func (l *PriceLevel) front() *RestingOrder {
	return l.orders.Front()
}

// fill consumes qty from the head order. The head is popped once exhausted.
func (l *PriceLevel) fill(qty decimal.Decimal) *RestingOrder {
	head := l.orders.Front()
	head.RemainingQuantity = head.RemainingQuantity.Sub(qty)
	l.totalQuantity = l.totalQuantity.Sub(qty)
	assertf(!head.RemainingQuantity.IsNegative(), "order %s overfilled", head.ID)
	assertf(!l.totalQuantity.IsNegative(), "level %s negative total", l.price)
	if head.RemainingQuantity.IsZero() {
		l.orders.PopFront()
	}
	return head
}

// reduce takes qty off o without moving it in the queue.
func (l *PriceLevel) reduce(o *RestingOrder, qty decimal.Decimal) {
	o.RemainingQuantity = o.RemainingQuantity.Sub(qty)
	l.totalQuantity = l.totalQuantity.Sub(qty)
	assertf(o.RemainingQuantity.IsPositive(), "order %s reduced to %s", o.ID, o.RemainingQuantity)
	assertf(!l.totalQuantity.IsNegative(), "level %s negative total", l.price)
}

// remove unlinks o using its arrival sequence to locate the FIFO position.
func (l *PriceLevel) remove(o *RestingOrder) bool {
	n := l.orders.Len()
	i := sort.Search(n, func(i int) bool { return l.orders.At(i).Sequence >= o.Sequence })
	if i == n || l.orders.At(i) != o {
		return false
	}
	l.orders.Remove(i)
	l.totalQuantity = l.totalQuantity.Sub(o.RemainingQuantity)
	assertf(!l.totalQuantity.IsNegative(), "level %s negative total", l.price)
	return true
}

// each visits orders in arrival order until fn returns false.
func (l *PriceLevel) each(fn func(*RestingOrder) bool) {
	for i := 0; i < l.orders.Len(); i++ {
		if !fn(l.orders.At(i)) {
			return
		}
	}
}
