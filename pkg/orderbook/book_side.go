package orderbook

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

const btreeDegree = 32

// bookSide keeps the price levels of one side ordered by price. Bids are
// best at Max, asks at Min.
type bookSide struct {
	side   Side
	levels *btree.BTreeG[*PriceLevel]

	best  *PriceLevel
	dirty bool
}

func newBookSide(side Side) *bookSide {
	return &bookSide{
		side: side,
		levels: btree.NewG(btreeDegree, func(a, b *PriceLevel) bool {
			return a.price.LessThan(b.price)
		}),
	}
}

func (s *bookSide) len() int { return s.levels.Len() }

func (s *bookSide) level(price decimal.Decimal) (*PriceLevel, bool) {
	return s.levels.Get(&PriceLevel{price: price})
}

// levelFor returns the level at price, creating it when absent.
func (s *bookSide) levelFor(price decimal.Decimal) *PriceLevel {
	if l, ok := s.level(price); ok {
		return l
	}
	l := newPriceLevel(price)
	s.levels.ReplaceOrInsert(l)
	if !s.dirty && (s.best == nil || s.better(price, s.best.price)) {
		s.best = l
	}
	return l
}

func (s *bookSide) deleteLevel(l *PriceLevel) {
	assertf(l.empty(), "deleting non-empty level %s", l.price)
	s.levels.Delete(l)
	if s.best == l {
		s.best = nil
		s.dirty = true
	}
}

// better reports whether a is a more aggressive price than b on this side.
func (s *bookSide) better(a, b decimal.Decimal) bool {
	if s.side == BUY {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

func (s *bookSide) bestLevel() *PriceLevel {
	if s.dirty {
		s.best = nil
		var (
			l  *PriceLevel
			ok bool
		)
		if s.side == BUY {
			l, ok = s.levels.Max()
		} else {
			l, ok = s.levels.Min()
		}
		if ok {
			s.best = l
		}
		s.dirty = false
	}
	return s.best
}

func (s *bookSide) bestPrice() decimal.NullDecimal {
	if l := s.bestLevel(); l != nil {
		return decimal.NewNullDecimal(l.price)
	}
	return decimal.NullDecimal{}
}

// walk visits levels from best to worst until fn returns false.
func (s *bookSide) walk(fn func(*PriceLevel) bool) {
	if s.side == BUY {
		s.levels.Descend(fn)
		return
	}
	s.levels.Ascend(fn)
}
