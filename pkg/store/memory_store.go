package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/joripage/matching-engine/pkg/oms/model"
	"github.com/joripage/matching-engine/pkg/orderbook"
)

// MemoryStore keeps records in process. It honours the same idempotency
// rules as SQLStore, including never replacing an order with an older state.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]OrderRecord
	trades map[string]TradeRecord
	order  []string // trade ids in insertion order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]OrderRecord),
		trades: make(map[string]TradeRecord),
	}
}

func (s *MemoryStore) SaveTrades(_ context.Context, trades []orderbook.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range trades {
		if _, ok := s.trades[t.ID]; ok {
			continue
		}
		s.trades[t.ID] = NewTradeRecord(t)
		s.order = append(s.order, t.ID)
	}
	return nil
}

func (s *MemoryStore) SaveOrders(_ context.Context, orders []model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		rec := NewOrderRecord(o)
		if prev, ok := s.orders[o.OrderID]; ok {
			if rec.UpdatedAt.Before(prev.UpdatedAt) {
				continue
			}
			prev.Price = rec.Price
			prev.Quantity = rec.Quantity
			prev.FilledQuantity = rec.FilledQuantity
			prev.Status = rec.Status
			prev.UpdatedAt = rec.UpdatedAt
			rec = prev
		}
		s.orders[o.OrderID] = rec
	}
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, orderID string) (*OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return &rec, nil
}

func (s *MemoryStore) ListTrades(_ context.Context, symbol string, limit int) ([]TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TradeRecord
	for i := len(s.order) - 1; i >= 0; i-- {
		rec := s.trades[s.order[i]]
		if rec.Symbol != symbol {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExecutedAt.After(out[j].ExecutedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
