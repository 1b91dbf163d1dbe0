package eventstore

import (
	"sync"

	"github.com/joripage/matching-engine/pkg/oms/model"
)

type InMemoryEventStore struct {
	mu       sync.RWMutex
	orders   map[string][]*model.OrderEvent
	seen     map[string]struct{} // event ids already appended
	clientID map[string]string   // ClientOrderID -> OrderID
	orderCl  map[string]string   // OrderID -> ClientOrderID
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		orders:   make(map[string][]*model.OrderEvent),
		seen:     make(map[string]struct{}),
		clientID: make(map[string]string),
		orderCl:  make(map[string]string),
	}
}

// AddEvent appends ev to its order's history. Replays of the same event id
// are ignored.
func (s *InMemoryEventStore) AddEvent(ev *model.OrderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[ev.EventID]; ok {
		return
	}
	s.seen[ev.EventID] = struct{}{}
	s.orders[ev.OrderID] = append(s.orders[ev.OrderID], ev)

	if ev.ClientOrderID != "" {
		s.track(ev.ClientOrderID, ev.OrderID)
	}
}

func (s *InMemoryEventStore) Events(orderID string) []*model.OrderEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.orders[orderID]
	out := make([]*model.OrderEvent, len(evs))
	copy(out, evs)
	return out
}

func (s *InMemoryEventStore) TrackClientOrderID(clientOrderID, orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track(clientOrderID, orderID)
}

func (s *InMemoryEventStore) track(clientOrderID, orderID string) {
	s.clientID[clientOrderID] = orderID
	s.orderCl[orderID] = clientOrderID
}

func (s *InMemoryEventStore) GetOrderID(clientOrderID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.clientID[clientOrderID]
}

// DeleteChainByOrderID drops the history and client id mapping of an order.
func (s *InMemoryEventStore) DeleteChainByOrderID(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range s.orders[orderID] {
		delete(s.seen, ev.EventID)
	}
	delete(s.orders, orderID)
	if cl, ok := s.orderCl[orderID]; ok {
		delete(s.clientID, cl)
		delete(s.orderCl, orderID)
	}
}
