package sink

import (
	"context"

	"github.com/joripage/matching-engine/pkg/store"
	"github.com/joripage/matching-engine/pkg/tradefeed"
)

// StoreSink persists trades from book events and order records from order
// events.
type StoreSink struct {
	store store.Store
}

func NewStoreSink(s store.Store) *StoreSink {
	return &StoreSink{store: s}
}

func (s *StoreSink) Name() string { return NameStore }

func (s *StoreSink) Handle(ctx context.Context, ev tradefeed.Event) error {
	switch ev.Kind {
	case tradefeed.KindBook:
		if len(ev.Trades) == 0 {
			return nil
		}
		return s.store.SaveTrades(ctx, ev.Trades)
	case tradefeed.KindOrder:
		if len(ev.Orders) == 0 {
			return nil
		}
		return s.store.SaveOrders(ctx, ev.Orders)
	}
	return nil
}
