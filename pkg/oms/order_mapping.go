package oms

import (
	"context"
	"fmt"
	"time"

	"github.com/joripage/matching-engine/pkg/oms/model"
	"go.uber.org/zap"
)

func (s *OMS) AddOrderToMap(order *model.Order) {
	s.orderIDMapping.Store(order.OrderID, order)
}

func (s *OMS) GetOrderByOrderID(orderID string) (*model.Order, error) {
	order, ok := s.orderIDMapping.Load(orderID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderIDNotFound, orderID)
	}
	return order.(*model.Order), nil
}

func (s *OMS) DeleteOrderByOrderID(orderID string) {
	s.orderIDMapping.Delete(orderID)
}

// StartCleaner evicts terminal order records every interval until ctx is
// done or Stop is called.
func (s *OMS) StartCleaner(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.cleanup(ctx)
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *OMS) cleanup(ctx context.Context) int {
	var evicted int
	s.orderIDMapping.Range(func(k, v any) bool {
		order := v.(*model.Order)

		unlock := s.lockSymbol(order.Symbol)
		end := order.IsEnd()
		unlock()

		if end {
			s.DeleteOrderByOrderID(order.OrderID)
			s.eventstore.DeleteChainByOrderID(order.OrderID)
			if order.ClientOrderID != "" {
				s.clientIDs.Delete(order.ClientOrderID)
			}
			evicted++
		}
		return true
	})
	if evicted > 0 {
		s.logger.Debug(ctx, "clean up", zap.Int("evicted", evicted))
	}
	return evicted
}
