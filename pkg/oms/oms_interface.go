package oms

import (
	"context"

	"github.com/joripage/matching-engine/pkg/oms/model"
)

type IOMS interface {
	AddOrder(ctx context.Context, addOrder *model.AddOrder) (model.Order, error)
	CancelOrder(ctx context.Context, cancelOrder *model.CancelOrder) (model.Order, error)
	ModifyOrder(ctx context.Context, modifyOrder *model.ModifyOrder) (model.Order, error)
	ExpireDayOrders(ctx context.Context) ([]model.Order, error)
	GetOrder(orderID string) (model.Order, error)
	History(orderID string) []*model.OrderEvent
}

var _ IOMS = (*OMS)(nil)
