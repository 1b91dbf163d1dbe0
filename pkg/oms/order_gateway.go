package oms

import (
	"context"

	"github.com/joripage/matching-engine/pkg/oms/model"
)

// OrderGateway receives order state changes on their way back to clients.
// Implementations must not block.
type OrderGateway interface {
	OnOrderReport(ctx context.Context, symbol string, orders ...model.Order)
}

type nopGateway struct{}

func (nopGateway) OnOrderReport(context.Context, string, ...model.Order) {}
