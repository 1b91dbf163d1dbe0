package eventstore

import "github.com/joripage/matching-engine/pkg/oms/model"

type EventStore interface {
	AddEvent(ev *model.OrderEvent)
	Events(orderID string) []*model.OrderEvent
	TrackClientOrderID(clientOrderID, orderID string)
	GetOrderID(clientOrderID string) string
	DeleteChainByOrderID(orderID string)
}
