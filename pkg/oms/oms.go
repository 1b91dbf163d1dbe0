package oms

import (
	"context"
	"fmt"
	"sync"

	"github.com/joripage/matching-engine/pkg/logging"
	eventstore "github.com/joripage/matching-engine/pkg/oms/event_store"
	"github.com/joripage/matching-engine/pkg/oms/model"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"go.uber.org/zap"
)

// OMS sits in front of the matching engine. It decodes client requests,
// keeps a lifecycle record per order and reports every change through the
// OrderGateway.
type OMS struct {
	engine       *orderbook.MatchingEngine
	orderGateway OrderGateway
	eventstore   eventstore.EventStore
	logger       *logging.Logger

	orderIDMapping sync.Map // OrderID -> *model.Order
	clientIDs      sync.Map // ClientOrderID -> OrderID, reserved before submit
	symbolLocks    sync.Map // symbol -> *sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
}

type Option func(*OMS)

func WithOrderGateway(g OrderGateway) Option {
	return func(s *OMS) { s.orderGateway = g }
}

func WithEventStore(es eventstore.EventStore) Option {
	return func(s *OMS) { s.eventstore = es }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *OMS) { s.logger = l }
}

func NewOMS(engine *orderbook.MatchingEngine, opts ...Option) *OMS {
	s := &OMS{
		engine:       engine,
		orderGateway: nopGateway{},
		eventstore:   eventstore.NewInMemoryEventStore(),
		logger:       logging.FromZap(zap.NewNop()),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OMS) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// lockSymbol serializes the post-processing of one market so that order
// records and events are updated in matching order.
func (s *OMS) lockSymbol(symbol string) func() {
	v, _ := s.symbolLocks.LoadOrStore(symbol, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *OMS) AddOrder(ctx context.Context, addOrder *model.AddOrder) (model.Order, error) {
	ctx = logging.NewRequestContext(ctx)

	clientID := addOrder.ClientOrderID
	if clientID != "" {
		if _, loaded := s.clientIDs.LoadOrStore(clientID, ""); loaded {
			return model.Order{}, fmt.Errorf("%w: %s", ErrDuplicateOrder, clientID)
		}
	}
	release := func() {
		if clientID != "" {
			s.clientIDs.Delete(clientID)
		}
	}

	pair, spec, err := addOrder.Decode()
	if err != nil {
		release()
		s.logger.Debug(ctx, "add order decode fail", zap.String("client_order_id", clientID), zap.Error(err))
		return model.Order{}, err
	}

	unlock := s.lockSymbol(pair.String())
	defer unlock()

	report, err := s.engine.SubmitOrder(pair, spec)
	if report == nil {
		release()
		s.logger.Info(ctx, "add order refused", zap.Stringer("pair", pair), zap.Error(err))
		return model.Order{}, err
	}

	order := model.NewOrder(clientID, report)
	s.AddOrderToMap(order)
	if clientID != "" {
		s.clientIDs.Store(clientID, order.OrderID)
		s.eventstore.TrackClientOrderID(clientID, order.OrderID)
	}

	updates := s.processExecutionReport(order, report)
	s.orderGateway.OnOrderReport(ctx, report.Symbol, updates...)

	s.logger.Debug(ctx, "add order done",
		zap.String("order_id", order.OrderID),
		zap.Stringer("status", order.Status),
		zap.Int("trades", len(report.Trades)),
	)
	return *order, err
}

// processExecutionReport appends the taker's events and applies each fill to
// the resting maker's record. It returns the taker followed by every touched
// maker.
func (s *OMS) processExecutionReport(order *model.Order, report *orderbook.ExecutionReport) []model.Order {
	updates := []model.Order{}
	s.eventstore.AddEvent(model.NewOrderEvent(*order, model.ExecTypeNew, report.Timestamp))

	for _, t := range report.Trades {
		s.eventstore.AddEvent(model.NewTradeEvent(*order, t))

		maker, err := s.GetOrderByOrderID(t.MakerOrderID)
		if err != nil {
			s.logger.Warn(context.Background(), "maker order not tracked",
				zap.String("order_id", t.MakerOrderID), zap.String("trade_id", t.ID))
			continue
		}
		maker.UpdateMakerFill(t)
		s.eventstore.AddEvent(model.NewTradeEvent(*maker, t))
		updates = append(updates, *maker)
	}

	switch order.Status {
	case orderbook.StatusCancelled:
		s.eventstore.AddEvent(model.NewOrderEvent(*order, model.ExecTypeCanceled, report.Timestamp))
	case orderbook.StatusRejected:
		s.eventstore.AddEvent(model.NewOrderEvent(*order, model.ExecTypeRejected, report.Timestamp))
	}

	return append([]model.Order{*order}, updates...)
}

func (s *OMS) CancelOrder(ctx context.Context, cancelOrder *model.CancelOrder) (model.Order, error) {
	ctx = logging.NewRequestContext(ctx)
	if err := cancelOrder.Validate(); err != nil {
		return model.Order{}, err
	}

	orderID := cancelOrder.OrderID
	if orderID == "" {
		orderID = s.eventstore.GetOrderID(cancelOrder.ClientOrderID)
	}
	order, err := s.GetOrderByOrderID(orderID)
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: %w", orderbook.ErrOrderNotFound, err)
	}
	pair, err := orderbook.ParseTradingPair(order.Symbol)
	if err != nil {
		return model.Order{}, err
	}

	unlock := s.lockSymbol(order.Symbol)
	defer unlock()

	if !order.CanCancel() {
		return model.Order{}, fmt.Errorf("%w: order %s is %s", orderbook.ErrOrderNotFound, orderID, order.Status)
	}

	cancelled, err := s.engine.CancelOrder(pair, orderID)
	if err != nil {
		s.logger.Warn(ctx, "cancel order fail", zap.String("order_id", orderID), zap.Error(err))
		return model.Order{}, err
	}

	order.UpdateCancel(cancelled, model.ExecTypeCanceled)
	s.eventstore.AddEvent(model.NewOrderEvent(*order, model.ExecTypeCanceled, cancelled.Timestamp))
	s.orderGateway.OnOrderReport(ctx, order.Symbol, *order)

	s.logger.Debug(ctx, "cancel order done", zap.String("order_id", orderID))
	return *order, nil
}

// ModifyOrder amends a resting order. Makers hit while the amended order
// re-enters the book are updated like on AddOrder.
func (s *OMS) ModifyOrder(ctx context.Context, modifyOrder *model.ModifyOrder) (model.Order, error) {
	ctx = logging.NewRequestContext(ctx)
	if err := modifyOrder.Validate(); err != nil {
		return model.Order{}, err
	}

	orderID := modifyOrder.OrderID
	if orderID == "" {
		orderID = s.eventstore.GetOrderID(modifyOrder.ClientOrderID)
	}
	order, err := s.GetOrderByOrderID(orderID)
	if err != nil {
		return model.Order{}, fmt.Errorf("%w: %w", orderbook.ErrOrderNotFound, err)
	}
	pair, err := orderbook.ParseTradingPair(order.Symbol)
	if err != nil {
		return model.Order{}, err
	}

	unlock := s.lockSymbol(order.Symbol)
	defer unlock()

	if !order.CanCancel() {
		return model.Order{}, fmt.Errorf("%w: order %s is %s", orderbook.ErrOrderNotFound, orderID, order.Status)
	}

	report, err := s.engine.ModifyOrder(pair, orderID, modifyOrder.Price, modifyOrder.Quantity)
	if err != nil {
		s.logger.Info(ctx, "modify order refused", zap.String("order_id", orderID), zap.Error(err))
		return model.Order{}, err
	}

	order.UpdateReplace(report)
	s.eventstore.AddEvent(model.NewReplaceEvent(*order))
	updates := []model.Order{*order}
	for _, t := range report.Trades {
		s.eventstore.AddEvent(model.NewTradeEvent(*order, t))
		maker, err := s.GetOrderByOrderID(t.MakerOrderID)
		if err != nil {
			s.logger.Warn(ctx, "maker order not tracked", zap.String("order_id", t.MakerOrderID), zap.String("trade_id", t.ID))
			continue
		}
		maker.UpdateMakerFill(t)
		s.eventstore.AddEvent(model.NewTradeEvent(*maker, t))
		updates = append(updates, *maker)
	}
	s.orderGateway.OnOrderReport(ctx, order.Symbol, updates...)

	s.logger.Debug(ctx, "modify order done",
		zap.String("order_id", orderID),
		zap.Stringer("status", order.Status),
		zap.Int("trades", len(report.Trades)),
	)
	return *order, nil
}

// ExpireDayOrders ends the session for every market: all resting DAY orders
// are cancelled with an Expired event.
func (s *OMS) ExpireDayOrders(ctx context.Context) ([]model.Order, error) {
	ctx = logging.NewRequestContext(ctx)

	var out []model.Order
	for _, pair := range s.engine.Markets() {
		expired, err := s.expireMarket(ctx, pair)
		if err != nil {
			return out, err
		}
		out = append(out, expired...)
	}
	s.logger.Info(ctx, "day orders expired", zap.Int("count", len(out)))
	return out, nil
}

func (s *OMS) expireMarket(ctx context.Context, pair orderbook.TradingPair) ([]model.Order, error) {
	unlock := s.lockSymbol(pair.String())
	defer unlock()

	cancelled, err := s.engine.ExpireDayOrders(pair)
	if err != nil {
		return nil, err
	}

	var updates []model.Order
	for _, c := range cancelled {
		order, err := s.GetOrderByOrderID(c.OrderID)
		if err != nil {
			continue
		}
		order.UpdateCancel(c, model.ExecTypeExpired)
		s.eventstore.AddEvent(model.NewOrderEvent(*order, model.ExecTypeExpired, c.Timestamp))
		updates = append(updates, *order)
	}
	if len(updates) > 0 {
		s.orderGateway.OnOrderReport(ctx, pair.String(), updates...)
	}
	return updates, nil
}

// GetOrder returns a copy of the current record.
func (s *OMS) GetOrder(orderID string) (model.Order, error) {
	order, err := s.GetOrderByOrderID(orderID)
	if err != nil {
		return model.Order{}, err
	}
	unlock := s.lockSymbol(order.Symbol)
	defer unlock()
	return *order, nil
}

// History returns the event chain of an order, oldest first.
func (s *OMS) History(orderID string) []*model.OrderEvent {
	return s.eventstore.Events(orderID)
}
