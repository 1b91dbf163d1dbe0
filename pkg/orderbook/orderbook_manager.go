package orderbook

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BookEvent is emitted after every pass that changed a book. It is delivered
// after the book lock is released.
type BookEvent struct {
	Pair      TradingPair
	Trades    []Trade
	Market    MarketData
	Timestamp time.Time
}

type EventHandler func(BookEvent)

type Option func(*MatchingEngine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *MatchingEngine) { e.logger = logger }
}

func WithIDGenerator(ids IDGenerator) Option {
	return func(e *MatchingEngine) { e.ids = ids }
}

func WithClock(now func() time.Time) Option {
	return func(e *MatchingEngine) { e.now = now }
}

type MarketOption func(*marketConfig)

type marketConfig struct {
	rules []OrderRule
}

// WithRules attaches admission rules to a market on its first registration.
func WithRules(rules ...OrderRule) MarketOption {
	return func(c *marketConfig) { c.rules = append(c.rules, rules...) }
}

// MatchingEngine owns the order book of every registered market. Books are
// independent; each is linearized by its own mutex.
type MatchingEngine struct {
	books sync.Map // TradingPair -> *OrderBook

	handlersMu sync.RWMutex
	handlers   []EventHandler

	logger *zap.Logger
	ids    IDGenerator
	now    func() time.Time
}

func NewMatchingEngine(opts ...Option) *MatchingEngine {
	e := &MatchingEngine{
		logger: zap.NewNop(),
		ids:    uuidGenerator{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterMarket creates an empty book for pair. Registering a known pair is
// a no-op and keeps its original rules.
func (e *MatchingEngine) RegisterMarket(pair TradingPair, opts ...MarketOption) {
	if _, ok := e.books.Load(pair); ok {
		return
	}
	var cfg marketConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	book := newOrderBook(pair, e.ids, e.now, cfg.rules)
	if _, loaded := e.books.LoadOrStore(pair, book); !loaded {
		e.logger.Info("market registered", zap.Stringer("pair", pair), zap.Int("rules", len(cfg.rules)))
	}
}

// Markets lists the registered pairs sorted by symbol.
func (e *MatchingEngine) Markets() []TradingPair {
	var out []TradingPair
	e.books.Range(func(k, _ any) bool {
		out = append(out, k.(TradingPair))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (e *MatchingEngine) Book(pair TradingPair) (*OrderBook, error) {
	if v, ok := e.books.Load(pair); ok {
		return v.(*OrderBook), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, pair)
}

func (e *MatchingEngine) SubmitOrder(pair TradingPair, spec OrderSpec) (*ExecutionReport, error) {
	book, err := e.Book(pair)
	if err != nil {
		return nil, err
	}

	var report *ExecutionReport
	md, changed := book.locked(func() bool {
		report, err = book.submit(spec)
		return report != nil && (len(report.Trades) > 0 || report.Status == StatusActive)
	})

	switch {
	case report == nil:
		e.logger.Debug("order invalid", zap.Stringer("pair", pair), zap.Error(err))
		return nil, err
	case err != nil:
		e.logger.Info("order rejected", zap.Stringer("pair", pair), zap.String("order_id", report.OrderID), zap.Error(err))
	default:
		e.logger.Debug("order processed",
			zap.Stringer("pair", pair),
			zap.String("order_id", report.OrderID),
			zap.Stringer("status", report.Status),
			zap.Int("trades", len(report.Trades)),
		)
	}

	if changed {
		e.emit(BookEvent{Pair: pair, Trades: report.Trades, Market: md, Timestamp: report.Timestamp})
	}
	return report, err
}

func (e *MatchingEngine) CancelOrder(pair TradingPair, orderID string) (CancelledOrder, error) {
	book, err := e.Book(pair)
	if err != nil {
		return CancelledOrder{}, err
	}

	var cancelled CancelledOrder
	md, _ := book.locked(func() bool {
		cancelled, err = book.cancel(orderID)
		return err == nil
	})

	if err != nil {
		return CancelledOrder{}, err
	}
	e.logger.Debug("order cancelled", zap.Stringer("pair", pair), zap.String("order_id", orderID))
	e.emit(BookEvent{Pair: pair, Market: md, Timestamp: cancelled.Timestamp})
	return cancelled, nil
}

// ExpireDayOrders cancels every resting DAY order of pair at session end.
func (e *MatchingEngine) ExpireDayOrders(pair TradingPair) ([]CancelledOrder, error) {
	book, err := e.Book(pair)
	if err != nil {
		return nil, err
	}

	var expired []CancelledOrder
	md, changed := book.locked(func() bool {
		expired = book.expireDayOrders()
		return len(expired) > 0
	})

	if changed {
		e.logger.Info("day orders expired", zap.Stringer("pair", pair), zap.Int("count", len(expired)))
		e.emit(BookEvent{Pair: pair, Market: md, Timestamp: expired[0].Timestamp})
	}
	return expired, nil
}

// ModifyOrder amends a resting order of pair. See OrderBook.Modify.
func (e *MatchingEngine) ModifyOrder(pair TradingPair, orderID string, price, quantity decimal.Decimal) (*ExecutionReport, error) {
	book, err := e.Book(pair)
	if err != nil {
		return nil, err
	}

	var report *ExecutionReport
	md, changed := book.locked(func() bool {
		var moved bool
		report, moved, err = book.modify(orderID, price, quantity)
		return moved
	})
	if err != nil {
		e.logger.Debug("modify refused", zap.Stringer("pair", pair), zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}

	e.logger.Debug("order modified",
		zap.Stringer("pair", pair),
		zap.String("order_id", orderID),
		zap.Stringer("status", report.Status),
		zap.Int("trades", len(report.Trades)),
	)
	if changed {
		e.emit(BookEvent{Pair: pair, Trades: report.Trades, Market: md, Timestamp: report.Timestamp})
	}
	return report, nil
}

func (e *MatchingEngine) Snapshot(pair TradingPair, depth int) (OrderBookSnapshot, error) {
	book, err := e.Book(pair)
	if err != nil {
		return OrderBookSnapshot{}, err
	}
	return book.Snapshot(depth), nil
}

func (e *MatchingEngine) MarketData(pair TradingPair) (MarketData, error) {
	book, err := e.Book(pair)
	if err != nil {
		return MarketData{}, err
	}
	return book.MarketData(), nil
}

// Subscribe registers a handler for book events. Handlers run on the
// submitting goroutine and must not block.
func (e *MatchingEngine) Subscribe(handler EventHandler) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.handlers = append(e.handlers, handler)
}

func (e *MatchingEngine) emit(ev BookEvent) {
	e.handlersMu.RLock()
	handlers := e.handlers
	e.handlersMu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}
