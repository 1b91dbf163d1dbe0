package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/joripage/matching-engine/pkg/oms/model"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const batchSize = 500

type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// SaveTrades inserts trades, skipping ids that are already stored.
func (s *SQLStore) SaveTrades(ctx context.Context, trades []orderbook.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	records := make([]TradeRecord, len(trades))
	for i, t := range trades {
		records[i] = NewTradeRecord(t)
	}
	err := s.dbWithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "trade_id"}}, DoNothing: true}).
		CreateInBatches(records, batchSize).Error
	if err != nil {
		return fmt.Errorf("save trades: %w", err)
	}
	return nil
}

// SaveOrders upserts the latest state of each order. A stored row is never
// replaced by an older state.
func (s *SQLStore) SaveOrders(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	// one row per order id, a single INSERT may not touch a row twice
	latest := make(map[string]int, len(orders))
	records := make([]OrderRecord, 0, len(orders))
	for _, o := range orders {
		rec := NewOrderRecord(o)
		if i, ok := latest[rec.OrderID]; ok {
			if !rec.UpdatedAt.Before(records[i].UpdatedAt) {
				records[i] = rec
			}
			continue
		}
		latest[rec.OrderID] = len(records)
		records = append(records, rec)
	}
	err := s.dbWithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "quantity", "filled_quantity", "status", "updated_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "orders.updated_at <= EXCLUDED.updated_at"},
			}},
		}).
		CreateInBatches(records, batchSize).Error
	if err != nil {
		return fmt.Errorf("save orders: %w", err)
	}
	return nil
}

func (s *SQLStore) GetOrder(ctx context.Context, orderID string) (*OrderRecord, error) {
	var rec OrderRecord
	err := s.dbWithContext(ctx).Where("order_id = ?", orderID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListTrades returns the latest trades of symbol, newest first.
func (s *SQLStore) ListTrades(ctx context.Context, symbol string, limit int) ([]TradeRecord, error) {
	var recs []TradeRecord
	q := s.dbWithContext(ctx).Where("symbol = ?", symbol).Order("executed_at DESC, trade_id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
