package sink

import (
	"context"

	"github.com/joripage/matching-engine/pkg/ledger"
	"github.com/joripage/matching-engine/pkg/tradefeed"
	"go.uber.org/zap"
)

// LedgerSink settles every trade of a book event into the ledger.
type LedgerSink struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

func NewLedgerSink(l *ledger.Ledger, logger *zap.Logger) *LedgerSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerSink{ledger: l, logger: logger}
}

func (s *LedgerSink) Name() string { return NameLedger }

func (s *LedgerSink) Handle(_ context.Context, ev tradefeed.Event) error {
	if ev.Kind != tradefeed.KindBook {
		return nil
	}
	for _, t := range ev.Trades {
		applied, err := s.ledger.ApplyTrade(t)
		if err != nil {
			return err
		}
		if !applied {
			s.logger.Debug("trade already settled", zap.String("trade_id", t.ID))
		}
	}
	return nil
}
