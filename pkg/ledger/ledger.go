package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Position is a user's signed holding in one symbol. Quantity is negative
// when short.
type Position struct {
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	AvgCost     decimal.Decimal `json:"avg_cost"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
}

// UnrealizedPnL values the open quantity at mark.
func (p Position) UnrealizedPnL(mark decimal.Decimal) decimal.Decimal {
	return mark.Sub(p.AvgCost).Mul(p.Quantity)
}

// apply books a signed quantity change at price.
func (p *Position) apply(delta, price decimal.Decimal) {
	if p.Quantity.IsZero() || p.Quantity.Sign() == delta.Sign() {
		total := p.Quantity.Add(delta)
		cost := p.AvgCost.Mul(p.Quantity.Abs()).Add(price.Mul(delta.Abs()))
		p.AvgCost = cost.Div(total.Abs())
		p.Quantity = total
		return
	}

	closing := decimal.Min(p.Quantity.Abs(), delta.Abs())
	pnl := price.Sub(p.AvgCost).Mul(closing)
	if p.Quantity.IsNegative() {
		pnl = pnl.Neg()
	}
	p.RealizedPnL = p.RealizedPnL.Add(pnl)

	p.Quantity = p.Quantity.Add(delta)
	switch {
	case p.Quantity.IsZero():
		p.AvgCost = decimal.Zero
	case p.Quantity.Sign() == delta.Sign():
		// flipped through zero, the remainder opens at price
		p.AvgCost = price
	}
}

type Account struct {
	UserID    int64                      `json:"user_id"`
	Cash      map[string]decimal.Decimal `json:"cash"`
	Positions map[string]Position        `json:"positions"`
}

func newAccount(userID int64) *Account {
	return &Account{
		UserID:    userID,
		Cash:      make(map[string]decimal.Decimal),
		Positions: make(map[string]Position),
	}
}

func (a *Account) clone() Account {
	out := Account{
		UserID:    a.UserID,
		Cash:      make(map[string]decimal.Decimal, len(a.Cash)),
		Positions: make(map[string]Position, len(a.Positions)),
	}
	for k, v := range a.Cash {
		out.Cash[k] = v
	}
	for k, v := range a.Positions {
		out.Positions[k] = v
	}
	return out
}

// Ledger applies trades to user cash and positions exactly once per trade id.
type Ledger struct {
	mu       sync.Mutex
	accounts map[int64]*Account
	applied  map[string]struct{}
}

func New() *Ledger {
	return &Ledger{
		accounts: make(map[int64]*Account),
		applied:  make(map[string]struct{}),
	}
}

func (l *Ledger) account(userID int64) *Account {
	a, ok := l.accounts[userID]
	if !ok {
		a = newAccount(userID)
		l.accounts[userID] = a
	}
	return a
}

func (l *Ledger) Deposit(userID int64, asset string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: deposit %s", ErrInvalidAmount, amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	a := l.account(userID)
	a.Cash[asset] = a.Cash[asset].Add(amount)
	return nil
}

// ApplyTrade moves the notional in the quote asset from buyer to seller and
// updates both positions. A trade id seen before is ignored and reported
// as not applied.
func (l *Ledger) ApplyTrade(t orderbook.Trade) (bool, error) {
	pair, err := orderbook.ParseTradingPair(t.Symbol)
	if err != nil {
		return false, err
	}
	if !t.Quantity.IsPositive() || !t.Price.IsPositive() {
		return false, fmt.Errorf("%w: trade %s %s@%s", ErrInvalidAmount, t.ID, t.Quantity, t.Price)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.applied[t.ID]; ok {
		return false, nil
	}
	l.applied[t.ID] = struct{}{}

	notional := t.Notional()

	buyer := l.account(t.BuyerUserID)
	buyer.Cash[pair.Quote] = buyer.Cash[pair.Quote].Sub(notional)
	l.applyPosition(buyer, t.Symbol, t.Quantity, t.Price)

	seller := l.account(t.SellerUserID)
	seller.Cash[pair.Quote] = seller.Cash[pair.Quote].Add(notional)
	l.applyPosition(seller, t.Symbol, t.Quantity.Neg(), t.Price)

	return true, nil
}

func (l *Ledger) applyPosition(a *Account, symbol string, delta, price decimal.Decimal) {
	p, ok := a.Positions[symbol]
	if !ok {
		p = Position{Symbol: symbol}
	}
	p.apply(delta, price)
	a.Positions[symbol] = p
}

// Account returns a copy of the user's balances. Unknown users get an empty
// account.
func (l *Ledger) Account(userID int64) Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.accounts[userID]; ok {
		return a.clone()
	}
	return newAccount(userID).clone()
}
