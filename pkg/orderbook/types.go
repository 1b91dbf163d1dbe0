package orderbook

import (
	"fmt"
	"strings"
)

// TradingPair identifies a market. It is comparable and used directly as the
// registry key.
type TradingPair struct {
	Base  string
	Quote string
}

func NewTradingPair(base, quote string) TradingPair {
	return TradingPair{Base: strings.ToUpper(base), Quote: strings.ToUpper(quote)}
}

// ParseTradingPair decodes "BASE/QUOTE".
func ParseTradingPair(s string) (TradingPair, error) {
	base, quote, ok := strings.Cut(s, "/")
	if !ok || base == "" || quote == "" {
		return TradingPair{}, fmt.Errorf("%w: malformed trading pair %q", ErrInvalidOrder, s)
	}
	return NewTradingPair(strings.TrimSpace(base), strings.TrimSpace(quote)), nil
}

func (p TradingPair) String() string {
	return p.Base + "/" + p.Quote
}

type Side uint8

const (
	BUY Side = iota + 1
	SELL
)

func (s Side) String() string {
	switch s {
	case BUY:
		return "buy"
	case SELL:
		return "sell"
	}
	return "unknown"
}

// Opposite returns the side a taker on s matches against.
func (s Side) Opposite() Side {
	if s == BUY {
		return SELL
	}
	return BUY
}

func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "bid":
		return BUY, nil
	case "sell", "ask":
		return SELL, nil
	}
	return 0, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, s)
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

type OrderType uint8

const (
	LIMIT OrderType = iota + 1
	MARKET
)

func (t OrderType) String() string {
	switch t {
	case LIMIT:
		return "limit"
	case MARKET:
		return "market"
	}
	return "unknown"
}

func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "limit":
		return LIMIT, nil
	case "market":
		return MARKET, nil
	}
	return 0, fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, s)
}

func (t OrderType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *OrderType) UnmarshalText(b []byte) error {
	v, err := ParseOrderType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

type TimeInForce uint8

const (
	GTC TimeInForce = iota + 1 // good till cancel
	IOC                        // immediate or cancel
	FOK                        // fill or kill
	DAY                        // rests until the session is expired
)

func (tif TimeInForce) String() string {
	switch tif {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	case DAY:
		return "DAY"
	}
	return "unknown"
}

// ParseTimeInForce decodes a time in force. An empty string means GTC.
func ParseTimeInForce(s string) (TimeInForce, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "GTC":
		return GTC, nil
	case "IOC":
		return IOC, nil
	case "FOK":
		return FOK, nil
	case "DAY":
		return DAY, nil
	}
	return 0, fmt.Errorf("%w: unknown time in force %q", ErrInvalidOrder, s)
}

// rests reports whether an unfilled limit remainder is kept on the book.
func (tif TimeInForce) rests() bool {
	return tif == GTC || tif == DAY
}

func (tif TimeInForce) MarshalText() ([]byte, error) {
	return []byte(tif.String()), nil
}

func (tif *TimeInForce) UnmarshalText(b []byte) error {
	v, err := ParseTimeInForce(string(b))
	if err != nil {
		return err
	}
	*tif = v
	return nil
}

type OrderStatus uint8

const (
	StatusPending OrderStatus = iota + 1
	StatusActive
	StatusFilled
	StatusCancelled
	StatusRejected
)

func (st OrderStatus) String() string {
	switch st {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	case StatusRejected:
		return "rejected"
	}
	return "unknown"
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "active":
		return StatusActive, nil
	case "filled":
		return StatusFilled, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	case "rejected":
		return StatusRejected, nil
	}
	return 0, fmt.Errorf("unknown order status %q", s)
}

func (st OrderStatus) IsTerminal() bool {
	return st == StatusFilled || st == StatusCancelled || st == StatusRejected
}

// CanTransitionTo reports whether the lifecycle allows moving from st to next.
func (st OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch st {
	case StatusPending:
		return next == StatusActive || next.IsTerminal()
	case StatusActive:
		return next == StatusActive || next == StatusFilled || next == StatusCancelled
	}
	return false
}

func (st OrderStatus) MarshalText() ([]byte, error) {
	return []byte(st.String()), nil
}

func (st *OrderStatus) UnmarshalText(b []byte) error {
	v, err := ParseOrderStatus(string(b))
	if err != nil {
		return err
	}
	*st = v
	return nil
}
