package orderbook

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMarket = errors.New("unknown market")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrOrderNotFound = errors.New("order not found")
	ErrRejected      = errors.New("order rejected")
)

// assertf guards internal invariants. A failure is a bug in the book, never a
// consequence of user input.
func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("orderbook invariant violated: "+format, args...))
	}
}
