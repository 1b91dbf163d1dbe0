package oms

import "errors"

var (
	ErrDuplicateOrder  = errors.New("duplicate client order id")
	ErrOrderIDNotFound = errors.New("orderID not found")
)
