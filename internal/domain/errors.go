package domain

import "errors"

// Common domain errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrStaleValue        = errors.New("value changed concurrently")
)
