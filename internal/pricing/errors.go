package pricing

import "errors"

var (
	ErrInsufficientTender = errors.New("amount tendered is less than the amount due")
	ErrInvalidAmount      = errors.New("invalid amount")
)
