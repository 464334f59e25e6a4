package cart

import "errors"

var (
	ErrExceedsAvailable = errors.New("quantity exceeds available stock")
	ErrItemNotFound     = errors.New("item not in cart")
)
