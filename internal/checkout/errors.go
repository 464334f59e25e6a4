package checkout

import (
	"errors"
	"fmt"

	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/pricing"
)

var (
	// ErrValidation marks errors that block a transition locally and never reach the network.
	ErrValidation = errors.New("validation failed")
	// ErrTransient marks failed collaborator calls that may be retried.
	ErrTransient = errors.New("transient network error")

	ErrIllegalTransition = errors.New("illegal transition of checkout state")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrRequestInFlight   = errors.New("a request for this checkout is already in flight")
	ErrSessionChanged    = errors.New("checkout session changed while the request was in flight")

	ErrEmptyCart            = fmt.Errorf("%w: cart is empty, nothing to checkout", ErrValidation)
	ErrCartLocked           = fmt.Errorf("%w: cart is locked while a transaction is active", ErrValidation)
	ErrUnknownPaymentMethod = fmt.Errorf("%w: unknown payment method", ErrValidation)
	ErrInsufficientTender   = fmt.Errorf("%w: %w", ErrValidation, pricing.ErrInsufficientTender)
	ErrInvalidTip           = fmt.Errorf("%w: %w", ErrValidation, d.ErrInvalidTip)
	ErrInvalidReceipt       = fmt.Errorf("%w: %w", ErrValidation, d.ErrInvalidReceipt)
	ErrExceedsAvailable     = fmt.Errorf("%w: %w", ErrValidation, cart.ErrExceedsAvailable)
	ErrItemNotFound         = fmt.Errorf("%w: %w", ErrValidation, cart.ErrItemNotFound)
)

func illegal(from, to d.Screen) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

func unexpectedScreen(actual d.Screen, want ...d.Screen) error {
	return fmt.Errorf("%w: operation not allowed on %s (expected %v)", ErrIllegalTransition, actual, want)
}

func transient(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransient, op, err)
}
