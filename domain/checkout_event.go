package domain

import (
	"encoding/json"
	"time"
)

type CheckoutEventType string

const (
	EventCheckoutCompleted CheckoutEventType = "checkout.completed"
	EventCheckoutCancelled CheckoutEventType = "checkout.cancelled"
	EventPaymentDeclined   CheckoutEventType = "payment.declined"
	EventCustomerAction    CheckoutEventType = "customer.action"
)

// CheckoutEvent is journalled to the outbox and later published for downstream consumers.
type CheckoutEvent struct {
	EventID       string            `json:"event_id"`
	Type          CheckoutEventType `json:"event_type"`
	RegisterID    string            `json:"register_id"`
	TransactionID string            `json:"transaction_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	OccurredAt    time.Time         `json:"occurred_at"`
}
