package domain

import "time"

// EventType names the payment events the server pushes over the real-time channel.
type EventType string

const (
	EventPaymentProcessed EventType = "payment_processed"
	EventPaymentSuccess   EventType = "payment_success"
	EventPaymentError     EventType = "payment_error"
)

// PaymentEvent is a server push. Legacy producers omit TransactionID and Attempt; such
// events apply to whatever transaction the display currently shows.
type PaymentEvent struct {
	Type          EventType `json:"type"`
	Success       bool      `json:"success"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Attempt       int       `json:"attempt,omitempty"`
	Error         string    `json:"error,omitempty"`
}

func (e PaymentEvent) Approved() bool {
	switch e.Type {
	case EventPaymentSuccess:
		return true
	case EventPaymentError:
		return false
	default:
		return e.Success
	}
}

type MessageKind string

const (
	MessageSnapshot MessageKind = "snapshot"
	MessageEvent    MessageKind = "event"
)

// ChannelMessage is the envelope carried by the channel bus and the display stream.
type ChannelMessage struct {
	ID         string           `json:"id"`
	Kind       MessageKind      `json:"kind"`
	RegisterID string           `json:"register_id"`
	Session    *CheckoutSession `json:"session,omitempty"`
	Event      *PaymentEvent    `json:"event,omitempty"`
	SentAt     time.Time        `json:"sent_at"`
}
