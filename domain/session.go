package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutSession is the single source of truth for one sale. The state machine owns it;
// every other holder works on a copy.
type CheckoutSession struct {
	// Origin identifies the owning machine instance; Version increases on every change it publishes.
	Origin  string `json:"origin"`
	Version uint64 `json:"version"`
	// Epoch increases every time the session is reset to Browsing.
	Epoch uint64 `json:"epoch"`

	Screen            Screen             `json:"screen"`
	Cart              []LineItem         `json:"cart"`
	Totals            Totals             `json:"totals"`
	Tip               TipChoice          `json:"tip"`
	TipChosen         bool               `json:"tip_chosen"`
	TipSuggestions    []int64            `json:"tip_suggestions,omitempty"`
	Payment           *PaymentSelection  `json:"payment,omitempty"`
	Transaction       *Transaction       `json:"transaction,omitempty"`
	Outcome           PaymentOutcome     `json:"payment_outcome,omitempty"`
	Attempt           int                `json:"attempt"`
	Change            decimal.Decimal    `json:"change"`
	SignatureCaptured bool               `json:"signature_captured"`
	Receipt           *ReceiptPreference `json:"receipt,omitempty"`
	LastError         string             `json:"last_error,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func (s *CheckoutSession) TransactionID() string {
	if s.Transaction == nil {
		return ""
	}
	return s.Transaction.TransactionID
}

// Clone returns a deep copy safe to hand to another surface.
func (s CheckoutSession) Clone() CheckoutSession {
	out := s
	out.Cart = CopyItems(s.Cart)
	if s.TipSuggestions != nil {
		out.TipSuggestions = append([]int64(nil), s.TipSuggestions...)
	}
	if s.Payment != nil {
		p := *s.Payment
		out.Payment = &p
	}
	if s.Transaction != nil {
		t := *s.Transaction
		t.Items = CopyItems(s.Transaction.Items)
		out.Transaction = &t
	}
	if s.Receipt != nil {
		r := *s.Receipt
		out.Receipt = &r
	}
	return out
}
