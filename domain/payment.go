package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MethodType is the closed set of tenders: every switch over it must handle Cash and Card.
type MethodType string

const (
	MethodCash MethodType = "cash"
	MethodCard MethodType = "card"
)

// ParseMethodType normalises the method_type strings used by the payment-method listing.
func ParseMethodType(raw string) (MethodType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cash":
		return MethodCash, nil
	case "card", "credit_card", "debit_card", "credit", "debit":
		return MethodCard, nil
	default:
		return "", fmt.Errorf("unknown payment method type %q", raw)
	}
}

type PaymentMethodInfo struct {
	PaymentMethodID  int64  `json:"payment_method_id"`
	Name             string `json:"method_name,omitempty"`
	MethodType       string `json:"method_type"`
	RequiresTerminal bool   `json:"requires_terminal"`
	DisplayOrder     int    `json:"display_order,omitempty"`
}

func (p PaymentMethodInfo) Kind() (MethodType, error) {
	return ParseMethodType(p.MethodType)
}

// PaymentSelection is consumed once by payment processing.
type PaymentSelection struct {
	Method          MethodType      `json:"method_type"`
	PaymentMethodID int64           `json:"payment_method_id"`
	AmountTendered  decimal.Decimal `json:"amount_tendered"`
	Tip             decimal.Decimal `json:"tip"`
}

// PaymentOutcome is what the surfaces show while and after a payment attempt settles.
type PaymentOutcome string

const (
	OutcomeNone     PaymentOutcome = ""
	OutcomePending  PaymentOutcome = "pending"
	OutcomeApproved PaymentOutcome = "approved"
	OutcomeDeclined PaymentOutcome = "declined"
)
