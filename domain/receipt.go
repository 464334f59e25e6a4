package domain

import (
	"errors"
	"strings"
)

type ReceiptType string

const (
	ReceiptPrinted ReceiptType = "printed"
	ReceiptEmail   ReceiptType = "email"
	ReceiptText    ReceiptType = "text"
	ReceiptNone    ReceiptType = "none"
)

type ReceiptPreference struct {
	Type  ReceiptType `json:"receipt_type"`
	Email string      `json:"email,omitempty"`
	Phone string      `json:"phone,omitempty"`
}

var ErrInvalidReceipt = errors.New("invalid receipt preference")

func (p ReceiptPreference) Validate() error {
	switch p.Type {
	case ReceiptPrinted, ReceiptNone:
		return nil
	case ReceiptEmail:
		if !strings.Contains(p.Email, "@") {
			return ErrInvalidReceipt
		}
		return nil
	case ReceiptText:
		if strings.TrimSpace(p.Phone) == "" {
			return ErrInvalidReceipt
		}
		return nil
	default:
		return ErrInvalidReceipt
	}
}
