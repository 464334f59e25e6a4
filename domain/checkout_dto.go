package domain

import "github.com/shopspring/decimal"

type StartTransactionRequest struct {
	Items    []LineItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

type StartTransactionResponse struct {
	TransactionID     string `json:"transaction_id"`
	TransactionNumber string `json:"transaction_number"`
}

type PaymentRequest struct {
	TransactionID   string          `json:"transaction_id"`
	PaymentMethodID int64           `json:"payment_method_id"`
	Amount          decimal.Decimal `json:"amount"`
	Tip             decimal.Decimal `json:"tip"`
}

type PaymentResponse struct {
	Success bool            `json:"success"`
	Change  decimal.Decimal `json:"change"`
	Error   string          `json:"error,omitempty"`
}

type SignatureRequest struct {
	TransactionID string `json:"transaction_id"`
	Signature     string `json:"signature"`
}

type ReceiptPreferenceRequest struct {
	TransactionID string      `json:"transaction_id"`
	ReceiptType   ReceiptType `json:"receipt_type"`
	Email         string      `json:"email,omitempty"`
	Phone         string      `json:"phone,omitempty"`
}
