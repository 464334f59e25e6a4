package domain

import (
	"fmt"
	"time"
)

type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionApproved TransactionStatus = "approved"
	TransactionDeclined TransactionStatus = "declined"
	TransactionVoid     TransactionStatus = "void"
)

// Transaction holds the item snapshot taken when payment started; later cart edits never reach it.
type Transaction struct {
	TransactionID     string            `json:"transaction_id"`
	TransactionNumber string            `json:"transaction_number"`
	Items             []LineItem        `json:"items"`
	Status            TransactionStatus `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
}

// TransactionNumber formats the fallback receipt number used when the backend does not assign one.
func TransactionNumber(at time.Time) string {
	return fmt.Sprintf("TXN%s", at.Format("20060102150405"))
}
