package domain

import "github.com/shopspring/decimal"

// Totals is always derived from the cart, the tax rate and the tip; it is never stored on its own.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Tip        decimal.Decimal `json:"tip"`
	Total      decimal.Decimal `json:"total"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}
