// Package pricing computes sale totals. Arithmetic keeps full precision; rounding to cents
// happens only in Display.
package pricing

import (
	"fmt"
	"strings"

	d "github.com/fjod/go_pos/domain"
	"github.com/shopspring/decimal"
)

// ComputeTotals derives subtotal, tax, total and grand total (total plus tip) from the items.
func ComputeTotals(items []d.LineItem, taxRate, tip decimal.Decimal) d.Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	tax := subtotal.Mul(taxRate)
	total := subtotal.Add(tax)
	return d.Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		Tip:        tip,
		Total:      total,
		GrandTotal: total.Add(tip),
	}
}

// ComputeChange returns tendered minus the amount due. A negative result comes back together
// with ErrInsufficientTender and must stop the sale from progressing.
func ComputeChange(tendered, totalWithTip decimal.Decimal) (decimal.Decimal, error) {
	change := tendered.Sub(totalWithTip)
	if change.IsNegative() {
		return change, ErrInsufficientTender
	}
	return change, nil
}

// TipFromPercent applies a preset percentage to the total.
func TipFromPercent(total, percent decimal.Decimal) decimal.Decimal {
	return total.Mul(percent.Shift(-2))
}

// TipAmount resolves a tip choice against the total it applies to.
func TipAmount(total decimal.Decimal, choice d.TipChoice) (decimal.Decimal, error) {
	if err := choice.Validate(); err != nil {
		return decimal.Zero, err
	}
	switch choice.Kind {
	case d.TipPercent:
		return TipFromPercent(total, choice.Percent), nil
	case d.TipAmount:
		return choice.Amount, nil
	default:
		return decimal.Zero, nil
	}
}

// ParseAmount reads an operator-entered money amount such as "30.00" or "$30".
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, raw)
	}
	return amount, nil
}

func Display(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
