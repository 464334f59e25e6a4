package displaysync

import (
	"fmt"
	"strings"

	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/pricing"
	"github.com/shopspring/decimal"
)

// Render draws the customer-facing view of s as plain text.
func Render(s d.CheckoutSession) string {
	var b strings.Builder
	money := func(label string, v decimal.Decimal) {
		fmt.Fprintf(&b, "%-12s %10s\n", label, "$"+pricing.Display(v))
	}

	items := s.Cart
	if s.Transaction != nil {
		items = s.Transaction.Items
		fmt.Fprintf(&b, "Transaction %s\n", s.Transaction.TransactionNumber)
	}

	switch s.Screen {
	case d.ScreenBrowsing:
		if len(items) == 0 {
			b.WriteString("Welcome!\n")
			return b.String()
		}
		renderItems(&b, items)
		money("Subtotal", s.Totals.Subtotal)

	case d.ScreenReviewSummary:
		renderItems(&b, items)
		money("Subtotal", s.Totals.Subtotal)
		money("Tax", s.Totals.Tax)
		if s.TipChosen && !s.Totals.Tip.IsZero() {
			money("Tip", s.Totals.Tip)
		}
		money("Total", s.Totals.GrandTotal)

	case d.ScreenTipSelection:
		b.WriteString("Add a tip?\n")
		for _, pct := range s.TipSuggestions {
			tip := pricing.TipFromPercent(s.Totals.Total, decimal.NewFromInt(pct))
			fmt.Fprintf(&b, "  %d%%  $%s\n", pct, pricing.Display(tip))
		}
		b.WriteString("  Custom amount\n  No tip\n")

	case d.ScreenAwaitingPaymentChoice:
		if s.Outcome == d.OutcomeDeclined {
			fmt.Fprintf(&b, "Payment declined: %s\nPlease choose another payment method.\n", s.LastError)
		} else {
			b.WriteString("Please choose a payment method.\n")
		}
		money("Amount due", s.Totals.GrandTotal)

	case d.ScreenCashConfirm:
		money("Amount due", s.Totals.GrandTotal)
		if s.Outcome == d.OutcomePending {
			b.WriteString("Processing...\n")
		}

	case d.ScreenCashCollected:
		if s.Payment != nil {
			money("Paid", s.Payment.AmountTendered)
		}
		money("Change due", s.Change)

	case d.ScreenCardProcessing:
		money("Amount", s.Totals.GrandTotal)
		if s.Outcome == d.OutcomeApproved {
			b.WriteString("Approved\n")
		} else {
			b.WriteString("Follow the prompts on the card reader...\n")
		}

	case d.ScreenReceiptChoice:
		b.WriteString("How would you like your receipt?\n  Print\n  Email\n  Text\n  No receipt\n")
		if s.SignatureCaptured {
			b.WriteString("Signature captured\n")
		} else {
			b.WriteString("Please sign below\n")
		}

	case d.ScreenSuccess:
		b.WriteString("Thank you!\n")
		if !s.Change.IsZero() {
			money("Change", s.Change)
		}

	case d.ScreenCancelled:
		b.WriteString("Transaction cancelled\n")
	}
	return b.String()
}

func renderItems(b *strings.Builder, items []d.LineItem) {
	for _, it := range items {
		fmt.Fprintf(b, "%3d x %-20s %10s\n", it.Quantity, it.Name, "$"+pricing.Display(it.Subtotal()))
	}
}
