package domain

// Screen is the checkout state shared by the cashier console and the customer display.
type Screen string

const (
	ScreenBrowsing              Screen = "BROWSING"
	ScreenReviewSummary         Screen = "REVIEW_SUMMARY"
	ScreenTipSelection          Screen = "TIP_SELECTION"
	ScreenAwaitingPaymentChoice Screen = "AWAITING_PAYMENT_CHOICE"
	ScreenCashConfirm           Screen = "CASH_CONFIRM"
	ScreenCashCollected         Screen = "CASH_COLLECTED"
	ScreenCardProcessing        Screen = "CARD_PROCESSING"
	ScreenReceiptChoice         Screen = "RECEIPT_CHOICE"
	ScreenSuccess               Screen = "SUCCESS"
	ScreenCancelled             Screen = "CANCELLED"
)

var transitions = map[Screen][]Screen{
	ScreenBrowsing:              {ScreenReviewSummary, ScreenCancelled},
	ScreenReviewSummary:         {ScreenTipSelection, ScreenAwaitingPaymentChoice, ScreenCancelled},
	ScreenTipSelection:          {ScreenReviewSummary, ScreenCancelled},
	ScreenAwaitingPaymentChoice: {ScreenCashConfirm, ScreenCardProcessing, ScreenCancelled},
	ScreenCashConfirm:           {ScreenCashCollected, ScreenAwaitingPaymentChoice, ScreenCancelled},
	ScreenCashCollected:         {ScreenReceiptChoice, ScreenCancelled},
	ScreenCardProcessing:        {ScreenReceiptChoice, ScreenAwaitingPaymentChoice, ScreenCancelled},
	ScreenReceiptChoice:         {ScreenSuccess, ScreenCancelled},
	ScreenSuccess:               {ScreenBrowsing},
	ScreenCancelled:             {ScreenBrowsing},
}

// CanTransitionTo reports whether the checkout may move from one screen to another.
func CanTransitionTo(from, to Screen) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Screen) IsTerminal() bool {
	return s == ScreenSuccess || s == ScreenCancelled
}

// IsSettled is true once the payment outcome can no longer change for the transaction.
func (s Screen) IsSettled() bool {
	return s == ScreenReceiptChoice || s == ScreenSuccess
}

// TransactionActive is true on every screen reached after a transaction was started.
func (s Screen) TransactionActive() bool {
	switch s {
	case ScreenAwaitingPaymentChoice, ScreenCashConfirm, ScreenCashCollected,
		ScreenCardProcessing, ScreenReceiptChoice, ScreenSuccess:
		return true
	}
	return false
}

// String representation (for logging)
func (s Screen) String() string {
	return string(s)
}
