package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Screen
		want     bool
	}{
		{ScreenBrowsing, ScreenReviewSummary, true},
		{ScreenReviewSummary, ScreenTipSelection, true},
		{ScreenTipSelection, ScreenReviewSummary, true},
		{ScreenAwaitingPaymentChoice, ScreenCardProcessing, true},
		{ScreenCardProcessing, ScreenAwaitingPaymentChoice, true},
		{ScreenCashConfirm, ScreenCashCollected, true},
		{ScreenSuccess, ScreenBrowsing, true},
		{ScreenCancelled, ScreenBrowsing, true},
		{ScreenBrowsing, ScreenCardProcessing, false},
		{ScreenReceiptChoice, ScreenAwaitingPaymentChoice, false},
		{ScreenSuccess, ScreenCancelled, false},
		{ScreenCashCollected, ScreenCashConfirm, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionTo(tt.from, tt.to))
		})
	}
}

func TestEveryNonTerminalScreenCanCancel(t *testing.T) {
	for from := range transitions {
		if from.IsTerminal() {
			continue
		}
		assert.True(t, CanTransitionTo(from, ScreenCancelled), from)
	}
}

func TestScreenPredicates(t *testing.T) {
	assert.True(t, ScreenReceiptChoice.IsSettled())
	assert.False(t, ScreenCardProcessing.IsSettled())
	assert.True(t, ScreenCashConfirm.TransactionActive())
	assert.False(t, ScreenReviewSummary.TransactionActive())
	assert.True(t, ScreenCancelled.IsTerminal())
}

func TestParseMethodType(t *testing.T) {
	for _, raw := range []string{"cash", " CASH "} {
		m, err := ParseMethodType(raw)
		require.NoError(t, err)
		assert.Equal(t, MethodCash, m)
	}
	for _, raw := range []string{"card", "credit_card", "Debit_Card"} {
		m, err := ParseMethodType(raw)
		require.NoError(t, err)
		assert.Equal(t, MethodCard, m)
	}
	_, err := ParseMethodType("voucher")
	assert.Error(t, err)
}

func TestReceiptPreference_Validate(t *testing.T) {
	assert.NoError(t, ReceiptPreference{Type: ReceiptPrinted}.Validate())
	assert.NoError(t, ReceiptPreference{Type: ReceiptNone}.Validate())
	assert.NoError(t, ReceiptPreference{Type: ReceiptEmail, Email: "a@b.co"}.Validate())
	assert.NoError(t, ReceiptPreference{Type: ReceiptText, Phone: "5551234"}.Validate())

	assert.ErrorIs(t, ReceiptPreference{Type: ReceiptEmail, Email: "nope"}.Validate(), ErrInvalidReceipt)
	assert.ErrorIs(t, ReceiptPreference{Type: ReceiptText, Phone: " "}.Validate(), ErrInvalidReceipt)
	assert.ErrorIs(t, ReceiptPreference{Type: "fax"}.Validate(), ErrInvalidReceipt)
}

func TestTipChoice_Validate(t *testing.T) {
	assert.NoError(t, NoTip().Validate())
	assert.NoError(t, PercentTip(18).Validate())
	assert.NoError(t, AmountTip(decimal.RequireFromString("4.32")).Validate())

	assert.ErrorIs(t, PercentTip(-5).Validate(), ErrInvalidTip)
	assert.ErrorIs(t, AmountTip(decimal.NewFromInt(-1)).Validate(), ErrInvalidTip)
	assert.ErrorIs(t, TipChoice{Kind: "lots"}.Validate(), ErrInvalidTip)
}

func TestPaymentEvent_Approved(t *testing.T) {
	assert.True(t, PaymentEvent{Type: EventPaymentSuccess}.Approved())
	assert.False(t, PaymentEvent{Type: EventPaymentError, Success: true}.Approved())
	assert.True(t, PaymentEvent{Type: EventPaymentProcessed, Success: true}.Approved())
	assert.False(t, PaymentEvent{Type: EventPaymentProcessed}.Approved())
}

func TestTransactionNumber(t *testing.T) {
	at := time.Date(2026, 10, 16, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "TXN20261016090507", TransactionNumber(at))
}

func TestCheckoutSession_CloneIsDeep(t *testing.T) {
	s := CheckoutSession{
		Screen:         ScreenReceiptChoice,
		Cart:           []LineItem{{ProductID: 1, Quantity: 2}},
		TipSuggestions: []int64{15, 20},
		Payment:        &PaymentSelection{Method: MethodCash},
		Transaction:    &Transaction{TransactionID: "tx-1", Items: []LineItem{{ProductID: 1, Quantity: 2}}},
		Receipt:        &ReceiptPreference{Type: ReceiptNone},
	}

	c := s.Clone()
	c.Cart[0].Quantity = 9
	c.TipSuggestions[0] = 99
	c.Payment.Method = MethodCard
	c.Transaction.Items[0].Quantity = 9
	c.Transaction.TransactionID = "tx-2"
	c.Receipt.Type = ReceiptPrinted

	assert.Equal(t, int32(2), s.Cart[0].Quantity)
	assert.Equal(t, int64(15), s.TipSuggestions[0])
	assert.Equal(t, MethodCash, s.Payment.Method)
	assert.Equal(t, int32(2), s.Transaction.Items[0].Quantity)
	assert.Equal(t, "tx-1", s.TransactionID())
	assert.Equal(t, ReceiptNone, s.Receipt.Type)
}

func TestLineItem_Subtotal(t *testing.T) {
	item := NewLineItem(Product{ProductID: 1, UnitPrice: decimal.RequireFromString("0.99"), AvailableQuantity: 3})
	item.Quantity = 3

	assert.True(t, item.Subtotal().Equal(decimal.RequireFromString("2.97")))
	assert.Nil(t, CopyItems(nil))
}
