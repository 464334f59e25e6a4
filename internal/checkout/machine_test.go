package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	d "github.com/fjod/go_pos/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coffee = "012345678905"

type fixture struct {
	m         *Machine
	backend   *MockBackend
	recorder  *MockRecorder
	publisher *MockPublisher
	observer  *MockObserver
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ApprovedDelay = 0
	cfg.SuccessDelay = time.Hour
	cfg.CallTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	f := &fixture{
		backend:   newMockBackend(),
		recorder:  &MockRecorder{},
		publisher: &MockPublisher{},
		observer:  &MockObserver{},
	}
	f.m = New(cfg, f.backend, WithRecorder(f.recorder), WithPublisher(f.publisher), WithObserver(f.observer))
	t.Cleanup(func() { _ = f.m.Cancel() })
	return f
}

// toPaymentChoice fills the cart with two coffees ($20.00) and starts the transaction.
func (f *fixture) toPaymentChoice(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.m.AddBarcode(ctx, coffee)
		require.NoError(t, err)
	}
	require.NoError(t, f.m.BeginCheckout())
	require.NoError(t, f.m.Proceed(ctx))
	require.Equal(t, d.ScreenAwaitingPaymentChoice, f.m.Session().Screen)
}

func TestBeginCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t, nil)

	err := f.m.BeginCheckout()

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, d.ScreenBrowsing, f.m.Session().Screen)
}

func TestCashCheckout_HappyPath(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.toPaymentChoice(t)

	s := f.m.Session()
	assert.Equal(t, "20.00", s.Totals.Subtotal.StringFixed(2))
	assert.Equal(t, "1.60", s.Totals.Tax.StringFixed(2))
	assert.Equal(t, "21.60", s.Totals.Total.StringFixed(2))
	assert.Equal(t, "tx-1", s.TransactionID())
	assert.Equal(t, d.TransactionPending, s.Transaction.Status)

	require.NoError(t, f.m.SelectPaymentMethod(ctx, 1))
	assert.Equal(t, d.ScreenCashConfirm, f.m.Session().Screen)

	err := f.m.SubmitCash(ctx, decimal.RequireFromString("20.00"))
	assert.ErrorIs(t, err, ErrInsufficientTender)
	assert.Equal(t, 0, f.backend.paymentCalls())
	assert.Equal(t, d.ScreenCashConfirm, f.m.Session().Screen)
	assert.NotEmpty(t, f.m.Session().LastError)

	require.NoError(t, f.m.SubmitCash(ctx, decimal.RequireFromString("30.00")))
	s = f.m.Session()
	assert.Equal(t, d.ScreenCashCollected, s.Screen)
	assert.Equal(t, "8.40", s.Change.StringFixed(2))
	assert.Equal(t, d.OutcomeApproved, s.Outcome)
	require.Len(t, f.backend.PaymentCalls, 1)
	assert.Equal(t, "30.00", f.backend.PaymentCalls[0].Amount.StringFixed(2))

	require.NoError(t, f.m.ContinueToReceipt())
	require.NoError(t, f.m.ChooseReceipt(ctx, d.ReceiptPreference{Type: d.ReceiptPrinted}))

	s = f.m.Session()
	assert.Equal(t, d.ScreenSuccess, s.Screen)
	require.Len(t, f.backend.ReceiptCalls, 1)
	assert.Equal(t, "tx-1", f.backend.ReceiptCalls[0].TransactionID)
	assert.Empty(t, f.backend.SignatureCalls)
	assert.Contains(t, f.recorder.types(), d.EventCheckoutCompleted)
}

func TestTipSelection_AppliedToCardPayment(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.TipEnabled = true })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.m.AddBarcode(ctx, coffee)
		require.NoError(t, err)
	}
	require.NoError(t, f.m.BeginCheckout())
	require.NoError(t, f.m.Proceed(ctx))
	assert.Equal(t, d.ScreenTipSelection, f.m.Session().Screen)
	assert.Equal(t, 0, f.backend.StartCalls)

	require.NoError(t, f.m.SelectTip(d.PercentTip(20)))
	s := f.m.Session()
	assert.Equal(t, d.ScreenReviewSummary, s.Screen)
	assert.Equal(t, "4.32", s.Totals.Tip.StringFixed(2))
	assert.Equal(t, "25.92", s.Totals.GrandTotal.StringFixed(2))

	require.NoError(t, f.m.Proceed(ctx))
	require.NoError(t, f.m.SelectPaymentMethod(ctx, 2))

	require.Len(t, f.backend.PaymentCalls, 1)
	assert.Equal(t, "25.92", f.backend.PaymentCalls[0].Amount.StringFixed(2))
	assert.Equal(t, "4.32", f.backend.PaymentCalls[0].Tip.StringFixed(2))
	assert.Equal(t, d.ScreenCardProcessing, f.m.Session().Screen)
	assert.Equal(t, d.OutcomeApproved, f.m.Session().Outcome)
}

func TestTipInvalidatedByCartEdit(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.TipEnabled = true })
	ctx := context.Background()

	_, err := f.m.AddBarcode(ctx, coffee)
	require.NoError(t, err)
	require.NoError(t, f.m.BeginCheckout())
	require.NoError(t, f.m.Proceed(ctx))
	require.NoError(t, f.m.SelectTip(d.AmountTip(decimal.RequireFromString("2.00"))))
	assert.True(t, f.m.Session().TipChosen)

	_, err = f.m.AddBarcode(ctx, coffee)
	require.NoError(t, err)

	s := f.m.Session()
	assert.False(t, s.TipChosen)
	assert.True(t, s.Totals.Tip.IsZero())

	require.NoError(t, f.m.Proceed(ctx))
	assert.Equal(t, d.ScreenTipSelection, f.m.Session().Screen)
}

func TestSelectTip_Invalid(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.TipEnabled = true })
	ctx := context.Background()
	_, err := f.m.AddBarcode(ctx, coffee)
	require.NoError(t, err)
	require.NoError(t, f.m.BeginCheckout())
	require.NoError(t, f.m.Proceed(ctx))

	err = f.m.SelectTip(d.AmountTip(decimal.RequireFromString("-1")))

	assert.ErrorIs(t, err, ErrInvalidTip)
	assert.Equal(t, d.ScreenTipSelection, f.m.Session().Screen)
}

func TestCardDecline_KeepsTransactionAndAllowsRetry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.backend.PaymentResults = []PaymentResult{
		{Resp: &d.PaymentResponse{Success: false, Error: "Card declined"}},
		{Resp: &d.PaymentResponse{Success: true}},
	}
	f.toPaymentChoice(t)

	err := f.m.SelectPaymentMethod(ctx, 2)

	assert.ErrorIs(t, err, ErrPaymentDeclined)
	s := f.m.Session()
	assert.Equal(t, d.ScreenAwaitingPaymentChoice, s.Screen)
	assert.Equal(t, d.OutcomeDeclined, s.Outcome)
	assert.Equal(t, "Card declined", s.LastError)
	assert.Equal(t, d.TransactionPending, s.Transaction.Status)
	assert.Nil(t, s.Payment)
	require.Len(t, s.Cart, 1)
	assert.Equal(t, int32(2), s.Cart[0].Quantity)
	assert.Contains(t, f.recorder.types(), d.EventPaymentDeclined)

	events := f.publisher.events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, d.EventPaymentError, last.Type)
	assert.Equal(t, "tx-1", last.TransactionID)
	assert.Equal(t, 1, last.Attempt)

	require.NoError(t, f.m.SelectPaymentMethod(ctx, 1))
	require.NoError(t, f.m.SubmitCash(ctx, decimal.RequireFromString("25")))
	s = f.m.Session()
	assert.Equal(t, d.ScreenCashCollected, s.Screen)
	assert.Equal(t, 2, s.Attempt)
	assert.Equal(t, "tx-1", s.TransactionID())
}

func TestCardNetworkError_IsTransientDecline(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.PaymentResults = []PaymentResult{{Err: errors.New("connection reset")}}
	f.toPaymentChoice(t)

	err := f.m.SelectPaymentMethod(context.Background(), 2)

	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, d.ScreenAwaitingPaymentChoice, f.m.Session().Screen)
}

func TestCardPayment_OutlivesCallerContext(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.PaymentGate = make(chan struct{})
	f.toPaymentChoice(t)

	reqCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.m.SelectPaymentMethod(reqCtx, 2) }()
	require.Eventually(t, func() bool { return f.backend.paymentCalls() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	s := f.m.Session()
	assert.Equal(t, d.ScreenCardProcessing, s.Screen)
	assert.Equal(t, d.OutcomePending, s.Outcome)

	close(f.backend.PaymentGate)
	require.NoError(t, <-done)

	s = f.m.Session()
	assert.Equal(t, d.ScreenCardProcessing, s.Screen)
	assert.Equal(t, d.OutcomeApproved, s.Outcome)
	assert.Equal(t, d.TransactionApproved, s.Transaction.Status)
}

func TestSelectPaymentMethod_Unknown(t *testing.T) {
	f := newFixture(t, nil)
	f.toPaymentChoice(t)

	err := f.m.SelectPaymentMethod(context.Background(), 99)

	assert.ErrorIs(t, err, ErrUnknownPaymentMethod)
	assert.Equal(t, d.ScreenAwaitingPaymentChoice, f.m.Session().Screen)
}

func TestCartLockedOnceTransactionStarts(t *testing.T) {
	f := newFixture(t, nil)
	f.toPaymentChoice(t)

	_, err := f.m.AddBarcode(context.Background(), coffee)
	assert.ErrorIs(t, err, ErrCartLocked)
	assert.ErrorIs(t, f.m.SetQuantity(1, 1), ErrCartLocked)
	assert.ErrorIs(t, f.m.RemoveItem(1), ErrCartLocked)
	assert.ErrorIs(t, f.m.ClearCart(), ErrCartLocked)

	s := f.m.Session()
	require.Len(t, s.Transaction.Items, 1)
	assert.Equal(t, int32(2), s.Transaction.Items[0].Quantity)
}

func TestSetQuantity_ExceedsAvailable(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.m.AddBarcode(context.Background(), coffee)
	require.NoError(t, err)

	err = f.m.SetQuantity(1, 6)

	assert.ErrorIs(t, err, ErrExceedsAvailable)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, int32(1), f.m.Session().Cart[0].Quantity)
	assert.ErrorIs(t, f.m.SetQuantity(42, 1), ErrItemNotFound)
}

func TestStartTransactionFailure_StaysOnReview(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.backend.StartErr = errors.New("backend unavailable")
	_, err := f.m.AddBarcode(ctx, coffee)
	require.NoError(t, err)
	require.NoError(t, f.m.BeginCheckout())

	err = f.m.Proceed(ctx)

	assert.ErrorIs(t, err, ErrTransient)
	s := f.m.Session()
	assert.Equal(t, d.ScreenReviewSummary, s.Screen)
	assert.Nil(t, s.Transaction)
	assert.Contains(t, s.LastError, "backend unavailable")

	f.backend.StartErr = nil
	require.NoError(t, f.m.Proceed(ctx))
	assert.Equal(t, d.ScreenAwaitingPaymentChoice, f.m.Session().Screen)
	assert.Empty(t, f.m.Session().LastError)
}

func TestTransactionNumberFallback(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.StartResp = &d.StartTransactionResponse{TransactionID: "tx-9"}
	f.toPaymentChoice(t)

	assert.True(t, strings.HasPrefix(f.m.Session().Transaction.TransactionNumber, "TXN"))
}

func TestCancelDuringCardProcessing_DiscardsLateApproval(t *testing.T) {
	f := newFixture(t, nil)
	f.backend.PaymentGate = make(chan struct{})
	f.toPaymentChoice(t)

	done := make(chan error, 1)
	go func() { done <- f.m.SelectPaymentMethod(context.Background(), 2) }()
	require.Eventually(t, func() bool { return f.backend.paymentCalls() == 1 }, time.Second, 5*time.Millisecond)

	_, err := f.m.AddBarcode(context.Background(), coffee)
	assert.ErrorIs(t, err, ErrCartLocked)

	require.NoError(t, f.m.Cancel())
	s := f.m.Session()
	assert.Equal(t, d.ScreenBrowsing, s.Screen)
	assert.Empty(t, s.Cart)
	assert.Nil(t, s.Transaction)

	close(f.backend.PaymentGate)
	assert.ErrorIs(t, <-done, ErrSessionChanged)

	s = f.m.Session()
	assert.Equal(t, d.ScreenBrowsing, s.Screen)
	assert.Equal(t, d.OutcomeNone, s.Outcome)
	assert.Contains(t, f.recorder.types(), d.EventCheckoutCancelled)
}

func TestApprovedDelay_AutoContinues(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.ApprovedDelay = 20 * time.Millisecond })
	f.toPaymentChoice(t)

	require.NoError(t, f.m.SelectPaymentMethod(context.Background(), 2))

	assert.Eventually(t, func() bool {
		return f.m.Session().Screen == d.ScreenReceiptChoice
	}, time.Second, 5*time.Millisecond)
}

func TestCancel_StopsApprovedTimer(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.ApprovedDelay = 30 * time.Millisecond })
	f.toPaymentChoice(t)
	require.NoError(t, f.m.SelectPaymentMethod(context.Background(), 2))

	require.NoError(t, f.m.Cancel())
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, d.ScreenBrowsing, f.m.Session().Screen)
}

func TestContinueToReceipt_RequiresApproval(t *testing.T) {
	f := newFixture(t, nil)
	f.toPaymentChoice(t)

	assert.ErrorIs(t, f.m.ContinueToReceipt(), ErrIllegalTransition)
}

func TestBestEffortFailures_StillReachSuccess(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.backend.SignatureErr = errors.New("signature store down")
	f.backend.ReceiptErr = errors.New("receipt store down")
	f.toPaymentChoice(t)
	require.NoError(t, f.m.SelectPaymentMethod(ctx, 2))
	require.NoError(t, f.m.ContinueToReceipt())

	require.NoError(t, f.m.CaptureSignature(d.Stroke{{X: 0.1, Y: 0.5}, {X: 0.9, Y: 0.5}}))
	assert.True(t, f.m.Session().SignatureCaptured)

	err := f.m.ChooseReceipt(ctx, d.ReceiptPreference{Type: d.ReceiptEmail, Email: "a@b.co"})

	require.NoError(t, err)
	assert.Equal(t, d.ScreenSuccess, f.m.Session().Screen)
	require.Len(t, f.backend.SignatureCalls, 1)
	assert.True(t, strings.HasPrefix(f.backend.SignatureCalls[0].Signature, "data:image/png;base64,"))
	assert.Len(t, f.backend.ReceiptCalls, 1)
	assert.ElementsMatch(t, []string{"save_signature", "save_receipt_preference"}, f.observer.Failures)
}

func TestClearSignature_SkipsUpload(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.toPaymentChoice(t)
	require.NoError(t, f.m.SelectPaymentMethod(ctx, 2))
	require.NoError(t, f.m.ContinueToReceipt())
	require.NoError(t, f.m.CaptureSignature(d.Stroke{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}}))

	require.NoError(t, f.m.ClearSignature())
	require.NoError(t, f.m.ChooseReceipt(ctx, d.ReceiptPreference{Type: d.ReceiptNone}))

	assert.Empty(t, f.backend.SignatureCalls)
}

func TestChooseReceipt_InvalidEmail(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.toPaymentChoice(t)
	require.NoError(t, f.m.SelectPaymentMethod(ctx, 2))
	require.NoError(t, f.m.ContinueToReceipt())

	err := f.m.ChooseReceipt(ctx, d.ReceiptPreference{Type: d.ReceiptEmail, Email: "nope"})

	assert.ErrorIs(t, err, ErrInvalidReceipt)
	assert.Equal(t, d.ScreenReceiptChoice, f.m.Session().Screen)
	assert.Empty(t, f.backend.ReceiptCalls)
}

func TestSuccess_ResetsAfterDelay(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.SuccessDelay = 20 * time.Millisecond })
	ctx := context.Background()
	f.toPaymentChoice(t)
	epoch := f.m.Session().Epoch
	require.NoError(t, f.m.SelectPaymentMethod(ctx, 2))
	require.NoError(t, f.m.ContinueToReceipt())
	require.NoError(t, f.m.ChooseReceipt(ctx, d.ReceiptPreference{Type: d.ReceiptPrinted}))

	assert.ErrorIs(t, f.m.Cancel(), ErrIllegalTransition)

	require.Eventually(t, func() bool {
		return f.m.Session().Screen == d.ScreenBrowsing
	}, time.Second, 5*time.Millisecond)
	s := f.m.Session()
	assert.Empty(t, s.Cart)
	assert.Nil(t, s.Transaction)
	assert.Equal(t, epoch+1, s.Epoch)
}

func TestCancelFromBrowsing_ClearsCart(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.m.AddBarcode(context.Background(), coffee)
	require.NoError(t, err)

	require.NoError(t, f.m.Cancel())

	assert.Empty(t, f.m.Session().Cart)
	assert.NotContains(t, f.recorder.types(), d.EventCheckoutCancelled)
}

func TestSubscribe_ReceivesOrderedSnapshots(t *testing.T) {
	f := newFixture(t, nil)
	var versions []uint64
	var screens []d.Screen
	unsubscribe := f.m.Subscribe(func(s d.CheckoutSession) {
		versions = append(versions, s.Version)
		screens = append(screens, s.Screen)
	})

	f.toPaymentChoice(t)
	unsubscribe()
	require.NoError(t, f.m.Cancel())

	require.NotEmpty(t, versions)
	for i := 1; i < len(versions); i++ {
		assert.Greater(t, versions[i], versions[i-1])
	}
	assert.Equal(t, d.ScreenAwaitingPaymentChoice, screens[len(screens)-1])
}

func TestHandleCustomerAction(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.TipEnabled = true })
	ctx := context.Background()
	_, err := f.m.AddBarcode(ctx, coffee)
	require.NoError(t, err)
	require.NoError(t, f.m.BeginCheckout())
	require.NoError(t, f.m.Proceed(ctx))

	tip := d.PercentTip(15)
	require.NoError(t, f.m.HandleCustomerAction(ctx, d.CustomerAction{Type: d.ActionSelectTip, Tip: &tip}))
	assert.Equal(t, d.ScreenReviewSummary, f.m.Session().Screen)
	assert.Contains(t, f.recorder.types(), d.EventCustomerAction)

	f.recorder.mu.Lock()
	last := f.recorder.Events[len(f.recorder.Events)-1]
	f.recorder.mu.Unlock()
	assert.Equal(t, d.EventCustomerAction, last.Type)
	assert.True(t, json.Valid(last.Payload))
	assert.Contains(t, string(last.Payload), `"action":"select_tip"`)

	err = f.m.HandleCustomerAction(ctx, d.CustomerAction{Type: "wave"})
	assert.ErrorIs(t, err, ErrValidation)

	err = f.m.HandleCustomerAction(ctx, d.CustomerAction{Type: d.ActionSelectTip})
	assert.ErrorIs(t, err, ErrInvalidTip)
}

func TestMarshalPayload_FallsBackToEmptyObject(t *testing.T) {
	f := newFixture(t, nil)

	raw := f.m.marshalPayload(d.EventCustomerAction, map[string]any{"bad": make(chan int)})
	assert.JSONEq(t, `{}`, string(raw))

	raw = f.m.marshalPayload(d.EventCustomerAction, map[string]any{"action": "proceed"})
	assert.JSONEq(t, `{"action":"proceed"}`, string(raw))
}

func TestObserver_SeesTransitions(t *testing.T) {
	f := newFixture(t, nil)
	f.toPaymentChoice(t)

	assert.Equal(t, [][2]d.Screen{
		{d.ScreenBrowsing, d.ScreenReviewSummary},
		{d.ScreenReviewSummary, d.ScreenAwaitingPaymentChoice},
	}, f.observer.Transitions)
}
