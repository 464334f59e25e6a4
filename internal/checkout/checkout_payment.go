package checkout

import (
	"context"
	"fmt"

	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SelectPaymentMethod picks the tender. Cash moves to the tender entry; card starts
// processing immediately and returns once the backend has answered.
func (m *Machine) SelectPaymentMethod(ctx context.Context, paymentMethodID int64) error {
	m.mu.Lock()
	if err := m.expectLocked(d.ScreenAwaitingPaymentChoice); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.pending != "" {
		m.mu.Unlock()
		return ErrRequestInFlight
	}
	epoch := m.session.Epoch
	m.mu.Unlock()

	methods, err := m.PaymentMethods(ctx)
	if err != nil {
		return err
	}
	var info *d.PaymentMethodInfo
	for i := range methods {
		if methods[i].PaymentMethodID == paymentMethodID {
			info = &methods[i]
			break
		}
	}
	if info == nil {
		return fmt.Errorf("%w: id %d", ErrUnknownPaymentMethod, paymentMethodID)
	}
	kind, err := info.Kind()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownPaymentMethod, err)
	}

	m.mu.Lock()
	if m.session.Epoch != epoch || m.session.Screen != d.ScreenAwaitingPaymentChoice {
		m.mu.Unlock()
		return ErrSessionChanged
	}
	if m.pending != "" {
		m.mu.Unlock()
		return ErrRequestInFlight
	}

	fx := &effects{}
	m.session.Payment = &d.PaymentSelection{
		Method:          kind,
		PaymentMethodID: paymentMethodID,
		AmountTendered:  decimal.Zero,
	}
	m.session.LastError = ""

	switch kind {
	case d.MethodCash:
		m.session.Outcome = d.OutcomeNone
		if err := m.transitionLocked(d.ScreenCashConfirm); err != nil {
			m.mu.Unlock()
			return err
		}
		m.commitLocked(fx)
		m.mu.Unlock()
		m.flush(fx)
		return nil

	case d.MethodCard:
		if err := m.transitionLocked(d.ScreenCardProcessing); err != nil {
			m.mu.Unlock()
			return err
		}
		m.recomputeLocked()
		req := &d.PaymentRequest{
			TransactionID:   m.session.TransactionID(),
			PaymentMethodID: paymentMethodID,
			Amount:          m.session.Totals.GrandTotal,
			Tip:             m.session.Totals.Tip,
		}
		attempt := m.beginAttemptLocked(fx)
		m.mu.Unlock()
		m.flush(fx)
		return m.settlePayment(ctx, epoch, attempt, kind, req)

	default:
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownPaymentMethod, kind)
	}
}

// SubmitCash processes the tendered cash amount. Insufficient tender is rejected before
// any call is made.
func (m *Machine) SubmitCash(ctx context.Context, tendered decimal.Decimal) error {
	m.mu.Lock()
	if err := m.expectLocked(d.ScreenCashConfirm); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.pending != "" {
		m.mu.Unlock()
		return ErrRequestInFlight
	}

	fx := &effects{}
	due := m.session.Totals.GrandTotal
	if _, err := pricing.ComputeChange(tendered, due); err != nil {
		m.session.LastError = fmt.Sprintf("insufficient tender: %s due", pricing.Display(due))
		m.commitLocked(fx)
		m.mu.Unlock()
		m.flush(fx)
		return fmt.Errorf("%w: tendered %s, due %s", ErrInsufficientTender, pricing.Display(tendered), pricing.Display(due))
	}

	m.session.Payment.AmountTendered = tendered
	m.session.LastError = ""
	req := &d.PaymentRequest{
		TransactionID:   m.session.TransactionID(),
		PaymentMethodID: m.session.Payment.PaymentMethodID,
		Amount:          tendered,
		Tip:             m.session.Totals.Tip,
	}
	epoch := m.session.Epoch
	attempt := m.beginAttemptLocked(fx)
	m.mu.Unlock()
	m.flush(fx)

	return m.settlePayment(ctx, epoch, attempt, d.MethodCash, req)
}

func (m *Machine) beginAttemptLocked(fx *effects) int {
	m.session.Attempt++
	m.session.Outcome = d.OutcomePending
	m.pending = "process_payment"
	m.commitLocked(fx)
	return m.session.Attempt
}

// settlePayment calls the backend and applies the outcome if the attempt is still current.
func (m *Machine) settlePayment(ctx context.Context, epoch uint64, attempt int, method d.MethodType, req *d.PaymentRequest) error {
	log := m.log.With(
		zap.String("transaction_id", req.TransactionID),
		zap.Int("attempt", attempt),
		zap.String("method", string(method)))

	// an in-flight charge outlives the caller; only the call timeout bounds it
	callCtx, cancel := m.callContext(context.WithoutCancel(ctx))
	resp, err := m.backend.ProcessPayment(callCtx, req)
	cancel()

	m.mu.Lock()
	if m.session.Epoch != epoch || m.session.Attempt != attempt {
		m.mu.Unlock()
		log.Info("payment result arrived for an abandoned attempt, discarded",
			zap.Bool("approved", err == nil && resp != nil && resp.Success))
		return ErrSessionChanged
	}
	m.pending = ""

	fx := &effects{}
	if err != nil || resp == nil || !resp.Success {
		reason := "payment declined"
		switch {
		case err != nil:
			reason = fmt.Sprintf("payment failed: %v", err)
		case resp != nil && resp.Error != "":
			reason = resp.Error
		}
		m.declineLocked(fx, method, reason)
		m.mu.Unlock()
		m.flush(fx)
		log.Warn("payment declined", zap.String("reason", reason))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPaymentDeclined, transient("process payment", err))
		}
		return fmt.Errorf("%w: %s", ErrPaymentDeclined, reason)
	}

	m.session.Outcome = d.OutcomeApproved
	m.session.Transaction.Status = d.TransactionApproved
	m.observer.PaymentSettled(method, d.OutcomeApproved)
	fx.events = append(fx.events,
		d.PaymentEvent{Type: d.EventPaymentProcessed, Success: true, TransactionID: req.TransactionID, Attempt: attempt},
		d.PaymentEvent{Type: d.EventPaymentSuccess, Success: true, TransactionID: req.TransactionID, Attempt: attempt},
	)

	switch method {
	case d.MethodCash:
		due := resp.Change
		if due.IsZero() {
			due, _ = pricing.ComputeChange(req.Amount, m.session.Totals.GrandTotal)
		}
		if due.IsNegative() {
			due = decimal.Zero
		}
		m.session.Change = due
		if err := m.transitionLocked(d.ScreenCashCollected); err != nil {
			m.mu.Unlock()
			return err
		}
	case d.MethodCard:
		m.session.Change = decimal.Zero
	}
	m.commitLocked(fx)
	change := m.session.Change
	if m.cfg.ApprovedDelay > 0 {
		m.armLocked(m.cfg.ApprovedDelay, func() { m.autoContinue(epoch, attempt) })
	}
	m.mu.Unlock()
	m.flush(fx)
	log.Info("payment approved", zap.String("change", pricing.Display(change)))
	return nil
}

// declineLocked returns to the method choice. The transaction stays pending so the
// customer can retry with another tender.
func (m *Machine) declineLocked(fx *effects, method d.MethodType, reason string) {
	attempt := m.session.Attempt
	txID := m.session.TransactionID()
	m.session.Outcome = d.OutcomeDeclined
	m.session.LastError = reason
	m.session.Payment = nil
	m.session.Change = decimal.Zero
	if err := m.transitionLocked(d.ScreenAwaitingPaymentChoice); err != nil {
		m.log.Error("decline transition", zap.Error(err))
	}
	m.observer.PaymentSettled(method, d.OutcomeDeclined)
	fx.events = append(fx.events,
		d.PaymentEvent{Type: d.EventPaymentProcessed, Success: false, TransactionID: txID, Attempt: attempt, Error: reason},
		d.PaymentEvent{Type: d.EventPaymentError, Success: false, TransactionID: txID, Attempt: attempt, Error: reason},
	)
	m.recordLocked(fx, d.EventPaymentDeclined, map[string]any{
		"attempt": attempt,
		"method":  method,
		"reason":  reason,
	})
	m.commitLocked(fx)
}

// ContinueToReceipt leaves the approved payment screen for the receipt choice.
func (m *Machine) ContinueToReceipt() error {
	m.mu.Lock()
	fx := &effects{}
	err := m.continueLocked(fx)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.flush(fx)
	return nil
}

func (m *Machine) continueLocked(fx *effects) error {
	switch {
	case m.session.Screen == d.ScreenCashCollected:
	case m.session.Screen == d.ScreenCardProcessing && m.session.Outcome == d.OutcomeApproved:
	default:
		return unexpectedScreen(m.session.Screen, d.ScreenCashCollected, d.ScreenCardProcessing)
	}
	if err := m.transitionLocked(d.ScreenReceiptChoice); err != nil {
		return err
	}
	m.stopTimerLocked()
	m.pad.Clear()
	m.sigSaved = false
	m.session.SignatureCaptured = false
	m.commitLocked(fx)
	return nil
}

func (m *Machine) autoContinue(epoch uint64, attempt int) {
	m.mu.Lock()
	if m.session.Epoch != epoch || m.session.Attempt != attempt {
		m.mu.Unlock()
		return
	}
	fx := &effects{}
	err := m.continueLocked(fx)
	m.mu.Unlock()
	if err != nil {
		m.log.Debug("auto continue skipped", zap.Error(err))
		return
	}
	m.flush(fx)
}
