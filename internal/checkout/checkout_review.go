package checkout

import (
	"context"
	"fmt"
	"time"

	d "github.com/fjod/go_pos/domain"
	"go.uber.org/zap"
)

// BeginCheckout moves from browsing to the review summary.
func (m *Machine) BeginCheckout() error {
	m.mu.Lock()
	if err := m.expectLocked(d.ScreenBrowsing); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.cart.IsEmpty() {
		m.mu.Unlock()
		return ErrEmptyCart
	}
	fx := &effects{}
	if err := m.transitionLocked(d.ScreenReviewSummary); err != nil {
		m.mu.Unlock()
		return err
	}
	m.session.LastError = ""
	m.commitLocked(fx)
	m.mu.Unlock()
	m.flush(fx)
	return nil
}

// Proceed leaves the review summary. With tips enabled and no tip chosen yet it shows the
// tip selection; otherwise it starts the backend transaction and waits for a payment method.
func (m *Machine) Proceed(ctx context.Context) error {
	m.mu.Lock()
	if err := m.expectLocked(d.ScreenReviewSummary); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.pending != "" {
		m.mu.Unlock()
		return ErrRequestInFlight
	}
	if m.cart.IsEmpty() {
		m.mu.Unlock()
		return ErrEmptyCart
	}

	fx := &effects{}
	if m.cfg.TipEnabled && !m.session.TipChosen {
		err := m.transitionLocked(d.ScreenTipSelection)
		if err == nil {
			m.commitLocked(fx)
		}
		m.mu.Unlock()
		m.flush(fx)
		return err
	}

	epoch := m.session.Epoch
	items := m.cart.Items()
	totals := m.session.Totals
	req := &d.StartTransactionRequest{
		Items:    items,
		Subtotal: totals.Subtotal,
		Tax:      totals.Tax,
		Total:    totals.Total,
	}
	m.pending = "start_transaction"
	m.mu.Unlock()

	callCtx, cancel := m.callContext(ctx)
	resp, err := m.backend.StartTransaction(callCtx, req)
	cancel()

	m.mu.Lock()
	if m.session.Epoch != epoch {
		m.mu.Unlock()
		if err == nil {
			m.log.Info("transaction started for an abandoned checkout, left pending",
				zap.String("transaction_id", resp.TransactionID))
		}
		return ErrSessionChanged
	}
	m.pending = ""

	if err != nil {
		m.session.LastError = fmt.Sprintf("could not start transaction: %v", err)
		m.commitLocked(fx)
		m.mu.Unlock()
		m.flush(fx)
		m.log.Warn("start transaction failed", zap.Error(err))
		return transient("start transaction", err)
	}

	now := time.Now().UTC()
	number := resp.TransactionNumber
	if number == "" {
		number = d.TransactionNumber(now)
	}
	m.session.Transaction = &d.Transaction{
		TransactionID:     resp.TransactionID,
		TransactionNumber: number,
		Items:             items,
		Status:            d.TransactionPending,
		CreatedAt:         now,
	}
	m.session.LastError = ""
	if err := m.transitionLocked(d.ScreenAwaitingPaymentChoice); err != nil {
		m.mu.Unlock()
		return err
	}
	m.commitLocked(fx)
	m.mu.Unlock()
	m.flush(fx)

	m.log.Info("transaction started",
		zap.String("transaction_id", resp.TransactionID),
		zap.String("transaction_number", number))
	return nil
}

// SelectTip records the customer's tip and returns to the review summary.
func (m *Machine) SelectTip(choice d.TipChoice) error {
	if err := choice.Validate(); err != nil {
		return ErrInvalidTip
	}
	m.mu.Lock()
	if err := m.expectLocked(d.ScreenTipSelection); err != nil {
		m.mu.Unlock()
		return err
	}
	fx := &effects{}
	if err := m.transitionLocked(d.ScreenReviewSummary); err != nil {
		m.mu.Unlock()
		return err
	}
	m.session.Tip = choice
	m.session.TipChosen = true
	m.commitLocked(fx)
	m.mu.Unlock()
	m.flush(fx)
	return nil
}
