package checkout

import (
	"context"

	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/pricing"
	"go.uber.org/zap"
)

// CaptureSignature adds strokes drawn on the customer display.
func (m *Machine) CaptureSignature(strokes ...d.Stroke) error {
	m.mu.Lock()
	if err := m.expectLocked(d.ScreenReceiptChoice); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.pending != "" {
		m.mu.Unlock()
		return ErrRequestInFlight
	}
	fx := &effects{}
	m.pad.Add(strokes...)
	m.sigSaved = false
	m.session.SignatureCaptured = !m.pad.Empty()
	m.commitLocked(fx)
	m.mu.Unlock()
	m.flush(fx)
	return nil
}

func (m *Machine) ClearSignature() error {
	m.mu.Lock()
	if err := m.expectLocked(d.ScreenReceiptChoice); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.pending != "" {
		m.mu.Unlock()
		return ErrRequestInFlight
	}
	fx := &effects{}
	m.pad.Clear()
	m.sigSaved = false
	m.session.SignatureCaptured = false
	m.commitLocked(fx)
	m.mu.Unlock()
	m.flush(fx)
	return nil
}

// ChooseReceipt finishes the sale. Saving the signature and the receipt preference is
// best-effort: failures are logged and the checkout still reaches Success.
func (m *Machine) ChooseReceipt(ctx context.Context, pref d.ReceiptPreference) error {
	if err := pref.Validate(); err != nil {
		return ErrInvalidReceipt
	}

	m.mu.Lock()
	if err := m.expectLocked(d.ScreenReceiptChoice); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.pending != "" {
		m.mu.Unlock()
		return ErrRequestInFlight
	}
	epoch := m.session.Epoch
	txID := m.session.TransactionID()
	var sig string
	if !m.pad.Empty() && !m.sigSaved {
		url, err := m.pad.DataURL()
		if err != nil {
			m.log.Warn("render signature", zap.Error(err))
		} else {
			sig = url
		}
	}
	m.pending = "receipt"
	m.mu.Unlock()

	log := m.log.With(zap.String("transaction_id", txID))
	saved := false
	if sig != "" {
		callCtx, cancel := m.callContext(ctx)
		err := m.backend.SaveSignature(callCtx, &d.SignatureRequest{TransactionID: txID, Signature: sig})
		cancel()
		if err != nil {
			log.Warn("failed to save signature, continuing", zap.Error(err))
			m.observer.BestEffortFailed("save_signature")
		} else {
			saved = true
		}
	}

	callCtx, cancel := m.callContext(ctx)
	err := m.backend.SaveReceiptPreference(callCtx, &d.ReceiptPreferenceRequest{
		TransactionID: txID,
		ReceiptType:   pref.Type,
		Email:         pref.Email,
		Phone:         pref.Phone,
	})
	cancel()
	if err != nil {
		log.Warn("failed to save receipt preference, continuing", zap.Error(err))
		m.observer.BestEffortFailed("save_receipt_preference")
	}

	m.mu.Lock()
	if m.session.Epoch != epoch {
		m.mu.Unlock()
		return ErrSessionChanged
	}
	m.pending = ""
	if saved {
		m.sigSaved = true
	}
	fx := &effects{}
	if err := m.transitionLocked(d.ScreenSuccess); err != nil {
		m.mu.Unlock()
		return err
	}
	p := pref
	m.session.Receipt = &p
	m.pad.Clear()
	m.commitLocked(fx)
	m.recordLocked(fx, d.EventCheckoutCompleted, map[string]any{
		"transaction_number": m.session.Transaction.TransactionNumber,
		"items":              m.session.Transaction.Items,
		"totals":             m.session.Totals,
		"method":             m.paymentMethodLocked(),
		"change":             pricing.Display(m.session.Change),
		"receipt":            pref,
		"signature_saved":    saved,
	})

	if m.cfg.SuccessDelay > 0 {
		m.armLocked(m.cfg.SuccessDelay, func() { m.autoReset(epoch) })
	} else {
		m.resetLocked(fx)
	}
	m.mu.Unlock()
	m.flush(fx)
	log.Info("checkout completed", zap.String("receipt", string(pref.Type)))
	return nil
}

func (m *Machine) paymentMethodLocked() d.MethodType {
	if m.session.Payment == nil {
		return ""
	}
	return m.session.Payment.Method
}

func (m *Machine) autoReset(epoch uint64) {
	m.mu.Lock()
	if m.session.Epoch != epoch || m.session.Screen != d.ScreenSuccess {
		m.mu.Unlock()
		return
	}
	fx := &effects{}
	m.resetLocked(fx)
	m.mu.Unlock()
	m.flush(fx)
}
