package checkout

import (
	"context"
	"fmt"
	"time"

	d "github.com/fjod/go_pos/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleCustomerAction applies an input made on the customer display. Every accepted
// action is journalled.
func (m *Machine) HandleCustomerAction(ctx context.Context, action d.CustomerAction) error {
	var err error
	switch action.Type {
	case d.ActionSelectTip:
		if action.Tip == nil {
			return ErrInvalidTip
		}
		err = m.SelectTip(*action.Tip)
	case d.ActionProceed:
		err = m.Proceed(ctx)
	case d.ActionChooseReceipt:
		if action.Receipt == nil {
			return ErrInvalidReceipt
		}
		err = m.ChooseReceipt(ctx, *action.Receipt)
	case d.ActionSignature:
		err = m.CaptureSignature(action.Strokes...)
	case d.ActionClearSign:
		err = m.ClearSignature()
	default:
		return fmt.Errorf("%w: unknown customer action %q", ErrValidation, action.Type)
	}
	if err != nil {
		return err
	}
	m.logCustomerAction(ctx, action)
	return nil
}

func (m *Machine) logCustomerAction(ctx context.Context, action d.CustomerAction) {
	if m.recorder == nil {
		return
	}
	payload := map[string]any{"action": action.Type}
	switch action.Type {
	case d.ActionSelectTip:
		payload["tip"] = action.Tip
	case d.ActionChooseReceipt:
		payload["receipt_type"] = action.Receipt.Type
	case d.ActionSignature:
		payload["strokes"] = len(action.Strokes)
	}
	raw := m.marshalPayload(d.EventCustomerAction, payload)

	m.mu.Lock()
	txID := m.session.TransactionID()
	m.mu.Unlock()

	callCtx, cancel := m.callContext(ctx)
	defer cancel()
	err := m.recorder.Record(callCtx, d.CheckoutEvent{
		EventID:       uuid.NewString(),
		Type:          d.EventCustomerAction,
		RegisterID:    m.cfg.RegisterID,
		TransactionID: txID,
		Payload:       raw,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		m.log.Warn("failed to log customer action", zap.String("action", string(action.Type)), zap.Error(err))
		m.observer.BestEffortFailed("journal")
	}
}
