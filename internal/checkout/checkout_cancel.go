package checkout

import (
	d "github.com/fjod/go_pos/domain"
	"go.uber.org/zap"
)

// Cancel abandons the sale from any non-terminal screen and returns to browsing with an
// empty cart. A started transaction is left pending on the backend. Any in-flight call
// completes later and its result is discarded.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	if m.session.Screen == d.ScreenSuccess {
		m.mu.Unlock()
		return illegal(d.ScreenSuccess, d.ScreenCancelled)
	}
	fx := &effects{}
	m.stopTimerLocked()

	if m.pending != "" {
		m.log.Info("cancelling with a call in flight", zap.String("call", m.pending))
	}
	if tx := m.session.Transaction; tx != nil {
		m.recordLocked(fx, d.EventCheckoutCancelled, map[string]any{
			"transaction_number": tx.TransactionNumber,
			"screen":             m.session.Screen,
			"attempt":            m.session.Attempt,
		})
	}
	if err := m.transitionLocked(d.ScreenCancelled); err != nil {
		m.mu.Unlock()
		return err
	}
	m.commitLocked(fx)
	m.resetLocked(fx)
	m.mu.Unlock()

	m.flush(fx)
	m.log.Info("checkout cancelled")
	return nil
}
