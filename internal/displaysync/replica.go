package displaysync

import (
	"context"
	"sync"

	d "github.com/fjod/go_pos/domain"
	"go.uber.org/zap"
)

// Replica is the customer display's copy of the checkout session. It never decides
// state on its own: it applies snapshots from the register and payment events from the
// server, reconciling the two.
type Replica struct {
	log      *zap.Logger
	onChange func(d.CheckoutSession)

	mu      sync.Mutex
	session *d.CheckoutSession
	// highest declined attempt seen for declinedTx
	declinedTx      string
	declinedAttempt int
	declinedReason  string
}

func NewReplica(log *zap.Logger, onChange func(d.CheckoutSession)) *Replica {
	if log == nil {
		log = zap.NewNop()
	}
	return &Replica{log: log, onChange: onChange}
}

func (r *Replica) Current() (d.CheckoutSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return d.CheckoutSession{}, false
	}
	return r.session.Clone(), true
}

// Apply dispatches a channel message. It reports whether the replica changed.
func (r *Replica) Apply(msg d.ChannelMessage) bool {
	switch msg.Kind {
	case d.MessageSnapshot:
		if msg.Session == nil {
			return false
		}
		return r.ApplySnapshot(*msg.Session)
	case d.MessageEvent:
		if msg.Event == nil {
			return false
		}
		return r.ApplyEvent(*msg.Event)
	default:
		r.log.Debug("ignoring channel message", zap.String("kind", string(msg.Kind)))
		return false
	}
}

// ApplySnapshot replaces the replica with s unless s is older than what is shown.
func (r *Replica) ApplySnapshot(s d.CheckoutSession) bool {
	r.mu.Lock()
	cur := r.session
	if cur != nil && cur.Origin == s.Origin && s.Version <= cur.Version {
		r.mu.Unlock()
		return false
	}

	next := s.Clone()
	txID := next.TransactionID()
	if txID != r.declinedTx {
		r.declinedTx = ""
		r.declinedAttempt = 0
		r.declinedReason = ""
	}
	// A decline already received over the channel outranks a snapshot of the same attempt
	// that was taken before the register learned about it.
	if r.declinedTx != "" && txID == r.declinedTx && next.Attempt <= r.declinedAttempt &&
		!next.Screen.IsSettled() &&
		(next.Outcome == d.OutcomePending || next.Outcome == d.OutcomeApproved) {
		r.applyDeclineLocked(&next, r.declinedReason)
	}
	if next.Outcome == d.OutcomeDeclined && txID != "" && next.Attempt >= r.declinedAttempt {
		r.declinedTx = txID
		r.declinedAttempt = next.Attempt
		r.declinedReason = next.LastError
	}
	r.session = &next
	out := next.Clone()
	r.mu.Unlock()

	r.notify(out)
	return true
}

// ApplyEvent applies a server payment event to the current transaction.
func (r *Replica) ApplyEvent(ev d.PaymentEvent) bool {
	r.mu.Lock()
	cur := r.session
	if cur == nil || cur.Transaction == nil {
		r.mu.Unlock()
		r.log.Debug("payment event without an active transaction", zap.String("type", string(ev.Type)))
		return false
	}

	txID := cur.TransactionID()
	evTx := ev.TransactionID
	if evTx == "" {
		evTx = txID
	}
	attempt := ev.Attempt
	if attempt == 0 {
		attempt = cur.Attempt
	}
	log := r.log.With(zap.String("transaction_id", evTx), zap.Int("attempt", attempt), zap.String("type", string(ev.Type)))

	switch {
	case evTx != txID:
		r.mu.Unlock()
		log.Debug("payment event for another transaction ignored")
		return false
	case cur.Screen.IsSettled():
		r.mu.Unlock()
		log.Debug("payment event after settlement ignored")
		return false
	case attempt < cur.Attempt:
		r.mu.Unlock()
		log.Debug("stale payment event ignored")
		return false
	case attempt == 0 || (attempt == cur.Attempt && cur.Outcome != d.OutcomePending):
		r.mu.Unlock()
		log.Debug("payment event without a pending attempt ignored")
		return false
	}

	next := cur.Clone()
	if attempt > next.Attempt {
		next.Attempt = attempt
	}
	if ev.Approved() {
		if r.declinedTx == txID && r.declinedAttempt >= attempt {
			r.mu.Unlock()
			log.Info("approval for a declined attempt ignored")
			return false
		}
		if next.Outcome == d.OutcomeApproved {
			r.mu.Unlock()
			return false
		}
		next.Outcome = d.OutcomeApproved
		next.LastError = ""
		next.Transaction.Status = d.TransactionApproved
		if next.Payment != nil && next.Payment.Method == d.MethodCash {
			next.Screen = d.ScreenCashCollected
		} else {
			next.Screen = d.ScreenCardProcessing
		}
	} else {
		if next.Outcome == d.OutcomeDeclined && r.declinedTx == txID && r.declinedAttempt >= attempt {
			r.mu.Unlock()
			return false
		}
		r.declinedTx = txID
		r.declinedAttempt = attempt
		r.declinedReason = ev.Error
		r.applyDeclineLocked(&next, ev.Error)
	}
	r.session = &next
	out := next.Clone()
	r.mu.Unlock()

	r.notify(out)
	return true
}

func (r *Replica) applyDeclineLocked(s *d.CheckoutSession, reason string) {
	s.Outcome = d.OutcomeDeclined
	s.Screen = d.ScreenAwaitingPaymentChoice
	s.Payment = nil
	if reason != "" {
		s.LastError = reason
	}
	if s.Transaction != nil {
		s.Transaction.Status = d.TransactionPending
	}
}

// Run applies messages until ctx is done or msgs is closed.
func (r *Replica) Run(ctx context.Context, msgs <-chan d.ChannelMessage) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.Apply(msg)
		}
	}
}

func (r *Replica) notify(s d.CheckoutSession) {
	if r.onChange != nil {
		r.onChange(s)
	}
}
