package checkout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/pricing"
	"github.com/fjod/go_pos/internal/signature"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Machine owns the checkout session of one register. Every mutation goes through it.
//
// The mutex is never held across a collaborator call. A call captures the session epoch
// (and payment attempt) before it starts; when it completes, its result is applied only
// if the session still matches, otherwise it is discarded.
type Machine struct {
	cfg       Config
	backend   Backend
	publisher Publisher
	recorder  Recorder
	observer  Observer
	log       *zap.Logger

	mu       sync.Mutex
	session  d.CheckoutSession
	cart     *cart.Store
	pad      *signature.Pad
	sigSaved bool
	pending  string
	timer    *time.Timer

	lmu       sync.RWMutex
	listeners map[int]func(d.CheckoutSession)
	nextID    int
}

type Option func(*Machine)

func WithLogger(log *zap.Logger) Option {
	return func(m *Machine) { m.log = log }
}

func WithPublisher(p Publisher) Option {
	return func(m *Machine) { m.publisher = p }
}

func WithRecorder(r Recorder) Option {
	return func(m *Machine) { m.recorder = r }
}

func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observer = o }
}

func New(cfg Config, backend Backend, opts ...Option) *Machine {
	m := &Machine{
		cfg:       cfg,
		backend:   backend,
		observer:  noopObserver{},
		log:       zap.NewNop(),
		cart:      cart.New(),
		pad:       signature.NewPad(),
		listeners: make(map[int]func(d.CheckoutSession)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(zap.String("register_id", cfg.RegisterID))
	m.session = m.freshSession(uuid.NewString(), 0, 0)
	m.recomputeLocked()
	return m
}

// Session returns a copy of the current session.
func (m *Machine) Session() d.CheckoutSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone()
}

func (m *Machine) RegisterID() string {
	return m.cfg.RegisterID
}

// Subscribe registers fn to receive every committed snapshot. The returned func unsubscribes.
func (m *Machine) Subscribe(fn func(d.CheckoutSession)) func() {
	m.lmu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.lmu.Unlock()
	return func() {
		m.lmu.Lock()
		delete(m.listeners, id)
		m.lmu.Unlock()
	}
}

// PaymentMethods lists the configured payment methods in display order.
func (m *Machine) PaymentMethods(ctx context.Context) ([]d.PaymentMethodInfo, error) {
	callCtx, cancel := m.callContext(ctx)
	defer cancel()
	methods, err := m.backend.ListPaymentMethods(callCtx)
	if err != nil {
		return nil, transient("list payment methods", err)
	}
	return methods, nil
}

// effects collects what a locked section produced so it can be delivered after unlocking.
type effects struct {
	snapshots []d.CheckoutSession
	events    []d.PaymentEvent
	records   []d.CheckoutEvent
}

func (m *Machine) freshSession(origin string, version, epoch uint64) d.CheckoutSession {
	return d.CheckoutSession{
		Origin:         origin,
		Version:        version,
		Epoch:          epoch,
		Screen:         d.ScreenBrowsing,
		Tip:            d.NoTip(),
		TipSuggestions: append([]int64(nil), m.cfg.TipSuggestions...),
		Change:         decimal.Zero,
		UpdatedAt:      time.Now().UTC(),
	}
}

// recomputeLocked derives cart view and totals. Once a transaction exists its item
// snapshot is priced instead of the live cart.
func (m *Machine) recomputeLocked() {
	m.session.Cart = m.cart.Items()
	items := m.session.Cart
	if m.session.Transaction != nil {
		items = m.session.Transaction.Items
	}

	base := pricing.ComputeTotals(items, m.cfg.TaxRate, decimal.Zero)
	tip := decimal.Zero
	if m.session.TipChosen {
		t, err := pricing.TipAmount(base.Total, m.session.Tip)
		if err != nil {
			m.log.Warn("dropping invalid tip", zap.Error(err))
		} else {
			tip = t
		}
	}
	m.session.Totals = pricing.ComputeTotals(items, m.cfg.TaxRate, tip)
	if m.session.Payment != nil {
		m.session.Payment.Tip = tip
	}
}

func (m *Machine) commitLocked(fx *effects) {
	m.recomputeLocked()
	m.session.Version++
	m.session.UpdatedAt = time.Now().UTC()
	fx.snapshots = append(fx.snapshots, m.session.Clone())
}

func (m *Machine) transitionLocked(to d.Screen) error {
	from := m.session.Screen
	if !d.CanTransitionTo(from, to) {
		return illegal(from, to)
	}
	m.session.Screen = to
	m.observer.Transition(from, to)
	m.log.Debug("checkout transition", zap.Stringer("from", from), zap.Stringer("to", to))
	return nil
}

func (m *Machine) expectLocked(want ...d.Screen) error {
	for _, s := range want {
		if m.session.Screen == s {
			return nil
		}
	}
	return unexpectedScreen(m.session.Screen, want...)
}

// resetLocked starts a new sale: empty cart, no transaction, next epoch.
func (m *Machine) resetLocked(fx *effects) {
	from := m.session.Screen
	m.stopTimerLocked()
	m.cart.Clear()
	m.pad.Clear()
	m.sigSaved = false
	m.pending = ""
	m.session = m.freshSession(m.session.Origin, m.session.Version, m.session.Epoch+1)
	m.observer.Transition(from, d.ScreenBrowsing)
	m.commitLocked(fx)
}

func (m *Machine) armLocked(delay time.Duration, fn func()) {
	m.stopTimerLocked()
	m.timer = time.AfterFunc(delay, fn)
}

func (m *Machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// marshalPayload encodes a journal payload, falling back to an empty object.
func (m *Machine) marshalPayload(typ d.CheckoutEventType, payload any) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		m.log.Error("marshal checkout event payload", zap.String("event_type", string(typ)), zap.Error(err))
		return json.RawMessage(`{}`)
	}
	return raw
}

func (m *Machine) recordLocked(fx *effects, typ d.CheckoutEventType, payload any) {
	raw := m.marshalPayload(typ, payload)
	fx.records = append(fx.records, d.CheckoutEvent{
		EventID:       uuid.NewString(),
		Type:          typ,
		RegisterID:    m.cfg.RegisterID,
		TransactionID: m.session.TransactionID(),
		Payload:       raw,
		OccurredAt:    time.Now().UTC(),
	})
}

// flush delivers effects outside the lock: local listeners first, then the bus, then the journal.
func (m *Machine) flush(fx *effects) {
	if fx == nil {
		return
	}
	m.lmu.RLock()
	listeners := make([]func(d.CheckoutSession), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.lmu.RUnlock()

	for _, snap := range fx.snapshots {
		for _, fn := range listeners {
			fn(snap.Clone())
		}
		if m.publisher != nil {
			s := snap
			m.publish(d.ChannelMessage{Kind: d.MessageSnapshot, Session: &s})
		}
	}
	if m.publisher != nil {
		for _, ev := range fx.events {
			e := ev
			m.publish(d.ChannelMessage{Kind: d.MessageEvent, Event: &e})
		}
	}
	if m.recorder != nil {
		for _, rec := range fx.records {
			ctx, cancel := m.callContext(context.Background())
			if err := m.recorder.Record(ctx, rec); err != nil {
				m.log.Warn("failed to journal checkout event",
					zap.String("event_type", string(rec.Type)),
					zap.String("transaction_id", rec.TransactionID),
					zap.Error(err))
				m.observer.BestEffortFailed("journal")
			}
			cancel()
		}
	}
}

func (m *Machine) publish(msg d.ChannelMessage) {
	msg.ID = uuid.NewString()
	msg.RegisterID = m.cfg.RegisterID
	msg.SentAt = time.Now().UTC()
	ctx, cancel := m.callContext(context.Background())
	defer cancel()
	if err := m.publisher.Publish(ctx, msg); err != nil {
		m.log.Warn("failed to publish to display channel", zap.String("kind", string(msg.Kind)), zap.Error(err))
		m.observer.BestEffortFailed("publish")
	}
}

func (m *Machine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.cfg.CallTimeout)
}
