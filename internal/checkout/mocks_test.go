package checkout

import (
	"context"
	"errors"
	"sync"

	d "github.com/fjod/go_pos/domain"
	"github.com/shopspring/decimal"
)

// MockBackend implements Backend for testing
type MockBackend struct {
	mu sync.Mutex

	Products map[string]d.Product
	Methods  []d.PaymentMethodInfo

	StartResp *d.StartTransactionResponse
	StartErr  error

	// PaymentResults are consumed one per ProcessPayment call; the last one repeats.
	PaymentResults []PaymentResult
	// PaymentGate, when set, blocks ProcessPayment until a value is received.
	PaymentGate chan struct{}

	SignatureErr error
	ReceiptErr   error

	StartCalls     int
	PaymentCalls   []d.PaymentRequest
	SignatureCalls []d.SignatureRequest
	ReceiptCalls   []d.ReceiptPreferenceRequest
}

type PaymentResult struct {
	Resp *d.PaymentResponse
	Err  error
}

func newMockBackend() *MockBackend {
	return &MockBackend{
		Products: map[string]d.Product{
			"012345678905": {ProductID: 1, Name: "Coffee", SKU: "COF-1", Barcode: "012345678905", UnitPrice: decimal.RequireFromString("10.00"), AvailableQuantity: 5},
			"036000291452": {ProductID: 2, Name: "Bagel", SKU: "BAG-1", Barcode: "036000291452", UnitPrice: decimal.RequireFromString("0.99"), AvailableQuantity: 3},
		},
		Methods: []d.PaymentMethodInfo{
			{PaymentMethodID: 1, Name: "Cash", MethodType: "cash", DisplayOrder: 1},
			{PaymentMethodID: 2, Name: "Credit Card", MethodType: "credit_card", RequiresTerminal: true, DisplayOrder: 2},
		},
		StartResp:      &d.StartTransactionResponse{TransactionID: "tx-1", TransactionNumber: "TXN20261016120000"},
		PaymentResults: []PaymentResult{{Resp: &d.PaymentResponse{Success: true}}},
	}
}

func (m *MockBackend) LookupBarcode(_ context.Context, barcode string) (*d.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Products[barcode]
	if !ok {
		return nil, errors.New("product not found")
	}
	return &p, nil
}

func (m *MockBackend) StartTransaction(_ context.Context, _ *d.StartTransactionRequest) (*d.StartTransactionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartCalls++
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	resp := *m.StartResp
	return &resp, nil
}

func (m *MockBackend) ListPaymentMethods(_ context.Context) ([]d.PaymentMethodInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]d.PaymentMethodInfo(nil), m.Methods...), nil
}

func (m *MockBackend) ProcessPayment(ctx context.Context, req *d.PaymentRequest) (*d.PaymentResponse, error) {
	m.mu.Lock()
	m.PaymentCalls = append(m.PaymentCalls, *req)
	gate := m.PaymentGate
	var res PaymentResult
	if len(m.PaymentResults) > 0 {
		res = m.PaymentResults[0]
		if len(m.PaymentResults) > 1 {
			m.PaymentResults = m.PaymentResults[1:]
		}
	}
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return res.Resp, res.Err
}

func (m *MockBackend) SaveSignature(_ context.Context, req *d.SignatureRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignatureCalls = append(m.SignatureCalls, *req)
	return m.SignatureErr
}

func (m *MockBackend) SaveReceiptPreference(_ context.Context, req *d.ReceiptPreferenceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReceiptCalls = append(m.ReceiptCalls, *req)
	return m.ReceiptErr
}

func (m *MockBackend) paymentCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.PaymentCalls)
}

// MockRecorder implements Recorder for testing
type MockRecorder struct {
	mu     sync.Mutex
	Events []d.CheckoutEvent
	Err    error
}

func (m *MockRecorder) Record(_ context.Context, ev d.CheckoutEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
	return m.Err
}

func (m *MockRecorder) types() []d.CheckoutEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]d.CheckoutEventType, 0, len(m.Events))
	for _, ev := range m.Events {
		out = append(out, ev.Type)
	}
	return out
}

// MockPublisher implements Publisher for testing
type MockPublisher struct {
	mu       sync.Mutex
	Messages []d.ChannelMessage
	Err      error
}

func (m *MockPublisher) Publish(_ context.Context, msg d.ChannelMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
	return m.Err
}

func (m *MockPublisher) events() []d.PaymentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []d.PaymentEvent
	for _, msg := range m.Messages {
		if msg.Kind == d.MessageEvent {
			out = append(out, *msg.Event)
		}
	}
	return out
}

// MockObserver implements Observer for testing
type MockObserver struct {
	mu          sync.Mutex
	Transitions [][2]d.Screen
	Outcomes    []d.PaymentOutcome
	Failures    []string
}

func (m *MockObserver) Transition(from, to d.Screen) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transitions = append(m.Transitions, [2]d.Screen{from, to})
}

func (m *MockObserver) PaymentSettled(_ d.MethodType, outcome d.PaymentOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, outcome)
}

func (m *MockObserver) BestEffortFailed(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures = append(m.Failures, call)
}
