package http

import (
	"context"
	"sync"

	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/backend"
	"github.com/shopspring/decimal"
)

// MockBackend implements checkout.Backend and ReceiptDownloader for testing
type MockBackend struct {
	mu sync.Mutex

	Products    map[string]d.Product
	Methods     []d.PaymentMethodInfo
	PaymentResp *d.PaymentResponse
	StartErr    error
	Receipts    map[string][]byte
	ReceiptErr  error

	ReceiptCalls []d.ReceiptPreferenceRequest
}

func newMockBackend() *MockBackend {
	return &MockBackend{
		Products: map[string]d.Product{
			"012345678905": {ProductID: 1, Name: "Coffee", SKU: "COF-1", Barcode: "012345678905", UnitPrice: decimal.RequireFromString("10.00"), AvailableQuantity: 5},
		},
		Methods: []d.PaymentMethodInfo{
			{PaymentMethodID: 1, Name: "Cash", MethodType: "cash", DisplayOrder: 1},
			{PaymentMethodID: 2, Name: "Credit Card", MethodType: "credit_card", RequiresTerminal: true, DisplayOrder: 2},
		},
		PaymentResp: &d.PaymentResponse{Success: true},
		Receipts:    map[string][]byte{"tx-1": []byte("%PDF-1.4 receipt")},
	}
}

func (m *MockBackend) LookupBarcode(_ context.Context, barcode string) (*d.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Products[barcode]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &p, nil
}

func (m *MockBackend) StartTransaction(context.Context, *d.StartTransactionRequest) (*d.StartTransactionResponse, error) {
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	return &d.StartTransactionResponse{TransactionID: "tx-1", TransactionNumber: "TXN20261016120000"}, nil
}

func (m *MockBackend) ListPaymentMethods(context.Context) ([]d.PaymentMethodInfo, error) {
	return m.Methods, nil
}

func (m *MockBackend) ProcessPayment(context.Context, *d.PaymentRequest) (*d.PaymentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp := *m.PaymentResp
	return &resp, nil
}

func (m *MockBackend) SaveSignature(context.Context, *d.SignatureRequest) error {
	return nil
}

func (m *MockBackend) SaveReceiptPreference(_ context.Context, req *d.ReceiptPreferenceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReceiptCalls = append(m.ReceiptCalls, *req)
	return nil
}

func (m *MockBackend) DownloadReceipt(_ context.Context, transactionID string) ([]byte, error) {
	if m.ReceiptErr != nil {
		return nil, m.ReceiptErr
	}
	pdf, ok := m.Receipts[transactionID]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return pdf, nil
}
