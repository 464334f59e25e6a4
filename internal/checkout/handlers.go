package checkout

import (
	"context"
	"time"

	d "github.com/fjod/go_pos/domain"
	"github.com/shopspring/decimal"
)

// Backend is the set of collaborator calls the checkout makes. All of them may block on the network.
type Backend interface {
	LookupBarcode(ctx context.Context, barcode string) (*d.Product, error)
	StartTransaction(ctx context.Context, req *d.StartTransactionRequest) (*d.StartTransactionResponse, error)
	ListPaymentMethods(ctx context.Context) ([]d.PaymentMethodInfo, error)
	ProcessPayment(ctx context.Context, req *d.PaymentRequest) (*d.PaymentResponse, error)
	SaveSignature(ctx context.Context, req *d.SignatureRequest) error
	SaveReceiptPreference(ctx context.Context, req *d.ReceiptPreferenceRequest) error
}

// Publisher carries snapshots and payment events to remote displays.
type Publisher interface {
	Publish(ctx context.Context, msg d.ChannelMessage) error
}

// Recorder journals checkout events. Failures are logged and never block the sale.
type Recorder interface {
	Record(ctx context.Context, event d.CheckoutEvent) error
}

type Observer interface {
	Transition(from, to d.Screen)
	PaymentSettled(method d.MethodType, outcome d.PaymentOutcome)
	BestEffortFailed(call string)
}

type Config struct {
	RegisterID     string
	TaxRate        decimal.Decimal
	TipEnabled     bool
	TipSuggestions []int64
	// ApprovedDelay is how long an approved payment stays on screen before the receipt
	// choice is shown. Zero waits for ContinueToReceipt.
	ApprovedDelay time.Duration
	// SuccessDelay is how long the success screen stays before the register resets.
	SuccessDelay time.Duration
	CallTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RegisterID:     "register-1",
		TaxRate:        decimal.RequireFromString("0.08"),
		TipSuggestions: []int64{15, 18, 20, 25},
		ApprovedDelay:  2500 * time.Millisecond,
		SuccessDelay:   3 * time.Second,
		CallTimeout:    10 * time.Second,
	}
}

type noopObserver struct{}

func (noopObserver) Transition(d.Screen, d.Screen) {}
func (noopObserver) PaymentSettled(d.MethodType, d.PaymentOutcome) {}
func (noopObserver) BestEffortFailed(string) {}
