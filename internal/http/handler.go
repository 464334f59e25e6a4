package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/backend"
	"github.com/fjod/go_pos/internal/checkout"
	"github.com/fjod/go_pos/internal/scanner"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Checkout is the part of the checkout machine the console drives.
type Checkout interface {
	Session() d.CheckoutSession
	AddProduct(p d.Product) error
	AddBarcode(ctx context.Context, barcode string) (*d.Product, error)
	SetQuantity(productID int64, quantity int32) error
	RemoveItem(productID int64) error
	ClearCart() error
	BeginCheckout() error
	Proceed(ctx context.Context) error
	SelectTip(choice d.TipChoice) error
	PaymentMethods(ctx context.Context) ([]d.PaymentMethodInfo, error)
	SelectPaymentMethod(ctx context.Context, paymentMethodID int64) error
	SubmitCash(ctx context.Context, tendered decimal.Decimal) error
	ContinueToReceipt() error
	CaptureSignature(strokes ...d.Stroke) error
	ClearSignature() error
	ChooseReceipt(ctx context.Context, pref d.ReceiptPreference) error
	Cancel() error
}

type ReceiptDownloader interface {
	DownloadReceipt(ctx context.Context, transactionID string) ([]byte, error)
}

type Scanner interface {
	Mode() scanner.Mode
	SetMode(m scanner.Mode)
	Feed(keys string) int
}

type Handler struct {
	checkout Checkout
	scanner  Scanner
	receipts ReceiptDownloader
	timeout  time.Duration
	log      *zap.Logger
}

func NewHandler(c Checkout, s Scanner, receipts ReceiptDownloader, timeout time.Duration, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		checkout: c,
		scanner:  s,
		receipts: receipts,
		timeout:  timeout,
		log:      log,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Warn("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func (h *Handler) respondSession(w http.ResponseWriter, status int) {
	h.respondJSON(w, status, h.checkout.Session())
}

// handleCheckoutError converts checkout errors to HTTP status codes.
func (h *Handler) handleCheckoutError(w http.ResponseWriter, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, backend.ErrNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, checkout.ErrPaymentDeclined):
		httpStatus = http.StatusPaymentRequired
		code = "payment_declined"
	case errors.Is(err, checkout.ErrValidation):
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case errors.Is(err, checkout.ErrIllegalTransition):
		httpStatus = http.StatusConflict
		code = "illegal_transition"
	case errors.Is(err, checkout.ErrRequestInFlight), errors.Is(err, checkout.ErrSessionChanged):
		httpStatus = http.StatusConflict
		code = "aborted"
	case errors.Is(err, backend.ErrUnavailable):
		httpStatus = http.StatusServiceUnavailable
		code = "service_unavailable"
	case errors.Is(err, checkout.ErrTransient):
		httpStatus = http.StatusBadGateway
		code = "backend_error"
	default:
		h.log.Error("unexpected checkout error", zap.Error(err))
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
	}

	h.respondError(w, httpStatus, code, err.Error())
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// GET /api/v1/session
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.respondSession(w, http.StatusOK)
}

// GET /api/v1/payment-methods
func (h *Handler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	methods, err := h.checkout.PaymentMethods(ctx)
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, methods)
}
