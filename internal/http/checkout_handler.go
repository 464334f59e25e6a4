package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	d "github.com/fjod/go_pos/domain"
	"github.com/fjod/go_pos/internal/backend"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SelectPaymentMethodRequestDTO struct {
	PaymentMethodID int64 `json:"payment_method_id"`
}

type CashRequestDTO struct {
	AmountTendered decimal.Decimal `json:"amount_tendered"`
}

type SignatureRequestDTO struct {
	Strokes []d.Stroke `json:"strokes"`
}

// POST /api/v1/checkout/begin
func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.BeginCheckout(); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

// POST /api/v1/checkout/proceed
func (h *Handler) Proceed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.checkout.Proceed(ctx); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

// POST /api/v1/checkout/tip
func (h *Handler) SelectTip(w http.ResponseWriter, r *http.Request) {
	var req d.TipChoice
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.checkout.SelectTip(req); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

// POST /api/v1/checkout/payment-method
func (h *Handler) SelectPaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SelectPaymentMethodRequestDTO
	if !h.decode(w, r, &req) {
		return
	}
	if req.PaymentMethodID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid_payment_method_id", "payment_method_id must be positive")
		return
	}

	if err := h.checkout.SelectPaymentMethod(ctx, req.PaymentMethodID); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

// POST /api/v1/checkout/cash
func (h *Handler) SubmitCash(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CashRequestDTO
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.checkout.SubmitCash(ctx, req.AmountTendered); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

// POST /api/v1/checkout/continue
func (h *Handler) ContinueToReceipt(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.ContinueToReceipt(); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

// POST /api/v1/checkout/signature
func (h *Handler) CaptureSignature(w http.ResponseWriter, r *http.Request) {
	var req SignatureRequestDTO
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Strokes) == 0 {
		h.respondError(w, http.StatusBadRequest, "invalid_signature", "at least one stroke is required")
		return
	}
	if err := h.checkout.CaptureSignature(req.Strokes...); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

// DELETE /api/v1/checkout/signature
func (h *Handler) ClearSignature(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.ClearSignature(); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

// POST /api/v1/checkout/receipt
func (h *Handler) ChooseReceipt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req d.ReceiptPreference
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.checkout.ChooseReceipt(ctx, req); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

// POST /api/v1/checkout/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.Cancel(); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

// GET /api/v1/receipts/{transaction_id}
func (h *Handler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	transactionID := strings.TrimSpace(chi.URLParam(r, "transaction_id"))
	if transactionID == "" {
		h.respondError(w, http.StatusBadRequest, "invalid_transaction_id", "transaction_id is required")
		return
	}

	pdf, err := h.receipts.DownloadReceipt(ctx, transactionID)
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrNotFound):
			h.respondError(w, http.StatusNotFound, "not_found", "receipt not found")
		case errors.Is(err, backend.ErrUnavailable):
			h.respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
		default:
			h.log.Warn("receipt download failed", zap.String("transaction_id", transactionID), zap.Error(err))
			h.respondError(w, http.StatusBadGateway, "backend_error", err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="receipt-`+transactionID+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.log.Warn("failed to write receipt", zap.Error(err))
	}
}
