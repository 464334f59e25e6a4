package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	d "github.com/fjod/go_pos/domain"
	"github.com/go-chi/chi/v5"
)

// AddItemRequestDTO adds either a scanned barcode or a product picked from the catalog.
type AddItemRequestDTO struct {
	Barcode string     `json:"barcode,omitempty"`
	Product *d.Product `json:"product,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int32 `json:"quantity"`
}

// POST /api/v1/cart/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !h.decode(w, r, &req) {
		return
	}

	barcode := strings.TrimSpace(req.Barcode)
	switch {
	case barcode != "":
		if _, err := h.checkout.AddBarcode(ctx, barcode); err != nil {
			h.handleCheckoutError(w, err)
			return
		}
	case req.Product != nil:
		if req.Product.ProductID <= 0 {
			h.respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
			return
		}
		if req.Product.UnitPrice.IsNegative() {
			h.respondError(w, http.StatusBadRequest, "invalid_price", "unit_price must not be negative")
			return
		}
		if err := h.checkout.AddProduct(*req.Product); err != nil {
			h.handleCheckoutError(w, err)
			return
		}
	default:
		h.respondError(w, http.StatusBadRequest, "invalid_request", "barcode or product is required")
		return
	}

	h.respondSession(w, http.StatusCreated)
}

// PUT /api/v1/cart/items/{product_id}
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if !h.decode(w, r, &req) {
		return
	}
	if req.Quantity <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be positive")
		return
	}

	if err := h.checkout.SetQuantity(productID, req.Quantity); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

// DELETE /api/v1/cart/items/{product_id}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productID(w, r)
	if !ok {
		return
	}
	if err := h.checkout.RemoveItem(productID); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

// DELETE /api/v1/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.ClearCart(); err != nil {
		h.handleCheckoutError(w, err)
		return
	}
	h.respondSession(w, http.StatusOK)
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}

// ScanLoop adds every completed scan to the cart until scans is closed or ctx ends.
func (h *Handler) ScanLoop(ctx context.Context, scans <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case code, ok := <-scans:
			if !ok {
				return
			}
			h.addScanned(ctx, code)
		}
	}
}
