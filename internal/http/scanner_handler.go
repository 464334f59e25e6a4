package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_pos/internal/scanner"
	"go.uber.org/zap"
)

type ScanKeysRequestDTO struct {
	Keys string `json:"keys"`
}

type ScannerModeDTO struct {
	Mode string `json:"mode"`
}

type ScanKeysResponseDTO struct {
	Consumed int `json:"consumed"`
}

// POST /api/v1/scanner/keys
func (h *Handler) FeedKeys(w http.ResponseWriter, r *http.Request) {
	var req ScanKeysRequestDTO
	if !h.decode(w, r, &req) {
		return
	}
	h.respondJSON(w, http.StatusAccepted, ScanKeysResponseDTO{Consumed: h.scanner.Feed(req.Keys)})
}

// GET /api/v1/scanner/mode
func (h *Handler) GetScannerMode(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, ScannerModeDTO{Mode: h.scanner.Mode().String()})
}

// PUT /api/v1/scanner/mode
func (h *Handler) SetScannerMode(w http.ResponseWriter, r *http.Request) {
	var req ScannerModeDTO
	if !h.decode(w, r, &req) {
		return
	}
	switch req.Mode {
	case scanner.ModeHardwareScan.String():
		h.scanner.SetMode(scanner.ModeHardwareScan)
	case scanner.ModeTextEntry.String():
		h.scanner.SetMode(scanner.ModeTextEntry)
	default:
		h.respondError(w, http.StatusBadRequest, "invalid_mode", "mode must be hardware_scan or text_entry")
		return
	}
	h.respondJSON(w, http.StatusOK, ScannerModeDTO{Mode: h.scanner.Mode().String()})
}

func (h *Handler) addScanned(ctx context.Context, code string) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	p, err := h.checkout.AddBarcode(ctx, code)
	if err != nil {
		h.log.Warn("scanned barcode not added", zap.String("barcode", code), zap.Error(err))
		return
	}
	h.log.Info("scanned product added", zap.String("barcode", code), zap.Int64("product_id", p.ProductID))
}
