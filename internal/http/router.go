package http

import (
	"net/http"

	"github.com/fjod/go_pos/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter builds the cashier console API. metricsHandler is mounted on /metrics when set.
func NewRouter(h *Handler, m *metrics.ServerMetrics, metricsHandler http.Handler, maxBodySize int64) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(h.log, m))
	if maxBodySize > 0 {
		r.Use(middleware.RequestSize(maxBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", h.GetSession)
		r.Get("/payment-methods", h.ListPaymentMethods)
		r.Get("/receipts/{transaction_id}", h.DownloadReceipt)

		r.Route("/cart", func(r chi.Router) {
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{product_id}", h.UpdateQuantity)
			r.Delete("/items/{product_id}", h.RemoveItem)
		})

		r.Route("/scanner", func(r chi.Router) {
			r.Post("/keys", h.FeedKeys)
			r.Get("/mode", h.GetScannerMode)
			r.Put("/mode", h.SetScannerMode)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/begin", h.BeginCheckout)
			r.Post("/proceed", h.Proceed)
			r.Post("/tip", h.SelectTip)
			r.Post("/payment-method", h.SelectPaymentMethod)
			r.Post("/cash", h.SubmitCash)
			r.Post("/continue", h.ContinueToReceipt)
			r.Post("/signature", h.CaptureSignature)
			r.Delete("/signature", h.ClearSignature)
			r.Post("/receipt", h.ChooseReceipt)
			r.Post("/cancel", h.Cancel)
		})
	})

	return otelhttp.NewHandler(r, "register-api")
}
