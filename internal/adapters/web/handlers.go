package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"syzygy-tms/internal/app"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string, log zerolog.Logger) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Clients ───────────────────────────────────────────────────────────
		r.Post("/api/clients", h.apiCreateClient)
		r.Get("/api/clients/{id}", h.apiGetClient)

		// ── Orders ────────────────────────────────────────────────────────────
		r.Get("/api/orders", h.apiListOrders)
		r.Post("/api/orders", h.apiCreateOrder)
		r.Get("/api/orders/ready", h.apiReadyToInvoice)
		r.Get("/api/orders/{ref}", h.apiGetOrder)
		r.Patch("/api/orders/{ref}", h.apiUpdateOrder)
		r.Post("/api/orders/{ref}/cancel", h.apiCancelOrder)

		// ── Trips ─────────────────────────────────────────────────────────────
		r.Post("/api/trips", h.apiScheduleTrip)
		r.Post("/api/trips/{id}/status", h.apiTripStatus)
		r.Delete("/api/trips/{id}", h.apiDeleteTrip)

		// ── Invoices ──────────────────────────────────────────────────────────
		r.Get("/api/invoices", h.apiListInvoices)
		r.Post("/api/invoices", h.apiCreateInvoice)
		r.Get("/api/invoices/{id}", h.apiGetInvoice)
		r.Patch("/api/invoices/{id}", h.apiUpdateInvoice)
		r.Put("/api/invoices/{id}/pricing", h.apiInvoicePricing)
		r.Post("/api/invoices/{id}/status", h.apiInvoiceStatus)
		r.Get("/api/invoices/{id}/snapshot", h.apiInvoiceSnapshot)
	})

	h.router = r
	return r
}

// health reports liveness.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// idParam reads a positive integer URL parameter, writing a 400 on failure.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid "+name, "INVALID_INPUT", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "INVALID_INPUT", http.StatusBadRequest)
		return false
	}
	return true
}
