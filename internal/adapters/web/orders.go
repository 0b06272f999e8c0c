package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"syzygy-tms/internal/app"
)

// apiCreateClient handles POST /api/clients.
func (h *Handler) apiCreateClient(w http.ResponseWriter, r *http.Request) {
	var req app.CreateClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.CreateClient(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Client)
}

// apiGetClient handles GET /api/clients/{id}.
func (h *Handler) apiGetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetClient(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Client)
}

// apiListOrders handles GET /api/orders?status=.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListOrders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

// apiReadyToInvoice handles GET /api/orders/ready?limit=.
func (h *Handler) apiReadyToInvoice(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, "limit must be an integer", "INVALID_INPUT", http.StatusBadRequest)
			return
		}
		limit = n
	}
	result, err := h.svc.ListReadyToInvoice(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Orders)
}

// apiGetOrder handles GET /api/orders/{ref}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiCreateOrder handles POST /api/orders.
func (h *Handler) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req app.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Order)
}

// apiUpdateOrder handles PATCH /api/orders/{ref}.
// Absent keys are left alone and null clears a field.
func (h *Handler) apiUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req app.UpdateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.UpdateOrder(r.Context(), chi.URLParam(r, "ref"), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiCancelOrder handles POST /api/orders/{ref}/cancel.
func (h *Handler) apiCancelOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.CancelOrder(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// apiScheduleTrip handles POST /api/trips.
// Body: { order, status?, driver?, vehicle?, pickup_at?, delivery_at?, notes? }
// An order that already has a trip answers 200 with that trip.
func (h *Handler) apiScheduleTrip(w http.ResponseWriter, r *http.Request) {
	var req app.ScheduleTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OrderRef == "" {
		writeError(w, r, "order is required", "INVALID_INPUT", http.StatusBadRequest)
		return
	}
	result, err := h.svc.ScheduleTrip(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	status := http.StatusCreated
	if result.Existing {
		status = http.StatusOK
	}
	writeJSONStatus(w, status, result.Trip)
}

// apiTripStatus handles POST /api/trips/{id}/status. Body: { status }
func (h *Handler) apiTripStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.UpdateTripStatus(r.Context(), id, body.Status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Trip)
}

// apiDeleteTrip handles DELETE /api/trips/{id}.
func (h *Handler) apiDeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteTrip(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
