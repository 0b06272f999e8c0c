package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"syzygy-tms/internal/app"
)

// createInvoiceBody is either {"orderId": ...} or {"mode": "manual", ...}.
type createInvoiceBody struct {
	OrderID json.RawMessage `json:"orderId"`
	Mode    string          `json:"mode"`
	app.ManualInvoiceRequest
}

// orderRef accepts the order id as a JSON number or string.
func (b createInvoiceBody) orderRef() string {
	if len(b.OrderID) == 0 || string(b.OrderID) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.OrderID, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n int
	if err := json.Unmarshal(b.OrderID, &n); err == nil {
		return strconv.Itoa(n)
	}
	return ""
}

type alreadyInvoicedResponse struct {
	errorResponse
	Invoice any `json:"invoice"`
}

// apiCreateInvoice handles POST /api/invoices.
// An order that is already invoiced answers 409 with the existing invoice.
func (h *Handler) apiCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var body createInvoiceBody
	if !decodeJSON(w, r, &body) {
		return
	}

	if strings.EqualFold(body.Mode, "manual") {
		result, err := h.svc.CreateManualInvoice(r.Context(), body.ManualInvoiceRequest)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, result.Invoice)
		return
	}

	ref := body.orderRef()
	if ref == "" {
		writeError(w, r, "orderId is required unless mode is manual", "INVALID_INPUT", http.StatusBadRequest)
		return
	}
	result, err := h.svc.InvoiceOrder(r.Context(), ref)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if result.AlreadyInvoiced {
		writeJSONStatus(w, http.StatusConflict, alreadyInvoicedResponse{
			errorResponse: errorResponse{
				Error:     "order already invoiced",
				Code:      "ALREADY_INVOICED",
				RequestID: requestIDFromContext(r.Context()),
			},
			Invoice: result.Invoice,
		})
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Invoice)
}

// apiListInvoices handles GET /api/invoices.
func (h *Handler) apiListInvoices(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListInvoices(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Invoices)
}

// apiGetInvoice handles GET /api/invoices/{id}.
func (h *Handler) apiGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	result, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Invoice)
}

// apiUpdateInvoice handles PATCH /api/invoices/{id}.
// Body keys: number, issue_date, delivery_date, due_date, note, language,
// buyer_name, buyer_address, buyer_vat, status.
func (h *Handler) apiUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req app.UpdateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.UpdateInvoice(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Invoice)
}

// apiInvoicePricing handles PUT /api/invoices/{id}/pricing.
// Body: { description, net_amount, vat_rate }
func (h *Handler) apiInvoicePricing(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req app.PricingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.UpdateInvoicePricing(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Invoice)
}

// apiInvoiceStatus handles POST /api/invoices/{id}/status. Body: { status }
func (h *Handler) apiInvoiceStatus(w http.ResponseWriter, r *http.Request) {
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
	result, err := h.svc.SetInvoiceStatus(r.Context(), id, body.Status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result.Invoice)
}

// apiInvoiceSnapshot handles GET /api/invoices/{id}/snapshot.
func (h *Handler) apiInvoiceSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	snap, err := h.svc.GetInvoiceSnapshot(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, snap)
}
