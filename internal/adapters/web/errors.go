package web

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"syzygy-tms/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

var kindStatus = map[core.Kind]int{
	core.KindNotFound:        http.StatusNotFound,
	core.KindAlreadyExists:   http.StatusConflict,
	core.KindAlreadyInvoiced: http.StatusConflict,
	core.KindConflict:        http.StatusConflict,
	core.KindForbidden:       http.StatusForbidden,
	core.KindInvalidInput:    http.StatusBadRequest,
}

// writeDomainError maps a service error to its HTTP status. Internal errors
// are logged and answered with a generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeError(w, r, "internal server error", string(core.KindInternal), http.StatusInternalServerError)
		return
	}
	writeError(w, r, err.Error(), string(kind), status)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
