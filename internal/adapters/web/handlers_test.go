package web_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syzygy-tms/internal/adapters/web"
	"syzygy-tms/internal/app"
	"syzygy-tms/internal/core"
	"syzygy-tms/internal/store/memory"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New()
	cfg := core.DefaultInvoicingConfig()
	cfg.Clock = func() time.Time { return time.Date(2025, time.April, 22, 10, 0, 0, 0, time.UTC) }
	log := zerolog.Nop()
	svc := app.NewAppService(
		store,
		core.NewOrderService(store, log),
		core.NewTripService(store, log),
		core.NewInvoiceService(store, cfg, log),
	)
	srv := httptest.NewServer(web.NewHandler(svc, "https://dispatch.example.com", log))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var raw json.RawMessage
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
		_ = json.Unmarshal(raw, &out) // list responses leave out nil
	}
	return resp, out
}

func id(t *testing.T, m map[string]any) string {
	t.Helper()
	v, ok := m["id"].(float64)
	require.True(t, ok, "response has no id: %v", m)
	return strconv.Itoa(int(v))
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	resp, body := do(t, srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestOrderToInvoiceFlow(t *testing.T) {
	srv := newServer(t)

	resp, client := do(t, srv, http.MethodPost, "/api/clients",
		`{"name":"Danubia Foods s.r.o.","street":"Prístavná 10","zip":"821 09","city":"Bratislava","country":"SK","vat_id":"SK2021111111"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, order := do(t, srv, http.MethodPost, "/api/orders",
		`{"ref":"ORD-77","client_id":`+id(t, client)+`,"pickup_address":"BTS","delivery_address":"VIE","price":"1 200,00"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "NEW", order["status"])
	assert.Equal(t, "Danubia Foods s.r.o.", order["client_name"])

	resp, trip := do(t, srv, http.MethodPost, "/api/trips", `{"order":"ORD-77","driver":"Ján"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tripID := id(t, trip)

	resp, _ = do(t, srv, http.MethodPost, "/api/trips", `{"order":"ORD-77"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "second schedule returns the existing trip")

	resp, _ = do(t, srv, http.MethodPost, "/api/trips/"+tripID+"/status", `{"status":"IN_PROGRESS"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, order = do(t, srv, http.MethodGet, "/api/orders/ORD-77", "")
	assert.Equal(t, "IN_TRANSIT", order["status"])

	resp, _ = do(t, srv, http.MethodPost, "/api/trips/"+tripID+"/status", `{"status":"DONE"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, inv := do(t, srv, http.MethodPost, "/api/invoices", `{"orderId":"ORD-77"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "INV-2025-0001", inv["number"])
	assert.Equal(t, "ISSUED", inv["status"])
	assert.Equal(t, "1200", inv["total"])
	buyer := inv["buyer"].(map[string]any)
	assert.Equal(t, "Prístavná 10, 821 09, Bratislava, SK", buyer["address"])
	items := inv["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Transport service (ORD-77: BTS → VIE)", items[0].(map[string]any)["description"])

	resp, dup := do(t, srv, http.MethodPost, "/api/invoices", `{"orderId":`+id(t, order)+`}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_INVOICED", dup["code"])
	assert.Equal(t, inv["id"], dup["invoice"].(map[string]any)["id"])

	resp, body := do(t, srv, http.MethodPatch, "/api/orders/ORD-77", `{"price":"999"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["code"])

	resp, order = do(t, srv, http.MethodPatch, "/api/orders/ORD-77", `{"driver":"Milan"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Milan", order["driver"])

	resp, snap := do(t, srv, http.MethodGet, "/api/invoices/"+id(t, inv)+"/snapshot", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ORD-77", snap["order_ref"])
	assert.Equal(t, "BTS → VIE", snap["route"])
}

func TestManualInvoiceEndpoints(t *testing.T) {
	srv := newServer(t)

	resp, inv := do(t, srv, http.MethodPost, "/api/invoices", `{"mode":"manual"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "DRAFT", inv["status"])
	assert.Equal(t, "0", inv["total"])
	assert.Equal(t, "—", inv["buyer"].(map[string]any)["name"])
	invID := id(t, inv)

	resp, inv = do(t, srv, http.MethodPut, "/api/invoices/"+invID+"/pricing",
		`{"description":"Consulting","net_amount":"100","vat_rate":"20"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "120", inv["total"])

	resp, inv = do(t, srv, http.MethodPatch, "/api/invoices/"+invID,
		`{"number":"INV-2025-0500","buyer_name":"Karpaty Trade","due_date":null}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "INV-2025-0500", inv["number"])
	assert.Equal(t, "Karpaty Trade", inv["buyer"].(map[string]any)["name"])
	assert.Nil(t, inv["due_date"])

	resp, body := do(t, srv, http.MethodPatch, "/api/invoices/"+invID, `{"number":null}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", body["code"])

	resp, _ = do(t, srv, http.MethodPost, "/api/invoices/"+invID+"/status", `{"status":"PAID"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, srv, http.MethodPost, "/api/invoices/"+invID+"/status", `{"status":"DRAFT"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["code"])
}

func TestErrorResponses(t *testing.T) {
	srv := newServer(t)

	tests := []struct {
		name, method, path, body string
		status                   int
		code                     string
	}{
		{"unknown order", http.MethodGet, "/api/orders/NOPE", "", http.StatusNotFound, "NOT_FOUND"},
		{"unknown invoice", http.MethodGet, "/api/invoices/42", "", http.StatusNotFound, "NOT_FOUND"},
		{"bad id", http.MethodGet, "/api/invoices/abc", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"bad json", http.MethodPost, "/api/orders", `{"ref":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"missing fields", http.MethodPost, "/api/orders", `{"ref":"X"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"invoice without order", http.MethodPost, "/api/invoices", `{}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown status filter", http.MethodGet, "/api/orders?status=LOST", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"trip for unknown order", http.MethodPost, "/api/trips", `{"order":"NOPE"}`, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["request_id"])
		})
	}
}

func TestDuplicateOrderRef(t *testing.T) {
	srv := newServer(t)
	body := `{"ref":"DUP-1","pickup_address":"Košice","delivery_address":"Debrecen"}`

	resp, _ := do(t, srv, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, out := do(t, srv, http.MethodPost, "/api/orders", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_EXISTS", out["code"])
}

func TestDeleteTripResetsOrder(t *testing.T) {
	srv := newServer(t)

	_, order := do(t, srv, http.MethodPost, "/api/orders", `{"ref":"DEL-1","pickup_address":"Poprad","delivery_address":"Zakopane"}`)
	_, trip := do(t, srv, http.MethodPost, "/api/trips", `{"order":"DEL-1","status":"IN_PROGRESS"}`)
	_, order = do(t, srv, http.MethodGet, "/api/orders/"+id(t, order), "")
	assert.Equal(t, "IN_TRANSIT", order["status"])

	resp, _ := do(t, srv, http.MethodDelete, "/api/trips/"+id(t, trip), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, order = do(t, srv, http.MethodGet, "/api/orders/DEL-1", "")
	assert.Equal(t, "NEW", order["status"])
}

func TestCORSAndRequestID(t *testing.T) {
	srv := newServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://dispatch.example.com")
	req.Header.Set("X-Request-ID", "trace-123")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://dispatch.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "trace-123", resp.Header.Get("X-Request-ID"))

	req, err = http.NewRequest(http.MethodGet, srv.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example.com")
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
