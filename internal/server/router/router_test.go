package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/cycleshop/internal/auth"
	"github.com/mamadbah2/cycleshop/internal/config"
	"github.com/mamadbah2/cycleshop/internal/export"
	"github.com/mamadbah2/cycleshop/internal/repository/memory"
	"github.com/mamadbah2/cycleshop/internal/server/handlers"
	"github.com/mamadbah2/cycleshop/internal/service/audit"
	"github.com/mamadbah2/cycleshop/internal/service/commands"
	"github.com/mamadbah2/cycleshop/internal/service/inventory"
	"github.com/mamadbah2/cycleshop/internal/service/invoice"
	"github.com/mamadbah2/cycleshop/internal/service/ledger"
	"github.com/mamadbah2/cycleshop/internal/service/party"
	"github.com/mamadbah2/cycleshop/internal/service/reporting"
	"github.com/mamadbah2/cycleshop/internal/service/settlement"
	"github.com/mamadbah2/cycleshop/internal/service/whatsapp"
)

const ownerNumber = "919800000000"

type outbox struct{ to, body []string }

func (o *outbox) SendText(_ context.Context, to, body string) (string, error) {
	o.to = append(o.to, to)
	o.body = append(o.body, body)
	return "wamid", nil
}

type api struct {
	t      *testing.T
	engine *gin.Engine
	jwt    *auth.JWTService
	outbox *outbox
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := memory.New()
	jwtSvc := auth.NewJWTService("router-test-secret", "cycleshop", time.Hour)

	ledgerSvc := ledger.NewService(store, nil)
	inventorySvc := inventory.NewService(store, nil, nil)
	reportSvc := reporting.NewService(store, ledgerSvc, inventorySvc, reporting.Options{}, nil)
	box := &outbox{}
	dispatcher := commands.NewService(ledgerSvc, inventorySvc, reportSvc, nil)
	messaging := whatsapp.NewService(config.WhatsAppConfig{VerifyToken: "verify-me", OwnerID: ownerNumber}, box, dispatcher, nil)

	engine := New(Handlers{
		Invoices:  handlers.NewInvoiceHandler(invoice.NewService(store, nil, nil), nil),
		Ledger:    handlers.NewLedgerHandler(ledgerSvc, settlement.NewService(store, nil, nil), nil),
		Inventory: handlers.NewInventoryHandler(inventorySvc, nil),
		Parties:   handlers.NewPartyHandler(party.NewService(store, nil), nil),
		Reports:   handlers.NewReportHandler(reportSvc, audit.NewService(store, nil), nil),
		Webhook:   handlers.NewWebhookHandler(messaging, nil),
	}, Options{Verifier: jwtSvc}, nil)

	return &api{t: t, engine: engine, jwt: jwtSvc, outbox: box}
}

func (a *api) do(method, path string, role auth.Role, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		token, _, err := a.jwt.Issue(auth.Principal{UserID: "u-" + string(role), Username: string(role), Role: role})
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type object = map[string]any

func (a *api) create(path string, role auth.Role, body any) string {
	a.t.Helper()
	w := a.do(http.MethodPost, path, role, body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[object](a.t, w)["_id"].(string)
}

func TestHealthAndAuth(t *testing.T) {
	a := newAPI(t)

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/healthz", "", nil).Code)

	w := a.do(http.MethodGet, "/api/invoices", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/api/parties", auth.RoleSales, object{"partyName": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied. Required role: manager or admin", decode[object](t, w)["error"])

	w = a.do(http.MethodGet, "/api/audit", auth.RoleManager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInvoiceLifecycle(t *testing.T) {
	a := newAPI(t)

	partyID := a.create("/api/parties", auth.RoleManager, object{
		"partyName": "Ravi Cycles", "partyType": "debtor", "phoneNumber": "9800000000",
		"state": "Karnataka", "city": "Mysuru", "address": "12 Market Road",
	})
	itemID := a.create("/api/inventory", auth.RoleManager, object{
		"itemName": "Hero Sprint 26", "category": "bicycle", "unitType": "piece",
		"quantityAvailable": 10, "purchasePrice": 5000, "sellingPrice": 6500,
	})

	invoiceBody := func(number string, qty int) object {
		return object{
			"invoiceNumber": number, "partyId": partyID, "invoiceType": "sale",
			"items": []object{{"itemId": itemID, "quantity": qty, "pricePerUnit": 100}},
		}
	}
	invoiceID := a.create("/api/invoices", auth.RoleSales, invoiceBody("INV-1", 3))

	w := a.do(http.MethodPost, "/api/invoices", auth.RoleSales, invoiceBody("INV-2", 20))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[object](t, w)["error"], "Insufficient stock for Hero Sprint 26")

	w = a.do(http.MethodPost, "/api/invoices", auth.RoleSales, invoiceBody("INV-1", 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/ledger?transactionType=receivable&status=pending", auth.RoleSales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]object](t, w)
	require.Len(t, entries, 1)
	entryID := entries[0]["_id"].(string)
	assert.Equal(t, 300.0, entries[0]["balanceAmount"])

	w = a.do(http.MethodPost, "/api/ledger/"+entryID+"/settlement", auth.RoleManager, object{"amount": 500})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Settlement amount (500.00) exceeds balance (300.00)", decode[object](t, w)["error"])

	w = a.do(http.MethodPost, "/api/ledger/"+entryID+"/settlement", auth.RoleSales, object{"amount": 300})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/api/ledger/"+entryID+"/settlement", auth.RoleManager, object{"amount": 300, "mode": "online"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "settled", decode[object](t, w)["status"])

	w = a.do(http.MethodGet, "/api/invoices/"+invoiceID, auth.RoleSales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inv := decode[object](t, w)
	assert.Equal(t, "paid", inv["paymentStatus"])
	assert.Equal(t, 0.0, inv["balanceAmount"])

	w = a.do(http.MethodGet, "/api/inventory/"+itemID+"/history", auth.RoleSales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]object](t, w), 2)

	w = a.do(http.MethodGet, "/api/ledger/summary", auth.RoleSales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[object](t, w)["summary"].(object)
	assert.Equal(t, 0.0, summary["totalReceivable"])

	w = a.do(http.MethodGet, "/api/ledger/summary/export", auth.RoleSales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())

	w = a.do(http.MethodDelete, "/api/invoices/"+invoiceID, auth.RoleManager, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = a.do(http.MethodGet, "/api/invoices/"+invoiceID, auth.RoleSales, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, object{"error": "Invoice not found"}, decode[object](t, w))

	w = a.do(http.MethodGet, "/api/inventory/"+itemID, auth.RoleSales, nil)
	assert.Equal(t, 10.0, decode[object](t, w)["quantityAvailable"])

	w = a.do(http.MethodGet, "/api/audit", auth.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[object](t, w)["findings"])
}

func TestBadInput(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		role   auth.Role
		body   any
		want   int
	}{
		{"bad id", http.MethodGet, "/api/invoices/not-an-id", auth.RoleSales, nil, http.StatusBadRequest},
		{"unknown invoice", http.MethodDelete, "/api/invoices/64b7f0c2a1b2c3d4e5f60718", auth.RoleManager, nil, http.StatusNotFound},
		{"unknown ledger entry", http.MethodPost, "/api/ledger/64b7f0c2a1b2c3d4e5f60718/settlement", auth.RoleManager, object{"amount": 10}, http.StatusNotFound},
		{"malformed json", http.MethodPost, "/api/invoices", auth.RoleSales, "{", http.StatusBadRequest},
		{"bad type filter", http.MethodGet, "/api/invoices?type=gift", auth.RoleSales, nil, http.StatusBadRequest},
		{"bad low stock", http.MethodGet, "/api/inventory?lowStock=-1", auth.RoleSales, nil, http.StatusBadRequest},
		{"bad report date", http.MethodPost, "/api/reports/daily?date=yesterday", auth.RoleAdmin, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(tt.method, tt.path, tt.role, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, decode[object](t, w), "error")
		})
	}
}

func TestDailyReportEndpoint(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/api/reports/daily?date=2025-05-02", auth.RoleAdmin, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 0.0, decode[object](t, w)["sales_amount"])
}

func TestWebhook(t *testing.T) {
	a := newAPI(t)
	a.create("/api/inventory", auth.RoleAdmin, object{
		"itemName": "Brake Cable", "category": "spare_part", "unitType": "piece", "quantityAvailable": 7,
	})

	w := a.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())

	w = a.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	payload := object{"object": "whatsapp_business_account", "entry": []object{{
		"id": "1",
		"changes": []object{{"field": "messages", "value": object{
			"messaging_product": "whatsapp",
			"messages": []object{{"from": ownerNumber, "id": "wamid.in", "type": "text", "text": object{"body": "stock brake"}}},
		}}},
	}}}
	w = a.do(http.MethodPost, "/webhook", "", payload)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, a.outbox.body, 1)
	assert.Equal(t, ownerNumber, a.outbox.to[0])
	assert.Contains(t, a.outbox.body[0], "- Brake Cable: 7")
}
