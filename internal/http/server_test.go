package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clearbooks/internal/core"
	"clearbooks/internal/services"
	"clearbooks/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(
		":0",
		services.NewAuthService(repo, time.Hour),
		services.NewCustomerService(repo),
		services.NewDocumentService(repo, nil),
		services.NewExpenseService(repo, nil),
		services.NewTimerService(repo, nil),
	)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func registerAndLogin(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"vatNumber": "IT12345678901",
		"password":  "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &resp)
	return resp.Token
}

func createCustomer(t *testing.T, srv *Server, token string) int64 {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/customers", token, map[string]string{
		"name": "Acme", "email": "acme@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create customer status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var c core.Customer
	decodeBody(t, rec, &c)
	return c.ID
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/customers", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/customers", "not-a-real-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}
}

func TestRegisterValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"vatNumber": "IT123", "password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password: status = %d, want 400", rec.Code)
	}

	registerAndLogin(t, srv)
	rec = doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"vatNumber": "IT12345678901", "password": "correct-horse",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate VAT: status = %d, want 409", rec.Code)
	}
}

func TestFieldLengthLimits(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)
	long := strings.Repeat("x", 201)

	rec := doJSON(t, srv, http.MethodPost, "/api/customers", token, map[string]string{
		"name": long,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("over-long customer name: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/expenses", token, map[string]any{
		"date": "2026-03-01T00:00:00Z", "description": long, "amount": 5,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("over-long expense description: status = %d, want 400", rec.Code)
	}
}

func TestInvoiceFlow(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)
	custID := createCustomer(t, srv, token)

	rec := doJSON(t, srv, http.MethodPost, "/api/invoices", token, map[string]any{
		"customerId":  custID,
		"invoiceDate": time.Now().UTC(),
		"taxRate":     21,
		"items": []map[string]any{
			{"description": "Consulting", "quantity": 3, "unitPrice": 8.50},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create invoice status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var invoice core.Document
	decodeBody(t, rec, &invoice)
	if invoice.Number != "INV-0001" {
		t.Errorf("number = %q, want INV-0001", invoice.Number)
	}
	if invoice.Subtotal != 25.50 {
		t.Errorf("subtotal = %v, want 25.50", invoice.Subtotal)
	}

	// Totals survive the JSON round trip unrounded.
	if got, want := invoice.Total, 30.855; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("total = %v, want %v", got, want)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/invoices/%d", invoice.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get invoice status = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPatch, fmt.Sprintf("/api/invoices/%d/paid", invoice.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle paid status = %d", rec.Code)
	}
	var toggled map[string]bool
	decodeBody(t, rec, &toggled)
	if !toggled["paid"] {
		t.Error("first toggle should mark paid")
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/invoices/%d/pdf", invoice.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pdf status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("pdf content type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("pdf body does not start with %PDF")
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/invoices/%d", invoice.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
}

func TestEstimateConversion(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)
	custID := createCustomer(t, srv, token)

	rec := doJSON(t, srv, http.MethodPost, "/api/estimates", token, map[string]any{
		"customerId":  custID,
		"invoiceDate": time.Now().UTC(),
		"taxRate":     21,
		"items": []map[string]any{
			{"description": "Design", "quantity": 2, "unitPrice": 100},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create estimate status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var estimate core.Document
	decodeBody(t, rec, &estimate)
	if estimate.Number != "EST-0001" {
		t.Errorf("number = %q, want EST-0001", estimate.Number)
	}

	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/api/estimates/%d/convert-to-invoice", estimate.ID), token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("convert status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var invoice core.Document
	decodeBody(t, rec, &invoice)
	if invoice.Number != "INV-0001" {
		t.Errorf("converted number = %q, want INV-0001", invoice.Number)
	}

	// An estimate ID is not addressable through the invoices routes.
	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/invoices/%d", estimate.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("estimate via invoice route: status = %d, want 404", rec.Code)
	}
}

func TestExpenseRangeEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	for _, e := range []map[string]any{
		{"date": "2026-01-10T00:00:00Z", "description": "January", "amount": 10.50},
		{"date": "2026-02-05T00:00:00Z", "description": "February", "amount": 20},
	} {
		rec := doJSON(t, srv, http.MethodPost, "/api/expenses", token, e)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create expense status = %d, body = %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/expenses/total", token, nil)
	var total map[string]float64
	decodeBody(t, rec, &total)
	if total["total"] != 30.50 {
		t.Errorf("total = %v, want 30.50", total["total"])
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/expenses/range?start=2026-02-01&end=2026-02-28", token, nil)
	var list []core.Expense
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].Description != "February" {
		t.Errorf("range list = %+v", list)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/expenses/range/total?start=2026-02-01&end=2026-02-28", token, nil)
	decodeBody(t, rec, &total)
	if total["total"] != 20 {
		t.Errorf("range total = %v, want 20", total["total"])
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/expenses/range?start=bogus&end=2026-02-28", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad range: status = %d, want 400", rec.Code)
	}
}

func TestTimerEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/timer/running", token, nil)
	var idle map[string]bool
	decodeBody(t, rec, &idle)
	if idle["running"] {
		t.Error("timer should be idle initially")
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/timer/start", token, map[string]string{"description": "dev"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var entry core.TimeEntry
	decodeBody(t, rec, &entry)

	rec = doJSON(t, srv, http.MethodPost, "/api/timer/start", token, map[string]string{"description": "again"})
	if rec.Code != http.StatusConflict {
		t.Errorf("double start: status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/timer/%d", entry.ID), token, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("delete running: status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/timer/stop", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var stopped core.TimeEntry
	decodeBody(t, rec, &stopped)
	if stopped.IsRunning {
		t.Error("stopped entry still running")
	}
	if stopped.FormattedDuration == "" {
		t.Error("stopped entry missing formatted duration")
	}

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/timer/%d", entry.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete stopped: status = %d, want 204", rec.Code)
	}
}

func TestProfileAndPassword(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	rec := doJSON(t, srv, http.MethodPut, "/api/user/profile", token, map[string]string{
		"name": "Jane Doe", "companyName": "Doe Consulting",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update profile status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var user core.User
	decodeBody(t, rec, &user)
	if user.Name != "Jane Doe" || user.CompanyName != "Doe Consulting" {
		t.Errorf("profile = %+v", user)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/user/change-password", token, map[string]string{
		"currentPassword": "wrong", "newPassword": "next-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong current password: status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/user/change-password", token, map[string]string{
		"currentPassword": "correct-horse", "newPassword": "next-password",
	})
	if rec.Code != http.StatusNoContent {
		t.Errorf("change password status = %d, want 204", rec.Code)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/customers", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout: status = %d, want 401", rec.Code)
	}
}
