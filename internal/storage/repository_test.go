package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"clearbooks/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createTestUser(t *testing.T, repo *SQLiteRepository, vat string) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), core.User{VATNumber: vat, Name: "Test"}, "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return id
}

func TestCreateUserDuplicateVAT(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	createTestUser(t, repo, "IT123")
	_, err := repo.CreateUser(ctx, core.User{VATNumber: "IT123"}, "hash")
	if !errors.Is(err, ErrVATNumberTaken) {
		t.Fatalf("expected ErrVATNumberTaken, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")
	now := time.Now().UTC()

	if err := repo.CreateSession(ctx, "tok1", userID, now.Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	got, err := repo.GetSession(ctx, "tok1", now)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got != userID {
		t.Errorf("session user = %d, want %d", got, userID)
	}

	// Expired session behaves as missing.
	if _, err := repo.GetSession(ctx, "tok1", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired session: got %v, want ErrNotFound", err)
	}

	if err := repo.DeleteSession(ctx, "tok1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := repo.GetSession(ctx, "tok1", now); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted session: got %v, want ErrNotFound", err)
	}
}

func TestCustomerCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")

	id, err := repo.CreateCustomer(ctx, userID, core.Customer{Name: "Acme", Email: "acme@example.com"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	got, err := repo.GetCustomer(ctx, userID, id)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if got.Name != "Acme" || got.Email != "acme@example.com" {
		t.Errorf("unexpected customer: %+v", got)
	}

	got.Phone = "555-0100"
	if err := repo.UpdateCustomer(ctx, userID, got); err != nil {
		t.Fatalf("UpdateCustomer: %v", err)
	}
	got, _ = repo.GetCustomer(ctx, userID, id)
	if got.Phone != "555-0100" {
		t.Errorf("phone = %q, want 555-0100", got.Phone)
	}

	list, err := repo.ListCustomers(ctx, userID)
	if err != nil {
		t.Fatalf("ListCustomers: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}

	if err := repo.DeleteCustomer(ctx, userID, id); err != nil {
		t.Fatalf("DeleteCustomer: %v", err)
	}
	if _, err := repo.GetCustomer(ctx, userID, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted customer: got %v, want ErrNotFound", err)
	}
}

func TestCustomerScopedByUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := createTestUser(t, repo, "IT111")
	bob := createTestUser(t, repo, "IT222")

	id, err := repo.CreateCustomer(ctx, alice, core.Customer{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if _, err := repo.GetCustomer(ctx, bob, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user read: got %v, want ErrNotFound", err)
	}
}

func TestDeleteCustomerWithDocumentsConflicts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")

	custID, _ := repo.CreateCustomer(ctx, userID, core.Customer{Name: "Acme"})
	_, err := repo.CreateDocument(ctx, userID, core.Document{
		Type:       core.Invoice,
		Number:     "INV-0001",
		CustomerID: custID,
		IssueDate:  time.Now().UTC(),
		Items:      []core.LineItem{{Description: "Work", Quantity: 1, UnitPrice: 10, Amount: 10}},
	})
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	if err := repo.DeleteCustomer(ctx, userID, custID); !errors.Is(err, ErrConflict) {
		t.Errorf("delete referenced customer: got %v, want ErrConflict", err)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")
	custID, _ := repo.CreateCustomer(ctx, userID, core.Customer{Name: "Acme"})

	doc := core.Document{
		Type:       core.Invoice,
		Number:     "INV-0001",
		CustomerID: custID,
		IssueDate:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		TaxRate:    21,
		Items: []core.LineItem{
			{Description: "Consulting", Quantity: 3, UnitPrice: 8.50, Amount: 25.50},
		},
	}
	doc.Recompute()

	id, err := repo.CreateDocument(ctx, userID, doc)
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	got, err := repo.GetDocument(ctx, userID, id, core.Invoice)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Number != "INV-0001" || len(got.Items) != 1 {
		t.Fatalf("unexpected document: %+v", got)
	}
	// REAL columns round-trip float64 exactly.
	if got.TaxAmount != 5.355 || got.Total != 30.855 {
		t.Errorf("totals = %v/%v, want 5.355/30.855", got.TaxAmount, got.Total)
	}

	// Estimate lookup does not see invoices.
	if _, err := repo.GetDocument(ctx, userID, id, core.Estimate); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-type read: got %v, want ErrNotFound", err)
	}
}

func TestUpdateDocumentReplacesItems(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")
	custID, _ := repo.CreateCustomer(ctx, userID, core.Customer{Name: "Acme"})

	doc := core.Document{
		Type:       core.Invoice,
		Number:     "INV-0001",
		CustomerID: custID,
		IssueDate:  time.Now().UTC(),
		Items:      []core.LineItem{{Description: "A", Quantity: 1, UnitPrice: 1, Amount: 1}},
	}
	id, _ := repo.CreateDocument(ctx, userID, doc)

	doc.ID = id
	doc.Items = []core.LineItem{
		{Description: "B", Quantity: 2, UnitPrice: 3, Amount: 6},
		{Description: "C", Quantity: 1, UnitPrice: 4, Amount: 4},
	}
	if err := repo.UpdateDocument(ctx, userID, doc); err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}

	got, _ := repo.GetDocument(ctx, userID, id, core.Invoice)
	if len(got.Items) != 2 || got.Items[0].Description != "B" || got.Items[1].Description != "C" {
		t.Errorf("items not replaced in order: %+v", got.Items)
	}
}

func TestToggleInvoicePaid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")
	custID, _ := repo.CreateCustomer(ctx, userID, core.Customer{Name: "Acme"})

	id, _ := repo.CreateDocument(ctx, userID, core.Document{
		Type: core.Invoice, Number: "INV-0001", CustomerID: custID,
		IssueDate: time.Now().UTC(),
		Items:     []core.LineItem{{Quantity: 1, UnitPrice: 1, Amount: 1}},
	})

	paid, err := repo.ToggleInvoicePaid(ctx, userID, id)
	if err != nil {
		t.Fatalf("ToggleInvoicePaid: %v", err)
	}
	if !paid {
		t.Error("first toggle should mark paid")
	}
	paid, _ = repo.ToggleInvoicePaid(ctx, userID, id)
	if paid {
		t.Error("second toggle should mark unpaid")
	}
}

func TestNextDocumentNumber(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")
	custID, _ := repo.CreateCustomer(ctx, userID, core.Customer{Name: "Acme"})

	n, err := repo.NextDocumentNumber(ctx, userID, core.Invoice)
	if err != nil {
		t.Fatalf("NextDocumentNumber: %v", err)
	}
	if n != "INV-0001" {
		t.Errorf("first number = %q, want INV-0001", n)
	}

	repo.CreateDocument(ctx, userID, core.Document{
		Type: core.Invoice, Number: n, CustomerID: custID,
		IssueDate: time.Now().UTC(),
		Items:     []core.LineItem{{Quantity: 1, UnitPrice: 1, Amount: 1}},
	})

	n, _ = repo.NextDocumentNumber(ctx, userID, core.Invoice)
	if n != "INV-0002" {
		t.Errorf("second number = %q, want INV-0002", n)
	}
	// Estimates count separately.
	n, _ = repo.NextDocumentNumber(ctx, userID, core.Estimate)
	if n != "EST-0001" {
		t.Errorf("estimate number = %q, want EST-0001", n)
	}
}

func TestDocumentNumbersNeverReused(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")
	custID, _ := repo.CreateCustomer(ctx, userID, core.Customer{Name: "Acme"})

	newDoc := func(number string) core.Document {
		return core.Document{
			Type: core.Invoice, Number: number, CustomerID: custID,
			IssueDate: time.Now().UTC(),
			Items:     []core.LineItem{{Quantity: 1, UnitPrice: 1, Amount: 1}},
		}
	}

	first, err := repo.CreateDocument(ctx, userID, newDoc("INV-0001"))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := repo.CreateDocument(ctx, userID, newDoc("INV-0002")); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if err := repo.DeleteDocument(ctx, userID, first, core.Invoice); err != nil {
		t.Fatalf("delete first: %v", err)
	}

	n, err := repo.NextDocumentNumber(ctx, userID, core.Invoice)
	if err != nil {
		t.Fatalf("NextDocumentNumber: %v", err)
	}
	if n != "INV-0003" {
		t.Errorf("number after delete = %q, want INV-0003", n)
	}

	// The schema rejects a duplicate number outright.
	if _, err := repo.CreateDocument(ctx, userID, newDoc("INV-0002")); err == nil {
		t.Error("duplicate document number should be rejected")
	}
}

func TestExpenseTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")

	days := []struct {
		date   time.Time
		amount float64
	}{
		{time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 10.50},
		{time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC), 20},
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 5.25},
	}
	for _, d := range days {
		if _, err := repo.CreateExpense(ctx, userID, core.Expense{
			Date: d.date, Description: "x", Amount: d.amount,
		}); err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}

	total, err := repo.TotalExpenses(ctx, userID)
	if err != nil {
		t.Fatalf("TotalExpenses: %v", err)
	}
	if total != 35.75 {
		t.Errorf("total = %v, want 35.75", total)
	}

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	ranged, err := repo.TotalExpensesByRange(ctx, userID, from, to)
	if err != nil {
		t.Fatalf("TotalExpensesByRange: %v", err)
	}
	if ranged != 20 {
		t.Errorf("ranged total = %v, want 20", ranged)
	}

	list, err := repo.ListExpensesByRange(ctx, userID, from, to)
	if err != nil {
		t.Fatalf("ListExpensesByRange: %v", err)
	}
	if len(list) != 1 || list[0].Amount != 20 {
		t.Errorf("ranged list = %+v, want single 20 expense", list)
	}
}

func TestSingleRunningTimeEntry(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")
	start := time.Now().UTC()

	id, err := repo.CreateTimeEntry(ctx, userID, core.TimeEntry{Description: "dev", StartTime: start})
	if err != nil {
		t.Fatalf("CreateTimeEntry: %v", err)
	}

	// A second open entry trips the partial unique index.
	if _, err := repo.CreateTimeEntry(ctx, userID, core.TimeEntry{Description: "more", StartTime: start}); !errors.Is(err, ErrTimerRunning) {
		t.Fatalf("second running entry: got %v, want ErrTimerRunning", err)
	}

	running, err := repo.GetRunningEntry(ctx, userID)
	if err != nil {
		t.Fatalf("GetRunningEntry: %v", err)
	}
	if running.ID != id || !running.IsRunning {
		t.Errorf("running = %+v", running)
	}

	end := start.Add(90 * time.Second)
	if err := repo.StopEntry(ctx, userID, id, end, 90, "00:01:30"); err != nil {
		t.Fatalf("StopEntry: %v", err)
	}
	if _, err := repo.GetRunningEntry(ctx, userID); !errors.Is(err, ErrNotFound) {
		t.Errorf("after stop: got %v, want ErrNotFound", err)
	}

	// Stopping twice reports not found.
	if err := repo.StopEntry(ctx, userID, id, end, 90, "00:01:30"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double stop: got %v, want ErrNotFound", err)
	}

	// Once stopped the next session can start.
	if _, err := repo.CreateTimeEntry(ctx, userID, core.TimeEntry{Description: "again", StartTime: end}); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
}

func TestDeleteTimeEntryOnlyWhenStopped(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")
	start := time.Now().UTC()

	id, _ := repo.CreateTimeEntry(ctx, userID, core.TimeEntry{Description: "dev", StartTime: start})
	if err := repo.DeleteTimeEntry(ctx, userID, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete running entry: got %v, want ErrNotFound", err)
	}

	repo.StopEntry(ctx, userID, id, start.Add(time.Minute), 60, "00:01:00")
	if err := repo.DeleteTimeEntry(ctx, userID, id); err != nil {
		t.Fatalf("delete stopped entry: %v", err)
	}
}

func TestTotalTrackedSeconds(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")
	start := time.Now().UTC()

	id, _ := repo.CreateTimeEntry(ctx, userID, core.TimeEntry{Description: "a", StartTime: start})
	repo.StopEntry(ctx, userID, id, start.Add(time.Hour), 3600, "01:00:00")

	id, _ = repo.CreateTimeEntry(ctx, userID, core.TimeEntry{Description: "b", StartTime: start.Add(2 * time.Hour)})
	repo.StopEntry(ctx, userID, id, start.Add(2*time.Hour+30*time.Minute), 1800, "00:30:00")

	// A still-running entry does not count.
	repo.CreateTimeEntry(ctx, userID, core.TimeEntry{Description: "c", StartTime: start.Add(3 * time.Hour)})

	total, err := repo.TotalTrackedSeconds(ctx, userID)
	if err != nil {
		t.Fatalf("TotalTrackedSeconds: %v", err)
	}
	if total != 5400 {
		t.Errorf("total = %d, want 5400", total)
	}
}

func TestPendingSyncFlow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	userID := createTestUser(t, repo, "IT123")

	id, _ := repo.CreateExpense(ctx, userID, core.Expense{
		Date: time.Now().UTC(), Description: "x", Amount: 10,
	})

	pending, err := repo.PendingSyncExpenses(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncExpenses: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id || pending[0].Version != 1 {
		t.Fatalf("pending = %+v", pending)
	}

	if err := repo.MarkExpenseSynced(ctx, id, 1); err != nil {
		t.Fatalf("MarkExpenseSynced: %v", err)
	}
	pending, _ = repo.PendingSyncExpenses(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("after sync pending = %+v, want empty", pending)
	}

	// An update bumps the version and re-queues the row.
	e, _ := repo.GetExpense(ctx, userID, id)
	e.Amount = 12
	if err := repo.UpdateExpense(ctx, userID, e); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	pending, _ = repo.PendingSyncExpenses(ctx, 10)
	if len(pending) != 1 || pending[0].Version != 2 {
		t.Errorf("after update pending = %+v, want version 2", pending)
	}

	// Marking with the stale version leaves the row pending.
	repo.MarkExpenseSynced(ctx, id, 1)
	pending, _ = repo.PendingSyncExpenses(ctx, 10)
	if len(pending) != 1 {
		t.Errorf("stale mark cleared pending row")
	}
}
