// Package http exposes the REST API.
package http

import (
	"context"
	"net/http"
	"sync"

	"clearbooks/internal/services"
)

// Server wires the API routes over the service layer.
type Server struct {
	http.Server

	auth      *services.AuthService
	customers *services.CustomerService
	documents *services.DocumentService
	expenses  *services.ExpenseService
	timer     *services.TimerService

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

func NewServer(
	addr string,
	auth *services.AuthService,
	customers *services.CustomerService,
	documents *services.DocumentService,
	expenses *services.ExpenseService,
	timer *services.TimerService,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		auth:        auth,
		customers:   customers,
		documents:   documents,
		expenses:    expenses,
		timer:       timer,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.instrumented(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.instrumented(s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", s.instrumented(s.authenticated(s.handleLogout)))

	mux.HandleFunc("GET /api/customers", s.instrumented(s.authenticated(s.handleListCustomers)))
	mux.HandleFunc("POST /api/customers", s.instrumented(s.authenticated(s.handleCreateCustomer)))
	mux.HandleFunc("GET /api/customers/{id}", s.instrumented(s.authenticated(s.handleGetCustomer)))
	mux.HandleFunc("PUT /api/customers/{id}", s.instrumented(s.authenticated(s.handleUpdateCustomer)))
	mux.HandleFunc("DELETE /api/customers/{id}", s.instrumented(s.authenticated(s.handleDeleteCustomer)))

	mux.HandleFunc("GET /api/invoices", s.instrumented(s.authenticated(s.handleListInvoices)))
	mux.HandleFunc("POST /api/invoices", s.instrumented(s.authenticated(s.handleCreateInvoice)))
	mux.HandleFunc("GET /api/invoices/{id}", s.instrumented(s.authenticated(s.handleGetInvoice)))
	mux.HandleFunc("PUT /api/invoices/{id}", s.instrumented(s.authenticated(s.handleUpdateInvoice)))
	mux.HandleFunc("DELETE /api/invoices/{id}", s.instrumented(s.authenticated(s.handleDeleteInvoice)))
	mux.HandleFunc("GET /api/invoices/{id}/pdf", s.instrumented(s.authenticated(s.handleInvoicePDF)))
	mux.HandleFunc("PATCH /api/invoices/{id}/paid", s.instrumented(s.authenticated(s.handleToggleInvoicePaid)))

	mux.HandleFunc("GET /api/estimates", s.instrumented(s.authenticated(s.handleListEstimates)))
	mux.HandleFunc("POST /api/estimates", s.instrumented(s.authenticated(s.handleCreateEstimate)))
	mux.HandleFunc("GET /api/estimates/{id}", s.instrumented(s.authenticated(s.handleGetEstimate)))
	mux.HandleFunc("PUT /api/estimates/{id}", s.instrumented(s.authenticated(s.handleUpdateEstimate)))
	mux.HandleFunc("DELETE /api/estimates/{id}", s.instrumented(s.authenticated(s.handleDeleteEstimate)))
	mux.HandleFunc("GET /api/estimates/{id}/pdf", s.instrumented(s.authenticated(s.handleEstimatePDF)))
	mux.HandleFunc("POST /api/estimates/{id}/convert-to-invoice", s.instrumented(s.authenticated(s.handleConvertEstimate)))

	mux.HandleFunc("GET /api/expenses", s.instrumented(s.authenticated(s.handleListExpenses)))
	mux.HandleFunc("POST /api/expenses", s.instrumented(s.authenticated(s.handleCreateExpense)))
	mux.HandleFunc("GET /api/expenses/total", s.instrumented(s.authenticated(s.handleExpensesTotal)))
	mux.HandleFunc("GET /api/expenses/range", s.instrumented(s.authenticated(s.handleExpensesByRange)))
	mux.HandleFunc("GET /api/expenses/range/total", s.instrumented(s.authenticated(s.handleExpensesRangeTotal)))
	mux.HandleFunc("GET /api/expenses/{id}", s.instrumented(s.authenticated(s.handleGetExpense)))
	mux.HandleFunc("PUT /api/expenses/{id}", s.instrumented(s.authenticated(s.handleUpdateExpense)))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.instrumented(s.authenticated(s.handleDeleteExpense)))

	mux.HandleFunc("GET /api/timer", s.instrumented(s.authenticated(s.handleListTimeEntries)))
	mux.HandleFunc("GET /api/timer/running", s.instrumented(s.authenticated(s.handleRunningTimer)))
	mux.HandleFunc("POST /api/timer/start", s.instrumented(s.authenticated(s.handleStartTimer)))
	mux.HandleFunc("POST /api/timer/stop", s.instrumented(s.authenticated(s.handleStopTimer)))
	mux.HandleFunc("GET /api/timer/total", s.instrumented(s.authenticated(s.handleTimerTotal)))
	mux.HandleFunc("DELETE /api/timer/{id}", s.instrumented(s.authenticated(s.handleDeleteTimeEntry)))

	mux.HandleFunc("GET /api/user/profile", s.instrumented(s.authenticated(s.handleGetProfile)))
	mux.HandleFunc("PUT /api/user/profile", s.instrumented(s.authenticated(s.handleUpdateProfile)))
	mux.HandleFunc("PUT /api/user/change-password", s.instrumented(s.authenticated(s.handleChangePassword)))

	return s
}

// Shutdown stops the listener and the rate limiter cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
