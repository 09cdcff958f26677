// Package http exposes the ledger and the receipt scan workflow as a JSON
// API. Balances are recomputed from the full transaction log on every
// request; nothing derived is cached.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"haushalt/internal/core"
	applog "haushalt/internal/log"
	"haushalt/internal/middleware/ratelimit"
	"haushalt/internal/middleware/security"
	"haushalt/internal/middleware/trace"
	"haushalt/internal/scan"
	"haushalt/internal/services"
)

type Server struct {
	http.Server
	ledger    *services.LedgerService
	scans     *scan.Registry
	submitter scan.TransactionSubmitter

	limiter  *ratelimit.Limiter
	detector *security.Detector
	logs     *applog.StructuredLogger

	householdID string
	partySelf   core.PartyID
	partyOther  core.PartyID

	shutdownOnce sync.Once
}

// Options carries the household identity the server answers for.
type Options struct {
	HouseholdID string
	PartySelf   core.PartyID
	PartyOther  core.PartyID
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger *services.LedgerService, scans *scan.Registry, submitter scan.TransactionSubmitter, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr: addr,
		},
		ledger:      ledger,
		scans:       scans,
		submitter:   submitter,
		limiter:     ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:    security.NewDetector(),
		logs:        applog.NewStructuredLogger(applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentScan)),
		householdID: opts.HouseholdID,
		partySelf:   opts.PartySelf,
		partyOther:  opts.PartyOther,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/balances", s.handleBalances)

	mux.HandleFunc("POST /api/scans/{session}", s.handleStartScan)
	mux.HandleFunc("GET /api/scans/{session}", s.handleScanState)
	mux.HandleFunc("POST /api/scans/{session}/image", s.handleAttachImage)
	mux.HandleFunc("POST /api/scans/{session}/process", s.handleProcess)
	mux.HandleFunc("POST /api/scans/{session}/items", s.handleAddItem)
	mux.HandleFunc("PUT /api/scans/{session}/items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/scans/{session}/items/{id}", s.handleRemoveItem)
	mux.HandleFunc("POST /api/scans/{session}/categorize", s.handleBeginCategorizing)
	mux.HandleFunc("POST /api/scans/{session}/assign", s.handleAssign)
	mux.HandleFunc("POST /api/scans/{session}/back", s.handleBack)
	mux.HandleFunc("GET /api/scans/{session}/summary", s.handleSummary)
	mux.HandleFunc("POST /api/scans/{session}/confirm", s.handleConfirm)
	mux.HandleFunc("POST /api/scans/{session}/cancel", s.handleCancelScan)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	traceMW := trace.NewMiddleware(s.detector.ExtractClientIP)
	s.Handler = traceMW.Middleware(headers.Middleware(s.withProtection(mux)))

	return s
}

// withProtection rate-limits mutating requests and logs likely probes.
// Reads stay unthrottled: the balance view polls.
func (s *Server) withProtection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.Warn("Suspicious request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr)
		}

		if r.Method != http.MethodGet && !s.limiter.Allow(s.detector.ExtractClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
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
