// Package http serves a cashbook over a small JSON API with a CSV export.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cashbook/internal/cashbook"
	"cashbook/internal/log"
	"cashbook/internal/report"
)

type Server struct {
	http.Server

	// mu serializes every use of book, which is not safe for concurrent use.
	mu     sync.Mutex
	book   *cashbook.Book
	labels report.Labels
	logger *log.Logger
	now    func() time.Time

	rateLimiter  *rateLimiter
	metrics      *securityMetrics
	shutdownOnce sync.Once
}

type Option func(*Server)

// WithLabels sets the Type column words of the CSV export.
func WithLabels(l report.Labels) Option {
	return func(s *Server) { s.labels = l }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock replaces time.Now for export filenames.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRateLimit overrides the default of 60 writes per minute per client.
func WithRateLimit(limit int, window time.Duration) Option {
	return func(s *Server) {
		s.rateLimiter.stop()
		s.rateLimiter = newRateLimiter(limit, window)
	}
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, book *cashbook.Book, opts ...Option) *Server {
	s := &Server{
		book:        book,
		labels:      report.DefaultLabels,
		logger:      log.Discard(),
		now:         time.Now,
		rateLimiter: newRateLimiter(60, time.Minute),
		metrics:     &securityMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /accounts", s.handleListAccounts)
	mux.HandleFunc("POST /accounts", s.handleCreateAccount)
	mux.HandleFunc("POST /accounts/{id}/select", s.handleSelectAccount)
	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("GET /report.csv", s.handleReport)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           log.Middleware(s.logger)(s.withSecurity(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// withBook runs fn while holding the book lock.
func (s *Server) withBook(fn func(b *cashbook.Book)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.book)
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
