// Package server exposes review sessions over HTTP to rendering clients.
//
// Routes:
//
//	POST   /v1/reviews                 open a review from a JSON or YAML bundle
//	GET    /v1/reviews/{id}            current view (paragraphs, cards, highlight)
//	PUT    /v1/reviews/{id}/text       resubmission: reload with a new text
//	DELETE /v1/reviews/{id}            close the review
//	GET    /v1/reviews/{id}/highlight  websocket highlight synchronisation
//	GET    /healthz, /readyz           probes
//	GET    /metrics                    Prometheus scrape endpoint
//
// Every route runs behind [observe.Middleware].
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/andukdahacker/classlite-sub004/internal/health"
	"github.com/andukdahacker/classlite-sub004/internal/highlight"
	"github.com/andukdahacker/classlite-sub004/internal/observe"
	"github.com/andukdahacker/classlite-sub004/internal/review"
	"github.com/andukdahacker/classlite-sub004/pkg/annotation"
)

// maxBodyBytes caps request bodies; a bundle is one essay plus its
// annotations.
const maxBodyBytes = 4 << 20

// shutdownTimeout bounds graceful shutdown in [Server.ListenAndServe].
const shutdownTimeout = 10 * time.Second

// Config holds the dependencies of a [Server].
type Config struct {
	Reviews *review.Manager

	// Health serves the probes. Nil means a handler without checks.
	Health *health.Handler

	// Metrics records request durations. May be nil.
	Metrics *observe.Metrics

	// MetricsHandler serves /metrics. Nil leaves the route unregistered.
	MetricsHandler http.Handler

	// TouchSuppression is the tap suppression window for touch events
	// received over the highlight socket. Zero means the default.
	TouchSuppression time.Duration

	// AllowedOrigins are extra host patterns accepted for cross-origin
	// websocket connections.
	AllowedOrigins []string
}

// Server serves the review API.
type Server struct {
	reviews        *review.Manager
	health         *health.Handler
	touchWindow    atomic.Int64 // time.Duration
	allowedOrigins []string
	handler        http.Handler
}

// New builds the route table.
func New(cfg Config) *Server {
	s := &Server{
		reviews:        cfg.Reviews,
		health:         cfg.Health,
		allowedOrigins: cfg.AllowedOrigins,
	}
	if s.health == nil {
		s.health = health.New()
	}
	s.SetTouchSuppression(cfg.TouchSuppression)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/reviews", s.handleOpen)
	mux.HandleFunc("GET /v1/reviews/{id}", s.handleGet)
	mux.HandleFunc("PUT /v1/reviews/{id}/text", s.handleSetText)
	mux.HandleFunc("DELETE /v1/reviews/{id}", s.handleClose)
	mux.HandleFunc("GET /v1/reviews/{id}/highlight", s.handleHighlight)
	s.health.Register(mux)
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	s.handler = observe.Middleware(cfg.Metrics)(mux)
	return s
}

// Handler returns the instrumented route table.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetTouchSuppression changes the tap suppression window for touch targets
// created from now on. Non-positive values restore the default.
func (s *Server) SetTouchSuppression(d time.Duration) {
	if d <= 0 {
		d = highlight.DefaultTouchSuppression
	}
	s.touchWindow.Store(int64(d))
}

// ListenAndServe serves on addr until ctx is cancelled, then drains the
// readiness probe and shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.health.Drain()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	slog.Info("http server stopped")
	return nil
}

type errorBody struct {
	Error string `json:"error"`
}

type openResponse struct {
	review.View
	Statuses map[string]annotation.AnchorStatus `json:"statuses"`
}

type setTextRequest struct {
	Text *string `json:"text"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	b, err := review.DecodeBundle(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess, err := s.reviews.Open(r.Context(), b)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Location", "/v1/reviews/"+sess.ID())
	writeJSON(w, http.StatusCreated, openResponse{View: sess.View(), Statuses: sess.Statuses()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.reviews.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleSetText(w http.ResponseWriter, r *http.Request) {
	sess, err := s.reviews.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var req setTextRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("server: decode text: %w", err))
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, errors.New("server: text is required"))
		return
	}

	if err := sess.SetText(r.Context(), *req.Text); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.reviews.Close(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, review.ErrSessionNotFound), errors.Is(err, review.ErrClosed):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("server: encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}
