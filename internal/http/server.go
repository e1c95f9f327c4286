package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	applog "expensetool/internal/log"
	"expensetool/internal/middleware/ratelimit"
	"expensetool/internal/middleware/security"
	"expensetool/internal/middleware/trace"
	"expensetool/internal/tools"
)

const maxBodyBytes = 64 << 10

type Config struct {
	RequestsPerMinute int
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For in addition
	// to loopback and private networks.
	TrustedProxies []string
}

type Server struct {
	http.Server
	tools   *tools.Tools
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	logger  *applog.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, t *tools.Tools, cfg Config) (*Server, error) {
	resolver, err := security.NewClientIPResolver(cfg.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	logger := applog.Default(applog.ComponentHTTP)
	s := &Server{
		tools:   t,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute}),
		tracer:  trace.NewMiddleware(resolver.ClientIP),
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /tools", s.handleListTools)
	mux.Handle("POST /tools/{name}", s.limiter.Middleware(resolver.ClientIP)(http.HandlerFunc(s.handleCallTool)))

	var h http.Handler = mux
	h = applog.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = applog.Middleware(logger)(h)
	h = s.tracer.Middleware(h)
	h = security.Headers(h)
	h = s.recoverer(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(r.Context(), "Handler panicked",
					applog.FieldPath, r.URL.Path,
					applog.FieldErrorType, applog.ErrorTypeInternal,
					"panic", rec)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, strings.Join(tools.Names(), "\n"))
}

func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	logger := applog.FromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeText(w, http.StatusBadRequest, "could not read request body")
		return
	}

	reply, err := s.tools.Call(r.Context(), name, body)
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		logger.WarnContext(r.Context(), "Unknown tool", applog.FieldTool, name)
		writeText(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		logger.WarnContext(r.Context(), "Tool arguments rejected",
			applog.FieldTool, name,
			applog.FieldError, err.Error(),
			applog.FieldErrorType, applog.ErrorTypeValidation)
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.InfoContext(r.Context(), "Tool called", applog.NewFields().WithTool(name).ToSlice()...)
	writeText(w, http.StatusOK, reply)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
