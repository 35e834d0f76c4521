package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/auth"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/envelope"
)

// Start binds the Gateway's HTTP listener and serves in the
// background until Stop is called. Tool discovery (DiscoverTools)
// must have already succeeded.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	withAuth := auth.Middleware(s.auth, s.logger)

	mux.Handle("/query", withAuth(s.rateLimited(true, http.HandlerFunc(s.handleQuery))))
	mux.Handle("/confirm/", withAuth(s.rateLimited(false, http.HandlerFunc(s.handleConfirm))))
	mux.Handle("/tools", withAuth(s.rateLimited(false, http.HandlerFunc(s.handleListTools))))
	mux.HandleFunc("/health", s.handleHealth)
	if s.cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	var handler http.Handler = mux
	if len(s.cfg.CORS.Origins) > 0 {
		handler = corsMiddleware(s.cfg.CORS.Origins, handler)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}
	s.httpServer = server

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.logger != nil {
				s.logger.Error("gateway http server error", "error", err)
			}
		}
	}()

	if s.logger != nil {
		s.logger.Info("gateway http server started", "addr", addr)
	}
	return nil
}

// Stop gracefully shuts down the HTTP listener, waiting up to the
// given context's deadline for in-flight requests (including
// in-progress SSE streams) to finish.
func (s *Server) Stop(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	if err := s.httpServer.Shutdown(ctx); err != nil && s.logger != nil {
		s.logger.Warn("gateway http server shutdown error", "error", err)
	}
	s.httpServer = nil
}

// rateLimited wraps next with the general bucket, and additionally the
// query bucket when isQuery is true (/query is metered against
// both rate.general and rate.query).
func (s *Server) rateLimited(isQuery bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		caller, ok := auth.CallerFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if allowed, retryAfter := s.limiter.AllowGeneral(caller.UserID); !allowed {
			writeRateLimited(w, retryAfter)
			return
		}
		if isQuery {
			if allowed, retryAfter := s.limiter.AllowQuery(caller.UserID); !allowed {
				writeRateLimited(w, retryAfter)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware answers preflight requests and stamps the CORS
// headers for configured client origins. "*" allows any origin.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	allowAny := false
	for _, o := range origins {
		if o == "*" {
			allowAny = true
		}
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowAny || allowed[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": string(envelope.CodeRateLimited), "message": "too many requests"})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		auth.WriteUnauthorized(w, "missing credentials")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.registry.AllowedFor(caller))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status": "ok",
		"tools":  len(s.registry.All()),
	}
	if r.URL.Query().Get("debug") == "1" && s.invLog != nil {
		body["recentInvocations"] = s.invLog.recent()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
