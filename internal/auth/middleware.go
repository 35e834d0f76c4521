package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/envelope"
)

// WriteUnauthorized writes the HTTP-level 401 the Gateway returns for
// authentication failures — these bypass the tool-response stream
// entirely and surface as plain HTTP status codes.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{"code": string(envelope.CodeUnauthorized), "message": message})
}

// Middleware verifies the bearer credential on every request and
// attaches the resulting CallerContext to the request context. On
// failure it writes a 401 directly and does not call next.
func Middleware(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if service == nil || !service.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				WriteUnauthorized(w, "missing credentials")
				return
			}

			caller, err := service.Verify(r.Context(), header)
			if err != nil {
				if logger != nil {
					logger.Warn("credential verification failed", "error", err)
				}
				WriteUnauthorized(w, "invalid or expired credential")
				return
			}

			ctx := WithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
