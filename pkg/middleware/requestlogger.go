package middleware

import (
	"log/slog"
	"net/http"

	"github.com/ulasari/RentalGo/pkg/logger"
)

// RequestLogger stores a request-scoped logger (enriched with
// correlation_id, caller_id, trace_id, span_id) in the context. Handlers
// retrieve it with logger.FromContext. Mount after RequestLogging and Auth.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if callerID := UserIDFromContext(ctx); callerID != "" {
				ctx = logger.WithCallerID(ctx, callerID)
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
