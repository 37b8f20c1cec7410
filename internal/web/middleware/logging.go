// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/leadpipe/internal/logging"
)

// Logger logs one entry per request with the request id and, for
// authenticated routes, the operator's owner_id. Server errors log at error
// level and client errors at warn.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		// The auth middleware runs further in and replaces the request, so
		// the owner is read back from a holder it fills in.
		holder := &ownerHolder{}
		r = r.WithContext(withOwnerHolder(r.Context(), holder))

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger := logging.FromContext(r.Context())
		if holder.ownerID != "" {
			logger = logger.With("owner_id", holder.ownerID)
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", r.RemoteAddr,
		}
		switch {
		case status >= 500:
			logger.Error("request", attrs...)
		case status >= 400:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}
	})
}

type ownerHolderKey struct{}

type ownerHolder struct {
	ownerID string
}

func withOwnerHolder(ctx context.Context, h *ownerHolder) context.Context {
	return context.WithValue(ctx, ownerHolderKey{}, h)
}

// recordOwner tells an enclosing Logger which operator made the request.
func recordOwner(ctx context.Context, ownerID string) {
	if h, ok := ctx.Value(ownerHolderKey{}).(*ownerHolder); ok {
		h.ownerID = ownerID
	}
}
