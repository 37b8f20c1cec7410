package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/leadpipe/internal/auth"
	"github.com/JonMunkholm/leadpipe/internal/core"
	"github.com/JonMunkholm/leadpipe/internal/logging"
)

// TokenVerifier turns a bearer token into an operator.
type TokenVerifier interface {
	Verify(token string) (core.OperatorContext, error)
}

// ErrorResponder writes err to the client.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

// OperatorAuth requires "Authorization: Bearer <token>". A verified token
// puts the operator on the request context for handlers and on the log
// context for every later log entry of the request.
func OperatorAuth(verifier TokenVerifier, respond ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				slog.Warn("auth: missing bearer token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				respond(w, r, fmt.Errorf("%w: missing bearer token", core.ErrNotAuthenticated))
				return
			}

			op, err := verifier.Verify(token)
			if err != nil {
				slog.Warn("auth: invalid token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				respond(w, r, err)
				return
			}

			recordOwner(r.Context(), op.OwnerID)
			ctx := core.ContextWithOperator(r.Context(), op)
			ctx = logging.ContextWithOwner(ctx, op.OwnerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
