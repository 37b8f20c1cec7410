package web

import (
	"net"
	"net/http"

	"github.com/JonMunkholm/leadpipe/internal/core"
)

// operator returns the operator the auth middleware put on the request.
func operator(r *http.Request) core.OperatorContext {
	return core.OperatorFromContext(r.Context())
}

// clientIP strips the port from a RemoteAddr.
func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
