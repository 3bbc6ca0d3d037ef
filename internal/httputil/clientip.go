// Package httputil holds small HTTP request helpers shared by the API and
// streaming layers.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the client address for a request. With trustProxy set,
// X-Forwarded-For (leftmost entry) and X-Real-IP are consulted first; only
// enable that behind a reverse proxy that strips client-supplied copies of
// those headers. Otherwise the connection's RemoteAddr is authoritative.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedFor(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port (e.g. in tests).
		return r.RemoteAddr
	}
	return host
}

// forwardedFor extracts the originating client from an X-Forwarded-For
// value, which accumulates one address per proxy hop left to right.
func forwardedFor(xff string) string {
	if xff == "" {
		return ""
	}
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}
