package stream

import (
	"net/http"

	"github.com/star/satkit/internal/httputil"
)

// clientIP extracts the client IP for rate limiting. Proxy headers are not
// trusted here; the server wires proxy awareness at the edge when needed.
func clientIP(r *http.Request) string {
	return httputil.ClientIP(r, false)
}
