// Package health serves liveness and readiness probes.
package health

import "net/http"

func respond(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// Healthz is the liveness probe; it answers as long as the process serves.
func Healthz(w http.ResponseWriter, r *http.Request) {
	respond(w, "ok\n")
}

// Readyz is the readiness probe. The daemon serves requests from the moment
// it binds (a missing TLE dataset degrades individual endpoints to 503
// instead of failing readiness), so this mirrors liveness.
func Readyz(w http.ResponseWriter, r *http.Request) {
	respond(w, "ready\n")
}
