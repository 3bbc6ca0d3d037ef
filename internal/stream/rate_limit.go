package stream

import "sync"

// maxTotalStreams caps SSE connections across all clients; per-IP limits
// alone don't protect the server from a distributed set of slow readers.
const maxTotalStreams = 1000

// streamLimiter bounds concurrent SSE connections per client IP and overall.
type streamLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	active   int
	capPerIP int
}

func newStreamLimiter(capPerIP int) *streamLimiter {
	return &streamLimiter{
		perIP:    make(map[string]int),
		capPerIP: capPerIP,
	}
}

// acquire claims a connection slot for ip. It fails when either the global
// or the per-IP cap is already reached.
func (l *streamLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active >= maxTotalStreams || l.perIP[ip] >= l.capPerIP {
		return false
	}
	l.perIP[ip]++
	l.active++
	return true
}

// release returns a slot claimed by acquire.
func (l *streamLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.active--
	l.perIP[ip]--
	if l.perIP[ip] <= 0 {
		delete(l.perIP, ip)
	}
}

// count reports the active connections for ip.
func (l *streamLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}
