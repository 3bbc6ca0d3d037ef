package metrics

import (
	"strconv"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/test", "/api/v1/test"},
		{"/api/v1/tle/metadata", "/api/v1/tle/metadata"},
		{"/api/v1/tle/fetch", "/api/v1/tle/fetch"},
		{"/api/v1/propagate/test", "/api/v1/propagate/test"},
		{"/api/v1/cache/keyframes/latest", "/api/v1/cache/keyframes/latest"},
		{"/api/v1/cache/keyframes/at", "/api/v1/cache/keyframes/at"},
		{"/api/v1/cache/stats", "/api/v1/cache/stats"},
		{"/api/v1/stream/keyframes", "/api/v1/stream/keyframes"},

		// Parameterized propagate routes collapse to one label.
		{"/api/v1/propagate/25544", "/api/v1/propagate/{norad_id}"},
		{"/api/v1/propagate/44713", "/api/v1/propagate/{norad_id}"},
		{"/api/v1/propagate/99999", "/api/v1/propagate/{norad_id}"},
		{"/api/v1/propagate/1", "/api/v1/propagate/{norad_id}"},

		// Non-numeric propagate suffixes are not catalog numbers.
		{"/api/v1/propagate/abc", "other"},
		{"/api/v1/propagate/25544/extra", "other"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that distinct NORAD IDs share one path
// label rather than minting one time series per satellite.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for id := 10000; id < 10100; id++ {
		seen[normalizeRoute("/api/v1/propagate/"+strconv.Itoa(id))] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}
