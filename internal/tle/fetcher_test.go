package tle

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const (
	tleISS      = "ISS (ZARYA)\n1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005\n2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09\n"
	tleStarlink = "STARLINK-1007\n1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995\n2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05\n"
)

// serveText spins up a test server that answers every request with body.
func serveText(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// serveStatus spins up a test server that answers with only a status code.
func serveStatus(t *testing.T, code int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetcherBodyLimit(t *testing.T) {
	// Streams 1 MB chunks until past the 50 MB cap; the fetcher must bail
	// out with an error rather than buffer it all.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		chunk := strings.Repeat("A", 1024*1024)
		for i := 0; i < 52; i++ {
			if _, err := w.Write([]byte(chunk)); err != nil {
				return // client gave up reading
			}
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, testLogger)
	_, err := fetcher.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error for oversized response, got nil")
	}
	if !strings.Contains(err.Error(), "byte limit") {
		t.Errorf("expected body limit error, got: %v", err)
	}
}

func TestFetcherSuccess(t *testing.T) {
	server := serveText(t, tleISS)

	fetcher := NewFetcher(server.URL, testLogger)
	data, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != tleISS {
		t.Errorf("body mismatch: got %d bytes, want %d", len(data), len(tleISS))
	}
}

func TestFetcherHTTPError(t *testing.T) {
	server := serveStatus(t, http.StatusInternalServerError)

	fetcher := NewFetcher(server.URL, testLogger)
	if _, err := fetcher.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
}

func TestFetcherCancelledContext(t *testing.T) {
	server := serveText(t, tleISS)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewFetcher(server.URL, testLogger)
	if _, err := fetcher.Fetch(ctx); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}

// TestFetcherExtraURLs verifies that extra sources are appended to the
// primary catalog.
func TestFetcherExtraURLs(t *testing.T) {
	primary := serveText(t, tleStarlink)
	extra := serveText(t, tleISS)

	fetcher := NewFetcher(primary.URL, testLogger, extra.URL)
	data, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := Parse(strings.NewReader(string(data)), testLogger)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	ids := map[int]bool{}
	for _, e := range entries {
		ids[e.NORADID] = true
	}
	if !ids[44713] {
		t.Error("missing STARLINK-1007 (44713)")
	}
	if !ids[25544] {
		t.Error("missing ISS (25544)")
	}
}

// TestFetcherExtraURLFailure verifies that a failing extra source is
// skipped without poisoning the primary fetch.
func TestFetcherExtraURLFailure(t *testing.T) {
	primary := serveText(t, tleStarlink)
	failing := serveStatus(t, http.StatusInternalServerError)

	fetcher := NewFetcher(primary.URL, testLogger, failing.URL)
	data, err := fetcher.Fetch(context.Background())
	if err != nil {
		t.Fatalf("primary fetch should succeed even when extra fails: %v", err)
	}

	entries, err := Parse(strings.NewReader(string(data)), testLogger)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry (primary only), got %d", len(entries))
	}
	if entries[0].NORADID != 44713 {
		t.Errorf("expected NORAD 44713, got %d", entries[0].NORADID)
	}
}

// TestFetcherPrimaryFailure verifies that a healthy extra source cannot
// rescue a failed primary.
func TestFetcherPrimaryFailure(t *testing.T) {
	primary := serveStatus(t, http.StatusBadGateway)
	extra := serveText(t, tleISS)

	fetcher := NewFetcher(primary.URL, testLogger, extra.URL)
	if _, err := fetcher.Fetch(context.Background()); err == nil {
		t.Fatal("expected error when primary source fails, got nil")
	}
}
