package tle

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 3)

	ts := time.Unix(1700000000, 0)
	data := []byte("SAT\n1 ...\n2 ...\n")
	if err := c.Write(data, ts); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, gotTS, err := c.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("data mismatch: got %q", got)
	}
	if !gotTS.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", gotTS, ts)
	}
}

func TestCacheLoadLatestPicksNewest(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 5)

	base := time.Unix(1700000000, 0)
	for i := 0; i < 3; i++ {
		if err := c.Write([]byte{byte('a' + i)}, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	got, _, err := c.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if string(got) != "c" {
		t.Errorf("got %q, want newest snapshot %q", got, "c")
	}
}

func TestCachePrune(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, 2)

	base := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		if err := c.Write([]byte("x"), base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var count int
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".txt" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("got %d snapshots after prune, want 2", count)
	}
}

func TestCacheEmptyDir(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "missing"), 3)
	if _, _, err := c.LoadLatest(); err == nil {
		t.Error("expected error for empty cache")
	}
}
