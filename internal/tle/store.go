package tle

import (
	"sync"
	"sync/atomic"
	"time"
)

// Store provides thread-safe access to the current TLE dataset along with a
// catalog-number index rebuilt on every swap.
type Store struct {
	dataset atomic.Pointer[indexedDataset]
	mu      sync.Mutex // serializes fetch operations
}

type indexedDataset struct {
	ds   *TLEDataset
	byID map[int]*TLEEntry
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset, or nil if none has been loaded.
func (s *Store) Get() *TLEDataset {
	idx := s.dataset.Load()
	if idx == nil {
		return nil
	}
	return idx.ds
}

// Lookup returns the entry for a NORAD catalog number, or nil when the
// dataset has no such satellite.
func (s *Store) Lookup(noradID int) *TLEEntry {
	idx := s.dataset.Load()
	if idx == nil {
		return nil
	}
	return idx.byID[noradID]
}

// Set atomically replaces the current dataset and rebuilds the index.
func (s *Store) Set(ds *TLEDataset) {
	byID := make(map[int]*TLEEntry, len(ds.Satellites))
	for i := range ds.Satellites {
		byID[ds.Satellites[i].NORADID] = &ds.Satellites[i]
	}
	s.dataset.Store(&indexedDataset{ds: ds, byID: byID})
}

// AgeSeconds returns the age of the current dataset in seconds.
// Returns -1 if no dataset is loaded.
func (s *Store) AgeSeconds() float64 {
	idx := s.dataset.Load()
	if idx == nil {
		return -1
	}
	return time.Since(idx.ds.FetchedAt).Seconds()
}

// Lock acquires the fetch mutex for serializing fetch operations.
func (s *Store) Lock() {
	s.mu.Lock()
}

// Unlock releases the fetch mutex.
func (s *Store) Unlock() {
	s.mu.Unlock()
}
