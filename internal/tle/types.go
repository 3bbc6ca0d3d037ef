package tle

import (
	"time"

	"github.com/star/satkit/internal/propagation"
)

// TLEEntry represents a single satellite's two-line element set, both as the
// raw lines and decoded into the element record the propagation models use.
type TLEEntry struct {
	NORADID  int
	Name     string
	Epoch    time.Time
	Line1    string
	Line2    string
	Elements propagation.Elements
}

// EpochRange represents the minimum and maximum epoch times in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// TLEDataset represents a complete set of TLE data from a source.
type TLEDataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Satellites []TLEEntry
}

// NewDataset builds a dataset from parsed entries, computing the epoch range.
func NewDataset(source string, fetchedAt time.Time, entries []TLEEntry) *TLEDataset {
	ds := &TLEDataset{
		Source:     source,
		FetchedAt:  fetchedAt,
		Satellites: entries,
	}
	if len(entries) > 0 {
		ds.EpochRange.Min = entries[0].Epoch
		ds.EpochRange.Max = entries[0].Epoch
		for _, e := range entries[1:] {
			if e.Epoch.Before(ds.EpochRange.Min) {
				ds.EpochRange.Min = e.Epoch
			}
			if e.Epoch.After(ds.EpochRange.Max) {
				ds.EpochRange.Max = e.Epoch
			}
		}
	}
	return ds
}
