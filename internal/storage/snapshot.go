// Package storage persists the vector store: the ordered sequence of note records.
//
// Every operation works on a full Snapshot. Backends load and save whole snapshots;
// Repository serializes access so concurrent writers never lose updates.
package storage

import (
	"errors"

	"github.com/hyperjump/notemind/internal/models"
)

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

var (
	// ErrCorrupt marks a snapshot that exists but cannot be parsed. It is distinct from a
	// missing snapshot, which loads as empty.
	ErrCorrupt = errors.New("vector store snapshot is corrupt")
	// ErrDimensionMismatch is returned when a record's vector does not match the store dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Snapshot is the full persisted state of the vector store.
type Snapshot struct {
	Version    int                 `json:"version" yaml:"version"`
	Dimensions int                 `json:"dimensions" yaml:"dimensions"`
	Records    []models.NoteRecord `json:"records" yaml:"records"`
}

// NewSnapshot returns an empty snapshot for vectors of the given dimension.
func NewSnapshot(dimensions int) *Snapshot {
	return &Snapshot{
		Version:    SnapshotVersion,
		Dimensions: dimensions,
		Records:    []models.NoteRecord{},
	}
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.Records)
}

// Get returns the record for filename.
func (s *Snapshot) Get(filename string) (*models.NoteRecord, bool) {
	if i := s.index(filename); i >= 0 {
		return &s.Records[i], true
	}
	return nil, false
}

// Upsert replaces the record with the same filename in place, or appends it.
// It reports whether an existing record was replaced.
func (s *Snapshot) Upsert(rec models.NoteRecord) bool {
	if i := s.index(rec.Filename); i >= 0 {
		s.Records[i] = rec
		return true
	}
	s.Records = append(s.Records, rec)
	return false
}

// Delete removes the record for filename, keeping the order of the rest.
// It reports whether a record was removed.
func (s *Snapshot) Delete(filename string) bool {
	i := s.index(filename)
	if i < 0 {
		return false
	}
	s.Records = append(s.Records[:i], s.Records[i+1:]...)
	return true
}

// Filenames returns the record keys in store order.
func (s *Snapshot) Filenames() []string {
	names := make([]string, len(s.Records))
	for i := range s.Records {
		names[i] = s.Records[i].Filename
	}
	return names
}

func (s *Snapshot) index(filename string) int {
	for i := range s.Records {
		if s.Records[i].Filename == filename {
			return i
		}
	}
	return -1
}
