// Package memory contains in-memory store implementations for tests and
// unconfigured runs.
package memory

import (
	"context"
	"sync"

	"github.com/shelterscout/petharvester/internal/harvest"
)

// RecordStore keeps records ordered in memory.
type RecordStore struct {
	mu      sync.RWMutex
	records []harvest.Record
}

// NewRecordStore returns an empty RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{}
}

// ReadAll returns a copy of the stored collection in order.
func (s *RecordStore) ReadAll(_ context.Context) ([]harvest.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]harvest.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Upsert inserts or merges the record under its key.
func (s *RecordStore) Upsert(_ context.Context, record harvest.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].Key != record.Key {
			continue
		}
		for _, name := range harvest.FieldNames() {
			if v, ok := record.Fields[name]; ok {
				s.records[i].Fields[name] = v
			}
		}
		return nil
	}
	s.records = append(s.records, record.Clone())
	return nil
}

// BulkRewrite replaces the stored collection.
func (s *RecordStore) BulkRewrite(_ context.Context, records []harvest.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make([]harvest.Record, 0, len(records))
	for _, rec := range records {
		s.records = append(s.records, rec.Clone())
	}
	return nil
}

// Export returns the collection serialized in the on-disk CSV form.
func (s *RecordStore) Export(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return harvest.MarshalTable(s.records)
}

// CheckpointStore keeps the checkpoint in memory.
type CheckpointStore struct {
	mu     sync.Mutex
	cp     harvest.Checkpoint
	exists bool
	saves  []harvest.Checkpoint
}

// NewCheckpointStore returns an empty CheckpointStore.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{}
}

// Save overwrites the checkpoint.
func (s *CheckpointStore) Save(_ context.Context, cp harvest.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cp = cp
	s.exists = true
	s.saves = append(s.saves, cp)
	return nil
}

// Load returns the stored checkpoint or harvest.ErrNotFound.
func (s *CheckpointStore) Load(_ context.Context) (harvest.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return harvest.Checkpoint{}, harvest.ErrNotFound
	}
	return s.cp, nil
}

// Clear removes the checkpoint.
func (s *CheckpointStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exists = false
	s.cp = harvest.Checkpoint{}
	return nil
}

// Saves returns every checkpoint save in order (for assertions).
func (s *CheckpointStore) Saves() []harvest.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]harvest.Checkpoint, len(s.saves))
	copy(out, s.saves)
	return out
}
