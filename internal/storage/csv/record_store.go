// Package csv provides the durable record table backed by a CSV file.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/shelterscout/petharvester/internal/harvest"
)

// TableName is the on-disk file name of the record table.
const TableName = "pets.csv"

// RecordStore persists records in a header-plus-rows CSV table keyed by
// the link column. All mutations go through an atomic temp-write-then-
// rename so concurrent readers only ever observe a fully written table.
type RecordStore struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// New creates a RecordStore rooted in dir.
func New(dir string, logger *zap.Logger) (*RecordStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &RecordStore{
		path:   filepath.Join(dir, TableName),
		logger: logger,
	}, nil
}

// Path returns the location of the table file.
func (s *RecordStore) Path() string {
	return s.path
}

// ReadAll returns the full ordered collection as currently persisted. A
// missing table is an empty collection; a corrupt one is an error so prior
// data is never silently discarded on a later rewrite.
func (s *RecordStore) ReadAll(ctx context.Context) ([]harvest.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("read table canceled: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *RecordStore) readLocked() ([]harvest.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open table %s: %w", s.path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse table %s: %w", s.path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	keyIdx := -1
	for i, col := range header {
		if col == harvest.KeyColumn {
			keyIdx = i
		}
	}
	if keyIdx < 0 {
		return nil, fmt.Errorf("table %s has no %q column", s.path, harvest.KeyColumn)
	}

	records := make([]harvest.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if keyIdx >= len(row) {
			continue
		}
		key := strings.TrimSpace(row[keyIdx])
		if key == "" {
			continue
		}
		rec := harvest.Record{Key: key, Fields: make(map[string]string, len(header)-1)}
		for i, col := range header {
			if i == keyIdx || i >= len(row) {
				continue
			}
			rec.Fields[col] = row[i]
		}
		records = append(records, rec)
	}
	return records, nil
}

// Upsert inserts or merges record under its key, preserving the position
// of all other rows. Fields absent from the incoming record keep their
// previously stored values; fields present always overwrite.
func (s *RecordStore) Upsert(ctx context.Context, record harvest.Record) error {
	if record.Key == "" {
		return fmt.Errorf("record key is required")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("upsert canceled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if err != nil {
		return err
	}

	found := false
	for i := range records {
		if records[i].Key != record.Key {
			continue
		}
		found = true
		for _, name := range harvest.FieldNames() {
			if v, ok := record.Fields[name]; ok {
				records[i].Fields[name] = v
			}
		}
		break
	}
	if !found {
		records = append(records, record.Clone())
	}

	return s.writeLocked(records)
}

// BulkRewrite atomically replaces the entire table with records.
func (s *RecordStore) BulkRewrite(ctx context.Context, records []harvest.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rewrite canceled: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(records)
}

// Export returns the table serialized in its on-disk CSV form. A missing
// table exports as a header-only document.
func (s *RecordStore) Export(ctx context.Context) ([]byte, error) {
	records, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return harvest.MarshalTable(records)
}

func (s *RecordStore) writeLocked(records []harvest.Record) error {
	tmp := s.path + ".tmp"
	// An earlier interrupted rewrite may have left a partial temp file.
	if _, err := os.Stat(tmp); err == nil {
		s.logger.Warn("removing stale temp table from an interrupted rewrite", zap.String("path", tmp))
		if err := os.Remove(tmp); err != nil {
			return fmt.Errorf("remove stale temp table %s: %w", tmp, err)
		}
	}

	data, err := harvest.MarshalTable(records)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create temp table %s: %w", tmp, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()      //nolint:errcheck
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("write temp table %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()      //nolint:errcheck
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("sync temp table %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("close temp table %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("replace table %s: %w", s.path, err)
	}

	s.logger.Debug("table rewritten", zap.String("path", s.path), zap.Int("rows", len(records)))
	return nil
}
