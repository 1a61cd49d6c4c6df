// Package file provides the JSON single-slot checkpoint document.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shelterscout/petharvester/internal/harvest"
)

// DocumentName is the on-disk file name of the checkpoint document.
const DocumentName = "progress.json"

// CheckpointStore persists the controller checkpoint as a small JSON
// document that is overwritten in place, never appended.
type CheckpointStore struct {
	path string
}

// New creates a CheckpointStore rooted in dir.
func New(dir string) (*CheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return &CheckpointStore{path: filepath.Join(dir, DocumentName)}, nil
}

// Save durably overwrites the checkpoint. The document is written to a
// temp file and renamed so a crash mid-save never leaves a torn document.
func (s *CheckpointStore) Save(ctx context.Context, cp harvest.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("checkpoint save canceled: %w", err)
	}
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("replace checkpoint %s: %w", s.path, err)
	}
	return nil
}

// Load returns the stored checkpoint. A missing document yields
// harvest.ErrNotFound; a torn or unparsable one is reported as an error
// so the caller can log the diagnostic before degrading to the default.
func (s *CheckpointStore) Load(ctx context.Context) (harvest.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return harvest.Checkpoint{}, fmt.Errorf("checkpoint load canceled: %w", err)
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return harvest.Checkpoint{}, harvest.ErrNotFound
		}
		return harvest.Checkpoint{}, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}
	var cp harvest.Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return harvest.Checkpoint{}, fmt.Errorf("parse checkpoint %s: %w", s.path, err)
	}
	return cp, nil
}

// Clear removes the checkpoint. Missing is not an error.
func (s *CheckpointStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("checkpoint clear canceled: %w", err)
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove checkpoint %s: %w", s.path, err)
	}
	return nil
}
