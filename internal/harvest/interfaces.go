package harvest

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when no stored state exists.
var ErrNotFound = errors.New("not found")

// RecordStore persists harvested records as an ordered keyed table.
type RecordStore interface {
	// ReadAll returns the full ordered collection as currently persisted.
	// A missing table is an empty collection; an unreadable one is an error.
	ReadAll(ctx context.Context) ([]Record, error)
	// Upsert inserts or merges the record under its key, preserving the
	// position of all other rows. Fields absent from the record keep
	// their previously stored values.
	Upsert(ctx context.Context, record Record) error
	// BulkRewrite atomically replaces the entire table with records.
	BulkRewrite(ctx context.Context, records []Record) error
	// Export returns the table serialized in its on-disk CSV form.
	Export(ctx context.Context) ([]byte, error)
}

// CheckpointStore persists the single-slot controller checkpoint.
type CheckpointStore interface {
	// Save overwrites the checkpoint. It must be called before the risky
	// operation it describes so a crash re-attempts that exact operation.
	Save(ctx context.Context, cp Checkpoint) error
	// Load returns the stored checkpoint, or ErrNotFound when none exists.
	// Callers degrade unreadable or out-of-range state to the default.
	Load(ctx context.Context) (Checkpoint, error)
	// Clear removes the checkpoint after a full cycle completes.
	Clear(ctx context.Context) error
}

// PageLister returns candidate item keys for one search page. An empty
// result is not an error; only transport or auth failures are.
type PageLister interface {
	ListPage(ctx context.Context, page int, category Category) ([]string, error)
}

// ItemFetcher fetches the full record for a key. Missing fields come back
// empty, not as an error; only total failure to reach the source errors.
type ItemFetcher interface {
	FetchItem(ctx context.Context, key string) (Record, error)
}

// Validator re-fetches a key and reports how many of the expected fields
// failed extraction. The caller applies the removal threshold.
type Validator interface {
	Validate(ctx context.Context, key string) (failedFields int, err error)
}

// SecretProvider supplies the shared token compared against caller keys.
type SecretProvider interface {
	Token() (string, error)
}

// Publisher pushes cycle events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// SnapshotSink archives a copy of the rewritten table.
type SnapshotSink interface {
	PutSnapshot(ctx context.Context, name string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
