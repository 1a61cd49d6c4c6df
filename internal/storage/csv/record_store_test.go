package csv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shelterscout/petharvester/internal/harvest"
)

func newTestStore(t *testing.T) *RecordStore {
	t.Helper()
	store, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return store
}

func record(key string, fields map[string]string) harvest.Record {
	return harvest.Record{Key: key, Fields: fields}
}

func TestReadAllMissingTableIsEmpty(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	records, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestUpsertIsIdempotentPerKey(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, record("/a", map[string]string{"name": "Rex", "age": "Adult"})))
	require.NoError(t, store.Upsert(ctx, record("/a", map[string]string{"name": "Rexy", "age": "Senior"})))

	records, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/a", records[0].Key)
	assert.Equal(t, "Rexy", records[0].Field("name"))
	assert.Equal(t, "Senior", records[0].Field("age"))
}

func TestUpsertPartialRecordKeepsStoredFields(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, record("/a", map[string]string{
		"name":     "Rex",
		"breed":    "Beagle",
		"about_me": "good dog",
	})))
	// A later fetch that failed to capture breed must not erase it.
	require.NoError(t, store.Upsert(ctx, record("/a", map[string]string{
		"name": "Rex II",
	})))

	records, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Rex II", records[0].Field("name"))
	assert.Equal(t, "Beagle", records[0].Field("breed"))
	assert.Equal(t, "good dog", records[0].Field("about_me"))
}

func TestUpsertPreservesRowOrder(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"/a", "/b", "/c"} {
		require.NoError(t, store.Upsert(ctx, record(key, map[string]string{"name": key})))
	}
	require.NoError(t, store.Upsert(ctx, record("/b", map[string]string{"name": "updated"})))

	records, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "/a", records[0].Key)
	assert.Equal(t, "/b", records[1].Key)
	assert.Equal(t, "/c", records[2].Key)
	assert.Equal(t, "updated", records[1].Field("name"))
}

func TestMultilineDescriptionStaysOnOneRow(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, record("/a", map[string]string{
		"about_me": "line one\nline two\r\nline three",
	})))

	records, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, `line one\nline two\nline three`, records[0].Field("about_me"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	// header + one record row
	assert.Len(t, strings.Split(strings.TrimRight(string(raw), "\n"), "\n"), 2)
}

func TestBulkRewriteReplacesTable(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, record("/a", map[string]string{"name": "A"})))
	require.NoError(t, store.Upsert(ctx, record("/b", map[string]string{"name": "B"})))

	require.NoError(t, store.BulkRewrite(ctx, []harvest.Record{
		record("/b", map[string]string{"name": "B"}),
	}))

	records, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/b", records[0].Key)
}

func TestInterruptedRewriteLeavesPriorTableIntact(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, record("/a", map[string]string{"name": "A"})))

	// Simulate a crash after the temp file was written but before the
	// rename: the orphaned temp file must not shadow the real table.
	tmp := store.Path() + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0o600))

	records, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].Field("name"))

	// The next rewrite clears the stale artifact and succeeds.
	require.NoError(t, store.BulkRewrite(ctx, records))
	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))
}

func TestReadAllSurfacesCorruptTable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, TableName), []byte("name,age\nRex,3\n"), 0o600))

	_, err = store.ReadAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), harvest.KeyColumn)
}
