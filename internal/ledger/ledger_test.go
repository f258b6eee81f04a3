// internal/ledger/ledger_test.go
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nsa-scheduler/internal/common/logger"
)

func newTestLedger(t *testing.T, store Store) *Ledger {
	l := New(store, logger.NewTestLogger(t))
	l.now = func() time.Time { return time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC) }
	return l
}

// failingStore simulates an unreadable backend.
type failingStore struct{}

func (failingStore) Load(context.Context) ([]Entry, error) {
	return nil, fmt.Errorf("disk on fire")
}
func (failingStore) Save(context.Context, []Entry) error {
	return fmt.Errorf("disk still on fire")
}

func TestLedger_RecordAndDuplicate(t *testing.T) {
	l := newTestLedger(t, NewFileStore(filepath.Join(t.TempDir(), "ledger.json")))

	_, dup := l.IsDuplicate("RO-1")
	assert.False(t, dup)

	l.Record("RO-1", "Ada", "Lovelace", "501", "appt-1")
	entry, dup := l.IsDuplicate("RO-1")
	require.True(t, dup)
	assert.Equal(t, "Ada", entry.FirstName)
	assert.Equal(t, "appt-1", entry.AppointmentID)
}

func TestLedger_RecordUpsertsSameRO(t *testing.T) {
	l := newTestLedger(t, NewFileStore(filepath.Join(t.TempDir(), "ledger.json")))

	l.Record("RO-1", "Ada", "Lovelace", "501", "appt-1")
	l.Record("RO-2", "Grace", "Hopper", "501", "appt-2")
	l.Record("RO-1", "Ada", "Lovelace", "501", "appt-3")

	assert.Equal(t, 2, l.Len())

	entries := l.Entries()
	require.Len(t, entries, 2)
	// Re-recording keeps the first-recorded position.
	assert.Equal(t, "RO-1", entries[0].RONumber)
	assert.Equal(t, "appt-3", entries[0].AppointmentID)
	assert.Equal(t, "RO-2", entries[1].RONumber)
}

func TestLedger_LoadFailureDegradesToEmpty(t *testing.T) {
	l := newTestLedger(t, failingStore{})

	l.Load(context.Background())

	assert.Equal(t, 0, l.Len())
	_, dup := l.IsDuplicate("RO-1")
	assert.False(t, dup)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	ctx := context.Background()

	l := newTestLedger(t, NewFileStore(path))
	l.Record("RO-1", "Ada", "Lovelace", "501", "appt-1")
	l.Record("RO-2", "Grace", "Hopper", "502", "appt-2")
	require.NoError(t, l.Save(ctx))

	reloaded := newTestLedger(t, NewFileStore(path))
	reloaded.Load(ctx)

	assert.Equal(t, 2, reloaded.Len())
	entry, dup := reloaded.IsDuplicate("RO-2")
	require.True(t, dup)
	assert.Equal(t, "502", entry.DealerID)
}

func TestFileStore_SaveOverwritesWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	ctx := context.Background()
	store := NewFileStore(path)

	require.NoError(t, store.Save(ctx, []Entry{
		{RONumber: "RO-1"}, {RONumber: "RO-2"}, {RONumber: "RO-3"},
	}))
	require.NoError(t, store.Save(ctx, []Entry{{RONumber: "RO-9"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "RO-9", entries[0].RONumber)
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist.json"))

	_, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	store := NewRedisStore(client, "nsa:ledger")

	// Empty key reads as an empty ledger, not an error.
	entries, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.Save(ctx, []Entry{
		{RONumber: "RO-1", FirstName: "Ada", DealerID: "501", AppointmentID: "appt-1"},
	}))

	entries, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "RO-1", entries[0].RONumber)
	assert.Equal(t, "appt-1", entries[0].AppointmentID)
}
