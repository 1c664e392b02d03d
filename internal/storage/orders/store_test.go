package orders

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	require.NoError(t, err)
	return store
}

func day(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAppendAssignsIDs(t *testing.T) {
	store := newTestStore(t)

	id1, err := store.Append(context.Background(), day("2025-06-02"), domain.Order{Ticker: "AAPL", Qty: 10, Price: 100})
	require.NoError(t, err)
	id2, err := store.Append(context.Background(), day("2025-06-02"), domain.Order{Ticker: "MSFT", Qty: 2, Price: 300})
	require.NoError(t, err)

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
}

func TestLatestBatchReturnsMostRecentDateOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, day("2025-05-30"), domain.Order{Ticker: "AAPL", Qty: 5, Price: 95})
	require.NoError(t, err)
	_, err = store.Append(ctx, day("2025-06-02"), domain.Order{Ticker: "MSFT", Qty: 2, Price: 300})
	require.NoError(t, err)
	_, err = store.Append(ctx, day("2025-06-02"), domain.Order{Ticker: "AAPL", Qty: -5, Price: 201})
	require.NoError(t, err)

	batch, err := store.LatestBatch(ctx)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	// insertion order within the batch
	assert.Equal(t, "MSFT", batch[0].Ticker)
	assert.Equal(t, "AAPL", batch[1].Ticker)
	assert.Equal(t, "2025-06-02", batch[0].Date)
	assert.InDelta(t, -5.0, batch[1].Qty, 1e-12)
}

func TestLatestBatchEmpty(t *testing.T) {
	store := newTestStore(t)

	batch, err := store.LatestBatch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batch)
}
