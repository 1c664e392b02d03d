package quotes

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
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

func bar(ticker, date string, closePrice float64) domain.DailyQuote {
	day, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return domain.DailyQuote{
		Date:   day,
		Ticker: ticker,
		Open:   decimal.NewFromFloat(closePrice - 1),
		High:   decimal.NewFromFloat(closePrice + 1),
		Low:    decimal.NewFromFloat(closePrice - 2),
		Close:  decimal.NewFromFloat(closePrice),
		Volume: 1000,
	}
}

func TestUpsertBatchReplacesSameKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.UpsertBatch(ctx, []domain.DailyQuote{bar("AAPL", "2025-06-02", 200)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// same (date, ticker) key overwrites
	_, err = store.UpsertBatch(ctx, []domain.DailyQuote{bar("AAPL", "2025-06-02", 205)})
	require.NoError(t, err)

	latest, found, err := store.Latest(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 205.0, latest.Close.InexactFloat64(), 1e-9)
}

func TestLatestPicksGreatestDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertBatch(ctx, []domain.DailyQuote{
		bar("AAPL", "2025-06-02", 201),
		bar("AAPL", "2025-05-30", 199),
		bar("MSFT", "2025-06-02", 460),
	})
	require.NoError(t, err)

	latest, found, err := store.Latest(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2025-06-02", latest.DateString())
	assert.InDelta(t, 201.0, latest.Close.InexactFloat64(), 1e-9)
}

func TestLatestUnknownTicker(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.Latest(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCloseHistoryOldestFirstWithLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertBatch(ctx, []domain.DailyQuote{
		bar("AAPL", "2025-05-28", 195),
		bar("AAPL", "2025-05-29", 197),
		bar("AAPL", "2025-05-30", 199),
		bar("AAPL", "2025-06-02", 201),
	})
	require.NoError(t, err)

	closes, err := store.CloseHistory(ctx, "AAPL", 3)
	require.NoError(t, err)
	require.Len(t, closes, 3)
	// the 3 most recent closes, oldest first
	assert.InDelta(t, 197.0, closes[0], 1e-9)
	assert.InDelta(t, 199.0, closes[1], 1e-9)
	assert.InDelta(t, 201.0, closes[2], 1e-9)
}
