package positions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func insertRows(t *testing.T, store *Store, rows ...Row) {
	t.Helper()
	require.NoError(t, store.Transact(context.Background(), func(view Rows) error {
		for _, r := range rows {
			if err := view.Insert(context.Background(), r); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestAllPreservesInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	insertRows(t, store,
		Row{Date: "2025-06-01", Ticker: "MSFT", Qty: 2, AvgPrice: 300},
		Row{Date: "2025-06-01", Ticker: "AAPL", Qty: 10, AvgPrice: 100},
	)

	var all []Row
	require.NoError(t, store.Transact(context.Background(), func(view Rows) error {
		var err error
		all, err = view.All(context.Background())
		return err
	}))

	require.Len(t, all, 2)
	assert.Equal(t, "MSFT", all[0].Ticker)
	assert.Equal(t, "AAPL", all[1].Ticker)
	assert.Less(t, all[0].RowID, all[1].RowID)
}

func TestPortfolioResolvesDuplicates(t *testing.T) {
	store := newTestStore(t)
	insertRows(t, store,
		Row{Date: "2025-05-30", Ticker: "AAPL", Qty: 8, AvgPrice: 95},
		Row{Date: "2025-06-01", Ticker: "AAPL", Qty: 10, AvgPrice: 100},
		Row{Date: "2025-06-01", Ticker: "AAPL", Qty: 12, AvgPrice: 101},
	)

	portfolio, err := store.Portfolio(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, portfolio.Len())

	pos, ok := portfolio.Position("AAPL")
	require.True(t, ok)
	// date tie resolved by latest physical write
	assert.InDelta(t, 12.0, pos.Qty, 1e-12)
	assert.InDelta(t, 101.0, pos.AvgPrice, 1e-12)
	assert.Equal(t, "2025-06-01", pos.DateString())
}

func TestTransactRollsBackOnError(t *testing.T) {
	store := newTestStore(t)

	err := store.Transact(context.Background(), func(view Rows) error {
		if err := view.Insert(context.Background(), Row{Date: "2025-06-01", Ticker: "AAPL", Qty: 1, AvgPrice: 1}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	portfolio, err := store.Portfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, portfolio.Len())
}

func TestUpdateAndDelete(t *testing.T) {
	store := newTestStore(t)
	insertRows(t, store,
		Row{Date: "2025-06-01", Ticker: "AAPL", Qty: 10, AvgPrice: 100},
		Row{Date: "2025-06-01", Ticker: "TSLA", Qty: 3, AvgPrice: 200},
	)

	require.NoError(t, store.Transact(context.Background(), func(view Rows) error {
		all, err := view.All(context.Background())
		if err != nil {
			return err
		}
		if err := view.Update(context.Background(), all[0].RowID,
			Row{Date: "2025-06-02", Ticker: "AAPL", Qty: 12, AvgPrice: 105}); err != nil {
			return err
		}
		n, err := view.DeleteTicker(context.Background(), "TSLA")
		if err != nil {
			return err
		}
		assert.Equal(t, 1, n)
		return nil
	}))

	portfolio, err := store.Portfolio(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, portfolio.Len())

	pos, _ := portfolio.Position("AAPL")
	assert.InDelta(t, 12.0, pos.Qty, 1e-12)
	assert.Equal(t, "2025-06-02", pos.DateString())
}

func TestWins(t *testing.T) {
	newer := Row{RowID: 1, Date: "2025-06-02"}
	older := Row{RowID: 5, Date: "2025-06-01"}
	assert.True(t, Wins(newer, older)) // date beats rowid
	assert.False(t, Wins(older, newer))

	a := Row{RowID: 1, Date: "2025-06-01"}
	b := Row{RowID: 2, Date: "2025-06-01"}
	assert.True(t, Wins(b, a))
	assert.False(t, Wins(a, b))
}
