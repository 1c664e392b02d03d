package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/storage/positions"
)

// memStore is an in-memory position table preserving physical insertion
// order through monotonically increasing rowids.
type memStore struct {
	rows   []positions.Row
	nextID int64
}

func (m *memStore) Transact(_ context.Context, fn func(rows positions.Rows) error) error {
	return fn(m)
}

func (m *memStore) All(context.Context) ([]positions.Row, error) {
	out := make([]positions.Row, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *memStore) Insert(_ context.Context, row positions.Row) error {
	m.nextID++
	row.RowID = m.nextID
	m.rows = append(m.rows, row)
	return nil
}

func (m *memStore) Update(_ context.Context, rowID int64, row positions.Row) error {
	for i := range m.rows {
		if m.rows[i].RowID == rowID {
			row.RowID = rowID
			m.rows[i] = row
		}
	}
	return nil
}

func (m *memStore) DeleteRow(_ context.Context, rowID int64) (int, error) {
	return m.deleteIf(func(r positions.Row) bool { return r.RowID == rowID }), nil
}

func (m *memStore) DeleteTicker(_ context.Context, ticker string) (int, error) {
	return m.deleteIf(func(r positions.Row) bool { return r.Ticker == ticker }), nil
}

func (m *memStore) deleteIf(match func(positions.Row) bool) int {
	kept := m.rows[:0]
	deleted := 0
	for _, r := range m.rows {
		if match(r) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return deleted
}

func (m *memStore) seed(rows ...positions.Row) {
	for _, r := range rows {
		_ = m.Insert(context.Background(), r)
	}
}

func (m *memStore) byTicker(ticker string) []positions.Row {
	var out []positions.Row
	for _, r := range m.rows {
		if r.Ticker == ticker {
			out = append(out, r)
		}
	}
	return out
}

var asOf = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestSyncPositionsInsertsNewTickers(t *testing.T) {
	store := &memStore{}
	r := New(store, nil)

	target := domain.NewPortfolio([]domain.Position{
		{Ticker: "AAPL", Qty: 10, AvgPrice: 100},
		{Ticker: "MSFT", Qty: 2, AvgPrice: 300},
	})

	stats, err := r.SyncPositions(context.Background(), target, asOf)
	require.NoError(t, err)
	assert.Equal(t, Stats{Inserted: 2}, stats)

	rows := store.byTicker("AAPL")
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-06-02", rows[0].Date) // unset dates stamped with asOf
}

func TestSyncPositionsIdempotent(t *testing.T) {
	store := &memStore{}
	r := New(store, nil)

	target := domain.NewPortfolio([]domain.Position{{Ticker: "AAPL", Qty: 10, AvgPrice: 100}})

	_, err := r.SyncPositions(context.Background(), target, asOf)
	require.NoError(t, err)

	stats, err := r.SyncPositions(context.Background(), target, asOf)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Len(t, store.rows, 1)
}

func TestSyncPositionsConvergesDuplicateRows(t *testing.T) {
	store := &memStore{}
	store.seed(
		positions.Row{Date: "2025-05-30", Ticker: "AAPL", Qty: 8, AvgPrice: 95},
		positions.Row{Date: "2025-06-01", Ticker: "AAPL", Qty: 10, AvgPrice: 100},
	)
	r := New(store, nil)

	target := domain.NewPortfolio([]domain.Position{
		{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Ticker: "AAPL", Qty: 10, AvgPrice: 100},
	})

	stats, err := r.SyncPositions(context.Background(), target, asOf)
	require.NoError(t, err)
	assert.Equal(t, Stats{Deleted: 1}, stats) // stale row removed, winner already matches

	rows := store.byTicker("AAPL")
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-06-01", rows[0].Date)
	assert.InDelta(t, 10.0, rows[0].Qty, 1e-12)
}

func TestSyncPositionsDuplicateDateTieLatestWriteWins(t *testing.T) {
	store := &memStore{}
	store.seed(
		positions.Row{Date: "2025-06-01", Ticker: "AAPL", Qty: 7, AvgPrice: 90},
		positions.Row{Date: "2025-06-01", Ticker: "AAPL", Qty: 10, AvgPrice: 100},
	)
	r := New(store, nil)

	target := domain.NewPortfolio([]domain.Position{
		{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Ticker: "AAPL", Qty: 10, AvgPrice: 100},
	})

	stats, err := r.SyncPositions(context.Background(), target, asOf)
	require.NoError(t, err)
	assert.Equal(t, Stats{Deleted: 1}, stats)

	rows := store.byTicker("AAPL")
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].RowID)
}

func TestSyncPositionsDeletesObsoleteTickers(t *testing.T) {
	store := &memStore{}
	store.seed(
		positions.Row{Date: "2025-06-01", Ticker: "AAPL", Qty: 10, AvgPrice: 100},
		positions.Row{Date: "2025-06-01", Ticker: "TSLA", Qty: 3, AvgPrice: 200},
	)
	r := New(store, nil)

	target := domain.NewPortfolio([]domain.Position{
		{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Ticker: "AAPL", Qty: 10, AvgPrice: 100},
	})

	stats, err := r.SyncPositions(context.Background(), target, asOf)
	require.NoError(t, err)
	assert.Equal(t, Stats{Deleted: 1}, stats)
	assert.Empty(t, store.byTicker("TSLA"))
}

func TestSyncPositionsUpdatesChangedRows(t *testing.T) {
	store := &memStore{}
	store.seed(positions.Row{Date: "2025-06-01", Ticker: "AAPL", Qty: 10, AvgPrice: 100})
	r := New(store, nil)

	target := domain.NewPortfolio([]domain.Position{
		{Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), Ticker: "AAPL", Qty: 12, AvgPrice: 105},
	})

	stats, err := r.SyncPositions(context.Background(), target, asOf)
	require.NoError(t, err)
	assert.Equal(t, Stats{Updated: 1}, stats)

	rows := store.byTicker("AAPL")
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-06-02", rows[0].Date)
	assert.InDelta(t, 12.0, rows[0].Qty, 1e-12)
	assert.InDelta(t, 105.0, rows[0].AvgPrice, 1e-12)
}

func TestSyncPositionsToleratesFloatNoise(t *testing.T) {
	store := &memStore{}
	store.seed(positions.Row{Date: "2025-06-01", Ticker: "AAPL", Qty: 10, AvgPrice: 100})
	r := New(store, nil)

	// a qty differing only by floating-point noise must not trigger an update
	target := domain.NewPortfolio([]domain.Position{
		{Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Ticker: "AAPL", Qty: 10 + 1e-12, AvgPrice: 100},
	})

	stats, err := r.SyncPositions(context.Background(), target, asOf)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestSyncPositionsEmptyTargetClearsTable(t *testing.T) {
	store := &memStore{}
	store.seed(
		positions.Row{Date: "2025-06-01", Ticker: "AAPL", Qty: 10, AvgPrice: 100},
		positions.Row{Date: "2025-05-30", Ticker: "AAPL", Qty: 9, AvgPrice: 90},
		positions.Row{Date: "2025-06-01", Ticker: "MSFT", Qty: 2, AvgPrice: 300},
	)
	r := New(store, nil)

	stats, err := r.SyncPositions(context.Background(), domain.Portfolio{}, asOf)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Deleted)
	assert.Empty(t, store.rows)
}
