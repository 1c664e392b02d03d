package decisions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/folio/internal/domain"
)

func newTestStore(t *testing.T) *WALStore {
	t.Helper()
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndEventsAfter(t *testing.T) {
	store := newTestStore(t)

	first := domain.DecisionEvent{
		Timestamp: time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC),
		Job:       "daily-rebalance",
		Summary:   "adding to AAPL",
		Orders:    []domain.Order{{Ticker: "AAPL", Qty: 2, Price: 200}},
	}
	second := domain.DecisionEvent{
		Timestamp: time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC),
		Job:       "weekly-research",
		Summary:   "stay overweight tech",
	}

	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))

	records, err := store.EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "daily-rebalance", records[0].Event.Job)
	require.Len(t, records[0].Event.Orders, 1)
	assert.Equal(t, "AAPL", records[0].Event.Orders[0].Ticker)

	// resume from the last seen index
	tail, err := store.EventsAfter(records[0].Index)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "weekly-research", tail[0].Event.Job)
}

func TestEventsAfterCurrentIndexEmpty(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(domain.DecisionEvent{Job: "daily-rebalance"}))

	records, err := store.EventsAfter(store.CurrentIndex())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSaveRequiresJob(t *testing.T) {
	store := newTestStore(t)
	require.Error(t, store.Save(domain.DecisionEvent{}))
}
