package posttrade

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/services/reconciler"
)

type fakePortfolios struct {
	portfolio domain.Portfolio
}

func (f *fakePortfolios) Portfolio(context.Context) (domain.Portfolio, error) {
	return f.portfolio, nil
}

type fakeSyncer struct {
	lastTarget domain.Portfolio
	lastAsOf   time.Time
	stats      reconciler.Stats
}

func (f *fakeSyncer) SyncPositions(_ context.Context, target domain.Portfolio, asOf time.Time) (reconciler.Stats, error) {
	f.lastTarget = target
	f.lastAsOf = asOf
	return f.stats, nil
}

type fakeCash struct {
	prior    *domain.CashSnapshot
	upserted []domain.CashSnapshot
}

func (f *fakeCash) LatestBefore(context.Context, time.Time) (domain.CashSnapshot, bool, error) {
	if f.prior == nil {
		return domain.CashSnapshot{}, false, nil
	}
	return *f.prior, true, nil
}

func (f *fakeCash) Upsert(_ context.Context, snapshot domain.CashSnapshot) error {
	f.upserted = append(f.upserted, snapshot)
	return nil
}

var asOf = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestApplyOrdersAndPersistFirstBuy(t *testing.T) {
	// empty portfolio, no prior cash: one buy of 10 @ 100 ends at -1000
	syncer := &fakeSyncer{stats: reconciler.Stats{Inserted: 1}}
	cashStore := &fakeCash{}
	svc := New(&fakePortfolios{}, syncer, cashStore, nil)

	result, err := svc.ApplyOrdersAndPersist(context.Background(),
		[]domain.Order{{Ticker: "AAPL", Qty: 10, Price: 100}},
		WithAsOfDate(asOf))
	require.NoError(t, err)

	assert.Equal(t, asOf, result.AsOfDate)
	assert.InDelta(t, 0.0, result.PreviousCash, 1e-9)
	assert.InDelta(t, -1000.0, result.NewCash, 1e-9)
	assert.Equal(t, 1, result.OrdersCount)
	assert.Equal(t, 1, result.PositionsHeld)
	assert.Equal(t, reconciler.Stats{Inserted: 1}, result.PositionSync)

	pos, ok := syncer.lastTarget.Position("AAPL")
	require.True(t, ok)
	assert.InDelta(t, 10.0, pos.Qty, 1e-12)
	assert.InDelta(t, 100.0, pos.AvgPrice, 1e-12)

	require.Len(t, cashStore.upserted, 1)
	assert.Equal(t, "2025-06-02", cashStore.upserted[0].DateString())
	assert.InDelta(t, -1000.0, cashStore.upserted[0].Amount, 1e-9)
}

func TestApplyOrdersAndPersistUsesPriorCash(t *testing.T) {
	prior := domain.CashSnapshot{
		Date:   asOf.AddDate(0, 0, -1),
		Amount: 5000,
	}
	cashStore := &fakeCash{prior: &prior}
	svc := New(&fakePortfolios{}, &fakeSyncer{}, cashStore, nil)

	result, err := svc.ApplyOrdersAndPersist(context.Background(),
		[]domain.Order{{Ticker: "AAPL", Qty: 10, Price: 100}},
		WithAsOfDate(asOf))
	require.NoError(t, err)

	assert.InDelta(t, 5000.0, result.PreviousCash, 1e-9)
	assert.InDelta(t, 4000.0, result.NewCash, 1e-9)
}

func TestApplyOrdersAndPersistOverrides(t *testing.T) {
	current := domain.NewPortfolio([]domain.Position{{Ticker: "AAPL", Qty: 10, AvgPrice: 100}})
	syncer := &fakeSyncer{}
	cashStore := &fakeCash{}
	// portfolio source would fail the test if consulted
	svc := New(nil, syncer, cashStore, nil)

	result, err := svc.ApplyOrdersAndPersist(context.Background(),
		[]domain.Order{{Ticker: "AAPL", Qty: -10, Price: 150}},
		WithAsOfDate(asOf),
		WithPortfolio(current),
		WithPriorCash(100))
	require.NoError(t, err)

	assert.InDelta(t, 100.0, result.PreviousCash, 1e-9)
	assert.InDelta(t, 1600.0, result.NewCash, 1e-9)
	assert.Equal(t, 0, syncer.lastTarget.Len()) // full sell removes the position
}

func TestApplyOrdersAndPersistNaNPriorCashDefaultsToZero(t *testing.T) {
	svc := New(&fakePortfolios{}, &fakeSyncer{}, &fakeCash{}, nil)

	result, err := svc.ApplyOrdersAndPersist(context.Background(), nil,
		WithAsOfDate(asOf),
		WithPriorCash(math.NaN()))
	require.NoError(t, err)

	assert.InDelta(t, 0.0, result.PreviousCash, 1e-9)
	assert.InDelta(t, 0.0, result.NewCash, 1e-9)
}

func TestApplyOrdersAndPersistInvalidOrderAborts(t *testing.T) {
	syncer := &fakeSyncer{}
	cashStore := &fakeCash{}
	svc := New(&fakePortfolios{}, syncer, cashStore, nil)

	_, err := svc.ApplyOrdersAndPersist(context.Background(),
		[]domain.Order{{Ticker: "AAPL", Qty: -1, Price: 100}},
		WithAsOfDate(asOf))
	require.ErrorIs(t, err, domain.ErrInvalidOrder)

	// nothing persisted on validation failure
	assert.True(t, syncer.lastAsOf.IsZero())
	assert.Empty(t, cashStore.upserted)
}
