// Package posttrade composes the order application engine, the position
// reconciler and the cash ledger into one recorded outcome per batch of
// executed orders.
package posttrade

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/ledger"
	"github.com/vadiminshakov/folio/internal/services/reconciler"
)

// PortfolioSource loads the current holdings snapshot.
type PortfolioSource interface {
	Portfolio(ctx context.Context) (domain.Portfolio, error)
}

// PositionSyncer converges persisted positions to a target portfolio.
type PositionSyncer interface {
	SyncPositions(ctx context.Context, target domain.Portfolio, asOf time.Time) (reconciler.Stats, error)
}

// CashLedger reads and writes daily cash snapshots.
type CashLedger interface {
	LatestBefore(ctx context.Context, day time.Time) (domain.CashSnapshot, bool, error)
	Upsert(ctx context.Context, snapshot domain.CashSnapshot) error
}

// Result is the read-only receipt of one orchestration run. It is returned
// to the caller for logging, never persisted.
type Result struct {
	AsOfDate      time.Time
	PreviousCash  float64
	NewCash       float64
	OrdersCount   int
	PositionsHeld int
	PositionSync  reconciler.Stats
}

// Service orchestrates apply -> reconcile -> cash write as one logical unit
// of work. Runs are safe to repeat after a failure because the reconciler is
// idempotent and the cash write is an upsert.
type Service struct {
	portfolios PortfolioSource
	syncer     PositionSyncer
	cash       CashLedger
	logger     *zap.Logger
	now        func() time.Time
}

// New creates the post-trade service.
func New(portfolios PortfolioSource, syncer PositionSyncer, cash CashLedger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		portfolios: portfolios,
		syncer:     syncer,
		cash:       cash,
		logger:     logger,
		now:        time.Now,
	}
}

// Option overrides one input of an orchestration run.
type Option func(*runConfig)

type runConfig struct {
	asOf      time.Time
	portfolio *domain.Portfolio
	priorCash *float64
}

// WithAsOfDate overrides the cash snapshot date (defaults to today UTC).
func WithAsOfDate(day time.Time) Option {
	return func(c *runConfig) { c.asOf = day }
}

// WithPortfolio supplies a pre-loaded portfolio so the run does not re-read
// the store.
func WithPortfolio(p domain.Portfolio) Option {
	return func(c *runConfig) { c.portfolio = &p }
}

// WithPriorCash supplies a cached prior cash balance.
func WithPriorCash(amount float64) Option {
	return func(c *runConfig) { c.priorCash = &amount }
}

// ApplyOrdersAndPersist applies executed orders, syncs positions, and writes
// the resulting cash snapshot.
func (s *Service) ApplyOrdersAndPersist(ctx context.Context, orders []domain.Order, opts ...Option) (Result, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.asOf.IsZero() {
		cfg.asOf = s.now().UTC().Truncate(24 * time.Hour)
	}

	current, err := s.currentPortfolio(ctx, cfg)
	if err != nil {
		return Result{}, err
	}

	updated, err := ledger.ApplyOrders(current, orders)
	if err != nil {
		return Result{}, err
	}

	syncStats, err := s.syncer.SyncPositions(ctx, updated, cfg.asOf)
	if err != nil {
		return Result{}, errors.Wrap(err, "sync positions")
	}

	previousCash, err := s.priorCash(ctx, cfg)
	if err != nil {
		return Result{}, err
	}

	newCash := ledger.ComputeCashAfterOrders(previousCash, orders)

	snapshot := domain.CashSnapshot{Date: cfg.asOf, Amount: newCash}
	if err := s.cash.Upsert(ctx, snapshot); err != nil {
		return Result{}, errors.Wrap(err, "write cash snapshot")
	}

	result := Result{
		AsOfDate:      cfg.asOf,
		PreviousCash:  previousCash,
		NewCash:       newCash,
		OrdersCount:   len(orders),
		PositionsHeld: updated.Len(),
		PositionSync:  syncStats,
	}

	s.logger.Info("post-trade run persisted",
		zap.String("as_of", cfg.asOf.Format(domain.DateLayout)),
		zap.Int("orders", result.OrdersCount),
		zap.Float64("previous_cash", result.PreviousCash),
		zap.Float64("new_cash", result.NewCash),
		zap.Int("inserted", syncStats.Inserted),
		zap.Int("updated", syncStats.Updated),
		zap.Int("deleted", syncStats.Deleted))

	return result, nil
}

func (s *Service) currentPortfolio(ctx context.Context, cfg runConfig) (domain.Portfolio, error) {
	if cfg.portfolio != nil {
		return *cfg.portfolio, nil
	}
	p, err := s.portfolios.Portfolio(ctx)
	if err != nil {
		return domain.Portfolio{}, errors.Wrap(err, "load current portfolio")
	}
	return p, nil
}

func (s *Service) priorCash(ctx context.Context, cfg runConfig) (float64, error) {
	if cfg.priorCash != nil {
		return normalizeCash(*cfg.priorCash), nil
	}
	prior, found, err := s.cash.LatestBefore(ctx, cfg.asOf)
	if err != nil {
		return 0, errors.Wrap(err, "load prior cash")
	}
	if !found {
		return 0, nil
	}
	return normalizeCash(prior.Amount), nil
}

func normalizeCash(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
