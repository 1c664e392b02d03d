// Package collector pulls end-of-day bars from the quote provider and
// persists them before each decision run.
package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/clients"
	"github.com/vadiminshakov/folio/internal/domain"
)

// default fetch window; covers weekends, holidays and short provider gaps
// while staying deep enough for 14-period indicators.
const defaultLookbackDays = 60

// QuoteWriter persists fetched bars.
type QuoteWriter interface {
	UpsertBatch(ctx context.Context, bars []domain.DailyQuote) (int, error)
}

// Collector fetches recent daily bars for a set of tickers and stores them.
type Collector struct {
	provider clients.QuoteClient
	store    QuoteWriter
	logger   *zap.Logger
	lookback int
	now      func() time.Time
}

// New creates a collector over the given provider and store.
func New(provider clients.QuoteClient, store QuoteWriter, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		provider: provider,
		store:    store,
		logger:   logger,
		lookback: defaultLookbackDays,
		now:      time.Now,
	}
}

// CollectDaily fetches the recent history for every ticker and upserts the
// bars. A failing ticker is logged and skipped so one delisted symbol does
// not starve the rest of the universe.
func (c *Collector) CollectDaily(ctx context.Context, tickers []string) (int, error) {
	to := c.now().UTC()
	from := to.AddDate(0, 0, -c.lookback)

	written := 0
	for _, ticker := range tickers {
		ticker = domain.CleanTicker(ticker)
		if ticker == "" {
			continue
		}

		bars, err := c.provider.DailyHistory(ctx, ticker, from, to)
		if err != nil {
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			c.logger.Warn("quote fetch failed, skipping ticker",
				zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		if len(bars) == 0 {
			c.logger.Warn("no bars returned", zap.String("ticker", ticker))
			continue
		}

		n, err := c.store.UpsertBatch(ctx, bars)
		if err != nil {
			return written, err
		}
		written += n
	}

	c.logger.Info("daily quotes collected",
		zap.Int("tickers", len(tickers)),
		zap.Int("bars_written", written))

	return written, nil
}
