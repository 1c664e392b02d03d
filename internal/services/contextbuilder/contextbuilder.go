// Package contextbuilder assembles the market context handed to the model:
// current holdings, cash, latest bars with indicators, the previous order
// batch, and the most recent weekly research.
package contextbuilder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/storage/orders"
	"github.com/vadiminshakov/folio/internal/storage/research"
	"github.com/vadiminshakov/folio/pkg/indicators"
)

// close history depth fetched per instrument; enough for SMA20 and RSI14
// warmup with margin.
const closeHistoryDepth = 60

// PortfolioSource loads the current holdings snapshot.
type PortfolioSource interface {
	Portfolio(ctx context.Context) (domain.Portfolio, error)
}

// QuoteReader reads persisted daily bars.
type QuoteReader interface {
	Latest(ctx context.Context, ticker string) (domain.DailyQuote, bool, error)
	CloseHistory(ctx context.Context, ticker string, limit int) ([]float64, error)
}

// CashReader reads the most recent cash snapshot.
type CashReader interface {
	Latest(ctx context.Context) (domain.CashSnapshot, bool, error)
}

// OrderReader reads the most recent persisted order batch.
type OrderReader interface {
	LatestBatch(ctx context.Context) ([]orders.Row, error)
}

// ResearchReader reads the latest weekly research entry.
type ResearchReader interface {
	Latest() (research.Entry, bool, error)
}

// Instrument is one ticker's view inside the market context. Position is nil
// for watchlist tickers not currently held; Quote and Indicators are nil
// when no market data is available.
type Instrument struct {
	Ticker     string
	Position   *domain.Position
	Quote      *domain.DailyQuote
	Indicators *indicators.Snapshot
}

// MarketContext is the full input for one decision prompt.
type MarketContext struct {
	AsOf        time.Time
	Cash        domain.CashSnapshot
	HasCash     bool
	Instruments []Instrument
	LastOrders  []orders.Row
	Research    *research.Entry
}

// Builder assembles market contexts from the stores.
type Builder struct {
	portfolios PortfolioSource
	quotes     QuoteReader
	cash       CashReader
	orders     OrderReader
	research   ResearchReader
	watchlist  []string
	logger     *zap.Logger
}

// New creates a context builder. The watchlist supplies tickers to include
// even when the portfolio is empty.
func New(portfolios PortfolioSource, quotes QuoteReader, cash CashReader,
	orderReader OrderReader, researchReader ResearchReader, watchlist []string, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		portfolios: portfolios,
		quotes:     quotes,
		cash:       cash,
		orders:     orderReader,
		research:   researchReader,
		watchlist:  watchlist,
		logger:     logger,
	}
}

// Tickers returns the deduplicated union of held and watchlist tickers,
// held tickers first in portfolio order.
func (b *Builder) Tickers(ctx context.Context) ([]string, error) {
	portfolio, err := b.portfolios.Portfolio(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var tickers []string
	add := func(ticker string) {
		ticker = domain.CleanTicker(ticker)
		if ticker == "" {
			return
		}
		if _, ok := seen[ticker]; ok {
			return
		}
		seen[ticker] = struct{}{}
		tickers = append(tickers, ticker)
	}

	for _, ticker := range portfolio.Tickers() {
		add(ticker)
	}
	for _, ticker := range b.watchlist {
		add(ticker)
	}
	return tickers, nil
}

// Build assembles the market context as of the given day. Missing market
// data for a ticker degrades that instrument's view instead of failing the
// whole build.
func (b *Builder) Build(ctx context.Context, asOf time.Time) (MarketContext, error) {
	portfolio, err := b.portfolios.Portfolio(ctx)
	if err != nil {
		return MarketContext{}, err
	}

	tickers, err := b.Tickers(ctx)
	if err != nil {
		return MarketContext{}, err
	}

	mc := MarketContext{AsOf: asOf}

	for _, ticker := range tickers {
		instrument := Instrument{Ticker: ticker}

		if pos, held := portfolio.Position(ticker); held {
			instrument.Position = &pos
		}

		quote, found, err := b.quotes.Latest(ctx, ticker)
		if err != nil {
			return MarketContext{}, err
		}
		if found {
			instrument.Quote = &quote
		}

		closes, err := b.quotes.CloseHistory(ctx, ticker, closeHistoryDepth)
		if err != nil {
			return MarketContext{}, err
		}
		if snap, ok := indicators.LatestSnapshot(closes); ok {
			instrument.Indicators = &snap
		} else {
			b.logger.Debug("not enough history for indicators",
				zap.String("ticker", ticker), zap.Int("closes", len(closes)))
		}

		mc.Instruments = append(mc.Instruments, instrument)
	}

	cash, hasCash, err := b.cash.Latest(ctx)
	if err != nil {
		return MarketContext{}, err
	}
	mc.Cash = cash
	mc.HasCash = hasCash

	lastOrders, err := b.orders.LatestBatch(ctx)
	if err != nil {
		return MarketContext{}, err
	}
	mc.LastOrders = lastOrders

	entry, found, err := b.research.Latest()
	if err != nil {
		return MarketContext{}, err
	}
	if found {
		mc.Research = &entry
	}

	return mc, nil
}
