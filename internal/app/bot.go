// Package app wires the collector, context builder, decision source and
// post-trade pipeline into scheduled jobs: a weekday rebalance and a Sunday
// research run.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/metrics"
	"github.com/vadiminshakov/folio/internal/services/contextbuilder"
	"github.com/vadiminshakov/folio/internal/services/posttrade"
	"github.com/vadiminshakov/folio/internal/services/promptbuilder"
)

const (
	// JobDaily is the weekday rebalancing job name.
	JobDaily = "daily-rebalance"
	// JobWeekly is the Sunday research job name.
	JobWeekly = "weekly-research"
)

// QuoteCollector refreshes stored market data before a decision run.
type QuoteCollector interface {
	CollectDaily(ctx context.Context, tickers []string) (int, error)
}

// DecisionSource asks the model for decisions.
type DecisionSource interface {
	GetDecision(ctx context.Context, systemPrompt, userPrompt string) (domain.Decision, error)
	GetWeeklyResearch(ctx context.Context, systemPrompt, userPrompt string) (domain.WeeklyResearch, error)
}

// PostTrade applies executed orders and persists the outcome.
type PostTrade interface {
	ApplyOrdersAndPersist(ctx context.Context, orders []domain.Order, opts ...posttrade.Option) (posttrade.Result, error)
}

// OrderJournal records executed orders.
type OrderJournal interface {
	Append(ctx context.Context, day time.Time, order domain.Order) (string, error)
}

// DecisionJournal records decision events for the web stream.
type DecisionJournal interface {
	Save(event domain.DecisionEvent) error
}

// ResearchWriter appends weekly research notes.
type ResearchWriter interface {
	Append(day time.Time, text string) error
}

// Bot runs the portfolio jobs on their schedule.
type Bot struct {
	cfg       config.Config
	collector QuoteCollector
	contexts  *contextbuilder.Builder
	prompts   *promptbuilder.PromptBuilder
	llm       DecisionSource
	posttrade PostTrade
	orders    OrderJournal
	journal   DecisionJournal
	research  ResearchWriter
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewBot assembles the bot from its collaborators.
func NewBot(cfg config.Config, collector QuoteCollector, contexts *contextbuilder.Builder,
	llm DecisionSource, postTrade PostTrade, orderJournal OrderJournal,
	decisionJournal DecisionJournal, researchWriter ResearchWriter,
	m *metrics.Metrics, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		cfg:       cfg,
		collector: collector,
		contexts:  contexts,
		prompts:   promptbuilder.NewPromptBuilder(),
		llm:       llm,
		posttrade: postTrade,
		orders:    orderJournal,
		journal:   decisionJournal,
		research:  researchWriter,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes jobs on their schedule until ctx is cancelled. The daily job
// fires Monday through Friday at DailyAt; the research job fires Sunday at
// WeeklyAt, both in the configured timezone.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("scheduler started",
		zap.String("daily_at", b.cfg.DailyAt.String()),
		zap.String("weekly_at", b.cfg.WeeklyAt.String()),
		zap.String("timezone", b.cfg.Location.String()))

	for {
		now := b.now().In(b.cfg.Location)
		nextAt, job := b.nextRun(now)

		b.logger.Info("next job scheduled",
			zap.String("job", job),
			zap.Time("at", nextAt))

		timer := time.NewTimer(nextAt.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			b.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
		}

		b.runJob(ctx, job)
	}
}

// RunOnce runs the named job immediately, for the --run-now flag.
func (b *Bot) RunOnce(ctx context.Context, job string) error {
	switch job {
	case JobDaily:
		return b.RunDaily(ctx)
	case JobWeekly:
		return b.RunWeekly(ctx)
	}
	return errors.Errorf("unknown job %q", job)
}

// nextRun returns the next scheduled job at or after now.
func (b *Bot) nextRun(now time.Time) (time.Time, string) {
	nextDaily := nextWeekdayRun(now, b.cfg.DailyAt)
	nextWeekly := nextSundayRun(now, b.cfg.WeeklyAt)

	if nextWeekly.Before(nextDaily) {
		return nextWeekly, JobWeekly
	}
	return nextDaily, JobDaily
}

// nextWeekdayRun finds the next Monday-Friday occurrence of the clock time,
// strictly after now.
func nextWeekdayRun(now time.Time, at config.ClockTime) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	for !candidate.After(now) || !isWeekday(candidate) {
		candidate = candidate.AddDate(0, 0, 1)
		candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	}
	return candidate
}

// nextSundayRun finds the next Sunday occurrence of the clock time, strictly
// after now.
func nextSundayRun(now time.Time, at config.ClockTime) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	for !candidate.After(now) || candidate.Weekday() != time.Sunday {
		candidate = candidate.AddDate(0, 0, 1)
		candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	}
	return candidate
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (b *Bot) runJob(ctx context.Context, job string) {
	start := b.now()

	var err error
	switch job {
	case JobDaily:
		err = b.RunDaily(ctx)
	case JobWeekly:
		err = b.RunWeekly(ctx)
	}

	status := "ok"
	if err != nil {
		status = "error"
		b.logger.Error("job failed", zap.String("job", job), zap.Error(err))
	}
	if b.metrics != nil {
		b.metrics.JobRuns.WithLabelValues(job, status).Inc()
		b.metrics.JobDuration.WithLabelValues(job).Observe(b.now().Sub(start).Seconds())
	}
}

// RunDaily executes the weekday pipeline: refresh quotes, build the context,
// ask the model for a decision, apply the orders and journal everything.
func (b *Bot) RunDaily(ctx context.Context) error {
	asOf := b.today()

	if err := b.collect(ctx); err != nil {
		return err
	}

	mc, err := b.contexts.Build(ctx, asOf)
	if err != nil {
		return errors.Wrap(err, "build market context")
	}

	decision, err := b.llm.GetDecision(ctx, promptbuilder.SystemPrompt, b.prompts.BuildDailyPrompt(mc))
	if err != nil {
		return errors.Wrap(err, "get decision")
	}

	b.logger.Info("decision received",
		zap.String("summary", decision.DailySummary),
		zap.Int("orders", len(decision.Orders)))

	result, err := b.applyAndJournal(ctx, asOf, decision.Orders)
	if err != nil {
		return err
	}

	event := domain.DecisionEvent{
		Timestamp:    b.now().UTC(),
		Job:          JobDaily,
		Model:        b.cfg.Model,
		Summary:      decision.DailySummary,
		Explanation:  decision.Explanation,
		Orders:       decision.Orders,
		PreviousCash: result.PreviousCash,
		NewCash:      result.NewCash,
	}
	if err := b.journal.Save(event); err != nil {
		return errors.Wrap(err, "journal decision")
	}

	return nil
}

// RunWeekly executes the Sunday pipeline: refresh quotes, ask the model for
// a research note, store it, and apply any strategic orders.
func (b *Bot) RunWeekly(ctx context.Context) error {
	asOf := b.today()

	if err := b.collect(ctx); err != nil {
		return err
	}

	mc, err := b.contexts.Build(ctx, asOf)
	if err != nil {
		return errors.Wrap(err, "build market context")
	}

	weekly, err := b.llm.GetWeeklyResearch(ctx, promptbuilder.ResearchSystemPrompt, b.prompts.BuildResearchPrompt(mc))
	if err != nil {
		return errors.Wrap(err, "get weekly research")
	}

	if strings.TrimSpace(weekly.Research) == "" {
		return errors.New("weekly research is empty")
	}
	if err := b.research.Append(asOf, weekly.Research); err != nil {
		return errors.Wrap(err, "store research")
	}

	b.logger.Info("weekly research stored",
		zap.Int("chars", len(weekly.Research)),
		zap.Int("orders", len(weekly.Orders)))

	var result posttrade.Result
	if len(weekly.Orders) > 0 {
		result, err = b.applyAndJournal(ctx, asOf, weekly.Orders)
		if err != nil {
			return err
		}
	}

	event := domain.DecisionEvent{
		Timestamp:    b.now().UTC(),
		Job:          JobWeekly,
		Model:        b.cfg.Model,
		Summary:      summarize(weekly.Research),
		Orders:       weekly.Orders,
		PreviousCash: result.PreviousCash,
		NewCash:      result.NewCash,
	}
	if err := b.journal.Save(event); err != nil {
		return errors.Wrap(err, "journal decision")
	}

	return nil
}

func (b *Bot) collect(ctx context.Context) error {
	tickers, err := b.contexts.Tickers(ctx)
	if err != nil {
		return errors.Wrap(err, "resolve tickers")
	}
	if _, err := b.collector.CollectDaily(ctx, tickers); err != nil {
		return errors.Wrap(err, "collect quotes")
	}
	return nil
}

// applyAndJournal runs the post-trade pipeline and records the executed
// orders. Orders are journaled only after a successful apply so an invalid
// batch leaves no trace.
func (b *Bot) applyAndJournal(ctx context.Context, asOf time.Time, orders []domain.Order) (posttrade.Result, error) {
	result, err := b.posttrade.ApplyOrdersAndPersist(ctx, orders, posttrade.WithAsOfDate(asOf))
	if err != nil {
		return posttrade.Result{}, errors.Wrap(err, "apply orders")
	}

	for _, order := range orders {
		if _, err := b.orders.Append(ctx, asOf, order); err != nil {
			return posttrade.Result{}, errors.Wrap(err, "journal order")
		}
	}

	if b.metrics != nil {
		b.metrics.OrdersExecuted.Add(float64(len(orders)))
		b.metrics.SyncOps.WithLabelValues("inserted").Add(float64(result.PositionSync.Inserted))
		b.metrics.SyncOps.WithLabelValues("updated").Add(float64(result.PositionSync.Updated))
		b.metrics.SyncOps.WithLabelValues("deleted").Add(float64(result.PositionSync.Deleted))
		b.metrics.CashBalance.Set(result.NewCash)
		b.metrics.PositionsHeld.Set(float64(result.PositionsHeld))
	}

	return result, nil
}

// today is the current calendar day in the configured timezone, rendered as
// a UTC midnight so date strings match the market day.
func (b *Bot) today() time.Time {
	local := b.now().In(b.cfg.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func summarize(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		text = text[:idx]
	}
	const maxLen = 300
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return text
}
