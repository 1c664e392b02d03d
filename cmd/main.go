// Command folio runs the AI-driven portfolio manager: a weekday rebalancing
// job and a Sunday research job over a sqlite-backed ledger, with a web
// dashboard streaming decisions.
//
// Usage:
//
//	folio --config config.yaml
//	folio --run-now weekday   (run the rebalance job now, then keep scheduling)
//	folio --run-now sunday    (run the research job now, then keep scheduling)
//	folio --setup             (interactive configuration wizard)
//
// The LLM API key is read from the config file or the FOLIO_LLM_API_KEY
// environment variable.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal/app"
	"github.com/vadiminshakov/folio/internal/clients"
	"github.com/vadiminshakov/folio/internal/metrics"
	"github.com/vadiminshakov/folio/internal/services/collector"
	"github.com/vadiminshakov/folio/internal/services/contextbuilder"
	"github.com/vadiminshakov/folio/internal/services/posttrade"
	"github.com/vadiminshakov/folio/internal/services/reconciler"
	"github.com/vadiminshakov/folio/internal/setup"
	"github.com/vadiminshakov/folio/internal/storage"
	"github.com/vadiminshakov/folio/internal/storage/cash"
	"github.com/vadiminshakov/folio/internal/storage/decisions"
	"github.com/vadiminshakov/folio/internal/storage/orders"
	"github.com/vadiminshakov/folio/internal/storage/positions"
	"github.com/vadiminshakov/folio/internal/storage/quotes"
	"github.com/vadiminshakov/folio/internal/storage/research"
	"github.com/vadiminshakov/folio/internal/web"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Setup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	positionStore, err := positions.NewStore(db)
	if err != nil {
		logger.Fatal("init positions store", zap.Error(err))
	}
	cashStore, err := cash.NewStore(db)
	if err != nil {
		logger.Fatal("init cash store", zap.Error(err))
	}
	orderStore, err := orders.NewStore(db)
	if err != nil {
		logger.Fatal("init orders store", zap.Error(err))
	}
	quoteStore, err := quotes.NewStore(db)
	if err != nil {
		logger.Fatal("init quotes store", zap.Error(err))
	}

	decisionJournal, err := decisions.NewWALStore(cfg.WALDir)
	if err != nil {
		logger.Fatal("init decision journal", zap.Error(err))
	}
	defer decisionJournal.Close()

	researchStore := research.NewStore(cfg.ResearchPath)

	m := metrics.Default()

	quoteClient := clients.NewStooqClient()
	llmClient := clients.NewOpenAICompatibleClient(cfg.LLMAPIURL, cfg.LLMAPIKey, cfg.Model)

	quoteCollector := collector.New(quoteClient, quoteStore, logger.Named("collector"))
	contexts := contextbuilder.New(positionStore, quoteStore, cashStore, orderStore, researchStore, cfg.Watchlist, logger.Named("context"))

	positionSyncer := reconciler.New(positionStore, logger.Named("reconciler"))
	postTrade := posttrade.New(positionStore, positionSyncer, cashStore, logger.Named("posttrade"))

	bot := app.NewBot(cfg, quoteCollector, contexts, llmClient, postTrade,
		orderStore, decisionJournal, researchStore, m, logger.Named("bot"))

	if job := runNowJob(cfg.RunNow); job != "" {
		if err := bot.RunOnce(ctx, job); err != nil {
			logger.Error("immediate run failed", zap.String("job", job), zap.Error(err))
		}
	}

	webServer := web.NewServer(cfg.WebAddr, positionStore, cashStore, decisionJournal, logger.Named("web"))
	go func() {
		if err := webServer.Start(ctx); err != nil {
			logger.Error("web server stopped", zap.Error(err))
		}
	}()
	logger.Info("web server listening", zap.String("addr", cfg.WebAddr))

	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("scheduler failed", zap.Error(err))
	}
}

func runNowJob(value string) string {
	switch value {
	case "weekday":
		return app.JobDaily
	case "sunday":
		return app.JobWeekly
	}
	return ""
}
