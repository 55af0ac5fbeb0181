package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mosaicfin/mosaic/internal/clients/fundapi"
	"github.com/mosaicfin/mosaic/internal/config"
	"github.com/mosaicfin/mosaic/internal/database"
	"github.com/mosaicfin/mosaic/internal/events"
	"github.com/mosaicfin/mosaic/internal/modules/allocation"
	"github.com/mosaicfin/mosaic/internal/modules/diagnosis"
	"github.com/mosaicfin/mosaic/internal/modules/funds"
	"github.com/mosaicfin/mosaic/internal/modules/household"
	"github.com/mosaicfin/mosaic/internal/modules/portfolio"
	"github.com/mosaicfin/mosaic/internal/modules/position"
	"github.com/mosaicfin/mosaic/internal/modules/prefs"
	"github.com/mosaicfin/mosaic/internal/modules/reminders"
	"github.com/mosaicfin/mosaic/internal/scheduler"
	"github.com/mosaicfin/mosaic/internal/server"
	"github.com/mosaicfin/mosaic/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Logger not up yet.
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Mosaic")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	eventManager := events.NewManager(log)

	// Repositories
	householdRepo := household.NewRepository(db.Conn(), log)
	fundsRepo := funds.NewRepository(db.Conn(), log)
	snapshotRepo := portfolio.NewSnapshotRepository(db.Conn(), log)
	positionRepo := position.NewRepository(db.Conn(), log)
	prefsRepo := prefs.NewRepository(db.Conn(), log)

	// Services
	fundClient := fundapi.NewClient(cfg.FundAPIBaseURL, log)
	fundsService := funds.NewService(fundsRepo, fundClient, eventManager, log)
	batch := funds.NewBatchRefresher(fundsService, eventManager, cfg.RefreshConcurrency, log)
	portfolioService := portfolio.NewService(householdRepo, fundsRepo, snapshotRepo, eventManager, log)
	allocationService := allocation.NewService(householdRepo, fundsRepo, log)
	registry := position.NewRegistry(
		position.NewSimpleStrategy(),
		position.NewAssetRebalanceStrategy(nil),
	)
	positionService := position.NewService(positionRepo, householdRepo, fundsRepo, registry, eventManager, log)
	reportStore := diagnosis.NewFileStore(cfg.DiagnosisReportPath, log)
	remindersService := reminders.NewService(householdRepo, positionService, log)

	// A refresh changes valuations, so roll today's snapshot forward.
	batch.OnComplete(func() {
		if err := portfolioService.WriteDailySnapshot(); err != nil {
			log.Error().Err(err).Msg("Failed to write snapshot after refresh")
		}
	})

	// Scheduler and background jobs
	sched := scheduler.New(log)
	navRefreshJob := scheduler.NewNavRefreshJob(batch, householdRepo, fundsService, log)
	snapshotJob := scheduler.NewSnapshotJob(portfolioService, log)
	if err := sched.AddJob(cfg.NavRefreshSchedule, navRefreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register NAV refresh job")
	}
	if err := sched.AddJob(cfg.SnapshotSchedule, snapshotJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register snapshot job")
	}
	sched.Start()
	defer sched.Stop()

	systemHandlers := server.NewSystemHandlers(log, cfg.DataDir(), db, sched)
	systemHandlers.SetJobs(navRefreshJob, snapshotJob)

	// HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DB:      db,
		Config:  cfg,
		DevMode: cfg.DevMode,
		Modules: []server.ModuleRoutes{
			household.NewHandler(householdRepo, log),
			funds.NewHandler(fundsService, batch, householdRepo, log),
			portfolio.NewHandler(portfolioService, log),
			allocation.NewHandler(allocationService, log),
			position.NewHandler(positionService, log),
			diagnosis.NewHandler(reportStore, log),
			prefs.NewHandler(prefsRepo, log),
			reminders.NewHandler(remindersService, log),
		},
		System: systemHandlers,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
