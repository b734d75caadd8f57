package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foliotrader/folio/internal/config"
	"github.com/foliotrader/folio/internal/database"
	"github.com/foliotrader/folio/internal/domain"
	"github.com/foliotrader/folio/internal/modules/currency"
	"github.com/foliotrader/folio/internal/modules/dividends"
	"github.com/foliotrader/folio/internal/modules/optimization"
	"github.com/foliotrader/folio/internal/modules/orders"
	"github.com/foliotrader/folio/internal/modules/portfolio"
	"github.com/foliotrader/folio/internal/modules/rebalancing"
	"github.com/foliotrader/folio/internal/modules/simulation"
	"github.com/foliotrader/folio/internal/modules/universe"
	"github.com/foliotrader/folio/internal/scheduler"
	"github.com/foliotrader/folio/internal/server"
	"github.com/foliotrader/folio/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New(logger.Config{
		Level:  "info",
		Pretty: true,
	})

	log.Info().Msg("Starting Folio")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Price history lives in per-symbol databases next to the main one.
	historyDB := universe.NewHistoryDB(cfg.HistoryDir, log)

	// Repositories
	orderRepo := orders.NewRepository(db.Conn(), log)
	universeRepo := universe.NewRepository(db.Conn(), log)
	dividendRepo := dividends.NewRepository(db.Conn(), log)
	snapshotRepo := portfolio.NewSnapshotRepository(db.Conn(), log)
	rateRepo := currency.NewRepository(db.Conn(), log)

	converter := currency.NewConverter(domain.Currency(cfg.BaseCurrency), rateRepo, log)

	// Services
	portfolioService := portfolio.NewService(orderRepo, universeRepo, historyDB, converter, log)

	inputsBuilder := optimization.NewInputsBuilder(historyDB, universeRepo, converter, log)
	optimizer := optimization.NewOptimizer(log)
	optimizationService := optimization.NewService(inputsBuilder, optimizer, cfg.RiskFreeRate, log)

	simulator := simulation.NewSimulator(log)
	simulationService := simulation.NewService(optimizationService, simulator, cfg.MaxSimPaths, log)

	analyzer := rebalancing.NewAnalyzer(log)
	rebalancingService := rebalancing.NewService(optimizationService, analyzer, log)

	dividendService := dividends.NewService(dividendRepo, historyDB, converter, log)

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	// Register background jobs
	snapshotJob := scheduler.NewSnapshotJob(portfolioService, snapshotRepo, log)
	if err := sched.AddJob(cfg.SnapshotCron, snapshotJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:        cfg.Port,
		Log:         log,
		DevMode:     cfg.DevMode,
		Scheduler:   sched,
		SnapshotJob: snapshotJob,
		Handlers: server.Handlers{
			Portfolio:    portfolio.NewHandler(portfolioService, snapshotRepo, log),
			Orders:       orders.NewHandler(orderRepo, log),
			Universe:     universe.NewHandler(universeRepo, historyDB, cfg.RiskFreeRate, log),
			Optimization: optimization.NewHandler(optimizationService, log),
			Simulation:   simulation.NewHandler(simulationService, log),
			Rebalancing:  rebalancing.NewHandler(rebalancingService, log),
			Dividends:    dividends.NewHandler(dividendRepo, dividendService, universeRepo, log),
			Currency:     currency.NewHandler(rateRepo, log),
		},
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
