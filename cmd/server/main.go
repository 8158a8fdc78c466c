package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/api"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/config"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/costs"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/database"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/engine"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/logging"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/repository"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/service"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/version"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/yahoo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := logging.Setup(cfg.Logging); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	log.Info().Str("path", cfg.Database.Path).Msg("connected to database")

	// Cost schedule: a YAML file when configured, otherwise the built-in one.
	schedule := costs.DefaultSchedule()
	if cfg.Costs.SchedulePath != "" {
		schedule, err = costs.LoadSchedule(cfg.Costs.SchedulePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load cost schedule")
		}
	}
	costModel, err := costs.New(schedule)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid cost schedule")
	}

	executor, err := engine.NewExecutor(costModel, cfg.Game.Venue, engine.Limits{
		MaxQuantity: cfg.Orders.MaxQuantity,
		MaxPrice:    cfg.Orders.MaxPrice,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create trade executor")
	}

	m := metrics.New()

	// Create repositories
	gameRepo := repository.NewGameRepository(db)
	valuationRepo := repository.NewValuationRepository(db)
	priceRepo := repository.NewPriceRepository(db)

	// Create services
	systemService := service.NewSystemService(db)
	marketService := service.NewMarketService(
		priceRepo,
		yahoo.NewFinanceClient(cfg.Market.BaseURL, cfg.Market.Timeout),
		cfg.Market.SymbolSuffix,
		m,
	)
	gameService := service.NewGameService(
		db,
		gameRepo,
		valuationRepo,
		executor,
		costModel,
		marketService,
		m,
		service.GameDefaults{
			InitialCapital: cfg.Game.InitialCapital,
			Currency:       cfg.Game.Currency,
			TotalDays:      cfg.Game.TotalDays,
		},
	)

	var scheduler *service.Scheduler
	if cfg.Market.RefreshSchedule != "" {
		scheduler, err = service.NewScheduler(cfg.Market.RefreshSchedule, gameService, 5*time.Minute)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create mark refresh scheduler")
		}
		scheduler.Start()
	}

	// Create router
	router := api.NewRouter(systemService, gameService, m, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("version", version.Version).
			Str("venue", executor.Venue()).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(ctx)
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
