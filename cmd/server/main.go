package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outpost-server/internal/battle"
	"outpost-server/internal/crafting"
	"outpost-server/internal/middleware"
	"outpost-server/internal/notify"
	"outpost-server/internal/npc"
	"outpost-server/internal/population"
	"outpost-server/internal/premium"
	"outpost-server/internal/rng"
	"outpost-server/internal/scheduler"
	"outpost-server/internal/server"
	"outpost-server/internal/shared/config"
	"outpost-server/internal/shared/database"
	"outpost-server/internal/shared/logger"
	"outpost-server/internal/shared/redis"
	"outpost-server/internal/spawn"
	"outpost-server/internal/world"
)

func main() {
	if err := config.Init(); err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	cfg := config.GlobalConfig

	logger.Init()
	mainLogger := slog.With("component", "main")

	db, err := database.Connect()
	if err != nil {
		mainLogger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		mainLogger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.Connect()
	if err != nil {
		mainLogger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	src, err := rng.New()
	if err != nil {
		mainLogger.Error("Failed to seed random source", "error", err)
		os.Exit(1)
	}

	var sink notify.Sink = notify.NopSink{}
	if cfg.Notify.WebhookURL != "" {
		sink = notify.NewWebhookSink(cfg.Notify.WebhookURL, cfg.Notify.DeliveryTimeout)
	}

	var cooldowns spawn.CooldownStore
	if redisClient != nil {
		cooldowns = spawn.NewRedisCooldowns(redisClient.Client)
	} else {
		memCooldowns := spawn.NewMemoryCooldowns(cfg.Scheduler.SpawnCleanupInterval)
		defer memCooldowns.Close()
		cooldowns = memCooldowns
	}

	populationRepo := population.NewRepository(db.DB)
	npcRepo := npc.NewRepository(db.DB)
	spawnRepo := spawn.NewRepository(db.DB)
	battleRepo := battle.NewRepository(db.DB)
	premiumRepo := premium.NewRepository(db.DB)
	worldRepo := world.NewRepository(db.DB)
	craftingRepo := crafting.NewRepository(db.DB)

	populationService := population.NewService(populationRepo, cfg.Notify.DefaultChannel, slog.Default())
	catalog := npc.NewCatalog(npcRepo, cfg.Spawn.RarityWeights, slog.Default())
	spawnService := spawn.NewService(spawnRepo, cooldowns, populationService, catalog, sink, src, cfg.Spawn, slog.Default())
	battleService := battle.NewService(battleRepo, catalog, src, cfg.Battle, slog.Default())
	premiumService := premium.NewService(premiumRepo, sink, slog.Default())
	worldService := world.NewService(worldRepo, populationService, sink, src, cfg.World, slog.Default())
	craftingService := crafting.NewService(craftingRepo, src, cfg.Crafting, slog.Default())

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := catalog.SeedDefaults(seedCtx); err != nil {
		cancelSeed()
		mainLogger.Error("Failed to seed npc catalog", "error", err)
		os.Exit(1)
	}
	cancelSeed()

	routes := server.NewRoutes(
		db,
		populationService,
		spawnService,
		battleService,
		premiumService,
		worldService,
		craftingService,
		slog.Default(),
	)
	mux := routes.Setup()

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Enabled:           cfg.RateLimit.Enabled,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		TrustProxy:        cfg.Server.Environment == "production",
	})
	corsMiddleware := middleware.NewCORS()

	handler := corsMiddleware.Middleware(rateLimiter.Middleware(mux))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Periodic tasks hold off until the server is accepting requests.
	ready := make(chan struct{})

	sched := scheduler.New(ready,
		scheduler.Task{
			Name:     "world_tick",
			Interval: cfg.Scheduler.WorldTickInterval,
			Run:      worldService.Tick,
		},
		scheduler.Task{
			Name:     "spawn_tick",
			Interval: cfg.Scheduler.SpawnTickInterval,
			Run:      spawnService.Tick,
		},
		scheduler.Task{
			Name:     "premium_tick",
			Interval: cfg.Scheduler.PremiumTickInterval,
			Run:      premiumService.Tick,
		},
		scheduler.Task{
			Name:     "spawn_cleanup",
			Interval: cfg.Scheduler.SpawnCleanupInterval,
			Run:      spawnService.CleanupExpired,
		},
	)
	sched.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		mainLogger.Info("Server starting",
			"port", cfg.Server.Port,
			"environment", cfg.Server.Environment,
		)
		close(ready)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		mainLogger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.Error("Server shutdown failed", "error", err)
	}

	stop()
	sched.Wait()

	mainLogger.Info("Server stopped")
}
