package server

import (
	"log/slog"
	"net/http"

	"outpost-server/internal/battle"
	battleHandlers "outpost-server/internal/battle/handlers"
	"outpost-server/internal/crafting"
	craftingHandlers "outpost-server/internal/crafting/handlers"
	"outpost-server/internal/population"
	populationHandlers "outpost-server/internal/population/handlers"
	"outpost-server/internal/premium"
	premiumHandlers "outpost-server/internal/premium/handlers"
	serverHandlers "outpost-server/internal/server/handlers"
	"outpost-server/internal/shared/database"
	"outpost-server/internal/spawn"
	spawnHandlers "outpost-server/internal/spawn/handlers"
	"outpost-server/internal/world"
	worldHandlers "outpost-server/internal/world/handlers"
)

type Routes struct {
	db                *database.DB
	populationService *population.Service
	spawnService      *spawn.Service
	battleService     *battle.Service
	premiumService    *premium.Service
	worldService      *world.Service
	craftingService   *crafting.Service
	logger            *slog.Logger
}

func NewRoutes(
	db *database.DB,
	populationService *population.Service,
	spawnService *spawn.Service,
	battleService *battle.Service,
	premiumService *premium.Service,
	worldService *world.Service,
	craftingService *crafting.Service,
	logger *slog.Logger,
) *Routes {
	return &Routes{
		db:                db,
		populationService: populationService,
		spawnService:      spawnService,
		battleService:     battleService,
		premiumService:    premiumService,
		worldService:      worldService,
		craftingService:   craftingService,
		logger:            logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db)
	populationHandler := populationHandlers.NewPopulationHandler(r.populationService)
	spawnHandler := spawnHandlers.NewSpawnHandler(r.spawnService)
	battleHandler := battleHandlers.NewBattleHandler(r.battleService)
	premiumHandler := premiumHandlers.NewPremiumHandler(r.premiumService)
	worldHandler := worldHandlers.NewWorldHandler(r.worldService)
	craftingHandler := craftingHandlers.NewCraftingHandler(r.craftingService)

	mux.Handle("/api/server/health", healthHandler)

	mux.HandleFunc("/api/populations", populationHandler.Register)
	mux.HandleFunc("/api/populations/{id}/spawn-channel", populationHandler.BindSpawnChannel)
	mux.HandleFunc("/api/populations/{id}/world-summary", worldHandler.Summary)
	mux.HandleFunc("/api/populations/{id}/settlements", worldHandler.CreateSettlement)

	mux.HandleFunc("/api/spawns/claim", spawnHandler.Claim)
	mux.HandleFunc("/api/spawns/trigger", spawnHandler.Trigger)

	mux.HandleFunc("/api/battles", battleHandler.Create)
	mux.HandleFunc("/api/battles/recent", battleHandler.Recent)
	mux.HandleFunc("/api/battles/{id}/actions", battleHandler.ResolveAction)
	mux.HandleFunc("/api/battles/{id}/log", battleHandler.GetLog)

	mux.HandleFunc("/api/premium/grants", premiumHandler.Grant)
	mux.HandleFunc("/api/premium/revoke", premiumHandler.Revoke)
	mux.HandleFunc("/api/premium/status", premiumHandler.List)

	mux.HandleFunc("/api/crafting/craft", craftingHandler.Craft)
	mux.HandleFunc("/api/crafting/fuse", craftingHandler.Fuse)
	mux.HandleFunc("/api/crafting/inventory", craftingHandler.Inventory)

	logger.Info("Routes configured successfully",
		"population_endpoints", []string{"/api/populations", "/api/populations/{id}/spawn-channel"},
		"spawn_endpoints", []string{"/api/spawns/claim", "/api/spawns/trigger"},
		"battle_endpoints", []string{"/api/battles", "/api/battles/recent", "/api/battles/{id}/actions", "/api/battles/{id}/log"},
		"premium_endpoints", []string{"/api/premium/grants", "/api/premium/revoke", "/api/premium/status"},
		"world_endpoints", []string{"/api/populations/{id}/world-summary", "/api/populations/{id}/settlements"},
		"crafting_endpoints", []string{"/api/crafting/craft", "/api/crafting/fuse", "/api/crafting/inventory"},
	)

	return mux
}
