package world

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"outpost-server/internal/notify"
	"outpost-server/internal/population"
	"outpost-server/internal/rng"
	"outpost-server/internal/shared/config"
)

// Store is the persistence surface the service needs. Implemented by
// Repository; tests provide in-memory fakes.
type Store interface {
	ListSettlements(ctx context.Context) ([]Settlement, error)
	ListSettlementsByPopulation(ctx context.Context, populationID string) ([]Settlement, error)
	UpdateResources(ctx context.Context, id int, resources map[string]int) error
	InsertSettlement(ctx context.Context, populationID, name string, level int) (*Settlement, error)
	ListActiveNPCs(ctx context.Context) ([]NPC, error)
	UpdateNPCJob(ctx context.Context, id int, job string, migratedAt time.Time) error
	ConvertToCollectible(ctx context.Context, id int) (bool, error)
}

type Service struct {
	store       Store
	populations *population.Service
	sink        notify.Sink
	rand        rng.Source
	cfg         config.WorldConfig
	now         func() time.Time
	logger      *slog.Logger
}

func NewService(store Store, populations *population.Service, sink notify.Sink, src rng.Source, cfg config.WorldConfig, logger *slog.Logger) *Service {
	logger.Debug("Initializing world service")

	return &Service{
		store:       store,
		populations: populations,
		sink:        sink,
		rand:        src,
		cfg:         cfg,
		now:         time.Now,
		logger:      logger,
	}
}

// Tick advances the slow-moving world state once: settlement resources, NPC
// drift, then the per-population summary broadcast. A failure in one phase
// is logged and the remaining phases still run.
func (s *Service) Tick(ctx context.Context) error {
	logger := s.logger.With("component", "world_service", "operation", "tick")

	if err := s.advanceSettlements(ctx); err != nil {
		logger.Error("Settlement phase failed", "error", err)
	}

	if err := s.advanceNPCs(ctx); err != nil {
		logger.Error("NPC phase failed", "error", err)
	}

	if err := s.broadcastSummaries(ctx); err != nil {
		logger.Error("Summary phase failed", "error", err)
	}

	return nil
}

func (s *Service) advanceSettlements(ctx context.Context) error {
	logger := s.logger.With("component", "world_service", "operation", "advance_settlements")

	settlements, err := s.store.ListSettlements(ctx)
	if err != nil {
		return fmt.Errorf("failed to list settlements: %w", err)
	}

	for i := range settlements {
		settlement := &settlements[i]
		if settlement.Resources == nil {
			settlement.Resources = make(map[string]int)
		}
		for resource, delta := range s.cfg.ResourceDeltas {
			settlement.Resources[resource] += delta
		}

		if err := s.store.UpdateResources(ctx, settlement.ID, settlement.Resources); err != nil {
			logger.Error("Failed to update settlement resources", "settlement_id", settlement.ID, "error", err)
		}
	}

	logger.Debug("Settlements advanced", "count", len(settlements))
	return nil
}

func (s *Service) advanceNPCs(ctx context.Context) error {
	logger := s.logger.With("component", "world_service", "operation", "advance_npcs")

	npcs, err := s.store.ListActiveNPCs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active npcs: %w", err)
	}

	now := s.now()
	for i := range npcs {
		npc := &npcs[i]

		if s.rand.Float64() < s.cfg.JobFlipChance {
			job := JobScout
			if npc.Job == JobScout {
				job = JobWorker
			}
			if err := s.store.UpdateNPCJob(ctx, npc.ID, job, now); err != nil {
				logger.Error("Failed to flip npc job", "npc_id", npc.ID, "error", err)
			}
		}

		if !npc.ConvertedToCollectible && s.rand.Float64() < s.cfg.CollectibleChance {
			converted, err := s.store.ConvertToCollectible(ctx, npc.ID)
			if err != nil {
				logger.Error("Failed to convert npc", "npc_id", npc.ID, "error", err)
			} else if converted {
				logger.Info("NPC converted to collectible", "npc_id", npc.ID)
			}
		}
	}

	logger.Debug("NPCs advanced", "count", len(npcs))
	return nil
}

func (s *Service) broadcastSummaries(ctx context.Context) error {
	logger := s.logger.With("component", "world_service", "operation", "broadcast_summaries")

	populations, err := s.populations.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list populations: %w", err)
	}

	for i := range populations {
		pop := &populations[i]

		channelRef := s.populations.ResolveBroadcastChannel(pop)
		if channelRef == "" {
			continue
		}

		settlements, err := s.store.ListSettlementsByPopulation(ctx, pop.ID)
		if err != nil {
			logger.Error("Failed to list settlements for summary", "population_id", pop.ID, "error", err)
			continue
		}
		if len(settlements) == 0 {
			continue
		}

		if err := s.sink.Broadcast(ctx, channelRef, SummaryMessage(settlements)); err != nil {
			logger.Warn("Failed to broadcast world summary", "population_id", pop.ID, "error", err)
		}
	}

	return nil
}

// Summary returns the settlements for one population, for the on-demand
// summary endpoint.
func (s *Service) Summary(ctx context.Context, populationID string) ([]Settlement, error) {
	return s.store.ListSettlementsByPopulation(ctx, populationID)
}

func (s *Service) CreateSettlement(ctx context.Context, populationID, name string, level int) (*Settlement, error) {
	if level < 1 {
		level = 1
	}
	return s.store.InsertSettlement(ctx, populationID, name, level)
}

// SummaryMessage renders the broadcast line for a population's settlements.
func SummaryMessage(settlements []Settlement) string {
	names := make([]string, len(settlements))
	for i, s := range settlements {
		names[i] = fmt.Sprintf("%s (lvl %d)", s.Name, s.Level)
	}
	sort.Strings(names)
	return "World tick: " + strings.Join(names, ", ")
}
