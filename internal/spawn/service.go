package spawn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"outpost-server/internal/notify"
	"outpost-server/internal/npc"
	"outpost-server/internal/population"
	"outpost-server/internal/rng"
	"outpost-server/internal/shared/config"
)

// Store is the persistence surface the service needs. Implemented by
// Repository; tests provide in-memory fakes.
type Store interface {
	InsertEvent(ctx context.Context, populationID, channelRef, kind string, candidateIDs []int, triggeredBy *string, expiresAt time.Time) (*Event, error)
	ActiveByChannel(ctx context.Context, channelRef string, now time.Time) (*Event, error)
	TryClaim(ctx context.Context, eventID int, actorID string, slot int, at time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	store       Store
	cooldowns   CooldownStore
	populations *population.Service
	catalog     *npc.Catalog
	sink        notify.Sink
	rand        rng.Source
	cfg         config.SpawnConfig
	now         func() time.Time
	logger      *slog.Logger
}

func NewService(store Store, cooldowns CooldownStore, populations *population.Service, catalog *npc.Catalog, sink notify.Sink, src rng.Source, cfg config.SpawnConfig, logger *slog.Logger) *Service {
	logger.Debug("Initializing spawn service")

	return &Service{
		store:       store,
		cooldowns:   cooldowns,
		populations: populations,
		catalog:     catalog,
		sink:        sink,
		rand:        src,
		cfg:         cfg,
		now:         time.Now,
		logger:      logger,
	}
}

// Tick runs one spawn pass over every population unit. A failure in one unit
// never aborts the remaining units.
func (s *Service) Tick(ctx context.Context) error {
	logger := s.logger.With("component", "spawn_service", "operation", "tick")

	populations, err := s.populations.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list populations: %w", err)
	}

	for i := range populations {
		pop := &populations[i]
		if err := s.trySpawn(ctx, pop); err != nil {
			logger.Error("Spawn attempt failed for population", "population_id", pop.ID, "error", err)
		}
	}

	return nil
}

// trySpawn independently samples one Bernoulli trial for the population and,
// on success, creates a spawn event and announces it.
func (s *Service) trySpawn(ctx context.Context, pop *population.Population) error {
	logger := s.logger.With("component", "spawn_service", "operation", "try_spawn", "population_id", pop.ID)

	channelRef := s.populations.ResolveBroadcastChannel(pop)
	if channelRef == "" {
		logger.Debug("No broadcast channel resolvable, skipping spawn")
		return nil
	}

	if s.rand.Float64() > s.cfg.BaseRate {
		return nil
	}

	count := s.cfg.MinCandidates
	if spread := s.cfg.MaxCandidates - s.cfg.MinCandidates; spread > 0 {
		count += s.rand.Intn(spread + 1)
	}

	candidates, err := s.catalog.PickSpawnCandidates(ctx, s.rand, count)
	if err != nil {
		return fmt.Errorf("failed to pick spawn candidates: %w", err)
	}
	if len(candidates) == 0 {
		logger.Debug("Spawn pool empty, skipping spawn")
		return nil
	}

	candidateIDs := make([]int, len(candidates))
	for i, c := range candidates {
		candidateIDs[i] = c.ID
	}

	expiresAt := s.now().Add(s.cfg.Window)
	event, err := s.store.InsertEvent(ctx, pop.ID, channelRef, "spawn", candidateIDs, nil, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to create spawn event: %w", err)
	}

	s.announce(ctx, event, candidates)
	return nil
}

// TriggerSpawn creates a spawn on demand (e.g. a lure item). The triggering
// actor is recorded and barred from claiming it by the fairness rule.
func (s *Service) TriggerSpawn(ctx context.Context, populationID, actorID string) (*Event, error) {
	logger := s.logger.With(
		"component", "spawn_service",
		"operation", "trigger_spawn",
		"population_id", populationID,
		"actor_id", actorID,
	)

	pop, err := s.populations.Get(ctx, populationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load population: %w", err)
	}
	if pop == nil {
		return nil, population.ErrPopulationNotFound
	}

	channelRef := s.populations.ResolveBroadcastChannel(pop)
	if channelRef == "" {
		logger.Debug("No broadcast channel resolvable for triggered spawn")
		return nil, ErrNoActiveSpawn
	}

	candidates, err := s.catalog.PickSpawnCandidates(ctx, s.rand, s.cfg.MinCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to pick spawn candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoActiveSpawn
	}

	candidateIDs := make([]int, len(candidates))
	for i, c := range candidates {
		candidateIDs[i] = c.ID
	}

	expiresAt := s.now().Add(s.cfg.Window)
	event, err := s.store.InsertEvent(ctx, pop.ID, channelRef, "triggered", candidateIDs, &actorID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create triggered spawn: %w", err)
	}

	logger.Info("Triggered spawn created", "spawn_id", event.ID)
	s.announce(ctx, event, candidates)
	return event, nil
}

// Claim attempts to claim the active spawn on the channel for the actor. At
// most one claim succeeds per event, even under concurrent calls.
func (s *Service) Claim(ctx context.Context, actorID, channelRef string, slot int) (*Event, error) {
	logger := s.logger.With(
		"component", "spawn_service",
		"operation", "claim",
		"actor_id", actorID,
		"channel_ref", channelRef,
	)

	now := s.now()

	limited, err := s.cooldowns.TouchAttempt(ctx, actorID, now, s.cfg.ClaimCooldown)
	if err != nil {
		return nil, fmt.Errorf("failed to check claim cooldown: %w", err)
	}
	if limited {
		logger.Debug("Claim rejected by cooldown")
		return nil, ErrRateLimited
	}

	event, err := s.store.ActiveByChannel(ctx, channelRef, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find active spawn: %w", err)
	}
	if event == nil {
		return nil, ErrNoActiveSpawn
	}

	// Anti-snipe: the actor that caused the spawn cannot claim it.
	if event.TriggeredBy != nil && *event.TriggeredBy == actorID {
		logger.Debug("Claim rejected by fairness rule", "spawn_id", event.ID)
		return nil, ErrFairnessViolation
	}

	// The conditional update is the arbiter; the read above was only a
	// pre-check and may already be stale.
	claimed, err := s.store.TryClaim(ctx, event.ID, actorID, slot, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim spawn: %w", err)
	}
	if !claimed {
		logger.Debug("Claim lost the race", "spawn_id", event.ID)
		return nil, ErrAlreadyClaimed
	}

	event.ClaimedBy = &actorID
	event.ClaimSlot = &slot
	event.ClaimTime = &now

	logger.Info("Spawn claimed", "spawn_id", event.ID, "slot", slot)
	return event, nil
}

// CleanupExpired removes every spawn past its expiry.
func (s *Service) CleanupExpired(ctx context.Context) error {
	logger := s.logger.With("component", "spawn_service", "operation", "cleanup_expired")

	deleted, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to clean up expired spawns: %w", err)
	}

	if deleted > 0 {
		logger.Info("Expired spawns cleaned up", "count", deleted)
	}
	return nil
}

func (s *Service) announce(ctx context.Context, event *Event, candidates []npc.Template) {
	logger := s.logger.With("component", "spawn_service", "operation", "announce", "spawn_id", event.ID)

	message := fmt.Sprintf("A wild encounter appeared! %d candidate(s), claim before %s.",
		len(candidates), event.ExpiresAt.UTC().Format(time.RFC3339))

	if err := s.sink.Broadcast(ctx, event.ChannelRef, message); err != nil {
		// Delivery is best-effort; the spawn row already exists.
		logger.Warn("Failed to announce spawn", "error", err)
	}
}
