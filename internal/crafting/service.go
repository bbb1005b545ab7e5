package crafting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"outpost-server/internal/rng"
	"outpost-server/internal/shared/config"
)

// Store is the persistence surface the service needs. Implemented by
// Repository; tests provide in-memory fakes.
type Store interface {
	CountByActor(ctx context.Context, actorID string) (int, error)
	InsertItem(ctx context.Context, actorID string, artifactID int, shiny bool) (*InventoryItem, error)
	ConsumeForFusion(ctx context.Context, actorID string, artifactID1, artifactID2 int) error
	ListByActor(ctx context.Context, actorID string) ([]InventoryItem, error)
}

// Fused artifact ids are drawn from this range.
const (
	fusedArtifactMin = 100
	fusedArtifactMax = 999
)

type Service struct {
	store  Store
	rand   rng.Source
	cfg    config.CraftingConfig
	logger *slog.Logger
}

func NewService(store Store, src rng.Source, cfg config.CraftingConfig, logger *slog.Logger) *Service {
	logger.Debug("Initializing crafting service")

	return &Service{
		store:  store,
		rand:   src,
		cfg:    cfg,
		logger: logger,
	}
}

// Craft queues one artifact for the actor, bounded by the configured queue
// length.
func (s *Service) Craft(ctx context.Context, actorID string, artifactID int) (*InventoryItem, error) {
	logger := s.logger.With(
		"component", "crafting_service",
		"operation", "craft",
		"actor_id", actorID,
		"artifact_id", artifactID,
	)

	count, err := s.store.CountByActor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check crafting queue: %w", err)
	}
	if count >= s.cfg.QueueMaxLength {
		logger.Debug("Crafting queue full", "count", count)
		return nil, ErrQueueFull
	}

	item, err := s.store.InsertItem(ctx, actorID, artifactID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to craft artifact: %w", err)
	}

	logger.Info("Artifact crafted", "item_id", item.ID)
	return item, nil
}

// Fuse consumes two owned artifacts and produces a new one, rolling the
// shiny and proc chances independently.
func (s *Service) Fuse(ctx context.Context, actorID string, artifactID1, artifactID2 int) (*FusionResult, error) {
	logger := s.logger.With(
		"component", "crafting_service",
		"operation", "fuse",
		"actor_id", actorID,
	)

	if artifactID1 == artifactID2 {
		return nil, ErrInvalidFusion
	}

	shiny := s.rand.Float64() < s.cfg.FusionShinyChance
	proc := s.rand.Float64() < s.cfg.ArtifactProcChance

	if err := s.store.ConsumeForFusion(ctx, actorID, artifactID1, artifactID2); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtifactNotOwned
		}
		return nil, fmt.Errorf("failed to consume fusion artifacts: %w", err)
	}

	fusedID := fusedArtifactMin + s.rand.Intn(fusedArtifactMax-fusedArtifactMin+1)
	item, err := s.store.InsertItem(ctx, actorID, fusedID, shiny)
	if err != nil {
		return nil, fmt.Errorf("failed to create fused artifact: %w", err)
	}

	logger.Info("Fusion complete", "item_id", item.ID, "shiny", shiny, "proc", proc)

	return &FusionResult{
		Item:     item,
		Shiny:    shiny,
		Proc:     proc,
		Consumed: []int{artifactID1, artifactID2},
	}, nil
}

func (s *Service) Inventory(ctx context.Context, actorID string) ([]InventoryItem, error) {
	return s.store.ListByActor(ctx, actorID)
}
