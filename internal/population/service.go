package population

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// Store is the persistence surface the service needs. Implemented by
// Repository; tests provide in-memory fakes.
type Store interface {
	GetPopulation(ctx context.Context, id string) (*Population, error)
	ListPopulations(ctx context.Context) ([]Population, error)
	UpsertPopulation(ctx context.Context, id, name string) (*Population, error)
	SetBroadcastChannel(ctx context.Context, id, channelRef string) error
}

type Service struct {
	store          Store
	defaultChannel string
	logger         *slog.Logger
}

func NewService(store Store, defaultChannel string, logger *slog.Logger) *Service {
	logger.Debug("Initializing population service")

	return &Service{
		store:          store,
		defaultChannel: defaultChannel,
		logger:         logger,
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Population, error) {
	return s.store.GetPopulation(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Population, error) {
	return s.store.ListPopulations(ctx)
}

func (s *Service) Register(ctx context.Context, id, name string) (*Population, error) {
	return s.store.UpsertPopulation(ctx, id, name)
}

// BindSpawnChannel sets the channel spawns and world summaries are announced
// on for the given population.
func (s *Service) BindSpawnChannel(ctx context.Context, populationID, channelRef string) error {
	logger := s.logger.With(
		"component", "population_service",
		"operation", "bind_spawn_channel",
		"population_id", populationID,
	)

	err := s.store.SetBroadcastChannel(ctx, populationID, channelRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPopulationNotFound
		}
		logger.Error("Failed to bind spawn channel", "error", err)
		return fmt.Errorf("failed to bind spawn channel: %w", err)
	}

	logger.Info("Spawn channel bound", "channel_ref", channelRef)
	return nil
}

// ResolveBroadcastChannel returns the channel announcements for pop should be
// delivered to: the bound broadcast channel, then the population's system
// channel, then the process-wide default. Empty means unresolvable.
func (s *Service) ResolveBroadcastChannel(pop *Population) string {
	if pop != nil {
		if pop.BroadcastChannel != nil && *pop.BroadcastChannel != "" {
			return *pop.BroadcastChannel
		}
		if pop.SystemChannel != nil && *pop.SystemChannel != "" {
			return *pop.SystemChannel
		}
	}
	return s.defaultChannel
}
