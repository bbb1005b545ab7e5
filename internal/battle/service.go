package battle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"outpost-server/internal/npc"
	"outpost-server/internal/rng"
	"outpost-server/internal/shared/config"
)

// Store is the persistence surface the service needs. Implemented by
// Repository; tests provide in-memory fakes preserving the same atomicity
// semantics.
type Store interface {
	CreateBattle(ctx context.Context, populationID string, kind Kind, challengerID, opponentRef string) (*Battle, error)
	GetBattle(ctx context.Context, id int) (*Battle, error)
	AppendResolution(ctx context.Context, battleID int, actorID string, action Action, outcome Outcome, narrative string, finish bool, at time.Time) (*LogEntry, error)
	GetLog(ctx context.Context, battleID int) ([]LogEntry, error)
	ListRecentByActor(ctx context.Context, actorID string, limit int) ([]Battle, error)
}

type Service struct {
	store   Store
	catalog *npc.Catalog
	rand    rng.Source
	cfg     config.BattleConfig
	now     func() time.Time
	logger  *slog.Logger
}

func NewService(store Store, catalog *npc.Catalog, src rng.Source, cfg config.BattleConfig, logger *slog.Logger) *Service {
	logger.Debug("Initializing battle service")

	return &Service{
		store:   store,
		catalog: catalog,
		rand:    src,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// CreatePvE starts a raid against a randomly selected boss template.
func (s *Service) CreatePvE(ctx context.Context, populationID, challengerID string) (*Battle, error) {
	logger := s.logger.With(
		"component", "battle_service",
		"operation", "create_pve",
		"population_id", populationID,
		"challenger_id", challengerID,
	)

	boss, err := s.catalog.PickBoss(ctx, s.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to pick boss: %w", err)
	}
	if boss == nil {
		return nil, ErrNoBossAvailable
	}

	battle, err := s.store.CreateBattle(ctx, populationID, KindPvE, challengerID, fmt.Sprintf("npc:%d", boss.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to create pve battle: %w", err)
	}

	logger.Info("PvE battle started", "battle_id", battle.ID, "boss", boss.Name)
	return battle, nil
}

// CreatePvP starts a battle against another actor. Self-challenges are
// rejected.
func (s *Service) CreatePvP(ctx context.Context, populationID, challengerID, opponentID string) (*Battle, error) {
	logger := s.logger.With(
		"component", "battle_service",
		"operation", "create_pvp",
		"population_id", populationID,
		"challenger_id", challengerID,
		"opponent_id", opponentID,
	)

	if opponentID == "" || opponentID == challengerID {
		return nil, ErrInvalidTarget
	}

	battle, err := s.store.CreateBattle(ctx, populationID, KindPvP, challengerID, opponentID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pvp battle: %w", err)
	}

	logger.Info("PvP battle started", "battle_id", battle.ID)
	return battle, nil
}

// ResolveAction resolves one action against the battle's current state. The
// outcome draw is the only non-deterministic step; the append and the
// possible finish transition are atomic in the store.
func (s *Service) ResolveAction(ctx context.Context, battleID int, actorID string, action Action) (*LogEntry, error) {
	logger := s.logger.With(
		"component", "battle_service",
		"operation", "resolve_action",
		"battle_id", battleID,
		"actor_id", actorID,
		"action", action,
	)

	if !action.IsValid() {
		return nil, ErrInvalidAction
	}

	outcome := OutcomeContinue
	if s.rand.Float64() < s.cfg.WinChance {
		outcome = OutcomeWin
	}

	var narrative string
	if outcome == OutcomeWin {
		narrative = fmt.Sprintf("%s performed %s and won the battle!", actorID, action)
	} else {
		narrative = fmt.Sprintf("%s performed %s. The battle continues...", actorID, action)
	}

	entry, err := s.store.AppendResolution(ctx, battleID, actorID, action, outcome, narrative, outcome == OutcomeWin, s.now())
	if err != nil {
		return nil, err
	}

	logger.Info("Action resolved", "sequence_index", entry.SequenceIndex, "outcome", outcome)
	return entry, nil
}

func (s *Service) Get(ctx context.Context, battleID int) (*Battle, error) {
	battle, err := s.store.GetBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if battle == nil {
		return nil, ErrBattleNotFound
	}
	return battle, nil
}

func (s *Service) GetLog(ctx context.Context, battleID int) ([]LogEntry, error) {
	return s.store.GetLog(ctx, battleID)
}

func (s *Service) RecentByActor(ctx context.Context, actorID string, limit int) ([]Battle, error) {
	if limit <= 0 || limit > 50 {
		limit = 6
	}
	return s.store.ListRecentByActor(ctx, actorID, limit)
}
