package battle

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	logger := slog.With("component", "battle_repository", "operation", "init")
	logger.Debug("Initializing battle repository")
	return &Repository{db: db}
}

func (r *Repository) CreateBattle(ctx context.Context, populationID string, kind Kind, challengerID, opponentRef string) (*Battle, error) {
	logger := slog.With(
		"component", "battle_repository",
		"operation", "create",
		"population_id", populationID,
		"kind", kind,
	)
	logger.Info("Creating battle")

	query := `
		INSERT INTO battles (population_id, kind, challenger_id, opponent_ref, status)
		VALUES ($1, $2, $3, $4, 'active')
		RETURNING id, population_id, kind, challenger_id, opponent_ref, status, started_at, finished_at
	`

	var b Battle
	err := r.db.QueryRowContext(ctx, query, populationID, kind.String(), challengerID, opponentRef).Scan(
		&b.ID, &b.PopulationID, &b.Kind, &b.ChallengerID, &b.OpponentRef, &b.Status, &b.StartedAt, &b.FinishedAt,
	)
	if err != nil {
		logger.Error("Failed to create battle", "error", err)
		return nil, fmt.Errorf("failed to create battle: %w", err)
	}

	logger.Info("Battle created", "battle_id", b.ID)
	return &b, nil
}

func (r *Repository) GetBattle(ctx context.Context, id int) (*Battle, error) {
	logger := slog.With("component", "battle_repository", "operation", "get", "battle_id", id)

	query := `
		SELECT id, population_id, kind, challenger_id, opponent_ref, status, started_at, finished_at
		FROM battles
		WHERE id = $1
	`

	var b Battle
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.PopulationID, &b.Kind, &b.ChallengerID, &b.OpponentRef, &b.Status, &b.StartedAt, &b.FinishedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No battle found with ID")
			return nil, nil
		}
		logger.Error("Database error getting battle", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &b, nil
}

// AppendResolution atomically appends one log entry and, when finish is set,
// transitions the battle to finished. The whole read-append-transition runs
// in a single transaction holding a row lock on the battle, so two
// simultaneous actions cannot both observe an active battle: the second
// serializes behind the first and fails with ErrBattleNotActive once the
// first one finished it.
func (r *Repository) AppendResolution(ctx context.Context, battleID int, actorID string, action Action, outcome Outcome, narrative string, finish bool, at time.Time) (*LogEntry, error) {
	logger := slog.With(
		"component", "battle_repository",
		"operation", "append_resolution",
		"battle_id", battleID,
		"actor_id", actorID,
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status Status
	err = tx.QueryRowContext(ctx, "SELECT status FROM battles WHERE id = $1 FOR UPDATE", battleID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBattleNotFound
		}
		logger.Error("Failed to lock battle row", "error", err)
		return nil, fmt.Errorf("failed to lock battle row: %w", err)
	}

	if status != StatusActive {
		logger.Debug("Battle is not active", "status", status)
		return nil, ErrBattleNotActive
	}

	insert := `
		INSERT INTO battle_log (battle_id, sequence_index, actor_id, action, outcome, narrative)
		SELECT $1, COALESCE(MAX(sequence_index) + 1, 0), $2, $3, $4, $5
		FROM battle_log
		WHERE battle_id = $1
		RETURNING battle_id, sequence_index, actor_id, action, outcome, narrative, created_at
	`

	var entry LogEntry
	err = tx.QueryRowContext(ctx, insert, battleID, actorID, action.String(), outcome.String(), narrative).Scan(
		&entry.BattleID, &entry.SequenceIndex, &entry.ActorID, &entry.Action, &entry.Outcome, &entry.Narrative, &entry.CreatedAt,
	)
	if err != nil {
		logger.Error("Failed to append log entry", "error", err)
		return nil, fmt.Errorf("failed to append log entry: %w", err)
	}

	if finish {
		result, err := tx.ExecContext(ctx,
			"UPDATE battles SET status = 'finished', finished_at = $2 WHERE id = $1 AND status = 'active'",
			battleID, at,
		)
		if err != nil {
			logger.Error("Failed to finish battle", "error", err)
			return nil, fmt.Errorf("failed to finish battle: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected != 1 {
			// Unreachable while the row lock is held; kept as a guard on the
			// state machine's single finished transition.
			return nil, ErrBattleNotActive
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit resolution: %w", err)
	}

	logger.Debug("Resolution appended", "sequence_index", entry.SequenceIndex, "outcome", outcome, "finished", finish)
	return &entry, nil
}

func (r *Repository) GetLog(ctx context.Context, battleID int) ([]LogEntry, error) {
	logger := slog.With("component", "battle_repository", "operation", "get_log", "battle_id", battleID)

	query := `
		SELECT battle_id, sequence_index, actor_id, action, outcome, narrative, created_at
		FROM battle_log
		WHERE battle_id = $1
		ORDER BY sequence_index
	`

	rows, err := r.db.QueryContext(ctx, query, battleID)
	if err != nil {
		logger.Error("Failed to query battle log", "error", err)
		return nil, fmt.Errorf("failed to query battle log: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var entry LogEntry
		err := rows.Scan(&entry.BattleID, &entry.SequenceIndex, &entry.ActorID, &entry.Action, &entry.Outcome, &entry.Narrative, &entry.CreatedAt)
		if err != nil {
			logger.Error("Failed to scan log entry", "error", err)
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating battle log: %w", err)
	}

	return entries, nil
}

// ListRecentByActor returns the actor's most recent battles, newest first.
func (r *Repository) ListRecentByActor(ctx context.Context, actorID string, limit int) ([]Battle, error) {
	logger := slog.With("component", "battle_repository", "operation", "list_recent", "actor_id", actorID)

	query := `
		SELECT id, population_id, kind, challenger_id, opponent_ref, status, started_at, finished_at
		FROM battles
		WHERE challenger_id = $1 OR opponent_ref = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, actorID, limit)
	if err != nil {
		logger.Error("Failed to query battles", "error", err)
		return nil, fmt.Errorf("failed to query battles: %w", err)
	}
	defer rows.Close()

	var battles []Battle
	for rows.Next() {
		var b Battle
		err := rows.Scan(&b.ID, &b.PopulationID, &b.Kind, &b.ChallengerID, &b.OpponentRef, &b.Status, &b.StartedAt, &b.FinishedAt)
		if err != nil {
			logger.Error("Failed to scan battle row", "error", err)
			return nil, fmt.Errorf("failed to scan battle: %w", err)
		}
		battles = append(battles, b)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating battles: %w", err)
	}

	logger.Debug("Recent battles retrieved", "count", len(battles))
	return battles, nil
}
