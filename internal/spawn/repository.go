package spawn

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	logger := slog.With("component", "spawn_repository", "operation", "init")
	logger.Debug("Initializing spawn repository")
	return &Repository{db: db}
}

func (r *Repository) InsertEvent(ctx context.Context, populationID, channelRef, kind string, candidateIDs []int, triggeredBy *string, expiresAt time.Time) (*Event, error) {
	logger := slog.With(
		"component", "spawn_repository",
		"operation", "insert_event",
		"population_id", populationID,
		"channel_ref", channelRef,
	)

	candidates, err := json.Marshal(candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode candidate ids: %w", err)
	}

	query := `
		INSERT INTO spawn_events (population_id, channel_ref, candidate_ids, kind, triggered_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, population_id, channel_ref, candidate_ids, kind, triggered_by,
		          expires_at, claimed_by, claim_slot, claim_time, created_at
	`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, populationID, channelRef, candidates, kind, triggeredBy, expiresAt))
	if err != nil {
		logger.Error("Failed to insert spawn event", "error", err)
		return nil, fmt.Errorf("failed to insert spawn event: %w", err)
	}

	logger.Info("Spawn event created", "spawn_id", event.ID, "expires_at", event.ExpiresAt)
	return event, nil
}

// ActiveByChannel returns the newest unclaimed, unexpired event for the
// channel, or nil if there is none.
func (r *Repository) ActiveByChannel(ctx context.Context, channelRef string, now time.Time) (*Event, error) {
	logger := slog.With(
		"component", "spawn_repository",
		"operation", "active_by_channel",
		"channel_ref", channelRef,
	)

	query := `
		SELECT id, population_id, channel_ref, candidate_ids, kind, triggered_by,
		       expires_at, claimed_by, claim_slot, claim_time, created_at
		FROM spawn_events
		WHERE channel_ref = $1 AND expires_at > $2 AND claimed_by IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, channelRef, now))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No active spawn for channel")
			return nil, nil
		}
		logger.Error("Database error finding active spawn", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return event, nil
}

// TryClaim is the single conditional write that arbitrates the claim race:
// only the statement's affected-row count decides success, never a prior
// read.
func (r *Repository) TryClaim(ctx context.Context, eventID int, actorID string, slot int, at time.Time) (bool, error) {
	logger := slog.With(
		"component", "spawn_repository",
		"operation", "try_claim",
		"spawn_id", eventID,
		"actor_id", actorID,
	)

	query := `
		UPDATE spawn_events
		SET claimed_by = $2, claim_slot = $3, claim_time = $4
		WHERE id = $1 AND claimed_by IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, eventID, actorID, slot, at)
	if err != nil {
		logger.Error("Failed to execute claim update", "error", err)
		return false, fmt.Errorf("failed to claim spawn: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	logger.Debug("Claim update executed", "rows_affected", affected)
	return affected == 1, nil
}

// DeleteExpired removes every event past its expiry, claimed or not.
// Idempotent and safe to run concurrently with claims.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	logger := slog.With("component", "spawn_repository", "operation", "delete_expired")

	result, err := r.db.ExecContext(ctx, "DELETE FROM spawn_events WHERE expires_at <= $1", now)
	if err != nil {
		logger.Error("Failed to delete expired spawns", "error", err)
		return 0, fmt.Errorf("failed to delete expired spawns: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected > 0 {
		logger.Debug("Expired spawns deleted", "count", affected)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var event Event
	var candidates []byte

	err := row.Scan(
		&event.ID,
		&event.PopulationID,
		&event.ChannelRef,
		&candidates,
		&event.Kind,
		&event.TriggeredBy,
		&event.ExpiresAt,
		&event.ClaimedBy,
		&event.ClaimSlot,
		&event.ClaimTime,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(candidates, &event.CandidateIDs); err != nil {
		return nil, fmt.Errorf("failed to decode candidate ids: %w", err)
	}

	return &event, nil
}
