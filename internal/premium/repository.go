package premium

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
	logger := slog.With("component", "premium_repository", "operation", "init")
	logger.Debug("Initializing premium repository")
	return &Repository{db: db}
}

func (r *Repository) InsertGrant(ctx context.Context, kind Kind, subjectID string, expiresAt *time.Time, grantedBy, reason string) (*Grant, error) {
	logger := slog.With(
		"component", "premium_repository",
		"operation", "insert_grant",
		"kind", kind,
		"subject_id", subjectID,
	)
	logger.Info("Inserting premium grant")

	query := `
		INSERT INTO premium_grants (kind, subject_id, expires_at, granted_by, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, kind, subject_id, expires_at, notified_7d, notified_48h, granted_by, reason, created_at
	`

	var g Grant
	err := r.db.QueryRowContext(ctx, query, kind.String(), subjectID, expiresAt, grantedBy, reason).Scan(
		&g.ID, &g.Kind, &g.SubjectID, &g.ExpiresAt, &g.Notified7d, &g.Notified48h, &g.GrantedBy, &g.Reason, &g.CreatedAt,
	)
	if err != nil {
		logger.Error("Failed to insert premium grant", "error", err)
		return nil, fmt.Errorf("failed to insert premium grant: %w", err)
	}

	logger.Info("Premium grant created", "grant_id", g.ID)
	return &g, nil
}

// DeleteBySubject removes all matching grants for the subject and returns
// how many were removed.
func (r *Repository) DeleteBySubject(ctx context.Context, kind Kind, subjectID string) (int64, error) {
	logger := slog.With(
		"component", "premium_repository",
		"operation", "delete_by_subject",
		"kind", kind,
		"subject_id", subjectID,
	)

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM premium_grants WHERE kind = $1 AND subject_id = $2",
		kind.String(), subjectID,
	)
	if err != nil {
		logger.Error("Failed to delete premium grants", "error", err)
		return 0, fmt.Errorf("failed to delete premium grants: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	logger.Info("Premium grants deleted", "count", affected)
	return affected, nil
}

func (r *Repository) DeleteByID(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM premium_grants WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete premium grant: %w", err)
	}
	return nil
}

func (r *Repository) ListWithExpiry(ctx context.Context) ([]Grant, error) {
	logger := slog.With("component", "premium_repository", "operation", "list_with_expiry")

	query := `
		SELECT id, kind, subject_id, expires_at, notified_7d, notified_48h, granted_by, reason, created_at
		FROM premium_grants
		WHERE expires_at IS NOT NULL
		ORDER BY expires_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query premium grants", "error", err)
		return nil, fmt.Errorf("failed to query premium grants: %w", err)
	}
	defer rows.Close()

	grants, err := scanGrants(rows)
	if err != nil {
		logger.Error("Failed to scan premium grants", "error", err)
		return nil, err
	}

	logger.Debug("Premium grants with expiry retrieved", "count", len(grants))
	return grants, nil
}

func (r *Repository) ListBySubject(ctx context.Context, subjectID string) ([]Grant, error) {
	logger := slog.With("component", "premium_repository", "operation", "list_by_subject", "subject_id", subjectID)

	query := `
		SELECT id, kind, subject_id, expires_at, notified_7d, notified_48h, granted_by, reason, created_at
		FROM premium_grants
		WHERE subject_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		logger.Error("Failed to query premium grants", "error", err)
		return nil, fmt.Errorf("failed to query premium grants: %w", err)
	}
	defer rows.Close()

	return scanGrants(rows)
}

// MarkNotified7d flips the 7-day flag iff it is still unset; the affected-row
// count makes the notification exactly-once even across concurrent ticks.
func (r *Repository) MarkNotified7d(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE premium_grants SET notified_7d = TRUE WHERE id = $1 AND notified_7d = FALSE", id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark 7d notification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

// MarkNotified48h flips the 48-hour flag iff it is still unset.
func (r *Repository) MarkNotified48h(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE premium_grants SET notified_48h = TRUE WHERE id = $1 AND notified_48h = FALSE", id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark 48h notification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

func scanGrants(rows *sql.Rows) ([]Grant, error) {
	var grants []Grant
	for rows.Next() {
		var g Grant
		err := rows.Scan(&g.ID, &g.Kind, &g.SubjectID, &g.ExpiresAt, &g.Notified7d, &g.Notified48h, &g.GrantedBy, &g.Reason, &g.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan premium grant: %w", err)
		}
		grants = append(grants, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating premium grants: %w", err)
	}

	return grants, nil
}
