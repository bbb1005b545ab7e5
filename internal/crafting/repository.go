package crafting

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	logger := slog.With("component", "crafting_repository", "operation", "init")
	logger.Debug("Initializing crafting repository")
	return &Repository{db: db}
}

func (r *Repository) CountByActor(ctx context.Context, actorID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inventory WHERE actor_id = $1", actorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count inventory: %w", err)
	}
	return count, nil
}

func (r *Repository) InsertItem(ctx context.Context, actorID string, artifactID int, shiny bool) (*InventoryItem, error) {
	logger := slog.With(
		"component", "crafting_repository",
		"operation", "insert_item",
		"actor_id", actorID,
		"artifact_id", artifactID,
	)

	query := `
		INSERT INTO inventory (actor_id, artifact_id, shiny)
		VALUES ($1, $2, $3)
		RETURNING id, actor_id, artifact_id, shiny, obtained_at
	`

	var item InventoryItem
	err := r.db.QueryRowContext(ctx, query, actorID, artifactID, shiny).Scan(
		&item.ID, &item.ActorID, &item.ArtifactID, &item.Shiny, &item.ObtainedAt,
	)
	if err != nil {
		logger.Error("Failed to insert inventory item", "error", err)
		return nil, fmt.Errorf("failed to insert inventory item: %w", err)
	}

	logger.Debug("Inventory item created", "item_id", item.ID)
	return &item, nil
}

// ConsumeForFusion removes both source artifacts from the actor's inventory
// in one transaction; it fails without side effects unless both are owned.
func (r *Repository) ConsumeForFusion(ctx context.Context, actorID string, artifactID1, artifactID2 int) error {
	logger := slog.With(
		"component", "crafting_repository",
		"operation", "consume_for_fusion",
		"actor_id", actorID,
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, artifactID := range []int{artifactID1, artifactID2} {
		query := `
			DELETE FROM inventory
			WHERE id = (
				SELECT id FROM inventory
				WHERE actor_id = $1 AND artifact_id = $2
				ORDER BY obtained_at
				LIMIT 1
			)
		`
		result, err := tx.ExecContext(ctx, query, actorID, artifactID)
		if err != nil {
			logger.Error("Failed to consume artifact", "artifact_id", artifactID, "error", err)
			return fmt.Errorf("failed to consume artifact %d: %w", artifactID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fusion consumption: %w", err)
	}

	return nil
}

func (r *Repository) ListByActor(ctx context.Context, actorID string) ([]InventoryItem, error) {
	logger := slog.With("component", "crafting_repository", "operation", "list_by_actor", "actor_id", actorID)

	query := `
		SELECT id, actor_id, artifact_id, shiny, obtained_at
		FROM inventory
		WHERE actor_id = $1
		ORDER BY obtained_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, actorID)
	if err != nil {
		logger.Error("Failed to query inventory", "error", err)
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var items []InventoryItem
	for rows.Next() {
		var item InventoryItem
		err := rows.Scan(&item.ID, &item.ActorID, &item.ArtifactID, &item.Shiny, &item.ObtainedAt)
		if err != nil {
			logger.Error("Failed to scan inventory item", "error", err)
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}

	return items, nil
}
