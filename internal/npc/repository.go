package npc

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	logger := slog.With("component", "npc_repository", "operation", "init")
	logger.Debug("Initializing npc repository")
	return &Repository{db: db}
}

func (r *Repository) ListByCategories(ctx context.Context, categories ...Category) ([]Template, error) {
	logger := slog.With("component", "npc_repository", "operation", "list_by_categories")

	query := `
		SELECT id, name, category, rarity, created_at
		FROM npc_templates
		WHERE category = ANY($1)
		ORDER BY id
	`

	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.String()
	}

	rows, err := r.db.QueryContext(ctx, query, pq.Array(names))
	if err != nil {
		logger.Error("Failed to query npc templates", "error", err)
		return nil, fmt.Errorf("failed to query npc templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Rarity, &t.CreatedAt); err != nil {
			logger.Error("Failed to scan npc template row", "error", err)
			return nil, fmt.Errorf("failed to scan npc template: %w", err)
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating npc templates: %w", err)
	}

	logger.Debug("NPC templates retrieved", "count", len(templates))
	return templates, nil
}

func (r *Repository) CountTemplates(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM npc_templates").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count npc templates: %w", err)
	}
	return count, nil
}

func (r *Repository) InsertTemplate(ctx context.Context, name string, category Category, rarity string) (*Template, error) {
	logger := slog.With(
		"component", "npc_repository",
		"operation", "insert_template",
		"name", name,
		"category", category,
	)

	query := `
		INSERT INTO npc_templates (name, category, rarity)
		VALUES ($1, $2, $3)
		RETURNING id, name, category, rarity, created_at
	`

	var t Template
	err := r.db.QueryRowContext(ctx, query, name, category.String(), rarity).Scan(
		&t.ID, &t.Name, &t.Category, &t.Rarity, &t.CreatedAt,
	)
	if err != nil {
		logger.Error("Failed to insert npc template", "error", err)
		return nil, fmt.Errorf("failed to insert npc template: %w", err)
	}

	logger.Debug("NPC template inserted", "template_id", t.ID)
	return &t, nil
}
