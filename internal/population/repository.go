package population

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
	logger := slog.With("component", "population_repository", "operation", "init")
	logger.Debug("Initializing population repository")
	return &Repository{db: db}
}

func (r *Repository) GetPopulation(ctx context.Context, id string) (*Population, error) {
	logger := slog.With("component", "population_repository", "operation", "get", "population_id", id)

	query := `
		SELECT id, name, broadcast_channel, system_channel, created_at, updated_at
		FROM populations
		WHERE id = $1
	`

	var pop Population
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&pop.ID,
		&pop.Name,
		&pop.BroadcastChannel,
		&pop.SystemChannel,
		&pop.CreatedAt,
		&pop.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No population found with ID")
			return nil, nil
		}
		logger.Error("Database error getting population", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &pop, nil
}

func (r *Repository) ListPopulations(ctx context.Context) ([]Population, error) {
	logger := slog.With("component", "population_repository", "operation", "list")

	query := `
		SELECT id, name, broadcast_channel, system_channel, created_at, updated_at
		FROM populations
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query populations", "error", err)
		return nil, fmt.Errorf("failed to query populations: %w", err)
	}
	defer rows.Close()

	var populations []Population
	for rows.Next() {
		var pop Population
		err := rows.Scan(
			&pop.ID,
			&pop.Name,
			&pop.BroadcastChannel,
			&pop.SystemChannel,
			&pop.CreatedAt,
			&pop.UpdatedAt,
		)
		if err != nil {
			logger.Error("Failed to scan population row", "error", err)
			return nil, fmt.Errorf("failed to scan population: %w", err)
		}
		populations = append(populations, pop)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating populations: %w", err)
	}

	logger.Debug("Populations retrieved", "count", len(populations))
	return populations, nil
}

// UpsertPopulation registers a population unit, updating its name if it
// already exists.
func (r *Repository) UpsertPopulation(ctx context.Context, id, name string) (*Population, error) {
	logger := slog.With("component", "population_repository", "operation", "upsert", "population_id", id)
	logger.Info("Upserting population")

	query := `
		INSERT INTO populations (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
		RETURNING id, name, broadcast_channel, system_channel, created_at, updated_at
	`

	var pop Population
	err := r.db.QueryRowContext(ctx, query, id, name).Scan(
		&pop.ID,
		&pop.Name,
		&pop.BroadcastChannel,
		&pop.SystemChannel,
		&pop.CreatedAt,
		&pop.UpdatedAt,
	)

	if err != nil {
		logger.Error("Failed to upsert population", "error", err)
		return nil, fmt.Errorf("failed to upsert population: %w", err)
	}

	return &pop, nil
}

// SetBroadcastChannel binds the population's spawn/announcement channel.
func (r *Repository) SetBroadcastChannel(ctx context.Context, id, channelRef string) error {
	logger := slog.With(
		"component", "population_repository",
		"operation", "set_broadcast_channel",
		"population_id", id,
		"channel_ref", channelRef,
	)
	logger.Info("Setting population broadcast channel")

	query := `
		UPDATE populations
		SET broadcast_channel = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, channelRef)
	if err != nil {
		logger.Error("Failed to set broadcast channel", "error", err)
		return fmt.Errorf("failed to set broadcast channel: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		logger.Debug("No population found to bind channel")
		return sql.ErrNoRows
	}

	return nil
}
