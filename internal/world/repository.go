package world

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
	logger := slog.With("component", "world_repository", "operation", "init")
	logger.Debug("Initializing world repository")
	return &Repository{db: db}
}

func (r *Repository) ListSettlements(ctx context.Context) ([]Settlement, error) {
	logger := slog.With("component", "world_repository", "operation", "list_settlements")

	query := `
		SELECT id, population_id, name, level, resources, created_at
		FROM settlements
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query settlements", "error", err)
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	return scanSettlements(rows)
}

func (r *Repository) ListSettlementsByPopulation(ctx context.Context, populationID string) ([]Settlement, error) {
	logger := slog.With("component", "world_repository", "operation", "list_settlements_by_population", "population_id", populationID)

	query := `
		SELECT id, population_id, name, level, resources, created_at
		FROM settlements
		WHERE population_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, populationID)
	if err != nil {
		logger.Error("Failed to query settlements", "error", err)
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	return scanSettlements(rows)
}

// UpdateResources overwrites the settlement's resource counters. The world
// tick is the settlement's only writer, so a plain update suffices here.
func (r *Repository) UpdateResources(ctx context.Context, id int, resources map[string]int) error {
	encoded, err := json.Marshal(resources)
	if err != nil {
		return fmt.Errorf("failed to encode resources: %w", err)
	}

	_, err = r.db.ExecContext(ctx, "UPDATE settlements SET resources = $2 WHERE id = $1", id, encoded)
	if err != nil {
		return fmt.Errorf("failed to update settlement resources: %w", err)
	}
	return nil
}

func (r *Repository) InsertSettlement(ctx context.Context, populationID, name string, level int) (*Settlement, error) {
	logger := slog.With("component", "world_repository", "operation", "insert_settlement", "population_id", populationID)

	query := `
		INSERT INTO settlements (population_id, name, level, resources)
		VALUES ($1, $2, $3, '{}')
		RETURNING id, population_id, name, level, resources, created_at
	`

	var s Settlement
	var resources []byte
	err := r.db.QueryRowContext(ctx, query, populationID, name, level).Scan(
		&s.ID, &s.PopulationID, &s.Name, &s.Level, &resources, &s.CreatedAt,
	)
	if err != nil {
		logger.Error("Failed to insert settlement", "error", err)
		return nil, fmt.Errorf("failed to insert settlement: %w", err)
	}

	if err := json.Unmarshal(resources, &s.Resources); err != nil {
		return nil, fmt.Errorf("failed to decode resources: %w", err)
	}

	logger.Info("Settlement created", "settlement_id", s.ID, "name", s.Name)
	return &s, nil
}

func (r *Repository) ListActiveNPCs(ctx context.Context) ([]NPC, error) {
	logger := slog.With("component", "world_repository", "operation", "list_active_npcs")

	query := `
		SELECT id, population_id, job, status, converted_to_collectible, migrated_at
		FROM world_npcs
		WHERE status = 'active'
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query world npcs", "error", err)
		return nil, fmt.Errorf("failed to query world npcs: %w", err)
	}
	defer rows.Close()

	var npcs []NPC
	for rows.Next() {
		var n NPC
		err := rows.Scan(&n.ID, &n.PopulationID, &n.Job, &n.Status, &n.ConvertedToCollectible, &n.MigratedAt)
		if err != nil {
			logger.Error("Failed to scan world npc", "error", err)
			return nil, fmt.Errorf("failed to scan world npc: %w", err)
		}
		npcs = append(npcs, n)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating world npcs: %w", err)
	}

	return npcs, nil
}

func (r *Repository) UpdateNPCJob(ctx context.Context, id int, job string, migratedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE world_npcs SET job = $2, migrated_at = $3 WHERE id = $1",
		id, job, migratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update npc job: %w", err)
	}
	return nil
}

// ConvertToCollectible flips the one-way flag; the predicate keeps it
// monotone.
func (r *Repository) ConvertToCollectible(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE world_npcs SET converted_to_collectible = TRUE WHERE id = $1 AND converted_to_collectible = FALSE",
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to convert npc to collectible: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

func scanSettlements(rows *sql.Rows) ([]Settlement, error) {
	var settlements []Settlement
	for rows.Next() {
		var s Settlement
		var resources []byte
		err := rows.Scan(&s.ID, &s.PopulationID, &s.Name, &s.Level, &resources, &s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		if err := json.Unmarshal(resources, &s.Resources); err != nil {
			return nil, fmt.Errorf("failed to decode resources: %w", err)
		}
		if s.Resources == nil {
			s.Resources = make(map[string]int)
		}
		settlements = append(settlements, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settlements: %w", err)
	}

	return settlements, nil
}
