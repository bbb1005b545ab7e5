package npc

import (
	"context"
	"fmt"
	"log/slog"

	"outpost-server/internal/rng"
)

// CatalogStore is the persistence surface the catalog needs.
type CatalogStore interface {
	ListByCategories(ctx context.Context, categories ...Category) ([]Template, error)
	CountTemplates(ctx context.Context) (int, error)
	InsertTemplate(ctx context.Context, name string, category Category, rarity string) (*Template, error)
}

// Catalog answers weighted random selection questions over the template pool.
type Catalog struct {
	store         CatalogStore
	rarityWeights map[string]int
	logger        *slog.Logger
}

func NewCatalog(store CatalogStore, rarityWeights map[string]int, logger *slog.Logger) *Catalog {
	logger.Debug("Initializing npc catalog")

	return &Catalog{
		store:         store,
		rarityWeights: rarityWeights,
		logger:        logger,
	}
}

// PickSpawnCandidates selects count templates from the spawn pool by weighted
// random choice with replacement. Unlisted rarities weigh 1.
func (c *Catalog) PickSpawnCandidates(ctx context.Context, src rng.Source, count int) ([]Template, error) {
	pool, err := c.store.ListByCategories(ctx, CategorySpawn)
	if err != nil {
		return nil, fmt.Errorf("failed to load spawn pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, nil
	}

	weights := make([]int, len(pool))
	for i, t := range pool {
		w, ok := c.rarityWeights[t.Rarity]
		if !ok {
			w = 1
		}
		weights[i] = w
	}

	picked := make([]Template, 0, count)
	for range count {
		idx := rng.WeightedIndex(src, weights)
		if idx < 0 {
			break
		}
		picked = append(picked, pool[idx])
	}

	return picked, nil
}

// PickBoss selects one boss or raid template by weighted random choice.
// Returns nil if no boss templates exist.
func (c *Catalog) PickBoss(ctx context.Context, src rng.Source) (*Template, error) {
	pool, err := c.store.ListByCategories(ctx, CategoryBoss, CategoryRaid)
	if err != nil {
		return nil, fmt.Errorf("failed to load boss pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, nil
	}

	weights := make([]int, len(pool))
	for i, t := range pool {
		w, ok := c.rarityWeights[t.Rarity]
		if !ok {
			w = 1
		}
		weights[i] = w
	}

	idx := rng.WeightedIndex(src, weights)
	if idx < 0 {
		idx = src.Intn(len(pool))
	}
	boss := pool[idx]
	return &boss, nil
}

// SeedDefaults inserts a starter template catalog when the table is empty so
// a fresh deployment has a usable spawn and boss pool.
func (c *Catalog) SeedDefaults(ctx context.Context) error {
	logger := c.logger.With("component", "npc_catalog", "operation", "seed_defaults")

	count, err := c.store.CountTemplates(ctx)
	if err != nil {
		return fmt.Errorf("failed to count templates: %w", err)
	}
	if count > 0 {
		logger.Debug("NPC catalog already populated", "count", count)
		return nil
	}

	defaults := []struct {
		name     string
		category Category
		rarity   string
	}{
		{"Dust Scavenger", CategorySpawn, "common"},
		{"Canyon Drifter", CategorySpawn, "common"},
		{"Relay Mechanic", CategorySpawn, "uncommon"},
		{"Veiled Courier", CategorySpawn, "uncommon"},
		{"Storm Oracle", CategorySpawn, "rare"},
		{"Ember Saint", CategorySpawn, "legendary"},
		{"Rust Colossus", CategoryBoss, "rare"},
		{"The Hollow Warden", CategoryBoss, "legendary"},
		{"Siege of the Deep Vault", CategoryRaid, "legendary"},
	}

	for _, d := range defaults {
		if _, err := c.store.InsertTemplate(ctx, d.name, d.category, d.rarity); err != nil {
			return fmt.Errorf("failed to seed template %q: %w", d.name, err)
		}
	}

	logger.Info("Seeded default NPC catalog", "count", len(defaults))
	return nil
}
