package npc

import (
	"context"
	"log/slog"
	"testing"
)

type scriptedSource struct {
	ints []int
	pos  int
}

func (s *scriptedSource) Float64() float64 { return 0 }

func (s *scriptedSource) Intn(n int) int {
	if s.pos >= len(s.ints) {
		return 0
	}
	v := s.ints[s.pos]
	s.pos++
	return v % n
}

type fakeCatalogStore struct {
	templates []Template
	inserted  int
}

func (f *fakeCatalogStore) ListByCategories(ctx context.Context, categories ...Category) ([]Template, error) {
	var out []Template
	for _, t := range f.templates {
		for _, c := range categories {
			if t.Category == c {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (f *fakeCatalogStore) CountTemplates(ctx context.Context) (int, error) {
	return len(f.templates), nil
}

func (f *fakeCatalogStore) InsertTemplate(ctx context.Context, name string, category Category, rarity string) (*Template, error) {
	t := Template{ID: len(f.templates) + 1, Name: name, Category: category, Rarity: rarity}
	f.templates = append(f.templates, t)
	f.inserted++
	return &t, nil
}

func TestPickSpawnCandidatesEmptyPool(t *testing.T) {
	catalog := NewCatalog(&fakeCatalogStore{}, nil, slog.Default())

	picked, err := catalog.PickSpawnCandidates(context.Background(), &scriptedSource{}, 3)
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	if picked != nil {
		t.Fatalf("expected nil for empty pool, got %v", picked)
	}
}

func TestPickSpawnCandidatesUsesRarityWeights(t *testing.T) {
	store := &fakeCatalogStore{templates: []Template{
		{ID: 1, Name: "Common One", Category: CategorySpawn, Rarity: "common"},
		{ID: 2, Name: "Rare One", Category: CategorySpawn, Rarity: "rare"},
	}}
	weights := map[string]int{"common": 10, "rare": 2}
	catalog := NewCatalog(store, weights, slog.Default())

	// Cumulative layout is [0..9] -> common, [10..11] -> rare.
	src := &scriptedSource{ints: []int{3, 10}}
	picked, err := catalog.PickSpawnCandidates(context.Background(), src, 2)
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	if len(picked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(picked))
	}
	if picked[0].Rarity != "common" || picked[1].Rarity != "rare" {
		t.Fatalf("weighted picks landed wrong: %v", picked)
	}
}

func TestPickSpawnCandidatesDefaultsUnlistedRarity(t *testing.T) {
	store := &fakeCatalogStore{templates: []Template{
		{ID: 1, Name: "Mystery", Category: CategorySpawn, Rarity: "mythic"},
	}}
	catalog := NewCatalog(store, map[string]int{"common": 10}, slog.Default())

	picked, err := catalog.PickSpawnCandidates(context.Background(), &scriptedSource{}, 1)
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	if len(picked) != 1 {
		t.Fatalf("unlisted rarity should still be pickable, got %d candidates", len(picked))
	}
}

func TestPickBossSelectsFromBossAndRaidPools(t *testing.T) {
	store := &fakeCatalogStore{templates: []Template{
		{ID: 1, Name: "Spawnling", Category: CategorySpawn, Rarity: "common"},
		{ID: 2, Name: "Rust Colossus", Category: CategoryBoss, Rarity: "rare"},
		{ID: 3, Name: "Siege of the Deep Vault", Category: CategoryRaid, Rarity: "legendary"},
	}}
	catalog := NewCatalog(store, nil, slog.Default())

	boss, err := catalog.PickBoss(context.Background(), &scriptedSource{ints: []int{0}})
	if err != nil {
		t.Fatalf("pick boss failed: %v", err)
	}
	if boss == nil {
		t.Fatal("expected a boss")
	}
	if boss.Category == CategorySpawn {
		t.Fatalf("spawn template leaked into the boss pool: %+v", boss)
	}
}

func TestPickBossEmptyPool(t *testing.T) {
	catalog := NewCatalog(&fakeCatalogStore{}, nil, slog.Default())

	boss, err := catalog.PickBoss(context.Background(), &scriptedSource{})
	if err != nil {
		t.Fatalf("pick boss failed: %v", err)
	}
	if boss != nil {
		t.Fatalf("expected nil for empty pool, got %+v", boss)
	}
}

func TestSeedDefaultsOnlyWhenEmpty(t *testing.T) {
	store := &fakeCatalogStore{}
	catalog := NewCatalog(store, nil, slog.Default())
	ctx := context.Background()

	if err := catalog.SeedDefaults(ctx); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if store.inserted == 0 {
		t.Fatal("expected defaults to be inserted into an empty catalog")
	}

	before := store.inserted
	if err := catalog.SeedDefaults(ctx); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if store.inserted != before {
		t.Fatal("seeding must be a no-op on a populated catalog")
	}

	spawns, err := store.ListByCategories(ctx, CategorySpawn)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	bosses, err := store.ListByCategories(ctx, CategoryBoss, CategoryRaid)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(spawns) == 0 || len(bosses) == 0 {
		t.Fatalf("defaults must cover spawn and boss pools: %d spawns, %d bosses", len(spawns), len(bosses))
	}
}
