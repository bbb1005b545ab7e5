package world

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"outpost-server/internal/population"
	"outpost-server/internal/shared/config"
)

type stubSource struct {
	mu     sync.Mutex
	floats []float64
	pos    int
}

func (s *stubSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.floats) {
		return 0.99
	}
	v := s.floats[s.pos]
	s.pos++
	return v
}

func (s *stubSource) Intn(n int) int { return 0 }

type fakeStore struct {
	mu          sync.Mutex
	nextID      int
	settlements map[int]*Settlement
	npcs        map[int]*NPC
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, settlements: make(map[int]*Settlement), npcs: make(map[int]*NPC)}
}

func (f *fakeStore) ListSettlements(ctx context.Context) ([]Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Settlement
	for _, s := range f.settlements {
		copied := *s
		copied.Resources = copyResources(s.Resources)
		out = append(out, copied)
	}
	return out, nil
}

func (f *fakeStore) ListSettlementsByPopulation(ctx context.Context, populationID string) ([]Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Settlement
	for _, s := range f.settlements {
		if s.PopulationID == populationID {
			copied := *s
			copied.Resources = copyResources(s.Resources)
			out = append(out, copied)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateResources(ctx context.Context, id int, resources map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.settlements[id]; ok {
		s.Resources = copyResources(resources)
	}
	return nil
}

func (f *fakeStore) InsertSettlement(ctx context.Context, populationID, name string, level int) (*Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := &Settlement{ID: f.nextID, PopulationID: populationID, Name: name, Level: level, Resources: map[string]int{}}
	f.settlements[f.nextID] = s
	f.nextID++
	copied := *s
	return &copied, nil
}

func (f *fakeStore) ListActiveNPCs(ctx context.Context) ([]NPC, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []NPC
	for _, n := range f.npcs {
		if !n.ConvertedToCollectible {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateNPCJob(ctx context.Context, id int, job string, migratedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n, ok := f.npcs[id]; ok {
		n.Job = job
		n.MigratedAt = &migratedAt
	}
	return nil
}

func (f *fakeStore) ConvertToCollectible(ctx context.Context, id int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.npcs[id]
	if !ok || n.ConvertedToCollectible {
		return false, nil
	}
	n.ConvertedToCollectible = true
	return true, nil
}

func copyResources(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type fakePopulationStore struct {
	populations []population.Population
}

func (f *fakePopulationStore) GetPopulation(ctx context.Context, id string) (*population.Population, error) {
	for i := range f.populations {
		if f.populations[i].ID == id {
			return &f.populations[i], nil
		}
	}
	return nil, nil
}

func (f *fakePopulationStore) ListPopulations(ctx context.Context) ([]population.Population, error) {
	return f.populations, nil
}

func (f *fakePopulationStore) UpsertPopulation(ctx context.Context, id, name string) (*population.Population, error) {
	return &population.Population{ID: id, Name: name}, nil
}

func (f *fakePopulationStore) SetBroadcastChannel(ctx context.Context, id, channelRef string) error {
	return nil
}

type recordingSink struct {
	mu         sync.Mutex
	broadcasts map[string][]string
}

func (r *recordingSink) NotifyActor(ctx context.Context, actorID string, message string) error {
	return nil
}

func (r *recordingSink) Broadcast(ctx context.Context, channelRef string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broadcasts == nil {
		r.broadcasts = make(map[string][]string)
	}
	r.broadcasts[channelRef] = append(r.broadcasts[channelRef], message)
	return nil
}

func channel(s string) *string { return &s }

func testConfig() config.WorldConfig {
	return config.WorldConfig{
		ResourceDeltas:    map[string]int{"food": 5, "wood": 2, "stone": 1},
		JobFlipChance:     0.03,
		CollectibleChance: 0.005,
	}
}

func newTestService(store *fakeStore, pops *fakePopulationStore, src *stubSource) (*Service, *recordingSink) {
	logger := slog.Default()
	popService := population.NewService(pops, "", logger)
	sink := &recordingSink{}
	svc := NewService(store, popService, sink, src, testConfig(), logger)
	return svc, sink
}

func TestTickAccumulatesResources(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakePopulationStore{}, &stubSource{})
	ctx := context.Background()

	s, err := store.InsertSettlement(ctx, "pop-1", "Emberfall", 2)
	if err != nil {
		t.Fatalf("seeding settlement failed: %v", err)
	}

	if err := svc.Tick(ctx); err != nil {
		t.Fatalf("first tick failed: %v", err)
	}
	if err := svc.Tick(ctx); err != nil {
		t.Fatalf("second tick failed: %v", err)
	}

	store.mu.Lock()
	resources := copyResources(store.settlements[s.ID].Resources)
	store.mu.Unlock()

	if resources["food"] != 10 || resources["wood"] != 4 || resources["stone"] != 2 {
		t.Fatalf("unexpected resources after two ticks: %v", resources)
	}
}

func TestTickFlipsNPCJobs(t *testing.T) {
	store := newFakeStore()
	// First draw forces the flip, second is above the collectible chance.
	src := &stubSource{floats: []float64{0.0, 0.99}}
	svc, _ := newTestService(store, &fakePopulationStore{}, src)

	store.npcs[1] = &NPC{ID: 1, PopulationID: "pop-1", Job: JobWorker}

	if err := svc.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.npcs[1].Job != JobScout {
		t.Fatalf("expected job flip to scout, got %s", store.npcs[1].Job)
	}
	if store.npcs[1].MigratedAt == nil {
		t.Fatal("job flip must record a migration time")
	}
}

func TestTickConvertsNPCToCollectibleOnce(t *testing.T) {
	store := newFakeStore()
	// No flip, but a collectible roll below the chance.
	src := &stubSource{floats: []float64{0.99, 0.0}}
	svc, _ := newTestService(store, &fakePopulationStore{}, src)

	store.npcs[1] = &NPC{ID: 1, PopulationID: "pop-1", Job: JobWorker}

	if err := svc.Tick(context.Background()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	store.mu.Lock()
	converted := store.npcs[1].ConvertedToCollectible
	store.mu.Unlock()
	if !converted {
		t.Fatal("expected npc to convert")
	}

	// Converted NPCs leave the active set, so later ticks skip them.
	npcs, err := store.ListActiveNPCs(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(npcs) != 0 {
		t.Fatalf("converted npc should not be active, got %d", len(npcs))
	}
}

func TestTickBroadcastsSummariesPerPopulation(t *testing.T) {
	store := newFakeStore()
	pops := &fakePopulationStore{populations: []population.Population{
		{ID: "pop-1", Name: "One", BroadcastChannel: channel("chan-1")},
		{ID: "pop-2", Name: "Two", BroadcastChannel: channel("chan-2")},
	}}
	svc, sink := newTestService(store, pops, &stubSource{})
	ctx := context.Background()

	if _, err := store.InsertSettlement(ctx, "pop-1", "Emberfall", 2); err != nil {
		t.Fatalf("seeding settlement failed: %v", err)
	}

	if err := svc.Tick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.broadcasts["chan-1"]) != 1 {
		t.Fatalf("expected one summary on chan-1, got %d", len(sink.broadcasts["chan-1"]))
	}
	if len(sink.broadcasts["chan-2"]) != 0 {
		t.Fatal("population without settlements must not receive a summary")
	}
}

func TestSummaryMessageIsSorted(t *testing.T) {
	msg := SummaryMessage([]Settlement{
		{Name: "Zephyr Hold", Level: 3},
		{Name: "Ashgate", Level: 1},
	})

	want := "World tick: Ashgate (lvl 1), Zephyr Hold (lvl 3)"
	if msg != want {
		t.Fatalf("unexpected summary message:\n got %q\nwant %q", msg, want)
	}
}

func TestCreateSettlementClampsLevel(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, &fakePopulationStore{}, &stubSource{})

	s, err := svc.CreateSettlement(context.Background(), "pop-1", "Ashgate", 0)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if s.Level != 1 {
		t.Fatalf("expected level clamp to 1, got %d", s.Level)
	}
}
