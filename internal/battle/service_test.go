package battle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"outpost-server/internal/npc"
	"outpost-server/internal/shared/config"
)

// fixedSource always draws the same value, forcing wins or continues.
type fixedSource struct {
	value float64
}

func (s fixedSource) Float64() float64 { return s.value }
func (s fixedSource) Intn(n int) int   { return 0 }

// fakeStore mirrors the repository's atomicity: the append and the finish
// transition happen under one lock, and appends to a finished battle fail.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int
	battles map[int]*Battle
	logs    map[int][]LogEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, battles: make(map[int]*Battle), logs: make(map[int][]LogEntry)}
}

func (f *fakeStore) CreateBattle(ctx context.Context, populationID string, kind Kind, challengerID, opponentRef string) (*Battle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := &Battle{
		ID:           f.nextID,
		PopulationID: populationID,
		Kind:         kind,
		ChallengerID: challengerID,
		OpponentRef:  opponentRef,
		Status:       StatusActive,
	}
	f.battles[f.nextID] = b
	f.nextID++
	copied := *b
	return &copied, nil
}

func (f *fakeStore) GetBattle(ctx context.Context, id int) (*Battle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.battles[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (f *fakeStore) AppendResolution(ctx context.Context, battleID int, actorID string, action Action, outcome Outcome, narrative string, finish bool, at time.Time) (*LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.battles[battleID]
	if !ok {
		return nil, ErrBattleNotFound
	}
	if b.Status != StatusActive {
		return nil, ErrBattleNotActive
	}

	entry := LogEntry{
		BattleID:      battleID,
		SequenceIndex: len(f.logs[battleID]),
		ActorID:       actorID,
		Action:        action,
		Outcome:       outcome,
		Narrative:     narrative,
		CreatedAt:     at,
	}
	f.logs[battleID] = append(f.logs[battleID], entry)

	if finish {
		b.Status = StatusFinished
		b.FinishedAt = &at
	}

	return &entry, nil
}

func (f *fakeStore) GetLog(ctx context.Context, battleID int) ([]LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LogEntry(nil), f.logs[battleID]...), nil
}

func (f *fakeStore) ListRecentByActor(ctx context.Context, actorID string, limit int) ([]Battle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Battle
	for _, b := range f.battles {
		if b.ChallengerID == actorID {
			out = append(out, *b)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeCatalogStore struct {
	templates []npc.Template
}

func (f *fakeCatalogStore) ListByCategories(ctx context.Context, categories ...npc.Category) ([]npc.Template, error) {
	var out []npc.Template
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

func (f *fakeCatalogStore) InsertTemplate(ctx context.Context, name string, category npc.Category, rarity string) (*npc.Template, error) {
	t := npc.Template{ID: len(f.templates) + 1, Name: name, Category: category, Rarity: rarity}
	f.templates = append(f.templates, t)
	return &t, nil
}

func newTestService(store *fakeStore, src fixedSource, bosses ...npc.Template) *Service {
	logger := slog.Default()
	catalog := npc.NewCatalog(&fakeCatalogStore{templates: bosses}, nil, logger)
	return NewService(store, catalog, src, config.BattleConfig{WinChance: 0.5}, logger)
}

func TestCreatePvEUsesBossCatalog(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fixedSource{value: 0.9}, npc.Template{
		ID: 7, Name: "Rust Colossus", Category: npc.CategoryBoss, Rarity: "rare",
	})

	b, err := svc.CreatePvE(context.Background(), "pop-1", "actor-1")
	if err != nil {
		t.Fatalf("create pve failed: %v", err)
	}
	if b.Kind != KindPvE {
		t.Fatalf("expected pve battle, got %s", b.Kind)
	}
	if b.OpponentRef != "npc:7" {
		t.Fatalf("expected boss reference npc:7, got %s", b.OpponentRef)
	}
	if b.Status != StatusActive {
		t.Fatalf("new battle should be active, got %s", b.Status)
	}
}

func TestCreatePvEWithoutBosses(t *testing.T) {
	svc := newTestService(newFakeStore(), fixedSource{})

	if _, err := svc.CreatePvE(context.Background(), "pop-1", "actor-1"); !errors.Is(err, ErrNoBossAvailable) {
		t.Fatalf("expected ErrNoBossAvailable, got %v", err)
	}
}

func TestCreatePvPRejectsSelfChallenge(t *testing.T) {
	svc := newTestService(newFakeStore(), fixedSource{})

	if _, err := svc.CreatePvP(context.Background(), "pop-1", "actor-1", "actor-1"); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget for self challenge, got %v", err)
	}
	if _, err := svc.CreatePvP(context.Background(), "pop-1", "actor-1", ""); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget for empty opponent, got %v", err)
	}
}

func TestResolveActionRejectsUnknownAction(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fixedSource{value: 0.9})

	b, err := svc.CreatePvP(context.Background(), "pop-1", "actor-1", "actor-2")
	if err != nil {
		t.Fatalf("create pvp failed: %v", err)
	}

	if _, err := svc.ResolveAction(context.Background(), b.ID, "actor-1", Action("fireball")); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestResolveActionContinueKeepsBattleActive(t *testing.T) {
	store := newFakeStore()
	// Draw above the win chance forces a continue.
	svc := newTestService(store, fixedSource{value: 0.9})

	b, err := svc.CreatePvP(context.Background(), "pop-1", "actor-1", "actor-2")
	if err != nil {
		t.Fatalf("create pvp failed: %v", err)
	}

	entry, err := svc.ResolveAction(context.Background(), b.ID, "actor-1", ActionAttack)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if entry.Outcome != OutcomeContinue {
		t.Fatalf("expected continue outcome, got %s", entry.Outcome)
	}

	after, err := svc.Get(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if after.Status != StatusActive {
		t.Fatalf("battle should remain active, got %s", after.Status)
	}
}

func TestResolveActionWinFinishesBattle(t *testing.T) {
	store := newFakeStore()
	// Draw below the win chance forces a win.
	svc := newTestService(store, fixedSource{value: 0.1})

	b, err := svc.CreatePvP(context.Background(), "pop-1", "actor-1", "actor-2")
	if err != nil {
		t.Fatalf("create pvp failed: %v", err)
	}

	entry, err := svc.ResolveAction(context.Background(), b.ID, "actor-1", ActionSpecial)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if entry.Outcome != OutcomeWin {
		t.Fatalf("expected win outcome, got %s", entry.Outcome)
	}

	after, err := svc.Get(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if after.Status != StatusFinished {
		t.Fatalf("battle should be finished, got %s", after.Status)
	}
	if after.FinishedAt == nil {
		t.Fatal("finished battle must record a finish time")
	}

	// Finished is terminal.
	if _, err := svc.ResolveAction(context.Background(), b.ID, "actor-2", ActionAttack); !errors.Is(err, ErrBattleNotActive) {
		t.Fatalf("expected ErrBattleNotActive after finish, got %v", err)
	}
}

func TestConcurrentWinningActionsFinishBattleOnce(t *testing.T) {
	store := newFakeStore()
	// Every draw wins, so every resolution races to finish the battle.
	svc := newTestService(store, fixedSource{value: 0.1})

	b, err := svc.CreatePvP(context.Background(), "pop-1", "actor-1", "actor-2")
	if err != nil {
		t.Fatalf("create pvp failed: %v", err)
	}

	const actors = 16

	var (
		start     = make(chan struct{})
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		notActive int
	)

	for i := 0; i < actors; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start

			_, err := svc.ResolveAction(context.Background(), b.ID, fmt.Sprintf("actor-%d", n), ActionAttack)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrBattleNotActive):
				notActive++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one finishing action, got %d", wins)
	}
	if notActive != actors-1 {
		t.Fatalf("expected %d rejected actions, got %d", actors-1, notActive)
	}

	log, err := svc.GetLog(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get log failed: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("expected a single log entry, got %d", len(log))
	}

	after, err := svc.Get(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if after.Status != StatusFinished {
		t.Fatalf("battle should be finished, got %s", after.Status)
	}
}

func TestResolveActionSequenceIsContiguous(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fixedSource{value: 0.9})

	b, err := svc.CreatePvP(context.Background(), "pop-1", "actor-1", "actor-2")
	if err != nil {
		t.Fatalf("create pvp failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		entry, err := svc.ResolveAction(context.Background(), b.ID, "actor-1", ActionAttack)
		if err != nil {
			t.Fatalf("resolve %d failed: %v", i, err)
		}
		if entry.SequenceIndex != i {
			t.Fatalf("expected sequence index %d, got %d", i, entry.SequenceIndex)
		}
	}

	log, err := svc.GetLog(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get log failed: %v", err)
	}
	if len(log) != 5 {
		t.Fatalf("expected 5 log entries, got %d", len(log))
	}
	for i, entry := range log {
		if entry.SequenceIndex != i {
			t.Fatalf("log entry %d has sequence index %d", i, entry.SequenceIndex)
		}
	}
}

func TestResolveActionOnMissingBattle(t *testing.T) {
	svc := newTestService(newFakeStore(), fixedSource{value: 0.9})

	if _, err := svc.ResolveAction(context.Background(), 999, "actor-1", ActionAttack); !errors.Is(err, ErrBattleNotFound) {
		t.Fatalf("expected ErrBattleNotFound, got %v", err)
	}
}

func TestRecentByActorClampsLimit(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, fixedSource{value: 0.9})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if _, err := svc.CreatePvP(ctx, "pop-1", "actor-1", "actor-2"); err != nil {
			t.Fatalf("create pvp failed: %v", err)
		}
	}

	battles, err := svc.RecentByActor(ctx, "actor-1", 0)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(battles) != 6 {
		t.Fatalf("expected the default limit of 6, got %d", len(battles))
	}
}

func TestParseAction(t *testing.T) {
	for _, valid := range []string{"attack", "defend", "special"} {
		if _, ok := ParseAction(valid); !ok {
			t.Fatalf("expected %q to parse", valid)
		}
	}
	if _, ok := ParseAction("flee"); ok {
		t.Fatal("expected unknown action to be rejected")
	}
}
