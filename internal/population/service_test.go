package population

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
)

type fakeStore struct {
	populations map[string]*Population
	setErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{populations: make(map[string]*Population)}
}

func (f *fakeStore) GetPopulation(ctx context.Context, id string) (*Population, error) {
	p, ok := f.populations[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) ListPopulations(ctx context.Context) ([]Population, error) {
	var out []Population
	for _, p := range f.populations {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) UpsertPopulation(ctx context.Context, id, name string) (*Population, error) {
	p := &Population{ID: id, Name: name}
	f.populations[id] = p
	copied := *p
	return &copied, nil
}

func (f *fakeStore) SetBroadcastChannel(ctx context.Context, id, channelRef string) error {
	if f.setErr != nil {
		return f.setErr
	}
	p, ok := f.populations[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.BroadcastChannel = &channelRef
	return nil
}

func channel(s string) *string { return &s }

func TestResolveBroadcastChannelFallbackChain(t *testing.T) {
	svc := NewService(newFakeStore(), "default-chan", slog.Default())

	cases := []struct {
		name string
		pop  *Population
		want string
	}{
		{"bound broadcast channel wins", &Population{BroadcastChannel: channel("bound"), SystemChannel: channel("system")}, "bound"},
		{"system channel is second", &Population{SystemChannel: channel("system")}, "system"},
		{"empty broadcast falls through", &Population{BroadcastChannel: channel(""), SystemChannel: channel("system")}, "system"},
		{"default is last", &Population{}, "default-chan"},
		{"nil population uses default", nil, "default-chan"},
	}

	for _, c := range cases {
		if got := svc.ResolveBroadcastChannel(c.pop); got != c.want {
			t.Fatalf("%s: expected %q, got %q", c.name, c.want, got)
		}
	}
}

func TestResolveBroadcastChannelUnresolvable(t *testing.T) {
	svc := NewService(newFakeStore(), "", slog.Default())

	if got := svc.ResolveBroadcastChannel(&Population{}); got != "" {
		t.Fatalf("expected empty channel, got %q", got)
	}
}

func TestBindSpawnChannel(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, "", slog.Default())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "pop-1", "One"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.BindSpawnChannel(ctx, "pop-1", "chan-9"); err != nil {
		t.Fatalf("bind failed: %v", err)
	}

	pop, err := svc.Get(ctx, "pop-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if pop.BroadcastChannel == nil || *pop.BroadcastChannel != "chan-9" {
		t.Fatalf("channel not bound: %+v", pop)
	}
}

func TestBindSpawnChannelUnknownPopulation(t *testing.T) {
	svc := NewService(newFakeStore(), "", slog.Default())

	err := svc.BindSpawnChannel(context.Background(), "missing", "chan-1")
	if !errors.Is(err, ErrPopulationNotFound) {
		t.Fatalf("expected ErrPopulationNotFound, got %v", err)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, "", slog.Default())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "pop-1", "One"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.Register(ctx, "pop-1", "One Renamed"); err != nil {
		t.Fatalf("second register failed: %v", err)
	}

	pops, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pops) != 1 {
		t.Fatalf("expected a single population, got %d", len(pops))
	}
	if pops[0].Name != "One Renamed" {
		t.Fatalf("upsert did not refresh the name: %+v", pops[0])
	}
}
