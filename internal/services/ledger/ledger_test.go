package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashfall-games/fatetable/internal/domain/aspect"
	"github.com/ashfall-games/fatetable/internal/domain/character"
	"github.com/ashfall-games/fatetable/internal/domain/scene"
	"github.com/ashfall-games/fatetable/internal/domain/table"
	"github.com/ashfall-games/fatetable/internal/storage"
	"github.com/ashfall-games/fatetable/internal/storage/sqlite"
)

func newTestService(t *testing.T) (*Service, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	if err := store.PutSession(ctx, table.GameSession{ID: "sess-1"}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if err := store.PutCharacter(ctx, character.Character{ID: "char-1", Name: "Vesper", FatePoints: 3}); err != nil {
		t.Fatalf("seed character: %v", err)
	}

	svc := New(store, "sess-1")
	svc.clock = func() time.Time { return time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC) }
	return svc, store
}

func fatePoints(t *testing.T, store *sqlite.Store, id string) int {
	t.Helper()
	c, err := store.GetCharacter(context.Background(), id)
	if err != nil {
		t.Fatalf("get character: %v", err)
	}
	return c.FatePoints
}

func TestUpdateFate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	if err := svc.UpdateFate(ctx, "char-1", 2, true); err != nil {
		t.Fatalf("update character fate: %v", err)
	}
	if got := fatePoints(t, store, "char-1"); got != 5 {
		t.Fatalf("fate points = %d, want 5", got)
	}

	if err := svc.UpdateFate(ctx, "sess-1", 1, false); err != nil {
		t.Fatalf("update gm pool: %v", err)
	}
	sess, _ := store.GetSession(ctx, "sess-1")
	if sess.GMFatePool != 1 {
		t.Fatalf("gm pool = %d, want 1", sess.GMFatePool)
	}

	entries, err := store.ListLog(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list log: %v", err)
	}
	if len(entries) != 2 || entries[0].Type != LogTypeFateUpdate {
		t.Fatalf("expected two fate_update entries, got %+v", entries)
	}
}

func TestUpdateFateGoesNegative(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	if err := svc.UpdateFate(ctx, "char-1", -5, true); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := fatePoints(t, store, "char-1"); got != -2 {
		t.Fatalf("fate points = %d, want -2 (no floor)", got)
	}
}

func TestInvokePaidDebitsActor(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	a := aspect.UnifiedAspect{ID: "char-1/High Concept", Name: "High Concept", Source: aspect.SourceCharacter}
	if err := svc.Invoke(ctx, "char-1", a, false); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if got := fatePoints(t, store, "char-1"); got != 2 {
		t.Fatalf("fate points = %d, want 2", got)
	}
}

func TestInvokeFreeConsumesPool(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	s, err := scene.Create(scene.CreateInput{
		ID:      "scene-1",
		Name:    "Rooftop Chase",
		Aspects: []scene.Aspect{{ID: "asp-1", Name: "Slick Tiles", FreeInvokes: 2}},
		Now:     time.Now(),
	})
	if err != nil {
		t.Fatalf("create scene: %v", err)
	}
	if err := store.PutScene(ctx, s); err != nil {
		t.Fatalf("put scene: %v", err)
	}

	a := aspect.UnifiedAspect{ID: "asp-1", Name: "Slick Tiles", Source: aspect.SourceLocation, FreeInvokes: 2}
	if err := svc.Invoke(ctx, "char-1", a, true); err != nil {
		t.Fatalf("free invoke: %v", err)
	}

	pool, err := store.GetPoolAspect(ctx, "asp-1")
	if err != nil {
		t.Fatalf("get pool aspect: %v", err)
	}
	if pool.FreeInvokes != 1 {
		t.Fatalf("free invokes = %d, want 1", pool.FreeInvokes)
	}
	// The actor pays nothing on the free path.
	if got := fatePoints(t, store, "char-1"); got != 3 {
		t.Fatalf("fate points = %d, want 3", got)
	}
}

func invokeLogCount(t *testing.T, store *sqlite.Store) int {
	t.Helper()
	entries, err := store.ListLog(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("list log: %v", err)
	}
	n := 0
	for _, e := range entries {
		if e.Type == LogTypeInvoke {
			n++
		}
	}
	return n
}

func TestInvokeFreeFloorsAtZero(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	err := store.PutPoolAspect(ctx, storage.PoolAspect{
		ID:          "sa-1",
		OwnerType:   storage.PoolOwnerCharacter,
		OwnerID:     "char-1",
		Name:        "Hidden Blade",
		FreeInvokes: 1,
	})
	if err != nil {
		t.Fatalf("put pool aspect: %v", err)
	}

	a := aspect.UnifiedAspect{ID: "sa-1", Name: "Hidden Blade", Source: aspect.SourceSituational, FreeInvokes: 1}
	if err := svc.Invoke(ctx, "char-1", a, true); err != nil {
		t.Fatalf("first free invoke: %v", err)
	}
	pool, err := store.GetPoolAspect(ctx, "sa-1")
	if err != nil {
		t.Fatalf("get pool aspect: %v", err)
	}
	if pool.FreeInvokes != 0 {
		t.Fatalf("free invokes = %d, want 0", pool.FreeInvokes)
	}

	// The pool is exhausted: a second free invoke spends nothing, fails
	// nothing, and still lands in the log.
	if err := svc.Invoke(ctx, "char-1", a, true); err != nil {
		t.Fatalf("free invoke on exhausted pool: %v", err)
	}
	pool, err = store.GetPoolAspect(ctx, "sa-1")
	if err != nil {
		t.Fatalf("get pool aspect: %v", err)
	}
	if pool.FreeInvokes != 0 {
		t.Fatalf("free invokes = %d, want 0 (floored)", pool.FreeInvokes)
	}
	if got := fatePoints(t, store, "char-1"); got != 3 {
		t.Fatalf("fate points = %d, want 3 (free path never debits)", got)
	}
	if got := invokeLogCount(t, store); got != 2 {
		t.Fatalf("invoke log entries = %d, want 2", got)
	}
}

func TestInvokeFreeWithoutPoolIsNoOp(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// Character-core aspects carry no pool; the free path touches nothing
	// but the invocation is still narrated.
	noPool := aspect.UnifiedAspect{ID: "char-1/High Concept", Name: "High Concept", Source: aspect.SourceCharacter}
	if err := svc.Invoke(ctx, "char-1", noPool, true); err != nil {
		t.Fatalf("free invoke without pool: %v", err)
	}
	if got := fatePoints(t, store, "char-1"); got != 3 {
		t.Fatalf("fate points = %d, want 3", got)
	}
	if got := invokeLogCount(t, store); got != 1 {
		t.Fatalf("invoke log entries = %d, want 1", got)
	}
}

func TestCompelAndReject(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	a := aspect.UnifiedAspect{ID: "char-1/Owes the Broker", Name: "Owes the Broker", Source: aspect.SourceCharacter}
	if err := svc.Compel(ctx, a, "char-1"); err != nil {
		t.Fatalf("compel: %v", err)
	}
	if got := fatePoints(t, store, "char-1"); got != 4 {
		t.Fatalf("fate points after compel = %d, want 4", got)
	}

	if err := svc.RejectCompel(ctx, a, "char-1"); err != nil {
		t.Fatalf("reject compel: %v", err)
	}
	if got := fatePoints(t, store, "char-1"); got != 3 {
		t.Fatalf("fate points after rejection = %d, want 3", got)
	}
}

func TestCreateBoostOnCharacter(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	boost, err := svc.CreateBoost(ctx, "Off Balance", "char-1", "user-gm")
	if err != nil {
		t.Fatalf("create boost: %v", err)
	}
	if boost.OwnerType != storage.PoolOwnerCharacter || boost.OwnerID != "char-1" {
		t.Fatalf("boost owner = %s/%s, want character/char-1", boost.OwnerType, boost.OwnerID)
	}
	if boost.FreeInvokes != 1 || !boost.IsTemporary {
		t.Fatalf("boost shape wrong: %+v", boost)
	}

	stored, err := store.GetPoolAspect(ctx, boost.ID)
	if err != nil {
		t.Fatalf("get stored boost: %v", err)
	}
	if stored.Name != "Off Balance" {
		t.Fatalf("stored name = %q", stored.Name)
	}
}

func TestCreateBoostFallsBackToActiveScene(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	s, _ := scene.Create(scene.CreateInput{
		ID:      "scene-1",
		Name:    "Warehouse",
		Aspects: []scene.Aspect{{ID: "asp-1", Name: "Dark Corners"}},
		Now:     time.Now(),
	})
	if err := store.PutScene(ctx, s); err != nil {
		t.Fatalf("put scene: %v", err)
	}
	if err := store.ActivateScene(ctx, "scene-1"); err != nil {
		t.Fatalf("activate: %v", err)
	}

	boost, err := svc.CreateBoost(ctx, "Blinding Dust", "not-a-character", "user-gm")
	if err != nil {
		t.Fatalf("create boost: %v", err)
	}
	if boost.OwnerType != storage.PoolOwnerScene || boost.OwnerID != "scene-1" {
		t.Fatalf("boost owner = %s/%s, want scene/scene-1", boost.OwnerType, boost.OwnerID)
	}
}

func TestCreateBoostWithoutTarget(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateBoost(context.Background(), "Nowhere to Land", "not-a-character", "user-gm")
	if !errors.Is(err, ErrBoostTarget) {
		t.Fatalf("expected ErrBoostTarget, got %v", err)
	}
}

func TestGrantFreeInvoke(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	err := store.PutPoolAspect(ctx, storage.PoolAspect{
		ID:        "asp-1",
		OwnerType: storage.PoolOwnerCharacter,
		OwnerID:   "char-1",
		Name:      "On Higher Ground",
	})
	if err != nil {
		t.Fatalf("put pool aspect: %v", err)
	}

	a := aspect.UnifiedAspect{ID: "asp-1", Name: "On Higher Ground", Source: aspect.SourceSituational}
	if err := svc.GrantFreeInvoke(ctx, a); err != nil {
		t.Fatalf("grant: %v", err)
	}
	pool, _ := store.GetPoolAspect(ctx, "asp-1")
	if pool.FreeInvokes != 1 {
		t.Fatalf("free invokes = %d, want 1", pool.FreeInvokes)
	}

	themed := aspect.UnifiedAspect{ID: "camp/theme", Name: "theme", Source: aspect.SourceTheme}
	if err := svc.GrantFreeInvoke(ctx, themed); !errors.Is(err, ErrNoPool) {
		t.Fatalf("expected ErrNoPool, got %v", err)
	}
}
