package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashfall-games/fatetable/internal/domain/npc"
	"github.com/ashfall-games/fatetable/internal/storage"
)

func TestNPCRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	live := npc.ActiveNPC{
		ID:      "npc-1",
		Name:    "Dock Enforcer",
		Kind:    npc.KindPessoa,
		Aspects: []string{"Paid Muscle", "Owes the Captain"},
		Skills:  map[string]int{"Fight": 2, "Physique": 1},
		Stress:  []bool{false, true, false},
	}
	if err := store.PutNPC(ctx, live); err != nil {
		t.Fatalf("put npc: %v", err)
	}

	got, err := store.GetNPC(ctx, "npc-1")
	if err != nil {
		t.Fatalf("get npc: %v", err)
	}
	if got.Name != live.Name || got.Kind != live.Kind {
		t.Fatalf("identity mismatch: %+v", got)
	}
	if len(got.Aspects) != 2 || got.Skills["Fight"] != 2 {
		t.Fatalf("payload mismatch: %+v", got)
	}
	if !got.Stress[1] {
		t.Fatal("stress marks lost on round trip")
	}
	if got.SceneID != "" || got.HasToken {
		t.Fatalf("expected stored npc, got scene %q token %v", got.SceneID, got.HasToken)
	}
}

func TestPlaceNPCAndToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutNPC(ctx, npc.ActiveNPC{ID: "npc-1", Name: "Sewer Thing", Kind: npc.KindMonstro}); err != nil {
		t.Fatalf("put npc: %v", err)
	}

	if err := store.PlaceNPC(ctx, "npc-1", "scene-1"); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := store.SetToken(ctx, "npc-1", true); err != nil {
		t.Fatalf("set token: %v", err)
	}
	got, _ := store.GetNPC(ctx, "npc-1")
	if got.SceneID != "scene-1" || !got.HasToken {
		t.Fatalf("expected placed npc with token, got scene %q token %v", got.SceneID, got.HasToken)
	}

	// Removing from the scene leaves the token flag alone.
	if err := store.PlaceNPC(ctx, "npc-1", ""); err != nil {
		t.Fatalf("unplace: %v", err)
	}
	got, _ = store.GetNPC(ctx, "npc-1")
	if got.SceneID != "" || !got.HasToken {
		t.Fatalf("expected stored npc keeping token, got scene %q token %v", got.SceneID, got.HasToken)
	}

	if err := store.PlaceNPC(ctx, "missing", "scene-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestArchetypeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	template := npc.Archetype{
		ID:      "arch-1",
		Name:    "Harbor Guard",
		Kind:    npc.KindPessoa,
		Aspects: []string{"Just Following Orders"},
		Skills:  map[string]int{"Notice": 1},
	}
	if err := store.PutArchetype(ctx, template); err != nil {
		t.Fatalf("put archetype: %v", err)
	}

	got, err := store.GetArchetype(ctx, "arch-1")
	if err != nil {
		t.Fatalf("get archetype: %v", err)
	}
	if got.Name != template.Name || got.Skills["Notice"] != 1 {
		t.Fatalf("archetype mismatch: %+v", got)
	}

	// Spawn from the persisted template and store the instance.
	live, err := npc.FromArchetype("npc-1", got, time.Now())
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if err := store.PutNPC(ctx, live); err != nil {
		t.Fatalf("put spawned npc: %v", err)
	}
	spawned, _ := store.GetNPC(ctx, "npc-1")
	if spawned.ArchetypeID != "arch-1" {
		t.Fatalf("expected archetype link, got %q", spawned.ArchetypeID)
	}
}

func TestDeleteNPC(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutNPC(ctx, npc.ActiveNPC{ID: "npc-1", Name: "Gone Soon", Kind: npc.KindMonstro}); err != nil {
		t.Fatalf("put npc: %v", err)
	}
	if err := store.DeleteNPC(ctx, "npc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetNPC(ctx, "npc-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
