package npc

import (
	"errors"
	"testing"
	"time"
)

func template() Archetype {
	return Archetype{
		ID:      "arch-1",
		Name:    "Sewer Wretch",
		Kind:    KindMonstro,
		Aspects: []string{"All Teeth and Hunger", "Afraid of Light"},
		Skills:  map[string]int{"Fight": 2, "Athletics": 1},
	}
}

func TestFromArchetype(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	live, err := FromArchetype("npc-1", template(), now)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if live.ArchetypeID != "arch-1" {
		t.Fatalf("expected archetype link, got %q", live.ArchetypeID)
	}
	if live.SceneID != "" || live.HasToken {
		t.Fatal("expected spawned npc to start stored without a token")
	}
	if len(live.Stress) != 0 || live.Consequences.Mild != nil {
		t.Fatal("expected clean session state")
	}
}

func TestFromArchetypeValidates(t *testing.T) {
	bad := template()
	bad.Kind = Kind("espectro")
	if _, err := FromArchetype("npc-1", bad, time.Now()); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}

	bad = template()
	bad.Name = "  "
	if _, err := FromArchetype("npc-1", bad, time.Now()); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

// TestArchetypeRoundTrip checks spawn followed by archive preserves the
// template fields.
func TestArchetypeRoundTrip(t *testing.T) {
	original := template()
	live, err := FromArchetype("npc-1", original, time.Now())
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	// Session wear and tear must not leak back into the template.
	live.Stress = []bool{true, true}
	hurt := "Gutted"
	live.Consequences.Moderate = &hurt
	live.SceneID = "scene-1"
	live.HasToken = true

	back, err := ToArchetype("arch-2", live)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if back.Name != original.Name || back.Kind != original.Kind {
		t.Fatalf("identity changed in round trip: %+v", back)
	}
	if len(back.Aspects) != len(original.Aspects) {
		t.Fatalf("aspects changed: %v", back.Aspects)
	}
	for i := range original.Aspects {
		if back.Aspects[i] != original.Aspects[i] {
			t.Fatalf("aspect %d changed: %q", i, back.Aspects[i])
		}
	}
	for name, level := range original.Skills {
		if back.Skills[name] != level {
			t.Fatalf("skill %s changed: %d", name, back.Skills[name])
		}
	}
}

func TestSpawnDoesNotAliasTemplate(t *testing.T) {
	tmpl := template()
	live, err := FromArchetype("npc-1", tmpl, time.Now())
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	live.Skills["Fight"] = 5
	live.Aspects[0] = "changed"
	if tmpl.Skills["Fight"] != 2 || tmpl.Aspects[0] != "All Teeth and Hunger" {
		t.Fatal("live npc aliases template storage")
	}
}

func TestParseKind(t *testing.T) {
	if _, ok := ParseKind("monstro"); !ok {
		t.Fatal("expected monstro to parse")
	}
	if _, ok := ParseKind("pessoa"); !ok {
		t.Fatal("expected pessoa to parse")
	}
	if _, ok := ParseKind("golem"); ok {
		t.Fatal("expected unknown kind to fail")
	}
}
