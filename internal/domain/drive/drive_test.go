package drive

import "testing"

func TestCatalogConsistency(t *testing.T) {
	for id, d := range drives {
		if d.ID != id {
			t.Errorf("drive %s: mismatched ID %s", id, d.ID)
		}
		free, ok := LookupManeuver(d.FreeManeuver)
		if !ok {
			t.Errorf("drive %s: free maneuver %s missing from catalog", id, d.FreeManeuver)
			continue
		}
		if free.Drive != id {
			t.Errorf("drive %s: free maneuver %s belongs to %s", id, d.FreeManeuver, free.Drive)
		}
		for _, mid := range d.Exclusive {
			m, ok := LookupManeuver(mid)
			if !ok {
				t.Errorf("drive %s: exclusive maneuver %s missing from catalog", id, mid)
				continue
			}
			if m.Drive != id {
				t.Errorf("drive %s: exclusive maneuver %s belongs to %s", id, mid, m.Drive)
			}
		}
	}
}

func TestAvailableIncludesFreeManeuver(t *testing.T) {
	available := Available(Protection)
	if len(available) == 0 {
		t.Fatal("expected maneuvers for protection")
	}
	if available[0] != ManeuverShieldOther {
		t.Fatalf("expected free maneuver first, got %s", available[0])
	}
}

func TestAvailableUnknownDrive(t *testing.T) {
	if got := Available(ID("unknown")); got != nil {
		t.Fatalf("expected nil for unknown drive, got %v", got)
	}
}

func TestTrackBonus(t *testing.T) {
	physical, mental := TrackBonus(Protection)
	if physical != 1 || mental != 0 {
		t.Fatalf("protection: got (%d, %d), want (1, 0)", physical, mental)
	}
	physical, mental = TrackBonus(Vengeance)
	if physical != 0 || mental != 1 {
		t.Fatalf("vengeance: got (%d, %d), want (0, 1)", physical, mental)
	}
	physical, mental = TrackBonus(ID("unknown"))
	if physical != 0 || mental != 0 {
		t.Fatalf("unknown: got (%d, %d), want (0, 0)", physical, mental)
	}
}
