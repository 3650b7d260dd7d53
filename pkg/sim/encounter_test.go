package sim

import "testing"

func TestDefaultSpawnMonsters_IsDeterministic(t *testing.T) {
	spawn := DefaultSpawnMonsters(3)
	a := spawn(7, 42, 0)
	b := spawn(7, 42, 0)

	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("expected 3 units, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Position != b[i].Position || a[i].Archetype != b[i].Archetype {
			t.Fatalf("spawn %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestDefaultSpawnMonsters_ZeroCountReturnsNil(t *testing.T) {
	spawn := DefaultSpawnMonsters(0)
	if got := spawn(1, 1, 0); got != nil {
		t.Fatalf("expected nil roster for zero count, got %v", got)
	}
}

func TestDefaultSpawnMonsters_UsesPublishedArchetypes(t *testing.T) {
	spawn := DefaultSpawnMonsters(6)
	units := spawn(1, 1, 0)
	for _, u := range units {
		if _, ok := DefaultLootTable[u.Archetype]; !ok {
			t.Fatalf("unit archetype %q has no loot table entry", u.Archetype)
		}
	}
}

func TestDefaultSpawnMonsters_ExistingOffsetsUnitIDs(t *testing.T) {
	spawn := DefaultSpawnMonsters(2)
	first := spawn(1, 1, 0)
	second := spawn(1, 1, 5)

	for i := range first {
		if first[i].ID == second[i].ID {
			t.Fatalf("expected distinct ids for different existing offsets, got %q twice", first[i].ID)
		}
	}
}
