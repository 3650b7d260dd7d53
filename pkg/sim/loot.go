package sim

import "math/rand"

// LootTableEntry is one possible drop outcome and its relative weight.
type LootTableEntry struct {
	Weight    int
	WeaponIDs []string
	Gold      int
	Silver    int
}

// LootTable is the published, frozen drop distribution keyed by monster
// archetype. It is part of the determinism contract: given the same
// rng state, RollLoot always returns the same contents.
// The distilled requirements leave the exact table to the implementer;
// this is that choice, fixed here rather than left ambiguous.
type LootTable map[string][]LootTableEntry

// DefaultLootTable is the reference distribution shipped with this
// server. Sessions may supply their own via Simulator.Loot for custom
// content, but DefaultLootTable is what a fresh session uses.
var DefaultLootTable = LootTable{
	"goblin": {
		{Weight: 6, Gold: 0, Silver: 5},
		{Weight: 3, Gold: 2, Silver: 0},
		{Weight: 1, WeaponIDs: []string{"rusty-dagger"}},
	},
	"skeleton": {
		{Weight: 5, Gold: 0, Silver: 8},
		{Weight: 3, WeaponIDs: []string{"bone-shard"}},
		{Weight: 2, Gold: 5, Silver: 0},
	},
	"orc": {
		{Weight: 4, Gold: 10, Silver: 0},
		{Weight: 3, WeaponIDs: []string{"iron-axe"}},
		{Weight: 3, Gold: 3, Silver: 10},
	},
}

// emptyLoot is returned for archetypes with no table entry: nothing
// drops, deterministically.
var emptyLoot = LootContents{}

// RollLoot rolls a loot table entry for a defeated monster. It is
// deterministic in the rng passed in; Execute derives that per-action
// rng from (state.Seed, state.Seq), so the roll depends on the draws
// made before it in the same action.
func RollLoot(table LootTable, archetype string, rng *rand.Rand) LootContents {
	entries, ok := table[archetype]
	if !ok || len(entries) == 0 {
		return emptyLoot
	}

	total := 0
	for _, e := range entries {
		total += e.Weight
	}
	if total <= 0 {
		return emptyLoot
	}

	roll := rng.Intn(total)
	acc := 0
	for _, e := range entries {
		acc += e.Weight
		if roll < acc {
			return LootContents{
				WeaponIDs: append([]string(nil), e.WeaponIDs...),
				Gold:      e.Gold,
				Silver:    e.Silver,
			}
		}
	}
	return emptyLoot
}
