package sim

// Weapon is static content: its damage contribution to an attack.
// Weapons are never mutated by the simulation, only referenced by id.
type Weapon struct {
	ID     string
	Name   string
	Damage int
}

// WeaponCatalog resolves a weapon id to its static definition.
type WeaponCatalog map[string]Weapon

// DamageOf returns the weapon's damage bonus, or 0 for an empty or
// unknown id (treated as unarmed).
func (c WeaponCatalog) DamageOf(weaponID string) int {
	if weaponID == "" {
		return 0
	}
	if w, ok := c[weaponID]; ok {
		return w.Damage
	}
	return 0
}

// DefaultWeaponCatalog is the reference weapon set this server ships
// with; sessions may be configured with a different catalog.
var DefaultWeaponCatalog = WeaponCatalog{
	"rusty-dagger": {ID: "rusty-dagger", Name: "Rusty Dagger", Damage: 2},
	"bone-shard":   {ID: "bone-shard", Name: "Bone Shard", Damage: 1},
	"iron-axe":     {ID: "iron-axe", Name: "Iron Axe", Damage: 4},
	"short-sword":  {ID: "short-sword", Name: "Short Sword", Damage: 3},
	"longbow":      {ID: "longbow", Name: "Longbow", Damage: 3},
}

// Simulator bundles the Simulation Core's two pieces of static content:
// the weapon catalog and the loot table. It holds no mutable game state
// of its own; every GameState it is handed is treated as immutable input
// and a fresh GameState is returned.
type Simulator struct {
	Weapons WeaponCatalog
	Loot    LootTable
}

// NewSimulator builds a Simulator configured with the reference weapon
// catalog and loot table.
func NewSimulator() *Simulator {
	return &Simulator{Weapons: DefaultWeaponCatalog, Loot: DefaultLootTable}
}
