package sim

// Action is a sum type over the four legal player/NPC actions plus the
// DM-issued GrantAction. The
// switch in Execute is the single point of truth for which variants
// exist; adding a new action means adding a case there too.
type Action interface {
	actionUnitID() string
}

// MoveAction relocates a unit along a path, consuming movement_remaining.
type MoveAction struct {
	UnitID string
	Path   []Position // full path from the unit's current tile, exclusive of the starting tile
}

func (a MoveAction) actionUnitID() string { return a.UnitID }

// AttackAction resolves one unit's attack against another.
type AttackAction struct {
	UnitID   string
	TargetID string
}

func (a AttackAction) actionUnitID() string { return a.UnitID }

// CollectLootAction picks up a loot drop on the acting unit's tile.
type CollectLootAction struct {
	UnitID string
	LootID string
}

func (a CollectLootAction) actionUnitID() string { return a.UnitID }

// EndTurnAction voluntarily ends the acting unit's turn.
type EndTurnAction struct {
	UnitID string
}

func (a EndTurnAction) actionUnitID() string { return a.UnitID }

// GrantAction is a DM-issued currency/item adjustment, applied through
// the same versioned mutation path as an ordinary action rather than
// bypassing the version ledger. Unlike the other actions it is not
// gated on turn order: a DM may grant to any living unit at any point
// while combat is in progress.
type GrantAction struct {
	UnitID    string
	Gold      int
	Silver    int
	WeaponIDs []string
}

func (a GrantAction) actionUnitID() string { return a.UnitID }
