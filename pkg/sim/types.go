// Package sim implements the deterministic headless combat simulation:
// a pure function from (GameState, Action) to (GameState, []Event). No
// operation here performs I/O, logs, or reads a clock; everything it
// needs is either in the GameState it is given or in the Simulator's
// static content (weapon catalog and loot table).
package sim

import "runeforge/pkg/pathing"

// Position is the grid coordinate type used throughout the simulation.
type Position = pathing.Position

// UnitKind identifies what a Unit represents.
type UnitKind int

const (
	UnitPlayer UnitKind = iota
	UnitNPC
	UnitMonster
)

// Unit is a combatant: a player character, a DM-controlled NPC, or a
// monster. Invariant: 0 <= HP <= HPMax; a Unit with HP == 0 is defeated
// and no longer occupies its tile for pathfinding purposes.
type Unit struct {
	ID               string
	Kind             UnitKind
	Archetype        string // monster/NPC species, e.g. "goblin"; empty for players
	OwnerPrincipal   string // empty for NPCs and monsters
	Position         Position
	HP               int
	HPMax            int
	Attack           int
	Defense          int
	Initiative       int
	MoveRange        int
	AttackRange      int
	EquippedWeaponID string // empty if unarmed
}

// Defeated reports whether this unit has been reduced to 0 HP.
func (u Unit) Defeated() bool { return u.HP <= 0 }

func (u Unit) clone() Unit { return u }

// CombatStatus is the top-level phase of one engagement.
type CombatStatus int

const (
	CombatNotStarted CombatStatus = iota
	CombatInProgress
	CombatEndedVictory
	CombatEndedDefeat
)

// TurnState describes the unit currently acting and what it has left to
// spend this turn. It is (re)created whenever the acting unit changes.
type TurnState struct {
	UnitID            string
	MovementRemaining int
	HasActed          bool
}

// Combat holds the initiative order (fixed at combat start, stable
// thereafter; defeated units are skipped, never removed), the round
// counter, and the current turn.
type Combat struct {
	Status          CombatStatus
	Round           int
	InitiativeOrder []string
	CurrentIndex    int
	Turn            TurnState
}

func (c Combat) clone() Combat {
	order := make([]string, len(c.InitiativeOrder))
	copy(order, c.InitiativeOrder)
	c.InitiativeOrder = order
	return c
}

// LootContents is what a defeated monster leaves behind.
type LootContents struct {
	WeaponIDs []string
	Gold      int
	Silver    int
}

// LootDrop exists on the board until collected, at which point it is
// removed atomically.
type LootDrop struct {
	ID       string
	Position Position
	Contents LootContents
}

// Inventory is the per-player-unit owned-items ledger. EquippedWeaponID,
// if set, must be present in OwnedWeaponIDs.
type Inventory struct {
	Gold             int
	Silver           int
	OwnedWeaponIDs   []string
	EquippedWeaponID string
}

func (inv Inventory) clone() Inventory {
	owned := make([]string, len(inv.OwnedWeaponIDs))
	copy(owned, inv.OwnedWeaponIDs)
	inv.OwnedWeaponIDs = owned
	return inv
}

func (inv *Inventory) owns(weaponID string) bool {
	for _, id := range inv.OwnedWeaponIDs {
		if id == weaponID {
			return true
		}
	}
	return false
}

// GameState is the entire authoritative ground truth for one session's
// combat. It serializes as a pure value; the world map is represented
// only by its seed (MapSeed) and is never carried as tile data.
type GameState struct {
	MapSeed int32
	Seed    int64 // per-session PRNG base seed, distinct from MapSeed
	Seq     uint64 // action-sequence-number; increments once per accepted action

	Units       map[string]*Unit
	UnitOrder   []string // insertion order, for deterministic iteration
	Combat      Combat
	LootDrops   map[string]*LootDrop
	LootOrder   []string
	Inventories map[string]*Inventory // keyed by player unit id
}

// NewGameState constructs an empty, not-yet-started game state for the
// given world and PRNG seeds.
func NewGameState(mapSeed int32, seed int64) *GameState {
	return &GameState{
		MapSeed:     mapSeed,
		Seed:        seed,
		Units:       make(map[string]*Unit),
		LootDrops:   make(map[string]*LootDrop),
		Inventories: make(map[string]*Inventory),
	}
}

// AddUnit registers a unit with the state, preserving insertion order for
// deterministic iteration (used by initiative tie-breaks and diffing).
func (s *GameState) AddUnit(u *Unit) {
	if _, exists := s.Units[u.ID]; !exists {
		s.UnitOrder = append(s.UnitOrder, u.ID)
	}
	s.Units[u.ID] = u
	if u.Kind == UnitPlayer {
		if _, exists := s.Inventories[u.ID]; !exists {
			s.Inventories[u.ID] = &Inventory{}
		}
	}
}

// Clone returns a deep copy of the state, the shape execute operates on:
// it never mutates its input, it returns a new value.
func (s *GameState) Clone() *GameState {
	out := &GameState{
		MapSeed:   s.MapSeed,
		Seed:      s.Seed,
		Seq:       s.Seq,
		Units:     make(map[string]*Unit, len(s.Units)),
		UnitOrder: append([]string(nil), s.UnitOrder...),
		Combat:    s.Combat.clone(),
		LootDrops: make(map[string]*LootDrop, len(s.LootDrops)),
		LootOrder: append([]string(nil), s.LootOrder...),
		Inventories: make(map[string]*Inventory, len(s.Inventories)),
	}
	for id, u := range s.Units {
		cloned := u.clone()
		out.Units[id] = &cloned
	}
	for id, l := range s.LootDrops {
		cloned := *l
		out.LootDrops[id] = &cloned
	}
	for id, inv := range s.Inventories {
		cloned := inv.clone()
		out.Inventories[id] = &cloned
	}
	return out
}

// CurrentUnit returns the acting unit, if combat is in progress.
func (s *GameState) CurrentUnit() (*Unit, bool) {
	if s.Combat.Status != CombatInProgress {
		return nil, false
	}
	u, ok := s.Units[s.Combat.Turn.UnitID]
	return u, ok
}

// livingUnitAt returns the living unit occupying p, if any.
func (s *GameState) livingUnitAt(p Position) (*Unit, bool) {
	for _, id := range s.UnitOrder {
		u := s.Units[id]
		if !u.Defeated() && u.Position == p {
			return u, true
		}
	}
	return nil, false
}

// unitBlockers reports a position as blocked when a living unit other
// than exclude occupies it, implementing the pathing.Blockers contract.
type unitBlockers struct {
	state   *GameState
	exclude string
}

func (b unitBlockers) Blocked(p Position) bool {
	u, ok := b.state.livingUnitAt(p)
	if !ok {
		return false
	}
	return u.ID != b.exclude
}
