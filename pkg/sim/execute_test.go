package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runeforge/pkg/worldmap"
)

// adjacentWalkablePair scans outward from the origin for two orthogonally
// adjacent tiles that are both walkable, so movement tests never depend on
// a hardcoded assumption about what the noise-derived terrain looks like
// at a particular coordinate.
func adjacentWalkablePair(t *testing.T, m *worldmap.Map) (Position, Position) {
	t.Helper()
	for r := 0; r < 40; r++ {
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				p0 := Position{X: dx, Y: dy}
				if !m.TileAt(p0.X, p0.Y).Walkable() {
					continue
				}
				for _, d := range []Position{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}, {X: 0, Y: -1}} {
					p1 := Position{X: p0.X + d.X, Y: p0.Y + d.Y}
					if m.TileAt(p1.X, p1.Y).Walkable() {
						return p0, p1
					}
				}
			}
		}
	}
	t.Fatal("no adjacent walkable pair found near origin")
	return Position{}, Position{}
}

func twoWarriorState() *GameState {
	state := NewGameState(12345, 12345)
	a := &Unit{ID: "A", Kind: UnitPlayer, Position: Position{X: 0, Y: 0}, HP: 20, HPMax: 20, Attack: 6, Defense: 2, Initiative: 10, MoveRange: 3, AttackRange: 1}
	b := &Unit{ID: "B", Kind: UnitPlayer, Position: Position{X: 0, Y: 0}, HP: 20, HPMax: 20, Attack: 6, Defense: 2, Initiative: 10, MoveRange: 3, AttackRange: 1}
	state.AddUnit(a)
	state.AddUnit(b)
	return state
}

// adjacentUnitsState places two units a Chebyshev distance of 1 apart
// directly (no pathfinding involved), which is always legal regardless of
// terrain since adjacency guarantees an unobstructed line of sight and
// this layer never requires a unit's own tile to be walkable.
func adjacentUnitsState(mapSeed int32, sessionSeed int64) *GameState {
	state := NewGameState(mapSeed, sessionSeed)
	a := &Unit{ID: "A", Kind: UnitPlayer, Position: Position{X: 0, Y: 0}, HP: 20, HPMax: 20, Attack: 6, Defense: 2, Initiative: 10, MoveRange: 3, AttackRange: 1}
	b := &Unit{ID: "B", Kind: UnitPlayer, Position: Position{X: 0, Y: 1}, HP: 20, HPMax: 20, Attack: 6, Defense: 2, Initiative: 5, MoveRange: 3, AttackRange: 1}
	state.AddUnit(a)
	state.AddUnit(b)
	return state
}

func TestStartCombat_InitiativeTieBreaksLexicographically(t *testing.T) {
	sim := NewSimulator()
	state := twoWarriorState()

	out, events := sim.StartCombat(state)

	require.Equal(t, []string{"A", "B"}, out.Combat.InitiativeOrder)
	require.Equal(t, CombatInProgress, out.Combat.Status)
	require.Equal(t, 1, out.Combat.Round)
	require.Equal(t, "A", out.Combat.Turn.UnitID)
	require.Equal(t, 3, out.Combat.Turn.MovementRemaining)
	require.False(t, out.Combat.Turn.HasActed)

	require.Len(t, events, 2)
	assert.Equal(t, EventCombatStarted, events[0].Type)
	assert.Equal(t, EventTurnStarted, events[1].Type)
}

func TestMoveThenAttackScenario(t *testing.T) {
	sim := NewSimulator()
	m := worldmap.New(12345)
	p0, p1 := adjacentWalkablePair(t, m)

	state := NewGameState(12345, 12345)
	a := &Unit{ID: "A", Kind: UnitPlayer, Position: p0, HP: 20, HPMax: 20, Attack: 6, Defense: 2, Initiative: 10, MoveRange: 3, AttackRange: 1}
	b := &Unit{ID: "B", Kind: UnitPlayer, Position: Position{X: p1.X + (p1.X - p0.X), Y: p1.Y + (p1.Y - p0.Y)}, HP: 20, HPMax: 20, Attack: 6, Defense: 2, Initiative: 5, MoveRange: 3, AttackRange: 1}
	state.AddUnit(a)
	state.AddUnit(b)
	state, _ = sim.StartCombat(state)

	moved, events, err := sim.Execute(state, MoveAction{UnitID: "A", Path: []Position{p1}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventUnitMoved, events[0].Type)
	assert.Equal(t, p1, moved.Units["A"].Position)
	assert.Equal(t, 2, moved.Combat.Turn.MovementRemaining)
	// original state must be untouched: Execute never mutates its input.
	assert.Equal(t, p0, state.Units["A"].Position)

	attacked, events, err := sim.Execute(moved, AttackAction{UnitID: "A", TargetID: "B"})
	require.NoError(t, err)
	require.True(t, attacked.Combat.Turn.HasActed)

	var damaged *Event
	for i := range events {
		if events[i].Type == EventUnitDamaged {
			damaged = &events[i]
		}
	}
	require.NotNil(t, damaged)
	expectedDamage := 6 - 2 // attacker.attack - target.defense, unarmed
	assert.Equal(t, expectedDamage, damaged.Data["damage"])
	assert.Equal(t, 20-expectedDamage, attacked.Units["B"].HP)
}

func TestExecute_RejectsActionsOutOfTurn(t *testing.T) {
	sim := NewSimulator()
	state := adjacentUnitsState(1, 1)
	state, _ = sim.StartCombat(state) // it is A's turn

	_, _, err := sim.Execute(state, EndTurnAction{UnitID: "B"})
	require.Error(t, err)
	var rejErr *IllegalActionError
	require.ErrorAs(t, err, &rejErr)
	assert.Equal(t, CodeNotYourTurn, rejErr.Code)
}

func TestExecute_AttackOutOfRangeRejected(t *testing.T) {
	sim := NewSimulator()
	state := NewGameState(1, 1)
	a := &Unit{ID: "A", Kind: UnitPlayer, Position: Position{0, 0}, HP: 20, HPMax: 20, Attack: 6, Defense: 2, Initiative: 10, MoveRange: 3, AttackRange: 1}
	b := &Unit{ID: "B", Kind: UnitPlayer, Position: Position{0, 2}, HP: 20, HPMax: 20, Attack: 6, Defense: 2, Initiative: 5, MoveRange: 3, AttackRange: 1}
	state.AddUnit(a)
	state.AddUnit(b)
	state, _ = sim.StartCombat(state)

	_, _, err := sim.Execute(state, AttackAction{UnitID: "A", TargetID: "B"})
	require.Error(t, err)
	var rejErr *IllegalActionError
	require.ErrorAs(t, err, &rejErr)
	assert.Equal(t, CodeOutOfRange, rejErr.Code)
}

func TestExecute_AttackAtExactRangeAccepted(t *testing.T) {
	sim := NewSimulator()
	state := adjacentUnitsState(1, 1) // A and B one tile apart, attack range 1
	state, _ = sim.StartCombat(state)

	_, _, err := sim.Execute(state, AttackAction{UnitID: "A", TargetID: "B"})
	require.NoError(t, err)
}

func TestExecute_DamageClampedToMinimumOne(t *testing.T) {
	sim := NewSimulator()
	state := NewGameState(1, 1)
	a := &Unit{ID: "A", Kind: UnitPlayer, Position: Position{0, 0}, HP: 10, HPMax: 10, Attack: 1, Defense: 1, Initiative: 5, MoveRange: 2, AttackRange: 5}
	b := &Unit{ID: "B", Kind: UnitMonster, Archetype: "goblin", Position: Position{0, 1}, HP: 10, HPMax: 10, Attack: 1, Defense: 50, Initiative: 1, MoveRange: 2, AttackRange: 1}
	state.AddUnit(a)
	state.AddUnit(b)
	state, _ = sim.StartCombat(state)

	out, events, err := sim.Execute(state, AttackAction{UnitID: "A", TargetID: "B"})
	require.NoError(t, err)
	var damaged Event
	for _, e := range events {
		if e.Type == EventUnitDamaged {
			damaged = e
		}
	}
	assert.Equal(t, 1, damaged.Data["damage"])
	assert.Equal(t, 9, out.Units["B"].HP)
}

func TestExecute_DefeatedMonsterDropsLootAndEndsCombat(t *testing.T) {
	sim := NewSimulator()
	state := NewGameState(1, 777)
	a := &Unit{ID: "A", Kind: UnitPlayer, Position: Position{0, 0}, HP: 10, HPMax: 10, Attack: 20, Defense: 1, Initiative: 5, MoveRange: 2, AttackRange: 5}
	b := &Unit{ID: "B", Kind: UnitMonster, Archetype: "goblin", Position: Position{0, 1}, HP: 1, HPMax: 1, Attack: 1, Defense: 0, Initiative: 1, MoveRange: 2, AttackRange: 1}
	state.AddUnit(a)
	state.AddUnit(b)
	state, _ = sim.StartCombat(state)

	out, events, err := sim.Execute(state, AttackAction{UnitID: "A", TargetID: "B"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Units["B"].HP)
	assert.Equal(t, CombatEndedVictory, out.Combat.Status)

	var sawDefeat, sawEnd bool
	for _, e := range events {
		if e.Type == EventUnitDefeated {
			sawDefeat = true
		}
		if e.Type == EventCombatEnded {
			sawEnd = true
			assert.Equal(t, "victory", e.Data["result"])
		}
	}
	assert.True(t, sawDefeat)
	assert.True(t, sawEnd)
}

func TestExecute_CollectLootRequiresSameTile(t *testing.T) {
	sim := NewSimulator()
	state := adjacentUnitsState(1, 1)
	state, _ = sim.StartCombat(state)
	state.LootDrops["loot-1"] = &LootDrop{ID: "loot-1", Position: Position{5, 5}, Contents: LootContents{Gold: 3}}

	_, _, err := sim.Execute(state, CollectLootAction{UnitID: "A", LootID: "loot-1"})
	require.Error(t, err)
	var rejErr *IllegalActionError
	require.ErrorAs(t, err, &rejErr)
	assert.Equal(t, CodeNotOnLootTile, rejErr.Code)
}

func TestExecute_CollectLootIsFreeAndRemovesDrop(t *testing.T) {
	sim := NewSimulator()
	state := adjacentUnitsState(1, 1)
	state, _ = sim.StartCombat(state)
	state.LootDrops["loot-1"] = &LootDrop{ID: "loot-1", Position: Position{0, 0}, Contents: LootContents{Gold: 3, Silver: 2}}
	state.LootOrder = []string{"loot-1"}

	out, events, err := sim.Execute(state, CollectLootAction{UnitID: "A", LootID: "loot-1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventLootCollected, events[0].Type)
	assert.Equal(t, 3, out.Inventories["A"].Gold)
	assert.Equal(t, 2, out.Inventories["A"].Silver)
	_, stillThere := out.LootDrops["loot-1"]
	assert.False(t, stillThere)
	// collect-loot must not consume movement or the turn's action.
	assert.Equal(t, state.Combat.Turn.MovementRemaining, out.Combat.Turn.MovementRemaining)
	assert.False(t, out.Combat.Turn.HasActed)
}

func TestExecute_GrantAddsToInventoryRegardlessOfTurnOwner(t *testing.T) {
	sim := NewSimulator()
	state := adjacentUnitsState(1, 1)
	state, _ = sim.StartCombat(state)
	require.Equal(t, "A", state.Combat.Turn.UnitID)

	// B is not the current unit; a grant must still succeed.
	out, events, err := sim.Execute(state, GrantAction{UnitID: "B", Gold: 50, Silver: 10, WeaponIDs: []string{"short-sword"}})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventUnitGranted, events[0].Type)
	assert.Equal(t, 50, out.Inventories["B"].Gold)
	assert.Equal(t, 10, out.Inventories["B"].Silver)
	assert.Contains(t, out.Inventories["B"].OwnedWeaponIDs, "short-sword")
	// A grant never consumes the acting unit's movement or action.
	assert.Equal(t, state.Combat.Turn, out.Combat.Turn)
}

func TestExecute_GrantRejectsUnknownUnit(t *testing.T) {
	sim := NewSimulator()
	state := adjacentUnitsState(1, 1)
	state, _ = sim.StartCombat(state)

	_, _, err := sim.Execute(state, GrantAction{UnitID: "nobody", Gold: 1})
	require.Error(t, err)
	var rejErr *IllegalActionError
	require.ErrorAs(t, err, &rejErr)
	assert.Equal(t, CodeUnknownUnit, rejErr.Code)
}

func TestExecute_EndTurnAdvancesAndSkipsDefeated(t *testing.T) {
	sim := NewSimulator()
	state := NewGameState(1, 1)
	a := &Unit{ID: "A", Kind: UnitPlayer, Position: Position{0, 0}, HP: 10, HPMax: 10, Attack: 1, Defense: 1, Initiative: 10, MoveRange: 2, AttackRange: 1}
	b := &Unit{ID: "B", Kind: UnitMonster, Archetype: "goblin", Position: Position{1, 0}, HP: 0, HPMax: 10, Attack: 1, Defense: 1, Initiative: 5, MoveRange: 2, AttackRange: 1}
	c := &Unit{ID: "C", Kind: UnitMonster, Archetype: "goblin", Position: Position{2, 0}, HP: 10, HPMax: 10, Attack: 1, Defense: 1, Initiative: 1, MoveRange: 2, AttackRange: 1}
	state.AddUnit(a)
	state.AddUnit(b)
	state.AddUnit(c)
	state, _ = sim.StartCombat(state)
	require.Equal(t, "A", state.Combat.Turn.UnitID)

	out, events, err := sim.Execute(state, EndTurnAction{UnitID: "A"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventTurnStarted, events[0].Type)
	// B is defeated (hp=0), so the turn should skip over it straight to C.
	assert.Equal(t, "C", out.Combat.Turn.UnitID)
	assert.Equal(t, 1, out.Combat.Round)

	out2, _, err := sim.Execute(out, EndTurnAction{UnitID: "C"})
	require.NoError(t, err)
	assert.Equal(t, "A", out2.Combat.Turn.UnitID)
	assert.Equal(t, 2, out2.Combat.Round, "wrapping back to A must advance the round")
}

func TestExecute_IsPureAndDeterministic(t *testing.T) {
	sim := NewSimulator()
	state := adjacentUnitsState(1, 1)
	state, _ = sim.StartCombat(state)
	action := AttackAction{UnitID: "A", TargetID: "B"}

	out1, events1, err1 := sim.Execute(state, action)
	out2, events2, err2 := sim.Execute(state, action)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, out1.Units["B"].HP, out2.Units["B"].HP)
	assert.Equal(t, out1.Combat.Turn, out2.Combat.Turn)
	assert.Equal(t, events1, events2)
}

func TestValidMoveTargets_AgreesWithExecute(t *testing.T) {
	sim := NewSimulator()
	state := adjacentUnitsState(1, 1)
	state, _ = sim.StartCombat(state)

	targets := sim.ValidMoveTargets(state)
	require.NotEmpty(t, targets)
	for p := range targets {
		if p == state.Units["A"].Position {
			continue
		}
		_, _, err := sim.Execute(state, MoveAction{UnitID: "A", Path: []Position{p}})
		assert.NoError(t, err, "position %v reported valid but Execute rejected it", p)
	}
}

func TestValidAttackTargets_AgreesWithExecute(t *testing.T) {
	sim := NewSimulator()
	state := adjacentUnitsState(1, 1)
	state, _ = sim.StartCombat(state)

	targets := sim.ValidAttackTargets(state)
	require.Contains(t, targets, "B")
	for _, id := range targets {
		_, _, err := sim.Execute(state, AttackAction{UnitID: "A", TargetID: id})
		assert.NoError(t, err, "target %s reported valid but Execute rejected it", id)
	}
}

func TestExecute_MoveBeyondBudgetRejected(t *testing.T) {
	sim := NewSimulator()
	state := adjacentUnitsState(1, 1)
	state, _ = sim.StartCombat(state)

	far := Position{X: 100000, Y: 100000}
	_, _, err := sim.Execute(state, MoveAction{UnitID: "A", Path: []Position{far}})
	require.Error(t, err)
	var rejErr *IllegalActionError
	require.ErrorAs(t, err, &rejErr)
	assert.Equal(t, CodeNoPath, rejErr.Code)
}

func TestExecute_SeqAdvancesByExactlyOnePerAcceptedAction(t *testing.T) {
	sim := NewSimulator()
	state := adjacentUnitsState(1, 1)
	state, _ = sim.StartCombat(state)
	require.Equal(t, uint64(0), state.Seq)

	// attack: A hits B.
	state, _, err := sim.Execute(state, AttackAction{UnitID: "A", TargetID: "B"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), state.Seq)

	// end-turn: A yields to B.
	state, _, err = sim.Execute(state, EndTurnAction{UnitID: "A"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), state.Seq)
	require.Equal(t, "B", state.Combat.Turn.UnitID)

	// collect-loot: B picks up a drop placed on its own tile.
	state.LootDrops["loot-1"] = &LootDrop{ID: "loot-1", Position: Position{0, 1}, Contents: LootContents{Gold: 1}}
	state.LootOrder = []string{"loot-1"}
	state, _, err = sim.Execute(state, CollectLootAction{UnitID: "B", LootID: "loot-1"})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), state.Seq)

	// move: B steps to an adjacent reachable tile.
	targets := sim.ValidMoveTargets(state)
	var dest Position
	var found bool
	for p := range targets {
		if p != state.Units["B"].Position {
			dest, found = p, true
			break
		}
	}
	require.True(t, found, "expected at least one reachable tile besides B's own")
	state, _, err = sim.Execute(state, MoveAction{UnitID: "B", Path: []Position{dest}})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), state.Seq)
}

func TestExecute_RejectsAfterCombatEnded(t *testing.T) {
	sim := NewSimulator()
	state := NewGameState(1, 1)
	a := &Unit{ID: "A", Kind: UnitPlayer, Position: Position{0, 0}, HP: 10, HPMax: 10, Attack: 20, Defense: 1, Initiative: 5, MoveRange: 2, AttackRange: 5}
	b := &Unit{ID: "B", Kind: UnitMonster, Archetype: "goblin", Position: Position{0, 1}, HP: 1, HPMax: 1, Attack: 1, Defense: 0, Initiative: 1, MoveRange: 2, AttackRange: 1}
	state.AddUnit(a)
	state.AddUnit(b)
	state, _ = sim.StartCombat(state)

	out, _, err := sim.Execute(state, AttackAction{UnitID: "A", TargetID: "B"})
	require.NoError(t, err)
	require.Equal(t, CombatEndedVictory, out.Combat.Status)

	_, _, err = sim.Execute(out, EndTurnAction{UnitID: "A"})
	require.Error(t, err)
	var rejErr *IllegalActionError
	require.ErrorAs(t, err, &rejErr)
	assert.Equal(t, CodeSessionEnded, rejErr.Code)
}
