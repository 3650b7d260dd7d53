package sim

import (
	"sort"

	"runeforge/pkg/pathing"
	"runeforge/pkg/worldmap"
)

// StartCombat rolls initiative over every unit currently in state, sets
// combat in progress at round 1, and emits combat-started followed by
// turn-started for the first non-defeated unit. It is deterministic in
// state alone: initiative order depends only on each unit's Initiative
// stat and id, never on wall-clock time or a live RNG draw.
func (s *Simulator) StartCombat(state *GameState) (*GameState, []Event) {
	out := state.Clone()

	order := append([]string(nil), out.UnitOrder...)
	sort.Slice(order, func(i, j int) bool {
		ui, uj := out.Units[order[i]], out.Units[order[j]]
		if ui.Initiative != uj.Initiative {
			return ui.Initiative > uj.Initiative
		}
		return order[i] < order[j] // lexicographic tie-break
	})

	out.Combat = Combat{
		Status:          CombatInProgress,
		Round:           1,
		InitiativeOrder: order,
		CurrentIndex:    0,
	}

	events := []Event{newEvent(EventCombatStarted, map[string]interface{}{
		"initiative-order": order,
	})}

	idx, ok := firstLivingFrom(out, 0)
	if ok {
		out.Combat.CurrentIndex = idx
		out.Combat.Turn = startTurnFor(out.Units[order[idx]])
		events = append(events, newEvent(EventTurnStarted, map[string]interface{}{
			"unit-id": order[idx],
			"round":   out.Combat.Round,
		}))
	}

	return out, events
}

func startTurnFor(u *Unit) TurnState {
	return TurnState{UnitID: u.ID, MovementRemaining: u.MoveRange, HasActed: false}
}

// firstLivingFrom finds the first non-defeated unit at or after idx in
// the initiative order, wrapping once. Returns false if every unit is
// defeated.
func firstLivingFrom(state *GameState, idx int) (int, bool) {
	n := len(state.Combat.InitiativeOrder)
	if n == 0 {
		return 0, false
	}
	for i := 0; i < n; i++ {
		candidate := (idx + i) % n
		u := state.Units[state.Combat.InitiativeOrder[candidate]]
		if u != nil && !u.Defeated() {
			return candidate, true
		}
	}
	return 0, false
}

// Execute is the single point of truth for legality and effect. Given
// the same (state, action) it always returns the same (state', events);
// it performs no I/O and reads no clock.
func (s *Simulator) Execute(state *GameState, action Action) (*GameState, []Event, error) {
	if state.Combat.Status == CombatEndedVictory || state.Combat.Status == CombatEndedDefeat {
		return state, nil, reject(CodeSessionEnded, "combat has already ended")
	}

	switch a := action.(type) {
	case MoveAction:
		return s.executeMove(state, a)
	case AttackAction:
		return s.executeAttack(state, a)
	case CollectLootAction:
		return s.executeCollectLoot(state, a)
	case EndTurnAction:
		return s.executeEndTurn(state, a)
	case GrantAction:
		return s.executeGrant(state, a)
	default:
		return state, nil, reject(CodeInvalidAction, "unrecognized action variant")
	}
}

func requireCurrentUnit(state *GameState, unitID string) (*Unit, error) {
	if state.Combat.Status != CombatInProgress {
		return nil, reject(CodeSessionEnded, "combat is not in progress")
	}
	if state.Combat.Turn.UnitID != unitID {
		return nil, reject(CodeNotYourTurn, "it is not this unit's turn")
	}
	u, ok := state.Units[unitID]
	if !ok {
		return nil, reject(CodeUnknownUnit, "unit does not exist")
	}
	return u, nil
}

func (s *Simulator) executeMove(state *GameState, a MoveAction) (*GameState, []Event, error) {
	unit, err := requireCurrentUnit(state, a.UnitID)
	if err != nil {
		return state, nil, err
	}
	if len(a.Path) == 0 {
		return state, nil, reject(CodeInvalidAction, "move requires at least one step")
	}

	endpoint := a.Path[len(a.Path)-1]
	m := worldmap.New(state.MapSeed)
	blockers := unitBlockers{state: state, exclude: unit.ID}

	canonical, ok := pathing.FindPath(m, unit.Position, endpoint, state.Combat.Turn.MovementRemaining, blockers)
	if !ok {
		return state, nil, reject(CodeNoPath, "no path to the requested destination within movement remaining")
	}
	cost := len(canonical) - 1

	out := state.Clone()
	outUnit := out.Units[unit.ID]
	outUnit.Position = endpoint
	out.Combat.Turn.MovementRemaining -= cost

	events := []Event{newEvent(EventUnitMoved, map[string]interface{}{
		"unit-id":            unit.ID,
		"path":               canonical,
		"movement-remaining": out.Combat.Turn.MovementRemaining,
	})}
	out.Seq++

	return out, events, nil
}

func (s *Simulator) executeAttack(state *GameState, a AttackAction) (*GameState, []Event, error) {
	attacker, err := requireCurrentUnit(state, a.UnitID)
	if err != nil {
		return state, nil, err
	}
	if state.Combat.Turn.HasActed {
		return state, nil, reject(CodeAlreadyActed, "unit has already acted this turn")
	}

	target, ok := state.Units[a.TargetID]
	if !ok {
		return state, nil, reject(CodeUnknownTarget, "target does not exist")
	}
	if target.Defeated() {
		return state, nil, reject(CodeTargetDead, "target is already defeated")
	}
	if pathing.Distance(attacker.Position, target.Position) > attacker.AttackRange {
		return state, nil, reject(CodeOutOfRange, "target is out of attack range")
	}
	m := worldmap.New(state.MapSeed)
	if !pathing.HasLOS(m, attacker.Position, target.Position) {
		return state, nil, reject(CodeNoLOS, "no line of sight to target")
	}

	damage := attacker.Attack + s.Weapons.DamageOf(attacker.EquippedWeaponID) - target.Defense
	if damage < 1 {
		damage = 1
	}

	out := state.Clone()
	out.Combat.Turn.HasActed = true
	outTarget := out.Units[target.ID]
	outTarget.HP -= damage
	if outTarget.HP < 0 {
		outTarget.HP = 0
	}

	events := []Event{
		newEvent(EventUnitAttacked, map[string]interface{}{
			"attacker-id": attacker.ID,
			"target-id":   target.ID,
		}),
		newEvent(EventUnitDamaged, map[string]interface{}{
			"unit-id": target.ID,
			"damage":  damage,
			"hp":      outTarget.HP,
		}),
	}

	if outTarget.HP == 0 {
		defeatData := map[string]interface{}{"unit-id": target.ID}
		if outTarget.Kind == UnitMonster {
			rng := actionRNG(out.Seed, out.Seq)
			contents := RollLoot(s.Loot, outTarget.Archetype, rng)
			if len(contents.WeaponIDs) > 0 || contents.Gold > 0 || contents.Silver > 0 {
				dropID := outTarget.ID + "-drop"
				out.LootDrops[dropID] = &LootDrop{ID: dropID, Position: outTarget.Position, Contents: contents}
				out.LootOrder = append(out.LootOrder, dropID)
				defeatData["loot-drop-id"] = dropID
			}
		}
		events = append(events, newEvent(EventUnitDefeated, defeatData))
	}

	out.Seq++

	if endEvent, ended := checkVictoryDefeat(out); ended {
		events = append(events, endEvent)
	}

	return out, events, nil
}

func (s *Simulator) executeCollectLoot(state *GameState, a CollectLootAction) (*GameState, []Event, error) {
	unit, err := requireCurrentUnit(state, a.UnitID)
	if err != nil {
		return state, nil, err
	}
	if unit.Defeated() {
		return state, nil, reject(CodeUnknownUnit, "unit is defeated")
	}

	drop, ok := state.LootDrops[a.LootID]
	if !ok {
		return state, nil, reject(CodeUnknownLoot, "loot drop does not exist")
	}
	if drop.Position != unit.Position {
		return state, nil, reject(CodeNotOnLootTile, "unit is not on the loot's tile")
	}

	out := state.Clone()
	if inv, ok := out.Inventories[unit.ID]; ok {
		inv.Gold += drop.Contents.Gold
		inv.Silver += drop.Contents.Silver
		inv.OwnedWeaponIDs = append(inv.OwnedWeaponIDs, drop.Contents.WeaponIDs...)
	}
	delete(out.LootDrops, a.LootID)
	out.LootOrder = removeString(out.LootOrder, a.LootID)

	events := []Event{newEvent(EventLootCollected, map[string]interface{}{
		"unit-id": unit.ID,
		"loot-id": a.LootID,
	})}
	out.Seq++

	return out, events, nil
}

func (s *Simulator) executeEndTurn(state *GameState, a EndTurnAction) (*GameState, []Event, error) {
	_, err := requireCurrentUnit(state, a.UnitID)
	if err != nil {
		return state, nil, err
	}

	out := state.Clone()
	n := len(out.Combat.InitiativeOrder)

	idx, ok := firstLivingFrom(out, out.Combat.CurrentIndex+1)
	events := []Event{}
	if !ok {
		// No living units remain to take a turn; Execute's victory/defeat
		// check on the action that defeated the last unit should already
		// have ended combat before this path is reachable.
		return out, events, nil
	}

	// The round advances exactly once whenever advancing past the last
	// index in the order wraps back around to (or past) index 0.
	if idx <= out.Combat.CurrentIndex || out.Combat.CurrentIndex+1 >= n {
		out.Combat.Round++
	}
	out.Combat.CurrentIndex = idx
	out.Combat.Turn = startTurnFor(out.Units[out.Combat.InitiativeOrder[idx]])

	events = append(events, newEvent(EventTurnStarted, map[string]interface{}{
		"unit-id": out.Combat.Turn.UnitID,
		"round":   out.Combat.Round,
	}))
	out.Seq++

	return out, events, nil
}

// executeGrant applies a DM-issued currency/item adjustment to unit's
// inventory. It deliberately does not call requireCurrentUnit: a grant
// is not an action the acting unit takes on its own turn, it is a DM
// control operation that happens to flow through the same versioned
// mutation path.
func (s *Simulator) executeGrant(state *GameState, a GrantAction) (*GameState, []Event, error) {
	if state.Combat.Status != CombatInProgress {
		return state, nil, reject(CodeSessionEnded, "combat is not in progress")
	}
	unit, ok := state.Units[a.UnitID]
	if !ok {
		return state, nil, reject(CodeUnknownUnit, "unit does not exist")
	}
	if unit.Defeated() {
		return state, nil, reject(CodeUnknownUnit, "unit is defeated")
	}

	out := state.Clone()
	if inv, ok := out.Inventories[a.UnitID]; ok {
		inv.Gold += a.Gold
		inv.Silver += a.Silver
		inv.OwnedWeaponIDs = append(inv.OwnedWeaponIDs, a.WeaponIDs...)
	}
	out.Seq++

	events := []Event{newEvent(EventUnitGranted, map[string]interface{}{
		"unit-id": a.UnitID,
		"gold":    a.Gold,
		"silver":  a.Silver,
		"weapons": a.WeaponIDs,
	})}

	return out, events, nil
}

// checkVictoryDefeat evaluates the standard post-action victory/defeat
// check: every monster defeated is a victory, every player unit defeated
// is a defeat. It mutates state.Combat.Status in place on the state
// already cloned by the caller.
func checkVictoryDefeat(state *GameState) (Event, bool) {
	anyMonsterAlive := false
	anyPlayerAlive := false
	for _, id := range state.UnitOrder {
		u := state.Units[id]
		if u.Defeated() {
			continue
		}
		switch u.Kind {
		case UnitMonster:
			anyMonsterAlive = true
		case UnitPlayer:
			anyPlayerAlive = true
		}
	}

	switch {
	case !anyMonsterAlive:
		state.Combat.Status = CombatEndedVictory
		return newEvent(EventCombatEnded, map[string]interface{}{"result": "victory"}), true
	case !anyPlayerAlive:
		state.Combat.Status = CombatEndedDefeat
		return newEvent(EventCombatEnded, map[string]interface{}{"result": "defeat"}), true
	default:
		return Event{}, false
	}
}

func removeString(list []string, target string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

// ValidMoveTargets returns every position the current unit could legally
// move to this turn. It MUST agree with Execute: any position here
// succeeds as a MoveAction endpoint, and no position outside this set
// does.
func (s *Simulator) ValidMoveTargets(state *GameState) map[Position]bool {
	unit, ok := state.CurrentUnit()
	if !ok {
		return map[Position]bool{}
	}
	m := worldmap.New(state.MapSeed)
	blockers := unitBlockers{state: state, exclude: unit.ID}
	return pathing.Reachable(m, unit.Position, state.Combat.Turn.MovementRemaining, blockers)
}

// ValidAttackTargets returns the ids of every unit the current unit
// could legally attack this turn.
func (s *Simulator) ValidAttackTargets(state *GameState) []string {
	unit, ok := state.CurrentUnit()
	if !ok || state.Combat.Turn.HasActed {
		return nil
	}
	m := worldmap.New(state.MapSeed)

	var targets []string
	for _, id := range state.UnitOrder {
		if id == unit.ID {
			continue
		}
		candidate := state.Units[id]
		if candidate.Defeated() {
			continue
		}
		if pathing.Distance(unit.Position, candidate.Position) > unit.AttackRange {
			continue
		}
		if !pathing.HasLOS(m, unit.Position, candidate.Position) {
			continue
		}
		targets = append(targets, id)
	}
	return targets
}
