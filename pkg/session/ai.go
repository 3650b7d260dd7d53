package session

import (
	"runeforge/pkg/pathing"
	"runeforge/pkg/sim"
	"runeforge/pkg/worldmap"
)

// DecideNPCAction implements the scheduler's built-in strategy for an
// NPC or monster turn: attack the nearest living player if one is in
// range and in line of sight, otherwise move toward the nearest living
// player, otherwise end the turn. It is a pure function of state so
// that NPC turns go through the same execute path as a player action
// and advance version exactly like any other legal action.
func DecideNPCAction(simulator *sim.Simulator, state *sim.GameState) sim.Action {
	unit, ok := state.CurrentUnit()
	if !ok {
		return sim.EndTurnAction{}
	}

	targets := simulator.ValidAttackTargets(state)
	if len(targets) > 0 {
		return sim.AttackAction{UnitID: unit.ID, TargetID: nearestByID(state, unit, targets)}
	}

	nearest, ok := nearestLivingPlayer(state, unit.ID)
	if !ok {
		return sim.EndTurnAction{UnitID: unit.ID}
	}

	m := worldmap.New(state.MapSeed)
	blockers := unitBlockersFor(state, unit.ID)
	budget := state.Combat.Turn.MovementRemaining

	// nearest.Position itself is occupied by the target and so is never
	// a legal move destination; pick the reachable tile (within this
	// turn's movement budget) that leaves the shortest remaining
	// distance to the target instead.
	reachable := pathing.Reachable(m, unit.Position, budget, blockers)
	best := unit.Position
	bestDist := pathing.Distance(unit.Position, nearest.Position)
	for candidate := range reachable {
		if d := pathing.Distance(candidate, nearest.Position); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if best == unit.Position {
		return sim.EndTurnAction{UnitID: unit.ID}
	}

	path, found := pathing.FindPath(m, unit.Position, best, budget, blockers)
	if !found || len(path) == 0 {
		return sim.EndTurnAction{UnitID: unit.ID}
	}
	return sim.MoveAction{UnitID: unit.ID, Path: path}
}

func nearestByID(state *sim.GameState, from *sim.Unit, ids []string) string {
	best := ids[0]
	bestDist := pathing.Distance(from.Position, state.Units[best].Position)
	for _, id := range ids[1:] {
		d := pathing.Distance(from.Position, state.Units[id].Position)
		if d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}

func nearestLivingPlayer(state *sim.GameState, excludeID string) (*sim.Unit, bool) {
	var best *sim.Unit
	bestDist := -1
	self := state.Units[excludeID]
	for _, id := range state.UnitOrder {
		u := state.Units[id]
		if u.Kind != sim.UnitPlayer || u.Defeated() {
			continue
		}
		d := pathing.Distance(self.Position, u.Position)
		if best == nil || d < bestDist {
			best, bestDist = u, d
		}
	}
	return best, best != nil
}

// unitBlockersFor mirrors the sim package's unexported unitBlockers
// shape via the pathing.Blockers interface, since Session lives outside
// pkg/sim and cannot construct that unexported type directly.
type unitBlockers struct {
	state   *sim.GameState
	exclude string
}

func (b unitBlockers) Blocked(p sim.Position) bool {
	for _, id := range b.state.UnitOrder {
		u := b.state.Units[id]
		if u.ID == b.exclude || u.Defeated() {
			continue
		}
		if u.Position == p {
			return true
		}
	}
	return false
}

func unitBlockersFor(state *sim.GameState, excludeID string) unitBlockers {
	return unitBlockers{state: state, exclude: excludeID}
}
