package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"runeforge/pkg/sim"
	"runeforge/pkg/wire"
	"runeforge/pkg/worldmap"
)

// Session is one authoritative game: its roster, its phase, and the
// game state the Session Engine exclusively owns. All mutating methods
// acquire mu, giving the single-threaded-per-session discipline the
// spec calls for; queueSem bounds how many callers may be waiting on
// that lock for an action submission at once, rejecting the rest
// immediately rather than growing an unbounded backlog.
type Session struct {
	ID          string
	JoinCode    string
	DMPrincipal string
	Config      Config

	simulator   *sim.Simulator
	broadcaster Broadcaster
	clock       Clock

	mu        sync.Mutex
	phase     Phase
	roster    []*RosterEntry
	state     *sim.GameState
	version   uint64
	outSeq    uint64
	turnTimer Timer

	// resumeTimer holds the pending turn-timer-resume callback for a
	// disconnected current actor (Config.ReconnectGrace). demoteTimer
	// holds the pending AI-takeover callback for any disconnected
	// principal (Config.ReconnectWindow). The two fire independently;
	// demoteTimer is armed on every disconnect, resumeTimer only when
	// the disconnecting principal is the current actor.
	resumeTimer map[string]Timer
	demoteTimer map[string]Timer

	queueSem chan struct{}
}

// NewSession creates a session in PhaseLobby with dmPrincipal as its DM
// and sole initial roster entry.
func NewSession(id, joinCode, dmPrincipal, dmDisplayName string, cfg Config, simulator *sim.Simulator, broadcaster Broadcaster, clock Clock) *Session {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 1
	}
	if clock == nil {
		clock = RealClock()
	}
	return &Session{
		ID:          id,
		JoinCode:    joinCode,
		DMPrincipal: dmPrincipal,
		Config:      cfg,
		simulator:   simulator,
		broadcaster: broadcaster,
		clock:       clock,
		phase:       PhaseLobby,
		roster:      []*RosterEntry{{PrincipalID: dmPrincipal, DisplayName: dmDisplayName, DM: true, Connected: true}},
		resumeTimer: map[string]Timer{},
		demoteTimer: map[string]Timer{},
		queueSem:    make(chan struct{}, cfg.QueueDepth),
	}
}

// Phase returns the session's current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Version returns the session's current monotonic version.
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// NextSeq returns the next value in this session's outgoing message
// sequence, the per-sender monotonic counter the wire envelope format
// requires. It is distinct from Version: outSeq numbers every message a
// session's traffic produces (including, e.g., repeated turn-change
// broadcasts), while version numbers only accepted game mutations.
func (s *Session) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeqLocked()
}

// nextSeqLocked is NextSeq's body for callers that already hold s.mu.
func (s *Session) nextSeqLocked() uint64 {
	s.outSeq++
	return s.outSeq
}

// Snapshot returns the current version and a deep clone of the game
// state, suitable for a full-state push.
func (s *Session) Snapshot() (uint64, *sim.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return s.version, nil
	}
	return s.version, s.state.Clone()
}

// Roster returns a copy of the current roster entries.
func (s *Session) Roster() []RosterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RosterEntry, len(s.roster))
	for i, r := range s.roster {
		out[i] = *r
	}
	return out
}

// ErrAlreadyInSession, ErrSessionFull, ErrUnknownPrincipal, and
// ErrNotDM are the rejection reasons session-level lobby operations
// return; the Action Arbiter maps these onto wire.ErrCode values.
var (
	ErrAlreadyInSession = errors.New("session: principal already in session")
	ErrSessionFull      = errors.New("session: roster is full")
	ErrUnknownPrincipal = errors.New("session: principal is not in this session")
	ErrNotDM            = errors.New("session: command requires the DM")
	ErrWrongPhase       = errors.New("session: operation not valid in current phase")
	ErrQueueFull        = errors.New("session: action queue is full")
	ErrPaused           = errors.New("session: game is paused")
)

func (s *Session) findRoster(principalID string) (*RosterEntry, bool) {
	for _, r := range s.roster {
		if r.PrincipalID == principalID {
			return r, true
		}
	}
	return nil, false
}

// Join adds principalID to the roster if there is room and the session
// is still in the lobby.
func (s *Session) Join(principalID, displayName, characterID string) (RosterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseLobby {
		return RosterEntry{}, ErrWrongPhase
	}
	if _, ok := s.findRoster(principalID); ok {
		return RosterEntry{}, ErrAlreadyInSession
	}
	if s.Config.MaxPlayers > 0 && len(s.roster) >= s.Config.MaxPlayers {
		return RosterEntry{}, ErrSessionFull
	}

	entry := &RosterEntry{PrincipalID: principalID, DisplayName: displayName, CharacterID: characterID, Connected: true}
	s.roster = append(s.roster, entry)

	logrus.WithFields(logrus.Fields{
		"function":  "Join",
		"package":   "session",
		"sessionID": s.ID,
		"principal": principalID,
	}).Info("principal joined session lobby")

	return *entry, nil
}

// Leave removes principalID from the roster. If principalID is the DM
// and the roster has other members, DM status passes to the
// longest-tenured remaining entry.
func (s *Session) Leave(principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.roster {
		if r.PrincipalID == principalID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownPrincipal
	}
	wasDM := s.roster[idx].DM
	s.roster = append(s.roster[:idx], s.roster[idx+1:]...)
	if wasDM && len(s.roster) > 0 {
		s.roster[0].DM = true
		s.DMPrincipal = s.roster[0].PrincipalID
	}
	return nil
}

// SetReady toggles principalID's ready flag.
func (s *Session) SetReady(principalID string, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.findRoster(principalID)
	if !ok {
		return ErrUnknownPrincipal
	}
	entry.Ready = ready
	return nil
}

// Start transitions lobby → playing: it requires at least one ready
// player, generates the encounter (player units at deterministic start
// positions plus Config.MonsterCount monsters), and calls StartCombat.
// Only the DM may call Start.
func (s *Session) Start(principalID string, mapSeed int32, prngSeed int64, spawnMonsters func(mapSeed int32, prngSeed int64, existing int) []*sim.Unit) ([]sim.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if principalID != s.DMPrincipal {
		return nil, ErrNotDM
	}
	if s.phase != PhaseLobby {
		return nil, ErrWrongPhase
	}
	anyReady := false
	for _, r := range s.roster {
		if r.Ready {
			anyReady = true
			break
		}
	}
	if !anyReady || len(s.roster) == 0 {
		return nil, fmt.Errorf("session: cannot start with no ready players")
	}

	state := sim.NewGameState(mapSeed, prngSeed)
	for i, r := range s.roster {
		if r.DM {
			continue
		}
		unitID := fmt.Sprintf("player-%s", r.PrincipalID)
		r.UnitID = unitID
		state.AddUnit(defaultPlayerUnit(unitID, r.PrincipalID, i, s.Config.PlayerMoveRange))
	}
	if spawnMonsters != nil {
		for _, m := range spawnMonsters(mapSeed, prngSeed, len(state.Units)) {
			state.AddUnit(m)
		}
	}

	after, events := s.simulator.StartCombat(state)
	s.state = after
	s.phase = PhasePlaying
	s.version++
	s.armTurnTimer()

	for _, env := range s.driveAICascadeLocked() {
		events = append(events, env.Events...)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Start",
		"package":   "session",
		"sessionID": s.ID,
		"version":   s.version,
	}).Info("session started")

	return events, nil
}

// defaultPlayerUnit builds a starting player unit at a deterministic
// position derived from its join order, matching the requirement that
// start positions are deterministic rather than chosen ad hoc. A
// moveRange of 0 or less uses the built-in default of 4.
func defaultPlayerUnit(unitID, principalID string, index, moveRange int) *sim.Unit {
	if moveRange <= 0 {
		moveRange = 4
	}
	return &sim.Unit{
		ID:             unitID,
		Kind:           sim.UnitPlayer,
		OwnerPrincipal: principalID,
		Position:       sim.Position{X: index, Y: 0},
		HP:             20,
		HPMax:          20,
		Attack:         6,
		Defense:        2,
		Initiative:     10 + index,
		MoveRange:      moveRange,
		AttackRange:    1,
	}
}

// SubmitAction validates principal ownership of unitID at the Session
// Engine boundary is already done by the Action Arbiter; Session only
// enforces phase and turn legality by delegating to the pure
// simulation core, then advances version and schedules the next turn.
// If the resulting acting unit is NPC/monster-controlled or belongs to
// a demoted (reconnect-window-expired) principal, its turn is played out
// immediately by the built-in AI strategy before this call returns, so
// every envelope in the returned slice corresponds to one accepted,
// version-advancing action in submission order.
func (s *Session) SubmitAction(action sim.Action) ([]*EventEnvelope, error) {
	select {
	case s.queueSem <- struct{}{}:
		defer func() { <-s.queueSem }()
	default:
		return nil, ErrQueueFull
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhasePaused {
		return nil, ErrPaused
	}
	if s.phase != PhasePlaying {
		return nil, ErrWrongPhase
	}

	env, err := s.applyLocked(action)
	if err != nil {
		return nil, err
	}

	envs := []*EventEnvelope{env}
	envs = append(envs, s.driveAICascadeLocked()...)
	return envs, nil
}

// applyLocked executes one action against the held state. Callers must
// hold s.mu.
func (s *Session) applyLocked(action sim.Action) (*EventEnvelope, error) {
	before := s.state.Clone()
	after, events, err := s.simulator.Execute(s.state, action)
	if err != nil {
		return nil, err
	}

	if unitID, bad := unitOffWalkableTile(after); bad {
		return nil, s.failInvariantLocked(fmt.Errorf("session: unit %s occupies a non-walkable tile", unitID))
	}

	s.state = after
	fromVersion := s.version
	s.version++

	if combatJustEnded(after) {
		s.phase = PhaseEnded
		s.stopTurnTimer()
	} else if endedOrTurnChanged(before, after) {
		s.armTurnTimer()
	}

	logrus.WithFields(logrus.Fields{
		"function":  "applyLocked",
		"package":   "session",
		"sessionID": s.ID,
		"version":   s.version,
	}).Debug("action accepted")

	return &EventEnvelope{
		SessionID:   s.ID,
		FromVersion: fromVersion,
		ToVersion:   s.version,
		Events:      events,
		Before:      before,
		After:       after,
	}, nil
}

// driveAICascadeLocked plays out consecutive AI-controlled turns (NPCs,
// monsters, and demoted players' units) until a human-controlled unit
// is acting or combat ends. Callers must hold s.mu. An AI action that
// the simulation core unexpectedly rejects is an invariant violation:
// the AI strategy only ever proposes actions ValidMoveTargets/
// ValidAttackTargets already certified as legal, so a rejection here
// means the two have drifted out of sync, and the session ends rather
// than risk looping forever on its own rejected output.
func (s *Session) driveAICascadeLocked() []*EventEnvelope {
	var envs []*EventEnvelope
	for s.phase == PhasePlaying {
		unit, ok := s.state.CurrentUnit()
		if !ok || !s.isAIControlledLocked(unit) {
			return envs
		}
		action := DecideNPCAction(s.simulator, s.state)
		env, err := s.applyLocked(action)
		if err != nil {
			// applyLocked's own invariant check (unitOffWalkableTile) already
			// tears down and broadcasts when it is the one that rejected;
			// a rejection straight from the simulation core has not, and
			// means the AI strategy proposed an action ValidMoveTargets/
			// ValidAttackTargets had already certified legal, so the two
			// have drifted out of sync.
			if s.phase != PhaseEnded {
				logrus.WithFields(logrus.Fields{
					"function":  "driveAICascadeLocked",
					"package":   "session",
					"sessionID": s.ID,
					"unitID":    unit.ID,
					"error":     err,
				}).Error("AI-proposed action rejected by simulation core, ending session")
				s.failInvariantLocked(err)
			}
			return envs
		}
		envs = append(envs, env)
	}
	return envs
}

// isAIControlledLocked reports whether unit's turn should be played by
// the built-in strategy rather than waiting on a connection. Callers
// must hold s.mu.
func (s *Session) isAIControlledLocked(unit *sim.Unit) bool {
	if unit.Kind != sim.UnitPlayer {
		return true
	}
	entry, ok := s.findRoster(unit.OwnerPrincipal)
	return ok && entry.Demoted
}

// unitOffWalkableTile scans state for a living unit resting on a
// non-walkable tile of its own map, the structural invariant no accepted
// action may ever produce: every move Execute itself validates lands on
// a walkable tile, so a unit found here got there some other way (a bad
// spawn placement, a corrupted snapshot) and the session cannot trust
// its own state enough to keep running.
func unitOffWalkableTile(state *sim.GameState) (string, bool) {
	m := worldmap.New(state.MapSeed)
	for _, id := range state.UnitOrder {
		u := state.Units[id]
		if u.Defeated() {
			continue
		}
		if !m.TileAt(u.Position.X, u.Position.Y).Walkable() {
			return id, true
		}
	}
	return "", false
}

func endedOrTurnChanged(before, after *sim.GameState) bool {
	return before.Combat.Turn.UnitID != after.Combat.Turn.UnitID || before.Combat.Round != after.Combat.Round
}

func combatJustEnded(after *sim.GameState) bool {
	return after.Combat.Status == sim.CombatEndedVictory || after.Combat.Status == sim.CombatEndedDefeat
}

// Pause and Resume are DM-only and toggle PhasePlaying ↔ PhasePaused.
// While paused the turn timer halts; non-DM actions are rejected with
// "paused" by the Action Arbiter before they ever reach SubmitAction.
func (s *Session) Pause(principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if principalID != s.DMPrincipal {
		return ErrNotDM
	}
	if s.phase != PhasePlaying {
		return ErrWrongPhase
	}
	s.phase = PhasePaused
	s.stopTurnTimer()
	return nil
}

func (s *Session) Resume(principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if principalID != s.DMPrincipal {
		return ErrNotDM
	}
	if s.phase != PhasePaused {
		return ErrWrongPhase
	}
	s.phase = PhasePlaying
	s.armTurnTimer()
	return nil
}

// Disconnect marks a roster entry disconnected. If it is the currently
// acting unit, the turn timer pauses for Config.ReconnectGrace before
// resuming rather than ticking down against an absent player.
// Independently of whether it was the current actor, every disconnect
// arms a demotion timer for Config.ReconnectWindow: if the principal
// has not reconnected by then, their unit is handed to the built-in AI
// strategy for the remainder of combat.
func (s *Session) Disconnect(principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.findRoster(principalID)
	if !ok {
		return ErrUnknownPrincipal
	}
	entry.Connected = false

	if s.state != nil && s.phase == PhasePlaying && s.state.Combat.Turn.UnitID == entry.UnitID {
		s.stopTurnTimer()
		s.resumeTimer[principalID] = s.clock.AfterFunc(s.Config.ReconnectGrace, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.resumeTimer, principalID)
			if s.phase == PhasePlaying {
				s.armTurnTimer()
			}
		})
	}

	window := s.Config.ReconnectWindow
	if window <= 0 {
		window = s.Config.ReconnectGrace
	}
	s.demoteTimer[principalID] = s.clock.AfterFunc(window, func() {
		envs := s.demoteAndCascade(principalID)
		if s.broadcaster != nil {
			for _, env := range envs {
				s.broadcaster.Broadcast(s.ID, env)
			}
		}
	})

	return nil
}

// demoteAndCascade marks principalID's roster entry demoted to AI
// control once its reconnect window has expired and, if its unit is
// now the current actor, plays out however many consecutive AI turns
// follow. It locks internally so its caller (a timer callback) can
// broadcast the result after releasing s.mu rather than while holding it.
func (s *Session) demoteAndCascade(principalID string) []*EventEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.demoteTimer, principalID)
	entry, ok := s.findRoster(principalID)
	if !ok || entry.Demoted {
		return nil
	}
	entry.Demoted = true
	logrus.WithFields(logrus.Fields{
		"function":    "demoteAndCascade",
		"package":     "session",
		"sessionID":   s.ID,
		"principalID": principalID,
	}).Info("reconnect window expired, unit demoted to AI control")

	if s.phase != PhasePlaying {
		return nil
	}
	s.armTurnTimer()
	return s.driveAICascadeLocked()
}

// Reconnect rebinds principalID as connected, canceling any pending
// resume or demotion timer.
func (s *Session) Reconnect(principalID string) (RosterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.findRoster(principalID)
	if !ok {
		return RosterEntry{}, ErrUnknownPrincipal
	}
	entry.Connected = true
	entry.Demoted = false
	if t, ok := s.resumeTimer[principalID]; ok {
		t.Stop()
		delete(s.resumeTimer, principalID)
	}
	if t, ok := s.demoteTimer[principalID]; ok {
		t.Stop()
		delete(s.demoteTimer, principalID)
	}
	if s.phase == PhasePlaying {
		s.armTurnTimer()
	}
	return *entry, nil
}

func (s *Session) stopTurnTimer() {
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
}

// armTurnTimer (re)starts the per-turn wall-clock timer for the unit
// currently acting. A zero TurnTimeLimit disables the timer entirely.
func (s *Session) armTurnTimer() {
	s.stopTurnTimer()
	if s.Config.TurnTimeLimit <= 0 || s.state == nil || s.state.Combat.Status != sim.CombatInProgress {
		return
	}
	unitID := s.state.Combat.Turn.UnitID
	s.turnTimer = s.clock.AfterFunc(s.Config.TurnTimeLimit, func() {
		s.onTurnTimeout(unitID)
	})
}

// onTurnTimeout injects a synthetic end-turn action for unitID when its
// wall-clock timer expires, rather than leaving a stalled turn blocking
// the session forever. The
// resulting broadcast carries a turn-timeout event ahead of whatever
// events the synthetic end-turn itself produced, so clients can
// distinguish a timed-out turn from a voluntary one.
func (s *Session) onTurnTimeout(unitID string) {
	envs, err := s.SubmitAction(sim.EndTurnAction{UnitID: unitID})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "onTurnTimeout",
			"package":   "session",
			"sessionID": s.ID,
			"unitID":    unitID,
			"error":     err,
		}).Warn("synthetic end-turn rejected")
		return
	}
	if len(envs) > 0 {
		timeoutEvent := sim.Event{Type: sim.EventTurnTimeout, Data: map[string]interface{}{"unit_id": unitID}}
		envs[0].Events = append([]sim.Event{timeoutEvent}, envs[0].Events...)
	}
	if s.broadcaster == nil {
		return
	}
	for _, env := range envs {
		s.broadcaster.Broadcast(s.ID, env)
	}
}

// Teardown cancels every outstanding timer, ending the session with
// cause. Called by the Connection Broker on idle-TTL expiry or by the
// session itself on an invariant violation.
func (s *Session) Teardown(cause EndCause) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked(cause)
}

// teardownLocked is Teardown's body for callers that already hold s.mu,
// such as driveAICascadeLocked reacting to an invariant violation.
func (s *Session) teardownLocked(cause EndCause) {
	s.stopTurnTimer()
	for id, t := range s.resumeTimer {
		t.Stop()
		delete(s.resumeTimer, id)
	}
	for id, t := range s.demoteTimer {
		t.Stop()
		delete(s.demoteTimer, id)
	}
	s.phase = PhaseEnded

	logrus.WithFields(logrus.Fields{
		"function":  "teardownLocked",
		"package":   "session",
		"sessionID": s.ID,
		"cause":     cause,
	}).Info("session torn down")
}

// failInvariantLocked ends the session with EndCauseInvariantViolation
// and broadcasts the final error every roster member is owed, returning
// cause unchanged so callers can propagate it as their own error.
// Callers must hold s.mu.
func (s *Session) failInvariantLocked(cause error) error {
	s.teardownLocked(EndCauseInvariantViolation)
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(s.ID, s.invariantViolationEnvelopeLocked(cause))
	}
	return cause
}

// invariantViolationEnvelopeLocked builds the final error broadcast
// owed to every roster member when an internal invariant violation
// ends the session, per the fatal-session error kind. Callers must
// hold s.mu.
func (s *Session) invariantViolationEnvelopeLocked(cause error) wire.Envelope {
	seq := s.nextSeqLocked()
	return wire.NewMessage(wire.TypeError, seq, s.clock.Now().UnixMilli(),
		wire.NewError(wire.ErrInvariantViolation, "internal invariant violated, session ended: "+cause.Error(), nil))
}

// SortedRosterPrincipals returns roster principal ids in lexical order,
// useful for deterministic broadcast fan-out order in tests.
func (s *Session) SortedRosterPrincipals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.roster))
	for i, r := range s.roster {
		ids[i] = r.PrincipalID
	}
	sort.Strings(ids)
	return ids
}
