// Package session implements the authoritative session engine: the
// state machine (lobby/playing/paused/ended), the per-session FIFO
// action queue, the turn scheduler, and the NPC/monster AI strategy.
// Game state is owned exclusively by a *Session; outsiders (the Action
// Arbiter, the Connection Broker) may only submit requests and read
// broadcast snapshots, matching the single-threaded-cooperative-
// per-session concurrency model.
package session

import (
	"time"

	"runeforge/pkg/sim"
)

// Phase is the top-level state machine a Session moves through.
type Phase int

const (
	PhaseLobby Phase = iota
	PhasePlaying
	PhasePaused
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// EndCause records why a session transitioned to PhaseEnded.
type EndCause string

const (
	EndCauseCombatResolved     EndCause = "combat-resolved"
	EndCauseInvariantViolation EndCause = "invariant-violation"
	EndCauseTornDown           EndCause = "torn-down"
)

// RosterEntry is one participant's membership record.
type RosterEntry struct {
	PrincipalID string
	DisplayName string
	CharacterID string
	Ready       bool
	Connected   bool
	UnitID      string
	DM          bool
	// Demoted is set once a disconnected principal's reconnect window
	// (Config.ReconnectWindow) expires; their unit remains in play but is driven by the
	// built-in AI strategy until they reconnect.
	Demoted bool
}

// Config carries the per-session tunables the Session Engine needs;
// callers derive these from pkg/config's process-wide defaults, with
// create-game allowed to override them per session.
type Config struct {
	TurnTimeLimit time.Duration // 0 disables the turn timer

	// ReconnectGrace is how long the turn timer stays paused for a
	// disconnected current actor before it resumes running.
	ReconnectGrace time.Duration

	// ReconnectWindow is how long any disconnected principal, current
	// actor or not, has to reconnect before their roster entry is
	// demoted to AI control. A zero value falls back to ReconnectGrace.
	ReconnectWindow time.Duration

	MaxPlayers      int
	MonsterCount    int
	QueueDepth      int
	PlayerMoveRange int // 0 uses the built-in default
}

// Broadcaster is how a Session notifies the outside world. A Session
// never touches a network connection directly; the Connection Broker
// implements this interface to fan a session's messages out to whatever
// connections are currently attached to it.
type Broadcaster interface {
	// Broadcast delivers env to every connected principal in the session.
	Broadcast(sessionID string, env interface{})
	// SendTo delivers env to one principal only, if currently connected.
	SendTo(sessionID, principalID string, env interface{})
}

// Clock abstracts wall-clock reads so turn/reconnect timers are
// substitutable in tests without a live sleep.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the minimal surface session needs from a scheduled callback.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{time.AfterFunc(d, f)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool { return r.t.Stop() }

// RealClock is the production Clock implementation.
func RealClock() Clock { return realClock{} }

// EventEnvelope is what a Session hands its Broadcaster after a
// successful mutation: the events the simulation produced plus the
// version transition they belong to. Callers translate this into
// wire.Envelope messages (events + state-delta) without the Session
// needing to know about the wire package.
type EventEnvelope struct {
	SessionID   string
	FromVersion uint64
	ToVersion   uint64
	Events      []sim.Event
	Before      *sim.GameState
	After       *sim.GameState
}

// TurnChange is broadcast whenever the acting unit changes.
type TurnChange struct {
	SessionID     string
	CurrentUnitID string
	CurrentUserID string
	TurnNumber    int
	IsPlayerTurn  bool
}
