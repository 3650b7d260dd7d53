// Package broker implements the Connection Broker: the mapping
// connection ⇄ principal ⇄ session. It authenticates new connections,
// enforces at most one live connection per principal (replacing an
// older one with close code 4002), routes lobby and in-game messages
// to the right *session.Session via the Action Arbiter, and reaps
// sessions that have sat idle with nobody connected for longer than
// their configured TTL.
//
// A Broker holds no game logic of its own: lobby operations call
// straight into *session.Session methods, and action/dm-command
// messages are handed to an *arbiter.Arbiter. The Broker's own job is
// purely connection bookkeeping and message routing.
package broker

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"runeforge/pkg/arbiter"
	"runeforge/pkg/persistence"
	"runeforge/pkg/principal"
	"runeforge/pkg/session"
	"runeforge/pkg/sim"
	"runeforge/pkg/transport"
	"runeforge/pkg/validation"
	"runeforge/pkg/wire"
)

// Config carries the broker-wide tunables sessions are created with
// unless a create-game payload overrides them.
type Config struct {
	DefaultMaxPlayers   int
	DefaultMonsterCount int
	TurnTimeLimit       time.Duration
	ReconnectGrace      time.Duration
	ReconnectWindow     time.Duration
	QueueDepth          int
	IdleTTL             time.Duration
	SweepInterval       time.Duration
	ActionRatePerSecond float64
	ActionRateBurst     int
}

// SpawnMonsters generates the monster roster for a newly started
// encounter; supplied by the caller so the broker stays agnostic of
// any particular encounter-building policy.
type SpawnMonsters func(mapSeed int32, prngSeed int64, existing int) []*sim.Unit

// Clock abstracts wall-clock reads for the idle-TTL sweep, substitutable
// in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type connEntry struct {
	conn          *transport.Conn
	principalID   string
	displayName   string
	sessionID     string
	authenticated bool
	limiter       *rate.Limiter
	outSeq        uint64
}

func (c *connEntry) nextSeq() uint64 {
	c.outSeq++
	return c.outSeq
}

// pendingEncounter holds the spawn closure and map seed a create-game
// call produced, consumed once by the matching start-game.
type pendingEncounter struct {
	spawner func(mapSeed int32, prngSeed int64, existing int) []*sim.Unit
	mapSeed int64
}

// Broker is the Connection Broker. All registry mutations are
// serialized by mu, matching the coarse cross-session discipline the
// concurrency model calls for; each *session.Session does its own
// finer-grained locking for in-session state.
type Broker struct {
	mu sync.Mutex

	conns             map[*transport.Conn]*connEntry
	connByPrincipal   map[string]*connEntry
	sessions          map[string]*session.Session
	joinCodes         map[string]string // join code -> session id
	sessionLastActive map[string]time.Time
	pendingSpawn      map[string]pendingEncounter // session id -> not-yet-started encounter

	decoder       *principal.Decoder
	arb           *arbiter.Arbiter
	characters    *persistence.CharacterStore
	spawnMonsters SpawnMonsters
	clock         Clock
	cfg           Config
	validator     *validation.InputValidator

	done chan struct{}
}

// New builds a Broker. decoder verifies incoming auth tokens; arb
// handles action/dm-command messages; characters backs the
// list/create/sync-character lobby operations (nil disables them,
// rejecting with bad-request); spawnMonsters builds each session's
// initial encounter; a nil clock defaults to the system clock; validator
// screens action, dm-command, and free-text lobby payloads before they
// reach the arbiter or session (nil disables this screening).
func New(decoder *principal.Decoder, arb *arbiter.Arbiter, characters *persistence.CharacterStore, spawnMonsters SpawnMonsters, clock Clock, cfg Config, validator *validation.InputValidator) *Broker {
	if clock == nil {
		clock = systemClock{}
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 32
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.ActionRatePerSecond <= 0 {
		cfg.ActionRatePerSecond = 10
	}
	if cfg.ActionRateBurst <= 0 {
		cfg.ActionRateBurst = 20
	}

	b := &Broker{
		conns:             map[*transport.Conn]*connEntry{},
		connByPrincipal:   map[string]*connEntry{},
		sessions:          map[string]*session.Session{},
		joinCodes:         map[string]string{},
		sessionLastActive: map[string]time.Time{},
		pendingSpawn:      map[string]pendingEncounter{},
		decoder:           decoder,
		arb:               arb,
		characters:        characters,
		spawnMonsters:     spawnMonsters,
		clock:             clock,
		cfg:               cfg,
		validator:         validator,
		done:              make(chan struct{}),
	}
	go b.sweepLoop()
	return b
}

// Stop ends the idle-TTL sweep goroutine. Existing sessions and
// connections are left as-is.
func (b *Broker) Stop() {
	close(b.done)
}

// HandleConnection is the entry point for one upgraded connection: it
// runs the write pump in its own goroutine and blocks reading frames
// until the connection closes, dispatching each to handleEnvelope.
// Callers (the HTTP handler) should invoke this directly on the
// request goroutine.
func (b *Broker) HandleConnection(conn *transport.Conn) {
	entry := &connEntry{conn: conn, limiter: rate.NewLimiter(rate.Limit(b.cfg.ActionRatePerSecond), b.cfg.ActionRateBurst)}
	b.mu.Lock()
	b.conns[conn] = entry
	b.mu.Unlock()

	go conn.WritePump()
	conn.ReadLoop(func(env wire.Envelope) {
		b.handleEnvelope(entry, env)
	})

	b.removeConnection(entry)
}

func (b *Broker) removeConnection(entry *connEntry) {
	b.mu.Lock()
	delete(b.conns, entry.conn)
	if entry.principalID != "" && b.connByPrincipal[entry.principalID] == entry {
		delete(b.connByPrincipal, entry.principalID)
	}
	sessionID := entry.sessionID
	principalID := entry.principalID
	var sess *session.Session
	if sessionID != "" {
		sess = b.sessions[sessionID]
		b.sessionLastActive[sessionID] = b.clock.Now()
	}
	b.mu.Unlock()

	if sess != nil && principalID != "" {
		if err := sess.Disconnect(principalID); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "removeConnection",
				"package":     "broker",
				"principalID": principalID,
				"error":       err,
			}).Debug("disconnect on connection close")
		}
		b.fanOut(sessionID, wire.NewMessage(wire.TypePlayerDisconnected, sess.NextSeq(), b.now(), wire.PlayerStatusPayload{
			PrincipalID: principalID,
		}))
	}
}

func (b *Broker) now() int64 { return b.clock.Now().UnixMilli() }

// registerPrincipal binds entry to principalID, closing out any prior
// connection that principal already held with the "replaced" close
// code, matching the at-most-one-session-per-principal rule.
func (b *Broker) registerPrincipal(entry *connEntry, principalID, displayName string) {
	b.mu.Lock()
	old := b.connByPrincipal[principalID]
	entry.principalID = principalID
	entry.displayName = displayName
	entry.authenticated = true
	b.connByPrincipal[principalID] = entry
	b.mu.Unlock()

	if old != nil && old != entry {
		old.conn.Close(wire.CloseKickedReplaced, "replaced by a newer connection")
	}
}

// sessionFor returns the session a principal is currently attached to,
// if any.
func (b *Broker) sessionFor(principalID string) (*session.Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.connByPrincipal[principalID]
	if !ok || entry.sessionID == "" {
		return nil, false
	}
	sess, ok := b.sessions[entry.sessionID]
	return sess, ok
}

func (b *Broker) attachToSession(entry *connEntry, sessionID string) {
	b.mu.Lock()
	entry.sessionID = sessionID
	b.sessionLastActive[sessionID] = b.clock.Now()
	b.mu.Unlock()
}

func newSessionID() string { return uuid.New().String() }

const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateJoinCode() string {
	buf := make([]byte, 6)
	rand.Read(buf)
	out := make([]byte, 6)
	for i, b := range buf {
		out[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(out)
}

// createSession allocates a fresh session with a collision-free join
// code and registers it. Caller must not hold b.mu.
func (b *Broker) createSession(dmPrincipal, dmDisplayName string, cfg session.Config, simulator *sim.Simulator) *session.Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	var code string
	for {
		code = generateJoinCode()
		if _, exists := b.joinCodes[code]; !exists {
			break
		}
	}

	id := newSessionID()
	sess := session.NewSession(id, code, dmPrincipal, dmDisplayName, cfg, simulator, b, nil)
	b.sessions[id] = sess
	b.joinCodes[code] = id
	b.sessionLastActive[id] = b.clock.Now()
	return sess
}

func (b *Broker) sessionByJoinCode(code string) (*session.Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.joinCodes[code]
	if !ok {
		return nil, false
	}
	sess, ok := b.sessions[id]
	return sess, ok
}

func (b *Broker) sessionByID(id string) *session.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[id]
}

func (b *Broker) touchSession(sessionID string) {
	b.mu.Lock()
	b.sessionLastActive[sessionID] = b.clock.Now()
	b.mu.Unlock()
}

// stashSpawner remembers the encounter-building closure a create-game
// call assembled, so the matching start-game (which may arrive on a
// different message) can hand it to session.Start.
func (b *Broker) stashSpawner(sessionID string, spawner func(mapSeed int32, prngSeed int64, existing int) []*sim.Unit, mapSeed int64) {
	b.mu.Lock()
	b.pendingSpawn[sessionID] = pendingEncounter{spawner: spawner, mapSeed: mapSeed}
	b.mu.Unlock()
}

// spawnerFor retrieves and clears sessionID's stashed encounter closure.
// A session with no create-game-supplied mapSeed override derives one
// deterministically from its own id so repeated starts of sessions
// created without an explicit seed still vary.
func (b *Broker) spawnerFor(sessionID string) (func(mapSeed int32, prngSeed int64, existing int) []*sim.Unit, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pending, ok := b.pendingSpawn[sessionID]
	delete(b.pendingSpawn, sessionID)
	if !ok {
		return nil, seedFromSessionID(sessionID)
	}
	mapSeed := pending.mapSeed
	if mapSeed == 0 {
		mapSeed = seedFromSessionID(sessionID)
	}
	return pending.spawner, mapSeed
}

func seedFromSessionID(id string) int64 {
	var h int64 = 1469598103934665603
	for i := 0; i < len(id); i++ {
		h ^= int64(id[i])
		h *= 1099511628211
	}
	if h < 0 {
		h = -h
	}
	return h
}

func (b *Broker) connByPrincipalID(principalID string) *connEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connByPrincipal[principalID]
}
