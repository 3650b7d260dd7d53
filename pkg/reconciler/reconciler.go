// Package reconciler is the reference implementation of the
// client-side state mirror: the rules a client applies to the server's
// full-state/state-delta/events stream to keep a local copy of
// *sim.GameState in lockstep with the session's authoritative version,
// without ever mutating state on its own initiative.
//
// A real browser client reimplements these same rules in JavaScript;
// this package exists so the rules have one concrete, tested
// definition, and so a Go-based bot or integration test can drive a
// session the same way a browser would.
package reconciler

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"runeforge/pkg/sim"
	"runeforge/pkg/statediff"
	"runeforge/pkg/wire"
)

// ErrOutOfSync is returned by HandleEnvelope when a state-delta arrives
// whose FromVersion does not match the mirror's current version. The
// caller must send request-sync and keep calling HandleEnvelope — every
// delta is dropped until the next full-state arrives.
var ErrOutOfSync = errors.New("reconciler: state-delta does not chain from the local version")

// fullStatePayload mirrors wire.FullStatePayload but declares GameState
// concretely so it decodes straight into *sim.GameState instead of a
// generic map.
type fullStatePayload struct {
	GameState  *sim.GameState `json:"gameState"`
	Version    uint64         `json:"version"`
	YourUnitID string         `json:"yourUnitId,omitempty"`
}

// Mirror holds one session's client-side view. The zero value is not
// ready to use; construct with New.
type Mirror struct {
	state      *sim.GameState
	version    uint64
	yourUnitID string
	synced     bool
}

// New returns a Mirror with no state yet; it stays unsynced until the
// first full-state arrives.
func New() *Mirror {
	return &Mirror{}
}

// Synced reports whether the mirror currently holds authoritative
// state. It is false before the first full-state and again after any
// detected gap, until the next full-state repairs it.
func (m *Mirror) Synced() bool { return m.synced }

// Version returns the mirror's current local version.
func (m *Mirror) Version() uint64 { return m.version }

// State returns the mirror's current local snapshot. Callers must treat
// it as read-only: mutating it directly would desync the mirror from
// the server without the server ever knowing.
func (m *Mirror) State() *sim.GameState { return m.state }

// YourUnitID returns the unit id the last full-state identified as
// belonging to this connection.
func (m *Mirror) YourUnitID() string { return m.yourUnitID }

// HandleEnvelope applies one inbound server envelope to the mirror.
// Envelope types the mirror has no opinion about (lobby state, chat,
// auth results, and so on) are ignored. Returns ErrOutOfSync exactly
// when the caller must respond by sending a request-sync message; any
// other error indicates a malformed envelope.
func (m *Mirror) HandleEnvelope(env wire.Envelope) error {
	switch env.Type {
	case wire.TypeFullState:
		return m.applyFullState(env)
	case wire.TypeStateDelta:
		return m.applyStateDelta(env)
	case wire.TypeEvents:
		// Display-only: events never feed state reconstruction.
		return nil
	default:
		return nil
	}
}

func (m *Mirror) applyFullState(env wire.Envelope) error {
	var payload fullStatePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("reconciler: decode full-state: %w", err)
	}
	m.state = payload.GameState
	m.version = payload.Version
	m.yourUnitID = payload.YourUnitID
	m.synced = true
	return nil
}

func (m *Mirror) applyStateDelta(env wire.Envelope) error {
	if !m.synced {
		return ErrOutOfSync
	}

	var payload wire.StateDeltaPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return fmt.Errorf("reconciler: decode state-delta: %w", err)
	}

	if payload.FromVersion != m.version {
		m.synced = false
		logrus.WithFields(logrus.Fields{
			"function":     "applyStateDelta",
			"package":      "reconciler",
			"localVersion": m.version,
			"fromVersion":  payload.FromVersion,
		}).Warn("state-delta does not chain from local version; requesting full resync")
		return ErrOutOfSync
	}

	delta := statediff.Delta{
		FromVersion: payload.FromVersion,
		ToVersion:   payload.ToVersion,
		Changes:     payload.Changes,
	}
	if err := statediff.Apply(delta, m.state); err != nil {
		return fmt.Errorf("reconciler: apply state-delta: %w", err)
	}
	m.version = payload.ToVersion
	return nil
}
