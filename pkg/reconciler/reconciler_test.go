package reconciler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runeforge/pkg/sim"
	"runeforge/pkg/statediff"
	"runeforge/pkg/wire"
)

func fullStateEnvelope(t *testing.T, state *sim.GameState, version uint64, unitID string) wire.Envelope {
	t.Helper()
	raw, err := json.Marshal(fullStatePayload{GameState: state, Version: version, YourUnitID: unitID})
	require.NoError(t, err)
	return wire.Envelope{Type: wire.TypeFullState, Payload: raw}
}

func deltaEnvelope(t *testing.T, delta statediff.Delta) wire.Envelope {
	t.Helper()
	raw, err := json.Marshal(wire.StateDeltaPayload{FromVersion: delta.FromVersion, ToVersion: delta.ToVersion, Changes: delta.Changes})
	require.NoError(t, err)
	return wire.Envelope{Type: wire.TypeStateDelta, Payload: raw}
}

func newState() *sim.GameState {
	s := sim.NewGameState(7, 42)
	s.AddUnit(&sim.Unit{ID: "player-1", Kind: sim.UnitPlayer, HP: 20, HPMax: 20})
	return s
}

func TestMirror_FullStateReplacesLocalState(t *testing.T) {
	m := New()
	assert.False(t, m.Synced())

	state := newState()
	require.NoError(t, m.HandleEnvelope(fullStateEnvelope(t, state, 3, "player-1")))

	assert.True(t, m.Synced())
	assert.EqualValues(t, 3, m.Version())
	assert.Equal(t, "player-1", m.YourUnitID())
	require.NotNil(t, m.State())
	assert.Equal(t, 20, m.State().Units["player-1"].HP)
}

func TestMirror_ContiguousDeltaApplies(t *testing.T) {
	m := New()
	before := newState()
	require.NoError(t, m.HandleEnvelope(fullStateEnvelope(t, before, 1, "player-1")))

	after := newState()
	after.Units["player-1"].HP = 12
	delta := statediff.Diff(1, 2, before, after)

	require.NoError(t, m.HandleEnvelope(deltaEnvelope(t, delta)))
	assert.EqualValues(t, 2, m.Version())
	assert.Equal(t, 12, m.State().Units["player-1"].HP)
	assert.True(t, m.Synced())
}

func TestMirror_NonContiguousDeltaRequestsResync(t *testing.T) {
	m := New()
	before := newState()
	require.NoError(t, m.HandleEnvelope(fullStateEnvelope(t, before, 1, "player-1")))

	after := newState()
	after.Units["player-1"].HP = 5
	delta := statediff.Diff(4, 5, before, after) // skipped versions 2-3

	err := m.HandleEnvelope(deltaEnvelope(t, delta))
	assert.ErrorIs(t, err, ErrOutOfSync)
	assert.False(t, m.Synced())

	// Further deltas are dropped (still out of sync) until a fresh
	// full-state arrives.
	delta2 := statediff.Diff(5, 6, after, after)
	err = m.HandleEnvelope(deltaEnvelope(t, delta2))
	assert.ErrorIs(t, err, ErrOutOfSync)

	recovered := newState()
	require.NoError(t, m.HandleEnvelope(fullStateEnvelope(t, recovered, 6, "player-1")))
	assert.True(t, m.Synced())
	assert.EqualValues(t, 6, m.Version())
}

func TestMirror_EventsAreIgnoredForStateReconstruction(t *testing.T) {
	m := New()
	state := newState()
	require.NoError(t, m.HandleEnvelope(fullStateEnvelope(t, state, 1, "player-1")))

	raw, err := json.Marshal(wire.EventsPayload{Events: []interface{}{map[string]interface{}{"type": "damage"}}})
	require.NoError(t, err)
	require.NoError(t, m.HandleEnvelope(wire.Envelope{Type: wire.TypeEvents, Payload: raw}))

	assert.EqualValues(t, 1, m.Version())
	assert.Equal(t, 20, m.State().Units["player-1"].HP)
}

func TestMirror_UnrelatedEnvelopeTypesAreIgnored(t *testing.T) {
	m := New()
	require.NoError(t, m.HandleEnvelope(wire.Envelope{Type: wire.TypeLobbyState}))
	assert.False(t, m.Synced())
}
