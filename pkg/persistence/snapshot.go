package persistence

import (
	"path/filepath"

	"runeforge/pkg/session"
	"runeforge/pkg/sim"
)

// Snapshot is a session's full persisted state at one version, taken
// at configurable intervals alongside the append-only ActionLog so a
// session can warm-reconnect across a server restart without replaying
// its entire log.
type Snapshot struct {
	SessionID string                `yaml:"session_id"`
	Version   uint64                `yaml:"version"`
	GameState *sim.GameState        `yaml:"game_state"`
	Roster    []session.RosterEntry `yaml:"roster"`
	Phase     string                `yaml:"phase"`
	Timestamp int64                 `yaml:"timestamp"`
}

// SnapshotStore persists and retrieves one full Snapshot per session.
type SnapshotStore struct {
	fs *FileStore
}

// NewSnapshotStore builds a SnapshotStore backed by fs.
func NewSnapshotStore(fs *FileStore) *SnapshotStore {
	return &SnapshotStore{fs: fs}
}

func snapshotFilename(sessionID string) string {
	return filepath.Join("sessions", sessionID, "snapshot.yaml")
}

// Save overwrites sessionID's snapshot with snap.
func (s *SnapshotStore) Save(snap Snapshot) error {
	return s.fs.Save(snapshotFilename(snap.SessionID), &snap)
}

// Load retrieves sessionID's most recent snapshot, if one exists.
func (s *SnapshotStore) Load(sessionID string) (Snapshot, bool, error) {
	if !s.fs.Exists(snapshotFilename(sessionID)) {
		return Snapshot{}, false, nil
	}
	var snap Snapshot
	if err := s.fs.Load(snapshotFilename(sessionID), &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}
