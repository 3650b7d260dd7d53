package persistence

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LogRecord is one append-only entry: the action a session accepted,
// the events it produced, and the version it advanced to.
type LogRecord struct {
	SessionID string   `yaml:"session_id"`
	Version   uint64   `yaml:"version"`
	Action    string   `yaml:"action"`
	Events    []string `yaml:"events,omitempty"`
	Timestamp int64    `yaml:"timestamp"`
}

// ActionLog appends one record per accepted version to a per-session
// file. Unlike FileStore.Save, which always rewrites the whole blob,
// Append only ever grows the file: durability of an earlier version
// never depends on a later write succeeding.
type ActionLog struct {
	fs *FileStore
}

// NewActionLog builds an ActionLog backed by fs's data directory.
func NewActionLog(fs *FileStore) *ActionLog {
	return &ActionLog{fs: fs}
}

func logPath(fs *FileStore, sessionID string) string {
	return filepath.Join(fs.GetDataDir(), "sessions", sessionID, "log.yaml")
}

// Append writes one record to sessionID's log, under the same
// flock-guarded exclusivity FileStore uses for its own writes.
func (l *ActionLog) Append(rec LogRecord) error {
	path := logPath(l.fs, rec.SessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("persistence: creating session log directory: %w", err)
	}

	lock, err := NewFileLock(path)
	if err != nil {
		return fmt.Errorf("persistence: locking session log: %w", err)
	}
	defer lock.Close()
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("persistence: locking session log: %w", err)
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("persistence: marshaling log record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("persistence: opening session log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append([]byte("---\n"), data...)); err != nil {
		return fmt.Errorf("persistence: appending session log: %w", err)
	}
	return f.Sync()
}

// Load reads every record in sessionID's log, in append order. A
// session with no log yet returns (nil, nil).
func (l *ActionLog) Load(sessionID string) ([]LogRecord, error) {
	path := logPath(l.fs, sessionID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("persistence: reading session log: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	var records []LogRecord
	for {
		var rec LogRecord
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("persistence: decoding session log: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
