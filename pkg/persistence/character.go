package persistence

import (
	"errors"
	"path/filepath"
	"sync"
)

// Character is the persisted shape of one player's character record,
// keyed by a client-supplied, stable id.
type Character struct {
	ID               string   `yaml:"id"`
	OwnerPrincipal   string   `yaml:"owner_principal"`
	Name             string   `yaml:"name"`
	Class            string   `yaml:"class"`
	Appearance       string   `yaml:"appearance,omitempty"`
	Backstory        string   `yaml:"backstory,omitempty"`
	Level            int      `yaml:"level"`
	XP               int      `yaml:"xp"`
	Gold             int      `yaml:"gold"`
	Silver           int      `yaml:"silver"`
	OwnedWeaponIDs   []string `yaml:"owned_weapon_ids,omitempty"`
	EquippedWeaponID string   `yaml:"equipped_weapon_id,omitempty"`
}

var validClasses = map[string]bool{"warrior": true, "ranger": true, "mage": true, "rogue": true}

// ErrInvalidClass and ErrOwnedByAnother are the rejection reasons the
// Persistence Façade returns to the Action Arbiter/Connection Broker.
var (
	ErrInvalidClass   = errors.New("persistence: unrecognized character class")
	ErrOwnedByAnother = errors.New("persistence: character id is owned by a different principal")
)

// CharacterStore persists character records one file per id under
// "characters/<id>.yaml". Compound read-modify-write operations (Sync)
// are serialized per id with an in-process mutex; FileStore's own
// flock-based FileLock covers each individual write against other
// processes touching the same data directory.
type CharacterStore struct {
	fs    *FileStore
	locks sync.Map // id -> *sync.Mutex
}

// NewCharacterStore builds a CharacterStore backed by fs.
func NewCharacterStore(fs *FileStore) *CharacterStore {
	return &CharacterStore{fs: fs}
}

func (s *CharacterStore) lockFor(id string) *sync.Mutex {
	m, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return m.(*sync.Mutex)
}

func characterFilename(id string) string {
	return filepath.Join("characters", id+".yaml")
}

// Get loads one character by id.
func (s *CharacterStore) Get(id string) (Character, bool, error) {
	if !s.fs.Exists(characterFilename(id)) {
		return Character{}, false, nil
	}
	var c Character
	if err := s.fs.Load(characterFilename(id), &c); err != nil {
		return Character{}, false, err
	}
	return c, true, nil
}

// List returns every character owned by owner.
func (s *CharacterStore) List(owner string) ([]Character, error) {
	names, err := s.fs.List(filepath.Join("characters", "*.yaml"))
	if err != nil {
		return nil, err
	}
	out := make([]Character, 0, len(names))
	for _, name := range names {
		var c Character
		if err := s.fs.Load(name, &c); err != nil {
			continue
		}
		if c.OwnerPrincipal == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

// Create makes a brand-new character record at level 1. If clientID
// already names a record owned by owner, it is returned unchanged
// rather than erroring, so a retried create-character is harmless.
func (s *CharacterStore) Create(owner, clientID, name, class string) (Character, error) {
	if !validClasses[class] {
		return Character{}, ErrInvalidClass
	}

	lock := s.lockFor(clientID)
	lock.Lock()
	defer lock.Unlock()

	existing, ok, err := s.Get(clientID)
	if err != nil {
		return Character{}, err
	}
	if ok {
		if existing.OwnerPrincipal != owner {
			return Character{}, ErrOwnedByAnother
		}
		return existing, nil
	}

	c := Character{ID: clientID, OwnerPrincipal: owner, Name: name, Class: class, Level: 1}
	if err := s.fs.Save(characterFilename(clientID), &c); err != nil {
		return Character{}, err
	}
	return c, nil
}

// Sync idempotently upserts fields onto the character keyed by
// clientID, creating it first if absent. Re-applying the same fields
// after a network retry produces the same resulting record.
func (s *CharacterStore) Sync(owner, clientID string, fields map[string]interface{}) (Character, error) {
	lock := s.lockFor(clientID)
	lock.Lock()
	defer lock.Unlock()

	c, ok, err := s.Get(clientID)
	if err != nil {
		return Character{}, err
	}
	if !ok {
		c = Character{ID: clientID, OwnerPrincipal: owner, Level: 1}
	} else if c.OwnerPrincipal != owner {
		return Character{}, ErrOwnedByAnother
	}

	applyFields(&c, fields)

	if err := s.fs.Save(characterFilename(clientID), &c); err != nil {
		return Character{}, err
	}
	return c, nil
}

func applyFields(c *Character, fields map[string]interface{}) {
	if v, ok := fields["name"].(string); ok {
		c.Name = v
	}
	if v, ok := fields["class"].(string); ok && validClasses[v] {
		c.Class = v
	}
	if v, ok := fields["appearance"].(string); ok {
		c.Appearance = v
	}
	if v, ok := fields["backstory"].(string); ok {
		c.Backstory = v
	}
	if v, ok := asInt(fields["level"]); ok {
		c.Level = v
	}
	if v, ok := asInt(fields["xp"]); ok {
		c.XP = v
	}
	if v, ok := asInt(fields["gold"]); ok {
		c.Gold = v
	}
	if v, ok := asInt(fields["silver"]); ok {
		c.Silver = v
	}
	if v, ok := fields["equipped_weapon_id"].(string); ok {
		c.EquippedWeaponID = v
	}
	if raw, ok := fields["owned_weapon_ids"].([]interface{}); ok {
		ids := make([]string, 0, len(raw))
		for _, item := range raw {
			if v, ok := item.(string); ok {
				ids = append(ids, v)
			}
		}
		c.OwnedWeaponIDs = ids
	}
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
