package wire

import "runeforge/pkg/statediff"

// AuthPayload is the C→S auth body: an opaque credential handed off to
// the Connection Broker's principal decoder.
type AuthPayload struct {
	Token string `json:"token"`
}

// AuthResultPayload answers auth, identifying the principal the server
// resolved and, if this connection picked up an existing session,
// which one.
type AuthResultPayload struct {
	UserID              string `json:"userId"`
	Name                string `json:"name"`
	ReconnectedSessionID string `json:"reconnectedSessionId,omitempty"`
}

// CreateGamePayload requests a new session; the caller becomes its DM.
// Config fields are all optional; zero values fall back to server
// defaults. Unknown fields are ignored by the decoder; values the
// session rejects as out of range fail the request with bad-config.
type CreateGamePayload struct {
	DisplayName string `json:"displayName"`

	MaxPlayers       int      `json:"maxPlayers,omitempty"`
	Difficulty       string   `json:"difficulty,omitempty"` // "easy" | "normal" | "hard"
	TurnTimeLimitSec int      `json:"turnTimeLimitSeconds,omitempty"`
	MonsterCount     int      `json:"monsterCount,omitempty"`
	NPCCount         int      `json:"npcCount,omitempty"`
	NPCClasses       []string `json:"npcClasses,omitempty"`
	PlayerMoveRange  int      `json:"playerMoveRange,omitempty"`
	MapSeed          int64    `json:"mapSeed,omitempty"`
}

// StartGamePayload requests the lobby-to-playing transition. It carries
// no fields: every tunable that affects the encounter was already fixed
// at create-game time.
type StartGamePayload struct{}

// JoinGamePayload requests to join an existing session by join code.
type JoinGamePayload struct {
	JoinCode    string `json:"joinCode"`
	DisplayName string `json:"displayName"`
	CharacterID string `json:"characterId,omitempty"`
}

// ReadyPayload toggles the caller's roster-entry ready flag.
type ReadyPayload struct {
	Ready bool `json:"ready"`
}

// CreateCharacterPayload requests a new persistent character record.
type CreateCharacterPayload struct {
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
	Class    string `json:"class"`
}

// SyncCharacterPayload is C9's idempotent upsert request, keyed by a
// client-supplied id so retries never create duplicates.
type SyncCharacterPayload struct {
	ClientID string                 `json:"clientId"`
	Fields   map[string]interface{} `json:"fields"`
}

// ActionPayload submits one game action for arbitration. Kind selects
// which of the remaining fields apply; unused fields are omitted.
type ActionPayload struct {
	Kind     string   `json:"kind"` // "move" | "attack" | "collect-loot" | "end-turn"
	UnitID   string   `json:"unitId"`
	Path     []Coord  `json:"path,omitempty"`
	TargetID string   `json:"targetId,omitempty"`
	LootID   string   `json:"lootId,omitempty"`
}

// Coord is the wire representation of a grid position.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DMCommandPayload carries a DM-only control action.
type DMCommandPayload struct {
	Kind        string   `json:"kind"` // "pause" | "resume" | "grant" | "kick"
	PrincipalID string   `json:"principalId,omitempty"`
	UnitID      string   `json:"unitId,omitempty"`
	Gold        int      `json:"gold,omitempty"`
	Silver      int      `json:"silver,omitempty"`
	WeaponIDs   []string `json:"weaponIds,omitempty"`
}

// ChatPayload is a chat line, broadcast to the roster or whispered to
// one recipient when ToPrincipalID is set.
type ChatPayload struct {
	Text          string `json:"text"`
	ToPrincipalID string `json:"toPrincipalId,omitempty"`
}

// ActionResultPayload answers action, correlated by the envelope's
// ReqSeq. Reason and Code are set only when Valid is false.
type ActionResultPayload struct {
	Valid   bool   `json:"valid"`
	Version uint64 `json:"version,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Code    string `json:"code,omitempty"`
}

// TurnChangePayload announces whose turn it is.
type TurnChangePayload struct {
	CurrentUnitID string `json:"currentUnitId"`
	CurrentUserID string `json:"currentUserId,omitempty"`
	TurnNumber    int    `json:"turnNumber"`
	IsPlayerTurn  bool   `json:"isPlayerTurn"`
}

// FullStatePayload is sent on join, reconnect, or request-sync: a
// complete authoritative snapshot the client replaces its local mirror
// with.
type FullStatePayload struct {
	GameState  interface{} `json:"gameState"`
	Version    uint64      `json:"version"`
	YourUnitID string      `json:"yourUnitId,omitempty"`
}

// StateDeltaPayload is the wire form of a statediff.Delta.
type StateDeltaPayload struct {
	FromVersion uint64              `json:"fromVersion"`
	ToVersion   uint64              `json:"toVersion"`
	Changes     []statediff.Change `json:"changes"`
}

// EventsPayload carries the events a just-applied action produced, sent
// ahead of or alongside the state-delta that materializes them.
type EventsPayload struct {
	Events []interface{} `json:"events"`
}

// RosterEntry mirrors one participant in lobby-state and full-state.
type RosterEntry struct {
	PrincipalID string `json:"principalId"`
	DisplayName string `json:"displayName"`
	CharacterID string `json:"characterId,omitempty"`
	Ready       bool   `json:"ready"`
	Connected   bool   `json:"connected"`
	UnitID      string `json:"unitId,omitempty"`
	DM          bool   `json:"dm"`
}

// LobbyStatePayload is the full roster snapshot sent on join and on any
// roster change while still in the lobby phase.
type LobbyStatePayload struct {
	JoinCode string        `json:"joinCode"`
	Roster   []RosterEntry `json:"roster"`
}

// ChatReceivedPayload is the server's relayed form of a chat message.
type ChatReceivedPayload struct {
	FromPrincipalID string `json:"fromPrincipalId"`
	FromDisplayName string `json:"fromDisplayName"`
	Text            string `json:"text"`
	Whisper         bool   `json:"whisper"`
}

// PlayerStatusPayload backs player-joined/left/disconnected/reconnected.
type PlayerStatusPayload struct {
	PrincipalID string `json:"principalId"`
	DisplayName string `json:"displayName"`
}

// CharacterSummary is the wire representation of one persisted
// character record.
type CharacterSummary struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Class            string   `json:"class"`
	Appearance       string   `json:"appearance,omitempty"`
	Backstory        string   `json:"backstory,omitempty"`
	Level            int      `json:"level"`
	XP               int      `json:"xp"`
	Gold             int      `json:"gold"`
	Silver           int      `json:"silver"`
	OwnedWeaponIDs   []string `json:"ownedWeaponIds,omitempty"`
	EquippedWeaponID string   `json:"equippedWeaponId,omitempty"`
}

// CharactersPayload answers list-characters.
type CharactersPayload struct {
	Characters []CharacterSummary `json:"characters"`
}

// CharacterPayload answers create-character and sync-character with the
// authoritative resulting record.
type CharacterPayload struct {
	Character CharacterSummary `json:"character"`
}
