// Package wire defines the message envelope and payload shapes exchanged
// between a client and the session it is connected to. Every message,
// in either direction, is one Envelope; Payload carries the
// type-specific body as raw JSON so callers can unmarshal it into
// whichever concrete struct a given Type implies.
package wire

import "encoding/json"

// Envelope is the framing every wire message shares, matching the
// {type, payload, seq, ts, req-seq?, success?, error?} shape clients and
// sessions exchange over the duplex channel.
//
// Fields:
//   - Type: the message kind, one of the Type* constants below
//   - Payload: type-specific body
//   - Seq: sender's own monotonic counter, independent per direction
//   - Ts: unix millis when the sender framed the message
//   - ReqSeq: for a response, the seq of the request it answers
//   - Success: for a response to a request-style message, whether it succeeded
//   - Error: human-readable failure reason, set only when Success is false
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Seq     uint64          `json:"seq"`
	Ts      int64           `json:"ts"`
	ReqSeq  *uint64         `json:"reqSeq,omitempty"`
	Success *bool           `json:"success,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client-to-server message types.
const (
	TypeAuth             = "auth"
	TypePing             = "ping"
	TypeCreateGame       = "create-game"
	TypeJoinGame         = "join-game"
	TypeLeaveGame        = "leave-game"
	TypeReady            = "ready"
	TypeStartGame        = "start-game"
	TypeListCharacters   = "list-characters"
	TypeCreateCharacter  = "create-character"
	TypeSyncCharacter    = "sync-character"
	TypeAction           = "action"
	TypeDMCommand        = "dm-command"
	TypeChat             = "chat"
	TypeRequestSync      = "request-sync"
)

// Server-to-client message types.
const (
	TypePong             = "pong"
	TypeAuthResult       = "auth-result"
	TypeLobbyState       = "lobby-state"
	TypeFullState        = "full-state"
	TypeStateDelta       = "state-delta"
	TypeEvents           = "events"
	TypeActionResult     = "action-result"
	TypeTurnChange       = "turn-change"
	TypePlayerJoined     = "player-joined"
	TypePlayerLeft       = "player-left"
	TypePlayerDisconnected = "player-disconnected"
	TypePlayerReconnected  = "player-reconnected"
	TypeChatReceived     = "chat-received"
	TypeGamePaused       = "game-paused"
	TypeGameResumed      = "game-resumed"
	TypeError            = "error"
)

// NewMessage builds an Envelope carrying payload, marshaled to JSON. It
// panics only if payload cannot be marshaled at all, which for the
// payload structs in this package means a programming error.
func NewMessage(msgType string, seq uint64, ts int64, payload interface{}) Envelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic("wire: payload does not marshal: " + err.Error())
	}
	return Envelope{Type: msgType, Payload: raw, Seq: seq, Ts: ts}
}

// NewResult builds a response Envelope correlated to reqSeq via ReqSeq,
// mirroring how an action-result or auth-result answers its request.
func NewResult(msgType string, seq uint64, ts int64, reqSeq uint64, success bool, payload interface{}) Envelope {
	env := NewMessage(msgType, seq, ts, payload)
	env.ReqSeq = &reqSeq
	env.Success = &success
	return env
}

// NewErrorResult builds a failure response Envelope, echoing reqSeq and
// carrying the rejection reason as Error.
func NewErrorResult(msgType string, seq uint64, ts int64, reqSeq uint64, reason string) Envelope {
	f := false
	return Envelope{
		Type:    msgType,
		Seq:     seq,
		Ts:      ts,
		ReqSeq:  &reqSeq,
		Success: &f,
		Error:   reason,
	}
}
