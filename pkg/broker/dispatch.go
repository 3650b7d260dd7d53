package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"runeforge/pkg/persistence"
	"runeforge/pkg/session"
	"runeforge/pkg/sim"
	"runeforge/pkg/validation"
	"runeforge/pkg/wire"
)

// validate runs method against b's validator, if one is configured, and
// reports whether it passed. A nil validator always passes, matching the
// optional-screening contract callers document.
func (b *Broker) validate(method string, payload interface{}, payloadSize int) error {
	if b.validator == nil {
		return nil
	}
	return b.validator.ValidateRPCRequest(method, payload, int64(payloadSize))
}

// handleEnvelope dispatches one decoded frame from entry's connection.
// Unauthenticated connections may only send auth or ping; everything
// else is rejected with forbidden so a client cannot skip the
// handshake.
func (b *Broker) handleEnvelope(entry *connEntry, env wire.Envelope) {
	if !entry.authenticated && env.Type != wire.TypeAuth && env.Type != wire.TypePing {
		b.sendError(entry, env, wire.ErrForbidden, "auth required before any other message")
		return
	}

	switch env.Type {
	case wire.TypeAuth:
		b.handleAuth(entry, env)
	case wire.TypePing:
		entry.conn.Send(wire.NewMessage(wire.TypePong, entry.nextSeq(), b.now(), nil))
	case wire.TypeCreateGame:
		b.handleCreateGame(entry, env)
	case wire.TypeJoinGame:
		b.handleJoinGame(entry, env)
	case wire.TypeLeaveGame:
		b.handleLeaveGame(entry, env)
	case wire.TypeReady:
		b.handleReady(entry, env)
	case wire.TypeStartGame:
		b.handleStartGame(entry, env)
	case wire.TypeListCharacters:
		b.handleListCharacters(entry, env)
	case wire.TypeCreateCharacter:
		b.handleCreateCharacter(entry, env)
	case wire.TypeSyncCharacter:
		b.handleSyncCharacter(entry, env)
	case wire.TypeAction:
		b.handleAction(entry, env)
	case wire.TypeDMCommand:
		b.handleDMCommand(entry, env)
	case wire.TypeChat:
		b.handleChat(entry, env)
	case wire.TypeRequestSync:
		b.handleRequestSync(entry, env)
	default:
		b.sendError(entry, env, wire.ErrBadRequest, "unrecognized message type "+env.Type)
	}
}

func (b *Broker) sendError(entry *connEntry, req wire.Envelope, code wire.ErrCode, reason string) {
	entry.conn.Send(wire.NewErrorResult(wire.TypeError, entry.nextSeq(), b.now(), req.Seq, string(code)+": "+reason))
}

func decodePayload(env wire.Envelope, dst interface{}) error {
	if len(env.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(env.Payload, dst)
}

func (b *Broker) handleAuth(entry *connEntry, env wire.Envelope) {
	var payload wire.AuthPayload
	if err := decodePayload(env, &payload); err != nil {
		b.sendError(entry, env, wire.ErrBadRequest, "malformed auth payload")
		return
	}

	principal, err := b.decoder.Decode(payload.Token)
	if err != nil {
		entry.conn.Close(wire.CloseAuthFailed, "authentication failed")
		return
	}

	b.registerPrincipal(entry, principal.ID, principal.DisplayName)

	result := wire.AuthResultPayload{UserID: principal.ID, Name: principal.DisplayName}
	if sess, ok := b.sessionFor(principal.ID); ok {
		if rosterEntry, err := sess.Reconnect(principal.ID); err == nil {
			b.attachToSession(entry, sess.ID)
			result.ReconnectedSessionID = sess.ID
			version, state := sess.Snapshot()
			entry.conn.Send(wire.NewResult(wire.TypeAuthResult, entry.nextSeq(), b.now(), env.Seq, true, result))
			entry.conn.Send(wire.NewMessage(wire.TypeFullState, entry.nextSeq(), b.now(), wire.FullStatePayload{
				GameState:  state,
				Version:    version,
				YourUnitID: rosterEntry.UnitID,
			}))
			b.fanOut(sess.ID, wire.NewMessage(wire.TypePlayerReconnected, sess.NextSeq(), b.now(), wire.PlayerStatusPayload{
				PrincipalID: principal.ID,
				DisplayName: principal.DisplayName,
			}))
			return
		}
	}

	entry.conn.Send(wire.NewResult(wire.TypeAuthResult, entry.nextSeq(), b.now(), env.Seq, true, result))
}

func (b *Broker) handleCreateGame(entry *connEntry, env wire.Envelope) {
	var payload wire.CreateGamePayload
	if err := decodePayload(env, &payload); err != nil {
		b.sendError(entry, env, wire.ErrBadRequest, "malformed create-game payload")
		return
	}
	if _, inSession := b.sessionFor(entry.principalID); inSession {
		b.sendError(entry, env, wire.ErrForbidden, "already in a session")
		return
	}

	cfg, difficulty, monsterCount, mapSeed, err := b.resolveSessionConfig(payload)
	if err != nil {
		b.sendError(entry, env, wire.ErrBadRequest, "bad-config: "+err.Error())
		return
	}

	b.logDroppedNPCClasses(payload.NPCClasses)

	if payload.DisplayName != "" {
		entry.displayName = payload.DisplayName
	}

	spawner := func(seed int32, prngSeed int64, existing int) []*sim.Unit {
		var template []*sim.Unit
		if b.spawnMonsters != nil {
			template = b.spawnMonsters(seed, prngSeed, existing)
		}
		return scaleEncounter(template, monsterCount, difficulty)
	}

	sess := b.createSession(entry.principalID, entry.displayName, cfg, sim.NewSimulator())
	b.attachToSession(entry, sess.ID)
	b.stashSpawner(sess.ID, spawner, mapSeed)

	entry.conn.Send(wire.NewResult(wire.TypeLobbyState, entry.nextSeq(), b.now(), env.Seq, true, lobbyStatePayload(sess)))
}

func (b *Broker) handleJoinGame(entry *connEntry, env wire.Envelope) {
	var payload wire.JoinGamePayload
	if err := decodePayload(env, &payload); err != nil {
		b.sendError(entry, env, wire.ErrBadRequest, "malformed join-game payload")
		return
	}
	if _, inSession := b.sessionFor(entry.principalID); inSession {
		b.sendError(entry, env, wire.ErrForbidden, "already in a session")
		return
	}
	if err := b.validate(wire.TypeJoinGame, payload, len(env.Payload)); err != nil {
		b.sendError(entry, env, wire.ErrBadRequest, err.Error())
		return
	}

	sess, ok := b.sessionByJoinCode(normalizeJoinCode(payload.JoinCode))
	if !ok {
		b.sendError(entry, env, wire.ErrConflict, "no session with that join code")
		return
	}

	if _, err := sess.Join(entry.principalID, payload.DisplayName, payload.CharacterID); err != nil {
		b.sendError(entry, env, classifyLobbyErr(err), err.Error())
		return
	}
	entry.displayName = payload.DisplayName
	b.attachToSession(entry, sess.ID)

	entry.conn.Send(wire.NewResult(wire.TypeLobbyState, entry.nextSeq(), b.now(), env.Seq, true, lobbyStatePayload(sess)))
	b.fanOut(sess.ID, wire.NewMessage(wire.TypePlayerJoined, sess.NextSeq(), b.now(), wire.PlayerStatusPayload{
		PrincipalID: entry.principalID,
		DisplayName: payload.DisplayName,
	}))
	b.fanOut(sess.ID, wire.NewMessage(wire.TypeLobbyState, sess.NextSeq(), b.now(), lobbyStatePayload(sess)))
}

func (b *Broker) handleLeaveGame(entry *connEntry, env wire.Envelope) {
	sess := b.sessionByID(entry.sessionID)
	if sess == nil {
		b.sendError(entry, env, wire.ErrBadRequest, "not in a session")
		return
	}
	if err := sess.Leave(entry.principalID); err != nil {
		b.sendError(entry, env, classifyLobbyErr(err), err.Error())
		return
	}

	b.mu.Lock()
	entry.sessionID = ""
	b.mu.Unlock()

	entry.conn.Send(wire.NewResult(wire.TypeLeaveGame, entry.nextSeq(), b.now(), env.Seq, true, nil))
	b.fanOut(sess.ID, wire.NewMessage(wire.TypePlayerLeft, sess.NextSeq(), b.now(), wire.PlayerStatusPayload{
		PrincipalID: entry.principalID,
	}))
	b.fanOut(sess.ID, wire.NewMessage(wire.TypeLobbyState, sess.NextSeq(), b.now(), lobbyStatePayload(sess)))
}

func (b *Broker) handleReady(entry *connEntry, env wire.Envelope) {
	var payload wire.ReadyPayload
	if err := decodePayload(env, &payload); err != nil {
		b.sendError(entry, env, wire.ErrBadRequest, "malformed ready payload")
		return
	}
	sess := b.sessionByID(entry.sessionID)
	if sess == nil {
		b.sendError(entry, env, wire.ErrBadRequest, "not in a session")
		return
	}
	if err := sess.SetReady(entry.principalID, payload.Ready); err != nil {
		b.sendError(entry, env, classifyLobbyErr(err), err.Error())
		return
	}
	entry.conn.Send(wire.NewResult(wire.TypeReady, entry.nextSeq(), b.now(), env.Seq, true, nil))
	b.fanOut(sess.ID, wire.NewMessage(wire.TypeLobbyState, sess.NextSeq(), b.now(), lobbyStatePayload(sess)))
}

func (b *Broker) handleStartGame(entry *connEntry, env wire.Envelope) {
	sess := b.sessionByID(entry.sessionID)
	if sess == nil {
		b.sendError(entry, env, wire.ErrBadRequest, "not in a session")
		return
	}
	spawner, mapSeed := b.spawnerFor(sess.ID)

	events, err := sess.Start(entry.principalID, int32(mapSeed), mapSeed, spawner)
	if err != nil {
		b.sendError(entry, env, classifyLobbyErr(err), err.Error())
		return
	}

	version, state := sess.Snapshot()
	entry.conn.Send(wire.NewResult(wire.TypeStartGame, entry.nextSeq(), b.now(), env.Seq, true, nil))

	eventData := make([]interface{}, len(events))
	for i, e := range events {
		eventData[i] = map[string]interface{}{"type": e.Type.String(), "data": e.Data}
	}
	b.fanOut(sess.ID, wire.NewMessage(wire.TypeEvents, sess.NextSeq(), b.now(), wire.EventsPayload{Events: eventData}))

	for _, r := range sess.Roster() {
		if r.UnitID == "" {
			continue
		}
		b.sendTo(sess.ID, r.PrincipalID, wire.NewMessage(wire.TypeFullState, sess.NextSeq(), b.now(), wire.FullStatePayload{
			GameState:  state,
			Version:    version,
			YourUnitID: r.UnitID,
		}))
	}
	if currentUnit, ok := state.CurrentUnit(); ok {
		b.fanOut(sess.ID, wire.NewMessage(wire.TypeTurnChange, sess.NextSeq(), b.now(), wire.TurnChangePayload{
			CurrentUnitID: currentUnit.ID,
			CurrentUserID: currentUnit.OwnerPrincipal,
			TurnNumber:    state.Combat.Round,
			IsPlayerTurn:  currentUnit.Kind == sim.UnitPlayer,
		}))
	}
}

func (b *Broker) handleListCharacters(entry *connEntry, env wire.Envelope) {
	if b.characters == nil {
		b.sendError(entry, env, wire.ErrBadRequest, "character persistence is disabled")
		return
	}
	list, err := b.characters.List(entry.principalID)
	if err != nil {
		b.sendError(entry, env, wire.ErrBadRequest, "failed to list characters")
		return
	}
	out := make([]wire.CharacterSummary, len(list))
	for i, c := range list {
		out[i] = toWireCharacter(c)
	}
	entry.conn.Send(wire.NewResult(wire.TypeListCharacters, entry.nextSeq(), b.now(), env.Seq, true, wire.CharactersPayload{Characters: out}))
}

func (b *Broker) handleCreateCharacter(entry *connEntry, env wire.Envelope) {
	if b.characters == nil {
		b.sendError(entry, env, wire.ErrBadRequest, "character persistence is disabled")
		return
	}
	var payload wire.CreateCharacterPayload
	if err := decodePayload(env, &payload); err != nil {
		b.sendError(entry, env, wire.ErrBadRequest, "malformed create-character payload")
		return
	}
	if err := b.validate(wire.TypeCreateCharacter, payload, len(env.Payload)); err != nil {
		b.sendError(entry, env, wire.ErrBadRequest, err.Error())
		return
	}
	c, err := b.characters.Create(entry.principalID, payload.ClientID, payload.Name, payload.Class)
	if err != nil {
		b.sendError(entry, env, classifyPersistenceErr(err), err.Error())
		return
	}
	entry.conn.Send(wire.NewResult(wire.TypeCreateCharacter, entry.nextSeq(), b.now(), env.Seq, true, wire.CharacterPayload{Character: toWireCharacter(c)}))
}

func (b *Broker) handleSyncCharacter(entry *connEntry, env wire.Envelope) {
	if b.characters == nil {
		b.sendError(entry, env, wire.ErrBadRequest, "character persistence is disabled")
		return
	}
	var payload wire.SyncCharacterPayload
	if err := decodePayload(env, &payload); err != nil {
		b.sendError(entry, env, wire.ErrBadRequest, "malformed sync-character payload")
		return
	}
	c, err := b.characters.Sync(entry.principalID, payload.ClientID, payload.Fields)
	if err != nil {
		b.sendError(entry, env, classifyPersistenceErr(err), err.Error())
		return
	}
	entry.conn.Send(wire.NewResult(wire.TypeSyncCharacter, entry.nextSeq(), b.now(), env.Seq, true, wire.CharacterPayload{Character: toWireCharacter(c)}))
}

func (b *Broker) handleAction(entry *connEntry, env wire.Envelope) {
	if !entry.limiter.Allow() {
		b.sendError(entry, env, wire.ErrRetryable, "action rate limit exceeded")
		return
	}
	var payload wire.ActionPayload
	if err := decodePayload(env, &payload); err != nil {
		entry.conn.Send(wire.NewErrorResult(wire.TypeActionResult, entry.nextSeq(), b.now(), env.Seq, "bad-request: malformed action payload"))
		return
	}
	if err := b.validate(validation.ActionMethod(payload.Kind), payload, len(env.Payload)); err != nil {
		entry.conn.Send(wire.NewErrorResult(wire.TypeActionResult, entry.nextSeq(), b.now(), env.Seq, "bad-request: "+err.Error()))
		return
	}
	sess := b.sessionByID(entry.sessionID)
	if sess == nil {
		entry.conn.Send(wire.NewErrorResult(wire.TypeActionResult, entry.nextSeq(), b.now(), env.Seq, "bad-request: not in a session"))
		return
	}
	b.touchSession(sess.ID)

	result, broadcasts := b.arb.HandleAction(sess, entry.principalID, env.Seq, payload)
	entry.conn.Send(result)
	for _, msg := range broadcasts {
		b.fanOut(sess.ID, msg)
	}
}

func (b *Broker) handleDMCommand(entry *connEntry, env wire.Envelope) {
	var payload wire.DMCommandPayload
	if err := decodePayload(env, &payload); err != nil {
		entry.conn.Send(wire.NewErrorResult(wire.TypeActionResult, entry.nextSeq(), b.now(), env.Seq, "bad-request: malformed dm-command payload"))
		return
	}
	if err := b.validate(validation.DMCommandMethod(payload.Kind), payload, len(env.Payload)); err != nil {
		entry.conn.Send(wire.NewErrorResult(wire.TypeActionResult, entry.nextSeq(), b.now(), env.Seq, "bad-request: "+err.Error()))
		return
	}
	sess := b.sessionByID(entry.sessionID)
	if sess == nil {
		entry.conn.Send(wire.NewErrorResult(wire.TypeActionResult, entry.nextSeq(), b.now(), env.Seq, "bad-request: not in a session"))
		return
	}

	if payload.Kind == "kick" {
		b.handleKick(entry, sess, env, payload)
		return
	}

	b.touchSession(sess.ID)
	result, broadcasts := b.arb.HandleDMCommand(sess, entry.principalID, env.Seq, payload)
	entry.conn.Send(result)
	for _, msg := range broadcasts {
		b.fanOut(sess.ID, msg)
	}

	switch payload.Kind {
	case "pause":
		b.fanOut(sess.ID, wire.NewMessage(wire.TypeGamePaused, sess.NextSeq(), b.now(), nil))
	case "resume":
		b.fanOut(sess.ID, wire.NewMessage(wire.TypeGameResumed, sess.NextSeq(), b.now(), nil))
	}
}

func (b *Broker) handleKick(entry *connEntry, sess *session.Session, env wire.Envelope, payload wire.DMCommandPayload) {
	roster := sess.Roster()
	var isDM bool
	for _, r := range roster {
		if r.PrincipalID == entry.principalID && r.DM {
			isDM = true
		}
	}
	if !isDM {
		entry.conn.Send(wire.NewErrorResult(wire.TypeActionResult, entry.nextSeq(), b.now(), env.Seq, "forbidden: kick requires the DM"))
		return
	}
	if err := sess.Leave(payload.PrincipalID); err != nil {
		entry.conn.Send(wire.NewErrorResult(wire.TypeActionResult, entry.nextSeq(), b.now(), env.Seq, "bad-request: "+err.Error()))
		return
	}

	entry.conn.Send(wire.NewResult(wire.TypeActionResult, entry.nextSeq(), b.now(), env.Seq, true, wire.ActionResultPayload{Valid: true}))
	b.fanOut(sess.ID, wire.NewMessage(wire.TypePlayerLeft, sess.NextSeq(), b.now(), wire.PlayerStatusPayload{PrincipalID: payload.PrincipalID}))

	if kicked := b.connByPrincipalID(payload.PrincipalID); kicked != nil {
		kicked.conn.Close(wire.CloseKickedReplaced, "removed by the DM")
	}
}

func (b *Broker) handleChat(entry *connEntry, env wire.Envelope) {
	var payload wire.ChatPayload
	if err := decodePayload(env, &payload); err != nil {
		b.sendError(entry, env, wire.ErrBadRequest, "malformed chat payload")
		return
	}
	if err := b.validate(wire.TypeChat, payload, len(env.Payload)); err != nil {
		b.sendError(entry, env, wire.ErrBadRequest, err.Error())
		return
	}
	sess := b.sessionByID(entry.sessionID)
	if sess == nil {
		b.sendError(entry, env, wire.ErrBadRequest, "not in a session")
		return
	}

	msg := wire.ChatReceivedPayload{
		FromPrincipalID: entry.principalID,
		FromDisplayName: entry.displayName,
		Text:            payload.Text,
		Whisper:         payload.ToPrincipalID != "",
	}
	if payload.ToPrincipalID != "" {
		b.sendTo(sess.ID, payload.ToPrincipalID, wire.NewMessage(wire.TypeChatReceived, sess.NextSeq(), b.now(), msg))
		b.sendTo(sess.ID, entry.principalID, wire.NewMessage(wire.TypeChatReceived, sess.NextSeq(), b.now(), msg))
		return
	}
	b.fanOut(sess.ID, wire.NewMessage(wire.TypeChatReceived, sess.NextSeq(), b.now(), msg))
}

func (b *Broker) handleRequestSync(entry *connEntry, env wire.Envelope) {
	sess := b.sessionByID(entry.sessionID)
	if sess == nil {
		b.sendError(entry, env, wire.ErrBadRequest, "not in a session")
		return
	}
	version, state := sess.Snapshot()
	var unitID string
	for _, r := range sess.Roster() {
		if r.PrincipalID == entry.principalID {
			unitID = r.UnitID
			break
		}
	}
	entry.conn.Send(wire.NewMessage(wire.TypeFullState, entry.nextSeq(), b.now(), wire.FullStatePayload{
		GameState:  state,
		Version:    version,
		YourUnitID: unitID,
	}))
}

func lobbyStatePayload(sess *session.Session) wire.LobbyStatePayload {
	roster := sess.Roster()
	out := make([]wire.RosterEntry, len(roster))
	for i, r := range roster {
		out[i] = wire.RosterEntry{
			PrincipalID: r.PrincipalID,
			DisplayName: r.DisplayName,
			CharacterID: r.CharacterID,
			Ready:       r.Ready,
			Connected:   r.Connected,
			UnitID:      r.UnitID,
			DM:          r.DM,
		}
	}
	return wire.LobbyStatePayload{JoinCode: sess.JoinCode, Roster: out}
}

func toWireCharacter(c persistence.Character) wire.CharacterSummary {
	return wire.CharacterSummary{
		ID:               c.ID,
		Name:             c.Name,
		Class:            c.Class,
		Appearance:       c.Appearance,
		Backstory:        c.Backstory,
		Level:            c.Level,
		XP:               c.XP,
		Gold:             c.Gold,
		Silver:           c.Silver,
		OwnedWeaponIDs:   c.OwnedWeaponIDs,
		EquippedWeaponID: c.EquippedWeaponID,
	}
}

func classifyLobbyErr(err error) wire.ErrCode {
	switch err {
	case session.ErrAlreadyInSession, session.ErrUnknownPrincipal:
		return wire.ErrForbidden
	case session.ErrSessionFull:
		return wire.ErrConflict
	case session.ErrNotDM:
		return wire.ErrForbidden
	case session.ErrWrongPhase:
		return wire.ErrConflict
	default:
		return wire.ErrBadRequest
	}
}

func classifyPersistenceErr(err error) wire.ErrCode {
	switch err {
	case persistence.ErrOwnedByAnother:
		return wire.ErrConflict
	case persistence.ErrInvalidClass:
		return wire.ErrBadRequest
	default:
		return wire.ErrBadRequest
	}
}

func normalizeJoinCode(code string) string {
	out := make([]byte, 0, len(code))
	for _, r := range code {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		out = append(out, byte(r))
	}
	return string(out)
}

// resolveSessionConfig validates a create-game payload's config surface
// against the broker's defaults, rejecting out-of-range values. The
// difficulty, monster count, and map seed are returned separately since
// they feed the spawn closure rather than session.Config directly.
func (b *Broker) resolveSessionConfig(p wire.CreateGamePayload) (cfg session.Config, difficulty string, monsterCount int, mapSeed int64, err error) {
	maxPlayers := b.cfg.DefaultMaxPlayers
	if p.MaxPlayers != 0 {
		if p.MaxPlayers < 1 || p.MaxPlayers > 8 {
			return cfg, "", 0, 0, fmt.Errorf("maxPlayers must be between 1 and 8")
		}
		maxPlayers = p.MaxPlayers
	}

	difficulty = "normal"
	if p.Difficulty != "" {
		switch p.Difficulty {
		case "easy", "normal", "hard":
			difficulty = p.Difficulty
		default:
			return cfg, "", 0, 0, fmt.Errorf("difficulty must be easy, normal, or hard")
		}
	}

	turnTimeLimit := b.cfg.TurnTimeLimit
	if p.TurnTimeLimitSec != 0 {
		if p.TurnTimeLimitSec < 0 {
			return cfg, "", 0, 0, fmt.Errorf("turnTimeLimitSeconds must be non-negative")
		}
		turnTimeLimit = time.Duration(p.TurnTimeLimitSec) * time.Second
	}

	monsterCount = b.cfg.DefaultMonsterCount
	if p.MonsterCount != 0 {
		if p.MonsterCount < 0 {
			return cfg, "", 0, 0, fmt.Errorf("monsterCount must be non-negative")
		}
		monsterCount = p.MonsterCount
	}
	if p.NPCCount < 0 {
		return cfg, "", 0, 0, fmt.Errorf("npcCount must be non-negative")
	}
	monsterCount += p.NPCCount

	moveRange := 0
	if p.PlayerMoveRange != 0 {
		if p.PlayerMoveRange < 1 || p.PlayerMoveRange > 10 {
			return cfg, "", 0, 0, fmt.Errorf("playerMoveRange must be between 1 and 10")
		}
		moveRange = p.PlayerMoveRange
	}

	mapSeed = p.MapSeed

	cfg = session.Config{
		TurnTimeLimit:   turnTimeLimit,
		ReconnectGrace:  b.cfg.ReconnectGrace,
		ReconnectWindow: b.cfg.ReconnectWindow,
		MaxPlayers:      maxPlayers,
		MonsterCount:    monsterCount,
		QueueDepth:      b.cfg.QueueDepth,
		PlayerMoveRange: moveRange,
	}
	return cfg, difficulty, monsterCount, mapSeed, nil
}

func (b *Broker) logDroppedNPCClasses(classes []string) {
	if len(classes) == 0 {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function": "resolveSessionConfig",
		"package":  "broker",
		"classes":  classes,
	}).Debug("npcClasses beyond built-in monster archetypes are not separately modeled; npcCount was folded into the monster roster")
}
