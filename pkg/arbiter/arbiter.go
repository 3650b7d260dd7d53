// Package arbiter implements the Action Arbiter: the boundary between
// a connection and a session's game state. For every incoming action
// or DM-command message it resolves the submitting principal against
// the session's roster, rejects anything the principal is not entitled
// to submit, enqueues what remains into the session's FIFO, and turns
// the session's result into the wire messages a caller needs to send
// back to the submitter and broadcast to the rest of the roster.
//
// The arbiter itself holds no session registry and no network
// connection; resolving "which session is this connection attached to"
// is the Connection Broker's job. Arbiter methods always take an
// already-resolved *session.Session.
package arbiter

import (
	"errors"
	"time"

	"runeforge/pkg/session"
	"runeforge/pkg/sim"
	"runeforge/pkg/statediff"
	"runeforge/pkg/wire"
)

// Clock abstracts wall-clock reads so outgoing envelope timestamps are
// substitutable in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Arbiter is stateless beyond its clock; all mutable state lives in the
// *session.Session instances it is handed.
type Arbiter struct {
	clock Clock
}

// New builds an Arbiter. A nil clock defaults to the system clock.
func New(clock Clock) *Arbiter {
	if clock == nil {
		clock = systemClock{}
	}
	return &Arbiter{clock: clock}
}

func (a *Arbiter) now() int64 { return a.clock.Now().UnixMilli() }

// HandleAction performs the full Action Arbiter protocol for one
// `action` message: resolve principal -> roster entry, reject if the
// session is missing the principal or the unit isn't theirs, submit to
// the session's FIFO, and translate the outcome into the action-result
// owed to the submitter plus the ordered broadcast messages (events,
// state-delta, turn-change per accepted action, including any
// AI-driven actions the submission cascaded into) owed to the rest of
// the roster.
func (a *Arbiter) HandleAction(sess *session.Session, principalID string, reqSeq uint64, payload wire.ActionPayload) (result wire.Envelope, broadcasts []wire.Envelope) {
	if sess == nil {
		return a.errorResult(0, reqSeq, wire.ErrBadRequest, "no session", ""), nil
	}

	entry, ok := findRoster(sess, principalID)
	if !ok {
		return a.errorResult(sess.NextSeq(), reqSeq, wire.ErrForbidden, "principal is not a member of this session", ""), nil
	}
	if sess.Phase() == session.PhaseEnded {
		return a.errorResult(sess.NextSeq(), reqSeq, wire.ErrSessionEnded, "session has ended", string(sim.CodeSessionEnded)), nil
	}
	if payload.UnitID != entry.UnitID {
		return a.errorResult(sess.NextSeq(), reqSeq, wire.ErrForbidden, "unit does not belong to this principal", ""), nil
	}

	action, err := toAction(payload)
	if err != nil {
		return a.errorResult(sess.NextSeq(), reqSeq, wire.ErrBadRequest, err.Error(), ""), nil
	}

	envs, err := sess.SubmitAction(action)
	if err != nil {
		code, wireCode := classify(err)
		return a.errorResult(sess.NextSeq(), reqSeq, wireCode, err.Error(), code), nil
	}

	return a.successResult(sess, reqSeq, envs)
}

// HandleDMCommand performs the DM-only control operations: pause,
// resume, and grant (an inventory adjustment applied through the same
// versioned mutation path as an ordinary action). kick is handled by
// the Connection Broker, which owns connection lifecycle; it is
// rejected here with a bad-request so a misrouted kick fails loudly
// instead of silently doing nothing.
func (a *Arbiter) HandleDMCommand(sess *session.Session, principalID string, reqSeq uint64, payload wire.DMCommandPayload) (result wire.Envelope, broadcasts []wire.Envelope) {
	if sess == nil {
		return a.errorResult(0, reqSeq, wire.ErrBadRequest, "no session", ""), nil
	}

	switch payload.Kind {
	case "pause":
		if err := sess.Pause(principalID); err != nil {
			return a.errorCommandResult(sess, reqSeq, err), nil
		}
		return a.successResult(sess, reqSeq, nil)
	case "resume":
		if err := sess.Resume(principalID); err != nil {
			return a.errorCommandResult(sess, reqSeq, err), nil
		}
		return a.successResult(sess, reqSeq, nil)
	case "grant":
		entry, ok := findRoster(sess, principalID)
		if !ok || !entry.DM {
			return a.errorResult(sess.NextSeq(), reqSeq, wire.ErrForbidden, "grant requires the DM", ""), nil
		}
		envs, err := sess.SubmitAction(sim.GrantAction{
			UnitID:    payload.UnitID,
			Gold:      payload.Gold,
			Silver:    payload.Silver,
			WeaponIDs: payload.WeaponIDs,
		})
		if err != nil {
			code, wireCode := classify(err)
			return a.errorResult(sess.NextSeq(), reqSeq, wireCode, err.Error(), code), nil
		}
		return a.successResult(sess, reqSeq, envs)
	default:
		return a.errorResult(sess.NextSeq(), reqSeq, wire.ErrBadRequest, "unrecognized dm-command kind", ""), nil
	}
}

func (a *Arbiter) errorCommandResult(sess *session.Session, reqSeq uint64, err error) wire.Envelope {
	_, wireCode := classify(err)
	return a.errorResult(sess.NextSeq(), reqSeq, wireCode, err.Error(), "")
}

func (a *Arbiter) errorResult(seq, reqSeq uint64, code wire.ErrCode, reason, simCode string) wire.Envelope {
	return wire.NewResult(wire.TypeActionResult, seq, a.now(), reqSeq, false, wire.ActionResultPayload{
		Valid:  false,
		Reason: reason,
		Code:   coalesce(simCode, string(code)),
	})
}

// successResult builds the action-result owed to the submitter plus the
// ordered per-accepted-action broadcast messages (events, state-delta,
// turn-change) owed to the rest of the roster. envs is empty for DM
// commands that do not themselves mutate game state (pause/resume).
func (a *Arbiter) successResult(sess *session.Session, reqSeq uint64, envs []*session.EventEnvelope) (wire.Envelope, []wire.Envelope) {
	version := sess.Version()
	var broadcasts []wire.Envelope
	for _, env := range envs {
		broadcasts = append(broadcasts, a.envelopesFor(sess, env)...)
	}
	result := wire.NewResult(wire.TypeActionResult, sess.NextSeq(), a.now(), reqSeq, true, wire.ActionResultPayload{
		Valid:   true,
		Version: version,
	})
	return result, broadcasts
}

// EnvelopesFor exposes the ordered wire translation of one accepted
// action's EventEnvelope, for callers relaying broadcasts that
// originate from a session's own timers (turn timeout, reconnect-grace
// expiry) rather than a HandleAction/HandleDMCommand call.
func (a *Arbiter) EnvelopesFor(sess *session.Session, env *session.EventEnvelope) []wire.Envelope {
	return a.envelopesFor(sess, env)
}

// envelopesFor translates one accepted action's EventEnvelope into the
// wire messages the rest of the roster must see, in the delivery order
// the protocol requires: events before the state-delta that
// materializes them, and a turn-change message if the acting unit
// changed.
func (a *Arbiter) envelopesFor(sess *session.Session, env *session.EventEnvelope) []wire.Envelope {
	eventData := make([]interface{}, len(env.Events))
	for i, e := range env.Events {
		eventData[i] = map[string]interface{}{"type": e.Type.String(), "data": e.Data}
	}
	out := []wire.Envelope{
		wire.NewMessage(wire.TypeEvents, sess.NextSeq(), a.now(), wire.EventsPayload{Events: eventData}),
	}

	delta := statediff.Diff(env.FromVersion, env.ToVersion, env.Before, env.After)
	out = append(out, wire.NewMessage(wire.TypeStateDelta, sess.NextSeq(), a.now(), wire.StateDeltaPayload{
		FromVersion: delta.FromVersion,
		ToVersion:   delta.ToVersion,
		Changes:     delta.Changes,
	}))

	if env.Before != nil && env.After != nil && env.Before.Combat.Turn.UnitID != env.After.Combat.Turn.UnitID {
		currentUnit, ok := env.After.CurrentUnit()
		if ok {
			out = append(out, wire.NewMessage(wire.TypeTurnChange, sess.NextSeq(), a.now(), wire.TurnChangePayload{
				CurrentUnitID: currentUnit.ID,
				CurrentUserID: currentUnit.OwnerPrincipal,
				TurnNumber:    env.After.Combat.Round,
				IsPlayerTurn:  currentUnit.Kind == sim.UnitPlayer,
			}))
		}
	}

	return out
}

func findRoster(sess *session.Session, principalID string) (session.RosterEntry, bool) {
	for _, r := range sess.Roster() {
		if r.PrincipalID == principalID {
			return r, true
		}
	}
	return session.RosterEntry{}, false
}

func toAction(p wire.ActionPayload) (sim.Action, error) {
	switch p.Kind {
	case "move":
		return sim.MoveAction{UnitID: p.UnitID, Path: toPositions(p.Path)}, nil
	case "attack":
		return sim.AttackAction{UnitID: p.UnitID, TargetID: p.TargetID}, nil
	case "collect-loot":
		return sim.CollectLootAction{UnitID: p.UnitID, LootID: p.LootID}, nil
	case "end-turn":
		return sim.EndTurnAction{UnitID: p.UnitID}, nil
	default:
		return nil, errors.New("arbiter: unrecognized action kind " + p.Kind)
	}
}

func toPositions(coords []wire.Coord) []sim.Position {
	if len(coords) == 0 {
		return nil
	}
	out := make([]sim.Position, len(coords))
	for i, c := range coords {
		out[i] = sim.Position{X: c.X, Y: c.Y}
	}
	return out
}

// classify maps a rejection from pkg/sim or pkg/session onto the wire
// error taxonomy clients branch on, returning both the stable
// machine-readable code carried in ActionResultPayload.Code and the
// broader wire.ErrCode category.
func classify(err error) (code string, wireCode wire.ErrCode) {
	var illegal *sim.IllegalActionError
	if errors.As(err, &illegal) {
		switch illegal.Code {
		case sim.CodeNotYourTurn:
			return illegal.Code, wire.ErrNotYourTurn
		case sim.CodeSessionEnded:
			return illegal.Code, wire.ErrSessionEnded
		default:
			return illegal.Code, wire.ErrIllegalAction
		}
	}

	switch {
	case errors.Is(err, session.ErrQueueFull):
		return "", wire.ErrRetryable
	case errors.Is(err, session.ErrPaused):
		return "", wire.ErrConflict
	case errors.Is(err, session.ErrWrongPhase):
		return "", wire.ErrConflict
	case errors.Is(err, session.ErrNotDM):
		return "", wire.ErrForbidden
	case errors.Is(err, session.ErrUnknownPrincipal):
		return "", wire.ErrForbidden
	default:
		return "", wire.ErrBadRequest
	}
}

func coalesce(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}
