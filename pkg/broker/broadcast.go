package broker

import (
	"github.com/sirupsen/logrus"

	"runeforge/pkg/session"
	"runeforge/pkg/wire"
)

// fanOut delivers env to every currently-connected principal attached
// to sessionID. Disconnected roster entries simply have no connEntry
// to find and are silently skipped; they catch up via full-state on
// reconnect.
func (b *Broker) fanOut(sessionID string, env wire.Envelope) {
	for _, entry := range b.entriesForSession(sessionID) {
		entry.conn.Send(env)
	}
}

// sendTo delivers env to one principal's connection only, if currently
// attached to sessionID.
func (b *Broker) sendTo(sessionID, principalID string, env wire.Envelope) {
	b.mu.Lock()
	entry, ok := b.connByPrincipal[principalID]
	b.mu.Unlock()
	if !ok || entry.sessionID != sessionID {
		return
	}
	entry.conn.Send(env)
}

func (b *Broker) entriesForSession(sessionID string) []*connEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*connEntry
	for _, entry := range b.conns {
		if entry.sessionID == sessionID {
			out = append(out, entry)
		}
	}
	return out
}

// Broadcast implements session.Broadcaster for broadcasts a *Session
// itself initiates (turn-timeout, reconnect-grace expiry) rather than
// ones routed through the arbiter's synchronous return path. env is
// either a *session.EventEnvelope, which is translated through the same
// events/state-delta/turn-change ordering the arbiter uses for its own
// broadcasts, or an already-built wire.Envelope.
func (b *Broker) Broadcast(sessionID string, env interface{}) {
	for _, msg := range b.toWireEnvelopes(sessionID, env) {
		b.fanOut(sessionID, msg)
	}
}

// SendTo implements session.Broadcaster for a single-recipient message
// originating from inside a Session.
func (b *Broker) SendTo(sessionID, principalID string, env interface{}) {
	for _, msg := range b.toWireEnvelopes(sessionID, env) {
		b.sendTo(sessionID, principalID, msg)
	}
}

func (b *Broker) toWireEnvelopes(sessionID string, env interface{}) []wire.Envelope {
	switch v := env.(type) {
	case wire.Envelope:
		return []wire.Envelope{v}
	case *session.EventEnvelope:
		sess := b.sessionByID(sessionID)
		if sess == nil {
			logrus.WithFields(logrus.Fields{
				"function":  "toWireEnvelopes",
				"package":   "broker",
				"sessionID": sessionID,
			}).Warn("broadcast for unknown session")
			return nil
		}
		return b.arb.EnvelopesFor(sess, v)
	default:
		logrus.WithFields(logrus.Fields{
			"function": "toWireEnvelopes",
			"package":  "broker",
			"type":     v,
		}).Warn("unrecognized broadcast payload type")
		return nil
	}
}
