package broker

import (
	"time"

	"github.com/sirupsen/logrus"

	"runeforge/pkg/session"
)

// sweepLoop periodically tears down sessions that have sat with no
// attached connections for at least cfg.IdleTTL, matching the
// Connection Broker's responsibility to reap timed-out sessions.
func (b *Broker) sweepLoop() {
	ticker := time.NewTicker(b.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.sweepOnce()
		}
	}
}

func (b *Broker) sweepOnce() {
	now := b.clock.Now()

	b.mu.Lock()
	var expired []*session.Session
	for id, sess := range b.sessions {
		if b.hasConnectedEntryLocked(id) {
			continue
		}
		lastActive, ok := b.sessionLastActive[id]
		if !ok || now.Sub(lastActive) < b.cfg.IdleTTL {
			continue
		}
		expired = append(expired, sess)
	}
	for _, sess := range expired {
		delete(b.sessions, sess.ID)
		delete(b.joinCodes, sess.JoinCode)
		delete(b.sessionLastActive, sess.ID)
		delete(b.pendingSpawn, sess.ID)
	}
	b.mu.Unlock()

	for _, sess := range expired {
		sess.Teardown(session.EndCauseTornDown)
		logrus.WithFields(logrus.Fields{
			"function":  "sweepOnce",
			"package":   "broker",
			"sessionID": sess.ID,
		}).Info("idle session reaped")
	}
}

func (b *Broker) hasConnectedEntryLocked(sessionID string) bool {
	for _, entry := range b.conns {
		if entry.sessionID == sessionID {
			return true
		}
	}
	return false
}
