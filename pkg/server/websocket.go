package server

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// handleWebSocket upgrades the request and hands the connection to the
// Connection Broker, which owns the full read/write lifecycle from here
// on. The call blocks for the lifetime of the connection, so it must run
// on its own per-request goroutine, which net/http already provides.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":    "handleWebSocket",
			"remote_addr": r.RemoteAddr,
			"error":       err,
		}).Warn("websocket upgrade failed")
		return
	}

	s.metrics.RecordWebSocketConnection("connected")
	defer s.metrics.RecordWebSocketConnection("disconnected")

	s.broker.HandleConnection(conn)
}
