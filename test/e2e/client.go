package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"runeforge/pkg/wire"
)

// Client is an E2E test client for the Rune Forge server. All gameplay
// traffic goes over the WebSocket connection using wire.Envelope
// messages; only health checks use plain HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client

	wsConn     *websocket.Conn
	wsMessages chan wire.Envelope
	wsErrors   chan error
	wsCloseCh  chan struct{}
	wsMutex    sync.Mutex

	seq uint64
	log *logrus.Logger
}

// NewClient creates a new E2E test client.
func NewClient(baseURL string) *Client {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		wsMessages: make(chan wire.Envelope, 100),
		wsErrors:   make(chan error, 10),
		wsCloseCh:  make(chan struct{}),
		log:        logger,
	}
}

// nextSeq returns the next outgoing sequence number.
func (c *Client) nextSeq() uint64 {
	c.seq++
	return c.seq
}

// ConnectWebSocket connects to the WebSocket endpoint.
func (c *Client) ConnectWebSocket() error {
	c.wsMutex.Lock()
	defer c.wsMutex.Unlock()

	if c.wsConn != nil {
		return fmt.Errorf("WebSocket already connected")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("failed to parse base URL: %w", err)
	}

	wsScheme := "ws"
	if u.Scheme == "https" {
		wsScheme = "wss"
	}
	wsURL := fmt.Sprintf("%s://%s/ws", wsScheme, u.Host)

	c.log.Debugf("Connecting to WebSocket: %s", wsURL)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	c.wsConn = conn
	go c.readWebSocketMessages()

	return nil
}

// readWebSocketMessages reads envelopes from the WebSocket connection.
func (c *Client) readWebSocketMessages() {
	defer func() {
		close(c.wsMessages)
		close(c.wsErrors)
	}()

	for {
		select {
		case <-c.wsCloseCh:
			return
		default:
			var env wire.Envelope
			if err := c.wsConn.ReadJSON(&env); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					c.wsErrors <- fmt.Errorf("WebSocket read error: %w", err)
				}
				return
			}
			c.wsMessages <- env
		}
	}
}

// Send frames payload as msgType and writes it to the connection,
// returning the sequence number assigned so a caller can correlate a
// later response by its ReqSeq.
func (c *Client) Send(msgType string, payload interface{}) (uint64, error) {
	c.wsMutex.Lock()
	conn := c.wsConn
	c.wsMutex.Unlock()

	if conn == nil {
		return 0, fmt.Errorf("WebSocket not connected")
	}

	seq := c.nextSeq()
	env := wire.NewMessage(msgType, seq, time.Now().UnixMilli(), payload)

	c.wsMutex.Lock()
	defer c.wsMutex.Unlock()
	if err := c.wsConn.WriteJSON(env); err != nil {
		return 0, fmt.Errorf("failed to write message: %w", err)
	}
	return seq, nil
}

// WaitForType waits for the next envelope of the given type, discarding
// anything else seen first. Use WaitForReqSeq when a specific
// request/response correlation matters.
func (c *Client) WaitForType(msgType string, timeout time.Duration) (wire.Envelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case env, ok := <-c.wsMessages:
			if !ok {
				return wire.Envelope{}, fmt.Errorf("WebSocket closed")
			}
			if env.Type == msgType {
				return env, nil
			}
		case err := <-c.wsErrors:
			return wire.Envelope{}, err
		case <-timer.C:
			return wire.Envelope{}, fmt.Errorf("timeout waiting for message type %s", msgType)
		}
	}
}

// WaitForReqSeq waits for the response envelope answering seq.
func (c *Client) WaitForReqSeq(seq uint64, timeout time.Duration) (wire.Envelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case env, ok := <-c.wsMessages:
			if !ok {
				return wire.Envelope{}, fmt.Errorf("WebSocket closed")
			}
			if env.ReqSeq != nil && *env.ReqSeq == seq {
				return env, nil
			}
		case err := <-c.wsErrors:
			return wire.Envelope{}, err
		case <-timer.C:
			return wire.Envelope{}, fmt.Errorf("timeout waiting for response to seq %d", seq)
		}
	}
}

// GetNextEvent returns the next envelope received, regardless of type.
func (c *Client) GetNextEvent(timeout time.Duration) (wire.Envelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case env, ok := <-c.wsMessages:
		if !ok {
			return wire.Envelope{}, fmt.Errorf("WebSocket closed")
		}
		return env, nil
	case err := <-c.wsErrors:
		return wire.Envelope{}, err
	case <-timer.C:
		return wire.Envelope{}, fmt.Errorf("timeout waiting for event")
	}
}

// CloseWebSocket closes the WebSocket connection.
func (c *Client) CloseWebSocket() error {
	c.wsMutex.Lock()
	defer c.wsMutex.Unlock()

	if c.wsConn == nil {
		return nil
	}

	close(c.wsCloseCh)

	err := c.wsConn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	if err != nil {
		c.log.Warnf("Failed to send close message: %v", err)
	}

	if err := c.wsConn.Close(); err != nil {
		return fmt.Errorf("failed to close WebSocket: %w", err)
	}

	c.wsConn = nil
	return nil
}

// Close closes all connections.
func (c *Client) Close() error {
	if c.wsConn != nil {
		return c.CloseWebSocket()
	}
	return nil
}

// WaitForHealth waits for the server to be healthy.
func (c *Client) WaitForHealth(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := c.httpClient.Get(c.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}

		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become healthy within %v", timeout)
}

// Helper methods for common gameplay flows, mirroring the wire protocol.

// Auth sends the auth handshake and waits for auth-result.
func (c *Client) Auth(token string, timeout time.Duration) (wire.AuthResultPayload, error) {
	seq, err := c.Send(wire.TypeAuth, wire.AuthPayload{Token: token})
	if err != nil {
		return wire.AuthResultPayload{}, err
	}

	env, err := c.WaitForReqSeq(seq, timeout)
	if err != nil {
		return wire.AuthResultPayload{}, err
	}
	if env.Success != nil && !*env.Success {
		return wire.AuthResultPayload{}, fmt.Errorf("auth rejected: %s", env.Error)
	}

	var result wire.AuthResultPayload
	if err := unmarshalPayload(env, &result); err != nil {
		return wire.AuthResultPayload{}, err
	}
	return result, nil
}

// CreateGame creates a new session and waits for the lobby-state
// confirming it, returning the session's join code.
func (c *Client) CreateGame(displayName string, timeout time.Duration) (string, error) {
	seq, err := c.Send(wire.TypeCreateGame, wire.CreateGamePayload{DisplayName: displayName})
	if err != nil {
		return "", err
	}

	env, err := c.WaitForReqSeq(seq, timeout)
	if err != nil {
		return "", err
	}
	if env.Success != nil && !*env.Success {
		return "", fmt.Errorf("create-game rejected: %s", env.Error)
	}

	var lobby wire.LobbyStatePayload
	if err := unmarshalPayload(env, &lobby); err != nil {
		return "", err
	}
	return lobby.JoinCode, nil
}

// JoinGame joins an existing session by join code.
func (c *Client) JoinGame(joinCode, displayName string, timeout time.Duration) (wire.LobbyStatePayload, error) {
	seq, err := c.Send(wire.TypeJoinGame, wire.JoinGamePayload{
		JoinCode:    joinCode,
		DisplayName: displayName,
	})
	if err != nil {
		return wire.LobbyStatePayload{}, err
	}

	env, err := c.WaitForReqSeq(seq, timeout)
	if err != nil {
		return wire.LobbyStatePayload{}, err
	}
	if env.Success != nil && !*env.Success {
		return wire.LobbyStatePayload{}, fmt.Errorf("join-game rejected: %s", env.Error)
	}

	var lobby wire.LobbyStatePayload
	if err := unmarshalPayload(env, &lobby); err != nil {
		return wire.LobbyStatePayload{}, err
	}
	return lobby, nil
}

// SubmitAction sends an action for arbitration and waits for its
// action-result.
func (c *Client) SubmitAction(action wire.ActionPayload, timeout time.Duration) (wire.ActionResultPayload, error) {
	seq, err := c.Send(wire.TypeAction, action)
	if err != nil {
		return wire.ActionResultPayload{}, err
	}

	env, err := c.WaitForReqSeq(seq, timeout)
	if err != nil {
		return wire.ActionResultPayload{}, err
	}

	var result wire.ActionResultPayload
	if err := unmarshalPayload(env, &result); err != nil {
		return wire.ActionResultPayload{}, err
	}
	return result, nil
}

// GetFullState waits for the next full-state snapshot.
func (c *Client) GetFullState(timeout time.Duration) (wire.FullStatePayload, error) {
	env, err := c.WaitForType(wire.TypeFullState, timeout)
	if err != nil {
		return wire.FullStatePayload{}, err
	}

	var state wire.FullStatePayload
	if err := unmarshalPayload(env, &state); err != nil {
		return wire.FullStatePayload{}, err
	}
	return state, nil
}

// CreateCharacter requests a new persisted character record.
func (c *Client) CreateCharacter(clientID, name, class string, timeout time.Duration) (wire.CharacterSummary, error) {
	seq, err := c.Send(wire.TypeCreateCharacter, wire.CreateCharacterPayload{
		ClientID: clientID,
		Name:     name,
		Class:    class,
	})
	if err != nil {
		return wire.CharacterSummary{}, err
	}

	env, err := c.WaitForReqSeq(seq, timeout)
	if err != nil {
		return wire.CharacterSummary{}, err
	}
	if env.Success != nil && !*env.Success {
		return wire.CharacterSummary{}, fmt.Errorf("create-character rejected: %s", env.Error)
	}

	var result wire.CharacterPayload
	if err := unmarshalPayload(env, &result); err != nil {
		return wire.CharacterSummary{}, err
	}
	return result.Character, nil
}

// ListCharacters lists the persisted characters owned by the
// authenticated principal.
func (c *Client) ListCharacters(timeout time.Duration) ([]wire.CharacterSummary, error) {
	seq, err := c.Send(wire.TypeListCharacters, struct{}{})
	if err != nil {
		return nil, err
	}

	env, err := c.WaitForReqSeq(seq, timeout)
	if err != nil {
		return nil, err
	}
	if env.Success != nil && !*env.Success {
		return nil, fmt.Errorf("list-characters rejected: %s", env.Error)
	}

	var result wire.CharactersPayload
	if err := unmarshalPayload(env, &result); err != nil {
		return nil, err
	}
	return result.Characters, nil
}

func unmarshalPayload(env wire.Envelope, out interface{}) error {
	if env.Payload == nil {
		return fmt.Errorf("envelope %s carries no payload", env.Type)
	}
	return json.Unmarshal(env.Payload, out)
}
