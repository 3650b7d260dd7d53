package e2e

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runeforge/pkg/wire"
)

// Fixtures provides test data and helper functions for E2E tests.

// CharacterClasses are the classes the persistence layer accepts.
var CharacterClasses = []string{
	"warrior",
	"ranger",
	"mage",
	"rogue",
}

// CharacterNames provides sample character names for testing.
var CharacterNames = []string{
	"Aldric",
	"Brianna",
	"Cedric",
	"Diana",
	"Eldrin",
	"Fiona",
	"Gareth",
	"Helena",
}

// RandomCharacterName returns a random character name.
func RandomCharacterName() string {
	return CharacterNames[rand.Intn(len(CharacterNames))]
}

// RandomCharacterClass returns a random character class.
func RandomCharacterClass() string {
	return CharacterClasses[rand.Intn(len(CharacterClasses))]
}

// AssertJoinCode asserts that a join code looks plausible.
func AssertJoinCode(t *testing.T, joinCode string) {
	require.NotEmpty(t, joinCode, "join code should not be empty")
}

// AssertLobbyState asserts that a lobby-state payload is well formed and
// contains an entry for principalID.
func AssertLobbyState(t *testing.T, lobby wire.LobbyStatePayload, principalID string) {
	AssertJoinCode(t, lobby.JoinCode)
	require.NotEmpty(t, lobby.Roster, "roster should not be empty")

	found := false
	for _, entry := range lobby.Roster {
		if entry.PrincipalID == principalID {
			found = true
		}
	}
	assert.True(t, found, "roster should contain principal %s", principalID)
}

// AssertActionAccepted asserts that an action-result reports success.
func AssertActionAccepted(t *testing.T, result wire.ActionResultPayload) {
	assert.True(t, result.Valid, "action should be accepted, got reason %q code %q", result.Reason, result.Code)
}

// AssertActionRejected asserts that an action-result reports failure.
func AssertActionRejected(t *testing.T, result wire.ActionResultPayload) {
	assert.False(t, result.Valid, "action should be rejected")
	assert.NotEmpty(t, result.Code, "rejected action should carry a reason code")
}

// ConnectAndAuth mints a token asserting subject/displayName against
// server's configured auth key, dials the WebSocket endpoint, and
// completes the auth handshake, returning the connected client.
func ConnectAndAuth(t *testing.T, server *TestServer, subject, displayName string) *Client {
	token, err := server.MintToken(subject, displayName, time.Hour)
	require.NoError(t, err, "should mint auth token")

	client := NewClient(server.BaseURL())
	require.NoError(t, client.ConnectWebSocket(), "should connect websocket")

	_, err = client.Auth(token, 5*time.Second)
	require.NoError(t, err, "should authenticate")

	return client
}

// CreateAndJoinSession has one client create a session and a second
// client join it by join code, returning the guest's own lobby-state
// response and the broadcast lobby-state the host observes afterward.
func CreateAndJoinSession(t *testing.T, host, guest *Client) (hostLobby, guestLobby wire.LobbyStatePayload) {
	joinCode, err := host.CreateGame(RandomCharacterName(), 5*time.Second)
	require.NoError(t, err, "should create game")
	AssertJoinCode(t, joinCode)

	guestLobby, err = guest.JoinGame(joinCode, RandomCharacterName(), 5*time.Second)
	require.NoError(t, err, "should join game")

	hostEnv, err := host.WaitForType(wire.TypeLobbyState, 5*time.Second)
	require.NoError(t, err, "host should see lobby-state broadcast after guest joins")
	require.NoError(t, unmarshalPayload(hostEnv, &hostLobby))

	return
}

// WaitForServerStart waits for server to start and returns a client.
func WaitForServerStart(t *testing.T, server *TestServer) *Client {
	client := NewClient(server.BaseURL())
	err := client.WaitForHealth(30 * time.Second)
	require.NoError(t, err, "server should be healthy")
	return client
}

// TestHelper provides common test setup and teardown.
type TestHelper struct {
	t      *testing.T
	server *TestServer
	client *Client
}

// NewTestHelper creates a new test helper.
func NewTestHelper(t *testing.T) *TestHelper {
	server, err := NewTestServer()
	require.NoError(t, err, "should create test server")

	err = server.Start()
	require.NoError(t, err, "should start test server")

	client := NewClient(server.BaseURL())

	return &TestHelper{
		t:      t,
		server: server,
		client: client,
	}
}

// Cleanup cleans up test resources.
func (th *TestHelper) Cleanup() {
	if th.client != nil {
		th.client.Close()
	}
	if th.server != nil {
		th.server.Stop()
	}
}

// Server returns the test server.
func (th *TestHelper) Server() *TestServer {
	return th.server
}

// Client returns the test client.
func (th *TestHelper) Client() *Client {
	return th.client
}

// ErrorContains asserts that an error contains a specific message.
func ErrorContains(t *testing.T, err error, contains string) {
	require.Error(t, err, "expected an error")
	assert.Contains(t, err.Error(), contains, fmt.Sprintf("error should contain '%s'", contains))
}
