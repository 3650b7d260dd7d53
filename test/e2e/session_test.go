package e2e

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSessionWorkflow tests the lobby lifecycle: create, join, reject
// bad join codes, reject double-joins.
func TestSessionWorkflow(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	t.Run("create_game_returns_join_code", func(t *testing.T) {
		host := ConnectAndAuth(t, helper.Server(), "host-1", "Host")
		defer host.Close()

		joinCode, err := host.CreateGame("Host", 5*time.Second)
		require.NoError(t, err, "should create game successfully")
		AssertJoinCode(t, joinCode)
	})

	t.Run("join_game_with_valid_code", func(t *testing.T) {
		host := ConnectAndAuth(t, helper.Server(), "host-2", "Host")
		defer host.Close()
		guest := ConnectAndAuth(t, helper.Server(), "guest-2", "Guest")
		defer guest.Close()

		_, guestLobby := CreateAndJoinSession(t, host, guest)
		AssertLobbyState(t, guestLobby, "guest-2")
	})

	t.Run("join_game_with_invalid_code_fails", func(t *testing.T) {
		guest := ConnectAndAuth(t, helper.Server(), "guest-3", "Guest")
		defer guest.Close()

		_, err := guest.JoinGame("no-such-code", "Guest", 5*time.Second)
		require.Error(t, err, "should fail with invalid join code")
		ErrorContains(t, err, "session")
	})

	t.Run("create_game_twice_is_rejected", func(t *testing.T) {
		host := ConnectAndAuth(t, helper.Server(), "host-4", "Host")
		defer host.Close()

		_, err := host.CreateGame("Host", 5*time.Second)
		require.NoError(t, err)

		_, err = host.CreateGame("Host", 5*time.Second)
		require.Error(t, err, "should not allow creating a second session on the same connection")
	})
}

// TestSessionConcurrency tests concurrent session creation across
// distinct authenticated connections.
func TestSessionConcurrency(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	numSessions := 5
	joinCodeCh := make(chan string, numSessions)
	errCh := make(chan error, numSessions)

	var wg sync.WaitGroup
	for i := 0; i < numSessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			host := ConnectAndAuth(t, helper.Server(), fmt.Sprintf("concurrent-host-%d", i), RandomCharacterName())
			joinCode, err := host.CreateGame(RandomCharacterName(), 10*time.Second)
			if err != nil {
				errCh <- err
				return
			}
			joinCodeCh <- joinCode
		}(i)
	}

	go func() {
		wg.Wait()
		close(joinCodeCh)
		close(errCh)
	}()

	joinCodes := make([]string, 0, numSessions)
	for code := range joinCodeCh {
		joinCodes = append(joinCodes, code)
	}
	for err := range errCh {
		t.Fatalf("error creating session: %v", err)
	}

	require.Len(t, joinCodes, numSessions, "should create correct number of sessions")
	seen := make(map[string]bool)
	for _, code := range joinCodes {
		assert.False(t, seen[code], "join codes should be unique")
		seen[code] = true
	}
}

// TestMultipleClients tests multiple clients connecting simultaneously
// and confirms one session's roster does not leak into another's.
func TestMultipleClients(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	numPairs := 3
	joinCodes := make([]string, numPairs)

	for i := 0; i < numPairs; i++ {
		host := ConnectAndAuth(t, helper.Server(), fmt.Sprintf("multi-host-%d", i), RandomCharacterName())
		defer host.Close()

		joinCode, err := host.CreateGame(RandomCharacterName(), 5*time.Second)
		require.NoError(t, err, "host %d should create game", i)
		joinCodes[i] = joinCode
	}

	seen := make(map[string]bool)
	for i, code := range joinCodes {
		assert.False(t, seen[code], "client %d's join code should be unique", i)
		seen[code] = true
	}

	guest := ConnectAndAuth(t, helper.Server(), "multi-guest", "Guest")
	defer guest.Close()

	lobby, err := guest.JoinGame(joinCodes[0], "Guest", 5*time.Second)
	require.NoError(t, err, "guest should join the first session")
	AssertLobbyState(t, lobby, "multi-guest")

	_, err = guest.JoinGame(joinCodes[1], "Guest", 5*time.Second)
	require.Error(t, err, "a connection already in a session should not join another")
}
