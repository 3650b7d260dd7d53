package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"runeforge/pkg/wire"
)

func TestNewInputValidator(t *testing.T) {
	validator := NewInputValidator(1024)

	assert.NotNil(t, validator)
	assert.Equal(t, int64(1024), validator.maxRequestSize)
	assert.NotEmpty(t, validator.validators)

	expectedMethods := []string{
		"ping",
		ActionMethod("move"), ActionMethod("attack"), ActionMethod("collect-loot"), ActionMethod("end-turn"),
		DMCommandMethod("pause"), DMCommandMethod("resume"), DMCommandMethod("grant"), DMCommandMethod("kick"),
		wire.TypeJoinGame, wire.TypeCreateCharacter, wire.TypeChat,
	}

	for _, method := range expectedMethods {
		_, exists := validator.validators[method]
		assert.True(t, exists, "method %s should be registered", method)
	}
}

func TestValidateRPCRequest(t *testing.T) {
	validator := NewInputValidator(100)

	tests := []struct {
		name          string
		method        string
		params        interface{}
		requestSize   int64
		expectError   bool
		errorContains string
	}{
		{
			name:          "request too large",
			method:        "ping",
			params:        nil,
			requestSize:   200,
			expectError:   true,
			errorContains: "exceeds maximum",
		},
		{
			name:          "unknown method",
			method:        "unknownMethod",
			params:        nil,
			requestSize:   50,
			expectError:   true,
			errorContains: "unknown method",
		},
		{
			name:        "valid ping request",
			method:      "ping",
			params:      nil,
			requestSize: 50,
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateRPCRequest(tt.method, tt.params, tt.requestSize)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateActionMove(t *testing.T) {
	validator := NewInputValidator(1024)

	tests := []struct {
		name          string
		params        interface{}
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid move",
			params:      wire.ActionPayload{Kind: "move", UnitID: "u1", Path: []wire.Coord{{X: 1, Y: 1}, {X: 2, Y: 1}}},
			expectError: false,
		},
		{
			name:          "missing unit ID",
			params:        wire.ActionPayload{Kind: "move", Path: []wire.Coord{{X: 1, Y: 1}}},
			expectError:   true,
			errorContains: "requires a unitId",
		},
		{
			name:          "empty path",
			params:        wire.ActionPayload{Kind: "move", UnitID: "u1"},
			expectError:   true,
			errorContains: "at least one path step",
		},
		{
			name:          "coordinate out of range",
			params:        wire.ActionPayload{Kind: "move", UnitID: "u1", Path: []wire.Coord{{X: 15000, Y: 1}}},
			expectError:   true,
			errorContains: "out of valid range",
		},
		{
			name:          "wrong payload type",
			params:        "not an action payload",
			expectError:   true,
			errorContains: "expects an action payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.validateActionMove(tt.params)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateActionAttack(t *testing.T) {
	validator := NewInputValidator(1024)

	tests := []struct {
		name          string
		params        interface{}
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid attack",
			params:      wire.ActionPayload{Kind: "attack", UnitID: "u1", TargetID: "u2"},
			expectError: false,
		},
		{
			name:          "missing target",
			params:        wire.ActionPayload{Kind: "attack", UnitID: "u1"},
			expectError:   true,
			errorContains: "requires a targetId",
		},
		{
			name:          "missing unit",
			params:        wire.ActionPayload{Kind: "attack", TargetID: "u2"},
			expectError:   true,
			errorContains: "requires a unitId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.validateActionAttack(tt.params)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDMCommandGrant(t *testing.T) {
	validator := NewInputValidator(1024)

	tests := []struct {
		name          string
		params        interface{}
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid grant",
			params:      wire.DMCommandPayload{Kind: "grant", UnitID: "u1", Gold: 10, Silver: 5},
			expectError: false,
		},
		{
			name:          "missing unit",
			params:        wire.DMCommandPayload{Kind: "grant", Gold: 10},
			expectError:   true,
			errorContains: "requires a unitId",
		},
		{
			name:          "negative gold",
			params:        wire.DMCommandPayload{Kind: "grant", UnitID: "u1", Gold: -1},
			expectError:   true,
			errorContains: "negative currency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.validateDMCommandGrant(tt.params)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDMCommandKick(t *testing.T) {
	validator := NewInputValidator(1024)

	assert.NoError(t, validator.validateDMCommandKick(wire.DMCommandPayload{Kind: "kick", PrincipalID: "p1"}))

	err := validator.validateDMCommandKick(wire.DMCommandPayload{Kind: "kick"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires a principalId")
}

func TestValidateJoinGame(t *testing.T) {
	validator := NewInputValidator(1024)

	tests := []struct {
		name          string
		params        interface{}
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid join",
			params:      wire.JoinGamePayload{JoinCode: "ABC123", DisplayName: "Arannis"},
			expectError: false,
		},
		{
			name:          "missing join code",
			params:        wire.JoinGamePayload{DisplayName: "Arannis"},
			expectError:   true,
			errorContains: "requires a joinCode",
		},
		{
			name:          "empty display name",
			params:        wire.JoinGamePayload{JoinCode: "ABC123", DisplayName: ""},
			expectError:   true,
			errorContains: "cannot be empty",
		},
		{
			name:          "display name too long",
			params:        wire.JoinGamePayload{JoinCode: "ABC123", DisplayName: strings.Repeat("a", 51)},
			expectError:   true,
			errorContains: "cannot exceed 50 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.validateJoinGame(tt.params)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCreateCharacter(t *testing.T) {
	validator := NewInputValidator(1024)

	tests := []struct {
		name          string
		params        interface{}
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid character",
			params:      wire.CreateCharacterPayload{ClientID: "c1", Name: "Arannis", Class: "warrior"},
			expectError: false,
		},
		{
			name:          "empty name",
			params:        wire.CreateCharacterPayload{ClientID: "c1", Name: "", Class: "fighter"},
			expectError:   true,
			errorContains: "cannot be empty",
		},
		{
			name:          "invalid class",
			params:        wire.CreateCharacterPayload{ClientID: "c1", Name: "Arannis", Class: "invalidclass"},
			expectError:   true,
			errorContains: "invalid character class",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.validateCreateCharacter(tt.params)

			if tt.expectError {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateChat(t *testing.T) {
	validator := NewInputValidator(1024)

	assert.NoError(t, validator.validateChat(wire.ChatPayload{Text: "hello party"}))

	err := validator.validateChat(wire.ChatPayload{Text: "   "})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")

	err = validator.validateChat(wire.ChatPayload{Text: strings.Repeat("a", 2001)})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot exceed 2000 characters")
}

func TestValidateCharacterClass(t *testing.T) {
	tests := []struct {
		name        string
		class       string
		expectError bool
	}{
		{name: "valid class - warrior", class: "warrior", expectError: false},
		{name: "valid class - mage", class: "mage", expectError: false},
		{name: "valid class with uppercase", class: "WARRIOR", expectError: false},
		{name: "valid class with whitespace", class: " warrior ", expectError: false},
		{name: "invalid class", class: "invalidclass", expectError: true},
		{name: "empty class", class: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCharacterClass(tt.class)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDisplayName(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		expectError bool
	}{
		{name: "valid name", displayName: "TestPlayer", expectError: false},
		{name: "valid name with spaces", displayName: "Test Player", expectError: false},
		{name: "valid name with numbers", displayName: "TestPlayer123", expectError: false},
		{name: "valid name with allowed punctuation", displayName: "Test-Player_42.0", expectError: false},
		{name: "empty name", displayName: "", expectError: true},
		{name: "name too long", displayName: strings.Repeat("a", 51), expectError: true},
		{name: "name with invalid characters", displayName: "Test<Player>", expectError: true},
		{name: "name with only whitespace", displayName: "   ", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDisplayName(tt.displayName)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
