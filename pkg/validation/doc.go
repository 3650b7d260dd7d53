// Package validation screens broker-dispatched messages before they
// reach the Action Arbiter or a session, and enforces a request-size
// ceiling on every message regardless of whether it carries a
// registered method.
//
// # Creating a Validator
//
// Create an InputValidator with a maximum request size limit:
//
//	validator := validation.NewInputValidator(1024 * 1024) // 1MB limit
//
// # Validating Requests
//
// Validate a decoded wire payload before acting on it:
//
//	err := validator.ValidateRPCRequest(method, payload, payloadSize)
//	if err != nil {
//	    return fmt.Errorf("invalid request: %w", err)
//	}
//
// # Supported Methods
//
// Action kinds, keyed by ActionMethod:
//   - move, attack, collect-loot, end-turn
//
// DM command kinds, keyed by DMCommandMethod:
//   - pause, resume, grant, kick
//
// Lobby and chat methods, keyed by their wire.Type constant:
//   - join-game, create-character, chat
//
// Other:
//   - ping, used only by the health checker's self-test
//
// # Validation Rules
//
//   - Display/character names: 1-50 characters, UTF-8, alphanumeric with limited punctuation
//   - Character classes: warrior, ranger, mage, rogue
//   - Move path coordinates: range -10000 to 10000, at most 64 steps
//   - Chat text: non-empty, at most 2000 characters
//   - Grant currency: non-negative gold and silver
package validation
