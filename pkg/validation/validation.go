// Package validation provides input validation for the messages the
// Connection Broker hands to the Action Arbiter. It ensures action and
// dm-command payloads are structurally sane before they reach session
// logic, and enforces a request-size ceiling to keep a single frame
// from forcing a large decode.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"runeforge/pkg/wire"
)

// InputValidator validates wire messages by method name. It maintains a
// registry of validation functions and enforces a size limit on every
// request regardless of whether that method is registered.
type InputValidator struct {
	maxRequestSize int64
	validators     map[string]func(interface{}) error
}

// NewInputValidator creates a new InputValidator with the specified maximum request size.
// The maxRequestSize parameter limits the size of incoming requests to prevent DoS attacks.
func NewInputValidator(maxRequestSize int64) *InputValidator {
	validator := &InputValidator{
		maxRequestSize: maxRequestSize,
		validators:     make(map[string]func(interface{}) error),
	}

	validator.registerValidators()

	return validator
}

// ValidateRPCRequest validates a request by checking method existence,
// request size limits, and running method-specific validation rules.
func (v *InputValidator) ValidateRPCRequest(method string, params interface{}, requestSize int64) error {
	if requestSize > v.maxRequestSize {
		return fmt.Errorf("request size %d exceeds maximum allowed size %d", requestSize, v.maxRequestSize)
	}

	validator, exists := v.validators[method]
	if !exists {
		return fmt.Errorf("unknown method: %s", method)
	}

	return validator(params)
}

// ActionMethod builds the registry key for an action message of the
// given kind ("move", "attack", "collect-loot", "end-turn").
func ActionMethod(kind string) string { return wire.TypeAction + ":" + kind }

// DMCommandMethod builds the registry key for a dm-command message of
// the given kind ("pause", "resume", "grant", "kick").
func DMCommandMethod(kind string) string { return wire.TypeDMCommand + ":" + kind }

// registerValidators sets up validation rules for every wire method the
// broker routes through the arbiter, plus the lobby methods whose own
// handlers don't already validate free-text fields, and a bare "ping"
// for the health checker's self-test.
func (v *InputValidator) registerValidators() {
	v.validators["ping"] = v.validatePing

	v.validators[ActionMethod("move")] = v.validateActionMove
	v.validators[ActionMethod("attack")] = v.validateActionAttack
	v.validators[ActionMethod("collect-loot")] = v.validateActionCollectLoot
	v.validators[ActionMethod("end-turn")] = v.validateActionEndTurn

	v.validators[DMCommandMethod("pause")] = v.validateDMCommandBare
	v.validators[DMCommandMethod("resume")] = v.validateDMCommandBare
	v.validators[DMCommandMethod("grant")] = v.validateDMCommandGrant
	v.validators[DMCommandMethod("kick")] = v.validateDMCommandKick

	v.validators[wire.TypeJoinGame] = v.validateJoinGame
	v.validators[wire.TypeCreateCharacter] = v.validateCreateCharacter
	v.validators[wire.TypeChat] = v.validateChat
}

func (v *InputValidator) validatePing(params interface{}) error {
	return nil
}

func (v *InputValidator) validateActionMove(params interface{}) error {
	p, ok := params.(wire.ActionPayload)
	if !ok {
		return fmt.Errorf("move action expects an action payload")
	}
	if strings.TrimSpace(p.UnitID) == "" {
		return fmt.Errorf("move action requires a unitId")
	}
	if len(p.Path) == 0 {
		return fmt.Errorf("move action requires at least one path step")
	}
	if len(p.Path) > 64 {
		return fmt.Errorf("move path cannot exceed 64 steps")
	}
	for _, c := range p.Path {
		if err := validateCoord(c); err != nil {
			return err
		}
	}
	return nil
}

func (v *InputValidator) validateActionAttack(params interface{}) error {
	p, ok := params.(wire.ActionPayload)
	if !ok {
		return fmt.Errorf("attack action expects an action payload")
	}
	if strings.TrimSpace(p.UnitID) == "" {
		return fmt.Errorf("attack action requires a unitId")
	}
	if strings.TrimSpace(p.TargetID) == "" {
		return fmt.Errorf("attack action requires a targetId")
	}
	return nil
}

func (v *InputValidator) validateActionCollectLoot(params interface{}) error {
	p, ok := params.(wire.ActionPayload)
	if !ok {
		return fmt.Errorf("collect-loot action expects an action payload")
	}
	if strings.TrimSpace(p.UnitID) == "" {
		return fmt.Errorf("collect-loot action requires a unitId")
	}
	if strings.TrimSpace(p.LootID) == "" {
		return fmt.Errorf("collect-loot action requires a lootId")
	}
	return nil
}

func (v *InputValidator) validateActionEndTurn(params interface{}) error {
	p, ok := params.(wire.ActionPayload)
	if !ok {
		return fmt.Errorf("end-turn action expects an action payload")
	}
	if strings.TrimSpace(p.UnitID) == "" {
		return fmt.Errorf("end-turn action requires a unitId")
	}
	return nil
}

func (v *InputValidator) validateDMCommandBare(params interface{}) error {
	if _, ok := params.(wire.DMCommandPayload); !ok {
		return fmt.Errorf("dm-command expects a dm-command payload")
	}
	return nil
}

func (v *InputValidator) validateDMCommandGrant(params interface{}) error {
	p, ok := params.(wire.DMCommandPayload)
	if !ok {
		return fmt.Errorf("grant command expects a dm-command payload")
	}
	if strings.TrimSpace(p.UnitID) == "" {
		return fmt.Errorf("grant command requires a unitId")
	}
	if p.Gold < 0 || p.Silver < 0 {
		return fmt.Errorf("grant command cannot award negative currency")
	}
	return nil
}

func (v *InputValidator) validateDMCommandKick(params interface{}) error {
	p, ok := params.(wire.DMCommandPayload)
	if !ok {
		return fmt.Errorf("kick command expects a dm-command payload")
	}
	if strings.TrimSpace(p.PrincipalID) == "" {
		return fmt.Errorf("kick command requires a principalId")
	}
	return nil
}

func (v *InputValidator) validateJoinGame(params interface{}) error {
	p, ok := params.(wire.JoinGamePayload)
	if !ok {
		return fmt.Errorf("join-game expects a join-game payload")
	}
	if strings.TrimSpace(p.JoinCode) == "" {
		return fmt.Errorf("join-game requires a joinCode")
	}
	return validateDisplayName(p.DisplayName)
}

func (v *InputValidator) validateCreateCharacter(params interface{}) error {
	p, ok := params.(wire.CreateCharacterPayload)
	if !ok {
		return fmt.Errorf("create-character expects a create-character payload")
	}
	if err := validateCharacterName(p.Name); err != nil {
		return err
	}
	return validateCharacterClass(p.Class)
}

func (v *InputValidator) validateChat(params interface{}) error {
	p, ok := params.(wire.ChatPayload)
	if !ok {
		return fmt.Errorf("chat expects a chat payload")
	}
	if len(strings.TrimSpace(p.Text)) == 0 {
		return fmt.Errorf("chat text cannot be empty")
	}
	if utf8.RuneCountInString(p.Text) > 2000 {
		return fmt.Errorf("chat text cannot exceed 2000 characters")
	}
	return nil
}

func validateCoord(c wire.Coord) error {
	if c.X < -10000 || c.X > 10000 || c.Y < -10000 || c.Y > 10000 {
		return fmt.Errorf("coordinate out of valid range (-10000 to 10000)")
	}
	return nil
}

func validateDisplayName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) == 0 {
		return fmt.Errorf("display name cannot be empty")
	}

	if len(name) > 50 {
		return fmt.Errorf("display name cannot exceed 50 characters")
	}

	if !utf8.ValidString(name) {
		return fmt.Errorf("display name contains invalid UTF-8 characters")
	}

	nameRegex := regexp.MustCompile(`^[a-zA-Z0-9\s\-_'\.]+$`)
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("display name contains invalid characters")
	}

	return nil
}

func validateCharacterName(name string) error {
	return validateDisplayName(name)
}

func validateCharacterClass(class string) error {
	validClasses := []string{
		"warrior", "ranger", "mage", "rogue",
	}

	class = strings.ToLower(strings.TrimSpace(class))

	for _, validClass := range validClasses {
		if class == validClass {
			return nil
		}
	}

	return fmt.Errorf("invalid character class: %s", class)
}
