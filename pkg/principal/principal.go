// Package principal decodes the opaque authenticated credential the
// Connection Broker receives on a new connection into the {id,
// display-name} shape the rest of the server consumes. It verifies a
// token issued by an external identity mechanism; it never issues one.
package principal

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Principal is the authenticated identity of a human player or DM,
// asserted by whatever issued the token this package verifies.
type Principal struct {
	ID          string
	DisplayName string
}

// Claims is the JWT claims shape this package expects: a standard
// registered-claims set plus the one custom field the broker needs.
type Claims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"display_name"`
}

// Decoder verifies principal tokens against a fixed ed25519 public key,
// issuer, and audience. A Decoder is safe for concurrent use.
type Decoder struct {
	issuer   string
	audience string
	key      ed25519.PublicKey
	now      func() time.Time
}

// NewDecoder builds a Decoder. issuer and audience must be non-empty
// and key must be a valid ed25519 public key; now defaults to
// time.Now when nil.
func NewDecoder(issuer, audience string, key ed25519.PublicKey, now func() time.Time) (*Decoder, error) {
	logrus.WithFields(logrus.Fields{
		"function": "NewDecoder",
		"package":  "principal",
	}).Debug("entering NewDecoder")

	issuer = strings.TrimSpace(issuer)
	audience = strings.TrimSpace(audience)
	if issuer == "" {
		return nil, errors.New("principal: issuer is required")
	}
	if audience == "" {
		return nil, errors.New("principal: audience is required")
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("principal: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}
	if now == nil {
		now = time.Now
	}

	return &Decoder{issuer: issuer, audience: audience, key: key, now: now}, nil
}

// Decode verifies token and returns the Principal it asserts. It
// rejects tokens with the wrong signing algorithm, a bad signature, an
// issuer or audience mismatch, a missing or expired exp claim, a
// missing subject, or a not-yet-valid nbf claim.
func (d *Decoder) Decode(token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, errors.New("principal: token is required")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return d.key, nil
	}, jwt.WithValidMethods([]string{"EdDSA"}), jwt.WithTimeFunc(d.now), jwt.WithExpirationRequired())
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Decode",
			"package":  "principal",
			"error":    err,
		}).Warn("principal token rejected")
		return Principal{}, mapJWTError(err)
	}

	if claims.Issuer != d.issuer {
		return Principal{}, errors.New("principal: issuer mismatch")
	}
	if !audienceContains(claims.Audience, d.audience) {
		return Principal{}, errors.New("principal: audience mismatch")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Principal{}, errors.New("principal: subject is required")
	}

	displayName := strings.TrimSpace(claims.DisplayName)
	if displayName == "" {
		displayName = claims.Subject
	}

	return Principal{ID: claims.Subject, DisplayName: displayName}, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrEd25519Verification):
		return errors.New("principal: signature is invalid")
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.New("principal: token is expired")
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return errors.New("principal: token is not valid yet")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return errors.New("principal: token alg is invalid")
	default:
		return fmt.Errorf("principal: token is invalid: %w", err)
	}
}

func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
