package principal

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "runeforge-test-issuer"
	testAudience = "runeforge-test-audience"
)

func testKeyPair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub, priv
}

func signToken(t *testing.T, priv ed25519.PrivateKey, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := tok.SignedString(priv)
	require.NoError(t, err)
	return signed
}

func fixedNow() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }

func TestNewDecoder_RejectsEmptyIssuerOrAudienceOrBadKey(t *testing.T) {
	pub, _ := testKeyPair(t)

	_, err := NewDecoder("", testAudience, pub, fixedNow)
	assert.Error(t, err)

	_, err = NewDecoder(testIssuer, "", pub, fixedNow)
	assert.Error(t, err)

	_, err = NewDecoder(testIssuer, testAudience, ed25519.PublicKey{1, 2, 3}, fixedNow)
	assert.Error(t, err)
}

func TestDecode_ValidTokenReturnsPrincipal(t *testing.T) {
	pub, priv := testKeyPair(t)
	d, err := NewDecoder(testIssuer, testAudience, pub, fixedNow)
	require.NoError(t, err)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(fixedNow().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(fixedNow()),
		},
		DisplayName: "Aria",
	}
	token := signToken(t, priv, claims)

	p, err := d.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", p.ID)
	assert.Equal(t, "Aria", p.DisplayName)
}

func TestDecode_MissingDisplayNameFallsBackToSubject(t *testing.T) {
	pub, priv := testKeyPair(t)
	d, err := NewDecoder(testIssuer, testAudience, pub, fixedNow)
	require.NoError(t, err)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			Subject:   "user-456",
			ExpiresAt: jwt.NewNumericDate(fixedNow().Add(time.Hour)),
		},
	}
	token := signToken(t, priv, claims)

	p, err := d.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "user-456", p.DisplayName)
}

func TestDecode_RejectsWrongSigningKey(t *testing.T) {
	pub, _ := testKeyPair(t)
	_, otherPriv := testKeyPair(t)
	d, err := NewDecoder(testIssuer, testAudience, pub, fixedNow)
	require.NoError(t, err)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		Subject:   "user-789",
		ExpiresAt: jwt.NewNumericDate(fixedNow().Add(time.Hour)),
	}}
	token := signToken(t, otherPriv, claims)

	_, err = d.Decode(token)
	assert.Error(t, err)
}

func TestDecode_RejectsIssuerMismatch(t *testing.T) {
	pub, priv := testKeyPair(t)
	d, err := NewDecoder(testIssuer, testAudience, pub, fixedNow)
	require.NoError(t, err)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Audience:  jwt.ClaimStrings{testAudience},
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(fixedNow().Add(time.Hour)),
	}}
	token := signToken(t, priv, claims)

	_, err = d.Decode(token)
	assert.Error(t, err)
}

func TestDecode_RejectsAudienceMismatch(t *testing.T) {
	pub, priv := testKeyPair(t)
	d, err := NewDecoder(testIssuer, testAudience, pub, fixedNow)
	require.NoError(t, err)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{"someone-else"},
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(fixedNow().Add(time.Hour)),
	}}
	token := signToken(t, priv, claims)

	_, err = d.Decode(token)
	assert.Error(t, err)
}

func TestDecode_RejectsExpiredToken(t *testing.T) {
	pub, priv := testKeyPair(t)
	d, err := NewDecoder(testIssuer, testAudience, pub, fixedNow)
	require.NoError(t, err)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(fixedNow().Add(-time.Hour)),
	}}
	token := signToken(t, priv, claims)

	_, err = d.Decode(token)
	assert.Error(t, err)
}

func TestDecode_RejectsMissingSubject(t *testing.T) {
	pub, priv := testKeyPair(t)
	d, err := NewDecoder(testIssuer, testAudience, pub, fixedNow)
	require.NoError(t, err)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		ExpiresAt: jwt.NewNumericDate(fixedNow().Add(time.Hour)),
	}}
	token := signToken(t, priv, claims)

	_, err = d.Decode(token)
	assert.Error(t, err)
}

func TestDecode_RejectsEmptyToken(t *testing.T) {
	pub, _ := testKeyPair(t)
	d, err := NewDecoder(testIssuer, testAudience, pub, fixedNow)
	require.NoError(t, err)

	_, err = d.Decode("   ")
	assert.Error(t, err)
}

func TestDecode_RejectsWrongAlgorithm(t *testing.T) {
	pub, _ := testKeyPair(t)
	d, err := NewDecoder(testIssuer, testAudience, pub, fixedNow)
	require.NoError(t, err)

	// HS256 token signed with an arbitrary secret must never verify
	// against an ed25519 key under WithValidMethods([]string{"EdDSA"}).
	hsClaims := jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(fixedNow().Add(time.Hour)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, hsClaims)
	signed, err := tok.SignedString([]byte("arbitrary-secret"))
	require.NoError(t, err)

	_, err = d.Decode(signed)
	assert.Error(t, err)
}
