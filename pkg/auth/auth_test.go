package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("test-secret-key-32-chars-min!!!")

// ===== BCRYPT TESTS =====

func TestHashSecret_VerifyRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashSecret("s3cr3t", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cr3t", hash)
	assert.True(t, strings.HasPrefix(hash, "$2"), "hash should carry a bcrypt prefix, got %q", hash)

	assert.True(t, VerifySecret(hash, "s3cr3t"))
	assert.False(t, VerifySecret(hash, "wrong"))
}

func TestHashSecret_OutOfRangeCostUsesDefault(t *testing.T) {
	t.Parallel()

	hash, err := HashSecret("x", 99)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultBCryptCost, cost)
}

func TestVerifySecret_InvalidHash(t *testing.T) {
	t.Parallel()
	assert.False(t, VerifySecret("not-a-hash", "x"))
}

func TestNewSecret_Unique(t *testing.T) {
	t.Parallel()

	a, err := NewSecret()
	require.NoError(t, err)
	b, err := NewSecret()
	require.NoError(t, err)

	assert.Len(t, a, secretBytes*2)
	assert.NotEqual(t, a, b)
}

// ===== OPAQUE KEY TESTS =====

func TestOpaqueKey_RoundTrip(t *testing.T) {
	t.Parallel()

	in := OpaqueKey{OrganizationID: "org_A.with.dots", KeyID: "0190-key", Secret: "abc123"}
	wire := in.String()

	require.True(t, IsOpaqueKey(wire))
	out, err := ParseOpaqueKey(wire)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParseOpaqueKey_Malformed(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"fxk",
		"fxk.a.b",
		"xyz.b3JnX0E.key.secret",
		"fxk.!!!.key.secret",
		"fxk..key.secret",
		"fxk.b3JnX0E..secret",
		"fxk.b3JnX0E.key.",
		"fxk.b3JnX0E.key.secret.extra",
	}
	for _, tc := range cases {
		_, err := ParseOpaqueKey(tc)
		assert.ErrorIs(t, err, ErrMalformedKey, "input %q", tc)
	}
}

// ===== SIGNED KEY TESTS =====

func TestSignKey_ParseRoundTrip(t *testing.T) {
	t.Parallel()

	token, err := SignKey(testSecret, "org_A", "key-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."), "JWT must have 3 segments")

	claims, err := ParseSignedKey(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "org_A", claims.OrganizationID)
	assert.Equal(t, "key-1", claims.ID)
	require.NotNil(t, claims.ExpiresAt)
}

func TestSignKey_NoTTLHasNoExpiry(t *testing.T) {
	t.Parallel()

	token, err := SignKey(testSecret, "org_A", "key-1", 0)
	require.NoError(t, err)

	claims, err := ParseSignedKey(testSecret, token)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestSignKey_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := SignKey(nil, "org_A", "key-1", 0)
	assert.ErrorIs(t, err, ErrEmptySecret)
	_, err = ParseSignedKey(nil, "x.y.z")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestParseSignedKey_WrongSecret(t *testing.T) {
	t.Parallel()

	token, err := SignKey(testSecret, "org_A", "key-1", 0)
	require.NoError(t, err)

	_, err = ParseSignedKey([]byte("another-secret"), token)
	assert.Error(t, err)
}

func TestParseSignedKey_Expired(t *testing.T) {
	t.Parallel()

	claims := &KeyClaims{
		OrganizationID: "org_A",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "key-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = ParseSignedKey(testSecret, token)
	assert.Error(t, err)
}

func TestParseSignedKey_MissingClaims(t *testing.T) {
	t.Parallel()

	claims := &KeyClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "key-1"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = ParseSignedKey(testSecret, token)
	assert.ErrorIs(t, err, ErrMalformedKey)
}

func TestParseSignedKey_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	claims := &KeyClaims{OrganizationID: "org_A", RegisteredClaims: jwt.RegisteredClaims{ID: "key-1"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseSignedKey(testSecret, token)
	assert.Error(t, err)
}
