// Package auth holds the credential primitives for agent API keys: bcrypt secret hashing,
// the opaque "fxk." key encoding and HS256 signed keys.
// This is a leaf package with no domain dependencies. Used by internal/domain/identity and cmd/fenixmcp.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ===== CONSTANTS =====

// DefaultBCryptCost is the work factor used for API key secrets when the config does not set one.
const DefaultBCryptCost = 10

// OpaqueKeyPrefix marks an opaque API key: fxk.<base64url(org)>.<key id>.<secret>
const OpaqueKeyPrefix = "fxk"

// secretBytes is the amount of entropy in a generated key secret.
const secretBytes = 24

var (
	ErrMalformedKey  = errors.New("malformed api key")
	ErrInvalidSecret = errors.New("api key secret does not match")
	ErrEmptySecret   = errors.New("signing secret is empty")
)

// ===== BCRYPT FUNCTIONS =====

// HashSecret hashes an API key secret using bcrypt with the given cost.
// Costs outside bcrypt's accepted range fall back to DefaultBCryptCost.
func HashSecret(secret string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBCryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret reports whether secret matches the bcrypt hash.
// Returns false (not error) for invalid hashes to avoid leaking hash format info in responses.
func VerifySecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// NewSecret returns a random hex secret for a freshly issued key.
func NewSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ===== OPAQUE KEYS =====

// OpaqueKey is the decoded form of an fxk. API key.
type OpaqueKey struct {
	OrganizationID string
	KeyID          string
	Secret         string
}

// String renders the key in its wire form.
func (k OpaqueKey) String() string {
	org := base64.RawURLEncoding.EncodeToString([]byte(k.OrganizationID))
	return strings.Join([]string{OpaqueKeyPrefix, org, k.KeyID, k.Secret}, ".")
}

// IsOpaqueKey reports whether token uses the opaque key prefix.
func IsOpaqueKey(token string) bool {
	return strings.HasPrefix(token, OpaqueKeyPrefix+".")
}

// ParseOpaqueKey decodes an fxk. key. Every segment must be non-empty.
func ParseOpaqueKey(token string) (OpaqueKey, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 || parts[0] != OpaqueKeyPrefix {
		return OpaqueKey{}, ErrMalformedKey
	}
	org, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return OpaqueKey{}, fmt.Errorf("%w: organization segment", ErrMalformedKey)
	}
	key := OpaqueKey{OrganizationID: string(org), KeyID: parts[2], Secret: parts[3]}
	if key.OrganizationID == "" || key.KeyID == "" || key.Secret == "" {
		return OpaqueKey{}, ErrMalformedKey
	}
	return key, nil
}

// ===== SIGNED KEYS (JWT) =====

// KeyClaims are the claims carried by a signed API key.
// The key id travels in the standard "jti" claim.
type KeyClaims struct {
	OrganizationID string `json:"org_id"`
	jwt.RegisteredClaims
}

// SignKey creates an HS256 signed API key for keyID in organizationID.
// A zero ttl issues a key without expiry; revocation then goes through the credential store.
func SignKey(secret []byte, organizationID, keyID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := &KeyClaims{
		OrganizationID: organizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       keyID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign key: %w", err)
	}
	return signed, nil
}

// ParseSignedKey validates a signed API key and returns its claims.
// Returns error if the token is invalid, expired, malformed, or lacks org_id/jti.
func ParseSignedKey(secret []byte, tokenString string) (*KeyClaims, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if tokenString == "" {
		return nil, ErrMalformedKey
	}

	token, err := jwt.ParseWithClaims(tokenString, &KeyClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method is HMAC (prevent algorithm substitution attacks)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse signed key: %w", err)
	}

	claims, ok := token.Claims.(*KeyClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid signed key claims or signature")
	}
	if claims.OrganizationID == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: org_id and jti are required", ErrMalformedKey)
	}
	return claims, nil
}
