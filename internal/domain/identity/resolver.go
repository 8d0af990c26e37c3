package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	pkgauth "github.com/matiasleandrokruk/fenixmcp/pkg/auth"
)

var (
	// ErrAuthMissing: no credential was presented.
	ErrAuthMissing = errors.New("missing credential")
	// ErrAuthInvalid: the credential cannot be decoded, is unknown or revoked, or its secret does not match.
	ErrAuthInvalid = errors.New("invalid credential")
	// ErrAuthOwnerInvalid: the organization claimed by the credential differs from the one recorded for its key.
	ErrAuthOwnerInvalid = errors.New("credential organization mismatch")
)

// DefaultHeader is the custom credential header checked before Authorization.
const DefaultHeader = "X-Api-Key"

// Resolver maps a presented credential to an ExecutionContext. It never writes to the store.
type Resolver struct {
	store     CredentialStore
	jwtSecret []byte
}

// NewResolver creates a Resolver. An empty jwtSecret disables signed keys; opaque keys keep working.
func NewResolver(store CredentialStore, jwtSecret []byte) *Resolver {
	return &Resolver{store: store, jwtSecret: jwtSecret}
}

// claim is what the credential itself asserts, before the store confirms it.
type claim struct {
	organizationID string
	keyID          string
	secret         string // empty for signed keys; the signature stands in for it
}

// Resolve returns the context for credential, or an error wrapping one of the ErrAuth* sentinels.
func (r *Resolver) Resolve(ctx context.Context, credential string) (ExecutionContext, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ExecutionContext{}, ErrAuthMissing
	}

	c, err := r.decode(credential)
	if err != nil {
		return ExecutionContext{}, err
	}

	rec, err := r.store.GetCredential(ctx, c.keyID)
	if errors.Is(err, ErrCredentialNotFound) {
		return ExecutionContext{}, fmt.Errorf("%w: unknown key", ErrAuthInvalid)
	}
	if err != nil {
		return ExecutionContext{}, fmt.Errorf("%w: lookup failed: %v", ErrAuthInvalid, err)
	}
	if rec.Revoked() {
		return ExecutionContext{}, fmt.Errorf("%w: key revoked", ErrAuthInvalid)
	}
	if c.secret != "" && !pkgauth.VerifySecret(rec.SecretHash, c.secret) {
		return ExecutionContext{}, fmt.Errorf("%w: %v", ErrAuthInvalid, pkgauth.ErrInvalidSecret)
	}
	if rec.OrganizationID != c.organizationID {
		return ExecutionContext{}, ErrAuthOwnerInvalid
	}

	return NewExecutionContext(rec.OrganizationID, rec.OwnerUserID), nil
}

func (r *Resolver) decode(credential string) (claim, error) {
	if pkgauth.IsOpaqueKey(credential) {
		key, err := pkgauth.ParseOpaqueKey(credential)
		if err != nil {
			return claim{}, fmt.Errorf("%w: %v", ErrAuthInvalid, err)
		}
		return claim{organizationID: key.OrganizationID, keyID: key.KeyID, secret: key.Secret}, nil
	}

	if len(r.jwtSecret) == 0 {
		return claim{}, fmt.Errorf("%w: unrecognized key format", ErrAuthInvalid)
	}
	claims, err := pkgauth.ParseSignedKey(r.jwtSecret, credential)
	if err != nil {
		return claim{}, fmt.Errorf("%w: %v", ErrAuthInvalid, err)
	}
	return claim{organizationID: claims.OrganizationID, keyID: claims.ID}, nil
}

// ExtractCredential reads the credential from header (DefaultHeader when empty) or, failing that,
// from "Authorization: Bearer <token>". Returns "" when neither is present.
func ExtractCredential(r *http.Request, header string) string {
	if header == "" {
		header = DefaultHeader
	}
	if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
		return v
	}

	authz := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(authz) < len(prefix) || !strings.EqualFold(authz[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authz[len(prefix):])
}
