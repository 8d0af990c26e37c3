// Identity tests run against in-memory SQLite with real migrations.
package identity_test

import (
	"context"
	"database/sql"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/matiasleandrokruk/fenixmcp/internal/domain/identity"
	"github.com/matiasleandrokruk/fenixmcp/internal/infra/sqlite"
	pkgauth "github.com/matiasleandrokruk/fenixmcp/pkg/auth"
)

var jwtSecret = []byte("test-secret-key-32-chars-min!!!")

func mustOpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.OpenMigrated(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustIssue(t *testing.T, store *identity.Store, org, owner string) *identity.IssuedKey {
	t.Helper()
	issued, err := store.Issue(context.Background(), identity.IssueInput{
		OrganizationID: org,
		OwnerUserID:    owner,
		Label:          "test",
		BCryptCost:     bcrypt.MinCost,
	})
	require.NoError(t, err)
	return issued
}

// ===== RESOLVE: OPAQUE KEYS =====

func TestResolve_OpaqueKey(t *testing.T) {
	t.Parallel()

	store := identity.NewStore(mustOpenDB(t))
	issued := mustIssue(t, store, "org_A", "u1")
	r := identity.NewResolver(store, nil)

	ec, err := r.Resolve(context.Background(), issued.Key)
	require.NoError(t, err)
	assert.Equal(t, "org_A", ec.OrganizationID())
	assert.Equal(t, "u1", ec.ActingUserID())
}

func TestResolve_Empty(t *testing.T) {
	t.Parallel()

	r := identity.NewResolver(identity.NewStore(mustOpenDB(t)), jwtSecret)
	for _, cred := range []string{"", "   "} {
		_, err := r.Resolve(context.Background(), cred)
		assert.ErrorIs(t, err, identity.ErrAuthMissing)
	}
}

func TestResolve_InvalidCredentials(t *testing.T) {
	t.Parallel()

	store := identity.NewStore(mustOpenDB(t))
	issued := mustIssue(t, store, "org_A", "u1")
	revoked := mustIssue(t, store, "org_A", "u2")
	require.NoError(t, store.Revoke(context.Background(), "org_A", revoked.Record.ID))

	parsed, err := pkgauth.ParseOpaqueKey(issued.Key)
	require.NoError(t, err)
	wrongSecret := pkgauth.OpaqueKey{OrganizationID: "org_A", KeyID: parsed.KeyID, Secret: "nope"}
	unknownKey := pkgauth.OpaqueKey{OrganizationID: "org_A", KeyID: "missing", Secret: parsed.Secret}

	r := identity.NewResolver(store, nil)
	cases := map[string]string{
		"garbage":      "k1",
		"malformed":    "fxk.only-two",
		"wrong secret": wrongSecret.String(),
		"unknown key":  unknownKey.String(),
		"revoked":      revoked.Key,
	}
	for name, cred := range cases {
		_, err := r.Resolve(context.Background(), cred)
		assert.ErrorIs(t, err, identity.ErrAuthInvalid, name)
		assert.NotErrorIs(t, err, identity.ErrAuthOwnerInvalid, name)
	}
}

func TestResolve_OrganizationMismatch(t *testing.T) {
	t.Parallel()

	store := identity.NewStore(mustOpenDB(t))
	issued := mustIssue(t, store, "org_A", "u1")

	parsed, err := pkgauth.ParseOpaqueKey(issued.Key)
	require.NoError(t, err)
	parsed.OrganizationID = "org_B"

	_, err = identity.NewResolver(store, nil).Resolve(context.Background(), parsed.String())
	assert.ErrorIs(t, err, identity.ErrAuthOwnerInvalid)
}

// ===== RESOLVE: SIGNED KEYS =====

func TestResolve_SignedKey(t *testing.T) {
	t.Parallel()

	store := identity.NewStore(mustOpenDB(t))
	issued := mustIssue(t, store, "org_A", "u1")

	token, err := pkgauth.SignKey(jwtSecret, "org_A", issued.Record.ID, 0)
	require.NoError(t, err)

	ec, err := identity.NewResolver(store, jwtSecret).Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, identity.NewExecutionContext("org_A", "u1"), ec)
}

func TestResolve_SignedKeyOrganizationMismatch(t *testing.T) {
	t.Parallel()

	store := identity.NewStore(mustOpenDB(t))
	issued := mustIssue(t, store, "org_A", "u1")

	token, err := pkgauth.SignKey(jwtSecret, "org_B", issued.Record.ID, 0)
	require.NoError(t, err)

	_, err = identity.NewResolver(store, jwtSecret).Resolve(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrAuthOwnerInvalid)
}

func TestResolve_SignedKeyRejectedWithoutSecret(t *testing.T) {
	t.Parallel()

	store := identity.NewStore(mustOpenDB(t))
	issued := mustIssue(t, store, "org_A", "u1")
	token, err := pkgauth.SignKey(jwtSecret, "org_A", issued.Record.ID, 0)
	require.NoError(t, err)

	_, err = identity.NewResolver(store, nil).Resolve(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrAuthInvalid)

	_, err = identity.NewResolver(store, []byte("other-secret")).Resolve(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrAuthInvalid)
}

type failingStore struct{}

func (failingStore) GetCredential(context.Context, string) (*identity.CredentialRecord, error) {
	return nil, errors.New("database is locked")
}

func TestResolve_StoreFailureFailsClosed(t *testing.T) {
	t.Parallel()

	key := pkgauth.OpaqueKey{OrganizationID: "org_A", KeyID: "k", Secret: "s"}
	_, err := identity.NewResolver(failingStore{}, nil).Resolve(context.Background(), key.String())
	assert.ErrorIs(t, err, identity.ErrAuthInvalid)
}

// ===== STORE =====

func TestStore_ListAndRevoke(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := identity.NewStore(mustOpenDB(t))
	a := mustIssue(t, store, "org_A", "u1")
	b := mustIssue(t, store, "org_A", "u2")
	mustIssue(t, store, "org_B", "u3")

	list, err := store.List(ctx, "org_A")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.Record.ID, list[0].ID, "newest first")
	assert.Equal(t, a.Record.ID, list[1].ID)
	assert.NotContains(t, list[0].SecretHash, b.Key)

	require.NoError(t, store.Revoke(ctx, "org_A", a.Record.ID))
	first, err := store.GetCredential(ctx, a.Record.ID)
	require.NoError(t, err)
	require.True(t, first.Revoked())

	require.NoError(t, store.Revoke(ctx, "org_A", a.Record.ID), "revoking twice is allowed")
	again, err := store.GetCredential(ctx, a.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, first.RevokedAt, again.RevokedAt)

	assert.ErrorIs(t, store.Revoke(ctx, "org_B", b.Record.ID), identity.ErrCredentialNotFound, "cross-org revoke")
	_, err = store.GetCredential(ctx, "missing")
	assert.ErrorIs(t, err, identity.ErrCredentialNotFound)
}

func TestStore_IssueRequiresOwner(t *testing.T) {
	t.Parallel()

	_, err := identity.NewStore(mustOpenDB(t)).Issue(context.Background(), identity.IssueInput{OrganizationID: "org_A"})
	assert.Error(t, err)
}

// ===== EXTRACTION =====

func TestExtractCredential(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		headers map[string]string
		custom  string
		want    string
	}{
		{"custom header", map[string]string{"X-Api-Key": "k1"}, "", "k1"},
		{"bearer", map[string]string{"Authorization": "Bearer k2"}, "", "k2"},
		{"bearer lowercase scheme", map[string]string{"Authorization": "bearer k2"}, "", "k2"},
		{"custom wins", map[string]string{"X-Api-Key": "k1", "Authorization": "Bearer k2"}, "", "k1"},
		{"configured header", map[string]string{"X-Agent-Key": "k3", "X-Api-Key": "k1"}, "X-Agent-Key", "k3"},
		{"basic scheme ignored", map[string]string{"Authorization": "Basic dTpw"}, "", ""},
		{"none", nil, "", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("POST", "/api/mcp", nil)
		for k, v := range tc.headers {
			req.Header.Set(k, v)
		}
		assert.Equal(t, tc.want, identity.ExtractCredential(req, tc.custom), tc.name)
	}
}

func TestExecutionContext(t *testing.T) {
	t.Parallel()

	var zero identity.ExecutionContext
	assert.True(t, zero.IsZero())

	ec := identity.NewExecutionContext("org_A", "u1")
	copied := ec
	assert.False(t, ec.IsZero())
	assert.Equal(t, ec, copied)
	assert.Equal(t, "org_A", copied.OrganizationID())
	assert.Equal(t, "u1", copied.ActingUserID())
}
