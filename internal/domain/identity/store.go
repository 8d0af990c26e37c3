package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgauth "github.com/matiasleandrokruk/fenixmcp/pkg/auth"
	"github.com/matiasleandrokruk/fenixmcp/pkg/uuid"
)

// ErrCredentialNotFound is returned by the store when no key has the given id.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialRecord is one issued API key. SecretHash is a bcrypt hash; the secret itself is never stored.
type CredentialRecord struct {
	ID             string
	OrganizationID string
	OwnerUserID    string
	Label          string
	SecretHash     string
	CreatedAt      time.Time
	RevokedAt      *time.Time
}

// Revoked reports whether the key has been revoked.
func (r CredentialRecord) Revoked() bool {
	return r.RevokedAt != nil
}

// CredentialStore is the read side used by the Resolver.
type CredentialStore interface {
	GetCredential(ctx context.Context, id string) (*CredentialRecord, error)
}

// IssueInput describes a key to create.
type IssueInput struct {
	OrganizationID string
	OwnerUserID    string
	Label          string
	BCryptCost     int
}

// IssuedKey is returned once, at creation time. Key is the only copy of the opaque credential.
type IssuedKey struct {
	Record CredentialRecord
	Key    string
}

// Store persists API credentials in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over a migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetCredential implements CredentialStore.
func (s *Store) GetCredential(ctx context.Context, id string) (*CredentialRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, owner_user_id, label, secret_hash, created_at, revoked_at
		FROM api_credential
		WHERE id = ?
	`, id)
	rec, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return rec, nil
}

// Issue creates a key with a fresh id and secret and returns its opaque form.
func (s *Store) Issue(ctx context.Context, in IssueInput) (*IssuedKey, error) {
	if strings.TrimSpace(in.OrganizationID) == "" || strings.TrimSpace(in.OwnerUserID) == "" {
		return nil, fmt.Errorf("issue credential: organization and owner are required")
	}

	secret, err := pkgauth.NewSecret()
	if err != nil {
		return nil, err
	}
	hash, err := pkgauth.HashSecret(secret, in.BCryptCost)
	if err != nil {
		return nil, err
	}

	rec := CredentialRecord{
		ID:             uuid.NewString(),
		OrganizationID: in.OrganizationID,
		OwnerUserID:    in.OwnerUserID,
		Label:          in.Label,
		SecretHash:     hash,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO api_credential (id, organization_id, owner_user_id, label, secret_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.OrganizationID, rec.OwnerUserID, rec.Label, rec.SecretHash, rec.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("issue credential: %w", err)
	}

	key := pkgauth.OpaqueKey{OrganizationID: rec.OrganizationID, KeyID: rec.ID, Secret: secret}
	return &IssuedKey{Record: rec, Key: key.String()}, nil
}

// List returns the keys of an organization, newest first. Revoked keys are included.
func (s *Store) List(ctx context.Context, organizationID string) ([]CredentialRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, owner_user_id, label, secret_hash, created_at, revoked_at
		FROM api_credential
		WHERE organization_id = ?
		ORDER BY created_at DESC, id DESC
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []CredentialRecord
	for rows.Next() {
		rec, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("list credentials: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Revoke marks a key revoked. Revoking twice keeps the first timestamp.
func (s *Store) Revoke(ctx context.Context, organizationID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE api_credential
		SET revoked_at = COALESCE(revoked_at, ?)
		WHERE id = ? AND organization_id = ?
	`, time.Now().UTC().Format(time.RFC3339), id, organizationID)
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	if n == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (*CredentialRecord, error) {
	var (
		rec       CredentialRecord
		createdAt string
		revokedAt sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.OrganizationID, &rec.OwnerUserID, &rec.Label, &rec.SecretHash, &createdAt, &revokedAt); err != nil {
		return nil, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if revokedAt.Valid {
		// An unparseable timestamp still counts as revoked.
		t, _ := time.Parse(time.RFC3339, revokedAt.String)
		rec.RevokedAt = &t
	}
	return &rec, nil
}
