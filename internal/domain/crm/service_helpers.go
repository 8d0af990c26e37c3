package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist in the caller's organization.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for values the database would accept but the domain does not.
	ErrInvalidInput = errors.New("invalid input")
)

// dbtx is satisfied by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// ListInput is the pagination shared by every List call.
type ListInput struct {
	Limit  int
	Offset int
}

func (in ListInput) normalized() ListInput {
	if in.Limit <= 0 {
		in.Limit = defaultListLimit
	}
	if in.Limit > maxListLimit {
		in.Limit = maxListLimit
	}
	if in.Offset < 0 {
		in.Offset = 0
	}
	return in
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseRFC3339Time(value string) time.Time {
	t, _ := time.Parse(time.RFC3339, value)
	return t
}

func parseOptionalRFC3339(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t := parseRFC3339Time(value.String)
	return &t
}

func optionalString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

// nullString stores "" as NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullStringPtr stores nil and "" as NULL.
func nullStringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return nullString(*s)
}

func notFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}

// ensureExists checks that id names a row of table inside organizationID.
// table is always one of the package's own table names.
func ensureExists(ctx context.Context, q dbtx, table, organizationID, id string) error {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM `+table+` WHERE id = ? AND organization_id = ?`, id, organizationID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(table, id)
	}
	if err != nil {
		return fmt.Errorf("lookup %s: %w", table, err)
	}
	return nil
}

// ensureOptional is ensureExists for nullable references.
func ensureOptional(ctx context.Context, q dbtx, table, organizationID string, id *string) error {
	if id == nil || *id == "" {
		return nil
	}
	return ensureExists(ctx, q, table, organizationID, *id)
}

func oneOf(value string, allowed []string, field string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%w: %s %q is not one of %v", ErrInvalidInput, field, value, allowed)
}

func count(ctx context.Context, q dbtx, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func mapRows[T any](rows *sql.Rows, scan func(scanner) (*T, error)) ([]*T, error) {
	defer rows.Close()
	out := []*T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
