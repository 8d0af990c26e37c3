package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matiasleandrokruk/fenixmcp/pkg/uuid"
)

// AuditService persists tool invocations.
// All operations are append-only; no updates or deletes are supported.
//
//nolint:revive // stutters with the package name, kept for readability at call sites
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// Log appends an invocation. Missing ID and CreatedAt are filled in.
func (s *AuditService) Log(ctx context.Context, inv *ToolInvocation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_invocation (
			id, organization_id, acting_user_id, tool_name, outcome,
			error_message, duration_ms, request_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inv.ID,
		inv.OrganizationID,
		inv.ActingUserID,
		inv.ToolName,
		string(inv.Outcome),
		inv.ErrorMessage,
		inv.Duration.Milliseconds(),
		inv.RequestID,
		inv.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log tool invocation: %w", err)
	}
	return nil
}

// GetByID retrieves a single invocation.
func (s *AuditService) GetByID(ctx context.Context, id string) (*ToolInvocation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+invocationColumns+` FROM tool_invocation WHERE id = ?`, id)
	inv, err := scanInvocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("get tool invocation: %w", err)
	}
	return inv, nil
}

// ListByOrganization returns invocations newest first, with the total count.
func (s *AuditService) ListByOrganization(ctx context.Context, organizationID string, limit, offset int) ([]*ToolInvocation, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tool_invocation WHERE organization_id = ?`, organizationID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tool invocations: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invocationColumns+`
		FROM tool_invocation
		WHERE organization_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, organizationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list tool invocations: %w", err)
	}
	defer rows.Close()

	var out []*ToolInvocation
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list tool invocations: %w", err)
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

const invocationColumns = `id, organization_id, acting_user_id, tool_name, outcome, error_message, duration_ms, request_id, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanInvocation(row scanner) (*ToolInvocation, error) {
	var (
		inv        ToolInvocation
		outcome    string
		errMsg     sql.NullString
		durationMS int64
		requestID  sql.NullString
		createdAt  string
	)
	if err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.ActingUserID, &inv.ToolName, &outcome,
		&errMsg, &durationMS, &requestID, &createdAt); err != nil {
		return nil, err
	}
	inv.Outcome = Outcome(outcome)
	if errMsg.Valid {
		inv.ErrorMessage = &errMsg.String
	}
	inv.Duration = time.Duration(durationMS) * time.Millisecond
	if requestID.Valid {
		inv.RequestID = &requestID.String
	}
	inv.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &inv, nil
}
