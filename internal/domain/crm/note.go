package crm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/matiasleandrokruk/fenixmcp/pkg/uuid"
)

type Note struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	EntityType     string    `json:"entityType"`
	EntityID       string    `json:"entityId"`
	AuthorID       string    `json:"authorId"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"createdAt"`
}

type CreateNoteInput struct {
	OrganizationID string
	EntityType     string
	EntityID       string
	AuthorID       string
	Body           string
}

type ListNotesInput struct {
	ListInput
	EntityType string
	EntityID   string
}

type NoteService struct {
	db *sql.DB
}

func NewNoteService(db *sql.DB) *NoteService {
	return &NoteService{db: db}
}

// Create attaches a note to a deal, contact or company of the same organization.
func (s *NoteService) Create(ctx context.Context, input CreateNoteInput) (*Note, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, fmt.Errorf("%w: note body is required", ErrInvalidInput)
	}
	if err := oneOf(input.EntityType, NoteEntityTypes, "entityType"); err != nil {
		return nil, err
	}
	if err := ensureExists(ctx, s.db, input.EntityType, input.OrganizationID, input.EntityID); err != nil {
		return nil, err
	}

	n := &Note{
		ID:             uuid.NewString(),
		OrganizationID: input.OrganizationID,
		EntityType:     input.EntityType,
		EntityID:       input.EntityID,
		AuthorID:       input.AuthorID,
		Body:           body,
	}
	now := nowRFC3339()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO note (id, organization_id, entity_type, entity_id, author_id, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.OrganizationID, n.EntityType, n.EntityID, n.AuthorID, n.Body, now)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	n.CreatedAt = parseRFC3339Time(now)
	return n, nil
}

// List returns the notes of one record, newest first.
func (s *NoteService) List(ctx context.Context, organizationID string, input ListNotesInput) ([]*Note, int, error) {
	if err := oneOf(input.EntityType, NoteEntityTypes, "entityType"); err != nil {
		return nil, 0, err
	}
	page := input.normalized()

	total, err := count(ctx, s.db, `
		SELECT COUNT(*) FROM note WHERE organization_id = ? AND entity_type = ? AND entity_id = ?
	`, organizationID, input.EntityType, input.EntityID)
	if err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, entity_type, entity_id, author_id, body, created_at
		FROM note
		WHERE organization_id = ? AND entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, organizationID, input.EntityType, input.EntityID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	out, err := mapRows(rows, scanNote)
	if err != nil {
		return nil, 0, fmt.Errorf("list notes: %w", err)
	}
	return out, total, nil
}

func scanNote(row scanner) (*Note, error) {
	var (
		n         Note
		createdAt string
	)
	if err := row.Scan(&n.ID, &n.OrganizationID, &n.EntityType, &n.EntityID, &n.AuthorID, &n.Body, &createdAt); err != nil {
		return nil, err
	}
	n.CreatedAt = parseRFC3339Time(createdAt)
	return &n, nil
}
