package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matiasleandrokruk/fenixmcp/pkg/uuid"
)

type Contact struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	CompanyID      *string   `json:"companyId,omitempty"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          *string   `json:"email,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	JobTitle       *string   `json:"jobTitle,omitempty"`
	OwnerID        string    `json:"ownerId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type CreateContactInput struct {
	OrganizationID string
	CompanyID      string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	JobTitle       string
	OwnerID        string
}

type ListContactsInput struct {
	ListInput
	// Query matches first name, last name or email, case-insensitively.
	Query     string
	CompanyID string
}

type ContactService struct {
	db *sql.DB
}

func NewContactService(db *sql.DB) *ContactService {
	return &ContactService{db: db}
}

const contactColumns = `id, organization_id, company_id, first_name, last_name, email, phone, job_title, owner_id, created_at, updated_at`

func (s *ContactService) Create(ctx context.Context, input CreateContactInput) (*Contact, error) {
	first := strings.TrimSpace(input.FirstName)
	if first == "" {
		return nil, fmt.Errorf("%w: contact first name is required", ErrInvalidInput)
	}
	if err := ensureOptional(ctx, s.db, "company", input.OrganizationID, &input.CompanyID); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := nowRFC3339()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contact (`+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, input.OrganizationID, nullString(input.CompanyID), first, strings.TrimSpace(input.LastName),
		nullString(strings.TrimSpace(input.Email)), nullString(input.Phone), nullString(input.JobTitle),
		input.OwnerID, now, now)
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return s.Get(ctx, input.OrganizationID, id)
}

func (s *ContactService) Get(ctx context.Context, organizationID, contactID string) (*Contact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+contactColumns+`
		FROM contact
		WHERE id = ? AND organization_id = ?
	`, contactID, organizationID)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("contact", contactID)
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

func (s *ContactService) List(ctx context.Context, organizationID string, input ListContactsInput) ([]*Contact, int, error) {
	page := input.normalized()
	pattern := "%" + strings.ToLower(strings.TrimSpace(input.Query)) + "%"
	where := `
		WHERE organization_id = ?
		  AND (lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR lower(COALESCE(email, '')) LIKE ?)
		  AND (? = '' OR company_id = ?)`
	args := []any{organizationID, pattern, pattern, pattern, input.CompanyID, input.CompanyID}

	total, err := count(ctx, s.db, `SELECT COUNT(*) FROM contact`+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contactColumns+` FROM contact`+where+`
		ORDER BY last_name COLLATE NOCASE, first_name COLLATE NOCASE, id
		LIMIT ? OFFSET ?
	`, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}
	out, err := mapRows(rows, scanContact)
	if err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}
	return out, total, nil
}

func scanContact(row scanner) (*Contact, error) {
	var (
		c                       Contact
		companyID, email, phone sql.NullString
		jobTitle                sql.NullString
		createdAt, updatedAt    string
	)
	if err := row.Scan(&c.ID, &c.OrganizationID, &companyID, &c.FirstName, &c.LastName,
		&email, &phone, &jobTitle, &c.OwnerID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.CompanyID = optionalString(companyID)
	c.Email = optionalString(email)
	c.Phone = optionalString(phone)
	c.JobTitle = optionalString(jobTitle)
	c.CreatedAt = parseRFC3339Time(createdAt)
	c.UpdatedAt = parseRFC3339Time(updatedAt)
	return &c, nil
}
