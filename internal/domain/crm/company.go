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

type Company struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	Domain         *string   `json:"domain,omitempty"`
	OwnerID        string    `json:"ownerId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type CreateCompanyInput struct {
	OrganizationID string
	Name           string
	Domain         string
	OwnerID        string
}

type ListCompaniesInput struct {
	ListInput
	// Query matches name or domain, case-insensitively.
	Query string
}

type CompanyService struct {
	db *sql.DB
}

func NewCompanyService(db *sql.DB) *CompanyService {
	return &CompanyService{db: db}
}

func (s *CompanyService) Create(ctx context.Context, input CreateCompanyInput) (*Company, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrInvalidInput)
	}

	id := uuid.NewString()
	now := nowRFC3339()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO company (id, organization_id, name, domain, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, input.OrganizationID, name, nullString(strings.ToLower(strings.TrimSpace(input.Domain))), input.OwnerID, now, now)
	if err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	return s.Get(ctx, input.OrganizationID, id)
}

func (s *CompanyService) Get(ctx context.Context, organizationID, companyID string) (*Company, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, name, domain, owner_id, created_at, updated_at
		FROM company
		WHERE id = ? AND organization_id = ?
	`, companyID, organizationID)
	c, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("company", companyID)
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

func (s *CompanyService) List(ctx context.Context, organizationID string, input ListCompaniesInput) ([]*Company, int, error) {
	page := input.normalized()
	pattern := "%" + strings.ToLower(strings.TrimSpace(input.Query)) + "%"

	total, err := count(ctx, s.db, `
		SELECT COUNT(*) FROM company
		WHERE organization_id = ? AND (lower(name) LIKE ? OR lower(COALESCE(domain, '')) LIKE ?)
	`, organizationID, pattern, pattern)
	if err != nil {
		return nil, 0, fmt.Errorf("count companies: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, name, domain, owner_id, created_at, updated_at
		FROM company
		WHERE organization_id = ? AND (lower(name) LIKE ? OR lower(COALESCE(domain, '')) LIKE ?)
		ORDER BY name COLLATE NOCASE, id
		LIMIT ? OFFSET ?
	`, organizationID, pattern, pattern, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	out, err := mapRows(rows, scanCompany)
	if err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	return out, total, nil
}

func scanCompany(row scanner) (*Company, error) {
	var (
		c                    Company
		domain               sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&c.ID, &c.OrganizationID, &c.Name, &domain, &c.OwnerID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.Domain = optionalString(domain)
	c.CreatedAt = parseRFC3339Time(createdAt)
	c.UpdatedAt = parseRFC3339Time(updatedAt)
	return &c, nil
}
