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

type Deal struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	CompanyID      *string   `json:"companyId,omitempty"`
	ContactID      *string   `json:"contactId,omitempty"`
	Title          string    `json:"title"`
	Stage          string    `json:"stage"`
	Position       int       `json:"position"`
	Amount         *float64  `json:"amount,omitempty"`
	Currency       string    `json:"currency"`
	ExpectedClose  *string   `json:"expectedClose,omitempty"`
	OwnerID        string    `json:"ownerId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type CreateDealInput struct {
	OrganizationID string
	CompanyID      string
	ContactID      string
	Title          string
	Stage          string
	Amount         *float64
	Currency       string
	ExpectedClose  string
	OwnerID        string
}

// UpdateDealInput changes only the non-nil fields. Stage changes go through Move.
type UpdateDealInput struct {
	Title         *string
	Amount        *float64
	Currency      *string
	ExpectedClose *string
	CompanyID     *string
	ContactID     *string
	OwnerID       *string
}

type ListDealsInput struct {
	ListInput
	Stage     string
	OwnerID   string
	CompanyID string
	ContactID string
}

type DealService struct {
	db *sql.DB
}

func NewDealService(db *sql.DB) *DealService {
	return &DealService{db: db}
}

const dealColumns = `id, organization_id, company_id, contact_id, title, stage, position, amount, currency, expected_close, owner_id, created_at, updated_at`

// Create appends the deal to the end of its stage column. Stage defaults to lead.
func (s *DealService) Create(ctx context.Context, input CreateDealInput) (*Deal, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: deal title is required", ErrInvalidInput)
	}
	stage := input.Stage
	if stage == "" {
		stage = StageLead
	}
	if err := oneOf(stage, Stages, "stage"); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if err := s.ensureReferences(ctx, s.db, input.OrganizationID, &input.CompanyID, &input.ContactID); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := nowRFC3339()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deal (`+dealColumns+`)
		VALUES (?, ?, ?, ?, ?, ?,
		        (SELECT COUNT(*) FROM deal WHERE organization_id = ? AND stage = ?),
		        ?, ?, ?, ?, ?, ?)
	`, id, input.OrganizationID, nullString(input.CompanyID), nullString(input.ContactID), title, stage,
		input.OrganizationID, stage,
		input.Amount, currency, nullString(input.ExpectedClose), input.OwnerID, now, now)
	if err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
	}
	return s.Get(ctx, input.OrganizationID, id)
}

func (s *DealService) Get(ctx context.Context, organizationID, dealID string) (*Deal, error) {
	return getDeal(ctx, s.db, organizationID, dealID)
}

func getDeal(ctx context.Context, q dbtx, organizationID, dealID string) (*Deal, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+dealColumns+`
		FROM deal
		WHERE id = ? AND organization_id = ?
	`, dealID, organizationID)
	d, err := scanDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("deal", dealID)
	}
	if err != nil {
		return nil, fmt.Errorf("get deal: %w", err)
	}
	return d, nil
}

// List orders deals by board column, then by position inside the column.
func (s *DealService) List(ctx context.Context, organizationID string, input ListDealsInput) ([]*Deal, int, error) {
	if input.Stage != "" {
		if err := oneOf(input.Stage, Stages, "stage"); err != nil {
			return nil, 0, err
		}
	}
	page := input.normalized()
	where := `
		WHERE organization_id = ?
		  AND (? = '' OR stage = ?)
		  AND (? = '' OR owner_id = ?)
		  AND (? = '' OR company_id = ?)
		  AND (? = '' OR contact_id = ?)`
	args := []any{organizationID,
		input.Stage, input.Stage,
		input.OwnerID, input.OwnerID,
		input.CompanyID, input.CompanyID,
		input.ContactID, input.ContactID,
	}

	total, err := count(ctx, s.db, `SELECT COUNT(*) FROM deal`+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count deals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+dealColumns+` FROM deal`+where+`
		ORDER BY `+stageOrderSQL+`, position, id
		LIMIT ? OFFSET ?
	`, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list deals: %w", err)
	}
	out, err := mapRows(rows, scanDeal)
	if err != nil {
		return nil, 0, fmt.Errorf("list deals: %w", err)
	}
	return out, total, nil
}

func (s *DealService) Update(ctx context.Context, organizationID, dealID string, input UpdateDealInput) (*Deal, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: deal title cannot be empty", ErrInvalidInput)
		}
		set("title", title)
	}
	if input.Amount != nil {
		set("amount", *input.Amount)
	}
	if input.Currency != nil {
		set("currency", strings.ToUpper(strings.TrimSpace(*input.Currency)))
	}
	if input.ExpectedClose != nil {
		set("expected_close", nullStringPtr(input.ExpectedClose))
	}
	if input.CompanyID != nil {
		set("company_id", nullStringPtr(input.CompanyID))
	}
	if input.ContactID != nil {
		set("contact_id", nullStringPtr(input.ContactID))
	}
	if input.OwnerID != nil && *input.OwnerID != "" {
		set("owner_id", *input.OwnerID)
	}

	if err := ensureExists(ctx, s.db, "deal", organizationID, dealID); err != nil {
		return nil, err
	}
	if err := s.ensureReferences(ctx, s.db, organizationID, input.CompanyID, input.ContactID); err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return s.Get(ctx, organizationID, dealID)
	}

	set("updated_at", nowRFC3339())
	args = append(args, dealID, organizationID)
	_, err := s.db.ExecContext(ctx,
		`UPDATE deal SET `+strings.Join(sets, ", ")+` WHERE id = ? AND organization_id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update deal: %w", err)
	}
	return s.Get(ctx, organizationID, dealID)
}

func (s *DealService) ensureReferences(ctx context.Context, q dbtx, organizationID string, companyID, contactID *string) error {
	if err := ensureOptional(ctx, q, "company", organizationID, companyID); err != nil {
		return err
	}
	return ensureOptional(ctx, q, "contact", organizationID, contactID)
}

func scanDeal(row scanner) (*Deal, error) {
	var (
		d                    Deal
		companyID, contactID sql.NullString
		amount               sql.NullFloat64
		expectedClose        sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&d.ID, &d.OrganizationID, &companyID, &contactID, &d.Title, &d.Stage, &d.Position,
		&amount, &d.Currency, &expectedClose, &d.OwnerID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.CompanyID = optionalString(companyID)
	d.ContactID = optionalString(contactID)
	if amount.Valid {
		v := amount.Float64
		d.Amount = &v
	}
	d.ExpectedClose = optionalString(expectedClose)
	d.CreatedAt = parseRFC3339Time(createdAt)
	d.UpdatedAt = parseRFC3339Time(updatedAt)
	return &d, nil
}
