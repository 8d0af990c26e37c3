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

type Task struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organizationId"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	Status         string     `json:"status"`
	DueAt          *string    `json:"dueAt,omitempty"`
	AssigneeID     string     `json:"assigneeId"`
	CreatedBy      string     `json:"createdBy"`
	DealID         *string    `json:"dealId,omitempty"`
	ContactID      *string    `json:"contactId,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// CreateTaskInput: AssigneeID defaults to CreatedBy.
type CreateTaskInput struct {
	OrganizationID string
	Title          string
	Description    string
	DueAt          string
	AssigneeID     string
	CreatedBy      string
	DealID         string
	ContactID      string
}

type ListTasksInput struct {
	ListInput
	Status     string
	AssigneeID string
	DealID     string
	ContactID  string
	// DueBefore keeps tasks due strictly before this date or date-time.
	DueBefore string
}

type TaskService struct {
	db *sql.DB
}

func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db}
}

const taskColumns = `id, organization_id, title, description, status, due_at, assignee_id, created_by, deal_id, contact_id, completed_at, created_at, updated_at`

func (s *TaskService) Create(ctx context.Context, input CreateTaskInput) (*Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	assignee := input.AssigneeID
	if assignee == "" {
		assignee = input.CreatedBy
	}
	if err := ensureOptional(ctx, s.db, "deal", input.OrganizationID, &input.DealID); err != nil {
		return nil, err
	}
	if err := ensureOptional(ctx, s.db, "contact", input.OrganizationID, &input.ContactID); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := nowRFC3339()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task (id, organization_id, title, description, status, due_at, assignee_id, created_by, deal_id, contact_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, input.OrganizationID, title, nullString(input.Description), TaskOpen, nullString(input.DueAt),
		assignee, input.CreatedBy, nullString(input.DealID), nullString(input.ContactID), now, now)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return s.Get(ctx, input.OrganizationID, id)
}

func (s *TaskService) Get(ctx context.Context, organizationID, taskID string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM task
		WHERE id = ? AND organization_id = ?
	`, taskID, organizationID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("task", taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// List returns open tasks before completed ones, earliest due date first.
func (s *TaskService) List(ctx context.Context, organizationID string, input ListTasksInput) ([]*Task, int, error) {
	if input.Status != "" {
		if err := oneOf(input.Status, []string{TaskOpen, TaskCompleted}, "status"); err != nil {
			return nil, 0, err
		}
	}
	page := input.normalized()
	where := `
		WHERE organization_id = ?
		  AND (? = '' OR status = ?)
		  AND (? = '' OR assignee_id = ?)
		  AND (? = '' OR deal_id = ?)
		  AND (? = '' OR contact_id = ?)
		  AND (? = '' OR (due_at IS NOT NULL AND due_at < ?))`
	args := []any{organizationID,
		input.Status, input.Status,
		input.AssigneeID, input.AssigneeID,
		input.DealID, input.DealID,
		input.ContactID, input.ContactID,
		input.DueBefore, input.DueBefore,
	}

	total, err := count(ctx, s.db, `SELECT COUNT(*) FROM task`+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM task`+where+`
		ORDER BY status = '`+TaskCompleted+`', due_at IS NULL, due_at, id
		LIMIT ? OFFSET ?
	`, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	out, err := mapRows(rows, scanTask)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return out, total, nil
}

// Complete marks a task completed. Completing a completed task returns it unchanged.
func (s *TaskService) Complete(ctx context.Context, organizationID, taskID string) (*Task, error) {
	now := nowRFC3339()
	_, err := s.db.ExecContext(ctx, `
		UPDATE task SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND organization_id = ? AND status != ?
	`, TaskCompleted, now, now, taskID, organizationID, TaskCompleted)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	return s.Get(ctx, organizationID, taskID)
}

func scanTask(row scanner) (*Task, error) {
	var (
		t                    Task
		description, dueAt   sql.NullString
		dealID, contactID    sql.NullString
		completedAt          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&t.ID, &t.OrganizationID, &t.Title, &description, &t.Status, &dueAt,
		&t.AssigneeID, &t.CreatedBy, &dealID, &contactID, &completedAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.Description = optionalString(description)
	t.DueAt = optionalString(dueAt)
	t.DealID = optionalString(dealID)
	t.ContactID = optionalString(contactID)
	t.CompletedAt = parseOptionalRFC3339(completedAt)
	t.CreatedAt = parseRFC3339Time(createdAt)
	t.UpdatedAt = parseRFC3339Time(updatedAt)
	return &t, nil
}
