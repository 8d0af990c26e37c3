package crm

import (
	"context"
	"fmt"
	"strings"
)

// stageOrderSQL sorts rows by board column.
var stageOrderSQL = func() string {
	var b strings.Builder
	b.WriteString("CASE stage")
	for i, st := range Stages {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", st, i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(Stages))
	return b.String()
}()

// MoveDealInput places a deal in a board column. A nil Position appends to the column.
type MoveDealInput struct {
	Stage    string
	Position *int
}

// Move changes a deal's stage and position, keeping positions in both the source and the
// target column contiguous from 0.
func (s *DealService) Move(ctx context.Context, organizationID, dealID string, input MoveDealInput) (*Deal, error) {
	if err := oneOf(input.Stage, Stages, "stage"); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("move deal: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	current, err := getDeal(ctx, tx, organizationID, dealID)
	if err != nil {
		return nil, err
	}

	others, err := count(ctx, tx, `
		SELECT COUNT(*) FROM deal WHERE organization_id = ? AND stage = ? AND id != ?
	`, organizationID, input.Stage, dealID)
	if err != nil {
		return nil, fmt.Errorf("move deal: count column: %w", err)
	}
	pos := others
	if input.Position != nil {
		pos = min(max(*input.Position, 0), others)
	}

	// Close the gap left in the source column.
	if _, err := tx.ExecContext(ctx, `
		UPDATE deal SET position = position - 1
		WHERE organization_id = ? AND stage = ? AND position > ? AND id != ?
	`, organizationID, current.Stage, current.Position, dealID); err != nil {
		return nil, fmt.Errorf("move deal: close gap: %w", err)
	}
	// Open a slot in the target column.
	if _, err := tx.ExecContext(ctx, `
		UPDATE deal SET position = position + 1
		WHERE organization_id = ? AND stage = ? AND position >= ? AND id != ?
	`, organizationID, input.Stage, pos, dealID); err != nil {
		return nil, fmt.Errorf("move deal: open slot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE deal SET stage = ?, position = ?, updated_at = ?
		WHERE id = ? AND organization_id = ?
	`, input.Stage, pos, nowRFC3339(), dealID, organizationID); err != nil {
		return nil, fmt.Errorf("move deal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("move deal: commit: %w", err)
	}
	return s.Get(ctx, organizationID, dealID)
}

// StageSummary aggregates one board column. Amounts are summed per currency.
type StageSummary struct {
	Stage   string             `json:"stage"`
	Count   int                `json:"count"`
	Amounts map[string]float64 `json:"amounts"`
}

type PipelineSummary struct {
	Stages     []StageSummary     `json:"stages"`
	TotalDeals int                `json:"totalDeals"`
	OpenDeals  int                `json:"openDeals"`
	OpenAmount map[string]float64 `json:"openAmount"`
	WonAmount  map[string]float64 `json:"wonAmount"`
}

// Summary returns every stage in board order, including empty ones.
func (s *DealService) Summary(ctx context.Context, organizationID string) (*PipelineSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, currency, COUNT(*), COALESCE(SUM(amount), 0)
		FROM deal
		WHERE organization_id = ?
		GROUP BY stage, currency
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("pipeline summary: %w", err)
	}
	defer rows.Close()

	byStage := make(map[string]*StageSummary, len(Stages))
	out := &PipelineSummary{
		Stages:     make([]StageSummary, len(Stages)),
		OpenAmount: map[string]float64{},
		WonAmount:  map[string]float64{},
	}
	for i, st := range Stages {
		out.Stages[i] = StageSummary{Stage: st, Amounts: map[string]float64{}}
		byStage[st] = &out.Stages[i]
	}

	for rows.Next() {
		var (
			stage, currency string
			n               int
			sum             float64
		)
		if err := rows.Scan(&stage, &currency, &n, &sum); err != nil {
			return nil, fmt.Errorf("pipeline summary: %w", err)
		}
		st, ok := byStage[stage]
		if !ok {
			continue
		}
		st.Count += n
		st.Amounts[currency] += sum
		out.TotalDeals += n

		switch stage {
		case StageWon:
			out.WonAmount[currency] += sum
		case StageLost:
		default:
			out.OpenDeals += n
			out.OpenAmount[currency] += sum
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pipeline summary: %w", err)
	}
	return out, nil
}
