package crm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/fenixmcp/internal/domain/crm"
)

func mustCreateDeal(t *testing.T, svc *crm.DealService, org, title, stage string, amount float64) *crm.Deal {
	t.Helper()
	d, err := svc.Create(context.Background(), crm.CreateDealInput{
		OrganizationID: org,
		Title:          title,
		Stage:          stage,
		Amount:         &amount,
		OwnerID:        userA,
	})
	require.NoError(t, err)
	return d
}

func positions(t *testing.T, svc *crm.DealService, org, stage string) map[string]int {
	t.Helper()
	deals, _, err := svc.List(context.Background(), org, crm.ListDealsInput{Stage: stage})
	require.NoError(t, err)
	out := make(map[string]int, len(deals))
	for _, d := range deals {
		out[d.Title] = d.Position
	}
	return out
}

func TestDealService_CreateDefaults(t *testing.T) {
	t.Parallel()

	svc := crm.NewDealService(mustOpenDBWithMigrations(t))
	d, err := svc.Create(context.Background(), crm.CreateDealInput{OrganizationID: orgA, Title: "Renewal", OwnerID: userA})
	require.NoError(t, err)

	assert.Equal(t, crm.StageLead, d.Stage)
	assert.Equal(t, "USD", d.Currency)
	assert.Equal(t, 0, d.Position)
	assert.Nil(t, d.Amount)

	second := mustCreateDeal(t, svc, orgA, "Upsell", crm.StageLead, 10)
	assert.Equal(t, 1, second.Position, "appended to the column")
}

func TestDealService_CreateValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := crm.NewDealService(mustOpenDBWithMigrations(t))

	_, err := svc.Create(ctx, crm.CreateDealInput{OrganizationID: orgA, Title: "", OwnerID: userA})
	assert.ErrorIs(t, err, crm.ErrInvalidInput)

	_, err = svc.Create(ctx, crm.CreateDealInput{OrganizationID: orgA, Title: "x", Stage: "closed", OwnerID: userA})
	assert.ErrorIs(t, err, crm.ErrInvalidInput)

	_, err = svc.Create(ctx, crm.CreateDealInput{OrganizationID: orgA, Title: "x", ContactID: "nope", OwnerID: userA})
	assert.ErrorIs(t, err, crm.ErrNotFound)
}

func TestDealService_ListIsScopedAndOrdered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := crm.NewDealService(mustOpenDBWithMigrations(t))
	mustCreateDeal(t, svc, orgA, "won-1", crm.StageWon, 5)
	mustCreateDeal(t, svc, orgA, "lead-1", crm.StageLead, 1)
	mustCreateDeal(t, svc, orgA, "lead-2", crm.StageLead, 2)
	mustCreateDeal(t, svc, orgB, "other-org", crm.StageLead, 3)

	deals, total, err := svc.List(ctx, orgA, crm.ListDealsInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	titles := []string{}
	for _, d := range deals {
		assert.Equal(t, orgA, d.OrganizationID)
		titles = append(titles, d.Title)
	}
	assert.Equal(t, []string{"lead-1", "lead-2", "won-1"}, titles)

	_, err = svc.Get(ctx, orgB, deals[0].ID)
	assert.ErrorIs(t, err, crm.ErrNotFound)

	_, _, err = svc.List(ctx, orgA, crm.ListDealsInput{Stage: "bogus"})
	assert.ErrorIs(t, err, crm.ErrInvalidInput)
}

func TestDealService_UpdatePartial(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := crm.NewDealService(mustOpenDBWithMigrations(t))
	d := mustCreateDeal(t, svc, orgA, "Renewal", crm.StageLead, 100)

	updated, err := svc.Update(ctx, orgA, d.ID, crm.UpdateDealInput{
		Amount:        ptr(250.5),
		Currency:      ptr("eur"),
		ExpectedClose: ptr("2026-12-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renewal", updated.Title)
	assert.Equal(t, 250.5, *updated.Amount)
	assert.Equal(t, "EUR", updated.Currency)
	assert.Equal(t, "2026-12-01", *updated.ExpectedClose)

	unchanged, err := svc.Update(ctx, orgA, d.ID, crm.UpdateDealInput{})
	require.NoError(t, err)
	assert.Equal(t, updated.Amount, unchanged.Amount)

	_, err = svc.Update(ctx, orgA, d.ID, crm.UpdateDealInput{Title: ptr(" ")})
	assert.ErrorIs(t, err, crm.ErrInvalidInput)

	_, err = svc.Update(ctx, orgB, d.ID, crm.UpdateDealInput{Title: ptr("hijack")})
	assert.ErrorIs(t, err, crm.ErrNotFound)
}

func TestDealService_MoveKeepsColumnsContiguous(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := crm.NewDealService(mustOpenDBWithMigrations(t))
	a := mustCreateDeal(t, svc, orgA, "a", crm.StageLead, 1)
	mustCreateDeal(t, svc, orgA, "b", crm.StageLead, 1)
	mustCreateDeal(t, svc, orgA, "c", crm.StageLead, 1)
	mustCreateDeal(t, svc, orgA, "x", crm.StageProposal, 1)

	moved, err := svc.Move(ctx, orgA, a.ID, crm.MoveDealInput{Stage: crm.StageProposal, Position: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, crm.StageProposal, moved.Stage)
	assert.Equal(t, 0, moved.Position)

	assert.Equal(t, map[string]int{"b": 0, "c": 1}, positions(t, svc, orgA, crm.StageLead))
	assert.Equal(t, map[string]int{"a": 0, "x": 1}, positions(t, svc, orgA, crm.StageProposal))

	// Within the same column, and clamped past the end.
	_, err = svc.Move(ctx, orgA, a.ID, crm.MoveDealInput{Stage: crm.StageProposal, Position: ptr(99)})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"x": 0, "a": 1}, positions(t, svc, orgA, crm.StageProposal))

	// Nil position appends.
	_, err = svc.Move(ctx, orgA, a.ID, crm.MoveDealInput{Stage: crm.StageLead})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"b": 0, "c": 1, "a": 2}, positions(t, svc, orgA, crm.StageLead))
}

func TestDealService_MoveRejects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := crm.NewDealService(mustOpenDBWithMigrations(t))
	d := mustCreateDeal(t, svc, orgA, "a", crm.StageLead, 1)

	_, err := svc.Move(ctx, orgA, d.ID, crm.MoveDealInput{Stage: "archived"})
	assert.ErrorIs(t, err, crm.ErrInvalidInput)

	_, err = svc.Move(ctx, orgB, d.ID, crm.MoveDealInput{Stage: crm.StageWon})
	assert.ErrorIs(t, err, crm.ErrNotFound)
}

func TestDealService_Summary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := crm.NewDealService(mustOpenDBWithMigrations(t))
	mustCreateDeal(t, svc, orgA, "l1", crm.StageLead, 100)
	mustCreateDeal(t, svc, orgA, "l2", crm.StageLead, 50)
	mustCreateDeal(t, svc, orgA, "w1", crm.StageWon, 1000)
	mustCreateDeal(t, svc, orgA, "lost", crm.StageLost, 7)
	eur, err := svc.Create(ctx, crm.CreateDealInput{OrganizationID: orgA, Title: "eu", Stage: crm.StageProposal, Amount: ptr(20.0), Currency: "EUR", OwnerID: userA})
	require.NoError(t, err)
	require.Equal(t, "EUR", eur.Currency)
	mustCreateDeal(t, svc, orgB, "other", crm.StageLead, 999)

	sum, err := svc.Summary(ctx, orgA)
	require.NoError(t, err)

	require.Len(t, sum.Stages, len(crm.Stages))
	assert.Equal(t, crm.StageLead, sum.Stages[0].Stage)
	assert.Equal(t, 2, sum.Stages[0].Count)
	assert.Equal(t, 150.0, sum.Stages[0].Amounts["USD"])
	assert.Equal(t, 0, sum.Stages[1].Count, "empty stages are reported")

	assert.Equal(t, 5, sum.TotalDeals)
	assert.Equal(t, 3, sum.OpenDeals)
	assert.Equal(t, map[string]float64{"USD": 150, "EUR": 20}, sum.OpenAmount)
	assert.Equal(t, map[string]float64{"USD": 1000}, sum.WonAmount)
}
