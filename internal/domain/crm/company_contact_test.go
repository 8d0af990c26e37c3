package crm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/fenixmcp/internal/domain/crm"
)

func TestCompanyService_CreateGetList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := crm.NewCompanyService(mustOpenDBWithMigrations(t))

	acme, err := svc.Create(ctx, crm.CreateCompanyInput{OrganizationID: orgA, Name: " Acme ", Domain: "ACME.io", OwnerID: userA})
	require.NoError(t, err)
	assert.Equal(t, "Acme", acme.Name)
	require.NotNil(t, acme.Domain)
	assert.Equal(t, "acme.io", *acme.Domain)

	_, err = svc.Create(ctx, crm.CreateCompanyInput{OrganizationID: orgA, Name: "Globex", OwnerID: userA})
	require.NoError(t, err)
	_, err = svc.Create(ctx, crm.CreateCompanyInput{OrganizationID: orgB, Name: "Acme B", OwnerID: userB})
	require.NoError(t, err)

	got, err := svc.Get(ctx, orgA, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, acme.ID, got.ID)

	all, total, err := svc.List(ctx, orgA, crm.ListCompaniesInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, all, 2)
	assert.Equal(t, "Acme", all[0].Name)

	found, total, err := svc.List(ctx, orgA, crm.ListCompaniesInput{Query: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, acme.ID, found[0].ID)
}

func TestCompanyService_Validation(t *testing.T) {
	t.Parallel()

	svc := crm.NewCompanyService(mustOpenDBWithMigrations(t))

	_, err := svc.Create(context.Background(), crm.CreateCompanyInput{OrganizationID: orgA, Name: "  ", OwnerID: userA})
	assert.ErrorIs(t, err, crm.ErrInvalidInput)

	_, err = svc.Get(context.Background(), orgA, "missing")
	assert.ErrorIs(t, err, crm.ErrNotFound)
}

func TestContactService_CreateAndFilter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := mustOpenDBWithMigrations(t)
	companies := crm.NewCompanyService(db)
	svc := crm.NewContactService(db)

	acme, err := companies.Create(ctx, crm.CreateCompanyInput{OrganizationID: orgA, Name: "Acme", OwnerID: userA})
	require.NoError(t, err)

	ada, err := svc.Create(ctx, crm.CreateContactInput{
		OrganizationID: orgA,
		CompanyID:      acme.ID,
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		JobTitle:       "CTO",
		OwnerID:        userA,
	})
	require.NoError(t, err)
	require.NotNil(t, ada.CompanyID)
	assert.Equal(t, acme.ID, *ada.CompanyID)
	assert.Nil(t, ada.Phone)

	_, err = svc.Create(ctx, crm.CreateContactInput{OrganizationID: orgA, FirstName: "Alan", LastName: "Turing", OwnerID: userA})
	require.NoError(t, err)

	byCompany, total, err := svc.List(ctx, orgA, crm.ListContactsInput{CompanyID: acme.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, ada.ID, byCompany[0].ID)

	byEmail, _, err := svc.List(ctx, orgA, crm.ListContactsInput{Query: "EXAMPLE.com"})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "Ada", byEmail[0].FirstName)

	page, total, err := svc.List(ctx, orgA, crm.ListContactsInput{ListInput: crm.ListInput{Limit: 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Lovelace", page[0].LastName)
}

func TestContactService_CompanyMustBelongToOrganization(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := mustOpenDBWithMigrations(t)

	other, err := crm.NewCompanyService(db).Create(ctx, crm.CreateCompanyInput{OrganizationID: orgB, Name: "Other", OwnerID: userB})
	require.NoError(t, err)

	_, err = crm.NewContactService(db).Create(ctx, crm.CreateContactInput{
		OrganizationID: orgA, CompanyID: other.ID, FirstName: "Eve", OwnerID: userA,
	})
	assert.ErrorIs(t, err, crm.ErrNotFound)

	_, err = crm.NewContactService(db).Get(ctx, orgB, "missing")
	assert.ErrorIs(t, err, crm.ErrNotFound)
}
