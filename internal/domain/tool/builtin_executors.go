package tool

import (
	"context"
	"errors"

	"github.com/matiasleandrokruk/fenixmcp/internal/domain/crm"
	"github.com/matiasleandrokruk/fenixmcp/internal/domain/identity"
)

// Every executor scopes reads and writes to ec.OrganizationID() and records
// ec.ActingUserID() as owner, author or creator.

func (b *BuiltinServices) listDeals(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	owner := args.String("ownerId")
	if args.Bool("mine") {
		owner = ec.ActingUserID()
	}
	deals, total, err := b.Deals.List(ctx, ec.OrganizationID(), crm.ListDealsInput{
		ListInput: page(args),
		Stage:     args.String("stage"),
		OwnerID:   owner,
		CompanyID: args.String("companyId"),
		ContactID: args.String("contactId"),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]any{"deals": deals, "total": total}, nil
}

func (b *BuiltinServices) getDeal(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	org := ec.OrganizationID()
	deal, err := b.Deals.Get(ctx, org, args.String("dealId"))
	if err != nil {
		return nil, domainError(err)
	}
	tasks, _, err := b.Tasks.List(ctx, org, crm.ListTasksInput{DealID: deal.ID, Status: crm.TaskOpen})
	if err != nil {
		return nil, domainError(err)
	}
	notes, _, err := b.Notes.List(ctx, org, crm.ListNotesInput{
		ListInput:  crm.ListInput{Limit: 5},
		EntityType: crm.EntityDeal,
		EntityID:   deal.ID,
	})
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]any{"deal": deal, "openTasks": tasks, "recentNotes": notes}, nil
}

func (b *BuiltinServices) createDeal(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	deal, err := b.Deals.Create(ctx, crm.CreateDealInput{
		OrganizationID: ec.OrganizationID(),
		CompanyID:      args.String("companyId"),
		ContactID:      args.String("contactId"),
		Title:          args.String("title"),
		Stage:          args.String("stage"),
		Amount:         args.Float("amount"),
		Currency:       args.String("currency"),
		ExpectedClose:  args.String("expectedClose"),
		OwnerID:        ec.ActingUserID(),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return deal, nil
}

func (b *BuiltinServices) updateDeal(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	deal, err := b.Deals.Update(ctx, ec.OrganizationID(), args.String("dealId"), crm.UpdateDealInput{
		Title:         args.OptString("title"),
		Amount:        args.Float("amount"),
		Currency:      args.OptString("currency"),
		ExpectedClose: nullable(args, "expectedClose"),
		CompanyID:     nullable(args, "companyId"),
		ContactID:     nullable(args, "contactId"),
		OwnerID:       args.OptString("ownerId"),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return deal, nil
}

func (b *BuiltinServices) moveDeal(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	deal, err := b.Deals.Move(ctx, ec.OrganizationID(), args.String("dealId"), crm.MoveDealInput{
		Stage:    args.String("stage"),
		Position: args.Int("position"),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return deal, nil
}

func (b *BuiltinServices) getPipelineSummary(ctx context.Context, ec identity.ExecutionContext, _ Args) (any, error) {
	summary, err := b.Deals.Summary(ctx, ec.OrganizationID())
	if err != nil {
		return nil, domainError(err)
	}
	return summary, nil
}

func (b *BuiltinServices) listContacts(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	contacts, total, err := b.Contacts.List(ctx, ec.OrganizationID(), crm.ListContactsInput{
		ListInput: page(args),
		Query:     args.String("query"),
		CompanyID: args.String("companyId"),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]any{"contacts": contacts, "total": total}, nil
}

func (b *BuiltinServices) getContact(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	org := ec.OrganizationID()
	contact, err := b.Contacts.Get(ctx, org, args.String("contactId"))
	if err != nil {
		return nil, domainError(err)
	}
	deals, _, err := b.Deals.List(ctx, org, crm.ListDealsInput{ContactID: contact.ID})
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]any{"contact": contact, "deals": deals}, nil
}

func (b *BuiltinServices) createContact(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	contact, err := b.Contacts.Create(ctx, crm.CreateContactInput{
		OrganizationID: ec.OrganizationID(),
		CompanyID:      args.String("companyId"),
		FirstName:      args.String("firstName"),
		LastName:       args.String("lastName"),
		Email:          args.String("email"),
		Phone:          args.String("phone"),
		JobTitle:       args.String("jobTitle"),
		OwnerID:        ec.ActingUserID(),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return contact, nil
}

func (b *BuiltinServices) listCompanies(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	companies, total, err := b.Companies.List(ctx, ec.OrganizationID(), crm.ListCompaniesInput{
		ListInput: page(args),
		Query:     args.String("query"),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]any{"companies": companies, "total": total}, nil
}

func (b *BuiltinServices) createCompany(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	company, err := b.Companies.Create(ctx, crm.CreateCompanyInput{
		OrganizationID: ec.OrganizationID(),
		Name:           args.String("name"),
		Domain:         args.String("domain"),
		OwnerID:        ec.ActingUserID(),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return company, nil
}

func (b *BuiltinServices) listTasks(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	in := crm.ListTasksInput{
		ListInput: page(args),
		Status:    args.String("status"),
		DealID:    args.String("dealId"),
		ContactID: args.String("contactId"),
		DueBefore: args.String("dueBefore"),
	}
	if args.Bool("mine") {
		in.AssigneeID = ec.ActingUserID()
	}
	tasks, total, err := b.Tasks.List(ctx, ec.OrganizationID(), in)
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]any{"tasks": tasks, "total": total}, nil
}

func (b *BuiltinServices) createTask(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	task, err := b.Tasks.Create(ctx, crm.CreateTaskInput{
		OrganizationID: ec.OrganizationID(),
		Title:          args.String("title"),
		Description:    args.String("description"),
		DueAt:          args.String("dueAt"),
		AssigneeID:     args.String("assigneeId"),
		CreatedBy:      ec.ActingUserID(),
		DealID:         args.String("dealId"),
		ContactID:      args.String("contactId"),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return task, nil
}

func (b *BuiltinServices) completeTask(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	task, err := b.Tasks.Complete(ctx, ec.OrganizationID(), args.String("taskId"))
	if err != nil {
		return nil, domainError(err)
	}
	return task, nil
}

func (b *BuiltinServices) addNote(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	note, err := b.Notes.Create(ctx, crm.CreateNoteInput{
		OrganizationID: ec.OrganizationID(),
		EntityType:     args.String("entityType"),
		EntityID:       args.String("entityId"),
		AuthorID:       ec.ActingUserID(),
		Body:           args.String("body"),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return note, nil
}

func (b *BuiltinServices) listNotes(ctx context.Context, ec identity.ExecutionContext, args Args) (any, error) {
	notes, total, err := b.Notes.List(ctx, ec.OrganizationID(), crm.ListNotesInput{
		ListInput:  page(args),
		EntityType: args.String("entityType"),
		EntityID:   args.String("entityId"),
	})
	if err != nil {
		return nil, domainError(err)
	}
	return map[string]any{"notes": notes, "total": total}, nil
}

func page(args Args) crm.ListInput {
	return crm.ListInput{Limit: args.IntOr("limit", 0), Offset: args.IntOr("offset", 0)}
}

// nullable distinguishes an absent key (nil, leave unchanged) from an explicit null ("", clear).
func nullable(args Args, name string) *string {
	if !args.Has(name) {
		return nil
	}
	if v := args.OptString(name); v != nil {
		return v
	}
	empty := ""
	return &empty
}

// domainError turns expected CRM failures into in-band tool errors; anything else passes through.
func domainError(err error) error {
	if errors.Is(err, crm.ErrNotFound) || errors.Is(err, crm.ErrInvalidInput) {
		return Failf("%w", err)
	}
	return err
}
