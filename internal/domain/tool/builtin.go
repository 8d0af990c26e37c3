package tool

import (
	"database/sql"

	"github.com/matiasleandrokruk/fenixmcp/internal/domain/crm"
	s "github.com/matiasleandrokruk/fenixmcp/internal/domain/schema"
)

const (
	BuiltinListDeals          = "listDeals"
	BuiltinGetDeal            = "getDeal"
	BuiltinCreateDeal         = "createDeal"
	BuiltinUpdateDeal         = "updateDeal"
	BuiltinMoveDeal           = "moveDeal"
	BuiltinGetPipelineSummary = "getPipelineSummary"
	BuiltinListContacts       = "listContacts"
	BuiltinGetContact         = "getContact"
	BuiltinCreateContact      = "createContact"
	BuiltinListCompanies      = "listCompanies"
	BuiltinCreateCompany      = "createCompany"
	BuiltinListTasks          = "listTasks"
	BuiltinCreateTask         = "createTask"
	BuiltinCompleteTask       = "completeTask"
	BuiltinAddNote            = "addNote"
	BuiltinListNotes          = "listNotes"
)

// BuiltinServices are the CRM services behind the builtin tools.
type BuiltinServices struct {
	Companies *crm.CompanyService
	Contacts  *crm.ContactService
	Deals     *crm.DealService
	Tasks     *crm.TaskService
	Notes     *crm.NoteService
}

// NewBuiltinServices wires every CRM service over one database.
func NewBuiltinServices(db *sql.DB) *BuiltinServices {
	return &BuiltinServices{
		Companies: crm.NewCompanyService(db),
		Contacts:  crm.NewContactService(db),
		Deals:     crm.NewDealService(db),
		Tasks:     crm.NewTaskService(db),
		Notes:     crm.NewNoteService(db),
	}
}

// NewBuiltinCatalog returns the catalog of CRM tools served by the endpoint.
func NewBuiltinCatalog(db *sql.DB) (*Catalog, error) {
	return NewCatalog(NewBuiltinServices(db).Tools()...)
}

func id(what string) *s.Schema {
	return s.String().MinLen(1).Describe("Id of the " + what)
}

func pageProps() []s.Property {
	return []s.Property{
		s.Optional("limit", s.Integer().Min(1).Max(200).Describe("Page size, default 50")),
		s.Optional("offset", s.Integer().Min(0).Describe("Rows to skip")),
	}
}

func object(props ...s.Property) *s.Schema {
	return s.Object(props...)
}

func paged(props ...s.Property) *s.Schema {
	return s.Object(append(props, pageProps()...)...)
}

var (
	stageSchema      = s.Enum(crm.Stages...).Describe("Pipeline stage")
	entityTypeSchema = s.Enum(crm.NoteEntityTypes...).Describe("Kind of record")
	currencySchema   = s.String().MinLen(3).MaxLen(3).Describe("ISO 4217 code, default USD")
)

// Tools returns the builtin tools in the order tools/list reports them.
func (b *BuiltinServices) Tools() []Tool {
	return []Tool{
		New(Definition{
			Name:        BuiltinListDeals,
			Title:       "List deals",
			Description: "List deals on the pipeline board, ordered by stage and position",
			Input: paged(
				s.Optional("stage", stageSchema),
				s.Optional("mine", s.Boolean().Describe("Only deals owned by the caller")),
				s.Optional("ownerId", id("owning user")),
				s.Optional("companyId", id("company")),
				s.Optional("contactId", id("contact")),
			),
		}, b.listDeals),
		New(Definition{
			Name:        BuiltinGetDeal,
			Title:       "Get deal",
			Description: "Fetch one deal with its open tasks and latest notes",
			Input:       object(s.Required("dealId", id("deal"))),
		}, b.getDeal),
		New(Definition{
			Name:        BuiltinCreateDeal,
			Title:       "Create deal",
			Description: "Create a deal owned by the caller, appended to its stage column",
			Input: object(
				s.Required("title", s.String().MinLen(1).MaxLen(200)),
				s.Optional("stage", stageSchema),
				s.Optional("amount", s.Number().Min(0)),
				s.Optional("currency", currencySchema),
				s.Optional("expectedClose", s.String().WithFormat("date")),
				s.Optional("companyId", id("company")),
				s.Optional("contactId", id("contact")),
			),
		}, b.createDeal),
		New(Definition{
			Name:        BuiltinUpdateDeal,
			Title:       "Update deal",
			Description: "Change deal fields. Omitted fields are left as they are; null clears a link or date",
			Input: object(
				s.Required("dealId", id("deal")),
				s.Optional("title", s.String().MinLen(1).MaxLen(200)),
				s.Optional("amount", s.Number().Min(0)),
				s.Optional("currency", currencySchema),
				s.Optional("expectedClose", s.String().WithFormat("date").OrNull()),
				s.Optional("companyId", id("company").OrNull()),
				s.Optional("contactId", id("contact").OrNull()),
				s.Optional("ownerId", id("user the deal is reassigned to")),
			),
		}, b.updateDeal),
		New(Definition{
			Name:        BuiltinMoveDeal,
			Title:       "Move deal",
			Description: "Move a deal to a stage column, optionally at a given position (0 is the top)",
			Input: object(
				s.Required("dealId", id("deal")),
				s.Required("stage", stageSchema),
				s.Optional("position", s.Integer().Min(0)),
			),
		}, b.moveDeal),
		New(Definition{
			Name:        BuiltinGetPipelineSummary,
			Title:       "Pipeline summary",
			Description: "Deal counts and amounts per stage, with open and won totals per currency",
			Input:       object(),
		}, b.getPipelineSummary),
		New(Definition{
			Name:        BuiltinListContacts,
			Title:       "List contacts",
			Description: "Search contacts by name or email",
			Input: paged(
				s.Optional("query", s.String().MaxLen(200)),
				s.Optional("companyId", id("company")),
			),
		}, b.listContacts),
		New(Definition{
			Name:        BuiltinGetContact,
			Title:       "Get contact",
			Description: "Fetch one contact with their deals",
			Input:       object(s.Required("contactId", id("contact"))),
		}, b.getContact),
		New(Definition{
			Name:        BuiltinCreateContact,
			Title:       "Create contact",
			Description: "Create a contact owned by the caller",
			Input: object(
				s.Required("firstName", s.String().MinLen(1).MaxLen(100)),
				s.Optional("lastName", s.String().MaxLen(100)),
				s.Optional("email", s.String().WithFormat("email")),
				s.Optional("phone", s.String().MaxLen(40)),
				s.Optional("jobTitle", s.String().MaxLen(100)),
				s.Optional("companyId", id("company")),
			),
		}, b.createContact),
		New(Definition{
			Name:        BuiltinListCompanies,
			Title:       "List companies",
			Description: "Search companies by name or domain",
			Input:       paged(s.Optional("query", s.String().MaxLen(200))),
		}, b.listCompanies),
		New(Definition{
			Name:        BuiltinCreateCompany,
			Title:       "Create company",
			Description: "Create a company owned by the caller",
			Input: object(
				s.Required("name", s.String().MinLen(1).MaxLen(200)),
				s.Optional("domain", s.String().MaxLen(253)),
			),
		}, b.createCompany),
		New(Definition{
			Name:        BuiltinListTasks,
			Title:       "List tasks",
			Description: "List tasks, open ones first by due date",
			Input: paged(
				s.Optional("status", s.Enum(crm.TaskOpen, crm.TaskCompleted)),
				s.Optional("mine", s.Boolean().Describe("Only tasks assigned to the caller")),
				s.Optional("dealId", id("deal")),
				s.Optional("contactId", id("contact")),
				s.Optional("dueBefore", s.String().WithFormat("date")),
			),
		}, b.listTasks),
		New(Definition{
			Name:        BuiltinCreateTask,
			Title:       "Create task",
			Description: "Create a task, assigned to the caller unless assigneeId is given",
			Input: object(
				s.Required("title", s.String().MinLen(1).MaxLen(200)),
				s.Optional("description", s.String().MaxLen(2000)),
				s.Optional("dueAt", s.String().WithFormat("date")),
				s.Optional("assigneeId", id("assigned user")),
				s.Optional("dealId", id("deal")),
				s.Optional("contactId", id("contact")),
			),
		}, b.createTask),
		New(Definition{
			Name:        BuiltinCompleteTask,
			Title:       "Complete task",
			Description: "Mark a task completed",
			Input:       object(s.Required("taskId", id("task"))),
		}, b.completeTask),
		New(Definition{
			Name:        BuiltinAddNote,
			Title:       "Add note",
			Description: "Attach a note to a deal, contact or company",
			Input: object(
				s.Required("entityType", entityTypeSchema),
				s.Required("entityId", id("record")),
				s.Required("body", s.String().MinLen(1).MaxLen(5000)),
			),
		}, b.addNote),
		New(Definition{
			Name:        BuiltinListNotes,
			Title:       "List notes",
			Description: "List the notes of a deal, contact or company, newest first",
			Input: paged(
				s.Required("entityType", entityTypeSchema),
				s.Required("entityId", id("record")),
			),
		}, b.listNotes),
	}
}
