// Package crm holds the organization-scoped CRM records the agent tools operate on.
package crm

// Deal stages in board order. Won and lost are closed stages.
const (
	StageLead        = "lead"
	StageQualified   = "qualified"
	StageProposal    = "proposal"
	StageNegotiation = "negotiation"
	StageWon         = "won"
	StageLost        = "lost"
)

// Stages lists every deal stage in board order.
var Stages = []string{StageLead, StageQualified, StageProposal, StageNegotiation, StageWon, StageLost}

// Task statuses.
const (
	TaskOpen      = "open"
	TaskCompleted = "completed"
)

// Note entity types.
const (
	EntityDeal    = "deal"
	EntityContact = "contact"
	EntityCompany = "company"
)

// NoteEntityTypes lists the record kinds a note can be attached to.
var NoteEntityTypes = []string{EntityDeal, EntityContact, EntityCompany}

const defaultCurrency = "USD"

const (
	defaultListLimit = 50
	maxListLimit     = 200
)
