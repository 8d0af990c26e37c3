package audit

import (
	"time"
)

// TopicToolInvoked is the event bus topic carrying ToolInvocation payloads.
const TopicToolInvoked = "tool.invoked"

// Outcome is how a tools/call ended.
type Outcome string

const (
	// OutcomeSuccess: the tool ran and returned a result.
	OutcomeSuccess Outcome = "success"
	// OutcomeRejected: the arguments failed schema validation; the tool never ran.
	OutcomeRejected Outcome = "rejected"
	// OutcomeError: the tool ran and failed or panicked.
	OutcomeError Outcome = "error"
)

// ToolInvocation is one audited tools/call. Immutable once recorded.
type ToolInvocation struct {
	ID             string        `json:"id"`
	OrganizationID string        `json:"organizationId"`
	ActingUserID   string        `json:"actingUserId"`
	ToolName       string        `json:"toolName"`
	Outcome        Outcome       `json:"outcome"`
	ErrorMessage   *string       `json:"errorMessage,omitempty"`
	Duration       time.Duration `json:"-"`
	RequestID      *string       `json:"requestId,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}
