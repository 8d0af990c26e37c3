// Package identity turns an agent credential into the ExecutionContext every tool call runs under.
package identity

// ExecutionContext is the resolved (organization, acting user) pair for one request.
// Its fields are unexported: once built it cannot be reassigned, only copied.
type ExecutionContext struct {
	organizationID string
	actingUserID   string
}

// NewExecutionContext builds the context for one inbound call.
func NewExecutionContext(organizationID, actingUserID string) ExecutionContext {
	return ExecutionContext{organizationID: organizationID, actingUserID: actingUserID}
}

func (ec ExecutionContext) OrganizationID() string { return ec.organizationID }

func (ec ExecutionContext) ActingUserID() string { return ec.actingUserID }

// IsZero reports whether ec was never resolved.
func (ec ExecutionContext) IsZero() bool {
	return ec.organizationID == "" && ec.actingUserID == ""
}
