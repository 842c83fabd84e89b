package identity

import "context"

// Context is the normalized principal handed to the backend. PrincipalID is
// always the human customer, never the agent acting for them.
type Context struct {
	PrincipalID   string `json:"principalId"`
	AgentMediated bool   `json:"agentMediated"`
	AgentID       string `json:"agentId,omitempty"`
}

func Direct(principalID string) Context {
	return Context{PrincipalID: principalID}
}

func Delegated(principalID, agentID string) Context {
	return Context{
		PrincipalID:   principalID,
		AgentMediated: true,
		AgentID:       agentID,
	}
}

type contextKey struct{}

func NewContext(ctx context.Context, id Context) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Context, bool) {
	id, ok := ctx.Value(contextKey{}).(Context)

	return id, ok
}
