package delegationtoken

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

// DelegationClaims is the decoded content of a delegation token: an agent
// acting for a human principal within a scope until ExpiresAt.
type DelegationClaims struct {
	Subject   string
	AgentID   string
	AgentName string
	Scope     []string
	TokenID   string
	ExpiresAt time.Time
}

// HasScope reports whether the delegation grants the named permission.
func (c *DelegationClaims) HasScope(permission string) bool {
	for _, s := range c.Scope {
		if s == permission {
			return true
		}
	}

	return false
}

// ScopeString returns the scope in its wire form.
func (c *DelegationClaims) ScopeString() string {
	return strings.Join(c.Scope, " ")
}

// Expired reports whether the delegation is no longer valid at now.
func (c *DelegationClaims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

type wireClaims struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name,omitempty"`
	Scope     string `json:"scope"`
	jwt.StandardClaims
}

func (w *wireClaims) toDelegationClaims() *DelegationClaims {
	return &DelegationClaims{
		Subject:   w.Subject,
		AgentID:   w.AgentID,
		AgentName: w.AgentName,
		Scope:     strings.Fields(w.Scope),
		TokenID:   w.Id,
		ExpiresAt: time.Unix(w.ExpiresAt, 0),
	}
}

func (w *wireClaims) missingClaims() []string {
	var missing []string

	if strings.TrimSpace(w.Subject) == "" {
		missing = append(missing, "sub")
	}

	if strings.TrimSpace(w.AgentID) == "" {
		missing = append(missing, "agent_id")
	}

	if len(strings.Fields(w.Scope)) == 0 {
		missing = append(missing, "scope")
	}

	if strings.TrimSpace(w.Id) == "" {
		missing = append(missing, "jti")
	}

	if w.ExpiresAt == 0 {
		missing = append(missing, "exp")
	}

	return missing
}
