package audit

import (
	"time"

	"github.com/google/uuid"
)

const transactionIDPrefix = "agt_"

// AuditRecord is an immutable fact about one verified agent-mediated request.
type AuditRecord struct {
	Timestamp         time.Time `json:"timestamp"`
	TransactionID     string    `json:"transactionId"`
	AgentID           string    `json:"agentId"`
	AgentName         string    `json:"agentName,omitempty"`
	PrincipalID       string    `json:"principalId"`
	Action            string    `json:"action"`
	Method            string    `json:"method"`
	DelegationScope   string    `json:"delegationScope"`
	PreservedIdentity bool      `json:"preservedIdentity"`
}

func NewTransactionID() string {
	return transactionIDPrefix + uuid.NewString()
}
