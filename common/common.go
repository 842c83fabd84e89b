package common

import "net/http"

type HttpMethod string

const (
	Get     HttpMethod = http.MethodGet
	Head    HttpMethod = http.MethodHead
	Post    HttpMethod = http.MethodPost
	Put     HttpMethod = http.MethodPut
	Delete  HttpMethod = http.MethodDelete
	Patch   HttpMethod = http.MethodPatch
	Options HttpMethod = http.MethodOptions
)

var HttpMethodList = []HttpMethod{Get, Head, Post, Put, Delete, Patch, Options}

// IsWrite reports whether the method changes state on the backend.
func (m HttpMethod) IsWrite() bool {
	switch m {
	case Post, Put, Delete, Patch:
		return true
	default:
		return false
	}
}

// Request headers recognized by the gateway.
const (
	AgentIDHeader         = "X-Agent-Id"
	DelegationTokenHeader = "X-Delegation-Token"
	UserIDHeader          = "X-User-Id"
	SessionCookieName     = "session"
)

// Response headers set on agent-mediated responses.
const (
	IdentityPreservedHeader  = "X-Customer-Identity-Preserved"
	AgentTransactionIDHeader = "X-Agent-Transaction-Id"
	DelegationVerifiedHeader = "X-Delegation-Verified"
)

// Headers carrying the identity context to a proxied upstream.
const (
	PrincipalIDHeader   = "X-Principal-Id"
	AgentMediatedHeader = "X-Agent-Mediated"
)
