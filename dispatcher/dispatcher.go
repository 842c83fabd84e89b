package dispatcher

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/tokenetes/delegation-gateway/audit"
	"github.com/tokenetes/delegation-gateway/backend"
	"github.com/tokenetes/delegation-gateway/common"
	"github.com/tokenetes/delegation-gateway/delegationtoken"
	"github.com/tokenetes/delegation-gateway/delegationverifier"
	"github.com/tokenetes/delegation-gateway/identity"
	"github.com/tokenetes/delegation-gateway/sessionverifier"
	"go.uber.org/zap"
)

const (
	invalidDelegationError  = "Invalid delegation token"
	unauthorizedError       = "Unauthorized"
	backendUnavailableError = "Backend unavailable"
)

type Path int

const (
	DirectPath Path = iota
	AgentPath
)

func (p Path) String() string {
	if p == AgentPath {
		return "agent"
	}

	return "direct"
}

// SelectPath picks the verification path from the request headers alone:
// a request naming an agent and carrying a delegation token is agent
// mediated, anything else is treated as the customer acting directly.
func SelectPath(header http.Header) Path {
	if header.Get(common.AgentIDHeader) != "" && header.Get(common.DelegationTokenHeader) != "" {
		return AgentPath
	}

	return DirectPath
}

type DelegationVerifier interface {
	Verify(ctx context.Context, token string, method common.HttpMethod) delegationverifier.VerificationResult
}

type SessionVerifier interface {
	Verify(ctx context.Context, cookieHeader string) sessionverifier.SessionResult
}

type AuditRecorder interface {
	Record(ctx context.Context, record audit.AuditRecord)
}

type RejectionResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	AgentID string `json:"agentId,omitempty"`
}

// Dispatcher is the gateway entry point. It verifies each request on exactly
// one path and hands the backend an identity context naming the human
// principal.
type Dispatcher struct {
	delegationVerifier DelegationVerifier
	sessionVerifier    SessionVerifier
	auditRecorder      AuditRecorder
	backend            backend.Backend
	now                func() time.Time
	logger             *zap.Logger
}

func NewDispatcher(delegationVerifier DelegationVerifier, sessionVerifier SessionVerifier, auditRecorder AuditRecorder, upstream backend.Backend, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		delegationVerifier: delegationVerifier,
		sessionVerifier:    sessionVerifier,
		auditRecorder:      auditRecorder,
		backend:            upstream,
		now:                time.Now,
		logger:             logger,
	}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch SelectPath(r.Header) {
	case AgentPath:
		d.serveAgent(w, r)
	default:
		d.serveDirect(w, r)
	}
}

func (d *Dispatcher) serveAgent(w http.ResponseWriter, r *http.Request) {
	agentID := r.Header.Get(common.AgentIDHeader)
	token := r.Header.Get(common.DelegationTokenHeader)

	result := d.delegationVerifier.Verify(r.Context(), token, common.HttpMethod(r.Method))
	if !result.Valid() {
		d.logger.Warn("Rejected agent request",
			zap.String("agent-id", agentID),
			zap.String("endpoint", r.URL.Path),
			zap.String("method", r.Method),
			zap.String("reason", result.Reason.String()))

		writeJSON(w, http.StatusUnauthorized, RejectionResponse{
			Error:   invalidDelegationError,
			Message: result.Reason.Message(),
			AgentID: agentID,
		})

		return
	}

	claims := result.Claims
	id := identity.Delegated(claims.Subject, claims.AgentID)

	d.logUntrustedUserHint(r, id)
	d.logPresentedAgentMismatch(agentID, claims)

	transactionID := audit.NewTransactionID()

	d.auditRecorder.Record(r.Context(), audit.AuditRecord{
		Timestamp:         d.now().UTC(),
		TransactionID:     transactionID,
		AgentID:           claims.AgentID,
		AgentName:         claims.AgentName,
		PrincipalID:       claims.Subject,
		Action:            r.URL.Path,
		Method:            r.Method,
		DelegationScope:   claims.ScopeString(),
		PreservedIdentity: true,
	})

	resp, ok := d.invokeBackend(w, r, id)
	if !ok {
		return
	}

	resp.Header.Set(common.IdentityPreservedHeader, "true")
	resp.Header.Set(common.AgentTransactionIDHeader, transactionID)
	resp.Header.Set(common.DelegationVerifiedHeader, "true")

	writeResponse(w, resp)
}

func (d *Dispatcher) serveDirect(w http.ResponseWriter, r *http.Request) {
	result := d.sessionVerifier.Verify(r.Context(), r.Header.Get("Cookie"))
	if !result.Valid() {
		d.logger.Info("Rejected direct request",
			zap.String("endpoint", r.URL.Path),
			zap.String("method", r.Method),
			zap.String("reason", result.Reason.String()))

		writeJSON(w, http.StatusUnauthorized, RejectionResponse{
			Error:   unauthorizedError,
			Message: result.Reason.Message(),
		})

		return
	}

	id := identity.Direct(result.PrincipalID)

	d.logUntrustedUserHint(r, id)

	resp, ok := d.invokeBackend(w, r, id)
	if !ok {
		return
	}

	writeResponse(w, resp)
}

func (d *Dispatcher) invokeBackend(w http.ResponseWriter, r *http.Request, id identity.Context) (*backend.Response, bool) {
	ctx := identity.NewContext(r.Context(), id)

	resp, err := d.backend.Process(ctx, id, r.WithContext(ctx))
	if err != nil {
		d.logger.Error("Backend invocation failed",
			zap.String("endpoint", r.URL.Path),
			zap.String("method", r.Method),
			zap.Bool("agent-mediated", id.AgentMediated),
			zap.Error(err))

		writeJSON(w, http.StatusBadGateway, map[string]string{"error": backendUnavailableError})

		return nil, false
	}

	if resp.Header == nil {
		resp.Header = http.Header{}
	}

	return resp, true
}

// The x-user-id header is a client-supplied hint and never used for
// authorization.
func (d *Dispatcher) logUntrustedUserHint(r *http.Request, id identity.Context) {
	hint := r.Header.Get(common.UserIDHeader)
	if hint != "" && hint != id.PrincipalID {
		d.logger.Debug("Ignoring user id hint that differs from verified principal",
			zap.String("hint", hint),
			zap.String("principal-id", id.PrincipalID))
	}
}

// The x-agent-id header only selects the agent path. The delegate named by
// the token is what gets audited and forwarded.
func (d *Dispatcher) logPresentedAgentMismatch(presentedAgentID string, claims *delegationtoken.DelegationClaims) {
	if presentedAgentID != claims.AgentID {
		d.logger.Warn("Presented agent id differs from token delegate",
			zap.String("presented-agent-id", presentedAgentID),
			zap.String("agent-id", claims.AgentID),
			zap.String("jti", claims.TokenID))
	}
}

func writeResponse(w http.ResponseWriter, resp *backend.Response) {
	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	w.WriteHeader(status)
	w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to process response", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
