package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/tokenetes/delegation-gateway/api/service"
	"github.com/tokenetes/delegation-gateway/common"
	"go.uber.org/zap"
)

type Handlers struct {
	service *service.Service
	logger  *zap.Logger
}

func NewHandlers(service *service.Service, logger *zap.Logger) *Handlers {
	return &Handlers{
		service: service,
		logger:  logger,
	}
}

type VerifyDelegationRequest struct {
	Token  string            `json:"token"`
	Method common.HttpMethod `json:"method"`
}

type VerifyDelegationResponse struct {
	Valid       bool     `json:"valid"`
	Reason      string   `json:"reason,omitempty"`
	Message     string   `json:"message,omitempty"`
	PrincipalID string   `json:"principalId,omitempty"`
	AgentID     string   `json:"agentId,omitempty"`
	Scope       []string `json:"scope,omitempty"`
}

type RevokeDelegationRequest struct {
	TokenID   string    `json:"jti"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type HealthResponse struct {
	Status     string   `json:"status"`
	AuditSinks []string `json:"auditSinks"`
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, HealthResponse{
		Status:     "ok",
		AuditSinks: h.service.AuditSinks(),
	})
}

func (h *Handlers) VerifyDelegationHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("Failed to read verify delegation request body", zap.Error(err))
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)

		return
	}

	defer r.Body.Close()

	var verifyRequest VerifyDelegationRequest

	if err := json.Unmarshal(body, &verifyRequest); err != nil {
		h.logger.Error("Failed to unmarshal verify delegation request body", zap.Error(err))
		http.Error(w, "Invalid request", http.StatusBadRequest)

		return
	}

	if verifyRequest.Token == "" {
		http.Error(w, "Missing token", http.StatusBadRequest)

		return
	}

	if verifyRequest.Method == "" {
		verifyRequest.Method = common.Get
	}

	result := h.service.VerifyDelegation(r.Context(), verifyRequest.Token, verifyRequest.Method)

	verifyResponse := VerifyDelegationResponse{}

	if !result.Valid() {
		verifyResponse.Valid = false
		verifyResponse.Reason = result.Reason.String()
		verifyResponse.Message = result.Reason.Message()

		h.logger.Info("Delegation token failed verification", zap.String("method", string(verifyRequest.Method)), zap.String("reason", result.Reason.String()))
	} else {
		verifyResponse.Valid = true
		verifyResponse.PrincipalID = result.Claims.Subject
		verifyResponse.AgentID = result.Claims.AgentID
		verifyResponse.Scope = result.Claims.Scope
	}

	writeJSON(w, h.logger, verifyResponse)
}

func (h *Handlers) RevokeDelegationHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("Failed to read revoke delegation request body", zap.Error(err))
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)

		return
	}

	defer r.Body.Close()

	var revokeRequest RevokeDelegationRequest

	if err := json.Unmarshal(body, &revokeRequest); err != nil {
		h.logger.Error("Failed to unmarshal revoke delegation request body", zap.Error(err))
		http.Error(w, "Invalid request", http.StatusBadRequest)

		return
	}

	if revokeRequest.TokenID == "" || revokeRequest.ExpiresAt.IsZero() {
		http.Error(w, "Missing jti or expiresAt", http.StatusBadRequest)

		return
	}

	err = h.service.RevokeDelegation(r.Context(), revokeRequest.TokenID, revokeRequest.ExpiresAt)
	if errors.Is(err, service.ErrRevocationUnsupported) {
		http.Error(w, "Revocation store is read-only", http.StatusNotImplemented)

		return
	}

	if err != nil {
		h.logger.Error("Failed to revoke delegation token", zap.String("jti", revokeRequest.TokenID), zap.Error(err))
		http.Error(w, "Failed to revoke delegation token", http.StatusServiceUnavailable)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, v any) {
	responseBody, err := json.Marshal(v)
	if err != nil {
		logger.Error("Failed to marshal response", zap.Error(err))
		http.Error(w, "Failed to process response", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(responseBody)
}
