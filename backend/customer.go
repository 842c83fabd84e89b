package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tokenetes/delegation-gateway/gatewayerrors"
	"github.com/tokenetes/delegation-gateway/identity"
)

const (
	agentMediatedMessage = "Order processed via authorized agent - identity preserved"
	directMessage        = "Order processed directly"
)

type CustomerResponse struct {
	CustomerID      string  `json:"customerId"`
	LoyaltyPoints   int     `json:"loyaltyPoints"`
	LoyaltyDiscount float64 `json:"loyaltyDiscount"`
	AgentMediated   bool    `json:"agentMediated"`
	AgentID         string  `json:"agentId,omitempty"`
	Message         string  `json:"message"`
}

// CustomerBackend serves the customer's own view, identical whether the
// request came from the customer or an agent acting for them.
type CustomerBackend struct {
	profiles ProfileStore
}

func NewCustomerBackend(profiles ProfileStore) *CustomerBackend {
	return &CustomerBackend{profiles: profiles}
}

func (b *CustomerBackend) Process(ctx context.Context, id identity.Context, _ *http.Request) (*Response, error) {
	profile, err := b.profiles.Fetch(ctx, id.PrincipalID)
	if errors.Is(err, gatewayerrors.ErrNotFound) {
		return jsonResponse(http.StatusNotFound, map[string]string{"error": "Customer not found"})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch customer profile: %w", err)
	}

	resp := CustomerResponse{
		CustomerID:      id.PrincipalID,
		LoyaltyPoints:   profile.LoyaltyPoints,
		LoyaltyDiscount: LoyaltyDiscount(profile.LoyaltyPoints),
		AgentMediated:   id.AgentMediated,
		AgentID:         id.AgentID,
		Message:         directMessage,
	}

	if id.AgentMediated {
		resp.Message = agentMediatedMessage
	}

	return jsonResponse(http.StatusOK, resp)
}

// LoyaltyDiscount returns the discount rate earned by a points balance.
func LoyaltyDiscount(points int) float64 {
	switch {
	case points >= 1000:
		return 0.15
	case points >= 500:
		return 0.10
	case points >= 100:
		return 0.05
	default:
		return 0
	}
}

func jsonResponse(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	return &Response{
		StatusCode: status,
		Header:     header,
		Body:       body,
	}, nil
}
