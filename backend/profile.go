package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/tokenetes/delegation-gateway/gatewayerrors"
)

type Profile struct {
	ID                     string `json:"id"`
	Email                  string `json:"email"`
	LoyaltyPoints          int    `json:"loyaltyPoints"`
	PreferredPaymentMethod string `json:"preferredPaymentMethod,omitempty"`
}

// ProfileStore is the customer profile service consulted by the customer
// backend. The gateway core only threads the principal id through to it.
type ProfileStore interface {
	Fetch(ctx context.Context, principalID string) (*Profile, error)
}

type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewMemoryProfileStore(profiles ...Profile) *MemoryProfileStore {
	store := &MemoryProfileStore{profiles: make(map[string]Profile)}
	for _, profile := range profiles {
		store.profiles[profile.ID] = profile
	}

	return store
}

func (s *MemoryProfileStore) Fetch(_ context.Context, principalID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[principalID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", principalID, gatewayerrors.ErrNotFound)
	}

	return &profile, nil
}

const selectProfileQuery = `
SELECT customer_id,email,loyalty_points,COALESCE(preferred_payment_method,'')
FROM customer_profiles
WHERE customer_id=$1
`

// RowQuerier is satisfied by *pgxpool.Pool and *pgx.Conn.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresProfileStore struct {
	db RowQuerier
}

func NewPostgresProfileStore(db RowQuerier) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

func (s *PostgresProfileStore) Fetch(ctx context.Context, principalID string) (*Profile, error) {
	var profile Profile

	err := s.db.QueryRow(ctx, selectProfileQuery, principalID).Scan(
		&profile.ID, &profile.Email, &profile.LoyaltyPoints, &profile.PreferredPaymentMethod)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", principalID, gatewayerrors.ErrNotFound)
		}

		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	return &profile, nil
}
