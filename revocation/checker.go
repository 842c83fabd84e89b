package revocation

import (
	"context"
	"time"

	"github.com/tokenetes/delegation-gateway/verificationreasons"
	"go.uber.org/zap"
)

const DefaultTimeout = 250 * time.Millisecond

// Store is a read-only set of revoked delegation token ids.
type Store interface {
	Exists(ctx context.Context, tokenID string) (bool, error)
}

// Revoker records a revoked token id until the token would have expired on
// its own.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// Checker answers revocation queries and fails closed: a store error or a
// lookup exceeding the timeout counts as revoked.
type Checker struct {
	store   Store
	timeout time.Duration
	logger  *zap.Logger
}

func NewChecker(store Store, timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Checker{
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

func (c *Checker) IsRevoked(ctx context.Context, tokenID string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	revoked, err := c.store.Exists(ctx, tokenID)
	if err != nil {
		c.logger.Error("Revocation lookup failed, treating token as revoked",
			zap.String("jti", tokenID),
			zap.String("reason", verificationreasons.BackendUnreachable.String()),
			zap.Error(err))

		return true
	}

	return revoked
}
