package service

import (
	"context"
	"errors"
	"time"

	"github.com/tokenetes/delegation-gateway/common"
	"github.com/tokenetes/delegation-gateway/delegationverifier"
	"go.uber.org/zap"
)

type DelegationVerifier interface {
	Verify(ctx context.Context, token string, method common.HttpMethod) delegationverifier.VerificationResult
}

type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

var ErrRevocationUnsupported = errors.New("revocation store does not accept revocations")

type Service struct {
	delegationVerifier DelegationVerifier
	revoker            Revoker
	auditSinks         []string
	logger             *zap.Logger
}

func NewService(delegationVerifier DelegationVerifier, revoker Revoker, auditSinks []string, logger *zap.Logger) *Service {
	return &Service{
		delegationVerifier: delegationVerifier,
		revoker:            revoker,
		auditSinks:         auditSinks,
		logger:             logger,
	}
}

// VerifyDelegation runs the full verification pipeline without dispatching
// to the backend or recording an audit entry.
func (s *Service) VerifyDelegation(ctx context.Context, token string, method common.HttpMethod) delegationverifier.VerificationResult {
	return s.delegationVerifier.Verify(ctx, token, method)
}

func (s *Service) AuditSinks() []string {
	return s.auditSinks
}

// RevokeDelegation marks a token id revoked until expiresAt.
func (s *Service) RevokeDelegation(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.revoker == nil {
		return ErrRevocationUnsupported
	}

	if err := s.revoker.Revoke(ctx, tokenID, expiresAt); err != nil {
		return err
	}

	s.logger.Info("Delegation token revoked", zap.String("jti", tokenID), zap.Time("expires-at", expiresAt))

	return nil
}
