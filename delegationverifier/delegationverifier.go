package delegationverifier

import (
	"context"
	"time"

	"github.com/tokenetes/delegation-gateway/common"
	"github.com/tokenetes/delegation-gateway/delegationtoken"
	"github.com/tokenetes/delegation-gateway/scope"
	"github.com/tokenetes/delegation-gateway/verificationreasons"
	"go.uber.org/zap"
)

// VerificationResult holds either verified claims or a rejection reason.
type VerificationResult struct {
	Claims *delegationtoken.DelegationClaims
	Reason verificationreasons.Reason
}

func Verified(claims *delegationtoken.DelegationClaims) VerificationResult {
	return VerificationResult{Claims: claims}
}

func Rejected(reason verificationreasons.Reason) VerificationResult {
	return VerificationResult{Reason: reason}
}

func (r VerificationResult) Valid() bool {
	return r.Claims != nil
}

type TokenDecoder interface {
	Decode(token string) (*delegationtoken.DelegationClaims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) bool
}

type DelegationVerifier struct {
	decoder    TokenDecoder
	revocation RevocationChecker
	now        func() time.Time
	logger     *zap.Logger
}

func NewDelegationVerifier(decoder TokenDecoder, revocation RevocationChecker, logger *zap.Logger) *DelegationVerifier {
	return &DelegationVerifier{
		decoder:    decoder,
		revocation: revocation,
		now:        time.Now,
		logger:     logger,
	}
}

// Verify checks token for an operation with the given method. Structural
// checks run before the revocation lookup so malformed input never reaches
// the store.
func (dv *DelegationVerifier) Verify(ctx context.Context, token string, method common.HttpMethod) VerificationResult {
	claims, err := dv.decoder.Decode(token)
	if err != nil {
		reason := delegationtoken.ReasonOf(err)
		dv.logger.Info("Delegation token rejected", zap.String("reason", reason.String()), zap.Error(err))

		return Rejected(reason)
	}

	if claims.Expired(dv.now()) {
		return Rejected(verificationreasons.Expired)
	}

	if dv.revocation.IsRevoked(ctx, claims.TokenID) {
		return Rejected(verificationreasons.Revoked)
	}

	if !scope.Permits(claims.Scope, method) {
		return Rejected(verificationreasons.InsufficientScope)
	}

	return Verified(claims)
}
