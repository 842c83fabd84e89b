package delegationverifier

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokenetes/delegation-gateway/common"
	"github.com/tokenetes/delegation-gateway/delegationtoken"
	"github.com/tokenetes/delegation-gateway/revocation"
	"github.com/tokenetes/delegation-gateway/verificationreasons"
	"go.uber.org/zap/zaptest"
)

var secret = []byte("verifier-secret")

type countingChecker struct {
	revoked map[string]bool
	calls   int
}

func (c *countingChecker) IsRevoked(_ context.Context, tokenID string) bool {
	c.calls++

	return c.revoked[tokenID]
}

func token(t *testing.T, overrides jwt.MapClaims, drop ...string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":      "cust_1",
		"agent_id": "agt_9",
		"scope":    "read purchase",
		"jti":      "t1",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}

	for k, v := range overrides {
		claims[k] = v
	}

	for _, k := range drop {
		delete(claims, k)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	return signed
}

func newVerifier(t *testing.T, checker RevocationChecker) *DelegationVerifier {
	t.Helper()

	codec, err := delegationtoken.NewCodec(secret, nil, nil)
	require.NoError(t, err)

	return NewDelegationVerifier(codec, checker, zaptest.NewLogger(t))
}

func TestVerifySucceeds(t *testing.T) {
	verifier := newVerifier(t, &countingChecker{})

	result := verifier.Verify(context.Background(), token(t, nil), common.Get)
	require.True(t, result.Valid())
	assert.Equal(t, "cust_1", result.Claims.Subject)
	assert.Equal(t, "agt_9", result.Claims.AgentID)
	assert.Empty(t, result.Reason)
}

func TestVerifyRejections(t *testing.T) {
	tests := []struct {
		name   string
		token  func(t *testing.T) string
		method common.HttpMethod
		want   verificationreasons.Reason
	}{
		{"two segments", func(*testing.T) string { return "a.b" }, common.Get, verificationreasons.MalformedToken},
		{"four segments", func(t *testing.T) string { return token(t, nil) + ".x" }, common.Get, verificationreasons.MalformedToken},
		{"missing sub", func(t *testing.T) string { return token(t, nil, "sub") }, common.Get, verificationreasons.MissingClaims},
		{"missing agent_id", func(t *testing.T) string { return token(t, nil, "agent_id") }, common.Get, verificationreasons.MissingClaims},
		{"missing scope", func(t *testing.T) string { return token(t, nil, "scope") }, common.Get, verificationreasons.MissingClaims},
		{"expired", func(t *testing.T) string {
			return token(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
		}, common.Get, verificationreasons.Expired},
		{"revoked", func(t *testing.T) string { return token(t, jwt.MapClaims{"jti": "revoked-1"}) }, common.Get, verificationreasons.Revoked},
		{"post without purchase", func(t *testing.T) string {
			return token(t, jwt.MapClaims{"scope": "read"})
		}, common.Post, verificationreasons.InsufficientScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := newVerifier(t, &countingChecker{revoked: map[string]bool{"revoked-1": true}})

			result := verifier.Verify(context.Background(), tt.token(t), tt.method)
			assert.False(t, result.Valid())
			assert.Nil(t, result.Claims)
			assert.Equal(t, tt.want, result.Reason)
		})
	}
}

func TestVerifyPostWithPurchaseSucceeds(t *testing.T) {
	verifier := newVerifier(t, &countingChecker{})

	assert.True(t, verifier.Verify(context.Background(), token(t, nil), common.Post).Valid())
}

func TestVerifySkipsRevocationLookupForStructuralFailures(t *testing.T) {
	checker := &countingChecker{}
	verifier := newVerifier(t, checker)

	verifier.Verify(context.Background(), "not-a-token", common.Get)
	verifier.Verify(context.Background(), token(t, nil, "sub"), common.Get)
	verifier.Verify(context.Background(), token(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()}), common.Get)

	assert.Zero(t, checker.calls)

	verifier.Verify(context.Background(), token(t, nil), common.Get)
	assert.Equal(t, 1, checker.calls)
}

func TestVerifyExpiredRegardlessOfRevocation(t *testing.T) {
	verifier := newVerifier(t, &countingChecker{revoked: map[string]bool{"t1": true}})

	result := verifier.Verify(context.Background(), token(t, jwt.MapClaims{"exp": time.Now().Add(-time.Second).Unix()}), common.Get)
	assert.Equal(t, verificationreasons.Expired, result.Reason)
}

func TestVerifyUsesInjectedClock(t *testing.T) {
	verifier := newVerifier(t, &countingChecker{})
	verifier.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	assert.Equal(t, verificationreasons.Expired, verifier.Verify(context.Background(), token(t, nil), common.Get).Reason)
}

func TestVerifyIgnoresAgentIdentityBeyondToken(t *testing.T) {
	checker := &countingChecker{}
	verifier := newVerifier(t, checker)

	result := verifier.Verify(context.Background(), token(t, jwt.MapClaims{"agent_id": "agt_other"}), common.Get)
	require.True(t, result.Valid())
	assert.Equal(t, "agt_other", result.Claims.AgentID)
	assert.Equal(t, 1, checker.calls)
}

func TestVerifyFailsClosedWithUnreachableStore(t *testing.T) {
	checker := revocation.NewChecker(unreachableStore{}, 10*time.Millisecond, zaptest.NewLogger(t))
	verifier := newVerifier(t, checker)

	assert.Equal(t, verificationreasons.Revoked, verifier.Verify(context.Background(), token(t, nil), common.Get).Reason)
}

type unreachableStore struct{}

func (unreachableStore) Exists(ctx context.Context, _ string) (bool, error) {
	<-ctx.Done()

	return false, ctx.Err()
}
