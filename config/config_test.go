package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAppConfigDefaults(t *testing.T) {
	t.Setenv("DELEGATION_HMAC_SECRET", "s3cret")
	t.Setenv("UPSTREAM_URL", "http://orders.internal:8080")

	cfg := GetAppConfig()

	assert.Equal(t, 9070, cfg.GatewayPort)
	assert.Equal(t, 9071, cfg.AdminPort)
	assert.Equal(t, RevocationRedis, cfg.RevocationBackend)
	assert.Equal(t, 250*time.Millisecond, cfg.RevocationTimeout)
	assert.Equal(t, []string{"HS256", "RS256", "ES256"}, cfg.DelegationAllowedAlgs)
	assert.Equal(t, SessionRedis, cfg.SessionBackend)
	assert.Equal(t, BackendProxy, cfg.BackendMode)
	assert.True(t, cfg.AuditLogSink)
	assert.Nil(t, cfg.AuditWebhookSpiffeID)
}

func TestGetAppConfigOverrides(t *testing.T) {
	t.Setenv("DELEGATION_JWKS_URL", "https://issuer.example.com/.well-known/jwks.json")
	t.Setenv("DELEGATION_ALLOWED_ALGS", "RS256, ES256")
	t.Setenv("REVOCATION_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://gateway@db/gateway")
	t.Setenv("REVOCATION_TIMEOUT_MS", "100")
	t.Setenv("BACKEND_MODE", "customer")
	t.Setenv("AUDIT_WEBHOOK_SPIFFE_ID", "spiffe://example.org/audit-collector")
	t.Setenv("AUDIT_LOG_SINK", "false")
	t.Setenv("TRUST_BUNDLE_REFRESH", "30s")

	cfg := GetAppConfig()

	assert.Equal(t, []string{"RS256", "ES256"}, cfg.DelegationAllowedAlgs)
	assert.Equal(t, RevocationPostgres, cfg.RevocationBackend)
	assert.Equal(t, 100*time.Millisecond, cfg.RevocationTimeout)
	assert.Equal(t, BackendCustomer, cfg.BackendMode)
	assert.False(t, cfg.AuditLogSink)
	assert.Equal(t, 30*time.Second, cfg.TrustBundleRefresh)

	require.NotNil(t, cfg.AuditWebhookSpiffeID)
	assert.Equal(t, "spiffe://example.org/audit-collector", cfg.AuditWebhookSpiffeID.String())
}

func TestGetAppConfigPanicsWithoutVerificationKey(t *testing.T) {
	t.Setenv("DELEGATION_HMAC_SECRET", "")
	t.Setenv("DELEGATION_JWKS_URL", "")
	t.Setenv("UPSTREAM_URL", "http://orders.internal:8080")

	assert.Panics(t, func() { GetAppConfig() })
}

func TestGetAppConfigPanicsOnInvalidValues(t *testing.T) {
	t.Setenv("DELEGATION_HMAC_SECRET", "s3cret")
	t.Setenv("BACKEND_MODE", "customer")

	t.Setenv("REVOCATION_BACKEND", "etcd")
	assert.Panics(t, func() { GetAppConfig() })

	t.Setenv("REVOCATION_BACKEND", "memory")
	t.Setenv("GATEWAY_PORT", "eighty")
	assert.Panics(t, func() { GetAppConfig() })

	t.Setenv("GATEWAY_PORT", "")
	t.Setenv("AUDIT_WEBHOOK_SPIFFE_ID", "https://not-spiffe")
	assert.Panics(t, func() { GetAppConfig() })
}

func TestGetAppConfigPanicsOnNonPositiveTrustBundleRefresh(t *testing.T) {
	t.Setenv("DELEGATION_JWKS_URL", "https://issuer.example.com/.well-known/jwks.json")
	t.Setenv("UPSTREAM_URL", "http://orders.internal:8080")

	for _, refresh := range []string{"0s", "-1m"} {
		t.Setenv("TRUST_BUNDLE_REFRESH", refresh)
		assert.Panics(t, func() { GetAppConfig() }, refresh)
	}

	t.Setenv("TRUST_BUNDLE_REFRESH", "1m")
	assert.NotPanics(t, func() { GetAppConfig() })
}
