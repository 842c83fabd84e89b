package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
)

type RevocationBackend string

const (
	RevocationRedis    RevocationBackend = "redis"
	RevocationPostgres RevocationBackend = "postgres"
	RevocationMemory   RevocationBackend = "memory"
)

type SessionBackend string

const (
	SessionRedis  SessionBackend = "redis"
	SessionMemory SessionBackend = "memory"
)

type BackendMode string

const (
	BackendProxy    BackendMode = "proxy"
	BackendCustomer BackendMode = "customer"
)

type Config struct {
	GatewayPort int
	AdminPort   int

	DelegationHMACSecret     string
	DelegationJWKSURL        string
	DelegationAllowedAlgs    []string
	TrustBundleRefresh       time.Duration
	RevocationBackend        RevocationBackend
	RevocationTimeout        time.Duration
	RevocationKeyPrefix      string
	SessionBackend           SessionBackend
	SessionKeyPrefix         string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	DatabaseURL              string
	BackendMode              BackendMode
	UpstreamURL              string
	AuditS3Bucket            string
	AuditS3Region            string
	AuditS3Endpoint          string
	AuditWebhookURL          string
	AuditWebhookSpiffeID     *spiffeid.ID
	OtelExporterOTLPEndpoint string
	AuditLogSink             bool
	AuditStreamSink          bool
	AuditSinkTimeout         time.Duration
}

func GetAppConfig() *Config {
	cfg := &Config{
		GatewayPort: getEnvAsIntOrDefault("GATEWAY_PORT", 9070),
		AdminPort:   getEnvAsIntOrDefault("ADMIN_PORT", 9071),

		DelegationHMACSecret:     getOptionalEnv("DELEGATION_HMAC_SECRET"),
		DelegationJWKSURL:        getOptionalEnv("DELEGATION_JWKS_URL"),
		DelegationAllowedAlgs:    getEnvAsList("DELEGATION_ALLOWED_ALGS", []string{"HS256", "RS256", "ES256"}),
		TrustBundleRefresh:       getEnvAsDurationOrDefault("TRUST_BUNDLE_REFRESH", 5*time.Minute),
		RevocationBackend:        RevocationBackend(getEnvOrDefault("REVOCATION_BACKEND", string(RevocationRedis))),
		RevocationTimeout:        time.Duration(getEnvAsIntOrDefault("REVOCATION_TIMEOUT_MS", 250)) * time.Millisecond,
		RevocationKeyPrefix:      getEnvOrDefault("REVOCATION_KEY_PREFIX", "revoked:"),
		SessionBackend:           SessionBackend(getEnvOrDefault("SESSION_BACKEND", string(SessionRedis))),
		SessionKeyPrefix:         getEnvOrDefault("SESSION_KEY_PREFIX", "session:"),
		RedisAddr:                getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:            getOptionalEnv("REDIS_PASSWORD"),
		RedisDB:                  getEnvAsIntOrDefault("REDIS_DB", 0),
		DatabaseURL:              getOptionalEnv("DATABASE_URL"),
		BackendMode:              BackendMode(getEnvOrDefault("BACKEND_MODE", string(BackendProxy))),
		UpstreamURL:              getOptionalEnv("UPSTREAM_URL"),
		AuditS3Bucket:            getOptionalEnv("AUDIT_S3_BUCKET"),
		AuditS3Region:            getEnvOrDefault("AUDIT_S3_REGION", "us-east-1"),
		AuditS3Endpoint:          getOptionalEnv("AUDIT_S3_ENDPOINT"),
		AuditWebhookURL:          getOptionalEnv("AUDIT_WEBHOOK_URL"),
		AuditWebhookSpiffeID:     getOptionalEnvAsSpiffeID("AUDIT_WEBHOOK_SPIFFE_ID"),
		OtelExporterOTLPEndpoint: getOptionalEnv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		AuditLogSink:             getEnvAsBoolOrDefault("AUDIT_LOG_SINK", true),
		AuditStreamSink:          getEnvAsBoolOrDefault("AUDIT_STREAM_SINK", true),
		AuditSinkTimeout:         time.Duration(getEnvAsIntOrDefault("AUDIT_SINK_TIMEOUT_MS", 5000)) * time.Millisecond,
	}

	cfg.validate()

	return cfg
}

func (c *Config) validate() {
	if c.DelegationHMACSecret == "" && c.DelegationJWKSURL == "" {
		panic("DELEGATION_HMAC_SECRET or DELEGATION_JWKS_URL environment variable must be set")
	}

	if c.TrustBundleRefresh <= 0 {
		panic(fmt.Sprintf("TRUST_BUNDLE_REFRESH must be greater than zero, got %s", c.TrustBundleRefresh))
	}

	switch c.RevocationBackend {
	case RevocationRedis, RevocationMemory:
	case RevocationPostgres:
		if c.DatabaseURL == "" {
			panic("DATABASE_URL environment variable not set for postgres revocation backend")
		}
	default:
		panic(fmt.Sprintf("unsupported REVOCATION_BACKEND %q", c.RevocationBackend))
	}

	switch c.SessionBackend {
	case SessionRedis, SessionMemory:
	default:
		panic(fmt.Sprintf("unsupported SESSION_BACKEND %q", c.SessionBackend))
	}

	switch c.BackendMode {
	case BackendProxy:
		if c.UpstreamURL == "" {
			panic("UPSTREAM_URL environment variable not set for proxy backend")
		}
	case BackendCustomer:
	default:
		panic(fmt.Sprintf("unsupported BACKEND_MODE %q", c.BackendMode))
	}
}

func getOptionalEnv(key string) string {
	value, _ := os.LookupEnv(key)

	return value
}

func getEnvOrDefault(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	return value
}

func getEnvAsIntOrDefault(key string, fallback int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		panic(fmt.Sprintf("Error converting %s to integer: %v", key, err))
	}

	return valueInt
}

func getEnvAsBoolOrDefault(key string, fallback bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}

	valueBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		panic(fmt.Sprintf("Error converting %s to bool: %v", key, err))
	}

	return valueBool
}

func getEnvAsDurationOrDefault(key string, fallback time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}

	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		panic(fmt.Sprintf("Error converting %s to duration: %v", key, err))
	}

	return valueDuration
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}

	var values []string

	for _, value := range strings.Split(valueStr, ",") {
		if value = strings.TrimSpace(value); value != "" {
			values = append(values, value)
		}
	}

	return values
}

func getOptionalEnvAsSpiffeID(key string) *spiffeid.ID {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return nil
	}

	id, err := spiffeid.FromString(valueStr)
	if err != nil {
		panic(fmt.Sprintf("Error parsing %s as SPIFFE ID: %v", key, err))
	}

	return &id
}
