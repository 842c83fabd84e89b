package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tokenetes/delegation-gateway/common"
	"github.com/tokenetes/delegation-gateway/delegationverifier"
	"github.com/tokenetes/delegation-gateway/verificationreasons"
	"go.uber.org/zap/zaptest"
)

type rejectAll struct{}

func (rejectAll) Verify(context.Context, string, common.HttpMethod) delegationverifier.VerificationResult {
	return delegationverifier.Rejected(verificationreasons.MalformedToken)
}

func TestRouterRoutes(t *testing.T) {
	streamed := false

	api := &API{
		ApiPort:            9071,
		DelegationVerifier: rejectAll{},
		AuditSinks:         []string{"log"},
		AuditStream: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			streamed = true
		}),
		Logger: zaptest.NewLogger(t),
	}

	router := api.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verify-delegation", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/revocations", strings.NewReader(`{"jti":"t1","expiresAt":"2030-01-02T15:04:05Z"}`)))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/stream", nil))
	assert.True(t, streamed)

	assert.Equal(t, "0.0.0.0:9071", api.Server().Addr)
}
