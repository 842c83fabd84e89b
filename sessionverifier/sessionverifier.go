package sessionverifier

import (
	"context"
	"net/http"

	"github.com/tokenetes/delegation-gateway/common"
	"github.com/tokenetes/delegation-gateway/verificationreasons"
	"go.uber.org/zap"
)

// Store resolves a session id to the principal that owns it.
type Store interface {
	Get(ctx context.Context, sessionID string) (principalID string, found bool, err error)
}

type SessionResult struct {
	PrincipalID string
	Reason      verificationreasons.Reason
}

func (r SessionResult) Valid() bool {
	return r.PrincipalID != ""
}

type SessionVerifier struct {
	store  Store
	logger *zap.Logger
}

func NewSessionVerifier(store Store, logger *zap.Logger) *SessionVerifier {
	return &SessionVerifier{
		store:  store,
		logger: logger,
	}
}

// Verify resolves the session cookie carried in cookieHeader.
func (sv *SessionVerifier) Verify(ctx context.Context, cookieHeader string) SessionResult {
	sessionID := ExtractSessionID(cookieHeader)
	if sessionID == "" {
		return SessionResult{Reason: verificationreasons.NoSession}
	}

	principalID, found, err := sv.store.Get(ctx, sessionID)
	if err != nil {
		sv.logger.Error("Session lookup failed", zap.Error(err))

		return SessionResult{Reason: verificationreasons.InvalidSession}
	}

	if !found || principalID == "" {
		return SessionResult{Reason: verificationreasons.InvalidSession}
	}

	return SessionResult{PrincipalID: principalID}
}

// ExtractSessionID returns the value of the session cookie in a Cookie
// header, or "" when absent.
func ExtractSessionID(cookieHeader string) string {
	if cookieHeader == "" {
		return ""
	}

	header := http.Header{}
	header.Add("Cookie", cookieHeader)

	cookie, err := (&http.Request{Header: header}).Cookie(common.SessionCookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}
