package trustbundlemanager

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/jwk"
	"github.com/tokenetes/delegation-gateway/gatewayerrors"
	"go.uber.org/zap"
)

const (
	MAX_FETCH_ATTEMPTS            = 5
	FAILED_REFRESH_RETRY_INTERVAL = 5 * time.Second
)

// TrustBundleManager holds the JWKS used to verify asymmetrically signed
// delegation tokens. Lookups never fetch; the bundle is replaced by Fetch
// and by the refresh loop started with Start.
type TrustBundleManager struct {
	keySet          jwk.Set
	jwksURL         string
	httpClient      *http.Client
	refreshInterval time.Duration
	logger          *zap.Logger
	mu              sync.RWMutex
}

func NewTrustBundleManager(jwksURL string, httpClient *http.Client, refreshInterval time.Duration, logger *zap.Logger) *TrustBundleManager {
	return &TrustBundleManager{
		keySet:          jwk.NewSet(),
		jwksURL:         jwksURL,
		httpClient:      httpClient,
		refreshInterval: refreshInterval,
		logger:          logger,
	}
}

// LookupKey returns the raw public key registered under keyID.
func (tm *TrustBundleManager) LookupKey(keyID string) (interface{}, error) {
	tm.mu.RLock()
	key, found := tm.keySet.LookupKeyID(keyID)
	tm.mu.RUnlock()

	if !found {
		return nil, fmt.Errorf("jwk %s: %w", keyID, gatewayerrors.ErrInvalidKeyID)
	}

	var rawKey interface{}
	if err := key.Raw(&rawKey); err != nil {
		return nil, fmt.Errorf("failed to materialize jwk %s: %w", keyID, err)
	}

	return rawKey, nil
}

func (tm *TrustBundleManager) KeyCount() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	return tm.keySet.Len()
}

func (tm *TrustBundleManager) Fetch(ctx context.Context) error {
	set, err := jwk.Fetch(ctx, tm.jwksURL, jwk.WithHTTPClient(tm.httpClient))
	if err != nil {
		return fmt.Errorf("failed to get JWKS: %w", err)
	}

	tm.mu.Lock()
	tm.keySet = set
	tm.mu.Unlock()

	return nil
}

// FetchWithBackoff performs the initial fetch, retrying with randomized
// exponential backoff.
func (tm *TrustBundleManager) FetchWithBackoff(ctx context.Context) error {
	var attempt int

	for {
		err := tm.Fetch(ctx)
		if err == nil {
			return nil
		}

		tm.logger.Error("Trust bundle fetch failed", zap.String("jwks-url", tm.jwksURL), zap.Error(err))

		attempt++

		if attempt >= MAX_FETCH_ATTEMPTS {
			return fmt.Errorf("max trust bundle fetch attempts reached: %w", err)
		}

		backoff := time.Duration(rand.Intn(1<<attempt)) * time.Second

		tm.logger.Info("Retrying trust bundle fetch", zap.Duration("backoff", backoff), zap.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// Start refreshes the bundle every refresh interval until ctx is done.
func (tm *TrustBundleManager) Start(ctx context.Context) {
	go func() {
		interval := tm.refreshInterval

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}

			if err := tm.Fetch(ctx); err != nil {
				tm.logger.Error("Failed to refresh trust bundle", zap.Error(err))

				interval = FAILED_REFRESH_RETRY_INTERVAL

				continue
			}

			tm.logger.Debug("Trust bundle refreshed", zap.Int("keys", tm.KeyCount()))

			interval = tm.refreshInterval
		}
	}()
}
