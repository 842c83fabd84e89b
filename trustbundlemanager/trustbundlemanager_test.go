package trustbundlemanager

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokenetes/delegation-gateway/gatewayerrors"
	"go.uber.org/zap/zaptest"
)

func jwksFor(t *testing.T, keyID string, publicKey *rsa.PublicKey) []byte {
	t.Helper()

	key, err := jwk.New(publicKey)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, keyID))

	set := jwk.NewSet()
	set.Add(key)

	body, err := json.Marshal(set)
	require.NoError(t, err)

	return body
}

func TestFetchAndLookupKey(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	body := jwksFor(t, "signer-1", &privateKey.PublicKey)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer server.Close()

	manager := NewTrustBundleManager(server.URL, server.Client(), time.Minute, zaptest.NewLogger(t))

	_, err = manager.LookupKey("signer-1")
	require.ErrorIs(t, err, gatewayerrors.ErrInvalidKeyID)

	require.NoError(t, manager.Fetch(context.Background()))
	assert.Equal(t, 1, manager.KeyCount())

	rawKey, err := manager.LookupKey("signer-1")
	require.NoError(t, err)

	publicKey, ok := rawKey.(*rsa.PublicKey)
	require.True(t, ok)
	assert.Equal(t, privateKey.PublicKey.N, publicKey.N)

	_, err = manager.LookupKey("signer-2")
	assert.ErrorIs(t, err, gatewayerrors.ErrInvalidKeyID)
}

func TestFetchWithBackoffRecovers(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	body := jwksFor(t, "signer-1", &privateKey.PublicKey)

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)

			return
		}

		w.Write(body)
	}))
	defer server.Close()

	manager := NewTrustBundleManager(server.URL, server.Client(), time.Minute, zaptest.NewLogger(t))

	require.NoError(t, manager.FetchWithBackoff(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, manager.KeyCount())
}

func TestFetchWithBackoffStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	manager := NewTrustBundleManager(server.URL, server.Client(), time.Minute, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Error(t, manager.FetchWithBackoff(ctx))
}
