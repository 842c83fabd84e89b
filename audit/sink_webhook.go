package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
)

// WebhookSink posts each audit record as JSON to an external endpoint.
type WebhookSink struct {
	url        string
	httpClient *http.Client
}

func NewWebhookSink(url string, httpClient *http.Client) *WebhookSink {
	return &WebhookSink{
		url:        url,
		httpClient: httpClient,
	}
}

// NewSPIFFEHTTPClient returns a client that presents the workload's X.509
// SVID and only talks to a server holding serverID. The returned closer
// releases the Workload API source.
func NewSPIFFEHTTPClient(ctx context.Context, serverID spiffeid.ID) (*http.Client, io.Closer, error) {
	source, err := workloadapi.NewX509Source(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create X509 source: %w", err)
	}

	tlsConfig := tlsconfig.MTLSClientConfig(source, source, tlsconfig.AuthorizeID(serverID))

	return &http.Client{
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	}, source, nil
}

func (s *WebhookSink) Name() string {
	return "webhook"
}

func (s *WebhookSink) Write(ctx context.Context, record AuditRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook request: %w", err)
	}

	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}

	return nil
}
