package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tokenetes/delegation-gateway/common"
	"github.com/tokenetes/delegation-gateway/gatewayerrors"
	"github.com/tokenetes/delegation-gateway/identity"
)

const maxUpstreamBodyBytes = 10 << 20

// Credentials consumed by the gateway are never forwarded upstream, and
// identity headers are always set by the gateway itself.
var strippedRequestHeaders = []string{
	common.AgentIDHeader,
	common.DelegationTokenHeader,
	common.UserIDHeader,
	common.PrincipalIDHeader,
	common.AgentMediatedHeader,
	"Cookie",
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ProxyBackend forwards authorized requests to an upstream service and
// passes the identity context as request headers.
type ProxyBackend struct {
	upstream   *url.URL
	httpClient *http.Client
}

func NewProxyBackend(upstream string, httpClient *http.Client) (*ProxyBackend, error) {
	upstreamURL, err := url.Parse(upstream)
	if err != nil {
		return nil, err
	}

	if upstreamURL.Scheme == "" || upstreamURL.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be absolute", upstream)
	}

	return &ProxyBackend{
		upstream:   upstreamURL,
		httpClient: httpClient,
	}, nil
}

func (p *ProxyBackend) Process(ctx context.Context, id identity.Context, r *http.Request) (*Response, error) {
	target := *p.upstream
	target.Path = p.upstream.Path + r.URL.Path
	target.RawPath = p.upstream.EscapedPath() + r.URL.EscapedPath()
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}

	req.Header = r.Header.Clone()
	for _, header := range strippedRequestHeaders {
		req.Header.Del(header)
	}

	req.ContentLength = r.ContentLength
	req.Header.Add("X-Forwarded-Host", r.Host)
	req.Header.Set(common.PrincipalIDHeader, id.PrincipalID)
	req.Header.Set(common.AgentMediatedHeader, strconv.FormatBool(id.AgentMediated))

	if id.AgentMediated {
		req.Header.Set(common.AgentIDHeader, id.AgentID)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gatewayerrors.ErrBackendUnavailable, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read upstream response: %w", gatewayerrors.ErrBackendUnavailable, err)
	}

	if len(body) > maxUpstreamBodyBytes {
		return nil, fmt.Errorf("%w: upstream response exceeds %d bytes", gatewayerrors.ErrBackendUnavailable, maxUpstreamBodyBytes)
	}

	header := resp.Header.Clone()
	header.Del("Content-Length")
	header.Del("Connection")
	header.Del("Transfer-Encoding")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       body,
	}, nil
}
