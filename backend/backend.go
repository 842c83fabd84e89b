package backend

import (
	"context"
	"net/http"

	"github.com/tokenetes/delegation-gateway/identity"
)

// Response is a fully buffered backend reply the dispatcher can decorate
// before it is written to the client.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Backend performs the business operation for an authorized principal.
// Errors mean the operation could not be carried out at all.
type Backend interface {
	Process(ctx context.Context, id identity.Context, r *http.Request) (*Response, error)
}

type BackendFunc func(ctx context.Context, id identity.Context, r *http.Request) (*Response, error)

func (f BackendFunc) Process(ctx context.Context, id identity.Context, r *http.Request) (*Response, error) {
	return f(ctx, id, r)
}
