package ports

import (
	"context"
	"encoding/json"

	"github.com/flashorca/gateway/core"
)

// UpstreamResponse is the raw outcome of one JSON-RPC upstream call.
type UpstreamResponse struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the upstream answered with a 2xx status.
func (r *UpstreamResponse) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON parses the response body, reporting an error for non-JSON payloads.
func (r *UpstreamResponse) JSON() (json.RawMessage, error) {
	if r == nil || len(r.Body) == 0 || !json.Valid(r.Body) {
		return nil, core.ErrInvalidUpstreamResponse
	}
	return json.RawMessage(r.Body), nil
}

// UpstreamClient posts a JSON-RPC payload to a single upstream endpoint.
// Transport failures are returned as wrapped core sentinel errors so the
// dispatcher can map them to response codes.
type UpstreamClient interface {
	Post(ctx context.Context, url string, payload json.RawMessage) (*UpstreamResponse, error)
}
