// Package upstream implements the UpstreamClient port over plain HTTP.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/flashorca/gateway/core"
	"github.com/flashorca/gateway/ports"
)

const (
	connectTimeout = 5 * time.Second
	readTimeout    = 30 * time.Second
)

// HTTPClient posts JSON-RPC payloads to upstream nodes. Timeouts are
// per-call: a slow upstream stalls only its own fanout branch.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates an upstream client with bounded connect and read
// deadlines.
func NewHTTPClient() *HTTPClient {
	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		ResponseHeaderTimeout: readTimeout,
		MaxIdleConnsPerHost:   8,
	}
	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   connectTimeout + readTimeout,
		},
	}
}

var _ ports.UpstreamClient = (*HTTPClient)(nil)

// Post sends one JSON-RPC payload and returns the raw upstream response.
// Timeouts map to ErrUpstreamTimeout, everything else to ErrUpstream.
func (c *HTTPClient) Post(ctx context.Context, url string, payload json.RawMessage) (*ports.UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", core.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", core.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrUpstream, err)
	}

	return &ports.UpstreamResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
