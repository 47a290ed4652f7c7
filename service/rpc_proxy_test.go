package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flashorca/gateway/core"
	"github.com/flashorca/gateway/ports"
)

// fakeUpstream scripts per-URL responses and records call order.
type fakeUpstream struct {
	mu       sync.Mutex
	calls    []string
	handlers map[string]func() (*ports.UpstreamResponse, error)
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{handlers: make(map[string]func() (*ports.UpstreamResponse, error))}
}

func (f *fakeUpstream) respond(url string, status int, body string) {
	f.handlers[url] = func() (*ports.UpstreamResponse, error) {
		return &ports.UpstreamResponse{StatusCode: status, Body: []byte(body)}, nil
	}
}

func (f *fakeUpstream) respondAfter(url string, delay time.Duration, status int, body string) {
	f.handlers[url] = func() (*ports.UpstreamResponse, error) {
		time.Sleep(delay)
		return &ports.UpstreamResponse{StatusCode: status, Body: []byte(body)}, nil
	}
}

func (f *fakeUpstream) fail(url string, err error) {
	f.handlers[url] = func() (*ports.UpstreamResponse, error) {
		return nil, err
	}
}

func (f *fakeUpstream) Post(ctx context.Context, url string, payload json.RawMessage) (*ports.UpstreamResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	handler, ok := f.handlers[url]
	if !ok {
		return nil, fmt.Errorf("%w: no handler for %s", core.ErrUpstream, url)
	}
	return handler()
}

func (f *fakeUpstream) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newProxy(client ports.UpstreamClient, upstreams ...string) *RPCProxy {
	policy := NewMethodPolicy(nil, []string{"sendBlocked"})
	return NewRPCProxy(upstreams, policy, client, zap.NewNop())
}

func errorEnvelope(t *testing.T, payload any) core.RPCErrorResponse {
	t.Helper()
	env, ok := payload.(core.RPCErrorResponse)
	require.True(t, ok, "expected error envelope, got %T", payload)
	return env
}

func TestHandleSingleRequestPassthrough(t *testing.T) {
	client := newFakeUpstream()
	client.respond("http://primary", http.StatusOK, `{"jsonrpc":"2.0","result":12345,"id":1}`)
	proxy := newProxy(client, "http://primary", "http://secondary")

	status, payload := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"getSlot","id":1}`))

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":12345,"id":1}`, string(payload.(json.RawMessage)))
	// Default strategy: exactly one call, primary only.
	assert.Equal(t, []string{"http://primary"}, client.calls)
}

func TestHandleUpstreamStatusPassthrough(t *testing.T) {
	client := newFakeUpstream()
	client.respond("http://primary", http.StatusTooManyRequests, `{"jsonrpc":"2.0","error":{"code":429,"message":"rate limited"},"id":7}`)
	proxy := newProxy(client, "http://primary")

	status, _ := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"getSlot","id":7}`))

	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestHandleParseError(t *testing.T) {
	proxy := newProxy(newFakeUpstream(), "http://primary")

	status, payload := proxy.Handle(context.Background(), []byte(`{"jsonrpc":`))

	assert.Equal(t, http.StatusBadRequest, status)
	env := errorEnvelope(t, payload)
	assert.Equal(t, core.CodeParseError, env.Error.Code)
}

func TestHandleBlockedMethod(t *testing.T) {
	client := newFakeUpstream()
	proxy := newProxy(client, "http://primary")

	status, payload := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"sendBlocked","id":1}`))

	assert.Equal(t, http.StatusForbidden, status)
	env := errorEnvelope(t, payload)
	assert.Equal(t, core.CodeMethodNotAllowed, env.Error.Code)
	assert.Contains(t, env.Error.Message, "sendBlocked")
	assert.Zero(t, client.callCount(), "rejected requests must not reach any upstream")
}

func TestHandleBatchRejectedAsWhole(t *testing.T) {
	client := newFakeUpstream()
	proxy := newProxy(client, "http://primary")

	body := `[{"jsonrpc":"2.0","method":"getSlot","id":1},{"jsonrpc":"2.0","method":"sendBlocked","id":2}]`
	status, _ := proxy.Handle(context.Background(), []byte(body))

	assert.Equal(t, http.StatusForbidden, status)
	assert.Zero(t, client.callCount(), "no partial execution of a rejected batch")
}

func TestHandleBatchNeverFansOut(t *testing.T) {
	client := newFakeUpstream()
	client.respond("http://primary", http.StatusOK, `[{"jsonrpc":"2.0","result":"sig","id":1}]`)
	proxy := newProxy(client, "http://primary", "http://secondary")

	body := `[{"jsonrpc":"2.0","method":"sendTransaction","params":["tx"],"id":1}]`
	status, _ := proxy.Handle(context.Background(), []byte(body))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"http://primary"}, client.calls)
}

func TestHandleUpstreamTimeout(t *testing.T) {
	client := newFakeUpstream()
	client.fail("http://primary", fmt.Errorf("%w: dial tcp: i/o timeout", core.ErrUpstreamTimeout))
	proxy := newProxy(client, "http://primary")

	status, payload := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"getSlot","id":9}`))

	assert.Equal(t, http.StatusGatewayTimeout, status)
	env := errorEnvelope(t, payload)
	assert.Equal(t, core.CodeUpstreamTimeout, env.Error.Code)
	assert.JSONEq(t, `9`, string(env.ID), "original id must be echoed")
}

func TestHandleUpstreamTransportError(t *testing.T) {
	client := newFakeUpstream()
	client.fail("http://primary", fmt.Errorf("%w: connection refused", core.ErrUpstream))
	proxy := newProxy(client, "http://primary")

	status, payload := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"getSlot","id":3}`))

	assert.Equal(t, http.StatusBadGateway, status)
	env := errorEnvelope(t, payload)
	assert.Equal(t, "Upstream error", env.Error.Message)
}

func TestHandleInvalidUpstreamBody(t *testing.T) {
	client := newFakeUpstream()
	client.respond("http://primary", http.StatusOK, "<html>not json</html>")
	proxy := newProxy(client, "http://primary")

	status, payload := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"getSlot","id":4}`))

	assert.Equal(t, http.StatusBadGateway, status)
	env := errorEnvelope(t, payload)
	assert.Equal(t, "Invalid JSON from upstream", env.Error.Message)
	assert.JSONEq(t, `4`, string(env.ID))
}

func TestFanoutRaceFirstOKWins(t *testing.T) {
	client := newFakeUpstream()
	client.respondAfter("http://a", 50*time.Millisecond, http.StatusOK, `{"jsonrpc":"2.0","result":"from-a","id":1}`)
	client.respondAfter("http://b", 10*time.Millisecond, http.StatusOK, `{"jsonrpc":"2.0","result":"from-b","id":1}`)
	proxy := newProxy(client, "http://a", "http://b")

	status, payload := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"sendTransaction","params":["tx"],"id":1}`))

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":"from-b","id":1}`, string(payload.(json.RawMessage)))
}

func TestFanoutRaceSkipsFailedBranches(t *testing.T) {
	client := newFakeUpstream()
	client.respondAfter("http://a", 10*time.Millisecond, http.StatusServiceUnavailable, `{"error":"down"}`)
	client.respondAfter("http://b", 30*time.Millisecond, http.StatusOK, `{"jsonrpc":"2.0","result":"from-b","id":1}`)
	proxy := newProxy(client, "http://a", "http://b")

	status, payload := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"requestAirdrop","id":1}`))

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":"from-b","id":1}`, string(payload.(json.RawMessage)))
}

func TestFanoutRaceAllFail(t *testing.T) {
	client := newFakeUpstream()
	client.fail("http://a", fmt.Errorf("%w: refused", core.ErrUpstream))
	client.respond("http://b", http.StatusInternalServerError, `oops`)
	proxy := newProxy(client, "http://a", "http://b")

	status, payload := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"sendTransaction","id":42}`))

	assert.Equal(t, http.StatusBadGateway, status)
	env := errorEnvelope(t, payload)
	assert.Equal(t, "All upstreams failed", env.Error.Message)
	assert.JSONEq(t, `42`, string(env.ID))
}

func TestFanoutRaceRequiresMultipleUpstreams(t *testing.T) {
	client := newFakeUpstream()
	client.respond("http://primary", http.StatusOK, `{"jsonrpc":"2.0","result":"sig","id":1}`)
	proxy := newProxy(client, "http://primary")

	status, _ := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"sendTransaction","id":1}`))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"http://primary"}, client.calls)
}

func TestFanoutMergeFirstNonNullPerIndex(t *testing.T) {
	client := newFakeUpstream()
	client.respond("http://a", http.StatusOK,
		`{"jsonrpc":"2.0","result":{"context":{"slot":100},"value":[null,"ok2",null]},"id":1}`)
	client.respond("http://b", http.StatusOK,
		`{"jsonrpc":"2.0","result":{"context":{"slot":250},"value":["ok1",null,null]},"id":1}`)
	proxy := newProxy(client, "http://a", "http://b")

	status, payload := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"getSignatureStatuses","params":[["s1","s2","s3"]],"id":1}`))

	assert.Equal(t, http.StatusOK, status)
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"jsonrpc":"2.0","result":{"context":{"slot":250},"value":["ok1","ok2",null]},"id":1}`,
		string(data))
}

func TestFanoutMergeFallsBackToWellFormedResponse(t *testing.T) {
	client := newFakeUpstream()
	client.fail("http://a", fmt.Errorf("%w: refused", core.ErrUpstream))
	client.respond("http://b", http.StatusOK,
		`{"jsonrpc":"2.0","result":{"context":{"slot":10},"value":[null]},"id":5}`)
	proxy := newProxy(client, "http://a", "http://b")

	status, payload := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"getSignatureStatuses","id":5}`))

	assert.Equal(t, http.StatusOK, status)
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"jsonrpc":"2.0","result":{"context":{"slot":10},"value":[null]},"id":5}`,
		string(data))
}

func TestFanoutMergeSynthesizesEmptyResult(t *testing.T) {
	client := newFakeUpstream()
	client.fail("http://a", fmt.Errorf("%w: refused", core.ErrUpstream))
	client.respond("http://b", http.StatusOK, `not json at all`)
	proxy := newProxy(client, "http://a", "http://b")

	status, payload := proxy.Handle(context.Background(), []byte(`{"jsonrpc":"2.0","method":"getSignatureStatuses","id":6}`))

	assert.Equal(t, http.StatusOK, status)
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"jsonrpc":"2.0","result":{"context":{},"value":[]},"id":6}`,
		string(data))
}
