package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/flashorca/gateway/core"
	"github.com/flashorca/gateway/ports"
)

// raceMethods are write paths fanned out to every upstream so at least one
// leader sees the transaction quickly. Racing only pays off with more than
// one upstream configured.
var raceMethods = map[string]struct{}{
	"sendTransaction": {},
	"requestAirdrop":  {},
}

// mergeMethod is fanned out to all upstreams and merged per index: a
// signature may have landed on one node's view of the ledger before
// another's, and merging avoids transient null spans.
const mergeMethod = "getSignatureStatuses"

// RPCProxy receives JSON-RPC bodies, applies the method policy, and
// dispatches them to the upstream set. It holds no per-request state; the
// upstream list and policy are fixed at construction.
type RPCProxy struct {
	upstreams []string
	policy    *MethodPolicy
	client    ports.UpstreamClient
	log       *zap.Logger
}

// NewRPCProxy creates a new dispatcher. upstreams must be non-empty with
// the primary first.
func NewRPCProxy(upstreams []string, policy *MethodPolicy, client ports.UpstreamClient, log *zap.Logger) *RPCProxy {
	return &RPCProxy{
		upstreams: upstreams,
		policy:    policy,
		client:    client,
		log:       log,
	}
}

// Handle processes one JSON-RPC request body (single object or batch) and
// returns the HTTP status plus the response payload. The payload is either
// a json.RawMessage passed through from an upstream or a synthesized
// envelope.
func (p *RPCProxy) Handle(ctx context.Context, body []byte) (int, any) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return http.StatusBadRequest, core.NewRPCError(core.CodeParseError, "Parse error", nil)
	}

	if trimmed[0] == '[' {
		var batch []core.RPCRequest
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return http.StatusBadRequest, core.NewRPCError(core.CodeParseError, "Parse error", nil)
		}
		for _, req := range batch {
			if status, resp, rejected := p.checkPolicy(req.Method); rejected {
				return status, resp
			}
		}
		// Batches always go to the primary, verbatim, once.
		return p.forwardPrimary(ctx, trimmed, nil)
	}

	var req core.RPCRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return http.StatusBadRequest, core.NewRPCError(core.CodeParseError, "Parse error", nil)
	}
	if status, resp, rejected := p.checkPolicy(req.Method); rejected {
		return status, resp
	}

	if len(p.upstreams) > 1 {
		if _, ok := raceMethods[req.Method]; ok {
			return p.fanoutRace(ctx, trimmed, req.ID)
		}
		if req.Method == mergeMethod {
			return p.fanoutMerge(ctx, trimmed, req.ID)
		}
	}

	return p.forwardPrimary(ctx, trimmed, req.ID)
}

func (p *RPCProxy) checkPolicy(method string) (int, any, bool) {
	if method == "" || p.policy.IsAllowed(method) {
		return 0, nil, false
	}
	p.log.Warn("blocked method", zap.String("method", method))
	message := fmt.Sprintf("Method %s not allowed by proxy policy", method)
	return http.StatusForbidden, core.NewRPCError(core.CodeMethodNotAllowed, message, nil), true
}

// forwardPrimary sends the payload to the primary upstream exactly once and
// passes the response through with its original status code.
func (p *RPCProxy) forwardPrimary(ctx context.Context, payload json.RawMessage, id json.RawMessage) (int, any) {
	resp, err := p.client.Post(ctx, p.upstreams[0], payload)
	if err != nil {
		p.log.Error("upstream call failed", zap.String("url", p.upstreams[0]), zap.Error(err))
		if errors.Is(err, core.ErrUpstreamTimeout) {
			return http.StatusGatewayTimeout, core.NewRPCError(core.CodeUpstreamTimeout, "Upstream timeout", id)
		}
		return http.StatusBadGateway, core.NewRPCError(core.CodeUpstreamError, "Upstream error", id)
	}

	raw, err := resp.JSON()
	if err != nil {
		return http.StatusBadGateway, core.NewRPCError(core.CodeUpstreamError, "Invalid JSON from upstream", id)
	}
	return resp.StatusCode, raw
}

type fanoutResult struct {
	resp *ports.UpstreamResponse
	err  error
}

// fanoutRace issues the payload to every upstream concurrently and returns
// the first OK response that arrives. Later completions drain into the
// buffered channel, so nothing leaks into a later request.
func (p *RPCProxy) fanoutRace(ctx context.Context, payload json.RawMessage, id json.RawMessage) (int, any) {
	results := make(chan fanoutResult, len(p.upstreams))
	for _, url := range p.upstreams {
		go func(url string) {
			resp, err := p.client.Post(ctx, url, payload)
			if err != nil {
				p.log.Warn("fanout branch failed", zap.String("url", url), zap.Error(err))
			}
			results <- fanoutResult{resp: resp, err: err}
		}(url)
	}

	for range p.upstreams {
		r := <-results
		if r.err != nil || !r.resp.OK() {
			continue
		}
		raw, err := r.resp.JSON()
		if err != nil {
			continue
		}
		return r.resp.StatusCode, raw
	}

	return http.StatusBadGateway, core.NewRPCError(core.CodeUpstreamError, "All upstreams failed", id)
}

// fanoutMerge issues the payload to every upstream, waits for all of them,
// and merges signature statuses: first non-null status per index in
// upstream order, context from the highest reported slot.
func (p *RPCProxy) fanoutMerge(ctx context.Context, payload json.RawMessage, id json.RawMessage) (int, any) {
	responses := make([]*ports.UpstreamResponse, len(p.upstreams))
	var wg sync.WaitGroup
	for i, url := range p.upstreams {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			resp, err := p.client.Post(ctx, url, payload)
			if err != nil {
				p.log.Warn("fanout branch failed", zap.String("url", url), zap.Error(err))
				return
			}
			responses[i] = resp
		}(i, url)
	}
	wg.Wait()

	return http.StatusOK, mergeSignatureStatuses(responses, id)
}

// statusEnvelope is the success envelope synthesized by the merge strategy.
type statusEnvelope struct {
	JSONRPC string                     `json:"jsonrpc"`
	Result  core.SignatureStatusResult `json:"result"`
	ID      json.RawMessage            `json:"id"`
}

func mergeSignatureStatuses(responses []*ports.UpstreamResponse, id json.RawMessage) any {
	jsonrpc := "2.0"
	var merged []json.RawMessage
	var bestContext json.RawMessage
	var bestSlot uint64

	for _, r := range responses {
		raw, err := r.JSON()
		if err != nil {
			continue
		}
		var env struct {
			JSONRPC string                      `json:"jsonrpc"`
			Result  *core.SignatureStatusResult `json:"result"`
		}
		if err := json.Unmarshal(raw, &env); err != nil || env.Result == nil || env.Result.Value == nil {
			continue
		}
		if env.JSONRPC != "" {
			jsonrpc = env.JSONRPC
		}

		if merged == nil {
			merged = make([]json.RawMessage, len(env.Result.Value))
		}
		for i := 0; i < len(env.Result.Value) && i < len(merged); i++ {
			if isNullRaw(merged[i]) && !isNullRaw(env.Result.Value[i]) {
				merged[i] = env.Result.Value[i]
			}
		}

		if env.Result.Context != nil {
			if slot := core.ContextSlot(env.Result.Context); bestContext == nil || slot > bestSlot {
				bestContext = env.Result.Context
				bestSlot = slot
			}
		}
	}

	if bestContext == nil {
		bestContext = json.RawMessage(`{}`)
	}

	if merged == nil {
		// No upstream produced a usable shape: fall back to any response
		// that at least parses with a result.value, else synthesize an
		// empty result bound to the original request id.
		for _, r := range responses {
			raw, err := r.JSON()
			if err != nil {
				continue
			}
			var env struct {
				Result *core.SignatureStatusResult `json:"result"`
			}
			if err := json.Unmarshal(raw, &env); err == nil && env.Result != nil {
				return raw
			}
		}
		merged = []json.RawMessage{}
	}

	return statusEnvelope{
		JSONRPC: jsonrpc,
		Result: core.SignatureStatusResult{
			Context: bestContext,
			Value:   merged,
		},
		ID: id,
	}
}

func isNullRaw(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
