package core

import "encoding/json"

// RPCRequest is a single JSON-RPC 2.0 request envelope. Params and ID are
// kept raw: the gateway forwards them verbatim and never interprets them.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RPCErrorResponse is an error envelope synthesized by the gateway itself.
// A nil ID marshals as JSON null, which is what the protocol requires when
// the request id is unknown.
type RPCErrorResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Error   RPCError        `json:"error"`
	ID      json.RawMessage `json:"id"`
}

// NewRPCError builds an error envelope echoing the original request id.
func NewRPCError(code int, message string, id json.RawMessage) RPCErrorResponse {
	return RPCErrorResponse{
		JSONRPC: "2.0",
		Error:   RPCError{Code: code, Message: message},
		ID:      id,
	}
}

// JSON-RPC error codes used by the gateway.
const (
	CodeParseError       = -32700
	CodeMethodNotAllowed = -32601
	CodeUpstreamError    = 502
	CodeUpstreamTimeout  = 504
)

// SignatureStatusResult is the result member of a getSignatureStatuses
// response. Context and status entries stay raw so the merge strategy can
// forward upstream content byte for byte; only the context slot is decoded
// for comparison.
type SignatureStatusResult struct {
	Context json.RawMessage   `json:"context,omitempty"`
	Value   []json.RawMessage `json:"value"`
}

// ContextSlot extracts the slot number from a raw context object. Missing
// or malformed contexts report slot 0.
func ContextSlot(raw json.RawMessage) uint64 {
	var ctx struct {
		Slot uint64 `json:"slot"`
	}
	if err := json.Unmarshal(raw, &ctx); err != nil {
		return 0
	}
	return ctx.Slot
}
