package service

import "strings"

// defaultOpenMethods are the non-read methods permitted when no explicit
// allowlist is configured. Whether this default should stay permissive for
// public deployments is an operator decision; see RPC_METHOD_ALLOWLIST.
var defaultOpenMethods = map[string]struct{}{
	"simulateTransaction": {},
	"sendTransaction":     {},
	"requestAirdrop":      {},
}

// MethodPolicy decides, per JSON-RPC method name, whether the gateway
// forwards the call. The blocklist always wins. With an explicit allowlist
// configured, membership is required; otherwise read methods (get*) plus
// defaultOpenMethods are allowed.
type MethodPolicy struct {
	allow    map[string]struct{}
	block    map[string]struct{}
	explicit bool
}

// NewMethodPolicy builds a policy from the configured lists. A non-empty
// allowlist switches the policy into strict allowlist mode.
func NewMethodPolicy(allowlist, blocklist []string) *MethodPolicy {
	p := &MethodPolicy{
		allow:    make(map[string]struct{}, len(allowlist)),
		block:    make(map[string]struct{}, len(blocklist)),
		explicit: len(allowlist) > 0,
	}
	for _, m := range allowlist {
		p.allow[m] = struct{}{}
	}
	for _, m := range blocklist {
		p.block[m] = struct{}{}
	}
	return p
}

// IsAllowed reports whether the gateway forwards the method.
func (p *MethodPolicy) IsAllowed(method string) bool {
	if _, blocked := p.block[method]; blocked {
		return false
	}
	if p.explicit {
		_, ok := p.allow[method]
		return ok
	}
	if strings.HasPrefix(method, "get") {
		return true
	}
	_, ok := defaultOpenMethods[method]
	return ok
}
