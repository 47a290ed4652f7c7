// Package config builds the immutable process configuration from
// environment variables. The struct is constructed once at startup and
// passed explicitly into service constructors.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"
)

// Config is the gateway's process-wide configuration.
type Config struct {
	// ListenAddress is the HTTP bind address, e.g. ":8000".
	ListenAddress string

	// Upstreams is the ordered upstream endpoint list, primary first.
	Upstreams []string

	// AllowList, when non-empty, switches the method policy to strict
	// allowlist mode.
	AllowList []string

	// BlockList always overrides the allowlist.
	BlockList []string

	// ChainID is an explicit CAIP-style chain identity override.
	ChainID string

	// Cluster is a cluster-name hint used when ChainID is unset.
	Cluster string

	// PublicOrigin overrides the origin used in sign-in resources.
	PublicOrigin string

	// SessionSecret signs the session cookie and exchanged JWTs.
	SessionSecret string

	// CookieDomain scopes the session cookie when set.
	CookieDomain string

	// RedisURL enables the Redis-backed store and event stream when set.
	RedisURL string

	// Version is reported by the health endpoint.
	Version string
}

// FromEnv reads the environment and returns a validated Config.
func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddress: ":" + envDefault("PORT", "8000"),
		AllowList:     splitList(os.Getenv("RPC_METHOD_ALLOWLIST")),
		BlockList:     splitList(os.Getenv("RPC_METHOD_BLOCKLIST")),
		ChainID:       firstEnv("SIWS_CHAIN_ID", "SOLANA_CHAIN_ID"),
		Cluster:       strings.ToLower(os.Getenv("SOLANA_CLUSTER")),
		PublicOrigin:  strings.TrimRight(firstEnv("FLASHORCA_PUBLIC_ORIGIN", "PUBLIC_ORIGIN", "PUBLIC_BASE_URL"), "/"),
		SessionSecret: envDefault("SESSION_SECRET", "dev-secret"),
		CookieDomain:  os.Getenv("SESSION_COOKIE_DOMAIN"),
		RedisURL:      os.Getenv("REDIS_URL"),
		Version:       firstEnv("GIT_SHA", "VERSION"),
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	primary := firstEnv("RPC_UPSTREAM", "HELIUS_RPC_URL", "PRIVATE_RPC_URL", "RPC_URL")
	if primary == "" {
		primary = rpc.MainNetBeta_RPC
	}
	cfg.Upstreams = splitList(os.Getenv("RPC_UPSTREAMS"))
	if len(cfg.Upstreams) == 0 {
		cfg.Upstreams = []string{primary}
	} else if !contains(cfg.Upstreams, primary) {
		// The primary must always come first for non-fanout strategies.
		cfg.Upstreams = append([]string{primary}, cfg.Upstreams...)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the parts of the config that would otherwise fail at
// request time.
func (cfg Config) Validate() error {
	if len(cfg.Upstreams) == 0 {
		return fmt.Errorf("at least one upstream is required")
	}
	for i, raw := range cfg.Upstreams {
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse upstream[%d]: %w", i, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("upstream[%d] %q: unsupported scheme %q", i, raw, parsed.Scheme)
		}
	}
	if cfg.SessionSecret == "" {
		return fmt.Errorf("session secret is required")
	}
	return nil
}

// SIWSChainID resolves the chain identity advertised in sign-in inputs:
// explicit override, else cluster-name hint, else upstream-URL hint, else
// mainnet.
func (cfg Config) SIWSChainID() string {
	if cfg.ChainID != "" {
		return cfg.ChainID
	}
	if strings.Contains(cfg.Cluster, "devnet") {
		return "solana:devnet"
	}
	if strings.Contains(cfg.Cluster, "testnet") {
		return "solana:testnet"
	}
	hint := strings.ToLower(cfg.Primary())
	if strings.Contains(hint, "devnet") {
		return "solana:devnet"
	}
	if strings.Contains(hint, "testnet") {
		return "solana:testnet"
	}
	return "solana:mainnet"
}

// Primary returns the first configured upstream.
func (cfg Config) Primary() string {
	if len(cfg.Upstreams) == 0 {
		return ""
	}
	return cfg.Upstreams[0]
}

// IsDevnet reports whether the primary upstream points at a devnet cluster.
func (cfg Config) IsDevnet() bool {
	return strings.Contains(strings.ToLower(cfg.Primary()), "devnet") ||
		cfg.Primary() == rpc.DevNet_RPC
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
