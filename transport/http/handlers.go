package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flashorca/gateway/config"
	"github.com/flashorca/gateway/core"
	"github.com/flashorca/gateway/ports"
	"github.com/flashorca/gateway/service"
)

// Handlers contains the HTTP handlers for the sign-in and proxy endpoints.
type Handlers struct {
	siws      *service.SIWSService
	proxy     *service.RPCProxy
	tokenizer ports.Tokenizer
	cfg       config.Config
	log       *zap.Logger
	startedAt time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(siws *service.SIWSService, proxy *service.RPCProxy, tokenizer ports.Tokenizer, cfg config.Config, log *zap.Logger) *Handlers {
	return &Handlers{
		siws:      siws,
		proxy:     proxy,
		tokenizer: tokenizer,
		cfg:       cfg,
		log:       log,
		startedAt: time.Now(),
	}
}

// SIWSCreate issues a fresh challenge and returns the sign-in proposal.
func (h *Handlers) SIWSCreate(c *gin.Context) {
	input, err := h.siws.Issue(c.Request.Context(), sessionID(c), c.Request.Host)
	if err != nil {
		h.log.Error("failed to issue challenge", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create challenge"})
		return
	}
	c.JSON(http.StatusOK, input)
}

// SIWSVerify validates a signed response and binds the verified address to
// the session. Failures answer 400 with a short reason string.
func (h *Handlers) SIWSVerify(c *gin.Context) {
	var req core.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "invalid request")
		return
	}

	if _, err := h.siws.Verify(c.Request.Context(), sessionID(c), req); err != nil {
		c.String(http.StatusBadRequest, verifyReason(err))
		return
	}
	c.String(http.StatusOK, "ok")
}

// LegacyNonce issues a challenge for the pre-standard flow and returns the
// exact message text the client must sign.
func (h *Handlers) LegacyNonce(c *gin.Context) {
	nonce, message, err := h.siws.LegacyNonce(c.Request.Context(), sessionID(c), c.Request.Host)
	if err != nil {
		h.log.Error("failed to issue legacy nonce", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create nonce"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"nonce": nonce, "message": message})
}

// LegacyVerify validates a legacy signature over the server-built message.
func (h *Handlers) LegacyVerify(c *gin.Context) {
	var req core.LegacyVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "invalid request")
		return
	}

	if _, err := h.siws.LegacyVerify(c.Request.Context(), sessionID(c), c.Request.Host, req); err != nil {
		c.String(http.StatusBadRequest, verifyReason(err))
		return
	}
	c.String(http.StatusOK, "ok")
}

// RPC forwards a JSON-RPC body to the upstream set.
func (h *Handlers) RPC(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, core.NewRPCError(core.CodeParseError, "Parse error", nil))
		return
	}

	status, payload := h.proxy.Handle(c.Request.Context(), body)
	switch v := payload.(type) {
	case json.RawMessage:
		c.Data(status, "application/json", v)
	default:
		c.JSON(status, v)
	}
}

// RPCPreflight short-circuits CORS preflight requests.
func (h *Handlers) RPCPreflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// VerifyToken reports whether the session currently holds a verified
// identity.
func (h *Handlers) VerifyToken(c *gin.Context) {
	address, err := h.siws.Identity(c.Request.Context(), sessionID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"logged_in": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_in": true, "address": address})
}

// ExchangeJWT mints an access token for a verified session.
func (h *Handlers) ExchangeJWT(c *gin.Context) {
	sid := sessionID(c)
	address, err := h.siws.Identity(c.Request.Context(), sid)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "no active session"})
		return
	}

	token, err := h.tokenizer.AccessToken(address, sid)
	if err != nil {
		h.log.Error("failed to mint access token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "address": address})
}

// Logout clears the session's identity.
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.siws.Logout(c.Request.Context(), sessionID(c)); err != nil {
		h.log.Warn("logout failed", zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

// Env reports the primary upstream for front-end configuration.
func (h *Handlers) Env(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rpc_url":   h.cfg.Primary(),
		"is_devnet": h.cfg.IsDevnet(),
	})
}

// Healthz is the liveness/readiness probe. It stays free of slow external
// checks.
func (h *Handlers) Healthz(c *gin.Context) {
	if h.cfg.SessionSecret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":     "error",
			"reason":     "missing secret key",
			"uptime_sec": int(time.Since(h.startedAt).Seconds()),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime_sec": int(time.Since(h.startedAt).Seconds()),
		"now":        time.Now().UTC().Format(time.RFC3339),
		"version":    h.cfg.Version,
	})
}

// verifyReason maps verification errors to the short reason strings the
// verify endpoints answer with.
func verifyReason(err error) string {
	switch {
	case errors.Is(err, core.ErrMissingAddress):
		return "missing address"
	case errors.Is(err, core.ErrInvalidNonce):
		return "invalid nonce"
	case errors.Is(err, core.ErrInvalidAddress):
		return "invalid address"
	case errors.Is(err, core.ErrInvalidSignature), errors.Is(err, core.ErrUnsupportedEncoding):
		return "invalid signature"
	case errors.Is(err, core.ErrBadSignature):
		return "bad signature"
	default:
		return "verification failed"
	}
}
