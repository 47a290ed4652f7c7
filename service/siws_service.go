package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/flashorca/gateway/config"
	"github.com/flashorca/gateway/core"
	"github.com/flashorca/gateway/internal/coerce"
	"github.com/flashorca/gateway/ports"
)

const (
	challengeKeyPrefix = "siws:"
	legacyKeyPrefix    = "legacy:"
	identityKeyPrefix  = "user:"
)

// legacyMessageFormat is the exact text legacy clients sign. It is
// reconstructed server-side from the stored challenge, never supplied by
// the client.
const legacyMessageFormat = "Sign-in with Solana\nnonce=%s\nissued_at=%d\ndomain=%s"

// SIWSService issues sign-in challenges and verifies signed responses.
// Challenges live in the session store for at most core.ChallengeTTL; a new
// issuance overwrites any previous challenge for the same session.
type SIWSService struct {
	cfg    config.Config
	store  ports.Store
	events ports.EventPublisher
	log    *zap.Logger

	now func() time.Time
}

// NewSIWSService creates a new sign-in service.
func NewSIWSService(cfg config.Config, store ports.Store, events ports.EventPublisher, log *zap.Logger) *SIWSService {
	return &SIWSService{
		cfg:    cfg,
		store:  store,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// Issue generates a fresh challenge for the session and returns the
// structured sign-in proposal the wallet will render. It always succeeds
// barring store failures.
func (s *SIWSService) Issue(ctx context.Context, sessionID, host string) (core.SignInInput, error) {
	nonce, err := randomNonce(8)
	if err != nil {
		return core.SignInInput{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now().UTC().Truncate(time.Second)
	challenge := core.Challenge{
		Nonce:    nonce,
		IssuedAt: now,
		Domain:   host,
	}

	payload, err := json.Marshal(challenge)
	if err != nil {
		return core.SignInInput{}, fmt.Errorf("failed to marshal challenge: %w", err)
	}
	if err := s.store.Set(ctx, challengeKeyPrefix+sessionID, string(payload), core.ChallengeTTL); err != nil {
		return core.SignInInput{}, fmt.Errorf("failed to persist challenge: %w", err)
	}

	return core.SignInInput{
		Domain:    host,
		Version:   "1",
		ChainID:   s.cfg.SIWSChainID(),
		Nonce:     nonce,
		IssuedAt:  now.Format(time.RFC3339),
		Statement: "Sign in to FlashOrca.",
		Resources: []string{s.publicOrigin(host) + "/docs/terms"},
	}, nil
}

// Verify checks a signed response against the session's live challenge and,
// on success, binds the verified address to the session.
func (s *SIWSService) Verify(ctx context.Context, sessionID string, req core.VerifyRequest) (string, error) {
	address := req.Address()
	if address == "" {
		return "", core.ErrMissingAddress
	}

	signedMessage, err := coerce.Bytes(req.Output.SignedMessage)
	if err != nil {
		return "", fmt.Errorf("signed message: %w", err)
	}
	signature, err := coerce.Bytes(req.Output.Signature)
	if err != nil {
		return "", fmt.Errorf("signature: %w", err)
	}

	challenge, err := s.loadChallenge(ctx, challengeKeyPrefix+sessionID)
	if err != nil || challenge.Nonce != req.Input.Nonce || challenge.Expired(s.now()) {
		return "", core.ErrInvalidNonce
	}

	address = stripScheme(address)

	verified, err := s.verifyEd25519(address, signedMessage, signature)
	if err != nil {
		return "", err
	}

	s.bindIdentity(ctx, sessionID, verified)
	return verified, nil
}

// LegacyNonce starts the pre-standard flow: the server builds the message
// text itself and hands it to the client for signing.
func (s *SIWSService) LegacyNonce(ctx context.Context, sessionID, host string) (nonce, message string, err error) {
	nonce, err = randomNonce(16)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	issuedAt := s.now().Unix()
	payload, err := json.Marshal(core.LegacyChallenge{Nonce: nonce, IssuedAt: issuedAt})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal challenge: %w", err)
	}
	if err := s.store.Set(ctx, legacyKeyPrefix+sessionID, string(payload), core.ChallengeTTL); err != nil {
		return "", "", fmt.Errorf("failed to persist challenge: %w", err)
	}

	return nonce, fmt.Sprintf(legacyMessageFormat, nonce, issuedAt, host), nil
}

// LegacyVerify reconstructs the legacy message from the stored challenge
// and verifies the client's signature over it.
func (s *SIWSService) LegacyVerify(ctx context.Context, sessionID, host string, req core.LegacyVerifyRequest) (string, error) {
	stored, err := s.store.Get(ctx, legacyKeyPrefix+sessionID)
	if err != nil {
		return "", core.ErrInvalidNonce
	}
	var challenge core.LegacyChallenge
	if err := json.Unmarshal([]byte(stored), &challenge); err != nil {
		return "", core.ErrInvalidNonce
	}
	if challenge.Nonce != req.Nonce || s.now().Unix()-challenge.IssuedAt > int64(core.ChallengeTTL/time.Second) {
		return "", core.ErrInvalidNonce
	}

	signature, err := coerce.Bytes(req.Signature)
	if err != nil {
		return "", fmt.Errorf("signature: %w", err)
	}

	message := []byte(fmt.Sprintf(legacyMessageFormat, challenge.Nonce, challenge.IssuedAt, host))

	verified, err := s.verifyEd25519(stripScheme(req.PublicKey), message, signature)
	if err != nil {
		return "", err
	}

	s.bindIdentity(ctx, sessionID, verified)
	return verified, nil
}

// Identity returns the verified address bound to the session, if any.
func (s *SIWSService) Identity(ctx context.Context, sessionID string) (string, error) {
	address, err := s.store.Get(ctx, identityKeyPrefix+sessionID)
	if err != nil {
		return "", core.ErrNotAuthenticated
	}
	return address, nil
}

// Logout unbinds the session's identity and announces the logout.
func (s *SIWSService) Logout(ctx context.Context, sessionID string) error {
	address, err := s.Identity(ctx, sessionID)
	if err != nil {
		return nil
	}
	if err := s.store.Delete(ctx, identityKeyPrefix+sessionID); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	if s.events != nil {
		if err := s.events.PublishLogout(ctx, address, sessionID); err != nil {
			s.log.Warn("failed to publish logout event", zap.Error(err))
		}
	}
	return nil
}

// verifyEd25519 decodes the base58 address, enforces the 32/64 byte length
// rules, and checks the Ed25519 signature over message.
func (s *SIWSService) verifyEd25519(address string, message, signature []byte) (string, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		s.log.Warn("invalid address", zap.String("address", address), zap.Error(err))
		return "", core.ErrInvalidAddress
	}

	if len(signature) != 64 {
		s.log.Warn("invalid signature length", zap.Int("length", len(signature)))
		return "", core.ErrInvalidSignature
	}

	if !ed25519.Verify(ed25519.PublicKey(pubkey[:]), message, signature) {
		s.log.Warn("signature verification failed", zap.String("address", address))
		return "", core.ErrBadSignature
	}

	return address, nil
}

func (s *SIWSService) bindIdentity(ctx context.Context, sessionID, address string) {
	if err := s.store.Set(ctx, identityKeyPrefix+sessionID, address, 0); err != nil {
		s.log.Warn("failed to bind identity", zap.Error(err))
	}
	if s.events != nil {
		if err := s.events.PublishLogin(ctx, address, sessionID); err != nil {
			s.log.Warn("failed to publish login event", zap.Error(err))
		}
	}
}

func (s *SIWSService) loadChallenge(ctx context.Context, key string) (core.Challenge, error) {
	stored, err := s.store.Get(ctx, key)
	if err != nil {
		return core.Challenge{}, err
	}
	var challenge core.Challenge
	if err := json.Unmarshal([]byte(stored), &challenge); err != nil {
		return core.Challenge{}, err
	}
	return challenge, nil
}

func (s *SIWSService) publicOrigin(host string) string {
	if s.cfg.PublicOrigin != "" {
		return s.cfg.PublicOrigin
	}
	return "https://" + host
}

// stripScheme drops a scheme tag like "ed25519:" from an address, keeping
// the substring after the last separator.
func stripScheme(address string) string {
	if i := strings.LastIndex(address, ":"); i >= 0 {
		return address[i+1:]
	}
	return address
}

func randomNonce(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
