package core

import "errors"

var (
	// ErrMissingAddress is returned when no signer address can be found in
	// any of the response's known address locations.
	ErrMissingAddress = errors.New("missing address")

	// ErrInvalidNonce is returned when the echoed nonce is absent,
	// mismatched, or past its TTL.
	ErrInvalidNonce = errors.New("invalid nonce")

	// ErrInvalidAddress is returned when the address is not base58 or does
	// not decode to a 32-byte Ed25519 public key.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidSignature is returned when the signature is not 64 bytes.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrBadSignature is returned when the signature is well-formed but
	// cryptographically invalid.
	ErrBadSignature = errors.New("bad signature")

	// ErrUnsupportedEncoding is returned when a value has no byte
	// interpretation.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")

	// ErrNotAuthenticated is returned when a session holds no verified
	// identity.
	ErrNotAuthenticated = errors.New("no active session")

	// ErrNotFound is returned by stores for missing keys.
	ErrNotFound = errors.New("key not found")

	// ErrStoreOperationFailed is returned when a store operation fails.
	ErrStoreOperationFailed = errors.New("store operation failed")

	// ErrUpstreamTimeout is returned when an upstream call exceeds its
	// connect or read deadline.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstream is returned for any other upstream transport failure.
	ErrUpstream = errors.New("upstream error")

	// ErrInvalidUpstreamResponse is returned when an upstream body is not
	// parseable JSON.
	ErrInvalidUpstreamResponse = errors.New("invalid JSON from upstream")
)
