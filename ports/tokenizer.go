package ports

// Tokenizer mints and parses the signed tokens the transport layer uses to
// carry tamper-evident session identity and exchanged access credentials.
type Tokenizer interface {
	// SessionToken mints a token binding the given session id.
	SessionToken(sessionID string) (string, error)

	// ParseSessionToken validates a session token and returns its session id.
	ParseSessionToken(token string) (string, error)

	// AccessToken mints an access token for a verified wallet address.
	AccessToken(address, sessionID string) (string, error)
}
