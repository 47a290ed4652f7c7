package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are carried by the session cookie token.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// AccessClaims are carried by exchanged access tokens. SessionID ties the
// token back to the session that proved ownership of the address.
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid,omitempty"`
}
