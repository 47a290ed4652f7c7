package core

import "time"

// ChallengeTTL is how long an issued challenge stays verifiable.
const ChallengeTTL = 300 * time.Second

// Challenge binds a sign-in nonce to its issuance time and the host that
// requested it. Exactly one live challenge exists per session; a new
// issuance overwrites the previous one.
type Challenge struct {
	Nonce    string    `json:"nonce"`
	IssuedAt time.Time `json:"issued_at"`
	Domain   string    `json:"domain"`
}

// Expired reports whether the challenge is past its TTL at the given time.
func (c Challenge) Expired(now time.Time) bool {
	return now.Sub(c.IssuedAt) > ChallengeTTL
}

// SignInInput is the structured proposal the wallet renders for the user to
// sign. It is derived from a Challenge plus deployment chain identity and is
// never stored directly.
type SignInInput struct {
	Domain    string   `json:"domain"`
	Version   string   `json:"version"`
	ChainID   string   `json:"chainId"`
	Nonce     string   `json:"nonce"`
	IssuedAt  string   `json:"issuedAt"`
	Statement string   `json:"statement"`
	Resources []string `json:"resources"`
}

// SignInAccount is the nested account object wallets place the address in.
type SignInAccount struct {
	Address string `json:"address"`
}

// SignInOutput carries the wallet's signed response. SignedMessage and
// Signature are left untyped because wallet libraries serialize them as
// base64/base58/hex strings, byte arrays, Buffer-JSON objects or
// string-indexed maps depending on runtime.
type SignInOutput struct {
	Account       SignInAccount `json:"account"`
	Address       string        `json:"address"`
	SignedMessage any           `json:"signedMessage"`
	Signature     any           `json:"signature"`
}

// VerifyRequest is the body of a sign-in verification call.
type VerifyRequest struct {
	Input     SignInInput  `json:"input"`
	Output    SignInOutput `json:"output"`
	PublicKey string       `json:"publicKey"`
}

// Address resolves the signer address, checking the nested account object
// first, then the top-level publicKey, then the output's own address field.
func (r VerifyRequest) Address() string {
	if r.Output.Account.Address != "" {
		return r.Output.Account.Address
	}
	if r.PublicKey != "" {
		return r.PublicKey
	}
	return r.Output.Address
}

// LegacyChallenge is the reduced challenge used by the pre-standard flow.
// The signed message text is reconstructed server-side from these fields.
type LegacyChallenge struct {
	Nonce    string `json:"nonce"`
	IssuedAt int64  `json:"issued_at"`
}

// LegacyVerifyRequest is the body of a legacy verification call.
type LegacyVerifyRequest struct {
	PublicKey string `json:"publicKey"`
	Signature any    `json:"signature"`
	Nonce     string `json:"nonce"`
}
