package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const tokenBytes = 32

// SessionToken pairs the bearer token handed to the client with the digest
// kept in storage. Only Hash is ever persisted.
type SessionToken struct {
	Raw  string
	Hash string
}

func NewSessionToken() (SessionToken, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return SessionToken{}, err
	}
	raw := base64.RawURLEncoding.EncodeToString(b)
	return SessionToken{Raw: raw, Hash: HashToken(raw)}, nil
}

// HashToken is the storage key for a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
