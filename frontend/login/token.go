package login

import (
	"crypto/rand"
	"encoding/hex"
)

// newSessionToken returns a 256-bit random token, hex-encoded. It doubles
// as the sessions table primary key, so collisions surface as a unique
// constraint violation rather than a silent session takeover.
func newSessionToken() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
