package security

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// KeyVerifier checks admin API keys against a configured key. The configured
// value is either the key itself or its bcrypt hash.
type KeyVerifier struct {
	plain []byte
	hash  []byte
}

func NewKeyVerifier(configured string) *KeyVerifier {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return &KeyVerifier{}
	}
	if isBcryptHash(configured) {
		return &KeyVerifier{hash: []byte(configured)}
	}
	return &KeyVerifier{plain: []byte(configured)}
}

// Enabled reports whether a key is configured at all.
func (v *KeyVerifier) Enabled() bool {
	return len(v.plain) > 0 || len(v.hash) > 0
}

// Verify reports whether key matches. Nothing matches when no key is set.
func (v *KeyVerifier) Verify(key string) bool {
	if key == "" {
		return false
	}
	if len(v.hash) > 0 {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(key)) == nil
	}
	if len(v.plain) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(v.plain, []byte(key)) == 1
}

// HashKey returns a bcrypt hash suitable for ADMIN_API_KEY.
func HashKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
