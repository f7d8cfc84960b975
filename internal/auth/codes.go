package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// GenerateAuthCode returns a random six-digit code as a string.
func GenerateAuthCode() (string, error) {
	// Uniform in [100000, 999999].
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate auth code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// HashCode hashes an auth code with SHA-256 and returns the hex digest.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyCode compares a plain-text code against a stored hash in
// constant time.
func VerifyCode(code, hash string) bool {
	return constantTimeEqual(HashCode(code), hash)
}

// HashEmailChangeCode hashes an email-change code scoped to its target
// email so a code issued for one address cannot confirm another.
func HashEmailChangeCode(code, newEmail string) string {
	normalized := strings.ToLower(strings.TrimSpace(newEmail))
	return HashCode(normalized + ":" + code)
}

// VerifyEmailChangeCode compares an email-change code against a stored
// scoped hash in constant time.
func VerifyEmailChangeCode(code, newEmail, hash string) bool {
	return constantTimeEqual(HashEmailChangeCode(code, newEmail), hash)
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
