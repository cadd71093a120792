package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// ResetCodeDigits is the length of a password reset code.
const ResetCodeDigits = 6

var resetCodeSpace = big.NewInt(1_000_000)

// GenerateResetCode returns a zero-padded six digit code drawn from crypto/rand.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, resetCodeSpace)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%0*d", ResetCodeDigits, n.Int64()), nil
}

// ResetCodeHasher derives the stored lookup digest of a reset code.
type ResetCodeHasher struct {
	key []byte
}

// NewResetCodeHasher builds a hasher keyed by secret.
func NewResetCodeHasher(secret string) *ResetCodeHasher {
	return &ResetCodeHasher{key: []byte(secret)}
}

// Hash returns the hex HMAC-SHA256 of code.
func (h *ResetCodeHasher) Hash(code string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}
