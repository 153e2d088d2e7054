package invitecode

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
)

// FamilyCodeLength is the fixed length of public family join codes.
const FamilyCodeLength = 6

// codeAlphabet excludes characters that are easy to misread when a code is
// shared verbally or handwritten: 0/O, 1/I/L.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewFamilyCode generates a random family join code. Uniqueness is not
// guaranteed by the generator; callers check storage and redraw on collision.
func NewFamilyCode() (string, error) {
	code := make([]byte, FamilyCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// NormalizeFamilyCode canonicalizes user-entered codes for lookup.
func NormalizeFamilyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewToken generates an opaque single-use invitation token (32 hex chars).
// The memberships table's unique constraint is the authority on uniqueness;
// the issuer retries on conflict.
func NewToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
