package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ChildTokenCookieName is the cookie carrying the child login token.
const ChildTokenCookieName = "child_token"

// ChildClaims are the claims embedded in a child login token. Child sessions
// are stateless: the signed token itself is the session, nothing is stored.
type ChildClaims struct {
	ChildID  int64 `json:"child_id"`
	FamilyID int64 `json:"family_id"`
	jwt.RegisteredClaims
}

// ChildTokenIssuer signs and verifies child login tokens (HS256)
type ChildTokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewChildTokenIssuer creates an issuer with the given signing secret and token lifetime
func NewChildTokenIssuer(secret string, ttl time.Duration) *ChildTokenIssuer {
	return &ChildTokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for a child
func (i *ChildTokenIssuer) Issue(childID, familyID int64) (string, error) {
	now := time.Now()
	claims := ChildClaims{
		ChildID:  childID,
		FamilyID: familyID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			Issuer:    "stewardwell",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses a token and returns its claims if the signature and expiry are valid
func (i *ChildTokenIssuer) Verify(tokenString string) (*ChildClaims, error) {
	claims := &ChildClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid child token")
	}
	return claims, nil
}
