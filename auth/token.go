// Package auth is the boundary to the external authentication
// collaborator. The core never checks credentials itself: it only
// verifies that a presented token was signed by the issuer and trusts
// the identity inside completely.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pulse/domain"
)

// Claims is the data the issuer embeds in a token.
type Claims struct {
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens against the shared issuer secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the signature and expiration of a token
// and returns the identity it certifies.
func (v *Verifier) Verify(tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Identity == "" {
		return "", jwt.ErrSignatureInvalid
	}
	return domain.Identity(claims.Identity), nil
}

// GenerateToken creates a signed token for an identity. Issuance lives
// with the external collaborator in production; this helper backs the
// test suite and local tooling.
func GenerateToken(identity domain.Identity, secret string, ttl time.Duration) (string, error) {
	claims := &Claims{
		Identity: string(identity),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "pulse",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
