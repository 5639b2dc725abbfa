package jwtutil

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// IdentityClaims is the triple the identity collaborator asserts about a
// caller after verifying credentials. This service trusts it without
// re-verification.
type IdentityClaims struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTUtil validates and issues identity tokens
type JWTUtil struct {
	signingKey []byte
	expiry     time.Duration
}

// New creates a JWT utility for the given signing key and token lifetime
func New(signingKey string, expiry time.Duration) *JWTUtil {
	return &JWTUtil{signingKey: []byte(signingKey), expiry: expiry}
}

// GenerateToken issues a signed identity token for a central user
func (j *JWTUtil) GenerateToken(userID, companyID, role, email string) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		UserID:    userID,
		CompanyID: companyID,
		Role:      role,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.signingKey)
}

// ValidateToken validates and parses an identity token
func (j *JWTUtil) ValidateToken(tokenString string) (*IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.signingKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*IdentityClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}
