package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token audiences. A token issued for one purpose never validates for another.
const (
	AudienceAccess = "photofeed:auth"
	AudienceReset  = "photofeed:reset"
	AudienceVerify = "photofeed:verify"
)

// ErrInvalidToken is returned for malformed, expired, tampered or mis-scoped tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims defines the JWT claims structure. Subject carries the user ID.
type Claims struct {
	Email string `json:"email,omitempty"`
	// PasswordFingerprint ties a reset token to the password it was issued against.
	PasswordFingerprint string `json:"pfp,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens with a configured secret.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewTokenManager creates a TokenManager. The secret must not be empty.
func NewTokenManager(secret string) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is empty")
	}
	return &TokenManager{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs claims for the given audience, valid for lifetime from now.
func (m *TokenManager) Issue(claims Claims, audience string, lifetime time.Duration) (string, error) {
	now := m.now()
	claims.Audience = jwt.ClaimStrings{audience}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(lifetime))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse validates signature, expiry and audience and returns the claims.
func (m *TokenManager) Parse(tokenStr, audience string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
