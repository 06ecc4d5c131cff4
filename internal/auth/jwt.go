package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken means a bearer token failed verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the bearer token claims issued by the identity provider.
type Claims struct {
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// UserMetadata carries profile fields set at sign-up.
type UserMetadata struct {
	FullName string `json:"full_name"`
	Name     string `json:"name"`
}

// DisplayName returns the best available name.
func (c *Claims) DisplayName() string {
	if c.UserMetadata.FullName != "" {
		return c.UserMetadata.FullName
	}
	return c.UserMetadata.Name
}

// TokenVerifier validates HS256 bearer tokens.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier returns nil when secret is empty, which disables bearer auth.
func NewTokenVerifier(secret string) *TokenVerifier {
	if secret == "" {
		return nil
	}
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates tokenString.
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing sub or email", ErrInvalidToken)
	}
	return claims, nil
}

// Sign issues a token for subject. Used by development tooling and tests.
func (v *TokenVerifier) Sign(subject, email string, ttl time.Duration) (string, error) {
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
