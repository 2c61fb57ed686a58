package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/artpar/adminkit/domain/gate"
)

// Claims represents the JWT claims for admin access.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 admin tokens.
// Safe for concurrent use.
type TokenService struct {
	secret     []byte
	issuer     string
	role       string
	expiration time.Duration
}

// NewTokenService creates a JWT token service. When role is non-empty only
// tokens carrying that role are admitted.
func NewTokenService(secret, role string, expiration time.Duration) *TokenService {
	if expiration == 0 {
		expiration = 24 * time.Hour
	}

	return &TokenService{
		secret:     []byte(secret),
		issuer:     "adminkit",
		role:       role,
		expiration: expiration,
	}
}

// GenerateToken creates a signed token for subject.
func (s *TokenService) GenerateToken(subject, role string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.expiration)

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// ValidateToken validates a token and returns its claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// Check admits requests whose bearer token is valid and carries the
// configured role. An invalid or expired token is a deny, not an error.
func (s *TokenService) Check(_ context.Context, r *http.Request) (bool, error) {
	token := BearerToken(r)
	if token == "" {
		return false, nil
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		return false, nil
	}

	return s.role == "" || claims.Role == s.role, nil
}

// GenerateSecret generates a random secret suitable for JWT signing.
func GenerateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Ensure interface compliance.
var _ gate.Checker = (*TokenService)(nil)
