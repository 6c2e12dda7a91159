package app

import (
	"fmt"
	"time"

	"daily-quiz-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// TokenPair carries one freshly signed access/refresh token set.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"userId"`
}

// TokenService signs and verifies stateless bearer tokens. Access and refresh
// tokens use independent secrets and independent lifetimes, so leaking one
// secret never compromises the other token class.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// NewTokenServiceWithClock is test-only for deterministic expiry checks.
func NewTokenServiceWithClock(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, now func() time.Time) *TokenService {
	s := NewTokenService(accessSecret, refreshSecret, accessTTL, refreshTTL)
	s.now = now
	return s
}

// IssueTokens mints a new access+refresh pair for the user. Both tokens carry
// only the user id.
func (s *TokenService) IssueTokens(userID int64) (TokenPair, error) {
	access, err := s.sign(userID, s.accessSecret, s.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(userID, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess checks an access token's signature and expiry and returns the
// embedded user id.
func (s *TokenService) VerifyAccess(token string) (int64, error) {
	return s.verify(token, s.accessSecret)
}

// VerifyRefresh checks a refresh token's signature and expiry and returns the
// embedded user id.
func (s *TokenService) VerifyRefresh(token string) (int64, error) {
	return s.verify(token, s.refreshSecret)
}

// AccessTTL is exposed so the transport layer can align cookie lifetimes.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL is exposed so the transport layer can align cookie lifetimes.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *TokenService) sign(userID int64, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "daily-quiz-service",
		},
		UserID: userID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *TokenService) verify(token string, secret []byte) (int64, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.UserID <= 0 {
		return 0, domain.ErrInvalidToken
	}
	return claims.UserID, nil
}
