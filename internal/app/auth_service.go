package app

import (
	"context"
	"fmt"

	"daily-quiz-service/internal/domain"
)

// NonceStore hands out single-use login nonces. Validate consumes the nonce
// atomically: for any nonce it succeeds at most once, which is the whole
// replay protection.
type NonceStore interface {
	Generate(ctx context.Context) (string, error)
	Validate(ctx context.Context, nonce string) error
}

// UserRepository persists wallet-keyed users.
type UserRepository interface {
	// UpsertByWallet creates the user on first sight and refreshes
	// lastLoginAt on every later login.
	UpsertByWallet(ctx context.Context, walletAddress string) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
}

// AuthService runs the wallet login handshake: nonce, signature, user upsert,
// token mint.
type AuthService struct {
	nonces  NonceStore
	wallets SignatureVerifier
	users   UserRepository
	tokens  *TokenService
}

func NewAuthService(nonces NonceStore, wallets SignatureVerifier, users UserRepository, tokens *TokenService) *AuthService {
	return &AuthService{nonces: nonces, wallets: wallets, users: users, tokens: tokens}
}

// GenerateNonce issues a fresh single-use nonce for a login attempt.
func (s *AuthService) GenerateNonce(ctx context.Context) (string, error) {
	return s.nonces.Generate(ctx)
}

// Login authenticates a wallet and mints a token pair. The nonce is consumed
// before the signature is checked, so a failed signature still burns the
// nonce and cannot be retried against it.
func (s *AuthService) Login(ctx context.Context, walletAddress, signature, nonce string) (domain.User, TokenPair, error) {
	if err := s.nonces.Validate(ctx, nonce); err != nil {
		return domain.User{}, TokenPair{}, err
	}
	if err := s.wallets.Verify(walletAddress, signature, nonce); err != nil {
		return domain.User{}, TokenPair{}, err
	}

	user, err := s.users.UpsertByWallet(ctx, walletAddress)
	if err != nil {
		return domain.User{}, TokenPair{}, fmt.Errorf("upsert user: %w", err)
	}

	pair, err := s.tokens.IssueTokens(user.ID)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh verifies a refresh token and rotates both tokens for its user.
// Any verification failure, including expiry, maps to ErrInvalidToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.User, TokenPair, error) {
	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}

	pair, err := s.tokens.IssueTokens(user.ID)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// CurrentUser resolves an access token to its user, for request middleware.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (domain.User, error) {
	userID, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return domain.User{}, err
	}
	return s.users.GetByID(ctx, userID)
}
