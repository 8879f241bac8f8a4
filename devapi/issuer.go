// Package devapi implements the session side of a development stand-in for
// the StockFlow API: password login, cookie/bearer tokens, refresh rotation
// and logout.
package devapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/stockflow/core"
	"github.com/layer-3/stockflow/ports"
	"golang.org/x/crypto/bcrypt"
)

// UserSeed describes a user the development API accepts
type UserSeed struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	UserType string `yaml:"user_type"`
}

// DefaultUsers are the demo accounts of the web application
var DefaultUsers = []UserSeed{
	{Username: "Alpha", Password: "alpha123", FullName: "Alpha Administrator", Email: "alpha@stockflow.com", Role: "admin", UserType: "admin"},
	{Username: "Employee", Password: "employee123", FullName: "Employee Vendor", Email: "employee@stockflow.com", Role: "user", UserType: "vendor"},
}

// IssuerConfig configures an Issuer
type IssuerConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Users      []UserSeed
	BcryptCost int
	Now        func() time.Time
}

type account struct {
	user         core.User
	passwordHash []byte
}

// Issuer handles authentication business logic of the development API
type Issuer struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	accounts  map[string]account

	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer creates a new issuer, hashing the seeded passwords
func NewIssuer(tokenizer ports.Tokenizer, store ports.Store, cfg IssuerConfig) (*Issuer, error) {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 5 * 24 * time.Hour // 5 days
	}
	if cfg.Users == nil {
		cfg.Users = DefaultUsers
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	accounts := make(map[string]account, len(cfg.Users))
	for i, seed := range cfg.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password of %s: %w", seed.Username, err)
		}

		accounts[strings.ToLower(seed.Username)] = account{
			user: core.User{
				ID:       fmt.Sprintf("%d", i+1),
				Username: seed.Username,
				FullName: seed.FullName,
				Email:    seed.Email,
				Role:     seed.Role,
				UserType: seed.UserType,
				Status:   "active",
			},
			passwordHash: hash,
		}
	}

	return &Issuer{
		tokenizer:  tokenizer,
		store:      store,
		accounts:   accounts,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}, nil
}

// AccessTTL is the lifetime of access tokens
func (s *Issuer) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL is the lifetime of refresh tokens
func (s *Issuer) RefreshTTL() time.Duration { return s.refreshTTL }

// Login authenticates a user by password and opens a new session
func (s *Issuer) Login(ctx context.Context, username, password string) (core.Token, error) {
	acc, ok := s.accounts[strings.ToLower(username)]
	if !ok {
		return core.Token{}, core.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return core.Token{}, core.ErrInvalidCredentials
	}

	return s.issue(acc.user.Username, acc.user.Role)
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *Issuer) Refresh(ctx context.Context, refreshTokenStr string) (core.Token, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return core.Token{}, err
	}

	invalidated, err := s.isSet(ctx, revokedKey(session.RefreshID))
	if err != nil {
		return core.Token{}, err
	}
	if invalidated {
		return core.Token{}, core.ErrTokenInvalidated
	}

	// Invalidate the old refresh token for the rest of its lifetime
	if err := s.store.Set(ctx, revokedKey(session.RefreshID), "1", session.RefreshExpiry.Sub(s.now())); err != nil {
		return core.Token{}, fmt.Errorf("failed to invalidate old token: %w", err)
	}

	return s.issue(session.Subject, session.Role)
}

// Logout invalidates the refresh token with the given ID
func (s *Issuer) Logout(ctx context.Context, refreshID string) error {
	if refreshID == "" {
		return core.ErrInvalidToken
	}

	for _, key := range []string{revokedKey(refreshID), endedKey(refreshID)} {
		if err := s.store.Set(ctx, key, "1", s.refreshTTL); err != nil {
			return fmt.Errorf("failed to invalidate token: %w", err)
		}
	}

	return nil
}

// RefreshID returns the ID of a valid refresh token
func (s *Issuer) RefreshID(refreshTokenStr string) (string, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", err
	}
	return session.RefreshID, nil
}

// ValidateAccessToken returns the session of a valid access token
func (s *Issuer) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, err
	}

	// Access tokens die with a logged out session, not with a rotated refresh token
	if session.RefreshID != "" {
		invalidated, err := s.isSet(ctx, endedKey(session.RefreshID))
		if err != nil {
			return nil, err
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

// User returns the account of username
func (s *Issuer) User(username string) (core.User, bool) {
	acc, ok := s.accounts[strings.ToLower(username)]
	return acc.user, ok
}

func (s *Issuer) issue(subject, role string) (core.Token, error) {
	now := s.now()
	session := &core.Session{
		ID:            uuid.New().String(),
		Subject:       subject,
		Role:          role,
		IssuedAt:      now,
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshExpiry: now.Add(s.refreshTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return core.Token{}, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return core.Token{}, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return core.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

func (s *Issuer) isSet(ctx context.Context, key string) (bool, error) {
	_, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, core.ErrMarkerNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}
}

func revokedKey(refreshID string) string {
	return "revoked:" + refreshID
}

func endedKey(refreshID string) string {
	return "ended:" + refreshID
}
