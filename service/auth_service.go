package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/layer-3/stockflow/core"
	"github.com/sirupsen/logrus"
)

// Paths of the authentication endpoints
const (
	LoginPath  = "/auth/login/access-token"
	MePath     = "/auth/me"
	LogoutPath = "/auth/logout"
)

// AuthService handles login state on the client side: it creates the session,
// caches the current user marker and tears both down on logout
type AuthService struct {
	log    logrus.FieldLogger
	client *Client
}

// NewAuthService creates a new authentication service
func NewAuthService(log logrus.FieldLogger, client *Client) *AuthService {
	return &AuthService{
		log:    log.WithField("component", "auth"),
		client: client,
	}
}

// Login authenticates with username and password and caches the user as the
// current user marker
func (s *AuthService) Login(ctx context.Context, username, password string) (*core.User, error) {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}

	// Login goes around the refresh protocol: a rejected login is not an expired session
	resp, err := s.client.send(ctx, core.NewFormRequest(LoginPath, form))
	if err != nil {
		var statusErr *core.StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusBadRequest || statusErr.StatusCode == http.StatusUnauthorized) {
			return nil, fmt.Errorf("%w: %s", core.ErrInvalidCredentials, string(statusErr.Body))
		}
		return nil, fmt.Errorf("login request: %w", err)
	}

	if s.client.cfg.AuthMode == AuthModeBearer {
		if err := s.client.storeTokens(ctx, resp.Body); err != nil {
			return nil, err
		}
	}

	user, err := s.Me(ctx)
	if err != nil {
		if clearErr := s.client.clearLocalSession(ctx); clearErr != nil {
			s.log.WithError(clearErr).Warn("Failed to clear session after login")
		}
		return nil, fmt.Errorf("fetching current user: %w", err)
	}

	if s.client.store != nil {
		payload, err := json.Marshal(user)
		if err != nil {
			return nil, fmt.Errorf("encoding current user: %w", err)
		}

		if err := s.client.store.Set(ctx, s.client.cfg.CurrentUserKey(), string(payload), 0); err != nil {
			return nil, fmt.Errorf("storing current user: %w", err)
		}
	}

	s.log.WithField("username", user.Username).Info("Logged in")

	return user, nil
}

// Me fetches the authenticated user from the API
func (s *AuthService) Me(ctx context.Context) (*core.User, error) {
	resp, err := s.client.Get(ctx, MePath)
	if err != nil {
		return nil, err
	}

	var user core.User
	if err := resp.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

// CurrentUser returns the cached current user marker. It is a local hint
// only; the session cookie decides whether the API accepts requests.
func (s *AuthService) CurrentUser(ctx context.Context) (*core.User, error) {
	if s.client.store == nil {
		return nil, core.ErrMarkerNotFound
	}

	raw, err := s.client.store.Get(ctx, s.client.cfg.CurrentUserKey())
	if err != nil {
		return nil, err
	}

	var user core.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		// A corrupt marker is as good as none
		if delErr := s.client.store.Delete(ctx, s.client.cfg.CurrentUserKey()); delErr != nil {
			s.log.WithError(delErr).Debug("Failed to drop corrupt current user marker")
		}
		return nil, core.ErrMarkerNotFound
	}

	return &user, nil
}

// IsAuthenticated reports whether a current user marker exists
func (s *AuthService) IsAuthenticated(ctx context.Context) bool {
	_, err := s.CurrentUser(ctx)
	return err == nil
}

// Logout ends the session on the API and clears the local session state.
// The local state is cleared even when the API call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	req := core.NewRequest(http.MethodPost, LogoutPath, nil)
	if _, err := s.client.send(ctx, req); err != nil {
		s.log.WithError(err).Warn("Logout request failed")
	}

	if err := s.client.clearLocalSession(ctx); err != nil {
		return fmt.Errorf("clearing local session: %w", err)
	}

	s.log.Info("Logged out")

	return nil
}
