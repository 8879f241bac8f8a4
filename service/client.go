package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/stockflow/core"
	"github.com/layer-3/stockflow/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

// Auth modes.
const (
	// AuthModeCookie relies on the HTTP-only session cookie alone.
	AuthModeCookie = "cookie"

	// AuthModeBearer additionally keeps the access and refresh tokens in the
	// store and sends the access token as a Bearer header.
	AuthModeBearer = "bearer"
)

// Defaults applied by ClientConfig.ApplyDefaults.
const (
	DefaultBaseURL     = "https://stock-management-server-q8zz.onrender.com/api/v1"
	DefaultRefreshPath = "/auth/refresh-token"
	DefaultLoginPage   = "/login"
	DefaultProduct     = "stockflow"
)

// ClientConfig configures the API client.
type ClientConfig struct {
	// BaseURL is the API root; request paths are relative to it.
	BaseURL string

	// RefreshPath is the endpoint that renews the session cookie.
	RefreshPath string

	// LoginPage is where the host is sent when the session cannot be renewed.
	LoginPage string

	// Product prefixes the local storage keys, e.g. "stockflow_currentUser".
	Product string

	// AuthMode is AuthModeCookie (default) or AuthModeBearer.
	AuthMode string

	// ShareRefresh makes concurrent expirations wait on a single refresh call.
	ShareRefresh bool

	// Timeout for the default HTTP client. Zero keeps the transport default.
	Timeout time.Duration

	// Headers are sent with every request.
	Headers map[string]string
}

// ApplyDefaults sets default values for the client config.
func (c *ClientConfig) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	if c.RefreshPath == "" {
		c.RefreshPath = DefaultRefreshPath
	}

	if c.LoginPage == "" {
		c.LoginPage = DefaultLoginPage
	}

	if c.Product == "" {
		c.Product = DefaultProduct
	}

	if c.AuthMode == "" {
		c.AuthMode = AuthModeCookie
	}

	headers := make(map[string]string, len(c.Headers)+1)
	headers["Content-Type"] = "application/json"
	for k, v := range c.Headers {
		headers[k] = v
	}
	c.Headers = headers
}

// CurrentUserKey is the store key of the local "current user" marker.
func (c ClientConfig) CurrentUserKey() string { return c.Product + "_currentUser" }

// AccessTokenKey is the store key of the access token in bearer mode.
func (c ClientConfig) AccessTokenKey() string { return c.Product + "_access_token" }

// RefreshTokenKey is the store key of the refresh token in bearer mode.
func (c ClientConfig) RefreshTokenKey() string { return c.Product + "_refresh_token" }

// Client sends requests to the API and hides session expiry from its callers:
// a 401 triggers one refresh of the session followed by one replay of the request.
// When the refresh fails the local session is torn down and the host is sent
// to the login page.
type Client struct {
	log        logrus.FieldLogger
	cfg        ClientConfig
	httpClient ports.Doer
	store      ports.Store
	navigator  ports.Navigator
	events     ports.EventPublisher
	metrics    *Metrics

	refreshGroup singleflight.Group
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default cookie-jar backed http.Client.
func WithHTTPClient(doer ports.Doer) Option {
	return func(c *Client) { c.httpClient = doer }
}

// WithStore sets where the current user marker and bearer tokens live.
func WithStore(store ports.Store) Option {
	return func(c *Client) { c.store = store }
}

// WithNavigator sets the capability used to send the host to the login page.
func WithNavigator(navigator ports.Navigator) Option {
	return func(c *Client) { c.navigator = navigator }
}

// WithEventPublisher publishes a SessionTerminated event on teardown.
func WithEventPublisher(events ports.EventPublisher) Option {
	return func(c *Client) { c.events = events }
}

// WithMetrics records request and refresh outcomes.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) { c.metrics = metrics }
}

// NewClient creates a new API client.
func NewClient(log logrus.FieldLogger, cfg ClientConfig, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", cfg.BaseURL)
	}

	if cfg.AuthMode != AuthModeCookie && cfg.AuthMode != AuthModeBearer {
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}

	c := &Client{
		log: log.WithField("component", "api-client"),
		cfg: cfg,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}

		c.httpClient = &http.Client{
			Jar:     jar,
			Timeout: cfg.Timeout,
		}
	}

	if cfg.AuthMode == AuthModeBearer && c.store == nil {
		return nil, errors.New("bearer auth mode requires a store")
	}

	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() ClientConfig {
	return c.cfg
}

// Do sends the request. A 401 response is answered with one refresh of the
// session and one replay of the request; every other failure is returned
// unchanged. When the refresh fails the error wraps core.ErrAuthenticationRequired.
// A ctx done while waiting on the refresh returns ctx.Err() and leaves the session alone.
func (c *Client) Do(ctx context.Context, req core.Request) (*core.Response, error) {
	resp, err := c.send(ctx, req)
	if err == nil {
		c.metrics.request(req.Method, outcomeSuccess)
		return resp, nil
	}

	if !core.IsAuthExpired(err) || c.isRefreshPath(req.Path) {
		c.metrics.request(req.Method, outcomeError)
		return nil, err
	}

	// The replay itself was rejected; never refresh twice for one request
	if req.Retried() {
		c.metrics.request(req.Method, outcomeAuthExpired)
		return nil, err
	}

	log := c.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"method":     req.Method,
		"path":       req.Path,
	})
	log.Debug("Session expired, refreshing")

	if refreshErr := c.refresh(ctx); refreshErr != nil {
		// The caller gave up; the session itself was not rejected
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.WithError(ctxErr).Debug("Caller left during session refresh")
			c.metrics.request(req.Method, outcomeError)
			return nil, ctxErr
		}

		log.WithError(refreshErr).Warn("Session refresh failed")
		c.terminate(ctx, req, refreshErr)
		c.metrics.request(req.Method, outcomeAuthRequired)

		return nil, fmt.Errorf("%w: %v", core.ErrAuthenticationRequired, refreshErr)
	}

	log.Debug("Session refreshed, replaying request")

	return c.Do(ctx, req.MarkRetried())
}

// Get is a shorthand for a GET request.
func (c *Client) Get(ctx context.Context, path string) (*core.Response, error) {
	return c.Do(ctx, core.NewRequest(http.MethodGet, path, nil))
}

// PostJSON sends v as a JSON encoded POST body.
func (c *Client) PostJSON(ctx context.Context, path string, v any) (*core.Response, error) {
	req, err := core.NewJSONRequest(http.MethodPost, path, v)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

func (c *Client) send(ctx context.Context, req core.Request) (*core.Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Path), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, values := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if req.ID != "" {
		httpReq.Header.Set("X-Request-ID", req.ID)
	}

	if c.cfg.AuthMode == AuthModeBearer {
		token, err := c.store.Get(ctx, c.cfg.AccessTokenKey())
		switch {
		case err == nil:
			httpReq.Header.Set("Authorization", "Bearer "+token)
		case !errors.Is(err, core.ErrMarkerNotFound):
			c.log.WithError(err).Warn("Failed to read access token")
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &core.StatusError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Body:       data,
		}
	}

	return &core.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// refresh renews the session. The refresh request runs detached from ctx so a
// caller giving up never aborts it; the caller only stops waiting for the result.
func (c *Client) refresh(ctx context.Context) error {
	refreshCtx := context.WithoutCancel(ctx)

	var results <-chan singleflight.Result
	if c.cfg.ShareRefresh {
		results = c.refreshGroup.DoChan("refresh", func() (any, error) {
			return nil, c.doRefresh(refreshCtx)
		})
	} else {
		own := make(chan singleflight.Result, 1)
		go func() {
			own <- singleflight.Result{Err: c.doRefresh(refreshCtx)}
		}()
		results = own
	}

	select {
	case res := <-results:
		if res.Shared {
			c.log.Debug("Joined in-flight session refresh")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// doRefresh asks the API to renew the session cookie. Any non-2xx answer is a failure.
func (c *Client) doRefresh(ctx context.Context) error {
	if err := c.requestRefresh(ctx); err != nil {
		c.metrics.refresh(outcomeError)
		return err
	}

	c.metrics.refresh(outcomeSuccess)

	return nil
}

func (c *Client) requestRefresh(ctx context.Context) error {
	var body io.Reader
	if c.cfg.AuthMode == AuthModeBearer {
		refreshToken, err := c.store.Get(ctx, c.cfg.RefreshTokenKey())
		if err != nil {
			return fmt.Errorf("reading refresh token: %w", err)
		}

		payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
		if err != nil {
			return fmt.Errorf("encoding refresh request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(c.cfg.RefreshPath), body)
	if err != nil {
		return fmt.Errorf("creating refresh request: %w", err)
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("refresh request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading refresh response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &core.StatusError{
			Method:     http.MethodPost,
			Path:       c.cfg.RefreshPath,
			StatusCode: resp.StatusCode,
			Body:       data,
		}
	}

	if c.cfg.AuthMode == AuthModeBearer {
		return c.storeTokens(ctx, data)
	}

	return nil
}

// storeTokens saves the token pair of a login or refresh response.
func (c *Client) storeTokens(ctx context.Context, data []byte) error {
	var token core.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("decoding token response: %w", err)
	}

	if token.AccessToken == "" {
		return errors.New("token response without access token")
	}

	if err := c.store.Set(ctx, c.cfg.AccessTokenKey(), token.AccessToken, 0); err != nil {
		return fmt.Errorf("storing access token: %w", err)
	}

	if token.RefreshToken != "" {
		if err := c.store.Set(ctx, c.cfg.RefreshTokenKey(), token.RefreshToken, 0); err != nil {
			return fmt.Errorf("storing refresh token: %w", err)
		}
	}

	return nil
}

// terminate clears the local session and sends the host to the login page.
func (c *Client) terminate(ctx context.Context, req core.Request, cause error) {
	log := c.log.WithField("request_id", req.ID)

	if err := c.clearLocalSession(ctx); err != nil {
		log.WithError(err).Error("Failed to clear local session")
	}

	c.metrics.terminated()

	event := core.SessionTerminated{
		ID:         uuid.New().String(),
		Reason:     cause.Error(),
		Path:       req.Path,
		OccurredAt: time.Now().UTC(),
	}

	onLoginPage := c.navigator != nil && c.isLoginPage(c.navigator.CurrentPath())
	if !onLoginPage {
		event.RedirectTo = c.cfg.LoginPage

		if c.navigator != nil {
			if err := c.navigator.Navigate(ctx, c.cfg.LoginPage); err != nil {
				log.WithError(err).Error("Failed to navigate to login page")
			}
		}
	}

	if c.events != nil {
		if err := c.events.PublishSessionTerminated(ctx, event); err != nil {
			log.WithError(err).Warn("Failed to publish session terminated event")
		}
	}

	log.WithField("redirect_to", event.RedirectTo).Info("Session terminated")
}

func (c *Client) clearLocalSession(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	keys := []string{c.cfg.CurrentUserKey()}
	if c.cfg.AuthMode == AuthModeBearer {
		keys = append(keys, c.cfg.AccessTokenKey(), c.cfg.RefreshTokenKey())
	}

	return c.store.Delete(ctx, keys...)
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) isRefreshPath(path string) bool {
	return stripQuery(path) == c.cfg.RefreshPath
}

// isLoginPage reports whether path is the login page or lies beneath it.
func (c *Client) isLoginPage(path string) bool {
	path = strings.TrimRight(stripQuery(path), "/")
	login := strings.TrimRight(c.cfg.LoginPage, "/")

	return path == login || strings.HasPrefix(path, login+"/")
}

func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}
