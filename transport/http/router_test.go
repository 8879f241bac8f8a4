package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/stockflow/adapters/navigation"
	"github.com/layer-3/stockflow/adapters/store"
	"github.com/layer-3/stockflow/adapters/tokenizer"
	"github.com/layer-3/stockflow/core"
	"github.com/layer-3/stockflow/devapi"
	"github.com/layer-3/stockflow/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type apiEnv struct {
	server    *httptest.Server
	clock     *fakeClock
	registry  *prometheus.Registry
	store     *store.MemoryStore
	navigator *navigation.Recorder
	metrics   *service.Metrics
	client    *service.Client
	auth      *service.AuthService
	resources *service.Resources
}

func newAPIEnv(t *testing.T, cfg service.ClientConfig, opts ...service.Option) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &apiEnv{
		clock:     &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		registry:  prometheus.NewRegistry(),
		store:     store.NewMemoryStore(),
		navigator: navigation.NewRecorder("/inventory"),
	}

	issuer, err := devapi.NewIssuer(
		tokenizer.NewJWTTokenizer([]byte("test-secret"), env.clock.Now),
		store.NewMemoryStore(),
		devapi.IssuerConfig{
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
			BcryptCost: bcrypt.MinCost,
			Now:        env.clock.Now,
		},
	)
	require.NoError(t, err)

	router := SetupRouter(log, issuer, devapi.NewInventory(env.clock.Now), RouterConfig{Gatherer: env.registry})
	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)

	env.metrics = service.NewMetrics(env.registry)

	cfg.BaseURL = env.server.URL + APIPrefix
	opts = append([]service.Option{
		service.WithStore(env.store),
		service.WithNavigator(env.navigator),
		service.WithMetrics(env.metrics),
	}, opts...)

	env.client, err = service.NewClient(log, cfg, opts...)
	require.NoError(t, err)

	env.auth = service.NewAuthService(log, env.client)
	env.resources = service.NewResources(env.client)

	return env
}

func TestRouter_LoginAndBrowse(t *testing.T) {
	env := newAPIEnv(t, service.ClientConfig{})
	ctx := context.Background()

	user, err := env.auth.Login(ctx, "Alpha", "alpha123")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Role)
	assert.True(t, env.auth.IsAuthenticated(ctx))

	products, err := env.resources.ListProducts(ctx, service.ProductFilter{Category: "Electronics"})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	alerts, err := env.resources.ListAlerts(ctx, false)
	require.NoError(t, err)
	require.NotEmpty(t, alerts)
	require.NoError(t, env.resources.MarkAlertRead(ctx, alerts[0].ID))

	_, err = env.resources.GetProduct(ctx, "missing")
	var statusErr *core.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.True(t, env.auth.IsAuthenticated(ctx), "ordinary errors keep the session")
}

func TestRouter_InvalidCredentials(t *testing.T) {
	env := newAPIEnv(t, service.ClientConfig{})

	_, err := env.auth.Login(context.Background(), "Alpha", "nope")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	assert.Empty(t, env.navigator.History())
}

func TestRouter_ExpiredAccessIsRefreshedTransparently(t *testing.T) {
	env := newAPIEnv(t, service.ClientConfig{})
	ctx := context.Background()

	_, err := env.auth.Login(ctx, "Alpha", "alpha123")
	require.NoError(t, err)

	env.clock.Advance(2 * time.Minute)

	vendors, err := env.resources.ListVendors(ctx)
	require.NoError(t, err)
	assert.Len(t, vendors, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RefreshTotal.WithLabelValues("success")))
	assert.True(t, env.auth.IsAuthenticated(ctx))
	assert.Empty(t, env.navigator.History())
}

func TestRouter_ExpiredSessionSendsToLogin(t *testing.T) {
	env := newAPIEnv(t, service.ClientConfig{})
	ctx := context.Background()

	_, err := env.auth.Login(ctx, "Employee", "employee123")
	require.NoError(t, err)

	env.clock.Advance(2 * time.Hour)

	_, err = env.resources.ListOrganizations(ctx)
	require.ErrorIs(t, err, core.ErrAuthenticationRequired)

	assert.False(t, env.auth.IsAuthenticated(ctx))
	assert.Equal(t, []string{"/login"}, env.navigator.History())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.SessionTerminations))
}

func TestRouter_LogoutEndsSession(t *testing.T) {
	env := newAPIEnv(t, service.ClientConfig{})
	ctx := context.Background()

	_, err := env.auth.Login(ctx, "Alpha", "alpha123")
	require.NoError(t, err)
	require.NoError(t, env.auth.Logout(ctx))
	assert.False(t, env.auth.IsAuthenticated(ctx))

	_, err = env.resources.ListProducts(ctx, service.ProductFilter{})
	require.ErrorIs(t, err, core.ErrAuthenticationRequired)
	assert.Equal(t, []string{"/login"}, env.navigator.History())
}

func TestRouter_BearerMode(t *testing.T) {
	env := newAPIEnv(t,
		service.ClientConfig{AuthMode: service.AuthModeBearer},
		service.WithHTTPClient(&http.Client{}), // no cookie jar: only the Bearer header authenticates
	)
	ctx := context.Background()

	_, err := env.auth.Login(ctx, "Alpha", "alpha123")
	require.NoError(t, err)

	before, err := env.store.Get(ctx, env.client.Config().AccessTokenKey())
	require.NoError(t, err)

	env.clock.Advance(2 * time.Minute)

	po, err := env.resources.CreatePurchaseOrder(ctx, core.PurchaseOrder{
		SupplierName: "Tech Supplies Inc.",
		Items:        []core.POItem{{ProductID: "p-elec-001", ProductName: "Wireless Mouse", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "draft", po.Status)

	after, err := env.store.Get(ctx, env.client.Config().AccessTokenKey())
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestRouter_ConcurrentExpiriesShareRefresh(t *testing.T) {
	env := newAPIEnv(t, service.ClientConfig{ShareRefresh: true})
	ctx := context.Background()

	_, err := env.auth.Login(ctx, "Alpha", "alpha123")
	require.NoError(t, err)

	env.clock.Advance(2 * time.Minute)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.resources.ListProducts(ctx, service.ProductFilter{})
		}(i)
	}
	wg.Wait()

	// Rotation invalidates the old refresh token, so any refresh that did not
	// join the shared one would have been rejected
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Empty(t, env.navigator.History())
}

func TestRouter_ProtectedRoutesRequireSession(t *testing.T) {
	env := newAPIEnv(t, service.ClientConfig{})

	resp, err := http.Get(env.server.URL + APIPrefix + "/products")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	form := url.Values{"username": {"Alpha"}, "password": {"wrong"}}
	resp, err = http.Post(env.server.URL+APIPrefix+"/auth/login/access-token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_Metrics(t *testing.T) {
	env := newAPIEnv(t, service.ClientConfig{})

	_, err := env.auth.Login(context.Background(), "Alpha", "alpha123")
	require.NoError(t, err)

	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "stockflow_client_requests_total")
}
