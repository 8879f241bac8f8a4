package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/layer-3/stockflow/adapters/events"
	"github.com/layer-3/stockflow/adapters/navigation"
	"github.com/layer-3/stockflow/adapters/store"
	"github.com/layer-3/stockflow/config"
	"github.com/layer-3/stockflow/ports"
	"github.com/layer-3/stockflow/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Credentials used to open a session before running a command.
var (
	username string
	password string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", "",
		"log in as this user before running the command (default: STOCKFLOW_USERNAME env var)")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "",
		"password for --username (default: STOCKFLOW_PASSWORD env var)")
}

// app holds the client side wiring shared by the commands
type app struct {
	cfg       *config.Config
	client    *service.Client
	auth      *service.AuthService
	resources *service.Resources

	closers []func() error
}

// newApp wires the client. With autoLogin a session is opened for --username
// unless a current user is already cached.
func newApp(ctx context.Context, autoLogin bool) (*app, error) {
	if username == "" {
		username = os.Getenv("STOCKFLOW_USERNAME")
	}
	if password == "" {
		password = os.Getenv("STOCKFLOW_PASSWORD")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &app{cfg: cfg}

	var sessionStore ports.Store
	switch cfg.Session.Store {
	case config.StoreRedis:
		rdb, err := newRedisClient(cfg.Session.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		sessionStore = store.NewRedisStore(rdb, store.DefaultRedisPrefix)
	default:
		sessionStore = store.NewMemoryStore()
	}

	opts := []service.Option{
		service.WithStore(sessionStore),
		service.WithNavigator(navigation.Callback{
			Current: func() string { return "/" },
			Redirect: func(_ context.Context, page string) error {
				log.WithField("page", page).Warn("Session ended, log in again with --username")
				return nil
			},
		}),
		service.WithMetrics(service.NewMetrics(prometheus.DefaultRegisterer)),
	}

	if cfg.Events.Enabled {
		publisher, err := a.newEventPublisher()
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, service.WithEventPublisher(publisher))
	}

	a.client, err = service.NewClient(log, cfg.ClientConfig(), opts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating client: %w", err)
	}

	a.auth = service.NewAuthService(log, a.client)
	a.resources = service.NewResources(a.client)

	if autoLogin && username != "" && !a.auth.IsAuthenticated(ctx) {
		if _, err := a.auth.Login(ctx, username, password); err != nil {
			a.Close()
			return nil, fmt.Errorf("logging in as %s: %w", username, err)
		}
	}

	return a, nil
}

func (a *app) newEventPublisher() (ports.EventPublisher, error) {
	rdb, err := newRedisClient(a.cfg.Events.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rdb.Close)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: rdb,
		},
		watermill.NewStdLogger(false, false),
	)
	if err != nil {
		return nil, fmt.Errorf("creating redis stream publisher: %w", err)
	}
	a.closers = append(a.closers, publisher.Close)

	log.WithField("topic", a.cfg.Events.Topic).Debug("Publishing session events")

	return events.NewWatermillPublisher(publisher, a.cfg.Events.Topic), nil
}

// Close releases the connections in reverse order of creation
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, redis.ErrClosed) {
			log.WithError(err).Warn("Failed to close resource")
		}
	}
	a.closers = nil
}

func newRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	log.WithFields(logrus.Fields{"addr": opts.Addr, "db": opts.DB}).Debug("Connecting to redis")

	return redis.NewClient(opts), nil
}
