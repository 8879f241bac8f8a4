package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/stockflow/adapters/store"
	"github.com/layer-3/stockflow/adapters/tokenizer"
	"github.com/layer-3/stockflow/config"
	"github.com/layer-3/stockflow/devapi"
	"github.com/layer-3/stockflow/ports"
	transport "github.com/layer-3/stockflow/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var listen string

var serveCmd = &cobra.Command{
	Use:   "serve-dev",
	Short: "Run the development inventory API",
	Long: `Run a local stand-in for the StockFlow API under /api/v1 with cookie
sessions, refresh rotation and in-memory inventory data.

Point the client at it with:
  STOCKFLOW_API_URL=http://localhost:8000/api/v1 stockflow products -u Alpha -p alpha123`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listen, "listen", "", "address to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if listen != "" {
		cfg.DevServer.Listen = listen
	}

	if err := cfg.ValidateDevServer(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// The revocation list shares the session backend
	var revocations ports.Store
	if cfg.Session.Store == config.StoreRedis {
		rdb, err := newRedisClient(cfg.Session.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		revocations = store.NewRedisStore(rdb, "stockflow:devapi:")
	} else {
		revocations = store.NewMemoryStore()
	}

	issuer, err := devapi.NewIssuer(
		tokenizer.NewJWTTokenizer([]byte(cfg.DevServer.SecretKey), nil),
		revocations,
		devapi.IssuerConfig{
			AccessTTL:  cfg.DevServer.AccessTTL,
			RefreshTTL: cfg.DevServer.RefreshTTL,
			Users:      cfg.DevServer.Users,
		},
	)
	if err != nil {
		return fmt.Errorf("creating issuer: %w", err)
	}

	routerCfg := transport.RouterConfig{SecureCookies: cfg.DevServer.SecureCookies}
	if cfg.Observability.MetricsEnabled && cfg.Observability.MetricsPort == 0 {
		routerCfg.Gatherer = prometheus.DefaultGatherer
	}

	router := transport.SetupRouter(log, issuer, devapi.NewInventory(nil), routerCfg)

	servers := []*http.Server{{Addr: cfg.DevServer.Listen, Handler: router, ReadHeaderTimeout: 10 * time.Second}}
	if cfg.Observability.MetricsEnabled && cfg.Observability.MetricsPort != 0 {
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.WithField("addr", srv.Addr).Info("Listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv)
	}

	log.WithFields(logrus.Fields{
		"addr":        cfg.DevServer.Listen,
		"access_ttl":  cfg.DevServer.AccessTTL,
		"refresh_ttl": cfg.DevServer.RefreshTTL,
	}).Info("Started development API")

	select {
	case <-ctx.Done():
	case err = <-errCh:
		log.WithError(err).Error("Server failed")
	}

	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	for _, srv := range servers {
		if stopErr := srv.Shutdown(shutdownCtx); stopErr != nil {
			log.WithError(stopErr).Error("Failed to stop server")
		}
	}

	return err
}
