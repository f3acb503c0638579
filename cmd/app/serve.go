package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"xquest/internal/api"
	"xquest/internal/catalog"
	"xquest/internal/events"
	"xquest/internal/metrics"
	"xquest/internal/middleware"
	"xquest/internal/repository"
	"xquest/internal/service"
	"xquest/internal/xapi"
	"xquest/pkg/auth"
	"xquest/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

type userStore interface {
	service.UserRepository
	io.Closer
}

func openStore(cfg StorageConfig) (userStore, error) {
	switch cfg.Driver {
	case storagePostgres:
		return repository.New(cfg.Database)
	default:
		return repository.OpenFileStore(cfg.File.Path)
	}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Logger()

	store, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	defer store.Close()

	quests, err := catalog.Load(cfg.Quests.CatalogPath)
	if err != nil {
		return err
	}
	log.Info("Quest catalog loaded", zap.Int("quests", quests.Len()))

	hub := events.NewHub()
	publishers := events.Multi{hub}
	if cfg.Events.AMQP.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Events.AMQP)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
		log.Info("Publishing quest events to rabbitmq", zap.String("exchange", cfg.Events.AMQP.Exchange))
	}

	xClient := xapi.NewClient(cfg.X.APIBaseURL, cfg.X.Timeout)

	userService := service.NewUserService(store)
	questService := service.NewQuestService(store, quests, xapi.NewVerifier(xClient), publishers,
		service.QuestOptions{GuardCompleted: cfg.Quests.GuardCompleted})

	tokens := auth.NewTokenIssuer(cfg.JWT)
	limiter := middleware.NewRateLimiter(cfg.RateLimit)

	router := gin.New()
	// ClientIP feeds the rate limiter, so forwarded headers count only from known proxies.
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPatch,
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(cors.New(corsConfig))

	if cfg.Metrics.Enabled {
		metrics.Register(prometheus.DefaultRegisterer)
		router.Use(middleware.Metrics())
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api.NewHealthRoutes(router)

	a := router.Group("/api")
	api.NewQuestRoutes(a, questService, limiter.Middleware())
	api.NewWSRoutes(ctx, a, userService, hub)
	api.NewUserRoutes(a, userService, tokens.Middleware(), middleware.SelfOnly("id"))
	api.NewAuthRoutes(a, userService,
		auth.NewGoogle(cfg.Google),
		auth.NewX(cfg.X.ProviderConfig),
		xClient,
		tokens,
		api.AuthConfig{
			FrontendURL:   cfg.Server.FrontendURL,
			SecureCookies: cfg.Server.SecureCookies,
		},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		limiter.Cleanup(gCtx)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
