package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/portal/adapters/challenge"
	"github.com/layer-3/portal/adapters/events"
	"github.com/layer-3/portal/adapters/identity"
	"github.com/layer-3/portal/adapters/store"
	"github.com/layer-3/portal/adapters/tokenizer"
	"github.com/layer-3/portal/config"
	"github.com/layer-3/portal/core"
	"github.com/layer-3/portal/internal/logx"
	"github.com/layer-3/portal/ports"
	"github.com/layer-3/portal/service"
	httpapi "github.com/layer-3/portal/transport/http"
	"github.com/redis/go-redis/v9"
)

func run(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logx.New(logx.Config{
		Service: "portal",
		Version: BuildVersion,
		Env:     cfg.Log.Env,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})
	if cfg.Log.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	snapshots, publisher, closeBackends, err := initBackends(cfg)
	if err != nil {
		return err
	}
	defer closeBackends()

	var provider ports.ChallengeProvider
	if cfg.Challenge.URL != "" {
		provider = challenge.NewHTTPProvider(cfg.Challenge.URL, cfg.Challenge.SiteKey)
	} else {
		logger.Warn("challenge.url not set, using static challenge tokens")
		provider = challenge.NewStaticProvider(cfg.Challenge.StaticToken)
	}

	screens := service.NewRegistry(cfg.Screen.TTL)
	defer screens.Close()

	authService := service.NewAuthService(
		identity.NewClient(cfg.Identity.URL, cfg.Identity.Timeout, tokenizer.NewJWTTokenizer()),
		service.NewGate(provider, cfg.Challenge.Timeout),
		snapshots,
		events.NewWatermillPublisher(publisher, cfg.Events.Topic),
		screens,
		service.Options{
			Redirects: core.RedirectPolicy{Domains: cfg.Redirect.Domains},
			Cookies: service.CookieConfig{
				AccessName:  cfg.Cookie.AccessName,
				RefreshName: cfg.Cookie.RefreshName,
				Attributes: core.CookieAttributes{
					Domain:   cfg.Cookie.Domain,
					Path:     "/",
					Secure:   cfg.Cookie.Secure,
					HTTPOnly: cfg.Cookie.HTTPOnly,
				},
			},
			RedirectDelay: cfg.Screen.RedirectDelay,
			ConfirmDelay:  cfg.Screen.ConfirmDelay,
		},
	)

	router := httpapi.SetupRouter(authService, httpapi.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		Burst:             cfg.RateLimit.Burst,
	}, logger)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go screens.Run(ctx, cfg.Screen.SweepInterval)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("portal starting", "addr", cfg.Server.Addr, "version", BuildVersion)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	return shutdown(server, cfg.Server.ShutdownTimeout, logger)
}

func shutdown(server *http.Server, grace time.Duration, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful server shutdown failed", "error", err)
		if err := server.Close(); err != nil {
			logger.Error("error closing server", "error", err)
		}
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("portal stopped")
	return nil
}

// initBackends picks Redis for snapshots and events when configured and
// falls back to in-process implementations otherwise.
func initBackends(cfg *config.Config) (ports.Store, message.Publisher, func(), error) {
	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.Redis.URL == "" {
		publisher := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		return store.NewMemoryStore(), publisher, func() { _ = publisher.Close() }, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisClient := redis.NewClient(opts)

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		wmLogger,
	)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}

	closeAll := func() {
		_ = publisher.Close()
		_ = redisClient.Close()
	}
	return store.NewRedisStore(redisClient), publisher, closeAll, nil
}
