package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/driftwatch/provision-relay/internal/config"
	"github.com/driftwatch/provision-relay/internal/server/relay/handler"
	"github.com/driftwatch/provision-relay/internal/server/relay/repository"
	"github.com/driftwatch/provision-relay/pkg/deps"
	"github.com/driftwatch/provision-relay/pkg/logger"
	"github.com/driftwatch/provision-relay/pkg/middleware"
	"github.com/driftwatch/provision-relay/pkg/ratelimit"
	"github.com/driftwatch/provision-relay/pkg/retry"
)

func main() {
	log, err := logger.NewLoggerFromEnv("relay")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting provision relay")

	cfg, err := config.LoadRelayConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	log.Info("configuration loaded",
		logger.String("listen_addr", cfg.ListenAddr),
		logger.String("job_kind", string(cfg.JobKind())),
		logger.String("global_rate_limit", cfg.GlobalRateLimit),
		logger.String("per_ip_rate_limit", cfg.PerIPRateLimit),
	)

	perIP, err := ratelimit.ParseLimit(cfg.PerIPRateLimit)
	if err != nil {
		log.WithError(err).Fatal("invalid PER_IP_RATE_LIMIT")
	}
	global, err := ratelimit.ParseLimit(cfg.GlobalRateLimit)
	if err != nil {
		log.WithError(err).Fatal("invalid GLOBAL_RATE_LIMIT")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore := buildStore(ctx, cfg, log)
	defer closeStore()

	limiter := ratelimit.NewLimiter(store, perIP, global)
	launcher := repository.NewAWXClient(cfg, log)

	app := fiber.New(fiber.Config{
		AppName:               "Provision Relay",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.CanonicalLoggerMiddleware(log))

	handler.NewHandler(deps.App{
		Fiber:   app,
		Logger:  log,
		Limiter: limiter,
	}, cfg, launcher)

	gErr, gCtx := errgroup.WithContext(ctx)

	gErr.Go(func() error {
		log.Info("relay is listening", logger.String("address", cfg.ListenAddr))
		if err := app.Listen(cfg.ListenAddr); err != nil {
			cancel()
			return err
		}
		return nil
	})

	gErr.Go(func() error {
		<-gCtx.Done()
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("failed to shutdown fiber app")
			return err
		}
		return nil
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		log.Info("listening for shutdown signals")
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	if err := gErr.Wait(); err != nil {
		log.WithError(err).Fatal("relay encountered an error")
	}

	log.Info("relay stopped gracefully")
}

// buildStore connects the shared counting store, retrying briefly in case the
// relay comes up before Redis. Without REDIS_URL (or when Redis stays down)
// the relay falls back to process-local counters, which only hold for a
// single instance. Horizontally scaled deployments need the shared store.
func buildStore(ctx context.Context, cfg *config.RelayConfig, log *logger.CanonicalLogger) (ratelimit.Store, func()) {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, using in-memory rate limiting (single-instance only)")
		return ratelimit.NewMemoryStore(clockwork.NewRealClock()), func() {}
	}

	var store *ratelimit.RedisStore
	connect := func(c context.Context) error {
		s, err := ratelimit.NewRedisStore(c, cfg.RedisURL, log)
		if err == nil {
			store = s
		}
		return err
	}

	backoffCfg := retry.Config{
		MaxRetries:     5,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Jitter:         true,
	}

	if err := retry.WithExponentialBackoff(ctx, backoffCfg, connect); err != nil {
		log.WithError(err).Warn("redis unreachable, using in-memory rate limiting (single-instance only)")
		return ratelimit.NewMemoryStore(clockwork.NewRealClock()), func() {}
	}

	return store, func() { _ = store.Close() }
}
