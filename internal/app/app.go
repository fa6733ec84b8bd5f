package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/marks/internal/auth"
	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/controller"
	"github.com/MrSnakeDoc/marks/internal/httpserver"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/redis"
	"github.com/MrSnakeDoc/marks/internal/scheduler"
	badgerstore "github.com/MrSnakeDoc/marks/internal/store/badger"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
	"github.com/MrSnakeDoc/marks/internal/ui"
	"github.com/MrSnakeDoc/marks/internal/utils"
	"github.com/MrSnakeDoc/marks/internal/version"
)

const eventsReadyTimeout = 10 * time.Second

// storage is what both store drivers provide.
type storage interface {
	auth.Store
	backend.Table
	deps.Pinger
}

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	server    *httpserver.Server
	views     *controller.Registry
	events    *redisstore.SessionEvents // nil with the badger driver
	reaper    *scheduler.ViewReaper
	compactor *scheduler.StoreCompactor // nil with the redis driver
	closers   []namedCloser
}

type namedCloser struct {
	name string
	io.Closer
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	a := &App{cfg: cfg, logger: loggerClient}

	store, broker := a.openStore()

	google := auth.NewGoogleProvider(cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.OAuthRedirectURL(auth.ProviderGoogle))
	authSvc := auth.NewService(store, broker, loggerClient.Named("auth"), auth.Options{
		SessionTTL: cfg.SessionTTL,
	}, google)

	a.views = controller.NewRegistry(func(clientID string) controller.Backend {
		return backend.NewClient(clientID, authSvc, store)
	}, loggerClient.Named("view"), nil)

	a.reaper = scheduler.NewViewReaper(a.views, loggerClient.Named("reaper"), cfg.ViewReapInterval, cfg.ViewIdleTTL)

	renderer, err := ui.New()
	if err != nil {
		loggerClient.Fatal("failed to load templates", logger.Error(err))
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		CookieSecure:   cfg.CookieSecure,
		Views:          a.views,
		Auth:           authSvc,
		Renderer:       renderer,
		Store:          store,
		AuthRateBurst:  cfg.AuthRateBurst,
		AuthRatePerMin: cfg.AuthRatePerMin,
	}

	a.server = httpserver.New(cfg, loggerClient, d)
	return a
}

// openStore connects the configured driver - fail fast if unavailable.
func (a *App) openStore() (storage, auth.Broker) {
	cfg, log := a.cfg, a.logger

	switch cfg.StoreDriver {
	case config.StoreBadger:
		store, err := badgerstore.Open(cfg.BadgerPath, log)
		if err != nil {
			log.Errorf("Failed to open badger: %v", err)
			os.Exit(1)
		}
		a.compactor = scheduler.NewStoreCompactor(store, log.Named("compactor"), cfg.BadgerGCInterval)
		a.closers = append(a.closers, namedCloser{"badger", store})
		return store, auth.NewLocalBroker()

	default:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			log.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		log.Info("Redis initialized successfully")

		a.events = redisstore.NewSessionEvents(client, log.Named("session-events"))
		a.closers = append(a.closers, namedCloser{"redis", client})
		return redisstore.NewStore(client), a.events
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Marks v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Marks %s (commit=%s, built=%s, go=%s, store=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion, a.cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)

	// Session events must be flowing before the first sign-in completes
	if a.events != nil {
		go func() {
			if err := a.events.Run(ctx); err != nil {
				errCh <- fmt.Errorf("session events stopped: %w", err)
			}
		}()
		select {
		case <-a.events.Ready():
		case err := <-errCh:
			return err
		case <-time.After(eventsReadyTimeout):
			return fmt.Errorf("session events not ready after %v", eventsReadyTimeout)
		}
	}

	if err := a.reaper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start view reaper: %w", err)
	}
	a.logger.Info("view reaper started",
		logger.Duration("interval", a.cfg.ViewReapInterval),
		logger.Duration("idle_ttl", a.cfg.ViewIdleTTL))

	if a.compactor != nil {
		if err := a.compactor.Start(ctx); err != nil {
			return fmt.Errorf("failed to start store compactor: %w", err)
		}
		a.logger.Info("store compactor started",
			logger.Duration("interval", a.cfg.BadgerGCInterval))
	}

	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
		a.logger.Error("shutting down after failure", logger.Error(runErr))
	}

	a.reaper.Stop()
	if a.compactor != nil {
		a.compactor.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	// views first, they may still be talking to the store
	a.views.Close()
	for _, c := range a.closers {
		utils.MustClose(c, c.name, a.logger)
	}

	if runErr == nil {
		a.logger.Info("✅ Marks stopped cleanly")
	}
	_ = a.logger.Sync()
	return runErr
}
