// Package server wires the eventhub components together and runs the HTTP
// API, the gRPC health endpoint and the background scheduler until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/auth"
	"github.com/dmitrijs2005/eventhub/internal/server/config"
	"github.com/dmitrijs2005/eventhub/internal/server/lockout"
	"github.com/dmitrijs2005/eventhub/internal/server/metrics"
	"github.com/dmitrijs2005/eventhub/internal/server/passwords"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/memory"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eventhub/internal/server/rest"
	"github.com/dmitrijs2005/eventhub/internal/server/scheduler"
	"github.com/dmitrijs2005/eventhub/internal/server/services"
	"github.com/dmitrijs2005/eventhub/internal/server/storage"

	gs "github.com/dmitrijs2005/eventhub/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	repos     repomanager.RepositoryManager
	handler   http.Handler
	scheduler *scheduler.Scheduler
	health    *gs.HealthServer
}

// NewApp opens storage, runs migrations and builds the HTTP handler.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	repos, err := openRepositories(ctx, c)
	if err != nil {
		return nil, err
	}

	images, err := storage.New(ctx, c)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("image storage init error: %w", err)
	}

	m := metrics.New()
	issuer := auth.NewIssuer(c.JWTSecret, c.JWTRefreshSecret,
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration, nil)

	users := services.NewUserService(repos, issuer, passwords.NewBcryptHasher(c.BcryptCost),
		lockout.NewStore(c.LockoutAttempts, c.LockoutDuration), m, logger)
	events := services.NewEventService(repos, images, c.MaxUploadSize, logger)

	var uploadDir string
	if local, ok := images.(*storage.LocalStore); ok {
		uploadDir = local.Dir()
	}

	handler, err := rest.NewRouter(rest.RouterConfig{
		Users:          users,
		Events:         events,
		Health:         repos,
		Metrics:        m,
		Log:            logger.With("module", "http"),
		AllowedOrigins: c.AllowedOrigins,
		AuthRateLimit:  c.AuthRateLimit,
		UploadDir:      uploadDir,
	})
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	sched := scheduler.New(logger)
	sched.Every("refresh-token-cleanup", c.CleanupInterval, func(ctx context.Context) error {
		_, err := users.CleanupExpiredTokens(ctx)
		return err
	})

	app := &App{
		config:    c,
		logger:    logger,
		repos:     repos,
		handler:   handler,
		scheduler: sched,
	}
	if c.GRPCAddress != "" {
		app.health = gs.NewHealthServer(c.GRPCAddress, repos, logger)
	}
	return app, nil
}

func openRepositories(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	if c.UsesMemoryStore() {
		return repomanager.NewMemoryRepositoryManager(memory.NewStore()), nil
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	repos, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}
	return repos, nil
}

// Handler returns the HTTP API.
func (app *App) Handler() http.Handler { return app.handler }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails,
// then drains in-flight requests within the shutdown timeout.
func (app *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", app.config.HTTPAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.HTTPAddress, err)
	}
	return app.Serve(ctx, lis)
}

// Serve is Run on an existing listener.
func (app *App) Serve(ctx context.Context, lis net.Listener) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stopSignals := app.initSignalHandler(cancelFunc)
	defer stopSignals()

	app.logger.Info(ctx, "Starting app...")

	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		runErrs []error
	)
	fail := func(err error) {
		errMu.Lock()
		runErrs = append(runErrs, err)
		errMu.Unlock()
		cancelFunc()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail(fmt.Errorf("http server: %w", err))
		}
	}()

	if app.health != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.health.Run(ctx); err != nil {
				fail(fmt.Errorf("grpc server: %w", err))
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.scheduler.Run(ctx); err != nil {
			fail(fmt.Errorf("scheduler: %w", err))
		}
	}()

	<-ctx.Done()
	app.logger.Info(context.Background(), "Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fail(fmt.Errorf("http shutdown: %w", err))
	}

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		runErrs = append(runErrs, fmt.Errorf("db close: %w", err))
	}

	app.logger.Info(context.Background(), "Stopped")
	return errors.Join(runErrs...)
}
