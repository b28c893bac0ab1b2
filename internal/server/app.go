// Package server assembles the MegaVault components from a Config and runs
// them until the process is signalled to stop.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/megavault/internal/logging"
	"github.com/dmitrijs2005/megavault/internal/server/auth"
	"github.com/dmitrijs2005/megavault/internal/server/config"
	"github.com/dmitrijs2005/megavault/internal/server/httpapi"
	"github.com/dmitrijs2005/megavault/internal/server/metastore"
	"github.com/dmitrijs2005/megavault/internal/server/multipart"
	"github.com/dmitrijs2005/megavault/internal/server/objectstore"
	"github.com/dmitrijs2005/megavault/internal/server/scope"
	"github.com/dmitrijs2005/megavault/internal/server/uploads"
	"github.com/dmitrijs2005/megavault/internal/server/visibility"
)

// Seams for tests.
var (
	newGateway   = objectstore.NewFromConfig
	openPostgres = uploads.OpenPostgres
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	server  *httpapi.Server
	sweeper *uploads.Sweeper

	closers []io.Closer
}

func NewApp(ctx context.Context, c *config.Config, out io.Writer) (*App, error) {
	logger, err := logging.New(out, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}
	if err := app.init(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	mode, err := scope.ParseMode(c.StorageMode)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	app.closers = append(app.closers, rdb)

	gateway, err := newGateway(ctx, c)
	if err != nil {
		return fmt.Errorf("s3 init error: %w", err)
	}

	var repo uploads.Repository
	if c.DatabaseDSN != "" {
		db, err := openPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("db init error: %w", err)
		}
		app.closers = append(app.closers, db)
		repo = uploads.NewPostgresRepository(db)
	} else {
		app.logger.Warn(ctx, "no database configured, multipart uploads are tracked in memory")
		repo = uploads.NewMemoryRepository()
	}

	meta := metastore.NewRedisStore(rdb)
	coordinator := multipart.NewCoordinator(gateway, repo, app.logger, reg)

	if c.SweepInterval > 0 {
		app.sweeper = uploads.NewSweeper(repo, gateway, c.StaleUploadAge, c.SweepInterval, app.logger, reg)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Auth:       auth.NewService(c),
		Scopes:     scope.NewResolver(mode, c.UserFolderID),
		Objects:    gateway,
		Meta:       meta,
		Visibility: visibility.NewService(gateway, meta, app.logger),
		Multipart:  coordinator,
		Logger:     app.logger,
		Registry:   reg,
	})

	app.server = httpapi.NewServer(c.HTTPAddr, router, c.ShutdownTimeout, app.logger)
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a termination signal arrives or ctx is cancelled.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...", "mode", app.config.StorageMode, "bucket", app.config.S3Bucket)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	if app.sweeper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.sweeper.Run(ctx)
		}()
	}

	err := app.server.Run(ctx)
	if err != nil {
		app.logger.Error(ctx, "http server failed", "error", err)
	}
	cancelFunc()
	wg.Wait()

	app.logger.Info(ctx, "App stopped")
	return err
}

// Close releases the Redis client and the database pool.
func (app *App) Close() error {
	var first error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	app.closers = nil
	return first
}
