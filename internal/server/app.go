// Package server assembles the sync service: backup store, identity provider,
// event channel, reconciler, scheduler and the HTTP and gRPC surfaces. It
// also owns graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/usersync/internal/logging"
	"github.com/dmitrijs2005/usersync/internal/server/backup"
	"github.com/dmitrijs2005/usersync/internal/server/config"
	"github.com/dmitrijs2005/usersync/internal/server/documents"
	"github.com/dmitrijs2005/usersync/internal/server/httpapi"
	"github.com/dmitrijs2005/usersync/internal/server/identity"
	"github.com/dmitrijs2005/usersync/internal/server/orchestrator"
	"github.com/dmitrijs2005/usersync/internal/server/reports"
	"github.com/dmitrijs2005/usersync/internal/server/repositories/metadata"
	"github.com/dmitrijs2005/usersync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/usersync/internal/server/scheduler"
	"github.com/dmitrijs2005/usersync/internal/server/services"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	gs "github.com/dmitrijs2005/usersync/internal/server/grpc"
)

const drainTimeout = 10 * time.Second

type App struct {
	config       *config.Config
	logger       logging.Logger
	backup       *backup.Client
	checkpointDB *sql.DB
	rdb          *redis.Client
	orchestrator *orchestrator.Orchestrator
	httpServer   *http.Server
	grpcServer   *gs.GRPCServer
}

// Stores are the collaborators shared by the server and the one-shot sync
// tool.
type Stores struct {
	Backup     *backup.Client
	Users      *services.UserService
	Reconciler *services.Reconciler
	Provider   identity.Provider
}

// closeBackup releases the pool when a later collaborator fails to init.
var closeBackup = func(c *backup.Client) error { return c.Close() }

// OpenStores connects to the backup store (fail-closed), runs migrations and
// builds the identity provider, document store and report sink configured in
// c. The pool is closed again when any of those fails.
func OpenStores(ctx context.Context, c *config.Config, logger logging.Logger) (st *Stores, err error) {
	client, err := backup.Connect(c, logger)
	if err != nil {
		logger.Error(ctx, "backup store init failed, running without it", "error", err)
		client = backup.Unavailable(err, logger)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if client.Available() {
		v, err := rm.RunMigrations(ctx, client.DB())
		if err != nil {
			logger.Error(ctx, "backup store migrations failed", "error", err)
		} else {
			logger.Info(ctx, "backup schema ready", "version", v)
		}
	}

	defer func() {
		if err != nil {
			_ = closeBackup(client)
		}
	}()

	var provider identity.Provider = identity.Disabled{}
	if c.FirebaseProjectID != "" {
		var opts []option.ClientOption
		if c.FirebaseCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(c.FirebaseCredentialsFile))
		}
		fp, err := identity.NewFirebaseProvider(ctx, c.FirebaseProjectID, opts...)
		if err != nil {
			return nil, err
		}
		provider = fp
	}

	var profiles documents.ProfileStore
	if c.DynamoTable != "" {
		ddb, err := documents.NewDynamoClient(ctx, c)
		if err != nil {
			return nil, err
		}
		profiles = documents.NewDynamoProfileStore(ddb, c.DynamoTable, int32(c.SyncBatchSize), logger)
	}

	var sink services.ReportSink
	if c.S3Bucket != "" {
		s3c, err := reports.NewS3Client(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("s3 init error: %w", err)
		}
		sink = reports.NewS3Sink(s3c, c.S3Bucket)
	}

	users := services.NewUserService(client, rm, provider, logger)
	rec := services.NewReconciler(client, rm, users, provider, profiles, sink, c.SyncBatchSize, logger)

	return &Stores{Backup: client, Users: users, Reconciler: rec, Provider: provider}, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogLevel, c.LogFile)

	st, err := OpenStores(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	cpdb, err := metadata.Open(ctx, c.CheckpointPath)
	if err != nil {
		_ = st.Backup.Close()
		return nil, err
	}
	checkpoints := metadata.NewCheckpointStore(metadata.NewSQLiteRepository(cpdb))
	sched := scheduler.New(st.Reconciler.Job(c.SyncSource), checkpoints, c.SyncInterval, c.SyncCheckInterval, logger)

	var rdb *redis.Client
	var events identity.EventSource
	if c.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
		events = identity.NewRedisEventSource(rdb, c.RedisChannel, logger)
	}

	orch := orchestrator.New(st.Users, events, sched, logger)

	h := httpapi.NewHandler(httpapi.Deps{
		Users:     st.Users,
		Queue:     orch,
		Syncer:    st.Reconciler,
		Health:    st.Backup,
		Scheduler: func() string { return sched.State().String() },
		SecretKey: []byte(c.SecretKey),
		Logger:    logger,
	})

	return &App{
		config:       c,
		logger:       logger,
		backup:       st.Backup,
		checkpointDB: cpdb,
		rdb:          rdb,
		orchestrator: orch,
		httpServer: &http.Server{
			Addr:              c.EndpointAddrHTTP,
			Handler:           h.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		grpcServer: gs.NewGRPCServer(c.EndpointAddrGRPC, logger, st.Backup, c.HealthInterval),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.httpServer.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until a signal arrives or a server fails, then drains pending
// backup writes and releases every store.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.startHTTPServer(gctx) })
	g.Go(func() error { return app.grpcServer.Run(gctx) })
	g.Go(func() error { return app.orchestrator.Run(gctx) })

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "server stopped with error", "error", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if derr := app.orchestrator.Drain(drainCtx); derr != nil {
		app.logger.Warn(drainCtx, "pending backup writes abandoned", "error", derr)
	}

	app.close()
	app.logger.Info(drainCtx, "App stopped")
	return err
}

func (app *App) close() {
	if err := app.backup.Close(); err != nil {
		app.logger.Warn(context.Background(), "failed to close backup store", "error", err)
	}
	if err := app.checkpointDB.Close(); err != nil {
		app.logger.Warn(context.Background(), "failed to close checkpoint db", "error", err)
	}
	if app.rdb != nil {
		_ = app.rdb.Close()
	}
}
