// Package server builds and runs the harvester application.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/shelterscout/petharvester/internal/api"
	"github.com/shelterscout/petharvester/internal/clock/system"
	"github.com/shelterscout/petharvester/internal/config"
	"github.com/shelterscout/petharvester/internal/controller"
	"github.com/shelterscout/petharvester/internal/dedup"
	"github.com/shelterscout/petharvester/internal/extract"
	"github.com/shelterscout/petharvester/internal/harvest"
	"github.com/shelterscout/petharvester/internal/logging"
	"github.com/shelterscout/petharvester/internal/metrics"
	"github.com/shelterscout/petharvester/internal/petfinder"
	memorypublisher "github.com/shelterscout/petharvester/internal/publish/memory"
	gcppublisher "github.com/shelterscout/petharvester/internal/publish/pubsub"
	"github.com/shelterscout/petharvester/internal/render"
	"github.com/shelterscout/petharvester/internal/secret"
	csvstore "github.com/shelterscout/petharvester/internal/storage/csv"
	filestore "github.com/shelterscout/petharvester/internal/storage/file"
	gcsstorage "github.com/shelterscout/petharvester/internal/storage/gcs"
	pgstore "github.com/shelterscout/petharvester/internal/storage/postgres"
)

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	ctrl      *controller.Controller
	apiServer *api.Server
	extractor *extract.Extractor

	pubsubClient  *pubsub.Client
	storageClient *storage.Client
	pgCheckpoints *pgstore.CheckpointStore
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies", zap.Int("port", cfg.Server.Port))

	records, err := csvstore.New(cfg.Store.DataDir, logger.Named("records"))
	if err != nil {
		return nil, fmt.Errorf("record store init failed: %w", err)
	}

	checkpoints, err := app.setupCheckpoints(ctx)
	if err != nil {
		return nil, err
	}

	clock := system.New()
	index := dedup.New(records, clock, cfg.Dedup.TTL())

	renderClient := render.New(render.Config{
		BaseURL:        cfg.Render.BaseURL,
		UserAgent:      cfg.Render.UserAgent,
		Timeout:        time.Duration(cfg.Render.TimeoutSeconds) * time.Second,
		JSTimeout:      time.Duration(cfg.Render.JSTimeoutSeconds) * time.Second,
		WaitTimeout:    cfg.Render.WaitTimeout,
		AdditionalWait: cfg.Render.AdditionalWait,
	}, secret.NewFileProvider(cfg.Render.KeyFile))

	app.extractor = extract.New(extract.Config{})

	lister := petfinder.NewLister(renderClient, app.extractor, cfg.Harvest.SearchURL, logger.Named("lister"))
	fetcher := petfinder.NewFetcher(renderClient, app.extractor, logger.Named("fetcher"))
	validator := petfinder.NewValidator(renderClient, app.extractor, logger.Named("validator"))

	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}
	snapshots, err := app.setupSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	app.ctrl = controller.New(
		controller.Config{
			MaxPage:          cfg.Harvest.MaxPage,
			Categories:       toCategories(cfg.Harvest.Categories),
			RetryAttempts:    cfg.Harvest.RetryAttempts,
			RetryDelay:       cfg.Harvest.RetryDelay(),
			ItemDelay:        cfg.Harvest.ItemDelay(),
			VerifyDelay:      cfg.Verify.ItemDelay(),
			FailureThreshold: cfg.Verify.FailureThreshold,
			Cooldown:         cfg.Loop.Cooldown(),
			RestartInterval:  cfg.Loop.RestartInterval(),
			SnapshotPrefix:   cfg.Snapshot.Prefix,
			Topic:            cfg.PubSub.TopicName,
		},
		records,
		checkpoints,
		index,
		lister,
		fetcher,
		validator,
		publisher,
		snapshots,
		clock,
		logger.Named("controller"),
	)

	app.apiServer = api.NewServer(
		ctx,
		app.ctrl,
		records,
		secret.NewFileProvider(cfg.Auth.KeyFile),
		logger.Named("api"),
	)
	return app, nil
}

// Run starts the application and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The loop resumes on boot; the persisted checkpoint decides where.
	if err := a.ctrl.Start(ctx); err != nil {
		a.logger.Warn("controller start failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	a.ctrl.Stop()
	select {
	case <-a.ctrl.Done():
	case <-shutdownCtx.Done():
		a.logger.Warn("controller did not stop before deadline")
	}

	return a.Close()
}

// Close gracefully shuts down the application.
func (a *App) Close() error {
	if a.extractor != nil {
		a.extractor.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storageClient != nil {
		if err := a.storageClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pgCheckpoints != nil {
		a.pgCheckpoints.Close()
	}
	a.logger.Info("shutdown complete")
	return nil
}

// setupCheckpoints picks Postgres when a DSN is configured, otherwise the
// progress document alongside the record table.
func (a *App) setupCheckpoints(ctx context.Context) (harvest.CheckpointStore, error) {
	if a.cfg.Database.DSN != "" {
		a.logger.Info("using postgres checkpoint store")
		store, err := pgstore.NewCheckpointStore(ctx, a.cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("checkpoint store init failed: %w", err)
		}
		a.pgCheckpoints = store
		return store, nil
	}
	a.logger.Info("using file checkpoint store", zap.String("dir", a.cfg.Store.DataDir))
	store, err := filestore.New(a.cfg.Store.DataDir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint store init failed: %w", err)
	}
	return store, nil
}

func (a *App) setupPublisher(ctx context.Context) (harvest.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Info("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName))
	return gcppublisher.New(client), nil
}

// setupSnapshots returns nil when no bucket is configured; the controller
// then skips snapshot uploads.
func (a *App) setupSnapshots(ctx context.Context) (harvest.SnapshotSink, error) {
	if a.cfg.Snapshot.Bucket == "" {
		a.logger.Info("no snapshot bucket configured, skipping table snapshots")
		return nil, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client init failed: %w", err)
	}
	a.storageClient = client
	sink, err := gcsstorage.New(client, a.cfg.Snapshot.Bucket)
	if err != nil {
		return nil, fmt.Errorf("snapshot sink init failed: %w", err)
	}
	a.logger.Info("snapshot sink initialized", zap.String("bucket", a.cfg.Snapshot.Bucket))
	return sink, nil
}

func toCategories(names []string) []harvest.Category {
	out := make([]harvest.Category, 0, len(names))
	for _, name := range names {
		out = append(out, harvest.Category(name))
	}
	return out
}
