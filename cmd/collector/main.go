// Package main wires together the trending collector service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pubsubv2 "cloud.google.com/go/pubsub/v2"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/trendlens/collector/internal/api"
	gcsarchive "github.com/trendlens/collector/internal/archive/gcs"
	"github.com/trendlens/collector/internal/categories"
	"github.com/trendlens/collector/internal/classify"
	"github.com/trendlens/collector/internal/clock/system"
	"github.com/trendlens/collector/internal/collector"
	"github.com/trendlens/collector/internal/config"
	"github.com/trendlens/collector/internal/id/uuid"
	"github.com/trendlens/collector/internal/logging"
	gpubsub "github.com/trendlens/collector/internal/publisher/pubsub"
	"github.com/trendlens/collector/internal/runledger"
	"github.com/trendlens/collector/internal/source/youtube"
	memoryStorage "github.com/trendlens/collector/internal/storage/memory"
	pgstorage "github.com/trendlens/collector/internal/storage/postgres"
	"github.com/trendlens/collector/internal/telemetry"
	"github.com/trendlens/collector/internal/trending"
)

// runTrigger adapts the ledger/collector pair to the API trigger.
type runTrigger struct {
	ledger *runledger.Ledger
	runner runledger.Runner
}

func (t *runTrigger) TriggerRun(ctx context.Context) runledger.Result {
	return t.ledger.Execute(ctx, t.runner)
}

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	telemetry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Source.APIKey == "" {
		logger.Fatal("source.api_key is required")
	}

	clock := system.New()
	idGen := uuid.NewUUIDGenerator()

	var (
		videoStore  trending.VideoStore
		feedLog     trending.FeedLog
		runStore    trending.RunStore
		reportStore trending.ReportStore
	)
	if cfg.DB.DSN != "" {
		pool, err := pgstorage.Connect(ctx, pgstorage.Config{
			DSN:             cfg.DB.DSN,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: cfg.ConnLifetime(),
		})
		if err != nil {
			logger.Fatal("postgres connect failed", zap.Error(err))
		}
		defer pool.Close()
		videoStore = pgstorage.NewVideoStore(pool)
		feedLog = pgstorage.NewFeedLog(pool)
		runStore = pgstorage.NewRunStore(pool)
		reportStore = pgstorage.NewReportStore(pool)
		logger.Info("using postgres stores")
	} else {
		memVideos := memoryStorage.NewVideoStore()
		videoStore = memVideos
		feedLog = memVideos
		reportStore = memVideos
		runStore = memoryStorage.NewRunStore()
		logger.Warn("db.dsn not set, using in-memory stores")
	}

	source, err := youtube.New(ctx, cfg.Source.APIKey, cfg.FetchTimeout())
	if err != nil {
		logger.Fatal("video source init failed", zap.Error(err))
	}

	var publisher trending.Publisher
	if cfg.PubSub.Enabled {
		client, err := pubsubv2.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("pubsub client init failed", zap.Error(err))
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("pubsub client close failed", zap.Error(closeErr))
			}
		}()
		publisher = gpubsub.New(client.Publisher(cfg.PubSub.TopicName))
	}

	var archive trending.BlobStore
	if cfg.Storage.Enabled {
		gcsClient, err := gcstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("gcs client init failed", zap.Error(err))
		}
		defer func() {
			if closeErr := gcsClient.Close(); closeErr != nil {
				logger.Warn("gcs client close failed", zap.Error(closeErr))
			}
		}()
		archive, err = gcsarchive.New(gcsClient, gcsarchive.Config{
			Bucket: cfg.Storage.GCSBucket,
			Prefix: cfg.Storage.Prefix,
		})
		if err != nil {
			logger.Fatal("archive init failed", zap.Error(err))
		}
	}

	classifier := classify.New(classify.Config{
		Short: classify.Thresholds{Viral: cfg.Thresholds.ShortViral, Stable: cfg.Thresholds.ShortStable},
		Long:  classify.Thresholds{Viral: cfg.Thresholds.LongViral, Stable: cfg.Thresholds.LongStable},
	}, clock)

	categoryCache := categories.New(source, cfg.CategoryTTL(), clock, logger.Named("categories"))
	pacer := collector.NewPacer(cfg.PaceInterval())

	runner := collector.New(
		source,
		categoryCache,
		classifier,
		videoStore,
		feedLog,
		pacer,
		archive,
		clock,
		logger.Named("collector"),
		collector.Config{
			Regions:      cfg.Collector.Regions,
			PageSize:     int64(cfg.Source.PageSize),
			FetchTimeout: cfg.FetchTimeout(),
		},
	)

	ledger := runledger.New(runStore, idGen, clock, publisher, cfg.PubSub.TopicName, logger.Named("ledger"))
	trigger := &runTrigger{ledger: ledger, runner: runner}

	apiServer := api.NewServer(trigger, runStore, videoStore, reportStore, logger.Named("api"), cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
