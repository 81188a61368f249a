// Command maintcheck runs the maintenance sanity-check platform: the
// collection scheduler, the case engine sweeps, and the HTTP API, in one
// process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/cases"
	"github.com/netauto/maintcheck/pkg/config"
	"github.com/netauto/maintcheck/pkg/csvio"
	"github.com/netauto/maintcheck/pkg/database"
	"github.com/netauto/maintcheck/pkg/fetch"
	"github.com/netauto/maintcheck/pkg/indicators"
	"github.com/netauto/maintcheck/pkg/logsink"
	"github.com/netauto/maintcheck/pkg/metrics"
	"github.com/netauto/maintcheck/pkg/models"
	"github.com/netauto/maintcheck/pkg/parsers"
	"github.com/netauto/maintcheck/pkg/scheduler"
	"github.com/netauto/maintcheck/pkg/server"
	"github.com/netauto/maintcheck/pkg/store"
	"github.com/netauto/maintcheck/pkg/thresholds"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "maintcheck: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}

	m := metrics.New("maintcheck")
	sink := logsink.New(db, logger)
	st := store.New(db, logger, m, nil)
	th := thresholds.New(db, cfg.Defaults, logger)
	ind := indicators.NewEngine(st, th, logger)
	caseEngine := cases.NewEngine(st, logger, m, nil, cfg.Cases.StableWindow)

	registry := parsers.NewRegistry()
	parsers.RegisterAll(registry)

	sources := fetch.NewSources(cfg.Sources, logger)
	pipeline := fetch.NewPipeline(sources, registry, st, logger, m, cfg.Scheduler.FetchConcurrency)

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		defer rdb.Close()
	}

	drain := time.Duration(cfg.Scheduler.GracefulShutdownSeconds) * time.Second
	sched := scheduler.New(st, logger, m, nil, drain)
	registerJobs(sched, cfg, pipeline, caseEngine, st, sink)
	sched.Start(ctx)

	// Hot reload applies the threshold defaults; job intervals and server
	// settings need a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, logger, func(next *config.Config) {
			th.SetDefaults(next.Defaults)
		}); err != nil {
			logger.Warn("config watch stopped", zap.Error(err))
		}
	}()

	srv := server.New(server.Options{
		Config:     cfg.Server,
		Logger:     logger,
		Store:      st,
		Indicators: ind,
		Cases:      caseEngine,
		Thresholds: th,
		Importer:   csvio.NewImporter(db),
		Sink:       sink,
		Metrics:    m,
		Redis:      rdb,
		SummaryTTL: cfg.Redis.SummaryTTL,
	})

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	select {
	case err := <-serveErr:
		stop()
		sched.Stop()
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	sched.Stop()
	return nil
}

// registerJobs binds every enabled collection type plus the engine sweeps to
// the scheduler. Collection job names match CollectionType values.
func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	pipeline *fetch.Pipeline,
	caseEngine *cases.Engine,
	st *store.Store,
	sink *logsink.Sink,
) {
	for _, j := range cfg.Jobs {
		if !j.Enabled {
			continue
		}
		ctype := models.CollectionType(j.Name)
		interval := time.Duration(j.IntervalSeconds) * time.Second
		sched.AddJob(j.Name, interval, func(ctx context.Context, maintenanceID string) error {
			return pipeline.Collect(ctx, maintenanceID, ctype)
		})
	}

	sched.AddJob("client_ingest", cfg.Cases.ClientIngestInterval,
		func(ctx context.Context, maintenanceID string) error {
			return pipeline.IngestClients(ctx, maintenanceID)
		})
	sched.AddJob("case_sweep", cfg.Cases.SweepInterval,
		func(ctx context.Context, maintenanceID string) error {
			return caseEngine.Sweep(ctx, maintenanceID)
		})
	sched.AddJob("change_flags", cfg.Cases.ChangeFlagInterval,
		func(ctx context.Context, maintenanceID string) error {
			return caseEngine.RefreshChangeFlags(ctx, maintenanceID)
		})

	sched.AddGlobalJob("retention", cfg.Retention.Interval,
		func(ctx context.Context, _ string) error {
			report, err := st.SweepRetention(ctx, cfg.Retention.Grace)
			if err != nil {
				sink.Error(ctx, "retention", "retention sweep failed", err.Error())
				return err
			}
			if report.MaintenancesSwept > 0 {
				sink.Warning(ctx, "retention", "expired maintenance data purged",
					fmt.Sprintf("maintenances=%d batches=%d",
						report.MaintenancesSwept, report.RowsDeleted["collection_batches"]))
			}
			return nil
		})
}
