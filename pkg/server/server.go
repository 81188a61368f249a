// Package server is the JSON-over-HTTP surface: dashboard reads, maintenance
// administration, case workflow, list and expectation management.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/cases"
	"github.com/netauto/maintcheck/pkg/config"
	"github.com/netauto/maintcheck/pkg/csvio"
	"github.com/netauto/maintcheck/pkg/indicators"
	"github.com/netauto/maintcheck/pkg/logsink"
	"github.com/netauto/maintcheck/pkg/metrics"
	"github.com/netauto/maintcheck/pkg/store"
	"github.com/netauto/maintcheck/pkg/thresholds"
)

// Server wires the HTTP handlers to the domain services.
type Server struct {
	cfg        config.ServerConfig
	logger     *zap.Logger
	store      *store.Store
	indicators *indicators.Engine
	cases      *cases.Engine
	thresholds *thresholds.Service
	importer   *csvio.Importer
	sink       *logsink.Sink
	metrics    *metrics.Metrics

	redis      *redis.Client
	summaryTTL time.Duration

	httpServer *http.Server
}

// Options carries the dependencies New needs; all are required except Redis.
type Options struct {
	Config     config.ServerConfig
	Logger     *zap.Logger
	Store      *store.Store
	Indicators *indicators.Engine
	Cases      *cases.Engine
	Thresholds *thresholds.Service
	Importer   *csvio.Importer
	Sink       *logsink.Sink
	Metrics    *metrics.Metrics
	Redis      *redis.Client
	SummaryTTL time.Duration
}

func New(opts Options) *Server {
	if opts.SummaryTTL <= 0 {
		opts.SummaryTTL = 30 * time.Second
	}
	return &Server{
		cfg:        opts.Config,
		logger:     opts.Logger,
		store:      opts.Store,
		indicators: opts.Indicators,
		cases:      opts.Cases,
		thresholds: opts.Thresholds,
		importer:   opts.Importer,
		sink:       opts.Sink,
		metrics:    opts.Metrics,
		redis:      opts.Redis,
		summaryTTL: opts.SummaryTTL,
	}
}

// Router assembles the full route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-User"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard/summary", s.handleDashboardSummary)
		r.Get("/indicators/{name}/timeseries", s.handleIndicatorTimeseries)
		r.Get("/indicators/{name}/rawdata", s.handleIndicatorRawdata)
		r.Get("/indicators/{name}", s.handleIndicatorEvaluate)

		r.Route("/maintenances", func(r chi.Router) {
			r.Get("/", s.handleListMaintenances)
			r.Post("/", s.handleCreateMaintenance)
			r.Get("/{id}", s.handleGetMaintenance)
			r.Post("/{id}/activate", s.handleActivateMaintenance)
			r.Post("/{id}/deactivate", s.handleDeactivateMaintenance)
			r.Delete("/{id}", s.handleDeleteMaintenance)

			r.Get("/{id}/errors", s.handleCollectionErrors)

			r.Get("/{id}/devices", s.handleListDevices)
			r.Post("/{id}/devices", s.handleCreateDevice)
			r.Post("/{id}/devices/import", s.handleImportDevices)
			r.Get("/{id}/devices/export", s.handleExportDevices)
			r.Put("/{id}/devices/{entryID}", s.handleUpdateDevice)
			r.Delete("/{id}/devices/{entryID}", s.handleDeleteDevice)

			r.Get("/{id}/macs", s.handleListMacs)
			r.Post("/{id}/macs", s.handleCreateMac)
			r.Post("/{id}/macs/import", s.handleImportMacs)
			r.Get("/{id}/macs/export", s.handleExportMacs)
			r.Delete("/{id}/macs/{entryID}", s.handleDeleteMac)

			r.Get("/{id}/expectations/uplink", s.handleListUplinkExpectations)
			r.Post("/{id}/expectations/uplink", s.handleUpsertUplinkExpectation)
			r.Delete("/{id}/expectations/uplink/{expID}", s.handleDeleteUplinkExpectation)
			r.Get("/{id}/expectations/version", s.handleListVersionExpectations)
			r.Post("/{id}/expectations/version", s.handleUpsertVersionExpectation)
			r.Delete("/{id}/expectations/version/{expID}", s.handleDeleteVersionExpectation)
			r.Get("/{id}/expectations/port-channel", s.handleListPortChannelExpectations)
			r.Post("/{id}/expectations/port-channel", s.handleUpsertPortChannelExpectation)
			r.Delete("/{id}/expectations/port-channel/{expID}", s.handleDeletePortChannelExpectation)
			r.Get("/{id}/arp-sources", s.handleListArpSources)
			r.Post("/{id}/arp-sources", s.handleUpsertArpSource)
			r.Delete("/{id}/arp-sources/{expID}", s.handleDeleteArpSource)

			r.Get("/{id}/thresholds", s.handleListThresholds)
			r.Put("/{id}/thresholds/{key}", s.handleSetThreshold)
			r.Delete("/{id}/thresholds/{key}", s.handleDeleteThreshold)

			r.Post("/{id}/cases/sync", s.handleSyncCases)
			r.Get("/{id}/cases", s.handleListCases)
			r.Get("/{id}/cases/stats", s.handleCaseStats)
		})

		r.Route("/cases/{caseID}", func(r chi.Router) {
			r.Get("/", s.handleCaseDetail)
			r.Patch("/", s.handleUpdateCase)
			r.Get("/timeline", s.handleChangeTimeline)
			r.Post("/notes", s.handleAddNote)
		})
		r.Put("/notes/{noteID}", s.handleEditNote)
		r.Delete("/notes/{noteID}", s.handleDeleteNote)

		r.Get("/system-logs", s.handleSystemLogs)
	})

	return r
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.logger.Info("http server listening", zap.Int("port", s.cfg.Port))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response failed", zap.Error(err))
	}
}

func (s *Server) decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", cases.ErrValidation, err)
	}
	return nil
}

// identity returns the caller's username from the X-User header. Resolution
// against the users table happens in the case engine, which owns the rules.
func identity(r *http.Request) string {
	return r.Header.Get("X-User")
}
