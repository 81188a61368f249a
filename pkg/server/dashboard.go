package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/cases"
	"github.com/netauto/maintcheck/pkg/indicators"
	"github.com/netauto/maintcheck/pkg/models"
)

// DashboardSummary is the per-indicator roll-up the UI landing page renders.
type DashboardSummary struct {
	MaintenanceID string                         `json:"maintenance_id"`
	Indicators    map[string]*indicators.Result  `json:"indicators"`
	Overall       OverallSummary                 `json:"overall"`
}

type OverallSummary struct {
	Total    int     `json:"total"`
	Pass     int     `json:"pass"`
	Fail     int     `json:"fail"`
	PassRate float64 `json:"pass_rate"`
	Summary  string  `json:"summary"`
}

func summaryCacheKey(maintenanceID string) string {
	return "maintcheck:summary:" + maintenanceID
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	maintID := r.URL.Query().Get("maintenance_id")
	if maintID == "" {
		s.writeError(w, r, fmt.Errorf("%w: maintenance_id is required", cases.ErrValidation))
		return
	}
	ctx := r.Context()

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, summaryCacheKey(maintID)).Bytes(); err == nil {
			var out DashboardSummary
			if json.Unmarshal(cached, &out) == nil {
				s.writeJSON(w, http.StatusOK, &out)
				return
			}
		} else if err != redis.Nil {
			s.logger.Warn("summary cache read failed", zap.Error(err))
		}
	}

	if _, err := s.store.GetMaintenance(ctx, maintID); err != nil {
		s.writeError(w, r, err)
		return
	}

	results := s.indicators.EvaluateAll(ctx, maintID)
	out := DashboardSummary{MaintenanceID: maintID, Indicators: results}
	for _, res := range results {
		out.Overall.Total += res.Total
		out.Overall.Pass += res.Pass
		out.Overall.Fail += res.Fail
	}
	if out.Overall.Total > 0 {
		out.Overall.PassRate = rate(out.Overall.Pass, out.Overall.Total)
	}
	out.Overall.Summary = fmt.Sprintf("%d/%d 通過", out.Overall.Pass, out.Overall.Total)

	if s.redis != nil {
		if payload, err := json.Marshal(&out); err == nil {
			if err := s.redis.Set(ctx, summaryCacheKey(maintID), payload, s.summaryTTL).Err(); err != nil {
				s.logger.Warn("summary cache write failed", zap.Error(err))
			}
		}
	}
	s.writeJSON(w, http.StatusOK, &out)
}

func rate(pass, total int) float64 {
	return math.Round(float64(pass)/float64(total)*10000) / 100
}

func (s *Server) indicatorParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	for _, known := range indicators.Names() {
		if name == known {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: unknown indicator %q", cases.ErrValidation, name)
}

func (s *Server) handleIndicatorEvaluate(w http.ResponseWriter, r *http.Request) {
	name, err := s.indicatorParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	maintID := r.URL.Query().Get("maintenance_id")
	if maintID == "" {
		s.writeError(w, r, fmt.Errorf("%w: maintenance_id is required", cases.ErrValidation))
		return
	}
	res, err := s.indicators.Evaluate(r.Context(), name, maintID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// handleIndicatorTimeseries returns the change points for one device, newest
// first: the batches where the payload actually differed.
func (s *Server) handleIndicatorTimeseries(w http.ResponseWriter, r *http.Request) {
	name, err := s.indicatorParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	maintID := q.Get("maintenance_id")
	hostname := q.Get("hostname")
	if maintID == "" || hostname == "" {
		s.writeError(w, r, fmt.Errorf("%w: maintenance_id and hostname are required", cases.ErrValidation))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	batches, err := s.store.BatchHistory(r.Context(), maintID, models.CollectionType(name), hostname, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if batches == nil {
		batches = []models.CollectionBatch{}
	}
	s.writeJSON(w, http.StatusOK, batches)
}

// handleIndicatorRawdata returns the latest raw batch per device, for the
// audit view.
func (s *Server) handleIndicatorRawdata(w http.ResponseWriter, r *http.Request) {
	name, err := s.indicatorParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	maintID := r.URL.Query().Get("maintenance_id")
	if maintID == "" {
		s.writeError(w, r, fmt.Errorf("%w: maintenance_id is required", cases.ErrValidation))
		return
	}
	batches, err := s.store.LatestBatches(r.Context(), maintID, models.CollectionType(name))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if batches == nil {
		batches = []models.CollectionBatch{}
	}
	s.writeJSON(w, http.StatusOK, batches)
}
