package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/netauto/maintcheck/pkg/cases"
	"github.com/netauto/maintcheck/pkg/models"
	"github.com/netauto/maintcheck/pkg/thresholds"
)

func expID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "expID"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid expectation id", cases.ErrValidation)
	}
	return id, nil
}

func (s *Server) handleListUplinkExpectations(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListUplinkExpectations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleUpsertUplinkExpectation(w http.ResponseWriter, r *http.Request) {
	var e models.UplinkExpectation
	if err := s.decodeJSON(r, &e); err != nil {
		s.writeError(w, r, err)
		return
	}
	e.MaintenanceID = chi.URLParam(r, "id")
	if e.Hostname == "" || e.LocalInterface == "" || e.ExpectedNeighbor == "" {
		s.writeError(w, r, fmt.Errorf("%w: hostname, local_interface and expected_neighbor are required", cases.ErrValidation))
		return
	}
	if err := s.store.UpsertUplinkExpectation(r.Context(), e); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUplinkExpectation(w http.ResponseWriter, r *http.Request) {
	id, err := expID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteUplinkExpectation(r.Context(), chi.URLParam(r, "id"), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListVersionExpectations(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListVersionExpectations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleUpsertVersionExpectation(w http.ResponseWriter, r *http.Request) {
	var e models.VersionExpectation
	if err := s.decodeJSON(r, &e); err != nil {
		s.writeError(w, r, err)
		return
	}
	e.MaintenanceID = chi.URLParam(r, "id")
	if e.Hostname == "" || e.ExpectedVersion == "" {
		s.writeError(w, r, fmt.Errorf("%w: hostname and expected_version are required", cases.ErrValidation))
		return
	}
	if err := s.store.UpsertVersionExpectation(r.Context(), e); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteVersionExpectation(w http.ResponseWriter, r *http.Request) {
	id, err := expID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteVersionExpectation(r.Context(), chi.URLParam(r, "id"), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPortChannelExpectations(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListPortChannelExpectations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleUpsertPortChannelExpectation(w http.ResponseWriter, r *http.Request) {
	var e models.PortChannelExpectation
	if err := s.decodeJSON(r, &e); err != nil {
		s.writeError(w, r, err)
		return
	}
	e.MaintenanceID = chi.URLParam(r, "id")
	if e.Hostname == "" || e.PortChannel == "" {
		s.writeError(w, r, fmt.Errorf("%w: hostname and port_channel are required", cases.ErrValidation))
		return
	}
	if err := s.store.UpsertPortChannelExpectation(r.Context(), e); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeletePortChannelExpectation(w http.ResponseWriter, r *http.Request) {
	id, err := expID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeletePortChannelExpectation(r.Context(), chi.URLParam(r, "id"), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListArpSources(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListArpSources(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleUpsertArpSource(w http.ResponseWriter, r *http.Request) {
	var e models.ArpSource
	if err := s.decodeJSON(r, &e); err != nil {
		s.writeError(w, r, err)
		return
	}
	if e.Hostname == "" {
		s.writeError(w, r, fmt.Errorf("%w: hostname is required", cases.ErrValidation))
		return
	}
	if err := s.store.UpsertArpSource(r.Context(), chi.URLParam(r, "id"), e.Hostname); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteArpSource(w http.ResponseWriter, r *http.Request) {
	id, err := expID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteArpSource(r.Context(), chi.URLParam(r, "id"), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type thresholdRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleListThresholds(w http.ResponseWriter, r *http.Request) {
	rows, err := s.thresholds.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSetThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	key := chi.URLParam(r, "key")
	if err := thresholds.Validate(key, req.Value); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", cases.ErrValidation, err))
		return
	}
	if err := s.thresholds.Set(r.Context(), chi.URLParam(r, "id"), key, req.Value); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteThreshold(w http.ResponseWriter, r *http.Request) {
	if err := s.thresholds.Delete(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "key")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
