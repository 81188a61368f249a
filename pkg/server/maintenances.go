package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/cases"
)

type createMaintenanceRequest struct {
	Name       string          `json:"name"`
	ConfigData json.RawMessage `json:"config_data"`
}

func (s *Server) handleListMaintenances(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListMaintenances(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var req createMaintenanceRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Name == "" {
		s.writeError(w, r, fmt.Errorf("%w: name is required", cases.ErrValidation))
		return
	}
	m, err := s.store.CreateMaintenance(r.Context(), req.Name, req.ConfigData)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetMaintenance(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetMaintenance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleActivateMaintenance(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.SetMaintenanceActive(r.Context(), chi.URLParam(r, "id"), true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeactivateMaintenance(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.SetMaintenanceActive(r.Context(), chi.URLParam(r, "id"), false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

// handleDeleteMaintenance is the explicit operator delete: the schema's
// cascades take every dependent row with the maintenance.
func (s *Server) handleDeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteMaintenance(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("maintenance deleted",
		zap.String("maintenance_id", id),
		zap.String("user", identity(r)))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCollectionErrors(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := s.store.CollectionErrors(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSystemLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := s.sink.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, logs)
}
