package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/netauto/maintcheck/pkg/cases"
	"github.com/netauto/maintcheck/pkg/models"
)

func caseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "caseID"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid case id", cases.ErrValidation)
	}
	return id, nil
}

func (s *Server) handleSyncCases(w http.ResponseWriter, r *http.Request) {
	created, err := s.cases.SyncCases(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"created": created})
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := cases.ListFilter{
		Assignee: q.Get("assignee"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
	}
	if v := q.Get("ping_reachable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: invalid ping_reachable %q", cases.ErrValidation, v))
			return
		}
		f.PingReachable = &b
	}
	f.IncludeResolved, _ = strconv.ParseBool(q.Get("include_resolved"))
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	res, err := s.cases.ListCases(r.Context(), chi.URLParam(r, "id"), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCaseStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.cases.CaseStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCaseDetail(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detail, err := s.cases.CaseDetail(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

type updateCaseRequest struct {
	Status        *models.CaseStatus `json:"status"`
	Summary       *string            `json:"summary"`
	Assignee      *string            `json:"assignee"`
	ClearAssignee bool               `json:"clear_assignee"`
}

func (s *Server) handleUpdateCase(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateCaseRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.cases.UpdateCase(r.Context(), id, identity(r), cases.CaseUpdate{
		Status:        req.Status,
		Summary:       req.Summary,
		Assignee:      req.Assignee,
		ClearAssignee: req.ClearAssignee,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

// handleChangeTimeline returns one tracked attribute's observed series for
// the case's MAC.
func (s *Server) handleChangeTimeline(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	attr := r.URL.Query().Get("attr")
	c, err := s.cases.GetCase(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	points, err := s.cases.ChangeTimeline(r.Context(), c.MaintenanceID, c.MacAddress, attr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, points)
}

type noteRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req noteRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	note, err := s.cases.AddNote(r.Context(), id, identity(r), req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, note)
}

func noteID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "noteID"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid note id", cases.ErrValidation)
	}
	return id, nil
}

func (s *Server) handleEditNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req noteRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	note, err := s.cases.EditNote(r.Context(), id, identity(r), req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := noteID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.cases.DeleteNote(r.Context(), id, identity(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
