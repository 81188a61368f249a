package server

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/cases"
	"github.com/netauto/maintcheck/pkg/csvio"
	"github.com/netauto/maintcheck/pkg/logsink"
)

// problem is the RFC 7807 error body every failed request returns.
type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// writeError translates the domain error taxonomy to HTTP. Validation,
// permission, and not-found errors carry their message to the caller;
// integrity violations get a translated message and a WARNING log record;
// anything else is a 500 recorded through the sink.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var pgErr *pgconn.PgError

	switch {
	case errors.Is(err, cases.ErrValidation), errors.Is(err, csvio.ErrInvalid):
		s.writeProblem(w, http.StatusBadRequest, "validation failed", err.Error())
	case errors.Is(err, cases.ErrPermission):
		s.writeProblem(w, http.StatusForbidden, "permission denied", err.Error())
	case errors.Is(err, cases.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		s.writeProblem(w, http.StatusNotFound, "not found", "")
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		s.sink.Warning(r.Context(), "server", "uniqueness violation", err.Error())
		s.writeProblem(w, http.StatusBadRequest, "conflict", "資料重複，違反唯一性限制")
	case errors.As(err, &pgErr) && pgErr.Code == "23503":
		s.sink.Warning(r.Context(), "server", "integrity violation", err.Error())
		s.writeProblem(w, http.StatusBadRequest, "conflict", "關聯資料不存在")
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		s.sink.Write(r.Context(), logsink.Entry{
			Level:         "ERROR",
			Source:        "core",
			Module:        "server",
			Summary:       "unhandled request error",
			Detail:        err.Error(),
			Username:      identity(r),
			RequestPath:   r.URL.Path,
			RequestMethod: r.Method,
			StatusCode:    http.StatusInternalServerError,
			IPAddress:     r.RemoteAddr,
		})
		s.writeProblem(w, http.StatusInternalServerError, "internal error", "")
	}
}

func (s *Server) writeProblem(w http.ResponseWriter, status int, title, detail string) {
	s.writeJSON(w, status, problem{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
