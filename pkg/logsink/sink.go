// Package logsink persists structured error records on a connection that is
// independent of any caller transaction, so the record survives when the
// caller rolls back.
package logsink

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/models"
)

// Entry is one record to persist; zero-valued optional fields are stored as
// NULL.
type Entry struct {
	Level         string
	Source        string
	Module        string
	Summary       string
	Detail        string
	Username      string
	MaintenanceID string
	RequestPath   string
	RequestMethod string
	StatusCode    int
	IPAddress     string
}

// Sink writes system log rows. It never returns an error: a sink that can
// take down its caller defeats its purpose, so write failures go to stderr
// and the process logger only.
type Sink struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func New(db *sqlx.DB, logger *zap.Logger) *Sink {
	return &Sink{db: db, logger: logger}
}

const insertLog = `
INSERT INTO system_logs
    (level, source, module, summary, detail, username, maintenance_id,
     request_path, request_method, status_code, ip_address, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// Write persists the entry on a pool connection outside any caller
// transaction.
func (s *Sink) Write(ctx context.Context, e Entry) {
	// Detach from the caller's deadline: a timed-out request must still get
	// its failure recorded.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, insertLog,
		e.Level, e.Source, e.Module, e.Summary, e.Detail,
		nullable(e.Username), nullable(e.MaintenanceID),
		nullable(e.RequestPath), nullable(e.RequestMethod),
		nullableInt(e.StatusCode), nullable(e.IPAddress),
		time.Now().UTC(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logsink: failed to persist %s/%s: %v\n", e.Level, e.Summary, err)
		s.logger.Error("log sink write failed", zap.Error(err), zap.String("summary", e.Summary))
	}
}

// Error is shorthand for an ERROR-level entry.
func (s *Sink) Error(ctx context.Context, module, summary, detail string) {
	s.Write(ctx, Entry{Level: "ERROR", Source: "core", Module: module, Summary: summary, Detail: detail})
}

// Warning is shorthand for a WARNING-level entry.
func (s *Sink) Warning(ctx context.Context, module, summary, detail string) {
	s.Write(ctx, Entry{Level: "WARNING", Source: "core", Module: module, Summary: summary, Detail: detail})
}

// Recent returns the newest entries for the admin view.
func (s *Sink) Recent(ctx context.Context, limit int) ([]models.SystemLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.SystemLog
	err := s.db.SelectContext(ctx, &logs,
		`SELECT * FROM system_logs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	return logs, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
