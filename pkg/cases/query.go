package cases

import (
	"context"
	"fmt"
	"strings"

	"github.com/netauto/maintcheck/pkg/models"
)

// ListFilter narrows and pages the case list.
type ListFilter struct {
	Assignee        string
	Status          string
	PingReachable   *bool
	Search          string
	IncludeResolved bool
	Page            int
	PageSize        int
}

// ListResult is one page of cases plus the unpaged total.
type ListResult struct {
	Cases    []models.Case `json:"cases"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// ListCases returns a filtered, paginated slice of a maintenance's cases.
// Resolved cases are hidden unless asked for or filtered for explicitly.
func (e *Engine) ListCases(ctx context.Context, maintenanceID string, f ListFilter) (*ListResult, error) {
	where := []string{"maintenance_id = $1"}
	args := []any{maintenanceID}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Assignee != "" {
		where = append(where, "assignee = "+arg(f.Assignee))
	}
	if f.Status != "" {
		if !models.CaseStatus(f.Status).Valid() {
			return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, f.Status)
		}
		where = append(where, "status = "+arg(f.Status))
	} else if !f.IncludeResolved {
		where = append(where, "status <> "+arg(string(models.CaseResolved)))
	}
	if f.PingReachable != nil {
		where = append(where, "last_ping_reachable = "+arg(*f.PingReachable))
	}
	if f.Search != "" {
		p := arg("%" + strings.ToUpper(f.Search) + "%")
		where = append(where, fmt.Sprintf("(UPPER(mac_address) LIKE %s OR UPPER(COALESCE(summary, '')) LIKE %s)", p, p))
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := e.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM cases WHERE "+cond, args...); err != nil {
		return nil, fmt.Errorf("count cases: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 || size > 200 {
		size = 50
	}

	query := fmt.Sprintf(
		"SELECT * FROM cases WHERE %s ORDER BY updated_at DESC, id DESC LIMIT %s OFFSET %s",
		cond, arg(size), arg((page-1)*size))
	var rows []models.Case
	if err := e.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	if rows == nil {
		rows = []models.Case{}
	}
	return &ListResult{Cases: rows, Total: total, Page: page, PageSize: size}, nil
}

// Stats is the case-count breakdown shown on the dashboard.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	Reachable  int            `json:"reachable"`
	Unreached  int            `json:"unreached"`
	WithChange int            `json:"with_change"`
}

// CaseStats aggregates one maintenance's cases.
func (e *Engine) CaseStats(ctx context.Context, maintenanceID string) (*Stats, error) {
	var rows []models.Case
	if err := e.db.SelectContext(ctx, &rows,
		`SELECT * FROM cases WHERE maintenance_id = $1`, maintenanceID); err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}

	st := &Stats{ByStatus: map[string]int{}}
	for _, c := range rows {
		st.Total++
		st.ByStatus[string(c.Status)]++
		if c.LastPingReachable != nil && *c.LastPingReachable {
			st.Reachable++
		} else {
			st.Unreached++
		}
		if strings.Contains(string(c.ChangeFlags), "true") {
			st.WithChange++
		}
	}
	return st, nil
}

// Detail is a case with its discussion and observation history.
type Detail struct {
	Case    models.Case           `json:"case"`
	Notes   []models.CaseNote     `json:"notes"`
	History []models.ClientRecord `json:"history"`
}

// CaseDetail loads one case with notes and the MAC's full record series.
func (e *Engine) CaseDetail(ctx context.Context, caseID int64) (*Detail, error) {
	c, err := e.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	notes, err := e.ListNotes(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []models.CaseNote{}
	}
	history, err := e.store.ClientHistory(ctx, c.MaintenanceID, c.MacAddress)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.ClientRecord{}
	}
	return &Detail{Case: *c, Notes: notes, History: history}, nil
}
