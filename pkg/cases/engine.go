// Package cases owns the per-MAC case lifecycle: creation against the MAC
// list, ping hysteresis, the auto-resolve and auto-reopen sweeps, change-flag
// refresh, and human updates with role gating.
package cases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/metrics"
	"github.com/netauto/maintcheck/pkg/models"
	"github.com/netauto/maintcheck/pkg/store"
)

// Sentinel errors for the HTTP layer's taxonomy.
var (
	ErrNotFound   = errors.New("not found")
	ErrPermission = errors.New("permission denied")
	ErrValidation = errors.New("validation failed")
)

// Engine drives every case state transition.
type Engine struct {
	db           *sqlx.DB
	store        *store.Store
	logger       *zap.Logger
	metrics      *metrics.Metrics
	clock        clock.Clock
	stableWindow time.Duration
}

func NewEngine(st *store.Store, logger *zap.Logger, m *metrics.Metrics, clk clock.Clock, stableWindow time.Duration) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	if stableWindow <= 0 {
		stableWindow = 10 * time.Minute
	}
	return &Engine{
		db:           st.DB(),
		store:        st,
		logger:       logger,
		metrics:      m,
		clock:        clk,
		stableWindow: stableWindow,
	}
}

// SyncCases creates a case for every tracked MAC that has none. The assignee
// comes from the MAC entry's default assignee, else the lowest-id ROOT user;
// a derivable assignee opens the case ASSIGNED, otherwise UNASSIGNED.
func (e *Engine) SyncCases(ctx context.Context, maintenanceID string) (int, error) {
	macs, err := e.store.ListMacEntries(ctx, maintenanceID)
	if err != nil {
		return 0, fmt.Errorf("list mac entries: %w", err)
	}
	if len(macs) == 0 {
		return 0, nil
	}

	var existing []string
	if err := e.db.SelectContext(ctx, &existing,
		`SELECT mac_address FROM cases WHERE maintenance_id = $1`, maintenanceID); err != nil {
		return 0, fmt.Errorf("list existing cases: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, mac := range existing {
		have[mac] = true
	}

	fallback, err := e.lowestRootUser(ctx)
	if err != nil {
		return 0, err
	}

	now := e.clock.Now().UTC()
	created := 0
	for _, m := range macs {
		if have[m.MacAddress] {
			continue
		}
		assignee := m.DefaultAssignee
		if assignee == "" && fallback != nil {
			assignee = fallback.Username
		}
		status := models.CaseUnassigned
		var assigneeVal *string
		if assignee != "" {
			status = models.CaseAssigned
			assigneeVal = &assignee
		}
		if _, err := e.db.ExecContext(ctx, `
			INSERT INTO cases
			    (maintenance_id, mac_address, status, assignee, change_flags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, '{}', $5, $5)
			ON CONFLICT (maintenance_id, mac_address) DO NOTHING`,
			maintenanceID, m.MacAddress, status, assigneeVal, now); err != nil {
			return created, fmt.Errorf("create case for %s: %w", m.MacAddress, err)
		}
		created++
	}
	if created > 0 {
		e.logger.Info("cases synced",
			zap.String("maintenance_id", maintenanceID), zap.Int("created", created))
	}
	return created, nil
}

func (e *Engine) lowestRootUser(ctx context.Context) (*models.User, error) {
	var u models.User
	err := e.db.GetContext(ctx, &u, `
		SELECT * FROM users WHERE role = $1 AND is_active ORDER BY id LIMIT 1`,
		models.RoleRoot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find root user: %w", err)
	}
	return &u, nil
}

// UpdatePingStates applies the reachability hysteresis: ping_reachable_since
// is set the moment a MAC becomes reachable, kept while it stays reachable,
// and cleared on any non-reachable observation.
func (e *Engine) UpdatePingStates(ctx context.Context, maintenanceID string) error {
	latest, err := e.store.LatestClientObservation(ctx, maintenanceID)
	if err != nil {
		return fmt.Errorf("load latest client observations: %w", err)
	}

	var caseRows []models.Case
	if err := e.db.SelectContext(ctx, &caseRows,
		`SELECT * FROM cases WHERE maintenance_id = $1`, maintenanceID); err != nil {
		return fmt.Errorf("list cases: %w", err)
	}

	now := e.clock.Now().UTC()
	for _, c := range caseRows {
		obs, ok := latest[c.MacAddress]
		if !ok {
			continue
		}
		r := obs.PingReachable

		var since *time.Time
		if r != nil && *r {
			if c.LastPingReachable != nil && *c.LastPingReachable && c.PingReachableSince != nil {
				since = c.PingReachableSince
			} else {
				since = &now
			}
		}

		if _, err := e.db.ExecContext(ctx, `
			UPDATE cases
			SET last_ping_reachable = $1, ping_reachable_since = $2, updated_at = $3
			WHERE id = $4`,
			r, since, now, c.ID); err != nil {
			return fmt.Errorf("update ping state for case %d: %w", c.ID, err)
		}
	}
	return nil
}

// AutoResolve closes cases that have stayed reachable for the whole stable
// window. IN_PROGRESS and DISCUSSING express human intent and are never
// touched.
func (e *Engine) AutoResolve(ctx context.Context, maintenanceID string) (int64, error) {
	now := e.clock.Now().UTC()
	res, err := e.db.ExecContext(ctx, `
		UPDATE cases
		SET status = $1, updated_at = $2
		WHERE maintenance_id = $3
		  AND last_ping_reachable = TRUE
		  AND ping_reachable_since <= $4
		  AND status IN ($5, $6)`,
		models.CaseResolved, now, maintenanceID, now.Add(-e.stableWindow),
		models.CaseUnassigned, models.CaseAssigned)
	if err != nil {
		return 0, fmt.Errorf("auto-resolve: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		e.metrics.CasesResolved.Add(float64(n))
		e.logger.Info("cases auto-resolved",
			zap.String("maintenance_id", maintenanceID), zap.Int64("count", n))
	}
	return n, nil
}

// AutoReopen puts resolved cases back to ASSIGNED when the endpoint stops
// being reachable.
func (e *Engine) AutoReopen(ctx context.Context, maintenanceID string) (int64, error) {
	now := e.clock.Now().UTC()
	res, err := e.db.ExecContext(ctx, `
		UPDATE cases
		SET status = $1, ping_reachable_since = NULL, updated_at = $2
		WHERE maintenance_id = $3
		  AND status = $4
		  AND last_ping_reachable IS DISTINCT FROM TRUE`,
		models.CaseAssigned, now, maintenanceID, models.CaseResolved)
	if err != nil {
		return 0, fmt.Errorf("auto-reopen: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		e.metrics.CasesReopened.Add(float64(n))
		e.logger.Info("cases auto-reopened",
			zap.String("maintenance_id", maintenanceID), zap.Int64("count", n))
	}
	return n, nil
}

// Sweep runs one full case maintenance pass.
func (e *Engine) Sweep(ctx context.Context, maintenanceID string) error {
	if err := e.UpdatePingStates(ctx, maintenanceID); err != nil {
		return err
	}
	if _, err := e.AutoResolve(ctx, maintenanceID); err != nil {
		return err
	}
	_, err := e.AutoReopen(ctx, maintenanceID)
	return err
}
