package cases

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/benbjohnson/clock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/metrics"
	"github.com/netauto/maintcheck/pkg/models"
	"github.com/netauto/maintcheck/pkg/store"
)

var caseCols = []string{"id", "maintenance_id", "mac_address", "status", "assignee",
	"summary", "last_ping_reachable", "ping_reachable_since", "change_flags",
	"created_at", "updated_at"}

var clientCols = []string{"id", "maintenance_id", "mac_address", "switch_hostname",
	"interface_name", "vlan_id", "speed", "duplex", "link_status",
	"ping_reachable", "acl_passes", "collected_at"}

var userCols = []string{"id", "username", "role", "is_active", "created_at"}

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock, *clock.Mock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	sdb := sqlx.NewDb(db, "sqlmock")
	clk := clock.NewMock()
	st := store.New(sdb, zap.NewNop(), metrics.New("test"), clk)
	eng := NewEngine(st, zap.NewNop(), metrics.New("test2"), clk, 10*time.Minute)
	return eng, mock, clk
}

func caseRow(id int64, mac string, status models.CaseStatus, assignee *string,
	reachable *bool, since *time.Time, now time.Time) []driver.Value {
	return []driver.Value{id, "m1", mac, string(status), assignee, nil,
		reachable, since, []byte(`{}`), now, now}
}

// A MAC turning reachable gets ping_reachable_since stamped; one that was
// already reachable keeps its original stamp; an unreachable one is cleared.
func TestUpdatePingStatesHysteresis(t *testing.T) {
	eng, mock, clk := newTestEngine(t)
	now := clk.Now().UTC()
	earlier := now.Add(-20 * time.Minute)
	yes, no := true, false

	mock.ExpectQuery(`SELECT DISTINCT ON \(mac_address\) \*\s+FROM client_records`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows(clientCols).
			AddRow(int64(1), "m1", "AA:BB:CC:DD:EE:01", nil, nil, nil, nil, nil, nil, true, nil, now).
			AddRow(int64(2), "m1", "AA:BB:CC:DD:EE:02", nil, nil, nil, nil, nil, nil, true, nil, now).
			AddRow(int64(3), "m1", "AA:BB:CC:DD:EE:03", nil, nil, nil, nil, nil, nil, false, nil, now))
	mock.ExpectQuery(`SELECT \* FROM cases WHERE maintenance_id`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows(caseCols).
			AddRow(caseRow(1, "AA:BB:CC:DD:EE:01", models.CaseAssigned, sp("alice"), nil, nil, now)...).
			AddRow(caseRow(2, "AA:BB:CC:DD:EE:02", models.CaseAssigned, sp("alice"), &yes, &earlier, now)...).
			AddRow(caseRow(3, "AA:BB:CC:DD:EE:03", models.CaseAssigned, sp("alice"), &yes, &earlier, now)...))

	// Newly reachable: since := now.
	mock.ExpectExec(`UPDATE cases`).
		WithArgs(&yes, &now, now, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Continuously reachable: since keeps its old stamp.
	mock.ExpectExec(`UPDATE cases`).
		WithArgs(&yes, &earlier, now, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// No longer reachable: since cleared.
	mock.ExpectExec(`UPDATE cases`).
		WithArgs(&no, nil, now, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := eng.UpdatePingStates(context.Background(), "m1"); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// Auto-resolve fires only for cases stable through the whole window, and only
// from UNASSIGNED or ASSIGNED.
func TestAutoResolveCutoff(t *testing.T) {
	eng, mock, clk := newTestEngine(t)
	now := clk.Now().UTC()

	mock.ExpectExec(`UPDATE cases`).
		WithArgs(string(models.CaseResolved), now, "m1", now.Add(-10*time.Minute),
			string(models.CaseUnassigned), string(models.CaseAssigned)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := eng.AutoResolve(context.Background(), "m1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("resolved %d, want 2", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAutoReopenTargetsResolvedOnly(t *testing.T) {
	eng, mock, clk := newTestEngine(t)
	now := clk.Now().UTC()

	mock.ExpectExec(`UPDATE cases`).
		WithArgs(string(models.CaseAssigned), now, "m1", string(models.CaseResolved)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := eng.AutoReopen(context.Background(), "m1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("reopened %d, want 1", n)
	}
}

func expectGetCase(mock sqlmock.Sqlmock, id int64, status models.CaseStatus,
	assignee *string, reachable *bool, now time.Time) {
	since := now.Add(-time.Hour)
	var sincePtr *time.Time
	if reachable != nil && *reachable {
		sincePtr = &since
	}
	mock.ExpectQuery(`SELECT \* FROM cases WHERE id`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(caseCols).
			AddRow(caseRow(id, "AA:BB:CC:DD:EE:01", status, assignee, reachable, sincePtr, now)...))
}

func expectGetUser(mock sqlmock.Sqlmock, username string, role models.UserRole) {
	mock.ExpectQuery(`SELECT \* FROM users WHERE username`).
		WithArgs(username).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(1), username, string(role), true, time.Now()))
}

// Only the assignee may change status or summary.
func TestUpdateCaseNonAssigneeRejected(t *testing.T) {
	eng, mock, clk := newTestEngine(t)
	now := clk.Now().UTC()

	expectGetCase(mock, 1, models.CaseAssigned, sp("alice"), nil, now)
	expectGetUser(mock, "bob", models.RoleMember)

	status := models.CaseInProgress
	_, err := eng.UpdateCase(context.Background(), 1, "bob", CaseUpdate{Status: &status})
	if err == nil || !isPermission(err) {
		t.Fatalf("want permission error, got %v", err)
	}
}

// Resolving is rejected while the endpoint is not reachable.
func TestUpdateCaseResolveNeedsReachability(t *testing.T) {
	eng, mock, clk := newTestEngine(t)
	now := clk.Now().UTC()
	no := false

	expectGetCase(mock, 1, models.CaseInProgress, sp("alice"), &no, now)
	expectGetUser(mock, "alice", models.RoleMember)

	status := models.CaseResolved
	_, err := eng.UpdateCase(context.Background(), 1, "alice", CaseUpdate{Status: &status})
	if err == nil || !isValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
}

// Clearing the assignee demotes the case to UNASSIGNED.
func TestUpdateCaseClearAssigneeDemotes(t *testing.T) {
	eng, mock, clk := newTestEngine(t)
	now := clk.Now().UTC()

	expectGetCase(mock, 1, models.CaseAssigned, sp("alice"), nil, now)
	expectGetUser(mock, "alice", models.RoleMember)
	mock.ExpectExec(`UPDATE cases`).
		WithArgs(string(models.CaseUnassigned), nil, nil, now, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectGetCase(mock, 1, models.CaseUnassigned, nil, nil, now)

	c, err := eng.UpdateCase(context.Background(), 1, "alice", CaseUpdate{ClearAssignee: true})
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != models.CaseUnassigned || c.Assignee != nil {
		t.Errorf("case = %+v", c)
	}
}

// Assigning an unassigned case is for ROOT or PM, and promotes to ASSIGNED.
func TestUpdateCaseAssignPromotes(t *testing.T) {
	eng, mock, clk := newTestEngine(t)
	now := clk.Now().UTC()

	expectGetCase(mock, 1, models.CaseUnassigned, nil, nil, now)
	expectGetUser(mock, "pm", models.RolePM)
	expectGetUser(mock, "carol", models.RoleMember)
	mock.ExpectExec(`UPDATE cases`).
		WithArgs(string(models.CaseAssigned), sp("carol"), nil, now, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectGetCase(mock, 1, models.CaseAssigned, sp("carol"), nil, now)

	c, err := eng.UpdateCase(context.Background(), 1, "pm", CaseUpdate{Assignee: sp("carol")})
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != models.CaseAssigned {
		t.Errorf("status = %s, want ASSIGNED", c.Status)
	}

	// A plain member may not assign an open case.
	expectGetCase(mock, 1, models.CaseUnassigned, nil, nil, now)
	expectGetUser(mock, "bob", models.RoleMember)
	if _, err := eng.UpdateCase(context.Background(), 1, "bob", CaseUpdate{Assignee: sp("carol")}); err == nil || !isPermission(err) {
		t.Fatalf("want permission error, got %v", err)
	}
}

// SyncCases derives the assignee from the MAC entry, else the lowest-id ROOT.
func TestSyncCasesAssignee(t *testing.T) {
	eng, mock, clk := newTestEngine(t)
	now := clk.Now().UTC()

	macCols := []string{"id", "maintenance_id", "mac_address", "description",
		"default_assignee", "ip_address", "tenant_group"}
	mock.ExpectQuery(`SELECT \* FROM maintenance_mac_lists`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows(macCols).
			AddRow(int64(1), "m1", "AA:BB:CC:DD:EE:01", "", "dave", "", "").
			AddRow(int64(2), "m1", "AA:BB:CC:DD:EE:02", "", "", "", ""))
	mock.ExpectQuery(`SELECT mac_address FROM cases`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"mac_address"}))
	mock.ExpectQuery(`SELECT \* FROM users WHERE role`).
		WithArgs(string(models.RoleRoot)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(1), "root", "ROOT", true, now))

	mock.ExpectExec(`INSERT INTO cases`).
		WithArgs("m1", "AA:BB:CC:DD:EE:01", string(models.CaseAssigned), sp("dave"), now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO cases`).
		WithArgs("m1", "AA:BB:CC:DD:EE:02", string(models.CaseAssigned), sp("root"), now).
		WillReturnResult(sqlmock.NewResult(2, 1))

	created, err := eng.SyncCases(context.Background(), "m1")
	if err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func isPermission(err error) bool { return errors.Is(err, ErrPermission) }
func isValidation(err error) bool { return errors.Is(err, ErrValidation) }
