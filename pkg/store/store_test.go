package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/benbjohnson/clock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/canonical"
	"github.com/netauto/maintcheck/pkg/metrics"
	"github.com/netauto/maintcheck/pkg/models"
	"github.com/netauto/maintcheck/pkg/parsers"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock, *clock.Mock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	mockClock := clock.NewMock()
	s := New(sqlx.NewDb(db, "sqlmock"), zap.NewNop(), metrics.New("test"), mockClock)
	return s, mock, mockClock
}

func fanItems() parsers.FanItems {
	return parsers.FanItems{
		{FanID: "Fan1", Status: "OK"},
		{FanID: "Fan2", Status: "ok"},
	}
}

func fanHash(t *testing.T) string {
	t.Helper()
	items := fanItems()
	items.Canonicalize()
	h, err := canonical.Hash(items.Raw())
	if err != nil {
		t.Fatal(err)
	}
	return h
}

// First save of a payload writes a batch, the typed rows, and the latest
// pointer in one transaction.
func TestSaveBatchWritesOnFirstObservation(t *testing.T) {
	s, mock, clk := newTestStore(t)
	now := clk.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM latest_collection_batches`).
		WithArgs("m1", "fan", "sw-01").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO collection_batches`).
		WithArgs("m1", "fan", "sw-01", "raw fan text", 2, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(`INSERT INTO fan_records`).
		WithArgs(int64(42), "m1", "sw-01", now, "Fan1", "OK").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO fan_records`).
		WithArgs(int64(42), "m1", "sw-01", now, "Fan2", "ok").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(`INSERT INTO latest_collection_batches`).
		WithArgs("m1", "fan", "sw-01", int64(42), fanHash(t), now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := s.SaveBatch(context.Background(), "m1", models.CollectionFan, "sw-01", "raw fan text", fanItems())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed || res.BatchID != 42 {
		t.Errorf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// Re-saving identical items must not create a batch: only last_checked_at
// moves on the pointer.
func TestSaveBatchUnchangedTouchesPointerOnly(t *testing.T) {
	s, mock, clk := newTestStore(t)
	now := clk.Now().UTC()
	hash := fanHash(t)

	cols := []string{"id", "maintenance_id", "collection_type", "switch_hostname",
		"batch_id", "data_hash", "collected_at", "last_checked_at"}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM latest_collection_batches`).
		WithArgs("m1", "fan", "sw-01").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(7), "m1", "fan", "sw-01", int64(42), hash, now.Add(-time.Hour), now.Add(-time.Minute)))
	mock.ExpectExec(`UPDATE latest_collection_batches SET last_checked_at`).
		WithArgs(now, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.SaveBatch(context.Background(), "m1", models.CollectionFan, "sw-01", "raw fan text", fanItems())
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed {
		t.Error("identical payload must report unchanged")
	}
	if res.BatchID != 42 {
		t.Errorf("unchanged result must point at the existing batch, got %d", res.BatchID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// A changed payload against an existing pointer writes a new batch and
// repoints.
func TestSaveBatchChangeCreatesNewBatch(t *testing.T) {
	s, mock, clk := newTestStore(t)
	now := clk.Now().UTC()

	cols := []string{"id", "maintenance_id", "collection_type", "switch_hostname",
		"batch_id", "data_hash", "collected_at", "last_checked_at"}

	changed := parsers.FanItems{{FanID: "Fan1", Status: "Fault"}}
	changed.Canonicalize()
	newHash, _ := canonical.Hash(changed.Raw())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM latest_collection_batches`).
		WithArgs("m1", "fan", "sw-01").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(7), "m1", "fan", "sw-01", int64(42), "0123456789abcdef", now.Add(-time.Hour), now.Add(-time.Minute)))
	mock.ExpectQuery(`INSERT INTO collection_batches`).
		WithArgs("m1", "fan", "sw-01", "raw", 1, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(43)))
	mock.ExpectExec(`INSERT INTO fan_records`).
		WithArgs(int64(43), "m1", "sw-01", now, "Fan1", "Fault").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO latest_collection_batches`).
		WithArgs("m1", "fan", "sw-01", int64(43), newHash, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.SaveBatch(context.Background(), "m1", models.CollectionFan, "sw-01", "raw",
		parsers.FanItems{{FanID: "Fan1", Status: "Fault"}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed || res.BatchID != 43 {
		t.Errorf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// The sweeper only considers inactive maintenances older than the grace
// cutoff; active ones never match the selection predicate.
func TestSweepRetentionHonoursGrace(t *testing.T) {
	s, mock, clk := newTestStore(t)
	grace := 30 * 24 * time.Hour
	cutoff := clk.Now().UTC().Add(-grace)

	mock.ExpectQuery(`SELECT id FROM maintenances\s+WHERE is_active = FALSE AND updated_at <=`).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("expired-1"))
	mock.ExpectExec(`DELETE FROM latest_collection_batches`).
		WithArgs("expired-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM collection_batches`).
		WithArgs("expired-1").WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectExec(`DELETE FROM collection_errors`).
		WithArgs("expired-1").WillReturnResult(sqlmock.NewResult(0, 2))

	report, err := s.SweepRetention(context.Background(), grace)
	if err != nil {
		t.Fatal(err)
	}
	if report.MaintenancesSwept != 1 {
		t.Errorf("swept %d maintenances, want 1", report.MaintenancesSwept)
	}
	if report.RowsDeleted["collection_batches"] != 12 {
		t.Errorf("batches deleted = %d, want 12", report.RowsDeleted["collection_batches"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
