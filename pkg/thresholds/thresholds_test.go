package thresholds

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/config"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock"), config.Default().Defaults, zap.NewNop()), mock
}

func TestSnapshotMergesOverrides(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`SELECT \* FROM threshold_overrides`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "maintenance_id", "key", "value"}).
			AddRow(int64(1), "m1", "rx_power_min", "-18.5").
			AddRow(int64(2), "m1", "fan_healthy", "OK, Normal ,Good").
			AddRow(int64(3), "m1", "temperature_max", "not-a-number"))

	snap, err := svc.Snapshot(context.Background(), "m1")
	if err != nil {
		t.Fatal(err)
	}
	if snap.RxPower.Min != -18.5 {
		t.Errorf("rx min = %v, want -18.5", snap.RxPower.Min)
	}
	if snap.RxPower.Max != config.Default().Defaults.RxPower.Max {
		t.Errorf("rx max must keep the default, got %v", snap.RxPower.Max)
	}
	if len(snap.FanHealthy) != 3 || snap.FanHealthy[2] != "Good" {
		t.Errorf("fan healthy = %v", snap.FanHealthy)
	}
	if snap.Temperature.Max != config.Default().Defaults.Temperature.Max {
		t.Errorf("malformed override must be skipped, got %v", snap.Temperature.Max)
	}
}

func TestSetRejectsUnknownKeyAndBadValue(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.Set(context.Background(), "m1", "bogus_key", "1"); err == nil {
		t.Error("unknown key must be rejected")
	}
	if err := svc.Set(context.Background(), "m1", KeyVoltageMax, "high"); err == nil {
		t.Error("non-numeric value for a numeric key must be rejected")
	}
}

func TestSetUpserts(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec(`INSERT INTO threshold_overrides`).
		WithArgs("m1", KeyTxPowerMax, "2.5").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := svc.Set(context.Background(), "m1", KeyTxPowerMax, "2.5"); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
