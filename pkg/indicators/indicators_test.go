package indicators

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/config"
	"github.com/netauto/maintcheck/pkg/metrics"
	"github.com/netauto/maintcheck/pkg/store"
	"github.com/netauto/maintcheck/pkg/thresholds"
)

var deviceCols = []string{"id", "maintenance_id", "old_hostname", "old_ip", "old_vendor",
	"new_hostname", "new_ip", "new_vendor", "use_same_port", "tenant_group",
	"is_reachable", "last_check_at", "description"}

func deviceRow(id int64, hostname, ip string) []driver.Value {
	return []driver.Value{id, "m1", hostname, ip, "HPE", "", "", "", false, "", nil, nil, ""}
}

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	sdb := sqlx.NewDb(db, "sqlmock")
	st := store.New(sdb, zap.NewNop(), metrics.New("test"), nil)
	th := thresholds.New(sdb, config.Default().Defaults, zap.NewNop())
	return NewEngine(st, th, zap.NewNop()), mock
}

func expectDevices(mock sqlmock.Sqlmock, hostnames ...string) {
	rows := sqlmock.NewRows(deviceCols)
	for i, h := range hostnames {
		rows.AddRow(deviceRow(int64(i+1), h, fmt.Sprintf("10.0.0.%d", i+1))...)
	}
	mock.ExpectQuery(`SELECT \* FROM maintenance_device_lists`).
		WithArgs("m1").WillReturnRows(rows)
}

func expectNoOverrides(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT \* FROM threshold_overrides`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "maintenance_id", "key", "value"}))
}

func recordCols(extra ...string) []string {
	base := []string{"id", "batch_id", "maintenance_id", "switch_hostname", "collected_at"}
	return append(base, extra...)
}

func f(v float64) *float64 { return &v }

// A record with every field out of range yields one failure whose reason
// carries all four per-field reasons.
func TestTransceiverAllFieldsOutOfRange(t *testing.T) {
	eng, mock := newTestEngine(t)
	now := time.Now()

	expectDevices(mock, "sw-01")
	expectNoOverrides(mock)
	mock.ExpectQuery(`SELECT r\.\* FROM transceiver_records r`).
		WithArgs("m1", "transceiver").
		WillReturnRows(sqlmock.NewRows(recordCols("interface_name", "channel", "tx_power", "rx_power", "temperature", "voltage")).
			AddRow(int64(1), int64(10), "m1", "sw-01", now, "XGE1/0/1", 1, f(-15), f(5), f(85), f(2.5)))

	res, err := eng.Evaluate(context.Background(), IndicatorTransceiver, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Fail != 1 || res.Total != 1 {
		t.Fatalf("fail=%d total=%d, want 1/1", res.Fail, res.Total)
	}
	reason := res.Failures[0].Reason
	for _, want := range []string{"Tx Power 過低", "Rx Power 過高", "溫度過高", "電壓過低"} {
		if !strings.Contains(reason, want) {
			t.Errorf("reason %q missing %q", reason, want)
		}
	}
	if strings.Count(reason, " | ") != 3 {
		t.Errorf("reason %q must join four parts with ' | '", reason)
	}
}

// All-null rows are flagged as an unreadable module, not as four missing
// fields.
func TestTransceiverAbsentModule(t *testing.T) {
	eng, mock := newTestEngine(t)
	now := time.Now()

	expectDevices(mock, "sw-01")
	expectNoOverrides(mock)
	mock.ExpectQuery(`SELECT r\.\* FROM transceiver_records r`).
		WithArgs("m1", "transceiver").
		WillReturnRows(sqlmock.NewRows(recordCols("interface_name", "channel", "tx_power", "rx_power", "temperature", "voltage")).
			AddRow(int64(1), int64(10), "m1", "sw-01", now, "XGE1/0/2", 1, nil, nil, nil, nil).
			AddRow(int64(2), int64(10), "m1", "sw-01", now, "XGE1/0/3", 1, f(-5), f(-7), f(40), nil))

	res, err := eng.Evaluate(context.Background(), IndicatorTransceiver, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Failures[0].Reason != "光模塊缺失或無法讀取" {
		t.Errorf("reason = %q", res.Failures[0].Reason)
	}
	// The second row reports three in-range fields and a null voltage; null
	// alone never fails a record.
	if res.Pass != 1 {
		t.Errorf("pass = %d, want 1", res.Pass)
	}
	if _, ok := res.PassRates["voltage"]; ok {
		t.Error("voltage pass rate must be absent when no row reports voltage")
	}
	if res.PassRates["tx_power"] != 100 {
		t.Errorf("tx_power pass rate = %v", res.PassRates["tx_power"])
	}
}

// Records from devices outside the active list are silently dropped.
func TestTransceiverFiltersInactiveDevices(t *testing.T) {
	eng, mock := newTestEngine(t)
	now := time.Now()

	expectDevices(mock, "sw-01")
	expectNoOverrides(mock)
	mock.ExpectQuery(`SELECT r\.\* FROM transceiver_records r`).
		WithArgs("m1", "transceiver").
		WillReturnRows(sqlmock.NewRows(recordCols("interface_name", "channel", "tx_power", "rx_power", "temperature", "voltage")).
			AddRow(int64(1), int64(10), "m1", "sw-01", now, "XGE1/0/1", 1, f(-5), f(-7), f(40), f(3.3)).
			AddRow(int64(2), int64(11), "m1", "sw-99", now, "XGE1/0/1", 1, f(-99), f(99), f(99), f(0)))

	res, err := eng.Evaluate(context.Background(), IndicatorTransceiver, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 1 || res.Fail != 0 {
		t.Errorf("total=%d fail=%d, want only the active device's record", res.Total, res.Fail)
	}
}

func TestPingMissingAndUnreachable(t *testing.T) {
	eng, mock := newTestEngine(t)
	now := time.Now()

	expectDevices(mock, "sw-01", "sw-02", "sw-03")
	mock.ExpectQuery(`SELECT r\.\* FROM ping_records r`).
		WithArgs("m1", "ping").
		WillReturnRows(sqlmock.NewRows(recordCols("target_ip", "is_reachable", "success_rate", "last_check_at")).
			AddRow(int64(1), int64(10), "m1", "sw-01", now, "10.0.0.1", true, nil, now).
			AddRow(int64(2), int64(11), "m1", "sw-02", now, "10.0.0.2", false, nil, now))

	res, err := eng.Evaluate(context.Background(), IndicatorPing, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 || res.Pass != 1 || res.Fail != 2 {
		t.Fatalf("total=%d pass=%d fail=%d", res.Total, res.Pass, res.Fail)
	}
	reasons := map[string]string{}
	for _, e := range res.Failures {
		reasons[e.SwitchHostname] = e.Reason
	}
	if reasons["sw-02"] != "Ping 不可達" {
		t.Errorf("sw-02 reason = %q", reasons["sw-02"])
	}
	if reasons["sw-03"] != "尚無採集數據" {
		t.Errorf("sw-03 reason = %q", reasons["sw-03"])
	}
	if res.PassRates["reachable"] != 33.33 {
		t.Errorf("reachable rate = %v", res.PassRates["reachable"])
	}
}

func TestFanDeviceWithoutRowsFails(t *testing.T) {
	eng, mock := newTestEngine(t)
	now := time.Now()

	expectDevices(mock, "sw-01", "sw-02")
	expectNoOverrides(mock)
	mock.ExpectQuery(`SELECT r\.\* FROM fan_records r`).
		WithArgs("m1", "fan").
		WillReturnRows(sqlmock.NewRows(recordCols("fan_id", "status")).
			AddRow(int64(1), int64(10), "m1", "sw-01", now, "Fan1", "OK").
			AddRow(int64(2), int64(10), "m1", "sw-01", now, "Fan2", " ok "))

	res, err := eng.Evaluate(context.Background(), IndicatorFan, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 2 || res.Pass != 1 || res.Fail != 1 {
		t.Fatalf("total=%d pass=%d fail=%d", res.Total, res.Pass, res.Fail)
	}
	if res.Failures[0].SwitchHostname != "sw-02" || res.Failures[0].Reason != "未檢測到風扇" {
		t.Errorf("failure = %+v", res.Failures[0])
	}
}

// Growth of the CRC counter fails with the delta spelled out; a reset passes.
func TestErrorCountDelta(t *testing.T) {
	eng, mock := newTestEngine(t)
	now := time.Now()
	cols := recordCols("interface_name", "crc_errors", "input_errors", "output_errors")

	expectDevices(mock, "sw-01")
	mock.ExpectQuery(`SELECT r\.\* FROM interface_error_records r\s+JOIN`).
		WithArgs("m1", "error_count").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(3), int64(20), "m1", "sw-01", now, "GE1/0/1", int64(15), int64(0), int64(0)).
			AddRow(int64(4), int64(20), "m1", "sw-01", now, "GE1/0/2", int64(15), int64(0), int64(0)))
	mock.ExpectQuery(`SELECT r\.\* FROM interface_error_records r\s+WHERE r\.batch_id IN`).
		WithArgs("m1", "error_count").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), int64(19), "m1", "sw-01", now.Add(-time.Hour), "GE1/0/1", int64(10), int64(0), int64(0)).
			AddRow(int64(2), int64(19), "m1", "sw-01", now.Add(-time.Hour), "GE1/0/2", int64(50), int64(0), int64(0)))

	res, err := eng.Evaluate(context.Background(), IndicatorErrorCount, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Fail != 1 || res.Pass != 1 {
		t.Fatalf("fail=%d pass=%d", res.Fail, res.Pass)
	}
	if want := "CRC 增長 +5 (10 → 15)"; !strings.Contains(res.Failures[0].Reason, want) {
		t.Errorf("reason = %q, want substring %q", res.Failures[0].Reason, want)
	}
	if res.Passes[0].Reason != "計數器已重置" {
		t.Errorf("pass reason = %q", res.Passes[0].Reason)
	}
}

// Without a previous batch every interface passes as a first collection.
func TestErrorCountFirstCollection(t *testing.T) {
	eng, mock := newTestEngine(t)
	now := time.Now()
	cols := recordCols("interface_name", "crc_errors", "input_errors", "output_errors")

	expectDevices(mock, "sw-01")
	mock.ExpectQuery(`SELECT r\.\* FROM interface_error_records r\s+JOIN`).
		WithArgs("m1", "error_count").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), int64(20), "m1", "sw-01", now, "GE1/0/1", int64(10), int64(0), int64(0)))
	mock.ExpectQuery(`SELECT r\.\* FROM interface_error_records r\s+WHERE r\.batch_id IN`).
		WithArgs("m1", "error_count").
		WillReturnRows(sqlmock.NewRows(cols))

	res, err := eng.Evaluate(context.Background(), IndicatorErrorCount, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Pass != 1 || res.Passes[0].Reason != "首次採集，無歷史比對" {
		t.Errorf("result = %+v", res)
	}
}

func TestVersionExpectationStates(t *testing.T) {
	eng, mock := newTestEngine(t)
	now := time.Now()

	expectDevices(mock, "sw-01", "sw-02", "sw-03")
	mock.ExpectQuery(`SELECT \* FROM version_expectations`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "maintenance_id", "hostname", "expected_version"}).
			AddRow(int64(1), "m1", "sw-01", "7.1.070, Release 6530P02").
			AddRow(int64(2), "m1", "sw-03", "17.3.5"))
	mock.ExpectQuery(`SELECT r\.\* FROM version_records r`).
		WithArgs("m1", "version").
		WillReturnRows(sqlmock.NewRows(recordCols("version")).
			AddRow(int64(1), int64(10), "m1", "sw-01", now, "7.1.070, Release 6530P02"))

	res, err := eng.Evaluate(context.Background(), IndicatorVersion, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Pass != 1 || res.Fail != 2 {
		t.Fatalf("pass=%d fail=%d", res.Pass, res.Fail)
	}
	reasons := map[string]string{}
	for _, e := range res.Failures {
		reasons[e.SwitchHostname] = e.Reason
	}
	if reasons["sw-02"] != "未定義版本期望" {
		t.Errorf("sw-02 reason = %q", reasons["sw-02"])
	}
	if reasons["sw-03"] != "無採集數據" {
		t.Errorf("sw-03 reason = %q", reasons["sw-03"])
	}
}

// A Cisco-named expectation matches an HPE-named record through the shared
// port-channel key.
func TestPortChannelCrossVendorMatch(t *testing.T) {
	eng, mock := newTestEngine(t)
	now := time.Now()

	expectDevices(mock, "sw-01")
	mock.ExpectQuery(`SELECT \* FROM port_channel_expectations`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "maintenance_id", "hostname", "port_channel", "member_interfaces"}).
			AddRow(int64(1), "m1", "sw-01", "Port-Channel1", "XGE1/0/49,XGE1/0/50"))
	mock.ExpectQuery(`SELECT r\.\* FROM port_channel_records r`).
		WithArgs("m1", "port_channel").
		WillReturnRows(sqlmock.NewRows(recordCols("port_channel", "status", "members", "member_status", "protocol")).
			AddRow(int64(1), int64(10), "m1", "sw-01", now,
				"BAGG1", "UP", "XGE1/0/49,XGE1/0/50", "UP,DOWN", "LACP"))

	res, err := eng.Evaluate(context.Background(), IndicatorPortChannel, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Fail != 1 {
		t.Fatalf("fail=%d, want member-down failure", res.Fail)
	}
	if want := "成員未 UP: XGE1/0/50"; res.Failures[0].Reason != want {
		t.Errorf("reason = %q, want %q", res.Failures[0].Reason, want)
	}
}

func TestUplinkNeighborMismatch(t *testing.T) {
	eng, mock := newTestEngine(t)
	now := time.Now()

	expectDevices(mock, "sw-01")
	mock.ExpectQuery(`SELECT \* FROM uplink_expectations`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "maintenance_id", "hostname", "local_interface", "expected_neighbor", "expected_interface"}).
			AddRow(int64(1), "m1", "sw-01", "Ten-GigabitEthernet1/0/49", "core-01", ""))
	mock.ExpectQuery(`SELECT r\.\* FROM neighbor_records r`).
		WithArgs("m1", "uplink").
		WillReturnRows(sqlmock.NewRows(recordCols("local_interface", "remote_hostname", "remote_interface")).
			AddRow(int64(1), int64(10), "m1", "sw-01", now, "XGE1/0/49", "core-02", "XGE2/0/1"))

	res, err := eng.Evaluate(context.Background(), IndicatorUplink, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Fail != 1 {
		t.Fatalf("fail=%d", res.Fail)
	}
	if !strings.Contains(res.Failures[0].Reason, "core-01") || !strings.Contains(res.Failures[0].Reason, "core-02") {
		t.Errorf("reason = %q", res.Failures[0].Reason)
	}
}
