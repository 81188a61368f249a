package csvio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/netauto/maintcheck/pkg/models"
)

func newTestImporter(t *testing.T) (*Importer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewImporter(sqlx.NewDb(db, "sqlmock")), mock
}

var deviceCols = []string{"id", "maintenance_id", "old_hostname", "old_ip", "old_vendor",
	"new_hostname", "new_ip", "new_vendor", "use_same_port", "tenant_group",
	"is_reachable", "last_check_at", "description"}

func TestDecodeTextBOMAndGBK(t *testing.T) {
	if got, err := decodeText(append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b")...)); err != nil || got != "a,b" {
		t.Errorf("BOM strip: got %q err %v", got, err)
	}

	gbk, _, err := transform.Bytes(simplifiedchinese.GBK.NewEncoder(), []byte("說明,備註"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := decodeText(gbk)
	if err != nil {
		t.Fatal(err)
	}
	if got != "說明,備註" {
		t.Errorf("GBK fallback: got %q", got)
	}
}

// A single invalid row rejects the whole file: no transaction is even opened.
func TestImportDevicesTwoPhase(t *testing.T) {
	im, mock := newTestImporter(t)

	mock.ExpectQuery(`SELECT \* FROM maintenance_device_lists`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows(deviceCols))

	csvData := strings.Join([]string{
		"old_hostname,old_ip,old_vendor,new_hostname,new_ip,new_vendor",
		"sw-01,10.0.0.1,HPE,sw-01n,10.0.1.1,Cisco-IOS",
		"sw-02,not-an-ip,HPE,,,",
	}, "\n")

	report, err := im.ImportDevices(context.Background(), "m1", []byte(csvData))
	if err != nil {
		t.Fatal(err)
	}
	if report.OK() || report.Imported != 0 {
		t.Fatalf("report = %+v, want rejection with zero imports", report)
	}
	if report.Errors[0].Row != 3 || !strings.Contains(report.Errors[0].Message, "IP 格式錯誤") {
		t.Errorf("error = %+v", report.Errors[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportDevicesCommitsValidFile(t *testing.T) {
	im, mock := newTestImporter(t)

	mock.ExpectQuery(`SELECT \* FROM maintenance_device_lists`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows(deviceCols))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO maintenance_device_lists`).
		WithArgs("m1", "sw-01", "10.0.0.1", "HPE", "sw-01n", "10.0.1.1", "Cisco-IOS", false, "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	csvData := strings.Join([]string{
		"old_hostname,old_ip,old_vendor,new_hostname,new_ip,new_vendor",
		"sw-01,10.0.0.1,HPE,sw-01n,10.0.1.1,Cisco-IOS",
	}, "\n")

	report, err := im.ImportDevices(context.Background(), "m1", []byte(csvData))
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() || report.Imported != 1 {
		t.Fatalf("report = %+v", report)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// The reverse pairing of an existing (OLD, NEW) entry is a swap and must be
// rejected as a cross mapping.
func TestImportDevicesCrossMapping(t *testing.T) {
	im, mock := newTestImporter(t)

	mock.ExpectQuery(`SELECT \* FROM maintenance_device_lists`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows(deviceCols).
			AddRow(int64(1), "m1", "A", "10.0.0.1", "HPE", "B", "10.0.1.1", "HPE", false, "", nil, nil, ""))

	csvData := strings.Join([]string{
		"old_hostname,old_ip,old_vendor,new_hostname,new_ip,new_vendor",
		"B,10.0.2.1,HPE,A,10.0.3.1,HPE",
	}, "\n")

	report, err := im.ImportDevices(context.Background(), "m1", []byte(csvData))
	if err != nil {
		t.Fatal(err)
	}
	if report.OK() {
		t.Fatal("cross mapping must be rejected")
	}
	if report.Errors[0].Message != "偵測到交叉對應" {
		t.Errorf("message = %q", report.Errors[0].Message)
	}
}

func TestAddDeviceRejectsCrossMapping(t *testing.T) {
	im, mock := newTestImporter(t)

	mock.ExpectQuery(`SELECT \* FROM maintenance_device_lists`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows(deviceCols).
			AddRow(int64(1), "m1", "A", "10.0.0.1", "HPE", "B", "10.0.1.1", "HPE", false, "", nil, nil, ""))

	_, err := im.AddDevice(context.Background(), "m1", &models.DeviceEntry{
		OldHostname: "B", OldIP: "10.0.2.1", OldVendor: "HPE",
		NewHostname: "A", NewIP: "10.0.3.1", NewVendor: "HPE",
	})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if !strings.Contains(err.Error(), "偵測到交叉對應") {
		t.Errorf("err = %v", err)
	}
}

func TestImportMacsNormalisesAndDeduplicates(t *testing.T) {
	im, mock := newTestImporter(t)

	mock.ExpectQuery(`SELECT mac_address FROM maintenance_mac_lists`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"mac_address"}).AddRow("AA:BB:CC:DD:EE:01"))

	csvData := strings.Join([]string{
		"mac_address,description,default_assignee,ip_address,tenant_group",
		"aabb.ccdd.ee01,dup,,,",
		"not-a-mac,bad,,,",
	}, "\n")

	report, err := im.ImportMacs(context.Background(), "m1", []byte(csvData))
	if err != nil {
		t.Fatal(err)
	}
	if report.OK() {
		t.Fatal("want rejection")
	}
	if len(report.Errors) != 2 {
		t.Fatalf("errors = %+v", report.Errors)
	}
	if !strings.Contains(report.Errors[0].Message, "重複的 MAC") {
		t.Errorf("dup error = %q", report.Errors[0].Message)
	}
	if !strings.Contains(report.Errors[1].Message, "MAC 格式錯誤") {
		t.Errorf("format error = %q", report.Errors[1].Message)
	}
}
