package csvio

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/netauto/maintcheck/pkg/models"
)

// ErrInvalid marks a rejected single-row list write; the message is the
// operator-facing reason.
var ErrInvalid = errors.New("驗證失敗")

// Importer validates and writes bulk list uploads and single-row adds.
type Importer struct {
	db *sqlx.DB
}

func NewImporter(db *sqlx.DB) *Importer {
	return &Importer{db: db}
}

type deviceRow struct {
	row         int
	oldHostname string
	oldIP       string
	oldVendor   models.VendorOS
	newHostname string
	newIP       string
	newVendor   models.VendorOS
	useSamePort bool
	tenantGroup string
	description string
}

// deviceListState tracks the hostnames, IPs, and OLD→NEW mapping of a device
// list so rows can be checked against the stored list and each other.
type deviceListState struct {
	oldHosts map[string]bool
	newHosts map[string]bool
	ips      map[string]bool
	mapping  map[string]string // old hostname -> new hostname
}

func (im *Importer) loadDeviceState(ctx context.Context, maintenanceID string) (*deviceListState, error) {
	var current []models.DeviceEntry
	if err := im.db.SelectContext(ctx, &current,
		`SELECT * FROM maintenance_device_lists WHERE maintenance_id = $1`, maintenanceID); err != nil {
		return nil, fmt.Errorf("load existing device list: %w", err)
	}
	st := &deviceListState{
		oldHosts: map[string]bool{},
		newHosts: map[string]bool{},
		ips:      map[string]bool{},
		mapping:  map[string]string{},
	}
	for _, e := range current {
		st.accept(deviceRow{
			oldHostname: e.OldHostname, oldIP: e.OldIP,
			newHostname: e.NewHostname, newIP: e.NewIP,
		})
	}
	return st, nil
}

func (st *deviceListState) accept(d deviceRow) {
	st.oldHosts[d.oldHostname] = true
	if d.newHostname != "" {
		st.newHosts[d.newHostname] = true
		st.mapping[d.oldHostname] = d.newHostname
	}
	for _, ip := range []string{d.oldIP, d.newIP} {
		if ip != "" {
			st.ips[ip] = true
		}
	}
}

// check validates one candidate row against the state and returns every
// violated rule, one message per violation.
func (st *deviceListState) check(d deviceRow) []string {
	var errs []string

	if d.oldHostname == "" {
		return []string{"缺少必要欄位 old_hostname"}
	}
	if d.oldIP == "" {
		return []string{"缺少必要欄位 old_ip"}
	}
	for _, ip := range []string{d.oldIP, d.newIP} {
		if ip != "" {
			if _, err := netip.ParseAddr(ip); err != nil {
				errs = append(errs, fmt.Sprintf("IP 格式錯誤: %s", ip))
			}
		}
	}
	for _, v := range []models.VendorOS{d.oldVendor, d.newVendor} {
		if v != models.VendorUnspecified && !v.Valid() {
			errs = append(errs, fmt.Sprintf("不支援的 vendor_os: %s", v))
		}
	}
	if (d.newHostname == "") != (d.newIP == "") {
		errs = append(errs, "new_hostname 與 new_ip 必須成對出現")
	}
	if len(errs) > 0 {
		return errs
	}

	// The reverse pairing of an existing entry is a swap, not a replacement;
	// it wins over the plain disjointness messages.
	if d.newHostname != "" && st.mapping[d.newHostname] == d.oldHostname {
		return []string{"偵測到交叉對應"}
	}

	// OLD and NEW hostname sets must stay disjoint.
	if st.newHosts[d.oldHostname] {
		return []string{fmt.Sprintf("主機名稱 %s 已作為新設備存在", d.oldHostname)}
	}
	if d.newHostname != "" && st.oldHosts[d.newHostname] {
		return []string{fmt.Sprintf("主機名稱 %s 已作為舊設備存在", d.newHostname)}
	}
	if st.oldHosts[d.oldHostname] {
		return []string{fmt.Sprintf("重複的主機名稱: %s", d.oldHostname)}
	}
	if d.newHostname != "" && st.newHosts[d.newHostname] {
		return []string{fmt.Sprintf("重複的主機名稱: %s", d.newHostname)}
	}
	for _, ip := range []string{d.oldIP, d.newIP} {
		if ip != "" && st.ips[ip] {
			errs = append(errs, fmt.Sprintf("重複的 IP: %s", ip))
		}
	}
	return errs
}

// ImportDevices runs the two-phase device-list import: parse and validate
// every row against the file and the existing list, then either return the
// full error report or write everything in one transaction.
func (im *Importer) ImportDevices(ctx context.Context, maintenanceID string, data []byte) (*ImportReport, error) {
	rows, err := parseRows(data)
	if err != nil {
		return nil, err
	}

	state, err := im.loadDeviceState(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{}
	var accepted []deviceRow
	for i, raw := range rows {
		rowNum := i + 2 // header is line 1
		d := deviceRow{
			row:         rowNum,
			oldHostname: raw["old_hostname"],
			oldIP:       raw["old_ip"],
			oldVendor:   models.VendorOS(raw["old_vendor"]),
			newHostname: raw["new_hostname"],
			newIP:       raw["new_ip"],
			newVendor:   models.VendorOS(raw["new_vendor"]),
			useSamePort: parseBool(raw["use_same_port"]),
			tenantGroup: raw["tenant_group"],
			description: raw["description"],
		}
		if msgs := state.check(d); len(msgs) > 0 {
			for _, msg := range msgs {
				report.addError(rowNum, "%s", msg)
			}
			continue
		}
		state.accept(d)
		accepted = append(accepted, d)
	}

	if !report.OK() {
		return report, nil
	}

	tx, err := im.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, d := range accepted {
		if err := insertDevice(ctx, tx, maintenanceID, d); err != nil {
			return nil, fmt.Errorf("insert device row %d: %w", d.row, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	report.Imported = len(accepted)
	return report, nil
}

// AddDevice validates and writes one device entry, applying the same rules as
// the bulk import, cross-mapping rejection included.
func (im *Importer) AddDevice(ctx context.Context, maintenanceID string, e *models.DeviceEntry) (*models.DeviceEntry, error) {
	state, err := im.loadDeviceState(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	d := deviceRow{
		oldHostname: e.OldHostname, oldIP: e.OldIP, oldVendor: e.OldVendor,
		newHostname: e.NewHostname, newIP: e.NewIP, newVendor: e.NewVendor,
		useSamePort: e.UseSamePort, tenantGroup: e.TenantGroup, description: e.Description,
	}
	if msgs := state.check(d); len(msgs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, " | "))
	}

	var out models.DeviceEntry
	err = im.db.GetContext(ctx, &out, `
		INSERT INTO maintenance_device_lists
		    (maintenance_id, old_hostname, old_ip, old_vendor,
		     new_hostname, new_ip, new_vendor, use_same_port, tenant_group, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING *`,
		maintenanceID, d.oldHostname, d.oldIP, d.oldVendor,
		d.newHostname, d.newIP, d.newVendor, d.useSamePort, d.tenantGroup, d.description)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func insertDevice(ctx context.Context, tx *sqlx.Tx, maintenanceID string, d deviceRow) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO maintenance_device_lists
		    (maintenance_id, old_hostname, old_ip, old_vendor,
		     new_hostname, new_ip, new_vendor, use_same_port, tenant_group, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		maintenanceID, d.oldHostname, d.oldIP, d.oldVendor,
		d.newHostname, d.newIP, d.newVendor, d.useSamePort, d.tenantGroup, d.description)
	return err
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
