package csvio

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/netauto/maintcheck/pkg/models"
)

// AddMac validates and writes one MAC entry under the import rules.
func (im *Importer) AddMac(ctx context.Context, maintenanceID string, e *models.MacEntry) (*models.MacEntry, error) {
	mac, err := models.NormalizeMac(e.MacAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: MAC 格式錯誤: %s", ErrInvalid, e.MacAddress)
	}
	if e.IPAddress != "" {
		if _, err := netip.ParseAddr(e.IPAddress); err != nil {
			return nil, fmt.Errorf("%w: IP 格式錯誤: %s", ErrInvalid, e.IPAddress)
		}
	}
	var exists bool
	if err := im.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM maintenance_mac_lists
		               WHERE maintenance_id = $1 AND mac_address = $2)`,
		maintenanceID, mac); err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: 重複的 MAC: %s", ErrInvalid, mac)
	}

	var out models.MacEntry
	err = im.db.GetContext(ctx, &out, `
		INSERT INTO maintenance_mac_lists
		    (maintenance_id, mac_address, description, default_assignee, ip_address, tenant_group)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`,
		maintenanceID, mac, e.Description, e.DefaultAssignee, e.IPAddress, e.TenantGroup)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type macRow struct {
	row             int
	mac             string
	description     string
	defaultAssignee string
	ipAddress       string
	tenantGroup     string
}

// ImportMacs runs the two-phase MAC-list import. MAC addresses are accepted
// in any common notation and stored normalised.
func (im *Importer) ImportMacs(ctx context.Context, maintenanceID string, data []byte) (*ImportReport, error) {
	rows, err := parseRows(data)
	if err != nil {
		return nil, err
	}

	var existing []string
	if err := im.db.SelectContext(ctx, &existing,
		`SELECT mac_address FROM maintenance_mac_lists WHERE maintenance_id = $1`, maintenanceID); err != nil {
		return nil, fmt.Errorf("load existing mac list: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, mac := range existing {
		seen[mac] = true
	}

	report := &ImportReport{}
	var accepted []macRow
	for i, raw := range rows {
		rowNum := i + 2
		mac, err := models.NormalizeMac(raw["mac_address"])
		if err != nil {
			report.addError(rowNum, "MAC 格式錯誤: %s", raw["mac_address"])
			continue
		}
		if seen[mac] {
			report.addError(rowNum, "重複的 MAC: %s", mac)
			continue
		}
		if ip := raw["ip_address"]; ip != "" {
			if _, err := netip.ParseAddr(ip); err != nil {
				report.addError(rowNum, "IP 格式錯誤: %s", ip)
				continue
			}
		}
		seen[mac] = true
		accepted = append(accepted, macRow{
			row:             rowNum,
			mac:             mac,
			description:     raw["description"],
			defaultAssignee: raw["default_assignee"],
			ipAddress:       raw["ip_address"],
			tenantGroup:     raw["tenant_group"],
		})
	}

	if !report.OK() {
		return report, nil
	}

	tx, err := im.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, m := range accepted {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO maintenance_mac_lists
			    (maintenance_id, mac_address, description, default_assignee, ip_address, tenant_group)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			maintenanceID, m.mac, m.description, m.defaultAssignee, m.ipAddress, m.tenantGroup); err != nil {
			return nil, fmt.Errorf("insert mac row %d: %w", m.row, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	report.Imported = len(accepted)
	return report, nil
}
