package csvio

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/netauto/maintcheck/pkg/models"
)

// ExportDevices renders a maintenance's device list back to CSV, with a BOM
// so spreadsheet tools pick the right encoding.
func (im *Importer) ExportDevices(ctx context.Context, maintenanceID string) ([]byte, error) {
	var entries []models.DeviceEntry
	if err := im.db.SelectContext(ctx, &entries,
		`SELECT * FROM maintenance_device_lists WHERE maintenance_id = $1 ORDER BY id`, maintenanceID); err != nil {
		return nil, fmt.Errorf("load device list: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"old_hostname", "old_ip", "old_vendor",
		"new_hostname", "new_ip", "new_vendor", "use_same_port", "tenant_group", "description"})
	for _, e := range entries {
		_ = w.Write([]string{
			e.OldHostname, e.OldIP, string(e.OldVendor),
			e.NewHostname, e.NewIP, string(e.NewVendor),
			strconv.FormatBool(e.UseSamePort), e.TenantGroup, e.Description,
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportMacs renders a maintenance's MAC list back to CSV.
func (im *Importer) ExportMacs(ctx context.Context, maintenanceID string) ([]byte, error) {
	var entries []models.MacEntry
	if err := im.db.SelectContext(ctx, &entries,
		`SELECT * FROM maintenance_mac_lists WHERE maintenance_id = $1 ORDER BY id`, maintenanceID); err != nil {
		return nil, fmt.Errorf("load mac list: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"mac_address", "description", "default_assignee", "ip_address", "tenant_group"})
	for _, e := range entries {
		_ = w.Write([]string{e.MacAddress, e.Description, e.DefaultAssignee, e.IPAddress, e.TenantGroup})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
