package store

import (
	"context"
	"fmt"

	"github.com/netauto/maintcheck/pkg/models"
)

// latestRows selects every typed row whose batch is the latest one for its
// device, for one maintenance and collection type.
func (s *Store) latestRows(ctx context.Context, dest any, table string, maintenanceID string, ctype models.CollectionType) error {
	query := fmt.Sprintf(`
		SELECT r.* FROM %s r
		JOIN latest_collection_batches l ON l.batch_id = r.batch_id
		WHERE l.maintenance_id = $1 AND l.collection_type = $2
		ORDER BY r.switch_hostname, r.id`, table)
	return s.db.SelectContext(ctx, dest, query, maintenanceID, ctype)
}

func (s *Store) LatestTransceivers(ctx context.Context, maintenanceID string) ([]models.TransceiverRecord, error) {
	var rows []models.TransceiverRecord
	err := s.latestRows(ctx, &rows, "transceiver_records", maintenanceID, models.CollectionTransceiver)
	return rows, err
}

func (s *Store) LatestPortChannels(ctx context.Context, maintenanceID string) ([]models.PortChannelRecord, error) {
	var rows []models.PortChannelRecord
	err := s.latestRows(ctx, &rows, "port_channel_records", maintenanceID, models.CollectionPortChannel)
	return rows, err
}

func (s *Store) LatestNeighbors(ctx context.Context, maintenanceID string) ([]models.NeighborRecord, error) {
	var rows []models.NeighborRecord
	err := s.latestRows(ctx, &rows, "neighbor_records", maintenanceID, models.CollectionUplink)
	return rows, err
}

func (s *Store) LatestVersions(ctx context.Context, maintenanceID string) ([]models.VersionRecord, error) {
	var rows []models.VersionRecord
	err := s.latestRows(ctx, &rows, "version_records", maintenanceID, models.CollectionVersion)
	return rows, err
}

func (s *Store) LatestFans(ctx context.Context, maintenanceID string) ([]models.FanRecord, error) {
	var rows []models.FanRecord
	err := s.latestRows(ctx, &rows, "fan_records", maintenanceID, models.CollectionFan)
	return rows, err
}

func (s *Store) LatestPowers(ctx context.Context, maintenanceID string) ([]models.PowerRecord, error) {
	var rows []models.PowerRecord
	err := s.latestRows(ctx, &rows, "power_records", maintenanceID, models.CollectionPower)
	return rows, err
}

func (s *Store) LatestPings(ctx context.Context, maintenanceID string) ([]models.PingRecord, error) {
	var rows []models.PingRecord
	err := s.latestRows(ctx, &rows, "ping_records", maintenanceID, models.CollectionPing)
	return rows, err
}

func (s *Store) LatestClientPings(ctx context.Context, maintenanceID string) ([]models.PingRecord, error) {
	var rows []models.PingRecord
	err := s.latestRows(ctx, &rows, "ping_records", maintenanceID, models.CollectionClientPing)
	return rows, err
}

func (s *Store) LatestInterfaceErrors(ctx context.Context, maintenanceID string) ([]models.InterfaceErrorRecord, error) {
	var rows []models.InterfaceErrorRecord
	err := s.latestRows(ctx, &rows, "interface_error_records", maintenanceID, models.CollectionErrorCount)
	return rows, err
}

func (s *Store) LatestInterfaceStatus(ctx context.Context, maintenanceID string) ([]models.InterfaceStatusRecord, error) {
	var rows []models.InterfaceStatusRecord
	err := s.latestRows(ctx, &rows, "interface_status_records", maintenanceID, models.CollectionInterfaceStatus)
	return rows, err
}

func (s *Store) LatestMacTable(ctx context.Context, maintenanceID string) ([]models.MacTableRecord, error) {
	var rows []models.MacTableRecord
	err := s.latestRows(ctx, &rows, "mac_table_records", maintenanceID, models.CollectionMacTable)
	return rows, err
}

func (s *Store) LatestARP(ctx context.Context, maintenanceID string) ([]models.ARPRecord, error) {
	var rows []models.ARPRecord
	err := s.latestRows(ctx, &rows, "arp_records", maintenanceID, models.CollectionARP)
	return rows, err
}

func (s *Store) LatestDynamicACLs(ctx context.Context, maintenanceID string) ([]models.DynamicACLRecord, error) {
	var rows []models.DynamicACLRecord
	err := s.latestRows(ctx, &rows, "dynamic_acl_records", maintenanceID, models.CollectionDynamicACL)
	return rows, err
}

// PreviousInterfaceErrors returns, per device, the rows of the batch
// immediately preceding the latest one. Devices with a single batch are
// absent from the result.
func (s *Store) PreviousInterfaceErrors(ctx context.Context, maintenanceID string) ([]models.InterfaceErrorRecord, error) {
	var rows []models.InterfaceErrorRecord
	err := s.db.SelectContext(ctx, &rows, `
		SELECT r.* FROM interface_error_records r
		WHERE r.batch_id IN (
		    SELECT (
		        SELECT b.id FROM collection_batches b
		        WHERE b.maintenance_id = l.maintenance_id
		          AND b.collection_type = l.collection_type
		          AND b.switch_hostname = l.switch_hostname
		          AND b.id < l.batch_id
		        ORDER BY b.id DESC LIMIT 1
		    )
		    FROM latest_collection_batches l
		    WHERE l.maintenance_id = $1 AND l.collection_type = $2
		)
		ORDER BY r.switch_hostname, r.id`,
		maintenanceID, models.CollectionErrorCount)
	return rows, err
}

// LatestBatches returns the latest raw batch per device for one collection
// type, for the read-model's rawdata endpoint.
func (s *Store) LatestBatches(ctx context.Context, maintenanceID string, ctype models.CollectionType) ([]models.CollectionBatch, error) {
	var rows []models.CollectionBatch
	err := s.db.SelectContext(ctx, &rows, `
		SELECT b.* FROM collection_batches b
		JOIN latest_collection_batches l ON l.batch_id = b.id
		WHERE l.maintenance_id = $1 AND l.collection_type = $2
		ORDER BY b.switch_hostname`,
		maintenanceID, ctype)
	return rows, err
}

// BatchHistory returns the change points for one device, newest first.
func (s *Store) BatchHistory(ctx context.Context, maintenanceID string, ctype models.CollectionType, hostname string, limit int) ([]models.CollectionBatch, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.CollectionBatch
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM collection_batches
		WHERE maintenance_id = $1 AND collection_type = $2 AND switch_hostname = $3
		ORDER BY id DESC LIMIT $4`,
		maintenanceID, ctype, hostname, limit)
	return rows, err
}

// CollectionErrors lists recent per-device failures for one maintenance.
func (s *Store) CollectionErrors(ctx context.Context, maintenanceID string, limit int) ([]models.CollectionError, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []models.CollectionError
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM collection_errors
		WHERE maintenance_id = $1
		ORDER BY occurred_at DESC, id DESC LIMIT $2`,
		maintenanceID, limit)
	return rows, err
}

// ListDeviceEntries returns the device list of a maintenance.
func (s *Store) ListDeviceEntries(ctx context.Context, maintenanceID string) ([]models.DeviceEntry, error) {
	var rows []models.DeviceEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM maintenance_device_lists WHERE maintenance_id = $1 ORDER BY id`,
		maintenanceID)
	return rows, err
}

// ActiveDevices returns the in-service side of every device entry.
func (s *Store) ActiveDevices(ctx context.Context, maintenanceID string) ([]models.ActiveDevice, error) {
	entries, err := s.ListDeviceEntries(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ActiveDevice, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Active())
	}
	return out, nil
}

// ListMacEntries returns the tracked MAC list of a maintenance.
func (s *Store) ListMacEntries(ctx context.Context, maintenanceID string) ([]models.MacEntry, error) {
	var rows []models.MacEntry
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM maintenance_mac_lists WHERE maintenance_id = $1 ORDER BY id`,
		maintenanceID)
	return rows, err
}

// ListActiveMaintenances returns every maintenance currently being polled.
func (s *Store) ListActiveMaintenances(ctx context.Context) ([]models.Maintenance, error) {
	var rows []models.Maintenance
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM maintenances WHERE is_active ORDER BY id`)
	return rows, err
}
