package store

import (
	"context"

	"github.com/netauto/maintcheck/pkg/models"
)

func (s *Store) ListUplinkExpectations(ctx context.Context, maintenanceID string) ([]models.UplinkExpectation, error) {
	var rows []models.UplinkExpectation
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM uplink_expectations
		WHERE maintenance_id = $1 ORDER BY hostname, local_interface`,
		maintenanceID)
	return rows, err
}

func (s *Store) UpsertUplinkExpectation(ctx context.Context, e models.UplinkExpectation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uplink_expectations
		    (maintenance_id, hostname, local_interface, expected_neighbor, expected_interface)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (maintenance_id, hostname, local_interface)
		DO UPDATE SET expected_neighbor = EXCLUDED.expected_neighbor,
		              expected_interface = EXCLUDED.expected_interface`,
		e.MaintenanceID, e.Hostname, e.LocalInterface, e.ExpectedNeighbor, e.ExpectedInterface)
	return err
}

func (s *Store) DeleteUplinkExpectation(ctx context.Context, maintenanceID string, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM uplink_expectations WHERE maintenance_id = $1 AND id = $2`,
		maintenanceID, id)
	return err
}

func (s *Store) ListVersionExpectations(ctx context.Context, maintenanceID string) ([]models.VersionExpectation, error) {
	var rows []models.VersionExpectation
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM version_expectations
		WHERE maintenance_id = $1 ORDER BY hostname`,
		maintenanceID)
	return rows, err
}

func (s *Store) UpsertVersionExpectation(ctx context.Context, e models.VersionExpectation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO version_expectations (maintenance_id, hostname, expected_version)
		VALUES ($1, $2, $3)
		ON CONFLICT (maintenance_id, hostname)
		DO UPDATE SET expected_version = EXCLUDED.expected_version`,
		e.MaintenanceID, e.Hostname, e.ExpectedVersion)
	return err
}

func (s *Store) DeleteVersionExpectation(ctx context.Context, maintenanceID string, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM version_expectations WHERE maintenance_id = $1 AND id = $2`,
		maintenanceID, id)
	return err
}

func (s *Store) ListPortChannelExpectations(ctx context.Context, maintenanceID string) ([]models.PortChannelExpectation, error) {
	var rows []models.PortChannelExpectation
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM port_channel_expectations
		WHERE maintenance_id = $1 ORDER BY hostname, port_channel`,
		maintenanceID)
	return rows, err
}

func (s *Store) UpsertPortChannelExpectation(ctx context.Context, e models.PortChannelExpectation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO port_channel_expectations
		    (maintenance_id, hostname, port_channel, member_interfaces)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (maintenance_id, hostname, port_channel)
		DO UPDATE SET member_interfaces = EXCLUDED.member_interfaces`,
		e.MaintenanceID, e.Hostname, e.PortChannel, e.MemberInterfaces)
	return err
}

func (s *Store) DeletePortChannelExpectation(ctx context.Context, maintenanceID string, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM port_channel_expectations WHERE maintenance_id = $1 AND id = $2`,
		maintenanceID, id)
	return err
}

func (s *Store) ListArpSources(ctx context.Context, maintenanceID string) ([]models.ArpSource, error) {
	var rows []models.ArpSource
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM arp_sources WHERE maintenance_id = $1 ORDER BY hostname`,
		maintenanceID)
	return rows, err
}

func (s *Store) UpsertArpSource(ctx context.Context, maintenanceID, hostname string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO arp_sources (maintenance_id, hostname)
		VALUES ($1, $2)
		ON CONFLICT (maintenance_id, hostname) DO NOTHING`,
		maintenanceID, hostname)
	return err
}

func (s *Store) DeleteArpSource(ctx context.Context, maintenanceID string, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM arp_sources WHERE maintenance_id = $1 AND id = $2`,
		maintenanceID, id)
	return err
}
