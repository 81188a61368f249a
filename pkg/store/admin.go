package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/netauto/maintcheck/pkg/models"
)

// CreateMaintenance registers a new maintenance window. It starts inactive;
// activation is a separate operator step.
func (s *Store) CreateMaintenance(ctx context.Context, name string, configData json.RawMessage) (*models.Maintenance, error) {
	if configData == nil {
		configData = json.RawMessage(`{}`)
	}
	now := s.clock.Now().UTC()
	var m models.Maintenance
	err := s.db.GetContext(ctx, &m, `
		INSERT INTO maintenances (id, name, is_active, active_seconds_accumulated, config_data, created_at, updated_at)
		VALUES ($1, $2, FALSE, 0, $3, $4, $4)
		RETURNING *`,
		uuid.NewString(), name, configData, now)
	if err != nil {
		return nil, fmt.Errorf("create maintenance: %w", err)
	}
	return &m, nil
}

func (s *Store) GetMaintenance(ctx context.Context, id string) (*models.Maintenance, error) {
	var m models.Maintenance
	if err := s.db.GetContext(ctx, &m, `SELECT * FROM maintenances WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListMaintenances(ctx context.Context) ([]models.Maintenance, error) {
	var rows []models.Maintenance
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM maintenances ORDER BY created_at DESC`)
	return rows, err
}

// SetMaintenanceActive flips the polling switch. Deactivation folds the
// elapsed active time into the accumulator so the retention grace period is
// measured from the deactivation, not the creation.
func (s *Store) SetMaintenanceActive(ctx context.Context, id string, active bool) (*models.Maintenance, error) {
	now := s.clock.Now().UTC()
	var m models.Maintenance
	var err error
	if active {
		err = s.db.GetContext(ctx, &m, `
			UPDATE maintenances
			SET is_active = TRUE, last_activated_at = $2, updated_at = $2
			WHERE id = $1
			RETURNING *`, id, now)
	} else {
		err = s.db.GetContext(ctx, &m, `
			UPDATE maintenances
			SET is_active = FALSE,
			    active_seconds_accumulated = active_seconds_accumulated
			        + COALESCE(EXTRACT(EPOCH FROM ($2 - last_activated_at))::BIGINT, 0),
			    updated_at = $2
			WHERE id = $1 AND is_active = TRUE
			RETURNING *`, id, now)
		if errors.Is(err, sql.ErrNoRows) {
			// Already inactive; report current state rather than a miss.
			return s.GetMaintenance(ctx, id)
		}
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMaintenance removes a maintenance and, through the schema's cascades,
// every dependent row: lists, batches, typed records, cases, expectations,
// overrides. sql.ErrNoRows when the id does not exist.
func (s *Store) DeleteMaintenance(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM maintenances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete maintenance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateDeviceEntry rewrites the editable columns of one device-list row.
func (s *Store) UpdateDeviceEntry(ctx context.Context, e *models.DeviceEntry) (*models.DeviceEntry, error) {
	var out models.DeviceEntry
	err := s.db.GetContext(ctx, &out, `
		UPDATE maintenance_device_lists
		SET old_hostname = $3, old_ip = $4, old_vendor = $5,
		    new_hostname = $6, new_ip = $7, new_vendor = $8,
		    use_same_port = $9, tenant_group = $10, description = $11
		WHERE id = $1 AND maintenance_id = $2
		RETURNING *`,
		e.ID, e.MaintenanceID, e.OldHostname, e.OldIP, e.OldVendor,
		e.NewHostname, e.NewIP, e.NewVendor, e.UseSamePort, e.TenantGroup, e.Description)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) DeleteDeviceEntry(ctx context.Context, maintenanceID string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM maintenance_device_lists WHERE id = $1 AND maintenance_id = $2`, id, maintenanceID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) DeleteMacEntry(ctx context.Context, maintenanceID string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM maintenance_mac_lists WHERE id = $1 AND maintenance_id = $2`, id, maintenanceID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetUserByUsername resolves the identity header against the users table.
// Inactive accounts resolve as missing.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.GetContext(ctx, &u,
		`SELECT * FROM users WHERE username = $1 AND is_active`, username); err != nil {
		return nil, err
	}
	return &u, nil
}
