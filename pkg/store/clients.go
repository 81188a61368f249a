package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/canonical"
	"github.com/netauto/maintcheck/pkg/models"
)

// clientSnapshot is the hashed view of one MAC's current observation; only
// these fields decide whether a new ClientRecord row is written.
type clientSnapshot struct {
	SwitchHostname *string `json:"switch_hostname"`
	InterfaceName  *string `json:"interface_name"`
	VlanID         *int    `json:"vlan_id"`
	Speed          *string `json:"speed"`
	Duplex         *string `json:"duplex"`
	LinkStatus     *string `json:"link_status"`
	PingReachable  *bool   `json:"ping_reachable"`
	ACLPasses      *bool   `json:"acl_passes"`
}

// IngestClients assembles, for every tracked MAC, a snapshot from the latest
// MAC-table, interface-status, client-ping, and dynamic-ACL records, and
// appends a ClientRecord row only when the snapshot hash changed.
func (s *Store) IngestClients(ctx context.Context, maintenanceID string) error {
	macs, err := s.ListMacEntries(ctx, maintenanceID)
	if err != nil {
		return fmt.Errorf("list mac entries: %w", err)
	}
	if len(macs) == 0 {
		return nil
	}

	macTable, err := s.LatestMacTable(ctx, maintenanceID)
	if err != nil {
		return fmt.Errorf("load mac table: %w", err)
	}
	ifStatus, err := s.LatestInterfaceStatus(ctx, maintenanceID)
	if err != nil {
		return fmt.Errorf("load interface status: %w", err)
	}
	pings, err := s.LatestClientPings(ctx, maintenanceID)
	if err != nil {
		return fmt.Errorf("load client pings: %w", err)
	}
	arps, err := s.LatestARP(ctx, maintenanceID)
	if err != nil {
		return fmt.Errorf("load arp: %w", err)
	}
	dynACLs, err := s.LatestDynamicACLs(ctx, maintenanceID)
	if err != nil {
		return fmt.Errorf("load dynamic acls: %w", err)
	}

	macLoc := make(map[string]models.MacTableRecord)
	for _, r := range macTable {
		if _, seen := macLoc[r.MacAddress]; !seen {
			macLoc[r.MacAddress] = r
		}
	}
	status := make(map[string]models.InterfaceStatusRecord)
	for _, r := range ifStatus {
		status[r.SwitchHostname+"|"+canonical.Interface(r.InterfaceName)] = r
	}
	pingByIP := make(map[string]models.PingRecord)
	for _, r := range pings {
		pingByIP[r.TargetIP] = r
	}
	arpByMac := make(map[string]string)
	for _, r := range arps {
		if _, seen := arpByMac[r.MacAddress]; !seen {
			arpByMac[r.MacAddress] = r.IPAddress
		}
	}
	aclBound := make(map[string]bool)
	for _, r := range dynACLs {
		aclBound[r.MacAddress] = true
	}
	haveACLData := len(dynACLs) > 0

	for _, m := range macs {
		snap := clientSnapshot{}
		if loc, ok := macLoc[m.MacAddress]; ok {
			snap.SwitchHostname = &loc.SwitchHostname
			iface := canonical.Interface(loc.InterfaceName)
			snap.InterfaceName = &iface
			vlan := loc.VlanID
			snap.VlanID = &vlan
			if st, ok := status[loc.SwitchHostname+"|"+iface]; ok {
				snap.Speed = &st.Speed
				snap.Duplex = &st.Duplex
				snap.LinkStatus = &st.LinkStatus
			}
		}
		ip := m.IPAddress
		if ip == "" {
			ip = arpByMac[m.MacAddress]
		}
		if ip != "" {
			if p, ok := pingByIP[ip]; ok {
				reachable := p.IsReachable
				snap.PingReachable = &reachable
			}
		}
		if haveACLData {
			bound := aclBound[m.MacAddress]
			snap.ACLPasses = &bound
		}

		if err := s.saveClientSnapshot(ctx, maintenanceID, m.MacAddress, snap); err != nil {
			s.logger.Error("client snapshot save failed",
				zap.String("maintenance_id", maintenanceID),
				zap.String("mac", m.MacAddress),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Store) saveClientSnapshot(ctx context.Context, maintenanceID, mac string, snap clientSnapshot) error {
	hash, err := canonical.Hash([]clientSnapshot{snap})
	if err != nil {
		return fmt.Errorf("hash snapshot: %w", err)
	}
	now := s.clock.Now().UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var latest models.LatestClientRecord
	err = tx.GetContext(ctx, &latest, `
		SELECT * FROM latest_client_records
		WHERE maintenance_id = $1 AND mac_address = $2
		FOR UPDATE`, maintenanceID, mac)
	found := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load latest client record: %w", err)
	}

	if found && latest.DataHash == hash {
		if _, err := tx.ExecContext(ctx,
			`UPDATE latest_client_records SET last_checked_at = $1 WHERE id = $2`,
			now, latest.ID); err != nil {
			return err
		}
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO client_records
		    (maintenance_id, mac_address, switch_hostname, interface_name, vlan_id,
		     speed, duplex, link_status, ping_reachable, acl_passes, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		maintenanceID, mac, snap.SwitchHostname, snap.InterfaceName, snap.VlanID,
		snap.Speed, snap.Duplex, snap.LinkStatus, snap.PingReachable, snap.ACLPasses, now); err != nil {
		return fmt.Errorf("insert client record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO latest_client_records
		    (maintenance_id, mac_address, data_hash, collected_at, last_checked_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (maintenance_id, mac_address)
		DO UPDATE SET data_hash = EXCLUDED.data_hash,
		              collected_at = EXCLUDED.collected_at,
		              last_checked_at = EXCLUDED.last_checked_at`,
		maintenanceID, mac, hash, now); err != nil {
		return fmt.Errorf("upsert latest client record: %w", err)
	}
	return tx.Commit()
}

// ClientHistory returns the full observation series for one MAC, oldest
// first; the change-flag refresher and the timeline endpoint read it.
func (s *Store) ClientHistory(ctx context.Context, maintenanceID, mac string) ([]models.ClientRecord, error) {
	var rows []models.ClientRecord
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM client_records
		WHERE maintenance_id = $1 AND mac_address = $2
		ORDER BY collected_at, id`,
		maintenanceID, mac)
	return rows, err
}

// LatestClientObservation returns the newest ClientRecord per MAC for one
// maintenance.
func (s *Store) LatestClientObservation(ctx context.Context, maintenanceID string) (map[string]models.ClientRecord, error) {
	var rows []models.ClientRecord
	err := s.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT ON (mac_address) *
		FROM client_records
		WHERE maintenance_id = $1
		ORDER BY mac_address, collected_at DESC, id DESC`,
		maintenanceID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.ClientRecord, len(rows))
	for _, r := range rows {
		out[r.MacAddress] = r
	}
	return out, nil
}
