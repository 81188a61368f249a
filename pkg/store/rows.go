package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/netauto/maintcheck/pkg/parsers"
)

// insertRows writes the typed rows for one batch, dispatching on the
// concrete item list type.
func insertRows(ctx context.Context, tx *sqlx.Tx, batchID int64, maintenanceID, hostname string, collectedAt time.Time, items parsers.ItemList) error {
	if items.Len() == 0 {
		return nil
	}

	switch list := items.(type) {
	case parsers.TransceiverItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO transceiver_records
				    (batch_id, maintenance_id, switch_hostname, collected_at,
				     interface_name, channel, tx_power, rx_power, temperature, voltage)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				batchID, maintenanceID, hostname, collectedAt,
				it.InterfaceName, it.Channel, it.TxPower, it.RxPower, it.Temperature, it.Voltage); err != nil {
				return err
			}
		}
	case parsers.PortChannelItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO port_channel_records
				    (batch_id, maintenance_id, switch_hostname, collected_at,
				     port_channel, status, members, member_status, protocol)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				batchID, maintenanceID, hostname, collectedAt,
				it.PortChannel, it.Status,
				strings.Join(it.Members, ","), strings.Join(it.MemberStatus, ","), it.Protocol); err != nil {
				return err
			}
		}
	case parsers.NeighborItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO neighbor_records
				    (batch_id, maintenance_id, switch_hostname, collected_at,
				     local_interface, remote_hostname, remote_interface)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				batchID, maintenanceID, hostname, collectedAt,
				it.LocalInterface, it.RemoteHostname, it.RemoteInterface); err != nil {
				return err
			}
		}
	case parsers.InterfaceErrorItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO interface_error_records
				    (batch_id, maintenance_id, switch_hostname, collected_at,
				     interface_name, crc_errors, input_errors, output_errors)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				batchID, maintenanceID, hostname, collectedAt,
				it.InterfaceName, it.CRCErrors, it.InputErrors, it.OutputErrors); err != nil {
				return err
			}
		}
	case parsers.StaticACLItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO static_acl_records
				    (batch_id, maintenance_id, switch_hostname, collected_at, acl_name, rule)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				batchID, maintenanceID, hostname, collectedAt, it.ACLName, it.Rule); err != nil {
				return err
			}
		}
	case parsers.DynamicACLItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO dynamic_acl_records
				    (batch_id, maintenance_id, switch_hostname, collected_at,
				     interface_name, mac_address, acl_name)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				batchID, maintenanceID, hostname, collectedAt,
				it.InterfaceName, it.MacAddress, it.ACLName); err != nil {
				return err
			}
		}
	case parsers.MacTableItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO mac_table_records
				    (batch_id, maintenance_id, switch_hostname, collected_at,
				     mac_address, vlan_id, interface_name)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				batchID, maintenanceID, hostname, collectedAt,
				it.MacAddress, it.VlanID, it.InterfaceName); err != nil {
				return err
			}
		}
	case parsers.FanItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO fan_records
				    (batch_id, maintenance_id, switch_hostname, collected_at, fan_id, status)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				batchID, maintenanceID, hostname, collectedAt, it.FanID, it.Status); err != nil {
				return err
			}
		}
	case parsers.PowerItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO power_records
				    (batch_id, maintenance_id, switch_hostname, collected_at, ps_id, status)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				batchID, maintenanceID, hostname, collectedAt, it.PsID, it.Status); err != nil {
				return err
			}
		}
	case parsers.VersionItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO version_records
				    (batch_id, maintenance_id, switch_hostname, collected_at, version)
				VALUES ($1, $2, $3, $4, $5)`,
				batchID, maintenanceID, hostname, collectedAt, it.Version); err != nil {
				return err
			}
		}
	case parsers.PingItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO ping_records
				    (batch_id, maintenance_id, switch_hostname, collected_at,
				     target_ip, is_reachable, success_rate, last_check_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $4)`,
				batchID, maintenanceID, hostname, collectedAt,
				it.TargetIP, it.IsReachable, it.SuccessRate); err != nil {
				return err
			}
		}
	case parsers.InterfaceStatusItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO interface_status_records
				    (batch_id, maintenance_id, switch_hostname, collected_at,
				     interface_name, link_status, speed, duplex, vlan_id)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				batchID, maintenanceID, hostname, collectedAt,
				it.InterfaceName, it.LinkStatus, it.Speed, it.Duplex, it.VlanID); err != nil {
				return err
			}
		}
	case parsers.ARPItems:
		for _, it := range list {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO arp_records
				    (batch_id, maintenance_id, switch_hostname, collected_at,
				     ip_address, mac_address, interface_name)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				batchID, maintenanceID, hostname, collectedAt,
				it.IPAddress, it.MacAddress, it.InterfaceName); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("no row writer for item type %T", items)
	}
	return nil
}
