// Package models holds the persistent data model shared by the collection
// pipeline, the indicator evaluators, and the case engine.
package models

import (
	"encoding/json"
	"time"
)

// CollectionType identifies one of the payload shapes the pipeline collects.
type CollectionType string

const (
	CollectionTransceiver     CollectionType = "transceiver"
	CollectionPortChannel     CollectionType = "port_channel"
	CollectionUplink          CollectionType = "uplink"
	CollectionVersion         CollectionType = "version"
	CollectionFan             CollectionType = "fan"
	CollectionPower           CollectionType = "power"
	CollectionErrorCount      CollectionType = "error_count"
	CollectionStaticACL       CollectionType = "static_acl"
	CollectionDynamicACL      CollectionType = "dynamic_acl"
	CollectionMacTable        CollectionType = "mac_table"
	CollectionPing            CollectionType = "ping"
	CollectionInterfaceStatus CollectionType = "interface_status"
	CollectionClientPing      CollectionType = "client_ping"
	CollectionARP             CollectionType = "arp"
)

// AllCollectionTypes lists every collection type the scheduler can run.
var AllCollectionTypes = []CollectionType{
	CollectionTransceiver,
	CollectionPortChannel,
	CollectionUplink,
	CollectionVersion,
	CollectionFan,
	CollectionPower,
	CollectionErrorCount,
	CollectionStaticACL,
	CollectionDynamicACL,
	CollectionMacTable,
	CollectionPing,
	CollectionInterfaceStatus,
	CollectionClientPing,
	CollectionARP,
}

// VendorOS identifies the operating system family of a switch. The DNA
// gateway requires it in the request path; parsers register per vendor.
type VendorOS string

const (
	VendorHPE        VendorOS = "HPE"
	VendorCiscoIOS   VendorOS = "Cisco-IOS"
	VendorCiscoNXOS  VendorOS = "Cisco-NXOS"
	VendorUnspecified VendorOS = ""
)

// Valid reports whether v names a supported vendor OS.
func (v VendorOS) Valid() bool {
	switch v {
	case VendorHPE, VendorCiscoIOS, VendorCiscoNXOS:
		return true
	}
	return false
}

// Maintenance is one scheduled upgrade window, the unit of data isolation.
type Maintenance struct {
	ID               string          `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	ActiveSeconds    int64           `db:"active_seconds_accumulated" json:"active_seconds_accumulated"`
	LastActivatedAt  *time.Time      `db:"last_activated_at" json:"last_activated_at,omitempty"`
	ConfigData       json.RawMessage `db:"config_data" json:"config_data,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// DeviceEntry is one row of a maintenance's device list: the OLD switch being
// replaced and, when present, the NEW switch that takes over.
type DeviceEntry struct {
	ID          int64      `db:"id" json:"id"`
	MaintenanceID string   `db:"maintenance_id" json:"maintenance_id"`
	OldHostname string     `db:"old_hostname" json:"old_hostname"`
	OldIP       string     `db:"old_ip" json:"old_ip"`
	OldVendor   VendorOS   `db:"old_vendor" json:"old_vendor"`
	NewHostname string     `db:"new_hostname" json:"new_hostname"`
	NewIP       string     `db:"new_ip" json:"new_ip"`
	NewVendor   VendorOS   `db:"new_vendor" json:"new_vendor"`
	UseSamePort bool       `db:"use_same_port" json:"use_same_port"`
	TenantGroup string     `db:"tenant_group" json:"tenant_group"`
	IsReachable *bool      `db:"is_reachable" json:"is_reachable,omitempty"`
	LastCheckAt *time.Time `db:"last_check_at" json:"last_check_at,omitempty"`
	Description string     `db:"description" json:"description"`
}

// ActiveDevice is the side of a device entry that is currently in service.
type ActiveDevice struct {
	Hostname string
	IP       string
	Vendor   VendorOS
}

// Active returns the in-service side of the entry. NEW wins whenever a NEW
// hostname or IP is present on the row; otherwise the OLD side is active.
func (e DeviceEntry) Active() ActiveDevice {
	if e.NewHostname != "" || e.NewIP != "" {
		return ActiveDevice{Hostname: e.NewHostname, IP: e.NewIP, Vendor: e.NewVendor}
	}
	return ActiveDevice{Hostname: e.OldHostname, IP: e.OldIP, Vendor: e.OldVendor}
}

// MacEntry is one tracked client MAC inside a maintenance.
type MacEntry struct {
	ID              int64  `db:"id" json:"id"`
	MaintenanceID   string `db:"maintenance_id" json:"maintenance_id"`
	MacAddress      string `db:"mac_address" json:"mac_address"`
	Description     string `db:"description" json:"description"`
	DefaultAssignee string `db:"default_assignee" json:"default_assignee"`
	IPAddress       string `db:"ip_address" json:"ip_address"`
	TenantGroup     string `db:"tenant_group" json:"tenant_group"`
}

// CollectionBatch is one append-only change point for
// (maintenance, collection type, device). Raw upstream text is kept for audit.
type CollectionBatch struct {
	ID             int64          `db:"id" json:"id"`
	MaintenanceID  string         `db:"maintenance_id" json:"maintenance_id"`
	CollectionType CollectionType `db:"collection_type" json:"collection_type"`
	SwitchHostname string         `db:"switch_hostname" json:"switch_hostname"`
	RawData        string         `db:"raw_data" json:"raw_data"`
	ItemCount      int            `db:"item_count" json:"item_count"`
	CollectedAt    time.Time      `db:"collected_at" json:"collected_at"`
}

// LatestCollectionBatch is the mutable pointer to the most recent batch per
// (maintenance, collection type, device); unique on that tuple.
type LatestCollectionBatch struct {
	ID             int64          `db:"id" json:"id"`
	MaintenanceID  string         `db:"maintenance_id" json:"maintenance_id"`
	CollectionType CollectionType `db:"collection_type" json:"collection_type"`
	SwitchHostname string         `db:"switch_hostname" json:"switch_hostname"`
	BatchID        int64          `db:"batch_id" json:"batch_id"`
	DataHash       string         `db:"data_hash" json:"data_hash"`
	CollectedAt    time.Time      `db:"collected_at" json:"collected_at"`
	LastCheckedAt  time.Time      `db:"last_checked_at" json:"last_checked_at"`
}

// CollectionError records a single device's fetch or parse failure; it never
// aborts the enclosing tick.
type CollectionError struct {
	ID             int64          `db:"id" json:"id"`
	MaintenanceID  string         `db:"maintenance_id" json:"maintenance_id"`
	CollectionType CollectionType `db:"collection_type" json:"collection_type"`
	SwitchHostname string         `db:"switch_hostname" json:"switch_hostname"`
	ErrorMessage   string         `db:"error_message" json:"error_message"`
	OccurredAt     time.Time      `db:"occurred_at" json:"occurred_at"`
}

// RecordBase carries the columns shared by every typed record table.
type RecordBase struct {
	ID             int64     `db:"id" json:"id"`
	BatchID        int64     `db:"batch_id" json:"batch_id"`
	MaintenanceID  string    `db:"maintenance_id" json:"maintenance_id"`
	SwitchHostname string    `db:"switch_hostname" json:"switch_hostname"`
	CollectedAt    time.Time `db:"collected_at" json:"collected_at"`
}

// TransceiverRecord is one optical channel of one interface. Transceiver
// parsers emit nested channels; the store flattens them into rows like this,
// repeating the per-interface temperature and voltage on every channel row.
type TransceiverRecord struct {
	RecordBase
	InterfaceName string   `db:"interface_name" json:"interface_name"`
	Channel       int      `db:"channel" json:"channel"`
	TxPower       *float64 `db:"tx_power" json:"tx_power"`
	RxPower       *float64 `db:"rx_power" json:"rx_power"`
	Temperature   *float64 `db:"temperature" json:"temperature"`
	Voltage       *float64 `db:"voltage" json:"voltage"`
}

// PortChannelRecord is one aggregated link with its member interfaces.
type PortChannelRecord struct {
	RecordBase
	PortChannel   string `db:"port_channel" json:"port_channel"`
	Status        string `db:"status" json:"status"`
	Members       string `db:"members" json:"members"`               // comma-joined canonical names
	MemberStatus  string `db:"member_status" json:"member_status"`   // comma-joined, aligned with Members
	Protocol      string `db:"protocol" json:"protocol"`
}

// NeighborRecord is one LLDP neighbor observation.
type NeighborRecord struct {
	RecordBase
	LocalInterface  string `db:"local_interface" json:"local_interface"`
	RemoteHostname  string `db:"remote_hostname" json:"remote_hostname"`
	RemoteInterface string `db:"remote_interface" json:"remote_interface"`
}

// InterfaceErrorRecord is one interface's error counters at collection time.
type InterfaceErrorRecord struct {
	RecordBase
	InterfaceName string `db:"interface_name" json:"interface_name"`
	CRCErrors     int64  `db:"crc_errors" json:"crc_errors"`
	InputErrors   int64  `db:"input_errors" json:"input_errors"`
	OutputErrors  int64  `db:"output_errors" json:"output_errors"`
}

// StaticACLRecord is one line of a statically configured ACL.
type StaticACLRecord struct {
	RecordBase
	ACLName string `db:"acl_name" json:"acl_name"`
	Rule    string `db:"rule" json:"rule"`
}

// DynamicACLRecord is one dynamically applied ACL binding (e.g. dot1x).
type DynamicACLRecord struct {
	RecordBase
	InterfaceName string `db:"interface_name" json:"interface_name"`
	MacAddress    string `db:"mac_address" json:"mac_address"`
	ACLName       string `db:"acl_name" json:"acl_name"`
}

// MacTableRecord is one MAC-address-table entry.
type MacTableRecord struct {
	RecordBase
	MacAddress    string `db:"mac_address" json:"mac_address"`
	VlanID        int    `db:"vlan_id" json:"vlan_id"`
	InterfaceName string `db:"interface_name" json:"interface_name"`
}

// FanRecord is one fan tray status row.
type FanRecord struct {
	RecordBase
	FanID  string `db:"fan_id" json:"fan_id"`
	Status string `db:"status" json:"status"`
}

// PowerRecord is one power-supply status row.
type PowerRecord struct {
	RecordBase
	PsID   string `db:"ps_id" json:"ps_id"`
	Status string `db:"status" json:"status"`
}

// VersionRecord is the firmware version reported by a device.
type VersionRecord struct {
	RecordBase
	Version string `db:"version" json:"version"`
}

// PingRecord is one device reachability probe result.
type PingRecord struct {
	RecordBase
	TargetIP    string   `db:"target_ip" json:"target_ip"`
	IsReachable bool     `db:"is_reachable" json:"is_reachable"`
	SuccessRate *float64 `db:"success_rate" json:"success_rate"`
	LastCheckAt time.Time `db:"last_check_at" json:"last_check_at"`
}

// InterfaceStatusRecord is one interface's operational state.
type InterfaceStatusRecord struct {
	RecordBase
	InterfaceName string `db:"interface_name" json:"interface_name"`
	LinkStatus    string `db:"link_status" json:"link_status"`
	Speed         string `db:"speed" json:"speed"`
	Duplex        string `db:"duplex" json:"duplex"`
	VlanID        *int   `db:"vlan_id" json:"vlan_id"`
}

// ARPRecord is one ARP table entry, collected from designated ARP sources to
// map client MACs to IPs.
type ARPRecord struct {
	RecordBase
	IPAddress     string `db:"ip_address" json:"ip_address"`
	MacAddress    string `db:"mac_address" json:"mac_address"`
	InterfaceName string `db:"interface_name" json:"interface_name"`
}

// UplinkExpectation declares the desired LLDP neighbor for one local
// interface; unique on (maintenance, hostname, local interface).
type UplinkExpectation struct {
	ID                int64  `db:"id" json:"id"`
	MaintenanceID     string `db:"maintenance_id" json:"maintenance_id"`
	Hostname          string `db:"hostname" json:"hostname"`
	LocalInterface    string `db:"local_interface" json:"local_interface"`
	ExpectedNeighbor  string `db:"expected_neighbor" json:"expected_neighbor"`
	ExpectedInterface string `db:"expected_interface" json:"expected_interface"`
}

// VersionExpectation declares the desired firmware version for one device.
type VersionExpectation struct {
	ID              int64  `db:"id" json:"id"`
	MaintenanceID   string `db:"maintenance_id" json:"maintenance_id"`
	Hostname        string `db:"hostname" json:"hostname"`
	ExpectedVersion string `db:"expected_version" json:"expected_version"`
}

// PortChannelExpectation declares the desired member set of one port channel.
type PortChannelExpectation struct {
	ID               int64  `db:"id" json:"id"`
	MaintenanceID    string `db:"maintenance_id" json:"maintenance_id"`
	Hostname         string `db:"hostname" json:"hostname"`
	PortChannel      string `db:"port_channel" json:"port_channel"`
	MemberInterfaces string `db:"member_interfaces" json:"member_interfaces"` // comma-separated
}

// ArpSource marks a device whose ARP table is collected for MAC-to-IP mapping.
type ArpSource struct {
	ID            int64  `db:"id" json:"id"`
	MaintenanceID string `db:"maintenance_id" json:"maintenance_id"`
	Hostname      string `db:"hostname" json:"hostname"`
}

// ClientRecord is one snapshot of everything observed about a tracked MAC.
// Rows for a MAC are append-only and form its time series.
type ClientRecord struct {
	ID             int64     `db:"id" json:"id"`
	MaintenanceID  string    `db:"maintenance_id" json:"maintenance_id"`
	MacAddress     string    `db:"mac_address" json:"mac_address"`
	SwitchHostname *string   `db:"switch_hostname" json:"switch_hostname"`
	InterfaceName  *string   `db:"interface_name" json:"interface_name"`
	VlanID         *int      `db:"vlan_id" json:"vlan_id"`
	Speed          *string   `db:"speed" json:"speed"`
	Duplex         *string   `db:"duplex" json:"duplex"`
	LinkStatus     *string   `db:"link_status" json:"link_status"`
	PingReachable  *bool     `db:"ping_reachable" json:"ping_reachable"`
	ACLPasses      *bool     `db:"acl_passes" json:"acl_passes"`
	CollectedAt    time.Time `db:"collected_at" json:"collected_at"`
}

// LatestClientRecord lets the client ingester skip writes when nothing
// changed for a MAC; unique on (maintenance, mac).
type LatestClientRecord struct {
	ID            int64     `db:"id" json:"id"`
	MaintenanceID string    `db:"maintenance_id" json:"maintenance_id"`
	MacAddress    string    `db:"mac_address" json:"mac_address"`
	DataHash      string    `db:"data_hash" json:"data_hash"`
	CollectedAt   time.Time `db:"collected_at" json:"collected_at"`
	LastCheckedAt time.Time `db:"last_checked_at" json:"last_checked_at"`
}

// CaseStatus is the workflow state of a case.
type CaseStatus string

const (
	CaseUnassigned CaseStatus = "UNASSIGNED"
	CaseAssigned   CaseStatus = "ASSIGNED"
	CaseInProgress CaseStatus = "IN_PROGRESS"
	CaseDiscussing CaseStatus = "DISCUSSING"
	CaseResolved   CaseStatus = "RESOLVED"
)

// Valid reports whether s is a known case status.
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseUnassigned, CaseAssigned, CaseInProgress, CaseDiscussing, CaseResolved:
		return true
	}
	return false
}

// Case tracks one MAC's maintenance outcome. Writers must preserve the
// invariant: status is UNASSIGNED exactly when assignee is null.
type Case struct {
	ID                 int64           `db:"id" json:"id"`
	MaintenanceID      string          `db:"maintenance_id" json:"maintenance_id"`
	MacAddress         string          `db:"mac_address" json:"mac_address"`
	Status             CaseStatus      `db:"status" json:"status"`
	Assignee           *string         `db:"assignee" json:"assignee"`
	Summary            *string         `db:"summary" json:"summary"`
	LastPingReachable  *bool           `db:"last_ping_reachable" json:"last_ping_reachable"`
	PingReachableSince *time.Time      `db:"ping_reachable_since" json:"ping_reachable_since"`
	ChangeFlags        json.RawMessage `db:"change_flags" json:"change_flags"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// CaseNote is one comment on a case; cascades away with the case.
type CaseNote struct {
	ID        int64     `db:"id" json:"id"`
	CaseID    int64     `db:"case_id" json:"case_id"`
	Author    string    `db:"author" json:"author"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UserRole gates case reassignment and administrative operations.
type UserRole string

const (
	RoleRoot   UserRole = "ROOT"
	RolePM     UserRole = "PM"
	RoleMember UserRole = "MEMBER"
)

// User is an operator account. Authentication itself lives outside the core;
// handlers resolve an identity header against this table.
type User struct {
	ID        int64    `db:"id" json:"id"`
	Username  string   `db:"username" json:"username"`
	Role      UserRole `db:"role" json:"role"`
	IsActive  bool     `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ThresholdOverride is one per-maintenance tunable overriding a process
// default.
type ThresholdOverride struct {
	ID            int64  `db:"id" json:"id"`
	MaintenanceID string `db:"maintenance_id" json:"maintenance_id"`
	Key           string `db:"key" json:"key"`
	Value         string `db:"value" json:"value"`
}

// SystemLog is one structured error record written through the log sink.
type SystemLog struct {
	ID            int64     `db:"id" json:"id"`
	Level         string    `db:"level" json:"level"`
	Source        string    `db:"source" json:"source"`
	Module        string    `db:"module" json:"module"`
	Summary       string    `db:"summary" json:"summary"`
	Detail        string    `db:"detail" json:"detail"`
	Username      *string   `db:"username" json:"username,omitempty"`
	MaintenanceID *string   `db:"maintenance_id" json:"maintenance_id,omitempty"`
	RequestPath   *string   `db:"request_path" json:"request_path,omitempty"`
	RequestMethod *string   `db:"request_method" json:"request_method,omitempty"`
	StatusCode    *int      `db:"status_code" json:"status_code,omitempty"`
	IPAddress     *string   `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
