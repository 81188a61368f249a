// Package parsers turns raw CLI text from the upstream gateways into typed
// items. Parsers register under a (collection type, vendor OS) key and are
// pure: the same input always yields the same items, and missing optional
// fields stay nil.
package parsers

import (
	"github.com/netauto/maintcheck/pkg/canonical"
	"github.com/netauto/maintcheck/pkg/models"
)

// ItemList is the tagged output of a parser. The store canonicalises
// interface names through it before hashing and dispatches row writes on the
// concrete type.
type ItemList interface {
	Type() models.CollectionType
	Len() int
	// Canonicalize rewrites every interface name to its canonical short
	// form, in place. Must run before hashing.
	Canonicalize()
	// Raw returns the underlying slice for canonical hashing.
	Raw() any
}

// TransceiverItem is the nested form a transceiver parser emits: one entry
// per interface, one or more laser channels each.
type TransceiverItem struct {
	InterfaceName string               `json:"interface_name"`
	Temperature   *float64             `json:"temperature"`
	Voltage       *float64             `json:"voltage"`
	Channels      []TransceiverChannel `json:"channels"`
}

// TransceiverChannel is one laser channel of a transceiver.
type TransceiverChannel struct {
	Channel int      `json:"channel"`
	TxPower *float64 `json:"tx_power"`
	RxPower *float64 `json:"rx_power"`
}

// TransceiverFlat is the flattened per-channel form the store persists and
// hashes: per-interface temperature and voltage repeated on each channel row.
type TransceiverFlat struct {
	InterfaceName string   `json:"interface_name"`
	Channel       int      `json:"channel"`
	TxPower       *float64 `json:"tx_power"`
	RxPower       *float64 `json:"rx_power"`
	Temperature   *float64 `json:"temperature"`
	Voltage       *float64 `json:"voltage"`
}

// Flatten expands nested transceiver items into one flat item per channel.
// Interfaces that report no channels still produce a single row so that a
// present-but-unreadable module is visible downstream.
func Flatten(items []TransceiverItem) TransceiverItems {
	var out TransceiverItems
	for _, it := range items {
		if len(it.Channels) == 0 {
			out = append(out, TransceiverFlat{
				InterfaceName: it.InterfaceName,
				Temperature:   it.Temperature,
				Voltage:       it.Voltage,
			})
			continue
		}
		for _, ch := range it.Channels {
			out = append(out, TransceiverFlat{
				InterfaceName: it.InterfaceName,
				Channel:       ch.Channel,
				TxPower:       ch.TxPower,
				RxPower:       ch.RxPower,
				Temperature:   it.Temperature,
				Voltage:       it.Voltage,
			})
		}
	}
	return out
}

type TransceiverItems []TransceiverFlat

func (t TransceiverItems) Type() models.CollectionType { return models.CollectionTransceiver }
func (t TransceiverItems) Len() int                    { return len(t) }
func (t TransceiverItems) Raw() any                    { return []TransceiverFlat(t) }
func (t TransceiverItems) Canonicalize() {
	for i := range t {
		t[i].InterfaceName = canonical.Interface(t[i].InterfaceName)
	}
}

// PortChannelItem is one aggregated link and its members.
type PortChannelItem struct {
	PortChannel  string   `json:"port_channel"`
	Status       string   `json:"status"`
	Members      []string `json:"members"`
	MemberStatus []string `json:"member_status"`
	Protocol     string   `json:"protocol"`
}

type PortChannelItems []PortChannelItem

func (p PortChannelItems) Type() models.CollectionType { return models.CollectionPortChannel }
func (p PortChannelItems) Len() int                    { return len(p) }
func (p PortChannelItems) Raw() any                    { return []PortChannelItem(p) }
func (p PortChannelItems) Canonicalize() {
	for i := range p {
		p[i].PortChannel = canonical.Interface(p[i].PortChannel)
		for j := range p[i].Members {
			p[i].Members[j] = canonical.Interface(p[i].Members[j])
		}
	}
}

// NeighborItem is one LLDP neighbor observation.
type NeighborItem struct {
	LocalInterface  string `json:"local_interface"`
	RemoteHostname  string `json:"remote_hostname"`
	RemoteInterface string `json:"remote_interface"`
}

type NeighborItems []NeighborItem

func (n NeighborItems) Type() models.CollectionType { return models.CollectionUplink }
func (n NeighborItems) Len() int                    { return len(n) }
func (n NeighborItems) Raw() any                    { return []NeighborItem(n) }
func (n NeighborItems) Canonicalize() {
	for i := range n {
		n[i].LocalInterface = canonical.Interface(n[i].LocalInterface)
		n[i].RemoteInterface = canonical.Interface(n[i].RemoteInterface)
	}
}

// InterfaceErrorItem is one interface's error counters.
type InterfaceErrorItem struct {
	InterfaceName string `json:"interface_name"`
	CRCErrors     int64  `json:"crc_errors"`
	InputErrors   int64  `json:"input_errors"`
	OutputErrors  int64  `json:"output_errors"`
}

type InterfaceErrorItems []InterfaceErrorItem

func (e InterfaceErrorItems) Type() models.CollectionType { return models.CollectionErrorCount }
func (e InterfaceErrorItems) Len() int                    { return len(e) }
func (e InterfaceErrorItems) Raw() any                    { return []InterfaceErrorItem(e) }
func (e InterfaceErrorItems) Canonicalize() {
	for i := range e {
		e[i].InterfaceName = canonical.Interface(e[i].InterfaceName)
	}
}

// StaticACLItem is one configured ACL rule line.
type StaticACLItem struct {
	ACLName string `json:"acl_name"`
	Rule    string `json:"rule"`
}

type StaticACLItems []StaticACLItem

func (s StaticACLItems) Type() models.CollectionType { return models.CollectionStaticACL }
func (s StaticACLItems) Len() int                    { return len(s) }
func (s StaticACLItems) Raw() any                    { return []StaticACLItem(s) }
func (s StaticACLItems) Canonicalize()               {}

// DynamicACLItem is one dynamically applied ACL binding.
type DynamicACLItem struct {
	InterfaceName string `json:"interface_name"`
	MacAddress    string `json:"mac_address"`
	ACLName       string `json:"acl_name"`
}

type DynamicACLItems []DynamicACLItem

func (d DynamicACLItems) Type() models.CollectionType { return models.CollectionDynamicACL }
func (d DynamicACLItems) Len() int                    { return len(d) }
func (d DynamicACLItems) Raw() any                    { return []DynamicACLItem(d) }
func (d DynamicACLItems) Canonicalize() {
	for i := range d {
		d[i].InterfaceName = canonical.Interface(d[i].InterfaceName)
	}
}

// MacTableItem is one MAC-address-table entry.
type MacTableItem struct {
	MacAddress    string `json:"mac_address"`
	VlanID        int    `json:"vlan_id"`
	InterfaceName string `json:"interface_name"`
}

type MacTableItems []MacTableItem

func (m MacTableItems) Type() models.CollectionType { return models.CollectionMacTable }
func (m MacTableItems) Len() int                    { return len(m) }
func (m MacTableItems) Raw() any                    { return []MacTableItem(m) }
func (m MacTableItems) Canonicalize() {
	for i := range m {
		m[i].InterfaceName = canonical.Interface(m[i].InterfaceName)
	}
}

// FanItem is one fan tray status.
type FanItem struct {
	FanID  string `json:"fan_id"`
	Status string `json:"status"`
}

type FanItems []FanItem

func (f FanItems) Type() models.CollectionType { return models.CollectionFan }
func (f FanItems) Len() int                    { return len(f) }
func (f FanItems) Raw() any                    { return []FanItem(f) }
func (f FanItems) Canonicalize()               {}

// PowerItem is one power-supply status.
type PowerItem struct {
	PsID   string `json:"ps_id"`
	Status string `json:"status"`
}

type PowerItems []PowerItem

func (p PowerItems) Type() models.CollectionType { return models.CollectionPower }
func (p PowerItems) Len() int                    { return len(p) }
func (p PowerItems) Raw() any                    { return []PowerItem(p) }
func (p PowerItems) Canonicalize()               {}

// VersionItem is the firmware version string of a device.
type VersionItem struct {
	Version string `json:"version"`
}

type VersionItems []VersionItem

func (v VersionItems) Type() models.CollectionType { return models.CollectionVersion }
func (v VersionItems) Len() int                    { return len(v) }
func (v VersionItems) Raw() any                    { return []VersionItem(v) }
func (v VersionItems) Canonicalize()               {}

// PingItem is one reachability probe result from the bulk ping source.
type PingItem struct {
	TargetIP    string   `json:"target_ip"`
	IsReachable bool     `json:"is_reachable"`
	SuccessRate *float64 `json:"success_rate"`
}

type PingItems []PingItem

func (p PingItems) Type() models.CollectionType { return models.CollectionPing }
func (p PingItems) Len() int                    { return len(p) }
func (p PingItems) Raw() any                    { return []PingItem(p) }
func (p PingItems) Canonicalize()               {}

// InterfaceStatusItem is one interface's operational state.
type InterfaceStatusItem struct {
	InterfaceName string `json:"interface_name"`
	LinkStatus    string `json:"link_status"`
	Speed         string `json:"speed"`
	Duplex        string `json:"duplex"`
	VlanID        *int   `json:"vlan_id"`
}

type InterfaceStatusItems []InterfaceStatusItem

func (s InterfaceStatusItems) Type() models.CollectionType { return models.CollectionInterfaceStatus }
func (s InterfaceStatusItems) Len() int                    { return len(s) }
func (s InterfaceStatusItems) Raw() any                    { return []InterfaceStatusItem(s) }
func (s InterfaceStatusItems) Canonicalize() {
	for i := range s {
		s[i].InterfaceName = canonical.Interface(s[i].InterfaceName)
	}
}

// ARPItem is one ARP table entry.
type ARPItem struct {
	IPAddress     string `json:"ip_address"`
	MacAddress    string `json:"mac_address"`
	InterfaceName string `json:"interface_name"`
}

type ARPItems []ARPItem

func (a ARPItems) Type() models.CollectionType { return models.CollectionARP }
func (a ARPItems) Len() int                    { return len(a) }
func (a ARPItems) Raw() any                    { return []ARPItem(a) }
func (a ARPItems) Canonicalize() {
	for i := range a {
		a[i].InterfaceName = canonical.Interface(a[i].InterfaceName)
	}
}
