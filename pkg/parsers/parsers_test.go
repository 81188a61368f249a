package parsers

import (
	"reflect"
	"testing"
)

const hpeXcvrSample = `Ten-GigabitEthernet1/0/49 transceiver diagnostic information:
  Current diagnostic parameters:
    Temp.(C) Voltage(V) Bias(mA) RX power(dBm) TX power(dBm)
    36       3.31       6.13     -5.42         -2.31
Ten-GigabitEthernet1/0/50 transceiver diagnostic information:
  The transceiver is absent.
`

func TestParseTransceiverHPE(t *testing.T) {
	list, err := ParseTransceiverHPE(hpeXcvrSample)
	if err != nil {
		t.Fatal(err)
	}
	items := list.(TransceiverItems)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	ok := items[0]
	if ok.InterfaceName != "Ten-GigabitEthernet1/0/49" || ok.Channel != 1 {
		t.Errorf("unexpected first item: %+v", ok)
	}
	if ok.TxPower == nil || *ok.TxPower != -2.31 {
		t.Errorf("tx_power = %v, want -2.31", ok.TxPower)
	}
	if ok.RxPower == nil || *ok.RxPower != -5.42 {
		t.Errorf("rx_power = %v, want -5.42", ok.RxPower)
	}
	if ok.Temperature == nil || *ok.Temperature != 36 {
		t.Errorf("temperature = %v, want 36", ok.Temperature)
	}
	if ok.Voltage == nil || *ok.Voltage != 3.31 {
		t.Errorf("voltage = %v, want 3.31", ok.Voltage)
	}

	absent := items[1]
	if absent.TxPower != nil || absent.RxPower != nil || absent.Temperature != nil || absent.Voltage != nil {
		t.Errorf("absent module should have all-nil readings: %+v", absent)
	}
}

const ciscoXcvrSample = `           Temperature  Voltage  Current   Tx Power  Rx Power
Port       (Celsius)    (Volts)  (mA)      (dBm)     (dBm)
---------  -----------  -------  --------  --------  --------
Te1/0/1      29.4       3.30      6.1       -2.5      -3.7
Te1/0/2      31.0       3.28      N/A       N/A       N/A
`

func TestParseTransceiverCisco(t *testing.T) {
	list, err := ParseTransceiverCisco(ciscoXcvrSample)
	if err != nil {
		t.Fatal(err)
	}
	items := list.(TransceiverItems)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].TxPower == nil || *items[0].TxPower != -2.5 {
		t.Errorf("tx_power = %v, want -2.5", items[0].TxPower)
	}
	if items[1].TxPower != nil {
		t.Errorf("N/A tx_power should be nil, got %v", *items[1].TxPower)
	}
	if items[1].Temperature == nil || *items[1].Temperature != 31.0 {
		t.Errorf("temperature = %v, want 31.0", items[1].Temperature)
	}
}

const hpeAggSample = `Aggregate Interface: Bridge-Aggregation1
Aggregation Mode: Dynamic
Loadsharing Type: Shar
  Port             Status   Priority Oper-Key
  XGE1/0/49        S        32768    1
  XGE1/0/50        U        32768    1
`

func TestParsePortChannelHPE(t *testing.T) {
	list, err := ParsePortChannelHPE(hpeAggSample)
	if err != nil {
		t.Fatal(err)
	}
	items := list.(PortChannelItems)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	pc := items[0]
	if pc.PortChannel != "Bridge-Aggregation1" || pc.Status != "UP" || pc.Protocol != "Dynamic" {
		t.Errorf("unexpected port channel: %+v", pc)
	}
	if !reflect.DeepEqual(pc.Members, []string{"XGE1/0/49", "XGE1/0/50"}) {
		t.Errorf("members = %v", pc.Members)
	}
	if !reflect.DeepEqual(pc.MemberStatus, []string{"UP", "DOWN"}) {
		t.Errorf("member status = %v", pc.MemberStatus)
	}
}

const ciscoPCSample = `Group  Port-channel  Protocol    Ports
------+-------------+-----------+------------------------------
1      Po1(SU)         LACP      Te1/0/1(P) Te1/0/2(P)
2      Po2(SD)         LACP      Te1/0/3(D)
`

func TestParsePortChannelCisco(t *testing.T) {
	list, err := ParsePortChannelCisco(ciscoPCSample)
	if err != nil {
		t.Fatal(err)
	}
	items := list.(PortChannelItems)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Status != "UP" || len(items[0].Members) != 2 || items[0].MemberStatus[1] != "UP" {
		t.Errorf("unexpected Po1: %+v", items[0])
	}
	if items[1].Status != "DOWN" || items[1].MemberStatus[0] != "DOWN" {
		t.Errorf("unexpected Po2: %+v", items[1])
	}
}

const ciscoLLDPSample = `Capability codes: (R) Router, (B) Bridge
Device ID           Local Intf     Hold-time  Capability      Port ID
core-sw-01          Te1/0/1        120        B,R             Te2/0/1
core-sw-02          Te1/0/2        120        B,R             Te2/0/1
Total entries displayed: 2
`

func TestParseNeighborsCisco(t *testing.T) {
	list, err := ParseNeighborsCisco(ciscoLLDPSample)
	if err != nil {
		t.Fatal(err)
	}
	items := list.(NeighborItems)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	want := NeighborItem{RemoteHostname: "core-sw-01", LocalInterface: "Te1/0/1", RemoteInterface: "Te2/0/1"}
	if items[0] != want {
		t.Errorf("got %+v, want %+v", items[0], want)
	}
}

func TestParseVersion(t *testing.T) {
	hpe := "H3C Comware Platform Software\nComware Software, Version 7.1.070, Release 6530P02\n"
	list, _ := ParseVersionHPE(hpe)
	if v := list.(VersionItems); len(v) != 1 || v[0].Version != "7.1.070, Release 6530P02" {
		t.Errorf("HPE version = %+v", v)
	}

	ios := "Cisco IOS Software, C3850 Software (CAT3K_CAA-UNIVERSALK9-M), Version 16.12.4, RELEASE SOFTWARE (fc5)\n"
	list, _ = ParseVersionCisco(ios)
	if v := list.(VersionItems); len(v) != 1 || v[0].Version != "16.12.4" {
		t.Errorf("IOS version = %+v", v)
	}

	nxos := "Software\n  NXOS: version 9.3(5)\n"
	list, _ = ParseVersionCisco(nxos)
	if v := list.(VersionItems); len(v) != 1 || v[0].Version != "9.3(5)" {
		t.Errorf("NX-OS version = %+v", v)
	}
}

func TestParseFan(t *testing.T) {
	hpe := " Fan 1:\n State    : Normal\n Fan 2:\n State    : Absent\n"
	list, _ := ParseFanHPE(hpe)
	if f := list.(FanItems); len(f) != 2 || f[0] != (FanItem{FanID: "Fan1", Status: "Normal"}) {
		t.Errorf("HPE fans = %+v", f)
	}

	ios := "FAN 1 is OK\nFAN 2 is OK\nFAN PS-1 is OK\n"
	list, _ = ParseFanCisco(ios)
	if f := list.(FanItems); len(f) != 3 || f[0].Status != "OK" {
		t.Errorf("IOS fans = %+v", f)
	}
}

func TestParseInterfaceErrorsCisco(t *testing.T) {
	raw := `Port        Align-Err    FCS-Err   Xmit-Err    Rcv-Err  UnderSize
Te1/0/1             0          5          0          3          0
Te1/0/2             0          0          0          0          0
`
	list, err := ParseInterfaceErrorsCisco(raw)
	if err != nil {
		t.Fatal(err)
	}
	items := list.(InterfaceErrorItems)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].CRCErrors != 5 || items[0].InputErrors != 3 {
		t.Errorf("unexpected counters: %+v", items[0])
	}
}

func TestParseInterfaceStatusCisco(t *testing.T) {
	raw := `Port      Name               Status       Vlan       Duplex  Speed Type
Te1/0/1   uplink to core     connected    trunk      full    10G   SFP-10GBase-SR
Te1/0/2                      notconnect   100        auto    auto  10/100/1000BaseTX
`
	list, err := ParseInterfaceStatusCisco(raw)
	if err != nil {
		t.Fatal(err)
	}
	items := list.(InterfaceStatusItems)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].LinkStatus != "UP" || items[0].Duplex != "full" || items[0].Speed != "10G" {
		t.Errorf("unexpected status: %+v", items[0])
	}
	if items[1].LinkStatus != "DOWN" || items[1].VlanID == nil || *items[1].VlanID != 100 {
		t.Errorf("unexpected status: %+v", items[1])
	}
}

func TestParseMacTable(t *testing.T) {
	cisco := `Vlan    Mac Address       Type        Ports
----    -----------       --------    -----
 100    aabb.ccdd.ee01    DYNAMIC     Te1/0/1
`
	list, _ := ParseMacTable(cisco)
	items := list.(MacTableItems)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	want := MacTableItem{MacAddress: "AA:BB:CC:DD:EE:01", VlanID: 100, InterfaceName: "Te1/0/1"}
	if items[0] != want {
		t.Errorf("got %+v, want %+v", items[0], want)
	}

	hpe := "aabb-ccdd-ee02 200 Learned XGE1/0/5 AGING\n"
	list, _ = ParseMacTable(hpe)
	items = list.(MacTableItems)
	if len(items) != 1 || items[0].MacAddress != "AA:BB:CC:DD:EE:02" || items[0].InterfaceName != "XGE1/0/5" {
		t.Errorf("HPE mac table = %+v", items)
	}
}

func TestParseARP(t *testing.T) {
	raw := "Internet  10.1.1.5   0   aabb.ccdd.ee01  ARPA   Vlan100\n"
	list, _ := ParseARP(raw)
	items := list.(ARPItems)
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].IPAddress != "10.1.1.5" || items[0].MacAddress != "AA:BB:CC:DD:EE:01" {
		t.Errorf("got %+v", items[0])
	}
}

func TestParsePingCSV(t *testing.T) {
	raw := "ip,reachable,success_rate\n10.1.1.5,true,100\n10.1.1.6,false,0\nnot-an-ip,true\n"
	list, err := ParsePingCSV(raw)
	if err != nil {
		t.Fatal(err)
	}
	items := list.(PingItems)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if !items[0].IsReachable || items[0].SuccessRate == nil || *items[0].SuccessRate != 100 {
		t.Errorf("got %+v", items[0])
	}
	if items[1].IsReachable {
		t.Errorf("10.1.1.6 should be unreachable")
	}
}

func TestParseStaticACL(t *testing.T) {
	raw := `acl advanced 3000
 rule 0 permit ip source 10.1.1.0 0.0.0.255
 rule 5 deny ip
ip access-list extended CLIENT-PROTECT
 permit ip host 10.1.1.5 any
`
	list, _ := ParseStaticACL(raw)
	items := list.(StaticACLItems)
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].ACLName != "3000" || items[2].ACLName != "CLIENT-PROTECT" {
		t.Errorf("got %+v", items)
	}
}

// Parsers must be deterministic: the same text yields the same items.
func TestParserDeterminism(t *testing.T) {
	for i := 0; i < 5; i++ {
		a, _ := ParseTransceiverHPE(hpeXcvrSample)
		b, _ := ParseTransceiverHPE(hpeXcvrSample)
		if !reflect.DeepEqual(a, b) {
			t.Fatal("ParseTransceiverHPE is not deterministic")
		}
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r)

	if _, err := r.Lookup("transceiver", "HPE"); err != nil {
		t.Errorf("expected HPE transceiver parser: %v", err)
	}
	// Vendor-neutral fallback.
	if _, err := r.Lookup("mac_table", "Cisco-IOS"); err != nil {
		t.Errorf("expected fallback mac_table parser: %v", err)
	}
	if _, err := r.Lookup("transceiver", "Unknown-OS"); err == nil {
		t.Error("expected error for unknown vendor transceiver parser")
	}
}
