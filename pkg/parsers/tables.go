package parsers

import (
	"regexp"
	"strings"

	"github.com/netauto/maintcheck/pkg/models"
)

var (
	hpeACLHeader   = regexp.MustCompile(`(?i)^acl\s+(?:number\s+|basic\s+|advanced\s+)?(\S+)`)
	ciscoACLHeader = regexp.MustCompile(`(?i)^ip access-list\s+(?:standard|extended)\s+(\S+)`)
	aclRuleLine    = regexp.MustCompile(`(?i)^\s+((?:rule\s+\d+\s+)?(?:permit|deny)\s.+)$`)
)

// ParseMacTable parses MAC address tables from any vendor by shape rather
// than by column position: each entry line carries a MAC, a VLAN number, and
// a port token in some order.
//
//	Vlan    Mac Address       Type        Ports
//	 100    aabb.ccdd.ee01    DYNAMIC     Te1/0/1
//
//	aabb-ccdd-ee01 100 Learned XGE1/0/1 AGING
func ParseMacTable(raw string) (ItemList, error) {
	var items MacTableItems
	for _, line := range splitLines(raw) {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		var mac string
		var vlan int
		var iface string
		vlanSet := false
		for _, tok := range fields {
			switch {
			case mac == "" && looksLikeMac(tok):
				mac, _ = models.NormalizeMac(tok)
			case !vlanSet:
				if v, ok := intTok(tok); ok {
					vlan, vlanSet = v, true
				}
			}
		}
		// The port is the last interface-looking token that is not the MAC.
		for i := len(fields) - 1; i >= 0; i-- {
			if looksLikeMac(fields[i]) {
				continue
			}
			if looksLikeInterface(fields[i]) {
				iface = fields[i]
				break
			}
		}
		if mac == "" || iface == "" {
			continue
		}
		items = append(items, MacTableItem{MacAddress: mac, VlanID: vlan, InterfaceName: iface})
	}
	return items, nil
}

// ParseARP parses ARP tables from any vendor by shape: each entry line
// carries an IPv4 address and a MAC; the interface is the last port token
// when present.
//
//	Internet  10.1.1.5   0   aabb.ccdd.ee01  ARPA   Vlan100
//	10.1.1.5  aabb-ccdd-ee01  100  XGE1/0/1  20  D
func ParseARP(raw string) (ItemList, error) {
	var items ARPItems
	for _, line := range splitLines(raw) {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		var ip, mac, iface string
		for _, tok := range fields {
			switch {
			case ip == "" && looksLikeIPv4(tok):
				ip = tok
			case mac == "" && looksLikeMac(tok):
				mac, _ = models.NormalizeMac(tok)
			}
		}
		for i := len(fields) - 1; i >= 0; i-- {
			if looksLikeMac(fields[i]) {
				continue
			}
			if looksLikeInterface(fields[i]) {
				iface = fields[i]
				break
			}
		}
		if ip == "" || mac == "" {
			continue
		}
		items = append(items, ARPItem{IPAddress: ip, MacAddress: mac, InterfaceName: iface})
	}
	return items, nil
}

// ParseStaticACL parses ACL configuration text. Header lines (Comware
// "acl advanced 3000", IOS "ip access-list extended NAME") open an ACL;
// indented permit/deny lines are its rules.
func ParseStaticACL(raw string) (ItemList, error) {
	var items StaticACLItems
	var curACL string
	for _, line := range splitLines(raw) {
		if m := hpeACLHeader.FindStringSubmatch(line); m != nil {
			curACL = m[1]
			continue
		}
		if m := ciscoACLHeader.FindStringSubmatch(line); m != nil {
			curACL = m[1]
			continue
		}
		if curACL == "" {
			continue
		}
		if m := aclRuleLine.FindStringSubmatch(line); m != nil {
			items = append(items, StaticACLItem{ACLName: curACL, Rule: strings.TrimSpace(m[1])})
		}
	}
	return items, nil
}

// ParseDynamicACL parses dynamically applied ACL bindings, reported as
// three-column lines of interface, client MAC, and ACL name:
//
//	Te1/0/1   aabb.ccdd.ee01   xACSACLx-IP-PERMIT_ALL
func ParseDynamicACL(raw string) (ItemList, error) {
	var items DynamicACLItems
	for _, line := range splitLines(raw) {
		fields := strings.Fields(line)
		if len(fields) < 3 || !looksLikeInterface(fields[0]) || !looksLikeMac(fields[1]) {
			continue
		}
		mac, _ := models.NormalizeMac(fields[1])
		items = append(items, DynamicACLItem{
			InterfaceName: fields[0],
			MacAddress:    mac,
			ACLName:       fields[2],
		})
	}
	return items, nil
}
