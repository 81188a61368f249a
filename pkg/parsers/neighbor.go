package parsers

import "strings"

// ParseNeighborsHPE parses Comware "display lldp neighbor-information list":
//
//	Local Interface  Chassis ID      Port ID                   System Name
//	XGE1/0/49        00e0-fc12-3456  Ten-GigabitEthernet2/0/1  core-sw-01
func ParseNeighborsHPE(raw string) (ItemList, error) {
	var items NeighborItems
	for _, line := range splitLines(raw) {
		fields := strings.Fields(line)
		if len(fields) < 4 || !looksLikeInterface(fields[0]) {
			continue
		}
		items = append(items, NeighborItem{
			LocalInterface:  fields[0],
			RemoteInterface: fields[2],
			RemoteHostname:  strings.Join(fields[3:], " "),
		})
	}
	return items, nil
}

// ParseNeighborsCisco parses "show lldp neighbors" (IOS and NX-OS):
//
//	Device ID           Local Intf     Hold-time  Capability      Port ID
//	core-sw-01          Te1/0/1        120        B,R             Te2/0/1
func ParseNeighborsCisco(raw string) (ItemList, error) {
	var items NeighborItems
	for _, line := range splitLines(raw) {
		fields := strings.Fields(line)
		if len(fields) < 5 || !looksLikeInterface(fields[1]) {
			continue
		}
		if _, isNum := intTok(fields[2]); !isNum {
			continue
		}
		items = append(items, NeighborItem{
			RemoteHostname:  fields[0],
			LocalInterface:  fields[1],
			RemoteInterface: fields[len(fields)-1],
		})
	}
	return items, nil
}
