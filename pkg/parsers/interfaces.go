package parsers

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	hpeCRCLine    = regexp.MustCompile(`(\d+)\s+CRC`)
	hpeInputErr   = regexp.MustCompile(`(\d+)\s+input errors`)
	hpeOutputErr  = regexp.MustCompile(`(\d+)\s+output errors`)
	ciscoIfStates = map[string]bool{
		"connected": true, "notconnect": true, "disabled": true,
		"err-disabled": true, "monitoring": true, "suspended": true,
		"inactive": true, "sfpAbsent": true, "xcvrAbsen": true,
		"noOperMem": true, "down": true, "up": true,
	}
)

// ParseInterfaceErrorsHPE walks Comware "display interface" blocks. A line
// without leading whitespace opens a new interface block; CRC and error
// counters are picked out of the block body:
//
//	Ten-GigabitEthernet1/0/1
//	 Input (total): 123456 packets, 5 errors
//	 Input: 10 CRC, 0 frame, 5 input errors
//	 Output: 0 output errors
func ParseInterfaceErrorsHPE(raw string) (ItemList, error) {
	var items InterfaceErrorItems
	var cur *InterfaceErrorItem

	flush := func() {
		if cur != nil {
			items = append(items, *cur)
			cur = nil
		}
	}

	for _, line := range splitLines(raw) {
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			name := strings.Fields(line)[0]
			if looksLikeInterface(name) {
				flush()
				cur = &InterfaceErrorItem{InterfaceName: name}
			}
			continue
		}
		if cur == nil {
			continue
		}
		if m := hpeCRCLine.FindStringSubmatch(line); m != nil {
			cur.CRCErrors, _ = strconv.ParseInt(m[1], 10, 64)
		}
		if m := hpeInputErr.FindStringSubmatch(line); m != nil {
			cur.InputErrors, _ = strconv.ParseInt(m[1], 10, 64)
		}
		if m := hpeOutputErr.FindStringSubmatch(line); m != nil {
			cur.OutputErrors, _ = strconv.ParseInt(m[1], 10, 64)
		}
	}
	flush()
	return items, nil
}

// ParseInterfaceErrorsCisco parses "show interfaces counters errors":
//
//	Port        Align-Err    FCS-Err   Xmit-Err    Rcv-Err  UnderSize
//	Te1/0/1             0          5          0          3          0
//
// FCS errors are reported as CRC errors.
func ParseInterfaceErrorsCisco(raw string) (ItemList, error) {
	var items InterfaceErrorItems
	for _, line := range splitLines(raw) {
		fields := strings.Fields(line)
		if len(fields) < 5 || !looksLikeInterface(fields[0]) {
			continue
		}
		crc, ok := parseInt64(fields[2])
		if !ok {
			continue
		}
		in, _ := parseInt64(fields[4])
		out, _ := parseInt64(fields[3])
		items = append(items, InterfaceErrorItem{
			InterfaceName: fields[0],
			CRCErrors:     crc,
			InputErrors:   in,
			OutputErrors:  out,
		})
	}
	return items, nil
}

func parseInt64(tok string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
	return v, err == nil
}

// ParseInterfaceStatusHPE parses Comware "display interface brief":
//
//	Interface            Link Speed   Duplex Type PVID Description
//	XGE1/0/1             UP   10G(a)  F(a)   A    1    uplink
func ParseInterfaceStatusHPE(raw string) (ItemList, error) {
	var items InterfaceStatusItems
	for _, line := range splitLines(raw) {
		fields := strings.Fields(line)
		if len(fields) < 4 || !looksLikeInterface(fields[0]) {
			continue
		}
		it := InterfaceStatusItem{
			InterfaceName: fields[0],
			LinkStatus:    strings.ToUpper(fields[1]),
			Speed:         strings.TrimSuffix(fields[2], "(a)"),
			Duplex:        normalizeDuplex(fields[3]),
		}
		if len(fields) >= 6 {
			if v, ok := intTok(fields[5]); ok {
				it.VlanID = &v
			}
		}
		items = append(items, it)
	}
	return items, nil
}

// ParseInterfaceStatusCisco parses "show interface status". The description
// column is optional, so the status keyword anchors the field positions:
//
//	Port      Name     Status       Vlan       Duplex  Speed Type
//	Te1/0/1   uplink   connected    trunk      full    10G   SFP-10GBase-SR
func ParseInterfaceStatusCisco(raw string) (ItemList, error) {
	var items InterfaceStatusItems
	for _, line := range splitLines(raw) {
		fields := strings.Fields(line)
		if len(fields) < 5 || !looksLikeInterface(fields[0]) {
			continue
		}
		statusIdx := -1
		for i := 1; i < len(fields)-3; i++ {
			if ciscoIfStates[fields[i]] {
				statusIdx = i
				break
			}
		}
		if statusIdx == -1 || len(fields) < statusIdx+4 {
			continue
		}
		link := "DOWN"
		if fields[statusIdx] == "connected" || fields[statusIdx] == "up" {
			link = "UP"
		}
		it := InterfaceStatusItem{
			InterfaceName: fields[0],
			LinkStatus:    link,
			Duplex:        normalizeDuplex(fields[statusIdx+2]),
			Speed:         strings.TrimPrefix(fields[statusIdx+3], "a-"),
		}
		if v, ok := intTok(fields[statusIdx+1]); ok {
			it.VlanID = &v
		}
		items = append(items, it)
	}
	return items, nil
}

func normalizeDuplex(tok string) string {
	tok = strings.TrimSuffix(strings.TrimPrefix(tok, "a-"), "(a)")
	switch strings.ToLower(tok) {
	case "f", "full":
		return "full"
	case "h", "half":
		return "half"
	case "a", "auto":
		return "auto"
	}
	return tok
}
