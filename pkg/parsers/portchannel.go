package parsers

import (
	"regexp"
	"strings"
)

var (
	hpeAggHeader  = regexp.MustCompile(`^Aggregate Interface:\s*(\S+)`)
	hpeAggMode    = regexp.MustCompile(`^Aggregation Mode:\s*(\S+)`)
	ciscoPCEntry  = regexp.MustCompile(`^(\d+)\s+(\S+?)\((\w+)\)\s+(\S+)\s*(.*)$`)
	ciscoPCMember = regexp.MustCompile(`(\S+?)\((\w+)\)`)
)

// ParsePortChannelHPE parses Comware "display link-aggregation verbose".
// A member in Selected state counts as up; the aggregate is UP when at least
// one member is selected.
//
//	Aggregate Interface: Bridge-Aggregation1
//	Aggregation Mode: Dynamic
//	  Port             Status   Priority Oper-Key
//	  XGE1/0/49        S        32768    1
//	  XGE1/0/50        U        32768    1
func ParsePortChannelHPE(raw string) (ItemList, error) {
	var items PortChannelItems
	var cur *PortChannelItem

	flush := func() {
		if cur == nil {
			return
		}
		cur.Status = "DOWN"
		for _, st := range cur.MemberStatus {
			if st == "UP" {
				cur.Status = "UP"
				break
			}
		}
		items = append(items, *cur)
		cur = nil
	}

	for _, line := range splitLines(raw) {
		if m := hpeAggHeader.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			cur = &PortChannelItem{PortChannel: m[1], Members: []string{}, MemberStatus: []string{}}
			continue
		}
		if cur == nil {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if m := hpeAggMode.FindStringSubmatch(trimmed); m != nil {
			cur.Protocol = m[1]
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 2 || !looksLikeInterface(fields[0]) {
			continue
		}
		status := "DOWN"
		if fields[1] == "S" || strings.EqualFold(fields[1], "Selected") {
			status = "UP"
		}
		cur.Members = append(cur.Members, fields[0])
		cur.MemberStatus = append(cur.MemberStatus, status)
	}
	flush()
	return items, nil
}

// ParsePortChannelCisco parses "show etherchannel summary" (IOS) and
// "show port-channel summary" (NX-OS):
//
//	Group  Port-channel  Protocol    Ports
//	------+-------------+-----------+------------------------------
//	1      Po1(SU)         LACP      Te1/0/1(P) Te1/0/2(P)
//
// Flag U on the port channel means in use; member flag P (or “bndl”) means
// bundled.
func ParsePortChannelCisco(raw string) (ItemList, error) {
	var items PortChannelItems
	var cur *PortChannelItem

	flush := func() {
		if cur != nil {
			items = append(items, *cur)
			cur = nil
		}
	}

	for _, line := range splitLines(raw) {
		trimmed := strings.TrimSpace(line)
		if m := ciscoPCEntry.FindStringSubmatch(trimmed); m != nil {
			flush()
			status := "DOWN"
			if strings.ContainsAny(m[3], "Uu") {
				status = "UP"
			}
			cur = &PortChannelItem{
				PortChannel:  m[2],
				Status:       status,
				Protocol:     m[4],
				Members:      []string{},
				MemberStatus: []string{},
			}
			appendCiscoMembers(cur, m[5])
			continue
		}
		// Continuation lines list further members indented under the entry.
		if cur != nil && strings.HasPrefix(line, " ") && ciscoPCMember.MatchString(trimmed) {
			appendCiscoMembers(cur, trimmed)
		}
	}
	flush()
	return items, nil
}

func appendCiscoMembers(pc *PortChannelItem, s string) {
	for _, m := range ciscoPCMember.FindAllStringSubmatch(s, -1) {
		if !looksLikeInterface(m[1]) {
			continue
		}
		status := "DOWN"
		if strings.ContainsAny(m[2], "Pp") {
			status = "UP"
		}
		pc.Members = append(pc.Members, m[1])
		pc.MemberStatus = append(pc.MemberStatus, status)
	}
}
