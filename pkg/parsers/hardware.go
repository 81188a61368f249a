package parsers

import (
	"regexp"
	"strings"
)

var (
	hpeFanHeader   = regexp.MustCompile(`(?i)^\s*Fan[- ]?(\S+?):?\s*$`)
	hpePowerHeader = regexp.MustCompile(`(?i)^\s*Power[- ]?(\S+?):?\s*$`)
	hpeStateLine   = regexp.MustCompile(`(?i)^\s*State\s*:\s*(\S+)`)
	ciscoFanLine   = regexp.MustCompile(`(?i)^\s*FAN\s*(\S*?)\s+is\s+(\S+?),?\s*$`)
	ciscoFanRow    = regexp.MustCompile(`(?i)^\s*(Fan\S*)\s+\S+\s+\S+\s+(\S+)\s*$`)
	ciscoPSLine    = regexp.MustCompile(`(?i)^\s*(?:POWER SUPPLY\s*)?(PS\S*|\d+[AB]?)\s.*\s(OK|Ok|ok|Good|Normal|Fail\S*|fail\S*|Absent|absent|Shutdown|N/A)\s*$`)
	hpeVersionLine   = regexp.MustCompile(`Comware Software, Version\s+(.+)$`)
	ciscoVersionLine = regexp.MustCompile(`(?i)(?:NXOS:\s*version|, Version)\s+([^,\s]+)`)
)

// ParseFanHPE parses Comware "display fan" block output:
//
//	Fan 1:
//	 State    : Normal
func ParseFanHPE(raw string) (ItemList, error) {
	var items FanItems
	var curID string
	for _, line := range splitLines(raw) {
		if m := hpeFanHeader.FindStringSubmatch(line); m != nil {
			curID = "Fan" + m[1]
			continue
		}
		if curID == "" {
			continue
		}
		if m := hpeStateLine.FindStringSubmatch(line); m != nil {
			items = append(items, FanItem{FanID: curID, Status: m[1]})
			curID = ""
		}
	}
	return items, nil
}

// ParseFanCisco parses IOS "show env fan" ("FAN 1 is OK") and NX-OS
// "show environment fan" table rows.
func ParseFanCisco(raw string) (ItemList, error) {
	var items FanItems
	for _, line := range splitLines(raw) {
		if m := ciscoFanLine.FindStringSubmatch(line); m != nil {
			id := m[1]
			if id == "" {
				id = "1"
			}
			items = append(items, FanItem{FanID: "Fan" + strings.TrimPrefix(id, "Fan"), Status: m[2]})
			continue
		}
		if m := ciscoFanRow.FindStringSubmatch(line); m != nil {
			if strings.EqualFold(m[2], "Status") {
				continue
			}
			items = append(items, FanItem{FanID: m[1], Status: m[2]})
		}
	}
	return items, nil
}

// ParsePowerHPE parses Comware "display power" block output.
func ParsePowerHPE(raw string) (ItemList, error) {
	var items PowerItems
	var curID string
	for _, line := range splitLines(raw) {
		if m := hpePowerHeader.FindStringSubmatch(line); m != nil {
			curID = "PS" + m[1]
			continue
		}
		if curID == "" {
			continue
		}
		if m := hpeStateLine.FindStringSubmatch(line); m != nil {
			items = append(items, PowerItem{PsID: curID, Status: m[1]})
			curID = ""
		}
	}
	return items, nil
}

// ParsePowerCisco parses IOS "show env power" and NX-OS
// "show environment power" rows; the status is the trailing keyword.
func ParsePowerCisco(raw string) (ItemList, error) {
	var items PowerItems
	for _, line := range splitLines(raw) {
		if m := ciscoPSLine.FindStringSubmatch(line); m != nil {
			id := m[1]
			if !strings.HasPrefix(strings.ToUpper(id), "PS") {
				id = "PS" + id
			}
			items = append(items, PowerItem{PsID: id, Status: m[2]})
		}
	}
	return items, nil
}

// ParseVersionHPE extracts the Comware software version from
// "display version".
func ParseVersionHPE(raw string) (ItemList, error) {
	for _, line := range splitLines(raw) {
		if m := hpeVersionLine.FindStringSubmatch(line); m != nil {
			return VersionItems{{Version: strings.TrimSpace(m[1])}}, nil
		}
	}
	return VersionItems{}, nil
}

// ParseVersionCisco extracts the IOS ("..., Version 15.2(7)E3, ...") or
// NX-OS ("NXOS: version 9.3(5)") software version from "show version".
func ParseVersionCisco(raw string) (ItemList, error) {
	for _, line := range splitLines(raw) {
		if m := ciscoVersionLine.FindStringSubmatch(line); m != nil {
			return VersionItems{{Version: strings.TrimRight(m[1], ",")}}, nil
		}
	}
	return VersionItems{}, nil
}
