package parsers

import "strings"

// ParsePingCSV parses the GNMS-Ping bulk response, a CSV-like text of one
// "ip,reachable[,success_rate]" line per probed address. Header lines and
// malformed rows are skipped.
func ParsePingCSV(raw string) (ItemList, error) {
	var items PingItems
	for _, line := range splitLines(raw) {
		parts := strings.Split(strings.TrimSpace(line), ",")
		if len(parts) < 2 {
			continue
		}
		ip := strings.TrimSpace(parts[0])
		if !looksLikeIPv4(ip) {
			continue
		}
		it := PingItem{TargetIP: ip, IsReachable: parseReachable(parts[1])}
		if len(parts) >= 3 {
			it.SuccessRate = floatPtr(parts[2])
		}
		items = append(items, it)
	}
	return items, nil
}

func parseReachable(tok string) bool {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "true", "1", "ok", "up", "reachable", "yes":
		return true
	}
	return false
}
