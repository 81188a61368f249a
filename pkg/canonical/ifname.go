// Package canonical provides the two deterministic building blocks shared by
// the store and the evaluators: vendor-neutral interface-name shortening and
// the canonical JSON / hash contract used by the change-point strategy.
package canonical

import (
	"sort"
	"strings"
)

// ifaceRule rewrites one prefix class to its canonical short code. The
// Ethernet class is case-sensitive because bare "Ethernet" is an NX-OS name;
// every other class accepts any casing.
type ifaceRule struct {
	prefix        string
	code          string
	caseSensitive bool
}

var ifaceRules = buildIfaceRules()

func buildIfaceRules() []ifaceRule {
	classes := []struct {
		code          string
		prefixes      []string
		caseSensitive bool
	}{
		{code: "HGE", prefixes: []string{"HundredGigabitEthernet", "HundredGigE", "HGE", "Hu"}},
		{code: "FGE", prefixes: []string{"FortyGigabitEthernet", "FortyGigE", "FGE", "Fo"}},
		{code: "25GE", prefixes: []string{"TwentyFiveGigabitEthernet", "TwentyFiveGigE", "25GE", "Twe"}},
		{code: "XGE", prefixes: []string{"Ten-GigabitEthernet", "TenGigabitEthernet", "XGE", "Te"}},
		{code: "GE", prefixes: []string{"GigabitEthernet", "GE", "Gi"}},
		{code: "FE", prefixes: []string{"FastEthernet", "FE", "Fa"}},
		{code: "BAGG", prefixes: []string{"Bridge-Aggregation", "BAGG"}},
		{code: "RAGG", prefixes: []string{"Route-Aggregation", "RAGG"}},
		{code: "Po", prefixes: []string{"Port-Channel", "Port-channel", "Po"}},
		{code: "Vlan", prefixes: []string{"Vlan-interface", "Vlan", "Vl"}},
		{code: "Mgmt", prefixes: []string{"M-GigabitEthernet", "MgmtEth", "Management", "Mgmt"}},
		{code: "Lo", prefixes: []string{"Loopback", "Lo"}},
		{code: "Eth", prefixes: []string{"Ethernet", "Eth"}, caseSensitive: true},
	}

	var rules []ifaceRule
	for _, c := range classes {
		for _, p := range c.prefixes {
			rules = append(rules, ifaceRule{prefix: p, code: c.code, caseSensitive: c.caseSensitive})
		}
	}
	// Longest prefix wins regardless of class order.
	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].prefix) > len(rules[j].prefix)
	})
	return rules
}

// Interface rewrites an interface name to its canonical short form, e.g.
// "Ten-GigabitEthernet1/0/1" -> "XGE1/0/1", "Gi1/0/1" -> "GE1/0/1". The
// function is idempotent: canonical codes are fixed points. Unrecognised
// names are returned trimmed but otherwise unchanged.
func Interface(name string) string {
	name = strings.TrimSpace(name)
	for _, r := range ifaceRules {
		if len(name) < len(r.prefix) {
			continue
		}
		head := name[:len(r.prefix)]
		var match bool
		if r.caseSensitive {
			match = head == r.prefix
		} else {
			match = strings.EqualFold(head, r.prefix)
		}
		if !match {
			continue
		}
		// A prefix must not swallow the start of a longer word: the next
		// character has to be a digit, separator, or end of string.
		rest := name[len(r.prefix):]
		if rest != "" && !leadsNumbering(rest[0]) {
			continue
		}
		return r.code + rest
	}
	return name
}

func leadsNumbering(c byte) bool {
	return (c >= '0' && c <= '9') || c == '/' || c == ' ' || c == '.' || c == ':'
}

// PortChannelKey collapses every aggregation spelling to one comparable key,
// so "Port-Channel1", "Po1", "Bridge-Aggregation1" and "BAGG1" all collide.
func PortChannelKey(name string) string {
	c := Interface(name)
	for _, prefix := range []string{"BAGG", "RAGG", "Po"} {
		if strings.HasPrefix(c, prefix) {
			return "Po" + strings.TrimSpace(c[len(prefix):])
		}
	}
	return c
}
