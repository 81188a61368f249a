package parsers

import (
	"regexp"
	"strings"
)

var hpeXcvrHeader = regexp.MustCompile(`^(\S+)\s+transceiver diagnostic information`)

// ParseTransceiverHPE parses Comware "display transceiver diagnosis
// interface" output. Each interface block carries a column header followed by
// one numeric line per channel:
//
//	Ten-GigabitEthernet1/0/49 transceiver diagnostic information:
//	  Current diagnostic parameters:
//	    Temp.(C) Voltage(V) Bias(mA) RX power(dBm) TX power(dBm)
//	    36       3.31       6.13     -5.42         -2.31
//
// An absent module ("The transceiver is absent.") yields an item with every
// field nil so the evaluator can report it as missing.
func ParseTransceiverHPE(raw string) (ItemList, error) {
	var items []TransceiverItem
	var cur *TransceiverItem
	expectData := false

	flush := func() {
		if cur != nil {
			items = append(items, *cur)
			cur = nil
		}
	}

	for _, line := range splitLines(raw) {
		if m := hpeXcvrHeader.FindStringSubmatch(line); m != nil {
			flush()
			cur = &TransceiverItem{InterfaceName: m[1]}
			expectData = false
			continue
		}
		if cur == nil {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "transceiver is absent") {
			expectData = false
			continue
		}
		if strings.HasPrefix(trimmed, "Temp.") {
			expectData = true
			continue
		}
		if !expectData {
			continue
		}
		fields := strings.Fields(trimmed)
		if len(fields) < 5 || floatPtr(fields[0]) == nil {
			expectData = false
			continue
		}
		// Columns: temp, voltage, bias, rx, tx. Temperature and voltage
		// belong to the module; only the first channel line sets them.
		if cur.Temperature == nil {
			cur.Temperature = floatPtr(fields[0])
		}
		if cur.Voltage == nil {
			cur.Voltage = floatPtr(fields[1])
		}
		cur.Channels = append(cur.Channels, TransceiverChannel{
			Channel: len(cur.Channels) + 1,
			RxPower: floatPtr(fields[3]),
			TxPower: floatPtr(fields[4]),
		})
	}
	flush()
	return Flatten(items), nil
}

// ParseTransceiverCisco parses IOS "show interfaces transceiver" and NX-OS
// "show interface transceiver details" table output. Repeated port lines are
// additional lanes of the same module:
//
//	Port       Temperature  Voltage  Current   Tx Power  Rx Power
//	Te1/0/1      29.4       3.30      6.1       -2.5      -3.7
func ParseTransceiverCisco(raw string) (ItemList, error) {
	byPort := make(map[string]*TransceiverItem)
	var order []string

	for _, line := range splitLines(raw) {
		fields := strings.Fields(line)
		if len(fields) < 5 || !looksLikeInterface(fields[0]) {
			continue
		}
		// Columns after the port: temp, voltage, current, tx, rx.
		port := fields[0]
		it, ok := byPort[port]
		if !ok {
			it = &TransceiverItem{InterfaceName: port}
			byPort[port] = it
			order = append(order, port)
		}
		if it.Temperature == nil {
			it.Temperature = floatPtr(fields[1])
		}
		if it.Voltage == nil {
			it.Voltage = floatPtr(fields[2])
		}
		var tx, rx *float64
		if len(fields) >= 6 {
			tx, rx = floatPtr(fields[4]), floatPtr(fields[5])
		} else {
			tx, rx = floatPtr(fields[3]), floatPtr(fields[4])
		}
		it.Channels = append(it.Channels, TransceiverChannel{
			Channel: len(it.Channels) + 1,
			TxPower: tx,
			RxPower: rx,
		})
	}

	items := make([]TransceiverItem, 0, len(order))
	for _, p := range order {
		items = append(items, *byPort[p])
	}
	return Flatten(items), nil
}
