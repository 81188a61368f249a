package indicators

import (
	"context"
	"fmt"
	"strings"

	"github.com/netauto/maintcheck/pkg/config"
)

// opticField carries the full reason strings per field: the English labels
// take a space before the verdict, the Chinese ones do not.
type opticField struct {
	key     string
	low     string
	high    string
	missing string
}

var opticFields = []opticField{
	{"tx_power", "Tx Power 過低", "Tx Power 過高", "Tx Power 缺失"},
	{"rx_power", "Rx Power 過低", "Rx Power 過高", "Rx Power 缺失"},
	{"temperature", "溫度過低", "溫度過高", "溫度缺失"},
	{"voltage", "電壓過低", "電壓過高", "電壓缺失"},
}

// evaluateTransceiver checks every optical channel of every active device
// against the maintenance's threshold snapshot. Each channel row is one
// evaluated subject.
func (e *Engine) evaluateTransceiver(ctx context.Context, maintenanceID string) (*Result, error) {
	active, err := e.activeHostnames(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	snap, err := e.thresholds.Snapshot(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	records, err := e.store.LatestTransceivers(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}

	res := &Result{PassRates: map[string]float64{}}
	fieldPass := map[string]int{}
	fieldTotal := map[string]int{}

	for _, r := range records {
		if !active[r.SwitchHostname] {
			continue
		}
		target := r.InterfaceName
		if r.Channel > 1 {
			target = fmt.Sprintf("%s/ch%d", r.InterfaceName, r.Channel)
		}

		values := map[string]*float64{
			"tx_power":    r.TxPower,
			"rx_power":    r.RxPower,
			"temperature": r.Temperature,
			"voltage":     r.Voltage,
		}
		ranges := map[string]config.Range{
			"tx_power":    snap.TxPower,
			"rx_power":    snap.RxPower,
			"temperature": snap.Temperature,
			"voltage":     snap.Voltage,
		}

		// A null field never fails the record on its own; it only shows up
		// as a 缺失 marker when some reported field is out of range.
		allNull := true
		outOfRange := false
		var reasons []string
		for _, f := range opticFields {
			v := values[f.key]
			if v == nil {
				reasons = append(reasons, f.missing)
				continue
			}
			allNull = false
			fieldTotal[f.key]++
			rg := ranges[f.key]
			switch {
			case *v < rg.Min:
				outOfRange = true
				reasons = append(reasons, f.low)
			case *v > rg.Max:
				outOfRange = true
				reasons = append(reasons, f.high)
			default:
				fieldPass[f.key]++
			}
		}

		entry := Entry{SwitchHostname: r.SwitchHostname, Target: target}
		switch {
		case allNull:
			entry.Reason = "光模塊缺失或無法讀取"
			res.addFail(entry)
		case outOfRange:
			entry.Reason = strings.Join(reasons, " | ")
			res.addFail(entry)
		default:
			res.addPass(entry)
		}
	}

	for _, f := range opticFields {
		if fieldTotal[f.key] > 0 {
			res.PassRates[f.key] = rate(fieldPass[f.key], fieldTotal[f.key])
		}
	}
	return res, nil
}
