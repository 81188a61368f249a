package indicators

import "context"

// evaluatePing expects every active device to appear in the latest ping
// batch; one entry per device.
func (e *Engine) evaluatePing(ctx context.Context, maintenanceID string) (*Result, error) {
	devices, err := e.store.ActiveDevices(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	records, err := e.store.LatestPings(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}

	byHost := map[string]bool{}
	haveHost := map[string]bool{}
	for _, r := range records {
		// A device is reachable if any of its probes succeeded.
		haveHost[r.SwitchHostname] = true
		if r.IsReachable {
			byHost[r.SwitchHostname] = true
		}
	}

	res := &Result{}
	for _, d := range devices {
		entry := Entry{SwitchHostname: d.Hostname, Target: d.IP}
		switch {
		case !haveHost[d.Hostname]:
			entry.Reason = "尚無採集數據"
			res.addFail(entry)
		case !byHost[d.Hostname]:
			entry.Reason = "Ping 不可達"
			res.addFail(entry)
		default:
			res.addPass(entry)
		}
	}
	res.PassRates = map[string]float64{"reachable": rate(res.Pass, res.Total)}
	return res, nil
}
