package indicators

import (
	"context"
	"sort"
	"strings"

	"github.com/netauto/maintcheck/pkg/config"
)

type statusUnit struct {
	ID     string
	Status string
}

// evaluateFan passes a device iff every one of its fan rows reports a healthy
// status; a device with no rows at all fails.
func (e *Engine) evaluateFan(ctx context.Context, maintenanceID string) (*Result, error) {
	active, err := e.activeHostnames(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	snap, err := e.thresholds.Snapshot(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	records, err := e.store.LatestFans(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}

	byHost := map[string][]statusUnit{}
	for _, r := range records {
		if !active[r.SwitchHostname] {
			continue
		}
		byHost[r.SwitchHostname] = append(byHost[r.SwitchHostname], statusUnit{r.FanID, r.Status})
	}
	return perDeviceStatus(active, byHost, snap.FanHealthy, "未檢測到風扇"), nil
}

// evaluatePower mirrors evaluateFan over power-supply rows.
func (e *Engine) evaluatePower(ctx context.Context, maintenanceID string) (*Result, error) {
	active, err := e.activeHostnames(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	snap, err := e.thresholds.Snapshot(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	records, err := e.store.LatestPowers(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}

	byHost := map[string][]statusUnit{}
	for _, r := range records {
		if !active[r.SwitchHostname] {
			continue
		}
		byHost[r.SwitchHostname] = append(byHost[r.SwitchHostname], statusUnit{r.PsID, r.Status})
	}
	return perDeviceStatus(active, byHost, snap.PowerHealthy, "未檢測到電源供應器"), nil
}

// perDeviceStatus folds per-unit status rows into one pass/fail per device.
func perDeviceStatus(active map[string]bool, byHost map[string][]statusUnit, healthy []string, missingReason string) *Result {
	hosts := make([]string, 0, len(active))
	for h := range active {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)

	res := &Result{}
	for _, host := range hosts {
		units := byHost[host]
		entry := Entry{SwitchHostname: host}
		if len(units) == 0 {
			entry.Reason = missingReason
			res.addFail(entry)
			continue
		}
		var bad []string
		for _, u := range units {
			if !config.Contains(healthy, u.Status) {
				bad = append(bad, u.ID+": "+u.Status)
			}
		}
		if len(bad) > 0 {
			entry.Reason = strings.Join(bad, " | ")
			res.addFail(entry)
		} else {
			res.addPass(entry)
		}
	}
	return res
}
