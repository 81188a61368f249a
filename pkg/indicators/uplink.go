package indicators

import (
	"context"
	"fmt"

	"github.com/netauto/maintcheck/pkg/canonical"
	"github.com/netauto/maintcheck/pkg/models"
)

// evaluateUplink verifies each declared uplink against the latest LLDP
// neighbor rows. The expectation list is the authoritative total.
func (e *Engine) evaluateUplink(ctx context.Context, maintenanceID string) (*Result, error) {
	active, err := e.activeHostnames(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	expectations, err := e.store.ListUplinkExpectations(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	records, err := e.store.LatestNeighbors(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}

	byIface := map[string]models.NeighborRecord{}
	for _, r := range records {
		if !active[r.SwitchHostname] {
			continue
		}
		byIface[r.SwitchHostname+"|"+canonical.Interface(r.LocalInterface)] = r
	}

	res := &Result{}
	for _, exp := range expectations {
		if !active[exp.Hostname] {
			continue
		}
		entry := Entry{SwitchHostname: exp.Hostname, Target: exp.LocalInterface}

		rec, ok := byIface[exp.Hostname+"|"+canonical.Interface(exp.LocalInterface)]
		if !ok {
			entry.Reason = "尚無採集數據"
			res.addFail(entry)
			continue
		}
		if rec.RemoteHostname != exp.ExpectedNeighbor {
			entry.Reason = fmt.Sprintf("鄰居不符: 期望 %s，實際 %s", exp.ExpectedNeighbor, rec.RemoteHostname)
			res.addFail(entry)
			continue
		}
		if exp.ExpectedInterface != "" &&
			canonical.Interface(rec.RemoteInterface) != canonical.Interface(exp.ExpectedInterface) {
			entry.Reason = fmt.Sprintf("對端接口不符: 期望 %s，實際 %s", exp.ExpectedInterface, rec.RemoteInterface)
			res.addFail(entry)
			continue
		}
		res.addPass(entry)
	}
	return res, nil
}
