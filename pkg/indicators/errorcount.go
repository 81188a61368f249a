package indicators

import (
	"context"
	"fmt"

	"github.com/netauto/maintcheck/pkg/models"
)

// evaluateErrorCount diffs CRC counters between the latest batch and the one
// before it, per device and interface. Growth fails; a reset or a flat
// counter passes.
func (e *Engine) evaluateErrorCount(ctx context.Context, maintenanceID string) (*Result, error) {
	active, err := e.activeHostnames(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	current, err := e.store.LatestInterfaceErrors(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	previous, err := e.store.PreviousInterfaceErrors(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}

	prevByIface := map[string]models.InterfaceErrorRecord{}
	hostsWithHistory := map[string]bool{}
	for _, r := range previous {
		hostsWithHistory[r.SwitchHostname] = true
		prevByIface[r.SwitchHostname+"|"+r.InterfaceName] = r
	}

	res := &Result{}
	for _, cur := range current {
		if !active[cur.SwitchHostname] {
			continue
		}
		entry := Entry{SwitchHostname: cur.SwitchHostname, Target: cur.InterfaceName}

		prev, ok := prevByIface[cur.SwitchHostname+"|"+cur.InterfaceName]
		if !hostsWithHistory[cur.SwitchHostname] || !ok {
			entry.Reason = "首次採集，無歷史比對"
			res.addPass(entry)
			continue
		}

		delta := cur.CRCErrors - prev.CRCErrors
		switch {
		case delta > 0:
			entry.Reason = fmt.Sprintf("CRC 增長 +%d (%d → %d)", delta, prev.CRCErrors, cur.CRCErrors)
			res.addFail(entry)
		case delta < 0:
			entry.Reason = "計數器已重置"
			res.addPass(entry)
		default:
			entry.Reason = "計數器未增長"
			res.addPass(entry)
		}
	}
	return res, nil
}
