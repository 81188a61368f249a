package indicators

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/netauto/maintcheck/pkg/canonical"
	"github.com/netauto/maintcheck/pkg/models"
)

// evaluatePortChannel checks every declared expectation against the latest
// aggregation records. Expectations drive the total; undeclared port channels
// are not judged.
func (e *Engine) evaluatePortChannel(ctx context.Context, maintenanceID string) (*Result, error) {
	active, err := e.activeHostnames(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	expectations, err := e.store.ListPortChannelExpectations(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	records, err := e.store.LatestPortChannels(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}

	// Port-Channel1, Po1, Bridge-Aggregation1 and BAGG1 all collapse to the
	// same key, so a Cisco expectation matches an HPE record.
	byKey := map[string]models.PortChannelRecord{}
	hostsWithData := map[string]bool{}
	for _, r := range records {
		if !active[r.SwitchHostname] {
			continue
		}
		hostsWithData[r.SwitchHostname] = true
		byKey[r.SwitchHostname+"|"+canonical.PortChannelKey(r.PortChannel)] = r
	}

	res := &Result{}
	for _, exp := range expectations {
		if !active[exp.Hostname] {
			continue
		}
		entry := Entry{SwitchHostname: exp.Hostname, Target: exp.PortChannel}

		if !hostsWithData[exp.Hostname] {
			entry.Reason = "尚無採集數據"
			res.addFail(entry)
			continue
		}
		rec, ok := byKey[exp.Hostname+"|"+canonical.PortChannelKey(exp.PortChannel)]
		if !ok {
			entry.Reason = fmt.Sprintf("未發現 Port-Channel %s", exp.PortChannel)
			res.addFail(entry)
			continue
		}
		if !strings.EqualFold(rec.Status, "UP") {
			entry.Reason = fmt.Sprintf("Port-Channel 狀態為 %s", rec.Status)
			res.addFail(entry)
			continue
		}
		if missing := missingMembers(exp.MemberInterfaces, rec.Members); len(missing) > 0 {
			entry.Reason = "成員不符，缺少: " + strings.Join(missing, ", ")
			res.addFail(entry)
			continue
		}
		if down := downMembers(rec.Members, rec.MemberStatus); len(down) > 0 {
			entry.Reason = "成員未 UP: " + strings.Join(down, ", ")
			res.addFail(entry)
			continue
		}
		res.addPass(entry)
	}
	return res, nil
}

// missingMembers returns the expected member interfaces absent from the
// actual set, both sides canonicalised.
func missingMembers(expected, actual string) []string {
	actualSet := map[string]bool{}
	for _, m := range splitMembers(actual) {
		actualSet[canonical.Interface(m)] = true
	}
	var missing []string
	for _, m := range splitMembers(expected) {
		if !actualSet[canonical.Interface(m)] {
			missing = append(missing, canonical.Interface(m))
		}
	}
	sort.Strings(missing)
	return missing
}

// downMembers returns members whose aligned status is not UP.
func downMembers(members, statuses string) []string {
	ms := splitMembers(members)
	ss := splitMembers(statuses)
	var down []string
	for i, m := range ms {
		if i < len(ss) && !strings.EqualFold(ss[i], "UP") {
			down = append(down, m)
		}
	}
	return down
}

func splitMembers(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
