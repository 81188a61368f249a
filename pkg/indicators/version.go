package indicators

import (
	"context"
	"fmt"
)

// evaluateVersion compares each active device's reported firmware version
// with its expectation; the comparison is exact.
func (e *Engine) evaluateVersion(ctx context.Context, maintenanceID string) (*Result, error) {
	devices, err := e.store.ActiveDevices(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	expectations, err := e.store.ListVersionExpectations(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}
	records, err := e.store.LatestVersions(ctx, maintenanceID)
	if err != nil {
		return nil, err
	}

	expected := map[string]string{}
	for _, exp := range expectations {
		expected[exp.Hostname] = exp.ExpectedVersion
	}
	actual := map[string]string{}
	for _, r := range records {
		actual[r.SwitchHostname] = r.Version
	}

	res := &Result{}
	for _, d := range devices {
		entry := Entry{SwitchHostname: d.Hostname}
		want, hasExp := expected[d.Hostname]
		got, hasRec := actual[d.Hostname]
		switch {
		case !hasExp:
			entry.Reason = "未定義版本期望"
			res.addFail(entry)
		case !hasRec:
			entry.Reason = "無採集數據"
			res.addFail(entry)
		case got != want:
			entry.Reason = fmt.Sprintf("版本不符: 期望 %s，實際 %s", want, got)
			res.addFail(entry)
		default:
			entry.Target = got
			res.addPass(entry)
		}
	}
	return res, nil
}
