package cases

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/models"
)

// TrackedAttributes are the ClientRecord fields watched for changes.
var TrackedAttributes = []string{
	"speed", "duplex", "link_status", "ping_reachable",
	"interface_name", "vlan_id", "acl_rules_applied",
}

// detectChange reports whether a value series shows a change worth flagging.
// An all-null or empty series is quiet; more than one distinct non-null value
// is a change; a single known value followed by a trailing null is also a
// change, the endpoint went dark mid-window.
func detectChange(values []*string) bool {
	if len(values) == 0 {
		return false
	}
	distinct := map[string]bool{}
	for _, v := range values {
		if v != nil {
			distinct[*v] = true
		}
	}
	if len(distinct) == 0 {
		return false
	}
	if len(distinct) > 1 {
		return true
	}
	return values[len(values)-1] == nil
}

// attributeSeries projects one tracked attribute out of a record series,
// null-preserving.
func attributeSeries(records []models.ClientRecord, attr string) []*string {
	out := make([]*string, len(records))
	for i, r := range records {
		switch attr {
		case "speed":
			out[i] = r.Speed
		case "duplex":
			out[i] = r.Duplex
		case "link_status":
			out[i] = r.LinkStatus
		case "interface_name":
			out[i] = r.InterfaceName
		case "ping_reachable":
			out[i] = boolStr(r.PingReachable)
		case "acl_rules_applied":
			out[i] = boolStr(r.ACLPasses)
		case "vlan_id":
			if r.VlanID != nil {
				s := strconv.Itoa(*r.VlanID)
				out[i] = &s
			}
		}
	}
	return out
}

func boolStr(b *bool) *string {
	if b == nil {
		return nil
	}
	s := strconv.FormatBool(*b)
	return &s
}

// ChangeFlags computes the flag map for one MAC's record series.
func ChangeFlags(records []models.ClientRecord) map[string]bool {
	flags := make(map[string]bool, len(TrackedAttributes))
	for _, attr := range TrackedAttributes {
		flags[attr] = detectChange(attributeSeries(records, attr))
	}
	return flags
}

// RefreshChangeFlags recomputes and stores the flag map of every case so the
// case list endpoint never has to walk record history.
func (e *Engine) RefreshChangeFlags(ctx context.Context, maintenanceID string) error {
	var caseRows []models.Case
	if err := e.db.SelectContext(ctx, &caseRows,
		`SELECT * FROM cases WHERE maintenance_id = $1`, maintenanceID); err != nil {
		return fmt.Errorf("list cases: %w", err)
	}

	for _, c := range caseRows {
		history, err := e.store.ClientHistory(ctx, maintenanceID, c.MacAddress)
		if err != nil {
			e.logger.Error("change-flag history load failed",
				zap.String("mac", c.MacAddress), zap.Error(err))
			continue
		}
		raw, err := json.Marshal(ChangeFlags(history))
		if err != nil {
			return fmt.Errorf("marshal change flags for %s: %w", c.MacAddress, err)
		}
		if _, err := e.db.ExecContext(ctx,
			`UPDATE cases SET change_flags = $1 WHERE id = $2`, raw, c.ID); err != nil {
			return fmt.Errorf("store change flags for case %d: %w", c.ID, err)
		}
	}
	return nil
}

// ChangeTimeline returns, for one attribute of one MAC, the sequence of
// observed values with their timestamps.
type TimelinePoint struct {
	Value       *string `json:"value"`
	CollectedAt string  `json:"collected_at"`
}

func (e *Engine) ChangeTimeline(ctx context.Context, maintenanceID, mac, attr string) ([]TimelinePoint, error) {
	known := false
	for _, a := range TrackedAttributes {
		if a == attr {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: unknown attribute %q", ErrValidation, attr)
	}
	history, err := e.store.ClientHistory(ctx, maintenanceID, mac)
	if err != nil {
		return nil, err
	}
	series := attributeSeries(history, attr)
	out := make([]TimelinePoint, len(history))
	for i, r := range history {
		out[i] = TimelinePoint{Value: series[i], CollectedAt: r.CollectedAt.UTC().Format("2006-01-02T15:04:05Z07:00")}
	}
	return out, nil
}
