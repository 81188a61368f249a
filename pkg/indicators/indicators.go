// Package indicators evaluates the health indicators of a maintenance from
// the latest per-device typed records. Evaluators are pure over their inputs;
// all state lives in the store.
package indicators

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/netauto/maintcheck/pkg/store"
	"github.com/netauto/maintcheck/pkg/thresholds"
)

// Indicator names accepted by Evaluate.
const (
	IndicatorTransceiver = "transceiver"
	IndicatorPing        = "ping"
	IndicatorFan         = "fan"
	IndicatorPower       = "power"
	IndicatorPortChannel = "port_channel"
	IndicatorUplink      = "uplink"
	IndicatorVersion     = "version"
	IndicatorErrorCount  = "error_count"
)

// maxPassSamples bounds the representative passes carried in a result; the
// failure list is never truncated.
const maxPassSamples = 10

// Entry is one evaluated subject, a device plus an optional sub-target such
// as an interface or fan id.
type Entry struct {
	SwitchHostname string `json:"switch_hostname"`
	Target         string `json:"target,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// Result is the outcome of one indicator evaluation.
type Result struct {
	Indicator string             `json:"indicator"`
	Total     int                `json:"total"`
	Pass      int                `json:"pass"`
	Fail      int                `json:"fail"`
	PassRates map[string]float64 `json:"pass_rates"`
	Failures  []Entry            `json:"failures"`
	Passes    []Entry            `json:"passes"`
	Summary   string             `json:"summary"`
}

func (r *Result) addPass(e Entry) {
	r.Total++
	r.Pass++
	if len(r.Passes) < maxPassSamples {
		r.Passes = append(r.Passes, e)
	}
}

func (r *Result) addFail(e Entry) {
	r.Total++
	r.Fail++
	r.Failures = append(r.Failures, e)
}

func (r *Result) finish() {
	if r.PassRates == nil {
		r.PassRates = map[string]float64{}
	}
	if r.Total > 0 {
		r.PassRates["overall"] = rate(r.Pass, r.Total)
	}
	if r.Failures == nil {
		r.Failures = []Entry{}
	}
	if r.Passes == nil {
		r.Passes = []Entry{}
	}
	r.Summary = fmt.Sprintf("%d/%d 通過", r.Pass, r.Total)
}

func rate(pass, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(pass)/float64(total)*10000) / 100
}

// Engine evaluates indicators against the store.
type Engine struct {
	store      *store.Store
	thresholds *thresholds.Service
	logger     *zap.Logger
}

func NewEngine(st *store.Store, th *thresholds.Service, logger *zap.Logger) *Engine {
	return &Engine{store: st, thresholds: th, logger: logger}
}

// Names lists every indicator the engine can evaluate.
func Names() []string {
	return []string{
		IndicatorTransceiver, IndicatorPing, IndicatorFan, IndicatorPower,
		IndicatorPortChannel, IndicatorUplink, IndicatorVersion, IndicatorErrorCount,
	}
}

// Evaluate runs one named indicator for a maintenance.
func (e *Engine) Evaluate(ctx context.Context, name, maintenanceID string) (*Result, error) {
	var (
		res *Result
		err error
	)
	switch name {
	case IndicatorTransceiver:
		res, err = e.evaluateTransceiver(ctx, maintenanceID)
	case IndicatorPing:
		res, err = e.evaluatePing(ctx, maintenanceID)
	case IndicatorFan:
		res, err = e.evaluateFan(ctx, maintenanceID)
	case IndicatorPower:
		res, err = e.evaluatePower(ctx, maintenanceID)
	case IndicatorPortChannel:
		res, err = e.evaluatePortChannel(ctx, maintenanceID)
	case IndicatorUplink:
		res, err = e.evaluateUplink(ctx, maintenanceID)
	case IndicatorVersion:
		res, err = e.evaluateVersion(ctx, maintenanceID)
	case IndicatorErrorCount:
		res, err = e.evaluateErrorCount(ctx, maintenanceID)
	default:
		return nil, fmt.Errorf("unknown indicator %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", name, err)
	}
	res.Indicator = name
	res.finish()
	return res, nil
}

// EvaluateAll runs every indicator; one indicator's failure does not abort
// the rest.
func (e *Engine) EvaluateAll(ctx context.Context, maintenanceID string) map[string]*Result {
	out := make(map[string]*Result, len(Names()))
	for _, name := range Names() {
		res, err := e.Evaluate(ctx, name, maintenanceID)
		if err != nil {
			e.logger.Error("indicator evaluation failed",
				zap.String("indicator", name),
				zap.String("maintenance_id", maintenanceID),
				zap.Error(err),
			)
			continue
		}
		out[name] = res
	}
	return out
}

// activeHostnames returns the set of in-service device hostnames; evaluators
// drop records from any other device.
func (e *Engine) activeHostnames(ctx context.Context, maintenanceID string) (map[string]bool, error) {
	devices, err := e.store.ActiveDevices(ctx, maintenanceID)
	if err != nil {
		return nil, fmt.Errorf("load active devices: %w", err)
	}
	set := make(map[string]bool, len(devices))
	for _, d := range devices {
		set[d.Hostname] = true
	}
	return set, nil
}
