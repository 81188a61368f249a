package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/netauto/maintcheck/pkg/metrics"
	"github.com/netauto/maintcheck/pkg/models"
	"github.com/netauto/maintcheck/pkg/parsers"
	"github.com/netauto/maintcheck/pkg/store"
)

// clientBatchHostname keys the single change-point batch a bulk client-ping
// tick produces; client probes are not tied to one switch.
const clientBatchHostname = "_clients"

// Pipeline runs one collection tick: fetch raw text, parse, save.
type Pipeline struct {
	sources  *Sources
	registry *parsers.Registry
	store    *store.Store
	logger   *zap.Logger
	metrics  *metrics.Metrics

	concurrency int64
}

func NewPipeline(sources *Sources, registry *parsers.Registry, st *store.Store,
	logger *zap.Logger, m *metrics.Metrics, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Pipeline{
		sources:     sources,
		registry:    registry,
		store:       st,
		logger:      logger,
		metrics:     m,
		concurrency: int64(concurrency),
	}
}

// Collect executes one (maintenance, collection type) tick. Per-device
// failures become CollectionError rows; only a broken precondition (no spec,
// device list unreadable) aborts the tick.
func (p *Pipeline) Collect(ctx context.Context, maintenanceID string, ctype models.CollectionType) error {
	spec, ok := fetcherSpecs[ctype]
	if !ok {
		return fmt.Errorf("no fetcher for collection type %s", ctype)
	}
	start := time.Now()
	defer func() {
		p.metrics.TickDuration.WithLabelValues(string(ctype)).Observe(time.Since(start).Seconds())
	}()

	if spec.bulk {
		return p.collectBulk(ctx, maintenanceID, ctype, spec)
	}
	return p.collectPerDevice(ctx, maintenanceID, ctype, spec)
}

func (p *Pipeline) collectPerDevice(ctx context.Context, maintenanceID string, ctype models.CollectionType, spec fetcherSpec) error {
	devices, err := p.store.ActiveDevices(ctx, maintenanceID)
	if err != nil {
		return fmt.Errorf("load active devices: %w", err)
	}
	if ctype == models.CollectionARP {
		devices, err = p.filterArpSources(ctx, maintenanceID, devices)
		if err != nil {
			return err
		}
	}

	src := p.sources.byName(spec.source)
	sem := semaphore.NewWeighted(p.concurrency)
	for _, d := range devices {
		device := d
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		go func() {
			defer sem.Release(1)
			p.collectDevice(ctx, maintenanceID, ctype, spec, src, device)
		}()
	}
	// Wait for the last in-flight fetches.
	if err := sem.Acquire(ctx, p.concurrency); err != nil {
		return err
	}
	sem.Release(p.concurrency)
	return nil
}

func (p *Pipeline) collectDevice(ctx context.Context, maintenanceID string, ctype models.CollectionType,
	spec fetcherSpec, src *Source, device models.ActiveDevice) {
	raw, err := src.Get(ctx, renderEndpoint(spec.endpoint, device.IP, device.Vendor))
	if err != nil {
		p.metrics.FetchErrors.WithLabelValues(spec.source).Inc()
		p.store.RecordCollectionError(ctx, maintenanceID, ctype, device.Hostname, err.Error())
		return
	}

	parse, err := p.registry.Lookup(ctype, device.Vendor)
	if err != nil {
		p.store.RecordCollectionError(ctx, maintenanceID, ctype, device.Hostname, err.Error())
		return
	}
	items, err := parse(string(raw))
	if err != nil {
		p.metrics.ParseErrors.WithLabelValues(string(ctype)).Inc()
		p.store.RecordCollectionError(ctx, maintenanceID, ctype, device.Hostname,
			fmt.Sprintf("parse: %v", err))
		return
	}

	if _, err := p.store.SaveBatch(ctx, maintenanceID, ctype, device.Hostname, string(raw), items); err != nil {
		p.store.RecordCollectionError(ctx, maintenanceID, ctype, device.Hostname,
			fmt.Sprintf("save: %v", err))
	}
}

// collectBulk issues the single GNMS ping POST and splits the response into
// per-device batches (device ping) or one shared batch (client ping).
func (p *Pipeline) collectBulk(ctx context.Context, maintenanceID string, ctype models.CollectionType, spec fetcherSpec) error {
	src := p.sources.byName(spec.source)

	var (
		targets []string
		ipHost  map[string]string
	)
	switch ctype {
	case models.CollectionPing:
		devices, err := p.store.ActiveDevices(ctx, maintenanceID)
		if err != nil {
			return fmt.Errorf("load active devices: %w", err)
		}
		ipHost = make(map[string]string, len(devices))
		for _, d := range devices {
			if d.IP == "" {
				continue
			}
			targets = append(targets, d.IP)
			ipHost[d.IP] = d.Hostname
		}
	case models.CollectionClientPing:
		ips, err := p.clientTargets(ctx, maintenanceID)
		if err != nil {
			return err
		}
		targets = ips
	default:
		return fmt.Errorf("collection type %s is not bulk", ctype)
	}
	if len(targets) == 0 {
		return nil
	}

	raw, err := src.PostJSON(ctx, spec.endpoint, bulkPingRequest{
		AppName:   src.AppName(),
		Token:     src.Token(),
		Addresses: targets,
	})
	if err != nil {
		p.metrics.FetchErrors.WithLabelValues(spec.source).Inc()
		p.store.RecordCollectionError(ctx, maintenanceID, ctype, "", err.Error())
		return nil
	}

	parse, err := p.registry.Lookup(ctype, models.VendorUnspecified)
	if err != nil {
		return err
	}
	parsed, err := parse(string(raw))
	if err != nil {
		p.metrics.ParseErrors.WithLabelValues(string(ctype)).Inc()
		p.store.RecordCollectionError(ctx, maintenanceID, ctype, "", fmt.Sprintf("parse: %v", err))
		return nil
	}
	items, ok := parsed.(parsers.PingItems)
	if !ok {
		return fmt.Errorf("bulk parser returned %T", parsed)
	}

	if ctype == models.CollectionClientPing {
		if _, err := p.store.SaveBatch(ctx, maintenanceID, ctype, clientBatchHostname, string(raw), items); err != nil {
			p.store.RecordCollectionError(ctx, maintenanceID, ctype, clientBatchHostname,
				fmt.Sprintf("save: %v", err))
		}
		return nil
	}

	// Device ping: one single-row batch per device so change points stay
	// per-device.
	byHost := map[string]parsers.PingItems{}
	for _, it := range items {
		host, ok := ipHost[it.TargetIP]
		if !ok {
			continue
		}
		byHost[host] = append(byHost[host], it)
	}
	for host, hostItems := range byHost {
		rawLines := make([]string, 0, len(hostItems))
		for _, it := range hostItems {
			reach := "unreachable"
			if it.IsReachable {
				reach = "reachable"
			}
			rawLines = append(rawLines, it.TargetIP+","+reach)
		}
		if _, err := p.store.SaveBatch(ctx, maintenanceID, ctype, host,
			strings.Join(rawLines, "\n"), hostItems); err != nil {
			p.store.RecordCollectionError(ctx, maintenanceID, ctype, host,
				fmt.Sprintf("save: %v", err))
		}
	}
	return nil
}

// clientTargets resolves the IPs to probe for tracked MACs: the MAC entry's
// own IP when declared, else the address seen in the latest ARP tables.
func (p *Pipeline) clientTargets(ctx context.Context, maintenanceID string) ([]string, error) {
	macs, err := p.store.ListMacEntries(ctx, maintenanceID)
	if err != nil {
		return nil, fmt.Errorf("list mac entries: %w", err)
	}
	arps, err := p.store.LatestARP(ctx, maintenanceID)
	if err != nil {
		return nil, fmt.Errorf("load arp: %w", err)
	}
	arpByMac := map[string]string{}
	for _, r := range arps {
		if _, seen := arpByMac[r.MacAddress]; !seen {
			arpByMac[r.MacAddress] = r.IPAddress
		}
	}

	seen := map[string]bool{}
	var out []string
	for _, m := range macs {
		ip := m.IPAddress
		if ip == "" {
			ip = arpByMac[m.MacAddress]
		}
		if ip == "" || seen[ip] {
			continue
		}
		seen[ip] = true
		out = append(out, ip)
	}
	return out, nil
}

func (p *Pipeline) filterArpSources(ctx context.Context, maintenanceID string, devices []models.ActiveDevice) ([]models.ActiveDevice, error) {
	sources, err := p.store.ListArpSources(ctx, maintenanceID)
	if err != nil {
		return nil, fmt.Errorf("list arp sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, nil
	}
	want := make(map[string]bool, len(sources))
	for _, s := range sources {
		want[s.Hostname] = true
	}
	var out []models.ActiveDevice
	for _, d := range devices {
		if want[d.Hostname] {
			out = append(out, d)
		}
	}
	return out, nil
}

// IngestClients delegates to the store's client snapshot assembly; the
// scheduler runs it as its own job after the feeding collections.
func (p *Pipeline) IngestClients(ctx context.Context, maintenanceID string) error {
	return p.store.IngestClients(ctx, maintenanceID)
}
