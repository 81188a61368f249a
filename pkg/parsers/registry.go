package parsers

import (
	"fmt"
	"sync"

	"github.com/netauto/maintcheck/pkg/models"
)

// Func parses raw CLI text into typed items.
type Func func(raw string) (ItemList, error)

type key struct {
	ctype  models.CollectionType
	vendor models.VendorOS
}

// Registry maps (collection type, vendor OS) to a parser. Sources that are
// vendor-neutral (the bulk ping CSV) register under the unspecified vendor.
type Registry struct {
	mu      sync.RWMutex
	parsers map[key]Func
}

// NewRegistry returns an empty registry; RegisterAll fills in the built-in
// vendor parsers.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[key]Func)}
}

// Register binds a parser. Re-registering a key replaces the previous parser.
func (r *Registry) Register(ctype models.CollectionType, vendor models.VendorOS, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[key{ctype, vendor}] = fn
}

// Lookup returns the parser for the pair, falling back to the vendor-neutral
// parser when no vendor-specific one exists.
func (r *Registry) Lookup(ctype models.CollectionType, vendor models.VendorOS) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.parsers[key{ctype, vendor}]; ok {
		return fn, nil
	}
	if fn, ok := r.parsers[key{ctype, models.VendorUnspecified}]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("no parser registered for %s/%s", ctype, vendor)
}

// RegisterAll installs every built-in parser.
func RegisterAll(r *Registry) {
	for _, v := range []models.VendorOS{models.VendorHPE, models.VendorCiscoIOS, models.VendorCiscoNXOS} {
		vendor := v
		switch vendor {
		case models.VendorHPE:
			r.Register(models.CollectionTransceiver, vendor, ParseTransceiverHPE)
			r.Register(models.CollectionPortChannel, vendor, ParsePortChannelHPE)
			r.Register(models.CollectionUplink, vendor, ParseNeighborsHPE)
			r.Register(models.CollectionVersion, vendor, ParseVersionHPE)
			r.Register(models.CollectionFan, vendor, ParseFanHPE)
			r.Register(models.CollectionPower, vendor, ParsePowerHPE)
			r.Register(models.CollectionErrorCount, vendor, ParseInterfaceErrorsHPE)
			r.Register(models.CollectionInterfaceStatus, vendor, ParseInterfaceStatusHPE)
		default:
			r.Register(models.CollectionTransceiver, vendor, ParseTransceiverCisco)
			r.Register(models.CollectionPortChannel, vendor, ParsePortChannelCisco)
			r.Register(models.CollectionUplink, vendor, ParseNeighborsCisco)
			r.Register(models.CollectionVersion, vendor, ParseVersionCisco)
			r.Register(models.CollectionFan, vendor, ParseFanCisco)
			r.Register(models.CollectionPower, vendor, ParsePowerCisco)
			r.Register(models.CollectionErrorCount, vendor, ParseInterfaceErrorsCisco)
			r.Register(models.CollectionInterfaceStatus, vendor, ParseInterfaceStatusCisco)
		}
	}

	// Vendor-neutral formats.
	r.Register(models.CollectionMacTable, models.VendorUnspecified, ParseMacTable)
	r.Register(models.CollectionARP, models.VendorUnspecified, ParseARP)
	r.Register(models.CollectionStaticACL, models.VendorUnspecified, ParseStaticACL)
	r.Register(models.CollectionDynamicACL, models.VendorUnspecified, ParseDynamicACL)
	r.Register(models.CollectionPing, models.VendorUnspecified, ParsePingCSV)
	r.Register(models.CollectionClientPing, models.VendorUnspecified, ParsePingCSV)
}
