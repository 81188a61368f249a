package fetch

import (
	"strings"

	"github.com/netauto/maintcheck/pkg/models"
)

// fetcherSpec maps one collection type to its gateway and endpoint. Bulk
// fetchers post once per tick with every target IP; per-device fetchers issue
// one GET per device.
type fetcherSpec struct {
	source   string
	endpoint string
	bulk     bool
}

// DNA serves the vendor-aware CLI dumps and needs {vendor_os} in the path;
// FNA auto-detects the vendor upstream and takes only {ip}; GNMS is the bulk
// ping gateway.
var fetcherSpecs = map[models.CollectionType]fetcherSpec{
	models.CollectionTransceiver:     {source: SourceDNA, endpoint: "/api/v1/{vendor_os}/{ip}/transceiver"},
	models.CollectionPortChannel:     {source: SourceDNA, endpoint: "/api/v1/{vendor_os}/{ip}/port-channel"},
	models.CollectionUplink:          {source: SourceDNA, endpoint: "/api/v1/{vendor_os}/{ip}/lldp-neighbors"},
	models.CollectionVersion:         {source: SourceDNA, endpoint: "/api/v1/{vendor_os}/{ip}/version"},
	models.CollectionFan:             {source: SourceDNA, endpoint: "/api/v1/{vendor_os}/{ip}/fan"},
	models.CollectionPower:           {source: SourceDNA, endpoint: "/api/v1/{vendor_os}/{ip}/power"},
	models.CollectionErrorCount:      {source: SourceDNA, endpoint: "/api/v1/{vendor_os}/{ip}/interface-errors"},
	models.CollectionInterfaceStatus: {source: SourceDNA, endpoint: "/api/v1/{vendor_os}/{ip}/interface-status"},
	models.CollectionStaticACL:       {source: SourceFNA, endpoint: "/api/v1/device/{ip}/static-acl"},
	models.CollectionDynamicACL:      {source: SourceFNA, endpoint: "/api/v1/device/{ip}/dynamic-acl"},
	models.CollectionMacTable:        {source: SourceFNA, endpoint: "/api/v1/device/{ip}/mac-table"},
	models.CollectionARP:             {source: SourceFNA, endpoint: "/api/v1/device/{ip}/arp"},
	models.CollectionPing:            {source: SourceGNMS, endpoint: "/api/v1/ping", bulk: true},
	models.CollectionClientPing:      {source: SourceGNMS, endpoint: "/api/v1/ping", bulk: true},
}

func renderEndpoint(tpl, ip string, vendor models.VendorOS) string {
	out := strings.ReplaceAll(tpl, "{ip}", ip)
	return strings.ReplaceAll(out, "{vendor_os}", string(vendor))
}

// bulkPingRequest is the GNMS request body; the gateway authenticates
// in-band rather than by header.
type bulkPingRequest struct {
	AppName   string   `json:"app_name"`
	Token     string   `json:"token"`
	Addresses []string `json:"addresses"`
}
