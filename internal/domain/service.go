package domain

import (
	"strings"
)

// ServiceKey identifies a billable freight-forwarding service
type ServiceKey string

const (
	ServiceTerminalHandling  ServiceKey = "terminal_handling"
	ServiceInlandTrucking    ServiceKey = "inland_trucking"
	ServiceCustomsClearance  ServiceKey = "customs_clearance"
	ServiceDocumentation     ServiceKey = "documentation"
	ServicePortStorage       ServiceKey = "port_storage"
	ServiceCargoHandling     ServiceKey = "cargo_handling"
	ServiceAirFreight        ServiceKey = "air_freight"
	ServiceAgencyFee         ServiceKey = "agency_fee"
	ServiceContainerScanning ServiceKey = "container_scanning"
	ServiceDeliveryOrder     ServiceKey = "delivery_order"
)

// IsValid checks if the service key is in the whitelist
func (k ServiceKey) IsValid() bool {
	switch k {
	case ServiceTerminalHandling, ServiceInlandTrucking, ServiceCustomsClearance,
		ServiceDocumentation, ServicePortStorage, ServiceCargoHandling,
		ServiceAirFreight, ServiceAgencyFee, ServiceContainerScanning,
		ServiceDeliveryOrder:
		return true
	}
	return false
}

// ParseServiceKey trims and lowercases raw and accepts only whitelisted keys
func ParseServiceKey(raw string) (ServiceKey, bool) {
	key := ServiceKey(strings.ToLower(strings.TrimSpace(raw)))
	if !key.IsValid() {
		return "", false
	}
	return key, true
}

// HasFallback reports whether the secondary tariff table may price this service
func (k ServiceKey) HasFallback() bool {
	return k == ServiceTerminalHandling
}

// TariffCategory is the secondary tariff category for services with a fallback
func (k ServiceKey) TariffCategory() string {
	switch k {
	case ServiceTerminalHandling:
		return "THC"
	}
	return ""
}

// Scope is the shipment direction
type Scope string

const (
	ScopeImport  Scope = "import"
	ScopeExport  Scope = "export"
	ScopeTransit Scope = "transit"
)

// IsValid checks if the scope is valid
func (s Scope) IsValid() bool {
	switch s {
	case ScopeImport, ScopeExport, ScopeTransit:
		return true
	}
	return false
}

// ParseScope accepts english and french spellings of a direction
func ParseScope(raw string) (Scope, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "import", "imports", "importation":
		return ScopeImport, true
	case "export", "exports", "exportation":
		return ScopeExport, true
	case "transit":
		return ScopeTransit, true
	}
	return "", false
}

// TariffOperation maps a scope to the operation column of the tariff table
func (s Scope) TariffOperation() string {
	switch s {
	case ScopeImport:
		return "IMPORT"
	case ScopeExport:
		return "EXPORT"
	}
	return ""
}
