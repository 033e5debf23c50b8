package extraction

import "strings"

// Category names for the cumulative extraction record. The set is closed:
// anything else coming back from the extractor is dropped at merge time.
const (
	CategoryShipment = "shipment_details"
	CategoryContact  = "contact_information"
	CategoryTimeline = "timeline_information"
	CategoryRate     = "rate_information"
	CategorySpecial  = "special_requirements"
)

// Field names used across the merge and validation engines.
const (
	FieldOrigin         = "origin"
	FieldDestination    = "destination"
	FieldShipmentType   = "shipment_type"
	FieldContainerType  = "container_type"
	FieldContainerCount = "container_count"
	FieldQuantity       = "quantity"
	FieldWeight         = "weight"
	FieldVolume         = "volume"
	FieldCommodity      = "commodity"
	FieldIncoterms      = "incoterms"
	FieldCargoType      = "cargo_type"

	FieldContactName    = "name"
	FieldContactCompany = "company"
	FieldContactEmail   = "email"
	FieldContactPhone   = "phone"

	FieldShipmentDate = "shipment_date"
	FieldReadyDate    = "ready_date"
	FieldETD          = "etd"
	FieldETA          = "eta"

	FieldRateAmount    = "amount"
	FieldRateCurrency  = "currency"
	FieldRateValidity  = "valid_until"
	FieldRateTransit   = "transit_time"
	FieldRateForwarder = "forwarder_name"

	FieldNotes       = "notes"
	FieldTempControl = "temperature_control"
	FieldHazardous   = "hazardous"
	FieldStackable   = "stackable"
)

// schema is the closed field set per category. Extractor output that names a
// category or field outside this table is dropped, never added.
var schema = map[string]map[string]bool{
	CategoryShipment: {
		FieldOrigin: true, FieldDestination: true, FieldShipmentType: true,
		FieldContainerType: true, FieldContainerCount: true, FieldQuantity: true,
		FieldWeight: true, FieldVolume: true, FieldCommodity: true,
		FieldIncoterms: true, FieldCargoType: true,
	},
	CategoryContact: {
		FieldContactName: true, FieldContactCompany: true,
		FieldContactEmail: true, FieldContactPhone: true,
	},
	CategoryTimeline: {
		FieldShipmentDate: true, FieldReadyDate: true, FieldETD: true, FieldETA: true,
	},
	CategoryRate: {
		FieldRateAmount: true, FieldRateCurrency: true, FieldRateValidity: true,
		FieldRateTransit: true, FieldRateForwarder: true,
	},
	CategorySpecial: {
		FieldNotes: true, FieldTempControl: true, FieldHazardous: true, FieldStackable: true,
	},
}

// KnownCategory reports whether name is one of the five extraction categories.
func KnownCategory(name string) bool {
	_, ok := schema[name]
	return ok
}

// KnownField reports whether field belongs to category's closed schema.
func KnownField(category, field string) bool {
	return schema[category][field]
}

// Partial is the raw per-message extractor output. A field absent from the
// map was not mentioned; a field present with an empty string is the
// extractor's "not stated" marker. Both must survive to the merge engine.
type Partial map[string]map[string]string

// Get returns the raw value for a field, and whether the field is present.
func (p Partial) Get(category, field string) (string, bool) {
	cat, ok := p[category]
	if !ok {
		return "", false
	}
	v, ok := cat[field]
	return v, ok
}

// has reports whether the field is present with a non-blank value.
func (p Partial) has(category, field string) bool {
	v, ok := p.Get(category, field)
	return ok && strings.TrimSpace(v) != ""
}

// Cumulative is the thread-level merged shipment record. Empty values are
// never stored: a field is either present with content or absent.
type Cumulative struct {
	Categories map[string]map[string]string `json:"categories"`
	Version    int                          `json:"version"`
}

func NewCumulative() Cumulative {
	return Cumulative{Categories: map[string]map[string]string{}, Version: 1}
}

// Get returns the merged value for a field, or "" when absent.
func (c Cumulative) Get(category, field string) string {
	return c.Categories[category][field]
}

// Has reports whether the field holds a non-empty merged value.
func (c Cumulative) Has(category, field string) bool {
	return c.Get(category, field) != ""
}

// Set stores a value directly, bypassing merge rules. Used for seeding
// (contact from the envelope sender) and forwarder rate capture. Blank
// values are ignored so empty strings never land in the record.
func (c *Cumulative) Set(category, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" || !KnownField(category, field) {
		return
	}
	if c.Categories == nil {
		c.Categories = map[string]map[string]string{}
	}
	if c.Categories[category] == nil {
		c.Categories[category] = map[string]string{}
	}
	c.Categories[category][field] = value
}

// Clone returns a deep copy.
func (c Cumulative) Clone() Cumulative {
	out := Cumulative{Categories: make(map[string]map[string]string, len(c.Categories)), Version: c.Version}
	if out.Version == 0 {
		out.Version = 1
	}
	for cat, fields := range c.Categories {
		cp := make(map[string]string, len(fields))
		for f, v := range fields {
			cp[f] = v
		}
		out.Categories[cat] = cp
	}
	return out
}

// FieldCount returns the number of populated fields across all categories.
func (c Cumulative) FieldCount() int {
	n := 0
	for _, fields := range c.Categories {
		n += len(fields)
	}
	return n
}

// ShipmentType is the resolved load type for a thread.
type ShipmentType string

const (
	TypeFCL     ShipmentType = "FCL"
	TypeLCL     ShipmentType = "LCL"
	TypeUnknown ShipmentType = "UNKNOWN"
)

// ResolveShipmentType derives the load type from merged data. An explicit
// shipment_type statement wins; otherwise a container type implies FCL, and a
// weight+volume pair without a container implies LCL.
func ResolveShipmentType(c Cumulative) ShipmentType {
	declared := strings.ToUpper(strings.TrimSpace(c.Get(CategoryShipment, FieldShipmentType)))
	switch declared {
	case "LCL":
		return TypeLCL
	case "FCL":
		return TypeFCL
	}
	if c.Has(CategoryShipment, FieldContainerType) {
		return TypeFCL
	}
	if c.Has(CategoryShipment, FieldWeight) && c.Has(CategoryShipment, FieldVolume) {
		return TypeLCL
	}
	return TypeUnknown
}
