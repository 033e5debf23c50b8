package validation

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harborline/quartermast/internal/extraction"
	"github.com/harborline/quartermast/internal/ports"
)

// Missing-field tokens emitted by the engine, in addition to the plain
// extraction field names. Port-level tokens mean the customer gave a country
// where a port is needed; weight_or_volume means no load data of either kind
// exists while the shipment type is still unresolved.
const (
	MissingOriginPort       = "origin_port"
	MissingDestinationPort  = "destination_port"
	MissingWeightOrVolume   = "weight_or_volume"
	MissingContactEmail     = "contact_email"
	MissingHazardousDetails = "hazardous_details"
)

// Result is the completeness verdict for a thread's merged data.
// MissingFields is priority ordered: route first, then type-specific
// mandatory fields and the shipment date, then commodity, then contact.
// IsComplete depends only on the first two buckets.
type Result struct {
	IsComplete    bool
	MissingFields []string
	Warnings      []string
	ShipmentType  extraction.ShipmentType
}

// Engine validates merged shipment data against per-type business rules.
type Engine struct {
	resolver ports.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

func NewEngine(resolver ports.Resolver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{resolver: resolver, logger: logger, now: time.Now}
}

// Validate computes the completeness verdict. confirmed reports whether the
// customer has already explicitly confirmed the booking data; once that has
// happened, absences outside the mandatory buckets no longer appear, so they
// cannot hold up forwarder assignment.
func (e *Engine) Validate(c extraction.Cumulative, confirmed bool) Result {
	res := Result{ShipmentType: extraction.ResolveShipmentType(c)}

	// Bucket 1: route.
	e.checkEndpoint(&res, c, extraction.FieldOrigin, MissingOriginPort)
	e.checkEndpoint(&res, c, extraction.FieldDestination, MissingDestinationPort)

	// Bucket 2: type-specific mandatory fields plus the shipment date.
	switch res.ShipmentType {
	case extraction.TypeFCL:
		if !c.Has(extraction.CategoryShipment, extraction.FieldContainerType) {
			res.MissingFields = append(res.MissingFields, extraction.FieldContainerType)
		}
	case extraction.TypeLCL:
		// Weight and volume are both mandatory; a partial pair is missing.
		if !c.Has(extraction.CategoryShipment, extraction.FieldWeight) {
			res.MissingFields = append(res.MissingFields, extraction.FieldWeight)
		}
		if !c.Has(extraction.CategoryShipment, extraction.FieldVolume) {
			res.MissingFields = append(res.MissingFields, extraction.FieldVolume)
		}
	default:
		// Unresolved type: ask, never assume FCL or LCL.
		res.MissingFields = append(res.MissingFields, extraction.FieldShipmentType)
		if !c.Has(extraction.CategoryShipment, extraction.FieldWeight) &&
			!c.Has(extraction.CategoryShipment, extraction.FieldVolume) {
			res.MissingFields = append(res.MissingFields, MissingWeightOrVolume)
		}
	}
	e.checkShipmentDate(&res, c)

	res.IsComplete = len(res.MissingFields) == 0

	if !confirmed {
		// Buckets 3 and 4 are advisory: listed so clarification requests can
		// ask for them, but they never block completeness.
		if !c.Has(extraction.CategoryShipment, extraction.FieldCommodity) {
			res.MissingFields = append(res.MissingFields, extraction.FieldCommodity)
		}
		if !c.Has(extraction.CategoryContact, extraction.FieldContactEmail) {
			res.MissingFields = append(res.MissingFields, MissingContactEmail)
		}
		e.checkSpecialRequirements(&res, c)
	}

	for _, w := range res.Warnings {
		e.logger.Warn("validation warning", "warning", w)
	}
	return res
}

// checkSpecialRequirements asks for handling details the cargo type implies:
// dangerous goods need hazard documentation, perishables need a temperature
// requirement. Advisory only, like the rest of bucket 4.
func (e *Engine) checkSpecialRequirements(res *Result, c extraction.Cumulative) {
	cargo := strings.ToLower(c.Get(extraction.CategoryShipment, extraction.FieldCargoType))
	if cargo == "" {
		return
	}
	if strings.Contains(cargo, "danger") || strings.Contains(cargo, "hazard") || cargo == "dg" {
		if !c.Has(extraction.CategorySpecial, extraction.FieldHazardous) {
			res.MissingFields = append(res.MissingFields, MissingHazardousDetails)
		}
	}
	if strings.Contains(cargo, "perishable") || strings.Contains(cargo, "reefer") {
		if !c.Has(extraction.CategorySpecial, extraction.FieldTempControl) {
			res.MissingFields = append(res.MissingFields, extraction.FieldTempControl)
		}
	}
}

// checkEndpoint validates one route endpoint. Absent text is a missing
// field; country-only text needs port-level detail; text that fails code
// resolution entirely is present but unvalidated, a warning only.
func (e *Engine) checkEndpoint(res *Result, c extraction.Cumulative, field, portToken string) {
	raw := c.Get(extraction.CategoryShipment, field)
	if raw == "" {
		res.MissingFields = append(res.MissingFields, field)
		return
	}
	if e.resolver == nil {
		return
	}
	lookup := e.resolver.Resolve(raw)
	switch {
	case lookup.Resolved:
	case lookup.CountryOnly:
		res.MissingFields = append(res.MissingFields, portToken)
	default:
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s %q present but unvalidated", field, raw))
	}
}

func (e *Engine) checkShipmentDate(res *Result, c extraction.Cumulative) {
	raw := c.Get(extraction.CategoryTimeline, extraction.FieldShipmentDate)
	if raw == "" {
		res.MissingFields = append(res.MissingFields, extraction.FieldShipmentDate)
		return
	}
	parsed, ok := parseDate(raw)
	if !ok {
		res.Warnings = append(res.Warnings, fmt.Sprintf("shipment_date %q could not be parsed", raw))
		return
	}
	if parsed.Before(e.now().Truncate(24 * time.Hour)) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("shipment_date %q is in the past", raw))
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
