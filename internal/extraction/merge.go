package extraction

import (
	"log/slog"
	"strings"
)

// Merge folds a partial extraction into the existing cumulative record and
// returns the result. Per leaf field:
//
//   - a non-empty incoming value replaces the existing one (recency wins)
//   - a field absent from incoming keeps its existing value
//   - a field present but empty in incoming is the extractor's "not stated"
//     marker and keeps the existing value, never deletes it
//   - a category absent from incoming is carried forward unchanged
//
// When the resolved shipment type flips, the fields exclusive to the other
// type are cleared: FCL clears weight/volume, LCL clears container fields.
// Unknown categories or fields are dropped and logged.
//
// Merge never mutates its inputs, and Merge(Merge(s, p), p) == Merge(s, p).
func Merge(existing Cumulative, incoming Partial, logger *slog.Logger) Cumulative {
	if logger == nil {
		logger = slog.Default()
	}
	merged := existing.Clone()

	for category, fields := range incoming {
		if !KnownCategory(category) {
			logger.Warn("dropping unknown extraction category", "category", category)
			continue
		}
		for field, value := range fields {
			if !KnownField(category, field) {
				logger.Warn("dropping unknown extraction field", "category", category, "field", field)
				continue
			}
			if category == CategoryShipment && field == FieldShipmentType {
				continue // handled below, after the plain fields
			}
			if v := strings.TrimSpace(value); v != "" {
				merged.Set(category, field, v)
			}
		}
	}

	applyShipmentType(existing, incoming, &merged)
	return merged
}

// applyShipmentType enforces FCL/LCL exclusivity on the merged record.
//
// An explicit shipment_type statement in the incoming message both sets the
// field and clears the fields belonging to the other type. Without an
// explicit statement, the only implicit flip is LCL -> FCL (a container type
// arriving on a thread previously resolved as LCL); FCL -> LCL cannot happen
// implicitly because a stored container type keeps resolving as FCL.
// Fields the incoming message itself provides are never cleared.
func applyShipmentType(existing Cumulative, incoming Partial, merged *Cumulative) {
	declared := ""
	if v, ok := incoming.Get(CategoryShipment, FieldShipmentType); ok {
		declared = strings.ToUpper(strings.TrimSpace(v))
	}

	switch declared {
	case "LCL":
		merged.Set(CategoryShipment, FieldShipmentType, "LCL")
		if !incoming.has(CategoryShipment, FieldContainerType) {
			clearField(merged, FieldContainerType)
		}
		if !incoming.has(CategoryShipment, FieldContainerCount) {
			clearField(merged, FieldContainerCount)
		}
	case "FCL":
		merged.Set(CategoryShipment, FieldShipmentType, "FCL")
		if !incoming.has(CategoryShipment, FieldWeight) {
			clearField(merged, FieldWeight)
		}
		if !incoming.has(CategoryShipment, FieldVolume) {
			clearField(merged, FieldVolume)
		}
	case "":
		if ResolveShipmentType(existing) == TypeLCL && incoming.has(CategoryShipment, FieldContainerType) {
			if !incoming.has(CategoryShipment, FieldWeight) {
				clearField(merged, FieldWeight)
			}
			if !incoming.has(CategoryShipment, FieldVolume) {
				clearField(merged, FieldVolume)
			}
		}
	default:
		// Unrecognised load type: keep it verbatim so recency still wins,
		// resolution will report UNKNOWN and validation will ask again.
		merged.Set(CategoryShipment, FieldShipmentType, declared)
	}
}

func clearField(c *Cumulative, field string) {
	if fields, ok := c.Categories[CategoryShipment]; ok {
		delete(fields, field)
	}
}
