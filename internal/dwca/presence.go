package dwca

// FieldCheck is one row of the preliminary data checks panel.
type FieldCheck struct {
	Label    string
	Supplied bool
	// Percent is the floor of supplied records over total records, only
	// meaningful when Supplied is true and a single field was checked.
	Percent int
	// Warn indicates the row should render as a problem when not supplied.
	Warn bool
}

// FieldSupplied checks a single field, reporting its coverage percentage.
func (vr *ValidationResult) FieldSupplied(field, label string, skipWarning bool) *FieldCheck {
	count := vr.FieldCount(field)
	if count > 0 {
		pct := 0
		if total := vr.TotalRecords(); total > 0 {
			pct = int(count * 100 / total)
		}
		return &FieldCheck{Label: label, Supplied: true, Percent: pct}
	}
	if skipWarning {
		return nil
	}
	return &FieldCheck{Label: label + " not supplied", Warn: true}
}

// FieldsSupplied passes only when every named field is present.
func (vr *ValidationResult) FieldsSupplied(fields []string, label string, skipWarning bool) *FieldCheck {
	for _, f := range fields {
		if vr.FieldCount(f) == 0 {
			if skipWarning {
				return nil
			}
			return &FieldCheck{Label: label + " not supplied", Warn: true}
		}
	}
	return &FieldCheck{Label: label, Supplied: true}
}

// FieldsNotSupplied flags the absence of a whole field group, e.g. no
// taxonomic information at all. It reports nothing when any field is present.
func (vr *ValidationResult) FieldsNotSupplied(fields []string, label string) *FieldCheck {
	for _, f := range fields {
		if vr.FieldCount(f) > 0 {
			return nil
		}
	}
	return &FieldCheck{Label: label, Warn: true}
}

// PreliminaryChecks assembles the data checks panel shown alongside the
// preview, mirroring the order the form renders them in.
func (vr *ValidationResult) PreliminaryChecks() []FieldCheck {
	var checks []FieldCheck
	add := func(c *FieldCheck) {
		if c != nil {
			checks = append(checks, *c)
		}
	}

	add(vr.FieldSupplied("scientificName", "Scientific name", false))
	add(vr.FieldSupplied("basisOfRecord", "Basis of record", false))
	add(vr.FieldsSupplied([]string{"decimalLatitude", "decimalLongitude"}, "Coordinates", false))
	add(vr.FieldsNotSupplied([]string{"scientificName", "genus", "family", "order", "class", "phylum", "kingdom"}, "No taxonomic information"))
	add(vr.FieldsNotSupplied([]string{"eventDate", "month", "year"}, "No date information"))
	add(vr.FieldSupplied("eventDate", "Event date", true))
	add(vr.FieldSupplied("month", "Month", true))
	add(vr.FieldSupplied("year", "Year", true))
	add(vr.FieldSupplied("geodeticDatum", "Geodetic datum", false))
	add(vr.FieldSupplied("coordinateUncertaintyInMeters", "Coord. uncertainty", false))
	add(vr.FieldSupplied("coordinatePrecision", "Coord. precision", false))

	return checks
}
