// =============================================================================
// TCD Bridge - Payload Assembly
// =============================================================================
//
// Reconciled rows leave the engine as data value records. This module wraps
// them into the import payload shape and runs an advisory validation pass
// before anything is written or pushed.
//
// =============================================================================

package payload

import "fmt"

// validationSampleSize bounds the per-record field check.
const validationSampleSize = 10

// Record is one data value bound to exact platform identifiers.
type Record struct {
	DataElement          string `json:"dataElement"`
	Period               string `json:"period"`
	OrgUnit              string `json:"orgUnit"`
	CategoryOptionCombo  string `json:"categoryOptionCombo"`
	AttributeOptionCombo string `json:"attributeOptionCombo"`
	Value                string `json:"value"`
}

// Payload is the import document: a flat collection of data values.
type Payload struct {
	DataValues []Record `json:"dataValues"`
}

// Assemble wraps records into a payload. A nil slice becomes an empty
// collection so the JSON always carries a dataValues array.
func Assemble(records []Record) *Payload {
	if records == nil {
		records = []Record{}
	}
	return &Payload{DataValues: records}
}

// Validate runs a shallow advisory check: the payload must be non-empty and
// the first few records must carry every mandatory field. It reports
// problems without mutating the payload.
func Validate(p *Payload) []string {
	var problems []string

	if p == nil || len(p.DataValues) == 0 {
		return []string{"payload contains no data values"}
	}

	n := len(p.DataValues)
	if n > validationSampleSize {
		n = validationSampleSize
	}
	for i := 0; i < n; i++ {
		rec := p.DataValues[i]
		for _, field := range []struct{ name, value string }{
			{"dataElement", rec.DataElement},
			{"period", rec.Period},
			{"orgUnit", rec.OrgUnit},
			{"categoryOptionCombo", rec.CategoryOptionCombo},
			{"value", rec.Value},
		} {
			if field.value == "" {
				problems = append(problems, fmt.Sprintf("record %d: missing %s", i, field.name))
			}
		}
	}

	return problems
}
