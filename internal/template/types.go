// =============================================================================
// TCD Bridge - Destination Template Rows
// =============================================================================
//
// A destination template is a workbook whose rows already carry the exact
// platform identifiers: one row per (section, data element, organisation,
// category option combo, attribute option combo) with an empty value cell.
// The generator produces these rows, the writer lays them out in a workbook,
// and the reconciler reads them back to resolve pivot rows against them.
//
// =============================================================================

package template

import (
	"fmt"

	"github.com/hsalifou/tcdbridge/internal/excel"
)

// Column headers of the data sheet, in writing order.
var Headers = []string{
	"section",
	"dataElementName", "dataElement",
	"orgUnitName", "orgUnitCode", "orgUnit",
	"categoryOptionComboName", "categoryOptionCombo",
	"attributeOptionComboName", "attributeOptionCombo",
	"period", "value",
}

// Row is one data-entry slot of the destination template.
type Row struct {
	Section string

	DataElementName string
	DataElementID   string

	OrgUnitName string
	OrgUnitCode string
	OrgUnitID   string

	CocName string
	CocID   string

	AocName string
	AocID   string

	Period string
	Value  string
}

// RowsFromTable converts a template sheet read by the excel package into
// typed rows. The core columns must all be present; the code and value
// columns are optional because older templates did not carry them.
func RowsFromTable(t *excel.Table) ([]Row, error) {
	required := []string{
		"section", "dataElementName", "dataElement",
		"orgUnitName", "orgUnit",
		"categoryOptionComboName", "categoryOptionCombo",
	}
	cols := make(map[string]int, len(Headers))
	for _, name := range required {
		idx, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("template sheet %s: missing column %q", t.Sheet, name)
		}
		cols[name] = idx
	}
	optional := []string{"orgUnitCode", "attributeOptionComboName", "attributeOptionCombo", "period", "value"}
	for _, name := range optional {
		if idx, ok := t.Column(name); ok {
			cols[name] = idx
		} else {
			cols[name] = -1
		}
	}

	cell := func(row int, name string) string {
		return t.Cell(row, cols[name])
	}

	rows := make([]Row, 0, len(t.Rows))
	for i := range t.Rows {
		row := Row{
			Section:         cell(i, "section"),
			DataElementName: cell(i, "dataElementName"),
			DataElementID:   cell(i, "dataElement"),
			OrgUnitName:     cell(i, "orgUnitName"),
			OrgUnitCode:     cell(i, "orgUnitCode"),
			OrgUnitID:       cell(i, "orgUnit"),
			CocName:         cell(i, "categoryOptionComboName"),
			CocID:           cell(i, "categoryOptionCombo"),
			AocName:         cell(i, "attributeOptionComboName"),
			AocID:           cell(i, "attributeOptionCombo"),
			Period:          cell(i, "period"),
			Value:           cell(i, "value"),
		}
		// Rows below the data block come back fully blank, stop there.
		if row.Section == "" && row.DataElementName == "" && row.OrgUnitName == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
