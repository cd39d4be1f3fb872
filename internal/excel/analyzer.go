// =============================================================================
// TCD Bridge - Workbook Analyzer
// =============================================================================
//
// Before a TCD export is reconciled the operator usually wants to see what is
// actually inside it: which sheets, which columns, how many rows, and which
// establishments the file mentions. Analyze produces that report without any
// metadata or mapping configuration.
//
// =============================================================================

package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// sampleLimit caps how many distinct values are reported per column.
const sampleLimit = 5

// SheetInfo describes one sheet of the analyzed workbook.
type SheetInfo struct {
	Name     string              `json:"name"`
	Columns  []string            `json:"columns"`
	RowCount int                 `json:"row_count"`
	Samples  map[string][]string `json:"samples"`
}

// Establishment is one distinct establishment found in the workbook.
type Establishment struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// WorkbookReport is the full analysis of one workbook.
type WorkbookReport struct {
	File           string          `json:"file"`
	Sheets         []SheetInfo     `json:"sheets"`
	Establishments []Establishment `json:"establishments"`
}

// Analyze inspects every sheet of the workbook and reports its structure.
//
// PARAMETERS:
//   - path: the XLSX file to analyze.
//   - establishmentColumn: header of the establishment name column. Sheets
//     without it contribute no establishments.
//   - codeColumn: header of the establishment code column, may be absent.
//   - headerRow: 0-based header row index used for every sheet.
//
// RETURNS:
//   - The report, or an error if the file cannot be opened.
func Analyze(path, establishmentColumn, codeColumn string, headerRow int) (*WorkbookReport, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	report := &WorkbookReport{File: path}
	seen := make(map[string]bool)

	for _, sheet := range f.GetSheetList() {
		table, err := readTable(f, sheet, headerRow)
		if err != nil {
			// Sheets shorter than the header row are decorative, skip them.
			continue
		}

		info := SheetInfo{
			Name:     sheet,
			Columns:  table.Headers,
			RowCount: len(table.Rows),
			Samples:  make(map[string][]string),
		}
		for col, header := range table.Headers {
			if header == "" {
				continue
			}
			info.Samples[header] = columnSamples(table, col)
		}
		report.Sheets = append(report.Sheets, info)

		estCol, ok := table.Column(establishmentColumn)
		if !ok {
			continue
		}
		codeCol, hasCode := table.Column(codeColumn)
		for row := range table.Rows {
			name := table.Cell(row, estCol)
			if name == "" || seen[strings.ToLower(name)] {
				continue
			}
			seen[strings.ToLower(name)] = true
			est := Establishment{Name: name}
			if hasCode {
				est.Code = table.Cell(row, codeCol)
			}
			report.Establishments = append(report.Establishments, est)
		}
	}

	return report, nil
}

// columnSamples collects the first few distinct non-blank values of a column.
func columnSamples(t *Table, col int) []string {
	samples := make([]string, 0, sampleLimit)
	seen := make(map[string]bool)
	for row := range t.Rows {
		v := t.Cell(row, col)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		samples = append(samples, v)
		if len(samples) == sampleLimit {
			break
		}
	}
	return samples
}
