// =============================================================================
// TCD Bridge - Spreadsheet Reader
// =============================================================================
//
// This module wraps excelize behind a small Table abstraction so the rest of
// the engine never touches cell coordinates. A Table is a header row plus the
// data rows below it, read as strings exactly as excelize renders them.
//
// Pivot exports are ragged: merged cells come back empty and short rows are
// common, so every accessor is bounds-safe and returns "" past the edge.
//
// =============================================================================

package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is one sheet flattened to a header row and its data rows.
type Table struct {
	// Sheet is the name of the sheet the table was read from.
	Sheet string

	// Headers are the trimmed cell values of the header row.
	Headers []string

	// Rows are the data rows below the header row. Rows may be shorter
	// than Headers; use Cell for bounds-safe access.
	Rows [][]string
}

// ReadSheet opens an XLSX file and reads one sheet into a Table.
//
// PARAMETERS:
//   - path: the XLSX file to open.
//   - sheet: the sheet name. Empty selects the first sheet.
//   - headerRow: 0-based index of the header row. Rows above it are skipped.
//
// RETURNS:
//   - The Table, or an error if the file, sheet or header row is missing.
func ReadSheet(path, sheet string, headerRow int) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	return readTable(f, sheet, headerRow)
}

// ReadSheetReader reads one sheet from an in-memory workbook. Used for
// uploads that never touch disk.
func ReadSheetReader(r io.Reader, sheet string, headerRow int) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook stream: %w", err)
	}
	defer f.Close()

	return readTable(f, sheet, headerRow)
}

func readTable(f *excelize.File, sheet string, headerRow int) (*Table, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if headerRow < 0 || headerRow >= len(rows) {
		return nil, fmt.Errorf("sheet %s: header row %d out of range (%d rows)", sheet, headerRow, len(rows))
	}

	headers := make([]string, len(rows[headerRow]))
	for i, h := range rows[headerRow] {
		headers[i] = strings.TrimSpace(h)
	}

	return &Table{
		Sheet:   sheet,
		Headers: headers,
		Rows:    rows[headerRow+1:],
	}, nil
}

// Column returns the index of the named header. Matching is trimmed and
// case-insensitive because pivot exports are not consistent about either.
func (t *Table) Column(name string) (int, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range t.Headers {
		if strings.ToLower(h) == want {
			return i, true
		}
	}
	return 0, false
}

// Cell returns the trimmed value at (row, col), or "" when either index is
// out of range.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	cells := t.Rows[row]
	if col < 0 || col >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[col])
}

// ValueColumn returns the index of the rightmost column. Pivot exports
// always carry the numeric value in the last column, whatever its header
// says; the header cell itself is often left blank, in which case the data
// rows reach further right than the header row does.
func (t *Table) ValueColumn() int {
	col := -1
	for i := len(t.Headers) - 1; i >= 0; i-- {
		if t.Headers[i] != "" {
			col = i
			break
		}
	}
	for _, row := range t.Rows {
		if len(row)-1 > col {
			col = len(row) - 1
		}
	}
	return col
}
