package template

import (
	"path/filepath"
	"testing"

	"github.com/hsalifou/tcdbridge/internal/excel"
)

func TestWriteWorkbookRoundTrip(t *testing.T) {
	rows := sampleRows()
	path := filepath.Join(t.TempDir(), "template.xlsx")

	info := WorkbookInfo{
		DatasetName: "Consultations",
		Period:      "2024",
		OrgUnits:    1,
		TotalRows:   len(rows),
	}
	if err := WriteWorkbook(path, rows, info); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	// The header sits on workbook row 6, index 5 for the reader.
	table, err := excel.ReadSheet(path, "Données", 5)
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	got, err := RowsFromTable(table)
	if err != nil {
		t.Fatalf("RowsFromTable: %v", err)
	}

	if len(got) != len(rows) {
		t.Fatalf("rows = %d, want %d", len(got), len(rows))
	}
	for i := range rows {
		if got[i].Section != rows[i].Section ||
			got[i].DataElementID != rows[i].DataElementID ||
			got[i].OrgUnitID != rows[i].OrgUnitID ||
			got[i].CocName != rows[i].CocName ||
			got[i].CocID != rows[i].CocID ||
			got[i].Period != rows[i].Period {
			t.Fatalf("row %d = %+v, want %+v", i, got[i], rows[i])
		}
	}
}

func TestRowsFromTableRequiresCoreColumns(t *testing.T) {
	table := &excel.Table{
		Sheet:   "Données",
		Headers: []string{"section", "dataElementName"},
	}
	if _, err := RowsFromTable(table); err == nil {
		t.Fatal("expected error for missing columns")
	}
}
