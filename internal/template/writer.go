// =============================================================================
// TCD Bridge - Template Workbook Writer
// =============================================================================
//
// This module lays generated rows out as a styled data-entry workbook:
//   - rows 1-3 carry a metadata banner (dataset, period, row counts)
//   - row 6 is the column header row, styled and frozen
//   - an "Instructions" sheet explains how to fill the template
//
// The header lands on row 6 so that a round trip through the reconciler
// works with its default template header index of 5 (0-based).
//
// =============================================================================

package template

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	dataSheet         = "Données"
	instructionsSheet = "Instructions"

	// headerRowNum is the 1-based workbook row of the column headers.
	headerRowNum = 6

	headerFillColor = "4472C4"
	titleFontColor  = "2E5090"
)

// WorkbookInfo feeds the banner and instructions sheets.
type WorkbookInfo struct {
	DatasetName string
	Period      string
	OrgUnits    int
	TotalRows   int

	// HideTechnical hides the id columns so operators only see names.
	HideTechnical bool
}

var columnWidths = map[string]float64{
	"section":                  25,
	"dataElementName":          40,
	"dataElement":              22,
	"orgUnitName":              35,
	"orgUnitCode":              15,
	"orgUnit":                  22,
	"categoryOptionComboName":  35,
	"categoryOptionCombo":      22,
	"attributeOptionComboName": 25,
	"attributeOptionCombo":     22,
	"period":                   12,
	"value":                    12,
}

var technicalColumns = map[string]bool{
	"dataElement":          true,
	"orgUnit":              true,
	"categoryOptionCombo":  true,
	"attributeOptionCombo": true,
}

// WriteWorkbook writes the rows as a styled data-entry workbook.
func WriteWorkbook(path string, rows []Row, info WorkbookInfo) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return fmt.Errorf("failed to rename data sheet: %w", err)
	}

	if err := writeBanner(f, info); err != nil {
		return err
	}
	if err := writeData(f, rows, info); err != nil {
		return err
	}
	if err := writeInstructions(f, info); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeBanner(f *excelize.File, info WorkbookInfo) error {
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 14, Bold: true, Color: titleFontColor},
	})
	if err != nil {
		return fmt.Errorf("failed to create title style: %w", err)
	}
	noteStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 9, Color: "666666"},
	})
	if err != nil {
		return fmt.Errorf("failed to create note style: %w", err)
	}

	f.SetCellValue(dataSheet, "A1", fmt.Sprintf("Template DHIS2 - %s", info.DatasetName))
	f.SetCellStyle(dataSheet, "A1", "A1", titleStyle)
	f.SetCellValue(dataSheet, "A2", fmt.Sprintf("Période: %s", info.Period))
	f.SetCellValue(dataSheet, "A3", fmt.Sprintf("Organisations: %d | Lignes: %d", info.OrgUnits, info.TotalRows))
	f.SetCellStyle(dataSheet, "A3", "A3", noteStyle)
	return nil
}

func writeData(f *excelize.File, rows []Row, info WorkbookInfo) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, headerRowNum)
		if err != nil {
			return fmt.Errorf("failed to address header cell: %w", err)
		}
		f.SetCellValue(dataSheet, cell, header)
		f.SetCellStyle(dataSheet, cell, cell, headerStyle)

		letter, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to name column %d: %w", col+1, err)
		}
		if w, ok := columnWidths[header]; ok {
			f.SetColWidth(dataSheet, letter, letter, w)
		}
		if info.HideTechnical && technicalColumns[header] {
			f.SetColVisible(dataSheet, letter, false)
		}
	}

	for i, row := range rows {
		values := []interface{}{
			row.Section,
			row.DataElementName, row.DataElementID,
			row.OrgUnitName, row.OrgUnitCode, row.OrgUnitID,
			row.CocName, row.CocID,
			row.AocName, row.AocID,
			row.Period, row.Value,
		}
		cell, err := excelize.CoordinatesToCellName(1, headerRowNum+1+i)
		if err != nil {
			return fmt.Errorf("failed to address data row %d: %w", i, err)
		}
		if err := f.SetSheetRow(dataSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write data row %d: %w", i, err)
		}
	}

	// Only the value column is meant to change; numbers, zero or more.
	valueLetter, _ := excelize.ColumnNumberToName(len(Headers))
	dv := excelize.NewDataValidation(true)
	dv.Sqref = fmt.Sprintf("%s%d:%s%d", valueLetter, headerRowNum+1, valueLetter, headerRowNum+len(rows))
	if err := dv.SetRange(0, 1e9, excelize.DataValidationTypeDecimal, excelize.DataValidationOperatorBetween); err != nil {
		return fmt.Errorf("failed to configure value validation: %w", err)
	}
	dv.SetError(excelize.DataValidationErrorStyleStop, "Valeur invalide", "Entrez un nombre valide")
	if err := f.AddDataValidation(dataSheet, dv); err != nil {
		return fmt.Errorf("failed to add value validation: %w", err)
	}

	if err := f.SetPanes(dataSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRowNum,
		TopLeftCell: fmt.Sprintf("A%d", headerRowNum+1),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header row: %w", err)
	}
	return nil
}

func writeInstructions(f *excelize.File, info WorkbookInfo) error {
	if _, err := f.NewSheet(instructionsSheet); err != nil {
		return fmt.Errorf("failed to create instructions sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 14, Bold: true, Color: titleFontColor},
	})
	if err != nil {
		return fmt.Errorf("failed to create instructions title style: %w", err)
	}
	sectionStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 12, Bold: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create instructions section style: %w", err)
	}

	lines := []struct {
		text  string
		style int
	}{
		{"Template DHIS2 - Mode d'emploi", titleStyle},
		{"", 0},
		{"1. Comment remplir ce template ?", sectionStyle},
		{"   • Renseignez uniquement la colonne value", 0},
		{"   • Les autres colonnes sont en lecture seule", 0},
		{"", 0},
		{"2. Validation des données", sectionStyle},
		{"   • La colonne value accepte uniquement des nombres", 0},
		{"   • Les valeurs négatives ne sont pas autorisées", 0},
		{"", 0},
		{"3. Après la saisie", sectionStyle},
		{"   • Enregistrez le fichier puis importez-le dans le calculateur", 0},
		{"", 0},
		{fmt.Sprintf("Dataset: %s", info.DatasetName), 0},
		{fmt.Sprintf("Période: %s", info.Period), 0},
		{fmt.Sprintf("Organisations: %d", info.OrgUnits), 0},
		{fmt.Sprintf("Lignes générées: %d", info.TotalRows), 0},
	}
	for i, line := range lines {
		cell := fmt.Sprintf("A%d", i+1)
		f.SetCellValue(instructionsSheet, cell, line.text)
		if line.style != 0 {
			f.SetCellStyle(instructionsSheet, cell, cell, line.style)
		}
	}
	f.SetColWidth(instructionsSheet, "A", "A", 60)
	return nil
}
