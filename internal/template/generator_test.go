package template

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/hsalifou/tcdbridge/internal/metadata"
)

func testMetadata(t *testing.T) *metadata.Index {
	t.Helper()
	graph := &metadata.Graph{
		OrganisationUnits: []metadata.OrganisationUnit{
			{ID: "ou1", Name: "Hopital Central", Code: "HC01", Level: 1},
			{ID: "ou2", Name: "Clinique Sud", Code: "CS02", Level: 1},
		},
		DataSets: []metadata.Dataset{
			{
				ID:   "ds1",
				Name: "Consultations",
				DataSetElements: []metadata.DataSetElement{
					{DataElement: metadata.Ref{ID: "de1"}},
					{DataElement: metadata.Ref{ID: "de2"}},
				},
			},
		},
		Sections: []metadata.Section{
			{ID: "sec1", Name: "Section A", SortOrder: 1, DataSet: &metadata.Ref{ID: "ds1"}, DataElements: []metadata.Ref{{ID: "de1"}}},
			{ID: "sec2", Name: "Section B", SortOrder: 2, DataSet: &metadata.Ref{ID: "ds1"}, DataElements: []metadata.Ref{{ID: "de2"}}},
		},
		DataElements: []metadata.DataElement{
			{ID: "de1", Name: "Cases", CategoryCombo: &metadata.Ref{ID: "cc1"}},
			{ID: "de2", Name: "Deaths"},
		},
		CategoryOptions: []metadata.CategoryOption{
			{ID: "optF", Name: "F"},
			{ID: "optM", Name: "M"},
			{ID: "opt2022", Name: "20-22"},
		},
		CategoryCombos: []metadata.CategoryCombo{
			{ID: "cc1", Name: "Sexe/Age"},
		},
		CategoryOptionCombos: []metadata.CategoryOptionCombo{
			{ID: "cocDefault", Name: "default"},
			{ID: "cocF", Name: "F | 20-22", CategoryCombo: &metadata.Ref{ID: "cc1"}, CategoryOptions: []metadata.Ref{{ID: "optF"}, {ID: "opt2022"}}},
			{ID: "cocM", Name: "M | 20-22", CategoryCombo: &metadata.Ref{ID: "cc1"}, CategoryOptions: []metadata.Ref{{ID: "optM"}, {ID: "opt2022"}}},
		},
	}
	ix := metadata.NewIndex(zerolog.Nop())
	if ok, errs, _ := ix.Load(graph); !ok {
		t.Fatalf("metadata load failed: %v", errs)
	}
	return ix
}

func TestGenerateExpandsDatasetSectionsAndCombos(t *testing.T) {
	gen := NewGenerator(testMetadata(t), zerolog.Nop())

	rows, stats, err := gen.Generate(GeneratorConfig{
		OrgUnitIDs: []string{"ou1", "ou2"},
		DatasetID:  "ds1",
		Period:     "2024",
		PeriodType: "Yearly",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Per organisation: Cases has two combos, Deaths falls back to the
	// default combo. The dataset has no attribute combo, so one AOC each.
	if len(rows) != 6 {
		t.Fatalf("rows = %d", len(rows))
	}
	if stats.TotalRows != 6 || stats.OrgUnits != 2 || stats.Sections != 2 {
		t.Fatalf("stats = %+v", stats)
	}

	first := rows[0]
	if first.Section != "Section A" || first.DataElementID != "de1" || first.OrgUnitID != "ou1" {
		t.Fatalf("first row = %+v", first)
	}
	if first.CocName != "20-22 | F" || first.CocID != "cocF" {
		t.Fatalf("first row combo = %q %q", first.CocName, first.CocID)
	}
	if first.AocID != "cocDefault" || first.AocName != "Total" {
		t.Fatalf("first row attribute combo = %q %q", first.AocName, first.AocID)
	}
	if first.Period != "2024" || first.Value != "" {
		t.Fatalf("first row period/value = %q %q", first.Period, first.Value)
	}

	deaths := rows[2]
	if deaths.Section != "Section B" || deaths.DataElementID != "de2" || deaths.CocID != "cocDefault" {
		t.Fatalf("deaths row = %+v", deaths)
	}
}

func TestGenerateSynthesizesDefaultSection(t *testing.T) {
	graph := &metadata.Graph{
		OrganisationUnits: []metadata.OrganisationUnit{{ID: "ou1", Name: "Hopital Central"}},
		DataSets: []metadata.Dataset{
			{ID: "ds2", Name: "Flat", DataSetElements: []metadata.DataSetElement{{DataElement: metadata.Ref{ID: "de2"}}}},
		},
		DataElements:         []metadata.DataElement{{ID: "de2", Name: "Deaths"}},
		CategoryOptionCombos: []metadata.CategoryOptionCombo{{ID: "cocDefault", Name: "default"}},
	}
	flat := metadata.NewIndex(zerolog.Nop())
	if ok, errs, _ := flat.Load(graph); !ok {
		t.Fatalf("metadata load failed: %v", errs)
	}
	gen := NewGenerator(flat, zerolog.Nop())

	rows, stats, err := gen.Generate(GeneratorConfig{
		OrgUnitIDs: []string{"ou1"},
		DatasetID:  "ds2",
		Period:     "202401",
		PeriodType: "Monthly",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(rows) != 1 || rows[0].Section != "Défaut" {
		t.Fatalf("rows = %+v", rows)
	}
	if stats.Sections != 0 {
		t.Fatalf("stats.Sections = %d", stats.Sections)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	gen := NewGenerator(testMetadata(t), zerolog.Nop())

	errs := gen.Validate(GeneratorConfig{
		OrgUnitIDs: []string{"ou1", "missing"},
		DatasetID:  "nope",
		Period:     "24",
		PeriodType: "Yearly",
	})
	if len(errs) != 3 {
		t.Fatalf("errors = %v", errs)
	}
}

func TestValidPeriod(t *testing.T) {
	valid := []struct{ period, kind string }{
		{"2024", "Yearly"},
		{"202412", "Monthly"},
		{"2024Q4", "Quarterly"},
		{"2024W5", "Weekly"},
		{"2024W53", "Weekly"},
	}
	for _, c := range valid {
		if !ValidPeriod(c.period, c.kind) {
			t.Fatalf("ValidPeriod(%q, %s) = false", c.period, c.kind)
		}
	}

	invalid := []struct{ period, kind string }{
		{"24", "Yearly"},
		{"2024", "Monthly"},
		{"202413", "Monthly"},
		{"2024Q5", "Quarterly"},
		{"2024X1", "Quarterly"},
		{"2024W54", "Weekly"},
		{"2024", "Biweekly"},
	}
	for _, c := range invalid {
		if ValidPeriod(c.period, c.kind) {
			t.Fatalf("ValidPeriod(%q, %s) = true", c.period, c.kind)
		}
	}
}
