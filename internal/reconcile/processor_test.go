package reconcile

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hsalifou/tcdbridge/internal/config"
	"github.com/hsalifou/tcdbridge/internal/excel"
	"github.com/hsalifou/tcdbridge/internal/metadata"
	"github.com/hsalifou/tcdbridge/internal/template"
)

func testMeta(t *testing.T) *metadata.Index {
	t.Helper()
	graph := &metadata.Graph{
		OrganisationUnits:    []metadata.OrganisationUnit{{ID: "ou1", Name: "Hopital General de Reference"}},
		DataSets:             []metadata.Dataset{{ID: "ds1", Name: "Consultations"}},
		DataElements:         []metadata.DataElement{{ID: "de1", Name: "Cases"}},
		CategoryOptionCombos: []metadata.CategoryOptionCombo{{ID: "cocDefault", Name: "default"}},
	}
	ix := metadata.NewIndex(zerolog.Nop())
	if ok, errs, _ := ix.Load(graph); !ok {
		t.Fatalf("metadata load failed: %v", errs)
	}
	return ix
}

func testMapping() *config.MappingConfig {
	cfg := &config.MappingConfig{
		EstablishmentPatterns: map[string]string{
			"HGR":   "hopital general",
			"GHOST": "no such place",
		},
		DataElements: map[string]config.DataElementMapping{
			"Consultations": {Section: "Section A", DataElement: "Cases"},
		},
	}
	config.ApplyMappingDefaults(cfg)
	return cfg
}

func templateRows() []template.Row {
	base := template.Row{
		Section:         "Section A",
		DataElementName: "Cases",
		DataElementID:   "de1",
		OrgUnitName:     "Hopital General de Reference",
		OrgUnitID:       "ou1",
		AocID:           "aocX",
		Period:          "2024",
	}
	f := base
	f.CocName = "F | [20-22["
	f.CocID = "cocF"
	m := base
	m.CocName = "M | [20-22["
	m.CocID = "cocM"
	return []template.Row{f, m}
}

func testSheet() *excel.Table {
	return &excel.Table{
		Sheet:   "TCD",
		Headers: []string{"NOM_ETAB", "GROUP_AGE", "SEXE", "INDICATEUR", "VALEUR"},
		Rows: [][]string{
			{"HGR", "[ 20 - 22 [", "F", "Consultations", "7"},
			{"", "", "M", "Consultations", "3"},
			{"Total HGR", "", "", "", "99"},
			{"HGR", "[20-22[", "F", "Consultations", "0"},
			{"XYZ", "[20-22[", "F", "Consultations", "5"},
			{"HGR", "[20-22[", "F", "Inconnu", "4"},
			{"HGR", "[25-30[", "F", "Consultations", "6"},
		},
	}
}

func newProcessor(t *testing.T, cfg *config.MappingConfig) *Processor {
	t.Helper()
	p := New(testMeta(t), cfg, zerolog.Nop())
	p.SetTemplateRows(templateRows())
	p.SetSheet(testSheet())
	return p
}

func TestProcessEndToEnd(t *testing.T) {
	p := newProcessor(t, testMapping())

	records, stats, err := p.Process("INDICATEUR", "2024")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	// Two resolvable rows: the explicit one and the merged-cell
	// continuation that fills establishment and age downward.
	if len(records) != 2 {
		t.Fatalf("records = %+v", records)
	}
	first := records[0]
	if first.DataElement != "de1" || first.OrgUnit != "ou1" || first.CategoryOptionCombo != "cocF" {
		t.Fatalf("first record = %+v", first)
	}
	if first.Value != "7" || first.Period != "2024" || first.AttributeOptionCombo != "aocX" {
		t.Fatalf("first record = %+v", first)
	}
	second := records[1]
	if second.CategoryOptionCombo != "cocM" || second.Value != "3" {
		t.Fatalf("second record = %+v", second)
	}

	// The "Total" subtotal row is dropped before counting.
	if stats.RowsProcessed != 6 {
		t.Fatalf("RowsProcessed = %d", stats.RowsProcessed)
	}
	if stats.ValuesEmitted != 2 {
		t.Fatalf("ValuesEmitted = %d", stats.ValuesEmitted)
	}
	if got := stats.UnmappedEstablishments["XYZ"]; got != 5 {
		t.Fatalf("UnmappedEstablishments = %v", stats.UnmappedEstablishments)
	}
	if got := stats.UnmappedDataElements["Inconnu"]; got != 4 {
		t.Fatalf("UnmappedDataElements = %v", stats.UnmappedDataElements)
	}
	if len(stats.Unresolved) != 1 {
		t.Fatalf("Unresolved = %+v", stats.Unresolved)
	}
	miss := stats.Unresolved[0]
	if miss.Value != 6 || miss.Coc != "25-30|F" || miss.Establishment != "HGR" {
		t.Fatalf("Unresolved[0] = %+v", miss)
	}
}

func TestProcessZeroPolicy(t *testing.T) {
	cfg := testMapping()
	cfg.EmitZeroValues = true
	p := newProcessor(t, cfg)

	records, _, err := p.Process("INDICATEUR", "2024")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	// The zero row now counts as an explicit zero report.
	if len(records) != 3 {
		t.Fatalf("records = %d", len(records))
	}
	if records[2].Value != "0" {
		t.Fatalf("zero record = %+v", records[2])
	}
}

func TestProcessSkipsNegativeAndNonFiniteValues(t *testing.T) {
	p := New(testMeta(t), testMapping(), zerolog.Nop())
	p.SetTemplateRows(templateRows())
	p.SetSheet(&excel.Table{
		Sheet:   "TCD",
		Headers: []string{"NOM_ETAB", "GROUP_AGE", "SEXE", "INDICATEUR", "VALEUR"},
		Rows: [][]string{
			{"HGR", "[20-22[", "F", "Consultations", "7"},
			{"HGR", "[20-22[", "M", "Consultations", "-5"},
			{"HGR", "[20-22[", "M", "Consultations", "NaN"},
			{"HGR", "[20-22[", "M", "Consultations", "Inf"},
		},
	})

	records, stats, err := p.Process("INDICATEUR", "2024")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	// Only the first row is a usable value; the others must not reach
	// the payload in any form.
	if len(records) != 1 {
		t.Fatalf("records = %+v", records)
	}
	if records[0].Value != "7" {
		t.Fatalf("record = %+v", records[0])
	}
	if stats.RowsProcessed != 4 || stats.ValuesEmitted != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestProcessPreconditions(t *testing.T) {
	cfg := testMapping()

	p := New(testMeta(t), cfg, zerolog.Nop())
	p.SetSheet(testSheet())
	if _, _, err := p.Process("INDICATEUR", "2024"); !errors.Is(err, ErrTemplateNotLoaded) {
		t.Fatalf("err = %v", err)
	}

	p = New(testMeta(t), cfg, zerolog.Nop())
	p.SetTemplateRows(templateRows())
	if _, _, err := p.Process("INDICATEUR", "2024"); !errors.Is(err, ErrSheetNotLoaded) {
		t.Fatalf("err = %v", err)
	}
}

func TestProcessMissingColumnIsAnError(t *testing.T) {
	p := newProcessor(t, testMapping())
	if _, _, err := p.Process("PAS_LA", "2024"); err == nil {
		t.Fatal("expected error for missing data element column")
	}
}

func TestBuildEstablishmentMappingWarnsOnUnmatchedPattern(t *testing.T) {
	p := newProcessor(t, testMapping())
	if err := p.BuildEstablishmentMapping(); err != nil {
		t.Fatalf("BuildEstablishmentMapping: %v", err)
	}

	warnings := p.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestStatsReportCapsUnresolvedPreview(t *testing.T) {
	stats := NewStats()
	for i := 0; i < 25; i++ {
		stats.Unresolved = append(stats.Unresolved, UnresolvedCombination{Key: "k", Value: i})
	}

	report := stats.Report()
	if len(report.Unresolved) != UnresolvedPreviewLimit {
		t.Fatalf("preview = %d", len(report.Unresolved))
	}
	if report.UnresolvedTotal != 25 {
		t.Fatalf("total = %d", report.UnresolvedTotal)
	}
}
