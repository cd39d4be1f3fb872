// =============================================================================
// TCD Bridge - Template Generator
// =============================================================================
//
// The generator expands a (dataset, organisations, period) selection into the
// full set of data-entry rows: one row per organisation x section x data
// element x category option combo x attribute option combo. Datasets without
// sections get one synthesized "Défaut" section covering every element.
//
// =============================================================================

package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hsalifou/tcdbridge/internal/metadata"
)

// defaultSectionName labels the synthesized section of sectionless datasets.
const defaultSectionName = "Défaut"

// GeneratorConfig selects what to generate.
type GeneratorConfig struct {
	OrgUnitIDs []string
	DatasetID  string
	Period     string
	PeriodType string // Yearly, Monthly, Quarterly or Weekly
}

// GenerateStats summarizes one generation run.
type GenerateStats struct {
	DatasetName  string `json:"dataset_name"`
	OrgUnits     int    `json:"org_units"`
	Sections     int    `json:"sections"`
	DataElements int    `json:"data_elements"`
	TotalRows    int    `json:"total_rows"`
}

// Generator builds template rows from an indexed metadata graph.
type Generator struct {
	meta *metadata.Index
	log  zerolog.Logger
}

// NewGenerator creates a generator over the metadata index.
func NewGenerator(meta *metadata.Index, log zerolog.Logger) *Generator {
	return &Generator{meta: meta, log: log}
}

// Validate checks the configuration before generation and returns every
// problem found, not only the first.
func (g *Generator) Validate(cfg GeneratorConfig) []string {
	var errors []string

	if len(cfg.OrgUnitIDs) == 0 {
		errors = append(errors, "aucune organisation sélectionnée")
	}
	for _, id := range cfg.OrgUnitIDs {
		if _, ok := g.meta.OrgUnit(id); !ok {
			errors = append(errors, fmt.Sprintf("organisation %s introuvable", id))
		}
	}
	if _, ok := g.meta.Dataset(cfg.DatasetID); !ok {
		errors = append(errors, fmt.Sprintf("dataset %s introuvable", cfg.DatasetID))
	}
	if cfg.Period == "" {
		errors = append(errors, "période manquante")
	} else if !ValidPeriod(cfg.Period, cfg.PeriodType) {
		errors = append(errors, fmt.Sprintf("format de période invalide pour le type %s", cfg.PeriodType))
	}

	return errors
}

// Generate expands the configuration into template rows.
func (g *Generator) Generate(cfg GeneratorConfig) ([]Row, *GenerateStats, error) {
	dataset, ok := g.meta.Dataset(cfg.DatasetID)
	if !ok {
		return nil, nil, fmt.Errorf("dataset %s introuvable", cfg.DatasetID)
	}

	g.log.Info().Str("dataset", cfg.DatasetID).Str("period", cfg.Period).Msg("generating template")

	stats := &GenerateStats{
		DatasetName: dataset.Name,
		OrgUnits:    len(cfg.OrgUnitIDs),
	}

	sections := g.meta.SectionsForDataset(cfg.DatasetID)
	stats.Sections = len(sections)
	if len(sections) == 0 {
		g.log.Info().Str("dataset", cfg.DatasetID).Msg("dataset has no sections, using the implicit default section")
		sections = []metadata.Section{{ID: "", Name: defaultSectionName}}
	}

	aocs := g.datasetAocs(dataset)

	var rows []Row
	for _, orgID := range cfg.OrgUnitIDs {
		org, ok := g.meta.OrgUnit(orgID)
		if !ok {
			g.log.Warn().Str("org_unit", orgID).Msg("organisation not in metadata, skipped")
			continue
		}

		for _, section := range sections {
			for _, deID := range g.sectionElements(dataset, section) {
				de, ok := g.meta.DataElement(deID)
				if !ok {
					g.log.Warn().Str("data_element", deID).Msg("data element not in metadata, skipped")
					continue
				}
				stats.DataElements++

				for _, coc := range g.elementCocs(de) {
					for _, aoc := range aocs {
						rows = append(rows, Row{
							Section:         section.Name,
							DataElementName: de.Name,
							DataElementID:   de.ID,
							OrgUnitName:     org.Name,
							OrgUnitCode:     org.Code,
							OrgUnitID:       org.ID,
							CocName:         g.meta.CocDisplayName(coc.ID),
							CocID:           coc.ID,
							AocName:         g.meta.CocDisplayName(aoc.ID),
							AocID:           aoc.ID,
							Period:          cfg.Period,
						})
						stats.TotalRows++
					}
				}
			}
		}
	}

	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("aucune ligne générée pour le dataset %s", cfg.DatasetID)
	}

	g.log.Info().
		Int("rows", stats.TotalRows).
		Int("org_units", stats.OrgUnits).
		Int("sections", stats.Sections).
		Msg("template generated")
	return rows, stats, nil
}

// sectionElements lists the data element ids of one section. The synthesized
// default section covers the whole dataset.
func (g *Generator) sectionElements(dataset *metadata.Dataset, section metadata.Section) []string {
	var ids []string
	if section.ID == "" {
		for _, dse := range dataset.DataSetElements {
			if dse.DataElement.ID != "" {
				ids = append(ids, dse.DataElement.ID)
			}
		}
		return ids
	}
	for _, ref := range section.DataElements {
		if ref.ID != "" {
			ids = append(ids, ref.ID)
		}
	}
	return ids
}

// elementCocs returns the combos of a data element's category combo, falling
// back to the default combo when the element has none or the combo is empty.
func (g *Generator) elementCocs(de *metadata.DataElement) []metadata.CategoryOptionCombo {
	if de.CategoryCombo != nil && de.CategoryCombo.ID != "" {
		if cocs := g.meta.CocsForCombo(de.CategoryCombo.ID); len(cocs) > 0 {
			return cocs
		}
	}
	return []metadata.CategoryOptionCombo{{ID: g.meta.DefaultCocID(), Name: metadata.DefaultCocName}}
}

// datasetAocs returns the attribute option combos of the dataset's attribute
// category combo, defaulting to the graph's default combo.
func (g *Generator) datasetAocs(dataset *metadata.Dataset) []metadata.CategoryOptionCombo {
	ccID := ""
	if dataset.CategoryCombo != nil {
		ccID = dataset.CategoryCombo.ID
	}
	if ccID == "" && dataset.AttributeCategoryCombo != nil {
		ccID = dataset.AttributeCategoryCombo.ID
	}
	if ccID != "" {
		if cocs := g.meta.CocsForCombo(ccID); len(cocs) > 0 {
			return cocs
		}
	}
	return []metadata.CategoryOptionCombo{{ID: g.meta.DefaultCocID(), Name: metadata.DefaultCocName}}
}

// ValidPeriod checks a period string against its declared period type.
// Accepted shapes: "2024" (Yearly), "202401" (Monthly), "2024Q1" (Quarterly)
// and "2024W5" (Weekly).
func ValidPeriod(period, periodType string) bool {
	switch periodType {
	case "Yearly":
		return len(period) == 4 && allDigits(period)

	case "Monthly":
		if len(period) != 6 || !allDigits(period) {
			return false
		}
		year, _ := strconv.Atoi(period[:4])
		month, _ := strconv.Atoi(period[4:6])
		return month >= 1 && month <= 12 && year > 1900

	case "Quarterly":
		if len(period) != 6 || period[4] != 'Q' {
			return false
		}
		return allDigits(period[:4]) && period[5] >= '1' && period[5] <= '4'

	case "Weekly":
		year, week, ok := strings.Cut(period, "W")
		if !ok || !allDigits(year) || !allDigits(week) {
			return false
		}
		n, _ := strconv.Atoi(week)
		return n >= 1 && n <= 53

	default:
		return false
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
