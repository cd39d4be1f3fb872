// =============================================================================
// TCD Bridge - Reconciliation Processor
// =============================================================================
//
// The processor drives one (template, TCD sheet) pair through reconciliation:
//
//   1. Loaded               - template rows and TCD sheet read into memory
//   2. EstablishmentsMapped - acronym -> exact template organisation name
//   3. IndexBuilt           - reconciliation-key reverse map over the template
//   4. Reconciled           - records plus statistics
//
// Pivot exports are messy in three specific ways the row loop compensates
// for: subtotal rows labeled "Total", merged cells that read back as blanks
// (fixed by forward fill), and the value always sitting in the rightmost
// column whatever its header says.
//
// Nothing at row level is fatal. Process only errors before any row is
// touched: precondition violations, missing sheet columns, or a rejected
// index build. The call writes nowhere; persistence belongs to the caller.
//
// =============================================================================

package reconcile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hsalifou/tcdbridge/internal/config"
	"github.com/hsalifou/tcdbridge/internal/excel"
	"github.com/hsalifou/tcdbridge/internal/metadata"
	"github.com/hsalifou/tcdbridge/internal/normalize"
	"github.com/hsalifou/tcdbridge/internal/payload"
	"github.com/hsalifou/tcdbridge/internal/template"
)

// Precondition violations, the only fatal paths of a run.
var (
	ErrTemplateNotLoaded = errors.New("template not loaded")
	ErrSheetNotLoaded    = errors.New("TCD sheet not loaded")
)

// progressEvery is the emission interval of progress log lines.
const progressEvery = 100

// Processor reconciles one TCD sheet against one destination template.
// A Processor is single-use state; concurrent runs need their own instance.
type Processor struct {
	meta *metadata.Index
	cfg  *config.MappingConfig
	log  zerolog.Logger

	templateRows []template.Row
	sheet        *excel.Table

	index          *template.Index
	establishments map[string]string
	warnings       []string
}

// New creates a processor over an indexed metadata graph and a mapping
// configuration.
func New(meta *metadata.Index, cfg *config.MappingConfig, log zerolog.Logger) *Processor {
	return &Processor{meta: meta, cfg: cfg, log: log}
}

// =============================================================================
// LOADING
// =============================================================================

// LoadTemplate reads the destination template workbook from disk.
func (p *Processor) LoadTemplate(path string) error {
	headerRow := 5
	if p.cfg.TemplateHeaderRow != nil {
		headerRow = *p.cfg.TemplateHeaderRow
	}
	table, err := excel.ReadSheet(path, "", headerRow)
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}
	rows, err := template.RowsFromTable(table)
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}
	p.SetTemplateRows(rows)
	p.log.Info().Str("file", path).Int("rows", len(rows)).Msg("template loaded")
	return nil
}

// SetTemplateRows injects template rows directly, bypassing the workbook
// reader. Generated rows and tests use this path.
func (p *Processor) SetTemplateRows(rows []template.Row) {
	p.templateRows = rows
	p.index = nil
	p.establishments = nil
}

// LoadSheet reads one sheet of a TCD workbook from disk. An empty sheet
// name selects the first sheet.
func (p *Processor) LoadSheet(path, sheet string) error {
	table, err := excel.ReadSheet(path, sheet, p.cfg.SheetHeaderRow)
	if err != nil {
		return fmt.Errorf("failed to load TCD sheet: %w", err)
	}
	p.sheet = table
	p.log.Info().Str("file", path).Str("sheet", table.Sheet).Int("rows", len(table.Rows)).Msg("TCD sheet loaded")
	return nil
}

// LoadSheetReader reads a TCD sheet from an in-memory workbook.
func (p *Processor) LoadSheetReader(r io.Reader, sheet string) error {
	table, err := excel.ReadSheetReader(r, sheet, p.cfg.SheetHeaderRow)
	if err != nil {
		return fmt.Errorf("failed to load TCD sheet: %w", err)
	}
	p.sheet = table
	return nil
}

// SetSheet injects an already-read sheet.
func (p *Processor) SetSheet(t *excel.Table) { p.sheet = t }

// Warnings returns the accumulated non-fatal observations, currently the
// establishment patterns that matched nothing.
func (p *Processor) Warnings() []string { return p.warnings }

// =============================================================================
// MAPPING AND INDEXING
// =============================================================================

// BuildEstablishmentMapping resolves each configured acronym to the exact
// template organisation name whose spelling contains the configured pattern,
// case-insensitively. Patterns without a match become warnings.
func (p *Processor) BuildEstablishmentMapping() error {
	if p.templateRows == nil {
		return ErrTemplateNotLoaded
	}

	names := make(map[string]string)
	for i := range p.templateRows {
		name := strings.TrimSpace(p.templateRows[i].OrgUnitName)
		if name != "" {
			names[strings.ToLower(name)] = name
		}
	}
	// Deterministic scan order regardless of map iteration.
	lowered := make([]string, 0, len(names))
	for low := range names {
		lowered = append(lowered, low)
	}
	sort.Strings(lowered)

	acronyms := make([]string, 0, len(p.cfg.EstablishmentPatterns))
	for acronym := range p.cfg.EstablishmentPatterns {
		acronyms = append(acronyms, acronym)
	}
	sort.Strings(acronyms)

	p.establishments = make(map[string]string, len(acronyms))
	for _, acronym := range acronyms {
		pattern := strings.ToLower(p.cfg.EstablishmentPatterns[acronym])
		for _, low := range lowered {
			if strings.Contains(low, pattern) {
				p.establishments[acronym] = names[low]
				p.log.Debug().Str("acronym", acronym).Str("org_unit", names[low]).Msg("establishment mapped")
				break
			}
		}
		if _, ok := p.establishments[acronym]; !ok {
			p.warnings = append(p.warnings, fmt.Sprintf("establishment pattern %q matched no template organisation", acronym))
		}
	}

	p.log.Info().Int("mapped", len(p.establishments)).Int("patterns", len(acronyms)).Msg("establishment mapping built")
	return nil
}

// BuildIndex builds the template search index under the configured
// collision policy.
func (p *Processor) BuildIndex() error {
	if p.templateRows == nil {
		return ErrTemplateNotLoaded
	}
	policy, err := template.ParseCollisionPolicy(p.cfg.CollisionPolicy)
	if err != nil {
		return err
	}
	index, err := template.NewIndex(p.templateRows, policy, p.log)
	if err != nil {
		return fmt.Errorf("failed to build template index: %w", err)
	}
	p.index = index
	return nil
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// Process reconciles the loaded sheet against the loaded template.
//
// PARAMETERS:
//   - dataElementColumn: the TCD column carrying the raw data-element label.
//   - period: the period stamped on every emitted record.
//
// RETURNS:
//   - The emitted records, the run statistics, and an error only for
//     precondition violations. Row-level failures land in the statistics.
func (p *Processor) Process(dataElementColumn, period string) ([]payload.Record, *Stats, error) {
	if p.templateRows == nil {
		return nil, nil, ErrTemplateNotLoaded
	}
	if p.sheet == nil {
		return nil, nil, ErrSheetNotLoaded
	}
	if p.establishments == nil {
		if err := p.BuildEstablishmentMapping(); err != nil {
			return nil, nil, err
		}
	}
	if p.index == nil {
		if err := p.BuildIndex(); err != nil {
			return nil, nil, err
		}
	}

	estCol, ok := p.sheet.Column(p.cfg.EstablishmentColumn)
	if !ok {
		return nil, nil, fmt.Errorf("TCD sheet %s: missing column %q", p.sheet.Sheet, p.cfg.EstablishmentColumn)
	}
	deCol, ok := p.sheet.Column(dataElementColumn)
	if !ok {
		return nil, nil, fmt.Errorf("TCD sheet %s: missing column %q", p.sheet.Sheet, dataElementColumn)
	}
	catCols := make([]int, len(p.cfg.CategoryColumns))
	for i, name := range p.cfg.CategoryColumns {
		col, ok := p.sheet.Column(name)
		if !ok {
			return nil, nil, fmt.Errorf("TCD sheet %s: missing category column %q", p.sheet.Sheet, name)
		}
		catCols[i] = col
	}
	valueCol := p.sheet.ValueColumn()

	defaultAoc := p.meta.DefaultCocID()
	stats := NewStats()
	var records []payload.Record

	knownLabels := make([]string, 0, len(p.cfg.DataElements))
	for l := range p.cfg.DataElements {
		knownLabels = append(knownLabels, l)
	}
	sort.Strings(knownLabels)

	// Forward-fill state for the establishment and category columns,
	// compensating for merged cells.
	estFill := ""
	catFill := make([]string, len(catCols))

	for row := range p.sheet.Rows {
		rawEst := p.sheet.Cell(row, estCol)

		// Subtotal rows are spreadsheet artifacts. Dropped before fill so
		// their label never propagates downward.
		if strings.Contains(strings.ToLower(rawEst), "total") {
			continue
		}
		stats.RowsProcessed++

		if rawEst != "" {
			estFill = rawEst
		}
		est := estFill

		for i, col := range catCols {
			if v := p.sheet.Cell(row, col); v != "" {
				catFill[i] = v
			}
		}

		rawValue := p.sheet.Cell(row, valueCol)
		if rawValue == "" {
			continue
		}
		value, err := strconv.ParseFloat(strings.ReplaceAll(rawValue, ",", "."), 64)
		if err != nil {
			p.log.Warn().Int("row", row).Str("value", rawValue).Msg("non-numeric value cell, row skipped")
			continue
		}
		// ParseFloat accepts "NaN" and "Inf" spellings; neither belongs in
		// a data value, and negatives are not accepted by the template.
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			p.log.Warn().Int("row", row).Str("value", rawValue).Msg("negative or non-finite value cell, row skipped")
			continue
		}
		if value == 0 && !p.cfg.EmitZeroValues {
			continue
		}
		intValue := int(value)

		orgName, ok := p.establishments[est]
		if !ok {
			stats.UnmappedEstablishments[est] += intValue
			continue
		}

		label := p.sheet.Cell(row, deCol)
		mapping, ok := p.cfg.DataElements[label]
		if !ok {
			if _, seen := stats.UnmappedDataElements[label]; !seen {
				if hints := normalize.Suggest(label, knownLabels, 3); len(hints) > 0 {
					p.log.Debug().Str("label", label).Strs("close_to", hints).Msg("unmapped data element label")
				}
			}
			stats.UnmappedDataElements[label] += intValue
			continue
		}

		cocNorm, ok := p.compositeKey(catFill)
		if !ok {
			stats.IncompleteCategoryRows++
			continue
		}

		key := template.Key(mapping.Section, mapping.DataElement, orgName, cocNorm)
		trow, ok := p.index.Lookup(key)
		if !ok {
			stats.Unresolved = append(stats.Unresolved, UnresolvedCombination{
				Key:           key,
				Value:         intValue,
				Establishment: est,
				DataElement:   label,
				Coc:           cocNorm,
			})
			continue
		}

		aoc := trow.AocID
		if aoc == "" {
			aoc = defaultAoc
		}
		records = append(records, payload.Record{
			DataElement:          trow.DataElementID,
			Period:               period,
			OrgUnit:              trow.OrgUnitID,
			CategoryOptionCombo:  trow.CocID,
			AttributeOptionCombo: aoc,
			Value:                strconv.Itoa(intValue),
		})
		stats.ValuesEmitted++

		if stats.ValuesEmitted%progressEvery == 0 {
			p.log.Info().Int("emitted", stats.ValuesEmitted).Msg("reconciliation progress")
		}
	}

	p.log.Info().
		Int("rows", stats.RowsProcessed).
		Int("emitted", stats.ValuesEmitted).
		Int("unmapped_establishments", len(stats.UnmappedEstablishments)).
		Int("unmapped_data_elements", len(stats.UnmappedDataElements)).
		Int("unresolved", len(stats.Unresolved)).
		Msg("reconciliation finished")

	return records, stats, nil
}

// compositeKey normalizes the filled category cells into the sorted,
// pipe-joined composite key. ok=false when any cell is still blank.
func (p *Processor) compositeKey(filled []string) (string, bool) {
	tokens := make([]string, 0, len(filled))
	for i, raw := range filled {
		token, ok := normalize.GenericValue(raw, p.cfg.CategoryColumns[i], p.cfg.ValueRemaps)
		if !ok || token == "" {
			return "", false
		}
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, "|"), true
}
