// =============================================================================
// TCD Bridge - Metadata Index
// =============================================================================
//
// The Index turns a decoded metadata graph into the O(1) lookup structures
// the rest of the engine relies on:
//   - id -> entity maps for every collection
//   - trimmed lower-cased name/code -> id reverse maps
//   - parent -> children adjacency for the organisation forest
//   - two category-option-combo lookup tables: an exact composite-name key
//     and an order-independent fuzzy key
//
// The index is built once per graph and treated as read-only afterwards.
// Concurrent reconciliation runs must each hold their own Index.
//
// Duplicate names and duplicate fuzzy keys follow a documented
// last-write-wins policy: the graph is processed in its original order and
// the later entry replaces the earlier one.
//
// =============================================================================

package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultCocName is the display name the platform gives the fallback combo.
const DefaultCocName = "default"

// fuzzyTokenRe splits a combo display name on the separators seen in real
// exports: pipe, comma, tab and newline.
var fuzzyTokenRe = regexp.MustCompile(`[|,\t\n]+`)

// Index holds the lookup structures built from one metadata graph.
type Index struct {
	graph *Graph
	log   zerolog.Logger

	orgUnits    map[string]*OrganisationUnit
	orgNameToID map[string]string
	orgCodeToID map[string]string
	orgChildren map[string][]string

	datasets []Dataset

	dataElements map[string]*DataElement
	deNameToID   map[string]string

	cocs       map[string]*CategoryOptionCombo
	catOptions map[string]string
	catCombos  map[string]*CategoryCombo
	categories map[string]*Category

	// cocLookup maps the exact composite key (sorted lower option names,
	// " | "-joined) to a combo id; cocVariants maps the fuzzy key.
	cocLookup   map[string]string
	cocVariants map[string]string

	orgUnitLevels []OrgUnitLevel
	orgUnitGroups map[string]*OrgUnitGroup
	deGroups      map[string]*DataElementGroup

	sections          map[string]*Section
	sectionsByDataset map[string][]Section
	deToSection       map[string]string
}

// NewIndex creates an empty index. Load must be called before any lookup.
func NewIndex(log zerolog.Logger) *Index {
	return &Index{log: log}
}

// =============================================================================
// LOADING
// =============================================================================

// LoadFile reads a metadata JSON document from disk and builds the index.
func (ix *Index) LoadFile(path string) (bool, []string, []string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, []string{fmt.Sprintf("metadata file %s: %v", path, err)}, nil
	}
	var graph Graph
	if err := json.Unmarshal(data, &graph); err != nil {
		return false, []string{fmt.Sprintf("metadata JSON: %v", err)}, nil
	}
	return ix.Load(&graph)
}

// Load builds every lookup structure from the graph in a single pass per
// collection. Missing core collections are reported as errors but do not
// abort parsing of what is present; the caller decides whether to proceed.
func (ix *Index) Load(graph *Graph) (bool, []string, []string) {
	var errors, warnings []string

	ix.graph = graph
	ix.orgUnits = make(map[string]*OrganisationUnit, len(graph.OrganisationUnits))
	ix.orgNameToID = make(map[string]string, len(graph.OrganisationUnits))
	ix.orgCodeToID = make(map[string]string)
	ix.orgChildren = make(map[string][]string)
	ix.dataElements = make(map[string]*DataElement, len(graph.DataElements))
	ix.deNameToID = make(map[string]string, len(graph.DataElements))
	ix.cocs = make(map[string]*CategoryOptionCombo, len(graph.CategoryOptionCombos))
	ix.catOptions = make(map[string]string, len(graph.CategoryOptions))
	ix.catCombos = make(map[string]*CategoryCombo, len(graph.CategoryCombos))
	ix.categories = make(map[string]*Category, len(graph.Categories))
	ix.cocLookup = make(map[string]string, len(graph.CategoryOptionCombos))
	ix.cocVariants = make(map[string]string, len(graph.CategoryOptionCombos))
	ix.orgUnitGroups = make(map[string]*OrgUnitGroup, len(graph.OrganisationUnitGroups))
	ix.deGroups = make(map[string]*DataElementGroup, len(graph.DataElementGroups))
	ix.sections = make(map[string]*Section, len(graph.Sections))
	ix.sectionsByDataset = make(map[string][]Section)
	ix.deToSection = make(map[string]string)

	for i := range graph.OrganisationUnits {
		ou := &graph.OrganisationUnits[i]
		ix.orgUnits[ou.ID] = ou
		ix.orgNameToID[normKey(ou.Name)] = ou.ID
		if ou.Code != "" {
			ix.orgCodeToID[normKey(ou.Code)] = ou.ID
		}
		if ou.Parent != nil && ou.Parent.ID != "" {
			ix.orgChildren[ou.Parent.ID] = append(ix.orgChildren[ou.Parent.ID], ou.ID)
		}
	}

	ix.datasets = graph.DataSets

	for i := range graph.DataElements {
		de := &graph.DataElements[i]
		ix.dataElements[de.ID] = de
		// Name collisions follow last-write-wins; the later element owns
		// the reverse mapping.
		ix.deNameToID[normKey(de.Name)] = de.ID
	}

	for i := range graph.CategoryOptions {
		co := &graph.CategoryOptions[i]
		ix.catOptions[co.ID] = co.Name
	}
	for i := range graph.CategoryCombos {
		cc := &graph.CategoryCombos[i]
		ix.catCombos[cc.ID] = cc
	}
	for i := range graph.Categories {
		cat := &graph.Categories[i]
		ix.categories[cat.ID] = cat
	}

	// COC lookup tables. Each combo is processed exactly once, in graph
	// order, so duplicate keys resolve to the last occurrence.
	for i := range graph.CategoryOptionCombos {
		coc := &graph.CategoryOptionCombos[i]
		ix.cocs[coc.ID] = coc

		if coc.Name == DefaultCocName {
			ix.cocLookup[DefaultCocName] = coc.ID
			ix.cocVariants[DefaultCocName] = coc.ID
			continue
		}

		names := make([]string, 0, len(coc.CategoryOptions))
		for _, ref := range coc.CategoryOptions {
			names = append(names, ix.catOptions[ref.ID])
		}
		sort.Strings(names)
		if key := strings.ToLower(strings.Join(names, " | ")); key != "" {
			ix.cocLookup[key] = coc.ID
		}

		if key := fuzzyKey(coc.Name); key != "" {
			ix.cocVariants[key] = coc.ID
			ix.log.Debug().Str("variant", key).Str("coc", coc.ID).Msg("coc variant indexed")
		}
	}

	ix.orgUnitLevels = append([]OrgUnitLevel(nil), graph.OrganisationUnitLevels...)
	sort.SliceStable(ix.orgUnitLevels, func(i, j int) bool {
		return ix.orgUnitLevels[i].Level < ix.orgUnitLevels[j].Level
	})

	for i := range graph.OrganisationUnitGroups {
		g := &graph.OrganisationUnitGroups[i]
		ix.orgUnitGroups[g.ID] = g
	}
	for i := range graph.DataElementGroups {
		g := &graph.DataElementGroups[i]
		ix.deGroups[g.ID] = g
	}

	for i := range graph.Sections {
		sec := &graph.Sections[i]
		ix.sections[sec.ID] = sec
		if sec.DataSet == nil || sec.DataSet.ID == "" {
			continue
		}
		ix.sectionsByDataset[sec.DataSet.ID] = append(ix.sectionsByDataset[sec.DataSet.ID], *sec)
		for _, ref := range sec.DataElements {
			if ref.ID != "" {
				ix.deToSection[ref.ID] = sec.ID
			}
		}
	}
	for dsID := range ix.sectionsByDataset {
		secs := ix.sectionsByDataset[dsID]
		sort.SliceStable(secs, func(i, j int) bool { return secs[i].SortOrder < secs[j].SortOrder })
		ix.sectionsByDataset[dsID] = secs
	}

	errors = append(errors, ix.structureErrors()...)
	for parentID := range ix.orgChildren {
		if _, ok := ix.orgUnits[parentID]; !ok {
			// The children still surface as extra roots of the tree.
			warnings = append(warnings, fmt.Sprintf("parent organisation %s not in graph", parentID))
		}
	}
	if _, ok := ix.cocLookup[DefaultCocName]; !ok {
		warnings = append(warnings, "no default category option combo in graph")
	}

	ix.log.Info().
		Int("org_units", len(ix.orgUnits)).
		Int("datasets", len(ix.datasets)).
		Int("data_elements", len(ix.dataElements)).
		Int("cocs", len(ix.cocs)).
		Msg("metadata indexed")

	return len(errors) == 0, errors, warnings
}

// structureErrors checks the invariants the caller must see before trusting
// the index: the core collections exist.
func (ix *Index) structureErrors() []string {
	var errors []string
	if len(ix.orgUnits) == 0 {
		errors = append(errors, "no organisation units in graph")
	}
	if len(ix.datasets) == 0 {
		errors = append(errors, "no datasets in graph")
	}
	if len(ix.dataElements) == 0 {
		errors = append(errors, "no data elements in graph")
	}
	return errors
}

// =============================================================================
// LOOKUPS
// =============================================================================

// OrgUnit returns an organisation unit by id.
func (ix *Index) OrgUnit(id string) (*OrganisationUnit, bool) {
	ou, ok := ix.orgUnits[id]
	return ou, ok
}

// OrgUnitIDByName resolves a trimmed, case-insensitive organisation name.
func (ix *Index) OrgUnitIDByName(name string) (string, bool) {
	id, ok := ix.orgNameToID[normKey(name)]
	return id, ok
}

// OrgUnitIDByCode resolves a trimmed, case-insensitive organisation code.
func (ix *Index) OrgUnitIDByCode(code string) (string, bool) {
	id, ok := ix.orgCodeToID[normKey(code)]
	return id, ok
}

// DataElement returns a data element by id.
func (ix *Index) DataElement(id string) (*DataElement, bool) {
	de, ok := ix.dataElements[id]
	return de, ok
}

// DataElementIDByName resolves a trimmed, case-insensitive element name.
func (ix *Index) DataElementIDByName(name string) (string, bool) {
	id, ok := ix.deNameToID[normKey(name)]
	return id, ok
}

// Datasets returns the datasets in graph order.
func (ix *Index) Datasets() []Dataset { return ix.datasets }

// Dataset returns a dataset by id.
func (ix *Index) Dataset(id string) (*Dataset, bool) {
	for i := range ix.datasets {
		if ix.datasets[i].ID == id {
			return &ix.datasets[i], true
		}
	}
	return nil, false
}

// SectionsForDataset returns the dataset's sections ordered by sortOrder.
// The slice is empty when the dataset has none; callers synthesize the
// implicit default section in that case.
func (ix *Index) SectionsForDataset(datasetID string) []Section {
	return ix.sectionsByDataset[datasetID]
}

// CategoryCombo returns a category combo by id.
func (ix *Index) CategoryCombo(id string) (*CategoryCombo, bool) {
	cc, ok := ix.catCombos[id]
	return cc, ok
}

// Category returns a category by id.
func (ix *Index) Category(id string) (*Category, bool) {
	cat, ok := ix.categories[id]
	return cat, ok
}

// CategoryOptionName returns the display name of a category option.
func (ix *Index) CategoryOptionName(id string) string { return ix.catOptions[id] }

// CocsForCombo returns every category option combo belonging to the combo,
// in graph order. An unknown combo id yields an empty slice.
func (ix *Index) CocsForCombo(comboID string) []CategoryOptionCombo {
	var out []CategoryOptionCombo
	for i := range ix.graph.CategoryOptionCombos {
		coc := &ix.graph.CategoryOptionCombos[i]
		if coc.CategoryCombo != nil && coc.CategoryCombo.ID == comboID {
			out = append(out, *coc)
		}
	}
	return out
}

// DefaultCocID returns the id of the graph's "default" combo, or "" when the
// graph carries none (reported as a load warning).
func (ix *Index) DefaultCocID() string { return ix.cocLookup[DefaultCocName] }

// CocDisplayName reconstructs the human-readable label of a combo: its
// sorted option names " | "-joined, or "Total" for the default combo.
func (ix *Index) CocDisplayName(id string) string {
	coc, ok := ix.cocs[id]
	if !ok {
		return "Inconnu"
	}
	if coc.Name == DefaultCocName {
		return "Total"
	}
	names := make([]string, 0, len(coc.CategoryOptions))
	for _, ref := range coc.CategoryOptions {
		names = append(names, ix.catOptions[ref.ID])
	}
	if len(names) == 0 {
		return "Inconnu"
	}
	sort.Strings(names)
	return strings.Join(names, " | ")
}

// CocIDFuzzy resolves a combo label to an id. The exact composite key is
// tried first, then the order-independent fuzzy key. A miss is routine and
// returns ok=false, never an error.
func (ix *Index) CocIDFuzzy(label string) (string, bool) {
	if strings.TrimSpace(label) == "" {
		return "", false
	}

	if id, ok := ix.cocLookup[matchText(label)]; ok {
		return id, true
	}

	key := fuzzyKey(label)
	if id, ok := ix.cocVariants[key]; ok {
		ix.log.Debug().Str("label", label).Str("variant", key).Msg("coc resolved via fuzzy key")
		return id, true
	}
	return "", false
}

// =============================================================================
// GROUPS AND LEVELS
// =============================================================================

// OrgUnitLevels returns the hierarchy levels sorted by depth.
func (ix *Index) OrgUnitLevels() []OrgUnitLevel { return ix.orgUnitLevels }

// OrgUnitsByGroup returns the member organisation units of a group.
func (ix *Index) OrgUnitsByGroup(groupID string) []*OrganisationUnit {
	group, ok := ix.orgUnitGroups[groupID]
	if !ok {
		return nil
	}
	out := make([]*OrganisationUnit, 0, len(group.OrganisationUnits))
	for _, ref := range group.OrganisationUnits {
		if ou, ok := ix.orgUnits[ref.ID]; ok {
			out = append(out, ou)
		}
	}
	return out
}

// OrgUnitsByLevel returns all units at the given hierarchy depth.
func (ix *Index) OrgUnitsByLevel(level int) []*OrganisationUnit {
	var out []*OrganisationUnit
	for _, ou := range ix.orgUnits {
		if ou.Level == level {
			out = append(out, ou)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DataElementsByGroup returns the member data elements of a group.
func (ix *Index) DataElementsByGroup(groupID string) []*DataElement {
	group, ok := ix.deGroups[groupID]
	if !ok {
		return nil
	}
	out := make([]*DataElement, 0, len(group.DataElements))
	for _, ref := range group.DataElements {
		if de, ok := ix.dataElements[ref.ID]; ok {
			out = append(out, de)
		}
	}
	return out
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats summarizes the indexed collections for reporting.
type Stats struct {
	OrgUnits          int `json:"org_units"`
	Datasets          int `json:"data_sets"`
	DataElements      int `json:"data_elements"`
	CategoryOptCombos int `json:"category_option_combos"`
	OrgUnitGroups     int `json:"org_unit_groups"`
	DataElementGroups int `json:"data_element_groups"`
}

// Stats returns collection counts for the loaded graph.
func (ix *Index) Stats() Stats {
	return Stats{
		OrgUnits:          len(ix.orgUnits),
		Datasets:          len(ix.datasets),
		DataElements:      len(ix.dataElements),
		CategoryOptCombos: len(ix.cocs),
		OrgUnitGroups:     len(ix.orgUnitGroups),
		DataElementGroups: len(ix.deGroups),
	}
}

// =============================================================================
// KEY HELPERS
// =============================================================================

// normKey is the canonical form for name/code reverse maps.
func normKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// matchText prepares a label for the exact composite lookup: tabs and
// non-breaking spaces collapse to single spaces, then lower-case.
func matchText(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, " ", " ")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// fuzzyKey builds the order-independent key of a combo label: tokens split
// on pipe/comma/tab/newline, trimmed, lower-cased, sorted, "_"-joined.
func fuzzyKey(label string) string {
	tokens := fuzzyTokenRe.Split(label, -1)
	clean := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			clean = append(clean, t)
		}
	}
	if len(clean) == 0 {
		return ""
	}
	sort.Strings(clean)
	return strings.Join(clean, "_")
}
